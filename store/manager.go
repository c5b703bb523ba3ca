package store

import (
	"context"

	"github.com/saiset-co/sai-statecache/types"
)

var customKVStoreCreators = make(map[string]types.KVStoreCreator)
var customSecretStoreCreators = make(map[string]types.SecretStoreCreator)

func RegisterKVStore(storeType string, creator types.KVStoreCreator) {
	customKVStoreCreators[storeType] = creator
}

func RegisterSecretStore(storeType string, creator types.SecretStoreCreator) {
	customSecretStoreCreators[storeType] = creator
}

func NewKVStore(ctx context.Context, config *types.StoreConfig, logger types.Logger) (types.KVStore, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Type {
	case "memory":
		return NewMemoryKVStore(ctx, logger, config)
	case "redis":
		return NewRedisKVStore(ctx, logger, config)
	case "clover":
		return NewCloverKVStore(ctx, logger, config)
	default:
		if creator, exists := customKVStoreCreators[config.Type]; exists {
			return creator(config.Config)
		}
		return nil, types.Errorf(types.ErrStoreTypeUnknown, "type: %s", config.Type)
	}
}

func NewSecretStore(ctx context.Context, config *types.StoreConfig, logger types.Logger) (types.SecretStore, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Type {
	case "memory":
		return NewMemorySecretStore(ctx, logger, config)
	case "redis":
		return NewRedisSecretStore(ctx, logger, config)
	default:
		if creator, exists := customSecretStoreCreators[config.Type]; exists {
			return creator(config.Config)
		}
		return nil, types.Errorf(types.ErrSecretStoreTypeUnknown, "type: %s", config.Type)
	}
}

package types

import (
	"context"
)

// KVStore is the host-provided small-value key/value store. Values are
// opaque serialized payloads; absence is reported separately from errors.
type KVStore interface {
	LifecycleManager
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SecretStore holds write-through string secrets keyed by name.
type SecretStore interface {
	LifecycleManager
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

type KVStoreCreator func(config interface{}) (KVStore, error)

type SecretStoreCreator func(config interface{}) (SecretStore, error)

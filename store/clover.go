package store

import (
	"context"
	"encoding/base64"
	"sync/atomic"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

const cloverStateCollection = "state"

type CloverConfig struct {
	Path       string `json:"path"`
	Collection string `json:"collection"`
}

// CloverKVStore persists state values in an embedded document database.
// Each key maps to one document {key, value}; the value is stored base64
// encoded since clover fields hold structured data, not raw bytes.
type CloverKVStore struct {
	logger  types.Logger
	config  *CloverConfig
	db      *clover.DB
	running int32
}

func NewCloverKVStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.KVStore, error) {
	cloverConfig := &CloverConfig{
		Path:       "",
		Collection: cloverStateCollection,
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, cloverConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal clover store config")
		}
	}

	if cloverConfig.Collection == "" {
		cloverConfig.Collection = cloverStateCollection
	}

	db, err := clover.Open(cloverConfig.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open clover database")
	}

	exists, err := db.HasCollection(cloverConfig.Collection)
	if err != nil {
		return nil, types.WrapError(err, "failed to check collection existence")
	}

	if !exists {
		if err := db.CreateCollection(cloverConfig.Collection); err != nil {
			return nil, types.WrapError(err, "failed to create collection")
		}
	}

	return &CloverKVStore{
		logger: logger,
		config: cloverConfig,
		db:     db,
	}, nil
}

func (c *CloverKVStore) Start() error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}

	c.logger.Info("Clover KV store started", zap.String("path", c.config.Path))
	return nil
}

func (c *CloverKVStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	if err := c.db.Close(); err != nil {
		return types.WrapError(err, "failed to close clover database")
	}
	return nil
}

func (c *CloverKVStore) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}

func (c *CloverKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, types.ErrStoreKeyEmpty
	}

	doc, err := c.db.Query(c.config.Collection).Where(clover.Field("key").Eq(key)).FindFirst()
	if err != nil {
		return nil, false, types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}

	if doc == nil {
		return nil, false, nil
	}

	encoded, ok := doc.Get("value").(string)
	if !ok {
		return nil, false, nil
	}

	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, types.WrapError(err, "failed to decode stored value")
	}

	return value, true, nil
}

func (c *CloverKVStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	encoded := base64.StdEncoding.EncodeToString(value)

	query := c.db.Query(c.config.Collection).Where(clover.Field("key").Eq(key))

	existing, err := query.FindFirst()
	if err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}

	if existing != nil {
		err = query.Update(map[string]interface{}{"value": encoded})
		if err != nil {
			return types.WrapError(err, types.ErrStoreOperationFailed.Error())
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set("key", key)
	doc.Set("value", encoded)

	if _, err := c.db.InsertOne(c.config.Collection, doc); err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

func (c *CloverKVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	err := c.db.Query(c.config.Collection).Where(clover.Field("key").Eq(key)).Delete()
	if err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

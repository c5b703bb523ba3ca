package store

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

type RedisConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	KeyPrefix          string        `json:"key_prefix"`
}

func defaultRedisConfig(prefix string) *RedisConfig {
	return &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		Password:           "",
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		KeyPrefix:          prefix,
	}
}

func newRedisClient(ctx context.Context, config *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConnections,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, types.WrapError(err, types.ErrStoreConnectionFailed.Error())
	}

	return client, nil
}

// RedisKVStore keeps state values as plain redis strings under a key prefix.
type RedisKVStore struct {
	logger  types.Logger
	config  *RedisConfig
	client  *redis.Client
	running int32
}

func NewRedisKVStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.KVStore, error) {
	redisConfig := defaultRedisConfig("sai-statecache")

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis store config")
		}
	}

	client, err := newRedisClient(ctx, redisConfig)
	if err != nil {
		return nil, err
	}

	return &RedisKVStore{
		logger: logger,
		config: redisConfig,
		client: client,
	}, nil
}

func (r *RedisKVStore) Start() error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}

	r.logger.Info("Redis KV store started",
		zap.String("host", r.config.Host),
		zap.Int("port", r.config.Port),
		zap.String("prefix", r.config.KeyPrefix))
	return nil
}

func (r *RedisKVStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	if err := r.client.Close(); err != nil {
		return types.WrapError(err, "failed to close redis client")
	}
	return nil
}

func (r *RedisKVStore) IsRunning() bool {
	return atomic.LoadInt32(&r.running) == 1
}

func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, types.ErrStoreKeyEmpty
	}

	result, err := r.client.Get(ctx, r.buildFullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}

	return result, true, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	if err := r.client.Set(ctx, r.buildFullKey(key), value, 0).Err(); err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

func (r *RedisKVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	if err := r.client.Del(ctx, r.buildFullKey(key)).Err(); err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

func (r *RedisKVStore) buildFullKey(key string) string {
	var sb strings.Builder
	sb.Grow(len(r.config.KeyPrefix) + len(key) + 7)
	sb.WriteString(r.config.KeyPrefix)
	sb.WriteString(":state:")
	sb.WriteString(key)
	return sb.String()
}

// RedisSecretStore keeps secrets under a dedicated prefix so they can be
// wiped independently of state values.
type RedisSecretStore struct {
	logger  types.Logger
	config  *RedisConfig
	client  *redis.Client
	running int32
}

func NewRedisSecretStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.SecretStore, error) {
	redisConfig := defaultRedisConfig("sai-statecache")

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis secret store config")
		}
	}

	client, err := newRedisClient(ctx, redisConfig)
	if err != nil {
		return nil, err
	}

	return &RedisSecretStore{
		logger: logger,
		config: redisConfig,
		client: client,
	}, nil
}

func (r *RedisSecretStore) Start() error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}

	r.logger.Info("Redis secret store started",
		zap.String("host", r.config.Host),
		zap.Int("port", r.config.Port))
	return nil
}

func (r *RedisSecretStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	if err := r.client.Close(); err != nil {
		return types.WrapError(err, "failed to close redis client")
	}
	return nil
}

func (r *RedisSecretStore) IsRunning() bool {
	return atomic.LoadInt32(&r.running) == 1
}

func (r *RedisSecretStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, types.ErrStoreKeyEmpty
	}

	result, err := r.client.Get(ctx, r.buildFullKey(key)).Result()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}

	return result, true, nil
}

func (r *RedisSecretStore) Set(ctx context.Context, key string, value string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	if err := r.client.Set(ctx, r.buildFullKey(key), value, 0).Err(); err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

func (r *RedisSecretStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	if err := r.client.Del(ctx, r.buildFullKey(key)).Err(); err != nil {
		return types.WrapError(err, types.ErrStoreOperationFailed.Error())
	}
	return nil
}

func (r *RedisSecretStore) buildFullKey(key string) string {
	var sb strings.Builder
	sb.Grow(len(r.config.KeyPrefix) + len(key) + 8)
	sb.WriteString(r.config.KeyPrefix)
	sb.WriteString(":secret:")
	sb.WriteString(key)
	return sb.String()
}

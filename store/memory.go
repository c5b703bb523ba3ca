package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/saiset-co/sai-statecache/types"
)

// MemoryKVStore keeps values in process memory. It backs the dev loop and
// tests; nothing survives a restart.
type MemoryKVStore struct {
	logger  types.Logger
	data    map[string][]byte
	mu      sync.RWMutex
	running int32
}

func NewMemoryKVStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.KVStore, error) {
	return &MemoryKVStore{
		logger: logger,
		data:   make(map[string][]byte),
	}, nil
}

func (m *MemoryKVStore) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}
	return nil
}

func (m *MemoryKVStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

func (m *MemoryKVStore) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemoryKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, types.ErrStoreKeyEmpty
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *MemoryKVStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryKVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

type MemorySecretStore struct {
	logger  types.Logger
	secrets map[string]string
	mu      sync.RWMutex
	running int32
}

func NewMemorySecretStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.SecretStore, error) {
	return &MemorySecretStore{
		logger:  logger,
		secrets: make(map[string]string),
	}, nil
}

func (m *MemorySecretStore) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}
	return nil
}

func (m *MemorySecretStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceNotRunning
	}

	m.mu.Lock()
	m.secrets = make(map[string]string)
	m.mu.Unlock()
	return nil
}

func (m *MemorySecretStore) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemorySecretStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, types.ErrStoreKeyEmpty
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.secrets[key]
	return value, exists, nil
}

func (m *MemorySecretStore) Set(ctx context.Context, key string, value string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	m.mu.Lock()
	m.secrets[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemorySecretStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	m.mu.Lock()
	delete(m.secrets, key)
	m.mu.Unlock()
	return nil
}

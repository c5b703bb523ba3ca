package statecache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
)

// SecretCache mirrors the backing secret store in memory. Secrets are small,
// so every write goes straight through; there is no debouncing.
type SecretCache struct {
	store  types.SecretStore
	keys   []string
	logger types.Logger
	values map[string]string
	mu     sync.RWMutex
}

func NewSecretCache(store types.SecretStore, keys []string, logger types.Logger) *SecretCache {
	return &SecretCache{
		store:  store,
		keys:   keys,
		logger: logger,
		values: make(map[string]string),
	}
}

func (s *SecretCache) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.values[key]
	return value, exists
}

// Set updates the cache and writes through. A nil value deletes the secret.
func (s *SecretCache) Set(ctx context.Context, key string, value *string) error {
	if value == nil {
		s.mu.Lock()
		delete(s.values, key)
		s.mu.Unlock()

		if err := s.store.Delete(ctx, key); err != nil {
			return types.WrapError(err, "failed to delete secret")
		}
		return nil
	}

	s.mu.Lock()
	s.values[key] = *value
	s.mu.Unlock()

	if err := s.store.Set(ctx, key, *value); err != nil {
		return types.WrapError(err, "failed to store secret")
	}
	return nil
}

// Refresh re-reads every known secret key from the backing store. A failed
// read is logged and leaves the previously cached value in place; an absent
// key is unset.
func (s *SecretCache) Refresh(ctx context.Context) error {
	for _, key := range s.keys {
		value, exists, err := s.store.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to refresh secret, keeping cached value",
				zap.String("key", key), zap.Error(err))
			continue
		}

		s.mu.Lock()
		if exists {
			s.values[key] = value
		} else {
			delete(s.values, key)
		}
		s.mu.Unlock()
	}

	return nil
}

func (s *SecretCache) Clear() {
	s.mu.Lock()
	s.values = make(map[string]string)
	s.mu.Unlock()
}

func (s *SecretCache) Keys() []string {
	return s.keys
}

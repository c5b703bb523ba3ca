package statecache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

// Cache is the single source of truth for state reads. It is hydrated once
// at startup, mutated synchronously on every Set, and only re-reads the
// backing stores on Initialize/Reset. Large keys are written behind via the
// debouncer; everything else writes through.
type Cache struct {
	ctx        context.Context
	registry   *KeyRegistry
	kv         types.KVStore
	secrets    *SecretCache
	disk       *DiskStore
	debouncer  *Debouncer
	instrument *InstrumentLog
	logger     types.Logger

	snapshot    map[string]interface{}
	mu          sync.RWMutex
	initialized int32
	disposed    int32
}

type Options struct {
	Registry      *KeyRegistry
	KV            types.KVStore
	SecretStore   types.SecretStore
	Root          string
	DebounceDelay time.Duration
	Logger        types.Logger
}

func New(ctx context.Context, opts Options) (*Cache, error) {
	if opts.Registry == nil {
		opts.Registry = NewKeyRegistry(DefaultKeys())
	}
	if opts.KV == nil || opts.SecretStore == nil {
		return nil, types.ErrConfigIsNil
	}

	disk, err := NewDiskStore(opts.Root, opts.Logger)
	if err != nil {
		return nil, err
	}

	cache := &Cache{
		ctx:        ctx,
		registry:   opts.Registry,
		kv:         opts.KV,
		disk:       disk,
		instrument: NewInstrumentLog(disk.Dir(), opts.Logger),
		logger:     opts.Logger,
		snapshot:   make(map[string]interface{}),
	}

	cache.secrets = NewSecretCache(opts.SecretStore, opts.Registry.SecretKeys(), opts.Logger)
	cache.debouncer = NewDebouncer(opts.DebounceDelay, cache.flushRecord, opts.Logger)

	return cache, nil
}

// Initialize hydrates the snapshot: large keys prefer their disk record and
// fall back to the backing store, everything else reads the backing store.
// Individual read failures are logged and leave the key unset; hydration
// always completes. Safe to call again after Reset.
func (c *Cache) Initialize(ctx context.Context) error {
	if atomic.LoadInt32(&c.disposed) == 1 {
		return types.ErrStateDisposed
	}

	hydrated := make(map[string]interface{})

	for _, spec := range c.registry.GlobalKeys() {
		if spec.Large {
			if value, ok := c.disk.ReadRecord(spec.Name); ok {
				hydrated[spec.Name] = value
				continue
			}
		}

		raw, exists, err := c.kv.Get(ctx, spec.Name)
		if err != nil {
			c.logger.Warn("Failed to hydrate key, leaving unset",
				zap.String("key", spec.Name), zap.Error(err))
			continue
		}
		if !exists {
			continue
		}

		var value interface{}
		if err := utils.Unmarshal(raw, &value); err != nil {
			c.logger.Warn("Failed to decode stored value, leaving unset",
				zap.String("key", spec.Name), zap.Error(err))
			continue
		}

		hydrated[spec.Name] = value
	}

	c.mu.Lock()
	c.snapshot = hydrated
	c.mu.Unlock()

	if err := c.secrets.Refresh(ctx); err != nil {
		c.logger.Warn("Secret refresh during hydration failed", zap.Error(err))
	}

	atomic.StoreInt32(&c.initialized, 1)

	c.logger.Info("State cache initialized",
		zap.Int("hydrated_keys", len(hydrated)))
	return nil
}

// Get serves pass-through keys live from the backing store and everything
// else from the snapshot. Calling before Initialize is a lifecycle bug and
// panics.
func (c *Cache) Get(key string, def interface{}) interface{} {
	c.ensureInitialized()

	spec, known := c.registry.Lookup(key)
	if !known {
		return def
	}

	switch spec.Kind {
	case types.KeyKindPassThrough:
		raw, exists, err := c.kv.Get(c.ctx, key)
		if err != nil {
			c.logger.Warn("Pass-through read failed",
				zap.String("key", key), zap.Error(err))
			return def
		}
		if !exists {
			return def
		}

		var value interface{}
		if err := utils.Unmarshal(raw, &value); err != nil {
			c.logger.Warn("Pass-through value corrupt",
				zap.String("key", key), zap.Error(err))
			return def
		}
		return value

	case types.KeyKindSecret:
		if value, exists := c.secrets.Get(key); exists {
			return value
		}
		return def

	default:
		c.mu.RLock()
		defer c.mu.RUnlock()

		if value, exists := c.snapshot[key]; exists {
			return value
		}
		return def
	}
}

// Set routes the write by namespace. The snapshot is always updated before
// any durable write is attempted, so a Get immediately after Set observes
// the new value regardless of the durable write's fate.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	c.ensureInitialized()

	spec, known := c.registry.Lookup(key)
	if !known {
		return types.Errorf(types.ErrStateKeyUnknown, "key: %s", key)
	}

	switch spec.Kind {
	case types.KeyKindSecret:
		return c.SetSecret(ctx, key, secretValue(value))

	case types.KeyKindPassThrough:
		if value == nil {
			c.mu.Lock()
			delete(c.snapshot, key)
			c.mu.Unlock()

			c.instrument.Append(key, 0, types.WritePathPassThrough)
			return c.kv.Delete(ctx, key)
		}

		c.setSnapshot(key, value)
		c.instrument.Append(key, utils.ApproxSize(value), types.WritePathPassThrough)
		return c.writeKV(ctx, key, value)

	default:
		// A nil value unsets the key entirely, mirroring the host's notion
		// of an undefined setting.
		if value == nil {
			c.mu.Lock()
			delete(c.snapshot, key)
			c.mu.Unlock()

			if spec.Large {
				c.debouncer.Cancel(key)
				c.instrument.Append(key, 0, types.WritePathDebounced)
				return c.disk.DeleteRecord(key)
			}

			c.instrument.Append(key, 0, types.WritePathKV)
			return c.kv.Delete(ctx, key)
		}

		c.setSnapshot(key, value)

		if spec.Large {
			c.debouncer.Schedule(key, value)
			c.instrument.Append(key, utils.ApproxSize(value), types.WritePathDebounced)
			return nil
		}

		c.instrument.Append(key, utils.ApproxSize(value), types.WritePathKV)

		if err := c.writeKV(ctx, key, value); err != nil {
			// Cache intentionally stays ahead of the failed durable write.
			c.logger.Error("Write-through failed, cache remains authoritative",
				zap.String("key", key), zap.Error(err))
			return err
		}
		return nil
	}
}

func (c *Cache) GetSecret(key string) (string, bool) {
	c.ensureInitialized()
	return c.secrets.Get(key)
}

func (c *Cache) SetSecret(ctx context.Context, key string, value *string) error {
	c.ensureInitialized()

	spec, known := c.registry.Lookup(key)
	if !known || spec.Kind != types.KeyKindSecret {
		return types.Errorf(types.ErrStateKeyNotSecret, "key: %s", key)
	}

	size := 0
	if value != nil {
		size = len(*value)
	}
	c.instrument.Append(key, size, types.WritePathSecret)

	return c.secrets.Set(ctx, key, value)
}

func (c *Cache) RefreshSecrets(ctx context.Context) error {
	c.ensureInitialized()
	return c.secrets.Refresh(ctx)
}

// Reset cancels every pending debounce timer first, so no flush can
// resurrect a deleted record, then clears both caches, concurrently wipes
// the backing stores and disk records, and re-hydrates to an empty baseline.
// Per-key delete failures are logged and swallowed.
func (c *Cache) Reset(ctx context.Context) error {
	c.ensureInitialized()

	c.debouncer.CancelAll()

	c.mu.Lock()
	c.snapshot = make(map[string]interface{})
	c.mu.Unlock()
	c.secrets.Clear()

	g, gCtx := errgroup.WithContext(ctx)

	for _, spec := range c.registry.GlobalKeys() {
		spec := spec
		g.Go(func() error {
			if spec.Large {
				if err := c.disk.DeleteRecord(spec.Name); err != nil {
					c.logger.Warn("Failed to delete disk record during reset",
						zap.String("key", spec.Name), zap.Error(err))
				}
				return nil
			}

			if err := c.kv.Delete(gCtx, spec.Name); err != nil {
				c.logger.Warn("Failed to delete key during reset",
					zap.String("key", spec.Name), zap.Error(err))
			}
			return nil
		})
	}

	for _, key := range c.secrets.Keys() {
		key := key
		g.Go(func() error {
			if err := c.secrets.store.Delete(gCtx, key); err != nil {
				c.logger.Warn("Failed to delete secret during reset",
					zap.String("key", key), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.WrapError(err, "reset interrupted")
	}

	c.logger.Info("State cache reset, re-hydrating")
	return c.Initialize(ctx)
}

// Dispose flushes any pending large-key writes and closes the
// instrumentation log. The cache is unusable afterward.
func (c *Cache) Dispose() error {
	if !atomic.CompareAndSwapInt32(&c.disposed, 0, 1) {
		return nil
	}

	c.debouncer.FlushAll()
	atomic.StoreInt32(&c.initialized, 0)

	return c.instrument.Close()
}

func (c *Cache) ensureInitialized() {
	if atomic.LoadInt32(&c.initialized) == 0 {
		panic(types.ErrStateNotInitialized)
	}
}

func (c *Cache) setSnapshot(key string, value interface{}) {
	c.mu.Lock()
	c.snapshot[key] = value
	c.mu.Unlock()
}

func (c *Cache) writeKV(ctx context.Context, key string, value interface{}) error {
	data, err := utils.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to serialize value")
	}
	return c.kv.Set(ctx, key, data)
}

// flushRecord is the debouncer's sink: best-effort, failures stay logged
// inside the disk store.
func (c *Cache) flushRecord(key string, value interface{}) {
	_ = c.disk.WriteAtomic(key, value)
}

// secretValue adapts an untyped Set value to the secret API: nil deletes,
// strings store, anything else is dropped to its JSON rendering.
func secretValue(value interface{}) *string {
	if value == nil {
		return nil
	}

	if s, ok := value.(string); ok {
		return &s
	}

	data, err := utils.Marshal(value)
	if err != nil {
		return nil
	}
	s := strings.TrimSpace(string(data))
	return &s
}

package statecache

import (
	"context"
	"time"

	"github.com/saiset-co/sai-statecache/types"
)

// NewStateManager builds the cache over the given stores and, when metrics
// are available, wraps it with the operation-recording decorator.
func NewStateManager(
	ctx context.Context,
	config *types.StorageConfig,
	logger types.Logger,
	metrics types.MetricsManager,
	kv types.KVStore,
	secretStore types.SecretStore,
) (types.StateManager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	cache, err := New(ctx, Options{
		Registry:      NewKeyRegistry(DefaultKeys()),
		KV:            kv,
		SecretStore:   secretStore,
		Root:          config.Root,
		DebounceDelay: config.DebounceDelay,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	if metrics == nil {
		return cache, nil
	}

	return newInstrumentedStateManager(logger, metrics, cache), nil
}

type instrumentedStateManager struct {
	impl    types.StateManager
	logger  types.Logger
	metrics types.MetricsManager
}

func newInstrumentedStateManager(logger types.Logger, metrics types.MetricsManager, impl types.StateManager) types.StateManager {
	return &instrumentedStateManager{
		impl:    impl,
		logger:  logger,
		metrics: metrics,
	}
}

func (ism *instrumentedStateManager) Initialize(ctx context.Context) error {
	start := time.Now()
	err := ism.impl.Initialize(ctx)
	ism.recordMetric("initialize", resultOf(err), time.Since(start))
	return err
}

func (ism *instrumentedStateManager) Get(key string, def interface{}) interface{} {
	start := time.Now()
	value := ism.impl.Get(key, def)
	ism.recordMetric("get", "success", time.Since(start))
	return value
}

func (ism *instrumentedStateManager) Set(ctx context.Context, key string, value interface{}) error {
	start := time.Now()
	err := ism.impl.Set(ctx, key, value)
	ism.recordMetric("set", resultOf(err), time.Since(start))
	return err
}

func (ism *instrumentedStateManager) GetSecret(key string) (string, bool) {
	start := time.Now()
	value, exists := ism.impl.GetSecret(key)

	result := "miss"
	if exists {
		result = "hit"
	}

	ism.recordMetric("get_secret", result, time.Since(start))
	return value, exists
}

func (ism *instrumentedStateManager) SetSecret(ctx context.Context, key string, value *string) error {
	start := time.Now()
	err := ism.impl.SetSecret(ctx, key, value)
	ism.recordMetric("set_secret", resultOf(err), time.Since(start))
	return err
}

func (ism *instrumentedStateManager) RefreshSecrets(ctx context.Context) error {
	start := time.Now()
	err := ism.impl.RefreshSecrets(ctx)
	ism.recordMetric("refresh_secrets", resultOf(err), time.Since(start))
	return err
}

func (ism *instrumentedStateManager) Reset(ctx context.Context) error {
	start := time.Now()
	err := ism.impl.Reset(ctx)
	ism.recordMetric("reset", resultOf(err), time.Since(start))
	return err
}

func (ism *instrumentedStateManager) Dispose() error {
	return ism.impl.Dispose()
}

func (ism *instrumentedStateManager) recordMetric(operation, result string, duration time.Duration) {
	opCounter := ism.metrics.Counter("state_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := ism.metrics.Histogram("state_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

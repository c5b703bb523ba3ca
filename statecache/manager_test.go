package statecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-statecache/metrics"
	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

func TestNewStateManager_NilConfigFails(t *testing.T) {
	kv, secrets := newTestStores(t)

	_, err := NewStateManager(context.Background(), nil, newTestLogger(), nil, kv, secrets)
	assert.True(t, types.IsError(err, types.ErrConfigIsNil))
}

func TestNewStateManager_WithoutMetricsReturnsBareCache(t *testing.T) {
	kv, secrets := newTestStores(t)

	manager, err := NewStateManager(context.Background(), &types.StorageConfig{
		Root:          t.TempDir(),
		DebounceDelay: time.Second,
	}, newTestLogger(), nil, kv, secrets)
	require.NoError(t, err)

	_, isCache := manager.(*Cache)
	assert.True(t, isCache)
}

func TestInstrumentedStateManager_RecordsOperations(t *testing.T) {
	ctx := context.Background()
	kv, secrets := newTestStores(t)
	log := newTestLogger()

	mm, err := metrics.NewMemoryMetrics(ctx, log, nil)
	require.NoError(t, err)

	manager, err := NewStateManager(ctx, &types.StorageConfig{
		Root:          t.TempDir(),
		DebounceDelay: time.Second,
	}, log, mm, kv, secrets)
	require.NoError(t, err)
	require.NoError(t, manager.Initialize(ctx))

	require.NoError(t, manager.Set(ctx, "customInstructions", "v"))
	manager.Get("customInstructions", nil)
	_, _ = manager.GetSecret("apiKey")

	err = manager.Set(ctx, "noSuchKey", "v")
	require.Error(t, err)

	data, err := mm.GetMetrics()
	require.NoError(t, err)

	var snapshot map[string]float64
	require.NoError(t, utils.Unmarshal(data, &snapshot))

	assert.Equal(t, float64(1), snapshot["state_operations_total|operation=initialize|result=success"])
	assert.Equal(t, float64(1), snapshot["state_operations_total|operation=set|result=success"])
	assert.Equal(t, float64(1), snapshot["state_operations_total|operation=set|result=error"])
	assert.Equal(t, float64(1), snapshot["state_operations_total|operation=get|result=success"])
	assert.Equal(t, float64(1), snapshot["state_operations_total|operation=get_secret|result=miss"])
	assert.Equal(t, float64(1), snapshot["state_operation_duration_seconds|operation=set:count"])
}

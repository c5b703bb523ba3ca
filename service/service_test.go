package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-statecache/types"
)

func writeServiceConfig(t *testing.T, jobs string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`
name: test-service
version: 1.0.0
logger:
  level: error
storage:
  root: %s
  debounce_delay: 1s
  kv:
    type: memory
  secrets:
    type: memory
metrics:
  enabled: true
  type: memory
%s`, filepath.Join(dir, "data"), jobs)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestService_StartStopLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, writeServiceConfig(t, ""))
	require.NoError(t, err)

	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.True(t, types.IsError(svc.Start(), types.ErrServiceAlreadyRunning))

	state := svc.StateManager()
	require.NoError(t, state.Set(ctx, "customInstructions", "via service"))
	assert.Equal(t, "via service", state.Get("customInstructions", ""))

	require.NotNil(t, svc.Settings())
	require.NotNil(t, svc.Metrics())

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
	assert.True(t, types.IsError(svc.Stop(), types.ErrServiceNotRunning))
}

func TestService_SettingsRoundtrip(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, writeServiceConfig(t, ""))
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	defer func() { _ = svc.Stop() }()

	require.NoError(t, svc.Settings().SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider": "anthropic",
		"apiModelId":  "claude-sonnet",
		"apiKey":      "sk-service",
	}))

	view, raw := svc.Settings().ProviderView()
	require.NotNil(t, view, "raw: %v", raw)
	assert.Equal(t, "anthropic", view.Provider)
	assert.Equal(t, "sk-service", view.APIKey)
}

func TestService_InvalidJobScheduleFails(t *testing.T) {
	_, err := New(context.Background(), writeServiceConfig(t, `
jobs:
  enabled: true
  secret_refresh: "not a schedule"
`))
	require.Error(t, err)
	assert.True(t, types.IsError(err, types.ErrJobScheduleInvalid))
}

func TestService_ValidJobScheduleRuns(t *testing.T) {
	svc, err := New(context.Background(), writeServiceConfig(t, `
jobs:
  enabled: true
  secret_refresh: "0 0 * * * *"
`))
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop())
}

func TestService_MissingConfigFails(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/config.yaml")
	require.Error(t, err)
	assert.True(t, types.IsError(err, types.ErrConfigNotFound))
}

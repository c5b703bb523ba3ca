package settings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/logger"
	"github.com/saiset-co/sai-statecache/statecache"
	"github.com/saiset-co/sai-statecache/store"
	"github.com/saiset-co/sai-statecache/types"
)

type stubTelemetry struct {
	mu      sync.Mutex
	reports []string
}

func (s *stubTelemetry) ReportValidationError(view string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, view)
}

func (s *stubTelemetry) views() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.reports))
	copy(out, s.reports)
	return out
}

func newTestProjector(t *testing.T) (*Projector, types.StateManager, *stubTelemetry) {
	t.Helper()

	ctx := context.Background()
	log := logger.NewZapWrapper(zap.NewNop())

	kv, err := store.NewMemoryKVStore(ctx, log, nil)
	require.NoError(t, err)
	secrets, err := store.NewMemorySecretStore(ctx, log, nil)
	require.NoError(t, err)

	state, err := statecache.New(ctx, statecache.Options{
		KV:            kv,
		SecretStore:   secrets,
		Root:          t.TempDir(),
		DebounceDelay: time.Second,
		Logger:        log,
	})
	require.NoError(t, err)
	require.NoError(t, state.Initialize(ctx))

	telemetry := &stubTelemetry{}
	return NewProjector(state, telemetry, log), state, telemetry
}

func TestProjector_GlobalViewTyped(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	require.NoError(t, state.Set(ctx, "customInstructions", "be terse"))
	require.NoError(t, state.Set(ctx, "telemetrySetting", "enabled"))
	require.NoError(t, state.Set(ctx, "ruleToggles", []interface{}{
		map[string]interface{}{"name": "lint", "scope": "global", "enabled": true},
	}))

	view, raw := projector.GlobalView()
	require.NotNil(t, view)
	assert.Nil(t, raw)
	assert.Equal(t, "be terse", view.CustomInstructions)
	assert.Equal(t, "enabled", view.TelemetrySetting)
	require.Len(t, view.RuleToggles, 1)
	assert.Equal(t, "lint", view.RuleToggles[0].Name)
}

func TestProjector_GlobalViewValidationFailureReturnsRaw(t *testing.T) {
	ctx := context.Background()
	projector, state, telemetry := newTestProjector(t)

	require.NoError(t, state.Set(ctx, "telemetrySetting", "bogus"))

	view, raw := projector.GlobalView()
	assert.Nil(t, view)
	require.NotNil(t, raw)
	assert.Equal(t, "bogus", raw["telemetrySetting"])
	assert.Contains(t, telemetry.views(), ViewGlobal)
}

func TestProjector_ProviderViewHeadersNeverNil(t *testing.T) {
	projector, _, _ := newTestProjector(t)

	view, raw := projector.ProviderView()
	require.NotNil(t, view)
	assert.Nil(t, raw)
	assert.NotNil(t, view.Headers)
	assert.Empty(t, view.Headers)
}

func TestProjector_ProviderViewIncludesSecret(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	apiKey := "sk-view"
	require.NoError(t, state.SetSecret(ctx, "apiKey", &apiKey))

	view, _ := projector.ProviderView()
	require.NotNil(t, view)
	assert.Equal(t, "sk-view", view.APIKey)
}

func TestProjector_SetProviderSettingsAppliesRecognizedKeys(t *testing.T) {
	ctx := context.Background()
	projector, _, _ := newTestProjector(t)

	require.NoError(t, projector.SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider":      "anthropic",
		"apiModelId":       "claude-sonnet",
		"modelMaxTokens":   float64(4096),
		"modelTemperature": 0.7,
		"apiKey":           "sk-apply",
	}))

	view, raw := projector.ProviderView()
	require.NotNil(t, view, "raw: %v", raw)
	assert.Equal(t, "anthropic", view.Provider)
	assert.Equal(t, "claude-sonnet", view.ModelID)
	assert.Equal(t, 4096, view.MaxTokens)
	require.NotNil(t, view.Temperature)
	assert.InDelta(t, 0.7, *view.Temperature, 1e-9)
	assert.Equal(t, "sk-apply", view.APIKey)
}

func TestProjector_SetProviderSettingsClearsStaleKeys(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	require.NoError(t, projector.SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider":     "openai",
		"apiModelId":      "gpt-x",
		"apiBaseUrl":      "https://proxy.example.com",
		"providerHeaders": map[string]string{"X-Org": "acme"},
		"modelMaxTokens":  float64(8192),
	}))

	// Switching to a leaner configuration must drop every stale field.
	require.NoError(t, projector.SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider": "anthropic",
		"apiModelId":  "claude-sonnet",
	}))

	assert.Nil(t, state.Get("apiBaseUrl", nil))
	assert.Nil(t, state.Get("modelMaxTokens", nil))

	view, _ := projector.ProviderView()
	require.NotNil(t, view)
	assert.Equal(t, "anthropic", view.Provider)
	assert.Equal(t, "", view.BaseURL)
	assert.Empty(t, view.Headers)
	assert.Zero(t, view.MaxTokens)
}

func TestProjector_SetProviderSettingsLeavesInputUntouched(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	values := map[string]interface{}{
		"apiProvider": "anthropic",
	}
	require.NoError(t, projector.SetProviderSettings(ctx, values))

	assert.NotContains(t, values, "providerHeaders")
	assert.Len(t, values, 1)

	// Normalization still lands in the cache.
	assert.NotNil(t, state.Get("providerHeaders", nil))
}

func TestProjector_SetProviderSettingsSkipsUnrecognizedKeys(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	require.NoError(t, projector.SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider": "ollama",
		"bogusKey":    "ignored",
	}))

	assert.Equal(t, "ollama", state.Get("apiProvider", nil))
	assert.Nil(t, state.Get("bogusKey", nil))
}

func TestProjector_SetProviderSettingsValidationIsNonBlocking(t *testing.T) {
	ctx := context.Background()
	projector, state, telemetry := newTestProjector(t)

	require.NoError(t, projector.SetProviderSettings(ctx, map[string]interface{}{
		"apiProvider": "weird-provider",
	}))

	assert.Equal(t, "weird-provider", state.Get("apiProvider", nil))
	assert.Contains(t, telemetry.views(), ViewProvider)
}

func TestProjector_ExportFiltersSessionFieldsAndWorkspaceToggles(t *testing.T) {
	ctx := context.Background()
	projector, state, _ := newTestProjector(t)

	require.NoError(t, state.Set(ctx, "customInstructions", "portable"))
	require.NoError(t, state.Set(ctx, "activeProfile", "session-profile"))
	require.NoError(t, state.Set(ctx, "profileMetadata", []interface{}{
		map[string]interface{}{"id": "p1"},
	}))
	require.NoError(t, state.Set(ctx, "ruleToggles", []interface{}{
		map[string]interface{}{"name": "global-rule", "scope": "global", "enabled": true},
		map[string]interface{}{"name": "local-rule", "scope": "workspace", "enabled": true},
	}))

	snapshot, ok := projector.Export()
	require.True(t, ok)

	assert.Equal(t, "portable", snapshot["customInstructions"])
	assert.NotContains(t, snapshot, "activeProfile")
	assert.NotContains(t, snapshot, "profileMetadata")

	toggles, ok := snapshot["ruleToggles"].([]interface{})
	require.True(t, ok)
	require.Len(t, toggles, 1)
	toggle, ok := toggles[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "global-rule", toggle["name"])
}

func TestProjector_ExportFailsOnInvalidSettings(t *testing.T) {
	ctx := context.Background()
	projector, state, telemetry := newTestProjector(t)

	require.NoError(t, state.Set(ctx, "telemetrySetting", "bogus"))

	snapshot, ok := projector.Export()
	assert.False(t, ok)
	assert.Nil(t, snapshot)
	assert.Contains(t, telemetry.views(), ViewGlobal)
}

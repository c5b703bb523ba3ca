package settings

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

const (
	ViewGlobal   = "globalSettings"
	ViewProvider = "providerSettings"
)

// Recognized key lists define each view. The projector only ever touches
// these keys; everything else in the cache is invisible to it.
var globalViewKeys = []string{
	"customInstructions",
	"telemetrySetting",
	"autoApprovalSettings",
	"chatSettings",
	"activeProfile",
	"profileMetadata",
	"ruleToggles",
	"lastShownAnnouncementId",
}

var providerViewKeys = []string{
	"apiProvider",
	"apiModelId",
	"apiBaseUrl",
	"providerHeaders",
	"modelMaxTokens",
	"modelTemperature",
}

var providerSecretKeys = []string{
	"apiKey",
}

// Fields excluded from the sanitized export because they identify the
// session rather than describe portable settings.
var exportExcludedFields = []string{
	"activeProfile",
	"profileMetadata",
}

// Projector maintains the two schema-validated views over the cache's key
// space. Validation failures degrade gracefully: they are reported to
// telemetry and the caller receives a best-effort raw structure.
type Projector struct {
	state     types.StateManager
	telemetry types.TelemetryReporter
	logger    types.Logger
	validator *validator.Validate
}

func NewProjector(state types.StateManager, telemetry types.TelemetryReporter, logger types.Logger) *Projector {
	return &Projector{
		state:     state,
		telemetry: telemetry,
		logger:    logger,
		validator: validator.New(),
	}
}

// GlobalView gathers and validates the global settings view. On success the
// typed structure is returned; on validation failure (nil, raw) is returned
// after reporting telemetry, never an error.
func (p *Projector) GlobalView() (*types.GlobalSettings, map[string]interface{}) {
	raw := p.gather(globalViewKeys, nil)

	view := &types.GlobalSettings{}
	if err := decodeAndValidate(p, ViewGlobal, raw, view); err != nil {
		return nil, raw
	}

	return view, nil
}

// ProviderView gathers the provider settings view, including the secret API
// key, and validates it. The headers map is never nil in the result.
func (p *Projector) ProviderView() (*types.ProviderSettings, map[string]interface{}) {
	raw := p.gather(providerViewKeys, providerSecretKeys)

	view := &types.ProviderSettings{}
	if err := decodeAndValidate(p, ViewProvider, raw, view); err != nil {
		return nil, raw
	}

	if view.Headers == nil {
		view.Headers = map[string]string{}
	}

	return view, nil
}

// SetProviderSettings applies a new provider configuration. Recognized
// non-secret keys present in the cache but absent from values are unset
// first, so switching configurations leaves no stale fields behind. The
// providerHeaders map is normalized to an empty object when nil or missing.
func (p *Projector) SetProviderSettings(ctx context.Context, values map[string]interface{}) error {
	for _, key := range providerViewKeys {
		if _, provided := values[key]; provided {
			continue
		}
		if current := p.state.Get(key, nil); current != nil {
			if err := p.state.Set(ctx, key, nil); err != nil {
				p.logger.Warn("Failed to clear stale provider key",
					zap.String("key", key), zap.Error(err))
			}
		}
	}

	updates := make(map[string]interface{}, len(values)+1)
	for key, value := range values {
		updates[key] = value
	}
	if headers, ok := updates["providerHeaders"]; !ok || headers == nil {
		updates["providerHeaders"] = map[string]string{}
	}

	// Shape problems are reported but never block the write.
	check := &types.ProviderSettings{}
	if err := decodeAndValidate(p, ViewProvider, stripSecrets(updates), check); err != nil {
		p.logger.Warn("Provider settings failed validation, applying anyway",
			zap.Error(err))
	}

	for key, value := range updates {
		if isProviderSecretKey(key) {
			if err := p.state.Set(ctx, key, value); err != nil {
				return err
			}
			continue
		}

		if !isProviderViewKey(key) {
			p.logger.Warn("Ignoring unrecognized provider settings key",
				zap.String("key", key))
			continue
		}

		if err := p.state.Set(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

// Export produces the sanitized global settings snapshot: no session
// identifying fields, no unset fields, and only globally scoped rule
// toggles. Validation failure yields (nil, false) after telemetry.
func (p *Projector) Export() (map[string]interface{}, bool) {
	view, _ := p.GlobalView()
	if view == nil {
		return nil, false
	}

	filtered := view.RuleToggles[:0:0]
	for _, toggle := range view.RuleToggles {
		if toggle.Scope == "global" {
			filtered = append(filtered, toggle)
		}
	}
	view.RuleToggles = filtered

	data, err := utils.Marshal(view)
	if err != nil {
		p.report(ViewGlobal, err)
		return nil, false
	}

	snapshot := make(map[string]interface{})
	if err := utils.Unmarshal(data, &snapshot); err != nil {
		p.report(ViewGlobal, err)
		return nil, false
	}

	for _, field := range exportExcludedFields {
		delete(snapshot, field)
	}

	return snapshot, true
}

func (p *Projector) gather(keys []string, secretKeys []string) map[string]interface{} {
	raw := make(map[string]interface{}, len(keys)+len(secretKeys))

	for _, key := range keys {
		if value := p.state.Get(key, nil); value != nil {
			raw[key] = value
		}
	}

	for _, key := range secretKeys {
		if value, exists := p.state.GetSecret(key); exists {
			raw[key] = value
		}
	}

	return raw
}

func decodeAndValidate[T any](p *Projector, viewName string, raw map[string]interface{}, target *T) error {
	if err := utils.UnmarshalConfig(raw, target); err != nil {
		p.report(viewName, types.WrapError(err, types.ErrSettingsValidateFailed.Error()))
		return err
	}

	if err := p.validator.Struct(target); err != nil {
		p.report(viewName, types.WrapError(err, types.ErrSettingsValidateFailed.Error()))
		return err
	}

	return nil
}

func (p *Projector) report(viewName string, err error) {
	if p.telemetry != nil {
		p.telemetry.ReportValidationError(viewName, err)
	}
}

func stripSecrets(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for key, value := range values {
		if isProviderSecretKey(key) {
			continue
		}
		out[key] = value
	}
	return out
}

func isProviderViewKey(key string) bool {
	for _, known := range providerViewKeys {
		if known == key {
			return true
		}
	}
	return false
}

func isProviderSecretKey(key string) bool {
	for _, known := range providerSecretKeys {
		if known == key {
			return true
		}
	}
	return false
}

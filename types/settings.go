package types

// RuleToggle is one entry of the named rule list carried in global settings.
// Only entries with the global scope are ever exported.
type RuleToggle struct {
	Name    string `json:"name" validate:"required"`
	Scope   string `json:"scope" validate:"required,oneof=global workspace"`
	Enabled bool   `json:"enabled"`
}

// GlobalSettings is the validated projection of the global settings view.
type GlobalSettings struct {
	CustomInstructions      string                   `json:"customInstructions,omitempty"`
	TelemetrySetting        string                   `json:"telemetrySetting,omitempty" validate:"omitempty,oneof=enabled disabled"`
	AutoApprovalSettings    map[string]interface{}   `json:"autoApprovalSettings,omitempty"`
	ChatSettings            map[string]interface{}   `json:"chatSettings,omitempty"`
	ActiveProfile           string                   `json:"activeProfile,omitempty"`
	ProfileMetadata         []map[string]interface{} `json:"profileMetadata,omitempty"`
	RuleToggles             []RuleToggle             `json:"ruleToggles,omitempty" validate:"omitempty,dive"`
	LastShownAnnouncementID string                   `json:"lastShownAnnouncementId,omitempty"`
}

// ProviderSettings is the validated projection of the provider settings
// view. Headers is always a concrete map, never nil, because downstream
// consumers serialize it across a process boundary.
type ProviderSettings struct {
	Provider    string            `json:"apiProvider,omitempty" validate:"omitempty,oneof=anthropic openai openrouter bedrock ollama"`
	ModelID     string            `json:"apiModelId,omitempty"`
	BaseURL     string            `json:"apiBaseUrl,omitempty" validate:"omitempty,url"`
	Headers     map[string]string `json:"providerHeaders"`
	MaxTokens   int               `json:"modelMaxTokens,omitempty" validate:"omitempty,min=1"`
	Temperature *float64          `json:"modelTemperature,omitempty" validate:"omitempty,min=0,max=2"`
	APIKey      string            `json:"apiKey,omitempty"`
}

// TelemetryReporter is the fire-and-forget diagnostic sink for settings
// validation failures. Implementations must never block the caller.
type TelemetryReporter interface {
	ReportValidationError(view string, err error)
}

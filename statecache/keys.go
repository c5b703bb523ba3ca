package statecache

import (
	"github.com/saiset-co/sai-statecache/types"
)

// KeyRegistry holds the static namespace membership for every known state
// key. A key belongs to exactly one namespace; the registry is built once
// at composition time and never mutated afterward.
type KeyRegistry struct {
	specs map[string]types.KeySpec
	order []string
}

func NewKeyRegistry(specs []types.KeySpec) *KeyRegistry {
	registry := &KeyRegistry{
		specs: make(map[string]types.KeySpec, len(specs)),
		order: make([]string, 0, len(specs)),
	}

	for _, spec := range specs {
		if _, exists := registry.specs[spec.Name]; exists {
			continue
		}
		registry.specs[spec.Name] = spec
		registry.order = append(registry.order, spec.Name)
	}

	return registry
}

func (r *KeyRegistry) Lookup(name string) (types.KeySpec, bool) {
	spec, exists := r.specs[name]
	return spec, exists
}

func (r *KeyRegistry) GlobalKeys() []types.KeySpec {
	return r.keysOfKind(types.KeyKindGlobal)
}

func (r *KeyRegistry) SecretKeys() []string {
	specs := r.keysOfKind(types.KeyKindSecret)
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

func (r *KeyRegistry) PassThroughKeys() []string {
	specs := r.keysOfKind(types.KeyKindPassThrough)
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

func (r *KeyRegistry) keysOfKind(kind types.KeyKind) []types.KeySpec {
	var out []types.KeySpec
	for _, name := range r.order {
		spec := r.specs[name]
		if spec.Kind == kind {
			out = append(out, spec)
		}
	}
	return out
}

// DefaultKeys is the key set of the assistant sidecar this cache serves.
// taskHistory and mcpMarketplaceCatalog grow without bound, so they are
// flagged large and persisted as individual disk records.
func DefaultKeys() []types.KeySpec {
	return []types.KeySpec{
		{Name: "taskHistory", Kind: types.KeyKindGlobal, Large: true},
		{Name: "mcpMarketplaceCatalog", Kind: types.KeyKindGlobal, Large: true},

		{Name: "customInstructions", Kind: types.KeyKindGlobal},
		{Name: "telemetrySetting", Kind: types.KeyKindGlobal},
		{Name: "autoApprovalSettings", Kind: types.KeyKindGlobal},
		{Name: "chatSettings", Kind: types.KeyKindGlobal},
		{Name: "activeProfile", Kind: types.KeyKindGlobal},
		{Name: "profileMetadata", Kind: types.KeyKindGlobal},
		{Name: "ruleToggles", Kind: types.KeyKindGlobal},
		{Name: "lastShownAnnouncementId", Kind: types.KeyKindGlobal},
		{Name: "userInfo", Kind: types.KeyKindGlobal},
		{Name: "apiProvider", Kind: types.KeyKindGlobal},
		{Name: "apiModelId", Kind: types.KeyKindGlobal},
		{Name: "apiBaseUrl", Kind: types.KeyKindGlobal},
		{Name: "providerHeaders", Kind: types.KeyKindGlobal},
		{Name: "modelMaxTokens", Kind: types.KeyKindGlobal},
		{Name: "modelTemperature", Kind: types.KeyKindGlobal},

		{Name: "apiKey", Kind: types.KeyKindSecret},
		{Name: "authToken", Kind: types.KeyKindSecret},
		{Name: "awsAccessKey", Kind: types.KeyKindSecret},
		{Name: "awsSecretKey", Kind: types.KeyKindSecret},

		// The host maintains these itself; reads must always observe the
		// latest stored value, so they bypass the snapshot entirely.
		{Name: "windowState", Kind: types.KeyKindPassThrough},
		{Name: "recentWorkspaces", Kind: types.KeyKindPassThrough},
	}
}

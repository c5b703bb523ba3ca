package metrics

import (
	"context"
	"sync"

	"github.com/saiset-co/sai-statecache/types"
)

var customMetricsCreators = sync.Map{}

func RegisterMetricsManager(metricsManagerName string, creator types.MetricsManagerCreator) {
	customMetricsCreators.Store(metricsManagerName, creator)
}

func NewManager(ctx context.Context, config *types.MetricsConfig, logger types.Logger) (types.MetricsManager, error) {
	if config == nil || !config.Enabled {
		return nil, types.ErrMetricsIsDisabled
	}

	switch config.Type {
	case "memory":
		return NewMemoryMetrics(ctx, logger, config)
	case "prometheus":
		return NewPrometheusMetrics(ctx, logger, config)
	default:
		if creator, exists := customMetricsCreators.Load(config.Type); exists {
			return creator.(types.MetricsManagerCreator)(config)
		}
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", config.Type)
	}
}

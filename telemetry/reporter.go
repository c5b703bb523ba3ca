package telemetry

import (
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
)

// Reporter is the fire-and-forget sink for settings validation failures.
// It records a counter per view and logs at warn; it never blocks and never
// returns an error to the caller.
type Reporter struct {
	logger  types.Logger
	metrics types.MetricsManager
}

func NewReporter(logger types.Logger, metrics types.MetricsManager) *Reporter {
	return &Reporter{
		logger:  logger,
		metrics: metrics,
	}
}

func (r *Reporter) ReportValidationError(view string, err error) {
	if r.metrics != nil {
		counter := r.metrics.Counter("settings_validation_errors_total", map[string]string{
			"view": view,
		})
		counter.Inc()
	}

	if r.logger != nil {
		r.logger.Warn("Settings view failed validation",
			zap.String("view", view), zap.Error(err))
	}
}

package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

type PrometheusConfig struct {
	Namespace       string            `yaml:"namespace" json:"namespace"`
	Subsystem       string            `yaml:"subsystem" json:"subsystem"`
	Labels          map[string]string `yaml:"labels" json:"labels"`
	EnableGoMetrics bool              `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

type PrometheusMetrics struct {
	ctx        context.Context
	logger     types.Logger
	config     *PrometheusConfig
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.RWMutex
	running    int32
}

func NewPrometheusMetrics(ctx context.Context, logger types.Logger, config *types.MetricsConfig) (types.MetricsManager, error) {
	promConfig := &PrometheusConfig{
		Namespace:       "sai_statecache",
		Subsystem:       "",
		Labels:          make(map[string]string),
		EnableGoMetrics: true,
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, promConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal prometheus config")
		}
	}

	registry := prometheus.NewRegistry()
	if promConfig.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := &PrometheusMetrics{
		ctx:        ctx,
		logger:     logger,
		config:     promConfig,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	logger.Info("Prometheus metrics initialized",
		zap.String("namespace", promConfig.Namespace),
		zap.Bool("go_metrics", promConfig.EnableGoMetrics))

	return metrics, nil
}

func (p *PrometheusMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}
	return nil
}

func (p *PrometheusMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return types.ErrServiceNotRunning
	}
	return nil
}

func (p *PrometheusMetrics) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	labelNames := sortedLabelNames(labels)
	vec := p.counterVec(name, labelNames)
	return &prometheusCounter{counter: vec.WithLabelValues(labelValues(labels, labelNames)...)}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	labelNames := sortedLabelNames(labels)
	vec := p.gaugeVec(name, labelNames)
	return &prometheusGauge{gauge: vec.WithLabelValues(labelValues(labels, labelNames)...)}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	labelNames := sortedLabelNames(labels)
	vec := p.histogramVec(name, buckets, labelNames)
	return &prometheusHistogram{histogram: vec.WithLabelValues(labelValues(labels, labelNames)...)}
}

func (p *PrometheusMetrics) GetMetrics() ([]byte, error) {
	families, err := p.registry.Gather()
	if err != nil {
		return nil, types.WrapError(err, "failed to gather metrics")
	}
	return utils.Marshal(families)
}

func (p *PrometheusMetrics) counterVec(name string, labelNames []string) *prometheus.CounterVec {
	p.mu.RLock()
	vec, exists := p.counters[name]
	p.mu.RUnlock()

	if exists {
		return vec
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if vec, exists = p.counters[name]; exists {
		return vec
	}

	vec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   p.config.Namespace,
		Subsystem:   p.config.Subsystem,
		Name:        name,
		ConstLabels: prometheus.Labels(p.config.Labels),
	}, labelNames)

	p.registry.MustRegister(vec)
	p.counters[name] = vec
	return vec
}

func (p *PrometheusMetrics) gaugeVec(name string, labelNames []string) *prometheus.GaugeVec {
	p.mu.RLock()
	vec, exists := p.gauges[name]
	p.mu.RUnlock()

	if exists {
		return vec
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if vec, exists = p.gauges[name]; exists {
		return vec
	}

	vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   p.config.Namespace,
		Subsystem:   p.config.Subsystem,
		Name:        name,
		ConstLabels: prometheus.Labels(p.config.Labels),
	}, labelNames)

	p.registry.MustRegister(vec)
	p.gauges[name] = vec
	return vec
}

func (p *PrometheusMetrics) histogramVec(name string, buckets []float64, labelNames []string) *prometheus.HistogramVec {
	p.mu.RLock()
	vec, exists := p.histograms[name]
	p.mu.RUnlock()

	if exists {
		return vec
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if vec, exists = p.histograms[name]; exists {
		return vec
	}

	vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   p.config.Namespace,
		Subsystem:   p.config.Subsystem,
		Name:        name,
		Buckets:     buckets,
		ConstLabels: prometheus.Labels(p.config.Labels),
	}, labelNames)

	p.registry.MustRegister(vec)
	p.histograms[name] = vec
	return vec
}

func sortedLabelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func labelValues(labels map[string]string, names []string) []string {
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, labels[name])
	}
	return values
}

type prometheusCounter struct {
	counter prometheus.Counter
}

func (c *prometheusCounter) Inc()              { c.counter.Inc() }
func (c *prometheusCounter) Add(value float64) { c.counter.Add(value) }

func (c *prometheusCounter) Get() float64 {
	pb := &dto.Metric{}
	if err := c.counter.Write(pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

type prometheusGauge struct {
	gauge prometheus.Gauge
}

func (g *prometheusGauge) Set(value float64) { g.gauge.Set(value) }
func (g *prometheusGauge) Inc()              { g.gauge.Inc() }
func (g *prometheusGauge) Dec()              { g.gauge.Dec() }
func (g *prometheusGauge) Add(value float64) { g.gauge.Add(value) }
func (g *prometheusGauge) Sub(value float64) { g.gauge.Sub(value) }

func (g *prometheusGauge) Get() float64 {
	pb := &dto.Metric{}
	if err := g.gauge.Write(pb); err != nil {
		return 0
	}
	return pb.GetGauge().GetValue()
}

type prometheusHistogram struct {
	histogram prometheus.Observer
}

func (h *prometheusHistogram) Observe(value float64) { h.histogram.Observe(value) }

func (h *prometheusHistogram) ObserveDuration(start time.Time) {
	h.histogram.Observe(time.Since(start).Seconds())
}

func (h *prometheusHistogram) GetCount() uint64 {
	pb, ok := h.write()
	if !ok {
		return 0
	}
	return pb.GetHistogram().GetSampleCount()
}

func (h *prometheusHistogram) GetSum() float64 {
	pb, ok := h.write()
	if !ok {
		return 0
	}
	return pb.GetHistogram().GetSampleSum()
}

func (h *prometheusHistogram) write() (*dto.Metric, bool) {
	metric, ok := h.histogram.(prometheus.Metric)
	if !ok {
		return nil, false
	}

	pb := &dto.Metric{}
	if err := metric.Write(pb); err != nil {
		return nil, false
	}
	return pb, true
}

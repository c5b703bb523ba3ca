package metrics

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saiset-co/sai-statecache/types"
	"github.com/saiset-co/sai-statecache/utils"
)

// MemoryMetrics is the in-process implementation used for tests and the dev
// loop. Metrics live in maps keyed by name plus sorted labels.
type MemoryMetrics struct {
	logger     types.Logger
	counters   map[string]*MemoryCounter
	gauges     map[string]*MemoryGauge
	histograms map[string]*MemoryHistogram
	mu         sync.RWMutex
	running    int32
}

func NewMemoryMetrics(ctx context.Context, logger types.Logger, config *types.MetricsConfig) (types.MetricsManager, error) {
	return &MemoryMetrics{
		logger:     logger,
		counters:   make(map[string]*MemoryCounter),
		gauges:     make(map[string]*MemoryGauge),
		histograms: make(map[string]*MemoryHistogram),
	}, nil
}

func (m *MemoryMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}
	return nil
}

func (m *MemoryMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceNotRunning
	}
	return nil
}

func (m *MemoryMetrics) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemoryMetrics) Counter(name string, labels map[string]string) types.Counter {
	key := buildMetricKey(name, labels)

	m.mu.RLock()
	counter, exists := m.counters[key]
	m.mu.RUnlock()

	if exists {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists = m.counters[key]; exists {
		return counter
	}

	counter = &MemoryCounter{}
	m.counters[key] = counter
	return counter
}

func (m *MemoryMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	key := buildMetricKey(name, labels)

	m.mu.RLock()
	gauge, exists := m.gauges[key]
	m.mu.RUnlock()

	if exists {
		return gauge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists = m.gauges[key]; exists {
		return gauge
	}

	gauge = &MemoryGauge{}
	m.gauges[key] = gauge
	return gauge
}

func (m *MemoryMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	key := buildMetricKey(name, labels)

	m.mu.RLock()
	histogram, exists := m.histograms[key]
	m.mu.RUnlock()

	if exists {
		return histogram
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists = m.histograms[key]; exists {
		return histogram
	}

	histogram = &MemoryHistogram{buckets: buckets}
	m.histograms[key] = histogram
	return histogram
}

func (m *MemoryMetrics) GetMetrics() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.counters)+len(m.gauges))
	for key, counter := range m.counters {
		out[key] = counter.Get()
	}
	for key, gauge := range m.gauges {
		out[key] = gauge.Get()
	}
	for key, histogram := range m.histograms {
		out[key+":sum"] = histogram.GetSum()
		out[key+":count"] = float64(histogram.GetCount())
	}

	return utils.Marshal(out)
}

func buildMetricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, key := range keys {
		sb.WriteByte('|')
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(labels[key])
	}
	return sb.String()
}

type MemoryCounter struct {
	bits uint64
}

func (c *MemoryCounter) Inc() { c.Add(1) }

func (c *MemoryCounter) Add(value float64) {
	for {
		old := atomic.LoadUint64(&c.bits)
		next := math.Float64bits(math.Float64frombits(old) + value)
		if atomic.CompareAndSwapUint64(&c.bits, old, next) {
			return
		}
	}
}

func (c *MemoryCounter) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&c.bits))
}

type MemoryGauge struct {
	bits uint64
}

func (g *MemoryGauge) Set(value float64) {
	atomic.StoreUint64(&g.bits, math.Float64bits(value))
}

func (g *MemoryGauge) Inc() { g.Add(1) }
func (g *MemoryGauge) Dec() { g.Add(-1) }

func (g *MemoryGauge) Add(value float64) {
	for {
		old := atomic.LoadUint64(&g.bits)
		next := math.Float64bits(math.Float64frombits(old) + value)
		if atomic.CompareAndSwapUint64(&g.bits, old, next) {
			return
		}
	}
}

func (g *MemoryGauge) Sub(value float64) { g.Add(-value) }

func (g *MemoryGauge) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&g.bits))
}

type MemoryHistogram struct {
	buckets []float64
	count   uint64
	sumBits uint64
	mu      sync.Mutex
}

func (h *MemoryHistogram) Observe(value float64) {
	h.mu.Lock()
	h.count++
	sum := math.Float64frombits(h.sumBits) + value
	h.sumBits = math.Float64bits(sum)
	h.mu.Unlock()
}

func (h *MemoryHistogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h *MemoryHistogram) GetCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *MemoryHistogram) GetSum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return math.Float64frombits(h.sumBits)
}

package statecache

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/types"
)

const DefaultDebounceDelay = 5 * time.Second

type flushFunc func(key string, value interface{})

type pendingWrite struct {
	value interface{}
	timer *time.Timer
	gen   uint64
}

// Debouncer coalesces repeated writes to the same key into a single flush
// after a quiet period. At most one pending value and one timer exist per
// key; a new Schedule replaces both. All mutations of the pending map are
// linearized under one mutex so a concurrent flush or CancelAll can never
// resurrect a replaced value.
type Debouncer struct {
	delay   time.Duration
	flush   flushFunc
	logger  types.Logger
	pending map[string]*pendingWrite
	mu      sync.Mutex
}

func NewDebouncer(delay time.Duration, flush flushFunc, logger types.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	return &Debouncer{
		delay:   delay,
		flush:   flush,
		logger:  logger,
		pending: make(map[string]*pendingWrite),
	}
}

// Schedule replaces any pending value for key and restarts the delay timer.
func (d *Debouncer) Schedule(key string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, exists := d.pending[key]; exists {
		entry.timer.Stop()
		entry.value = value
		entry.gen++
		gen := entry.gen
		entry.timer = time.AfterFunc(d.delay, func() { d.fire(key, gen) })
		return
	}

	entry := &pendingWrite{value: value}
	gen := entry.gen
	entry.timer = time.AfterFunc(d.delay, func() { d.fire(key, gen) })
	d.pending[key] = entry
}

// fire flushes the pending value for key, unless the entry was removed or
// rescheduled since this timer was armed.
func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()

	entry, exists := d.pending[key]
	if !exists || entry.gen != gen {
		d.mu.Unlock()
		return
	}

	value := entry.value
	delete(d.pending, key)
	d.mu.Unlock()

	d.flush(key, value)
}

// Cancel drops the pending value for a single key without flushing.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, exists := d.pending[key]; exists {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// CancelAll stops every timer and drops every pending value without
// flushing. Reset relies on this running before disk records are deleted.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// FlushAll synchronously flushes every pending value, used on dispose so a
// clean shutdown does not lose the tail of a debounce window.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()

	flushed := make(map[string]interface{}, len(d.pending))
	for key, entry := range d.pending {
		entry.timer.Stop()
		flushed[key] = entry.value
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for key, value := range flushed {
		d.flush(key, value)
	}

	if len(flushed) > 0 {
		d.logger.Debug("Flushed pending writes on shutdown",
			zap.Int("count", len(flushed)))
	}
}

func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

package statecache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-statecache/logger"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes []flushEvent
}

type flushEvent struct {
	key   string
	value interface{}
}

func (r *flushRecorder) flush(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, flushEvent{key: key, value: value})
}

func (r *flushRecorder) events() []flushEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flushEvent, len(r.flushes))
	copy(out, r.flushes)
	return out
}

func newTestDebouncer(delay time.Duration) (*Debouncer, *flushRecorder) {
	recorder := &flushRecorder{}
	log := logger.NewZapWrapper(zap.NewNop())
	return NewDebouncer(delay, recorder.flush, log), recorder
}

func TestDebouncer_CoalescesWritesWithinWindow(t *testing.T) {
	d, recorder := newTestDebouncer(50 * time.Millisecond)

	d.Schedule("taskHistory", []string{"task1"})
	d.Schedule("taskHistory", []string{"task1", "task2"})

	require.Equal(t, 1, d.PendingCount())

	time.Sleep(150 * time.Millisecond)

	events := recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, "taskHistory", events[0].key)
	assert.Equal(t, []string{"task1", "task2"}, events[0].value)
	assert.Equal(t, 0, d.PendingCount())
}

func TestDebouncer_RescheduleRestartsTimer(t *testing.T) {
	d, recorder := newTestDebouncer(80 * time.Millisecond)

	d.Schedule("key", 1)
	time.Sleep(50 * time.Millisecond)
	d.Schedule("key", 2)
	time.Sleep(50 * time.Millisecond)

	// First window would have elapsed by now, but the reschedule restarted it.
	assert.Empty(t, recorder.events())

	time.Sleep(100 * time.Millisecond)

	events := recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].value)
}

func TestDebouncer_IndependentKeys(t *testing.T) {
	d, recorder := newTestDebouncer(30 * time.Millisecond)

	d.Schedule("a", "va")
	d.Schedule("b", "vb")

	require.Equal(t, 2, d.PendingCount())

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, recorder.events(), 2)
}

func TestDebouncer_CancelAllSkipsFlush(t *testing.T) {
	d, recorder := newTestDebouncer(30 * time.Millisecond)

	d.Schedule("key", "value")
	d.CancelAll()

	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, recorder.events())
	assert.Equal(t, 0, d.PendingCount())
}

func TestDebouncer_CancelSingleKey(t *testing.T) {
	d, recorder := newTestDebouncer(30 * time.Millisecond)

	d.Schedule("keep", "kept")
	d.Schedule("drop", "dropped")
	d.Cancel("drop")

	time.Sleep(100 * time.Millisecond)

	events := recorder.events()
	require.Len(t, events, 1)
	assert.Equal(t, "keep", events[0].key)
}

func TestDebouncer_RescheduleAroundDelayBoundary(t *testing.T) {
	d, recorder := newTestDebouncer(time.Millisecond)

	// Hammer the delay boundary so timer fires interleave with reschedules;
	// under -race this also proves the fire path never reads a generation
	// outside the lock.
	for i := 0; i < 500; i++ {
		d.Schedule("key", i)
		time.Sleep(time.Millisecond)
		d.Schedule("key", i)
	}
	time.Sleep(20 * time.Millisecond)

	events := recorder.events()
	require.NotEmpty(t, events)

	// Coalescing must never deliver an older value after a newer one.
	last := -1
	for _, event := range events {
		value := event.value.(int)
		assert.GreaterOrEqual(t, value, last)
		last = value
	}
	assert.Equal(t, 0, d.PendingCount())
}

func TestDebouncer_FlushAllWritesPending(t *testing.T) {
	d, recorder := newTestDebouncer(10 * time.Second)

	d.Schedule("a", 1)
	d.Schedule("b", 2)

	d.FlushAll()

	assert.Len(t, recorder.events(), 2)
	assert.Equal(t, 0, d.PendingCount())
}

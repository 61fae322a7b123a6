package trace

import (
	"fmt"
	"io"
	"sync"
)

// RingTracer keeps the most recent events of a run in memory so they can be
// dumped once the run fails or ends.
type RingTracer struct {
	mu      sync.RWMutex
	events  []Event
	next    int    // slot of the next write
	total   uint64 // events ever stored
	level   Level
	dropped uint64
}

const defaultRingSize = 4096

// NewRingTracer keeps up to capacity events; capacity <= 0 means 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total >= uint64(len(t.events)) {
		t.dropped++
	}
	t.events[t.next] = *ev
	t.next = (t.next + 1) % len(t.events)
	t.total++
}

// Snapshot returns the retained events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.total < uint64(len(t.events)) {
		return append([]Event(nil), t.events[:t.next]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.next:]...)
	return append(out, t.events[:t.next]...)
}

// Dropped returns how many events were overwritten before a dump.
func (t *RingTracer) Dropped() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// Dump writes the retained events in format. Text dumps of a ring that
// overflowed start with a line saying how many older events were lost.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	if n := t.Dropped(); n > 0 && format != FormatNDJSON {
		if _, err := fmt.Fprintf(w, "# vellum trace: %d earlier event(s) dropped, %d kept\n", n, len(events)); err != nil {
			return err
		}
	}
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

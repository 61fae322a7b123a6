package trace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Heartbeat wraps a tracer and emits a periodic event naming the spans that
// are still open, outermost first, and how many beats passed since a span
// last ended. A slow font scan and a hung typeset look different in the
// trace that way. Install the Heartbeat in place of the tracer it wraps so
// it sees span boundaries.
type Heartbeat struct {
	Tracer

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu    sync.Mutex
	open  map[uint64]openSpan
	idle  int // beats since the last span end
	beats uint64
}

type openSpan struct {
	seq  uint64
	name string
}

// StartHeartbeat starts beating on tracer every interval. It returns nil when
// tracing is off or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := newHeartbeat(tracer, interval)
	h.wg.Add(1)
	go h.run()
	return h
}

func newHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		Tracer:   tracer,
		interval: interval,
		stopCh:   make(chan struct{}),
		open:     make(map[uint64]openSpan),
	}
}

// Emit forwards ev and records span boundaries.
func (h *Heartbeat) Emit(ev *Event) {
	h.Tracer.Emit(ev)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch ev.Kind {
	case KindSpanBegin:
		h.open[ev.SpanID] = openSpan{seq: ev.Seq, name: ev.Name}
	case KindSpanEnd:
		delete(h.open, ev.SpanID)
		h.idle = 0
	}
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.beat()
		case <-h.stopCh:
			return
		}
	}
}

func (h *Heartbeat) beat() {
	h.mu.Lock()
	h.beats++
	n, idle := h.beats, h.idle
	h.idle++
	active := h.activeLocked()
	h.mu.Unlock()

	h.Tracer.Emit(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeDriver,
		GID:    getGoroutineID(),
		Name:   "heartbeat",
		Detail: fmt.Sprintf("#%d", n),
		Extra: map[string]string{
			"open": active,
			"idle": strconv.Itoa(idle),
		},
	})
}

// activeLocked joins the open span names in begin order.
func (h *Heartbeat) activeLocked() string {
	spans := make([]openSpan, 0, len(h.open))
	for _, s := range h.open {
		spans = append(spans, s)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].seq < spans[j].seq })
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.name
	}
	return strings.Join(names, " > ")
}

// Stop ends the beat loop and waits for it. It does not close the wrapped
// tracer. Safe on nil and on repeated calls.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.wg.Wait()
	})
}

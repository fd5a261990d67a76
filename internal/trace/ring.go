package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the last N events in memory (circular buffer).
// On Close the buffer is dumped to the configured writer, if any.
type RingTracer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	head     int  // next write position
	full     bool // has wrapped around
	level    Level

	dump       io.Writer
	dumpFormat Format
	suppress   bool
}

// NewRingTracer creates a new RingTracer with specified capacity.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}

	return &RingTracer{
		events:   make([]Event, capacity),
		capacity: capacity,
		level:    level,
	}
}

// DumpOnClose makes Close write the buffered events to w.
func (t *RingTracer) DumpOnClose(w io.Writer, format Format) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dump = w
	t.dumpFormat = format
}

// SuppressDump cancels a pending dump; used when the run succeeded and
// only crash dumps were requested.
func (t *RingTracer) SuppressDump() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suppress = true
}

// Emit adds an event to the ring buffer.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events[t.head] = *ev
	t.head = (t.head + 1) % t.capacity

	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns a copy of all stored events in chronological order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		result := make([]Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}

	result := make([]Event, t.capacity)
	copy(result, t.events[t.head:])
	copy(result[t.capacity-t.head:], t.events[:t.head])
	return result
}

// Dump writes all events to the provided writer in the specified format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()

	if format == FormatChrome {
		if _, err := io.WriteString(w, "{\"traceEvents\":[\n"); err != nil {
			return err
		}
	}
	for i := range events {
		if format == FormatChrome && i > 0 {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	if format == FormatChrome {
		if _, err := io.WriteString(w, "\n]}\n"); err != nil {
			return err
		}
	}

	return nil
}

// Flush is a no-op for RingTracer since everything is in memory.
func (t *RingTracer) Flush() error {
	return nil
}

// Close dumps the buffer if DumpOnClose was configured and not suppressed.
func (t *RingTracer) Close() error {
	t.mu.Lock()
	w, format, suppress := t.dump, t.dumpFormat, t.suppress
	t.dump = nil
	t.mu.Unlock()

	if w == nil {
		return nil
	}
	var err error
	if !suppress {
		err = t.Dump(w, format)
	}
	if closer, ok := w.(io.Closer); ok && !isStdStream(w) {
		if closeErr := closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Level returns the current tracing level.
func (t *RingTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *RingTracer) Enabled() bool {
	return t.level > LevelOff
}

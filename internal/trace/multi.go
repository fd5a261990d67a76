package trace

// MultiTracer fans out trace events to multiple tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer creates a MultiTracer whose level is the most verbose of
// its members. Disabled members are dropped.
func NewMultiTracer(tracers ...Tracer) *MultiTracer {
	m := &MultiTracer{}
	for _, tr := range tracers {
		if tr == nil || !tr.Enabled() {
			continue
		}
		m.tracers = append(m.tracers, tr)
		if tr.Level() > m.level {
			m.level = tr.Level()
		}
	}
	return m
}

// Emit sends the event to all underlying tracers.
// Each member applies its own level filter.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		tr.Emit(ev)
	}
}

// Flush flushes all underlying tracers.
func (t *MultiTracer) Flush() error {
	var firstErr error
	for _, tr := range t.tracers {
		if err := tr.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all underlying tracers.
func (t *MultiTracer) Close() error {
	var firstErr error
	for _, tr := range t.tracers {
		if err := tr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Tracers returns the enabled member tracers.
func (t *MultiTracer) Tracers() []Tracer {
	return t.tracers
}

// Level returns the most verbose member level.
func (t *MultiTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *MultiTracer) Enabled() bool {
	return t.level > LevelOff
}

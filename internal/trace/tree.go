package trace

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// SpanRecord is one node of a recorded span tree.
type SpanRecord struct {
	ID       uint64
	ParentID uint64
	Scope    Scope
	Name     string
	Start    time.Time
	End      time.Time
	Detail   string
	Extra    map[string]string
	Closes   int // number of end events seen for this span
}

// Closed reports whether the span received its end event.
func (r SpanRecord) Closed() bool {
	return r.Closes > 0
}

// Duration returns End-Start, or 0 for open spans.
func (r SpanRecord) Duration() time.Duration {
	if !r.Closed() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// TreeTracer keeps every span of a run in memory as a tree.
type TreeTracer struct {
	mu      sync.Mutex
	level   Level
	records []*SpanRecord
	byID    map[uint64]*SpanRecord
}

// NewTreeTracer creates a TreeTracer recording spans up to level.
func NewTreeTracer(level Level) *TreeTracer {
	return &TreeTracer{
		level: level,
		byID:  make(map[uint64]*SpanRecord),
	}
}

// Emit records span begin and end events; other kinds are ignored.
func (t *TreeTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case KindSpanBegin:
		rec := &SpanRecord{
			ID:       ev.SpanID,
			ParentID: ev.ParentID,
			Scope:    ev.Scope,
			Name:     ev.Name,
			Start:    ev.Time,
			Extra:    copyExtra(ev.Extra),
		}
		t.records = append(t.records, rec)
		t.byID[ev.SpanID] = rec
	case KindSpanEnd:
		rec, ok := t.byID[ev.SpanID]
		if !ok {
			return
		}
		rec.Closes++
		rec.End = ev.Time
		rec.Detail = ev.Detail
		for k, v := range ev.Extra {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string, len(ev.Extra))
			}
			rec.Extra[k] = v
		}
	}
}

// Spans returns copies of all recorded spans in begin order.
func (t *TreeTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SpanRecord, len(t.records))
	for i, rec := range t.records {
		out[i] = *rec
		out[i].Extra = copyExtra(rec.Extra)
	}
	return out
}

// Open returns how many recorded spans have not been closed.
func (t *TreeTracer) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	open := 0
	for _, rec := range t.records {
		if rec.Closes == 0 {
			open++
		}
	}
	return open
}

// Find returns the first span with the given name.
func (t *TreeTracer) Find(name string) (SpanRecord, bool) {
	for _, rec := range t.Spans() {
		if rec.Name == name {
			return rec, true
		}
	}
	return SpanRecord{}, false
}

// Render writes the tree with one indented line per span:
//
//	next-run                 412.3 ms
//	  load-next-config         1.2 ms
func (t *TreeTracer) Render(w io.Writer) error {
	spans := t.Spans()
	children := make(map[uint64][]SpanRecord, len(spans))
	known := make(map[uint64]bool, len(spans))
	for _, rec := range spans {
		known[rec.ID] = true
	}
	var roots []SpanRecord
	for _, rec := range spans {
		if rec.ParentID == 0 || !known[rec.ParentID] {
			roots = append(roots, rec)
			continue
		}
		children[rec.ParentID] = append(children[rec.ParentID], rec)
	}
	for id := range children {
		sort.SliceStable(children[id], func(i, j int) bool {
			return children[id][i].Start.Before(children[id][j].Start)
		})
	}

	var walk func(rec SpanRecord, depth int) error
	walk = func(rec SpanRecord, depth int) error {
		label := strings.Repeat("  ", depth) + rec.Name
		timing := "open"
		if rec.Closed() {
			timing = fmt.Sprintf("%.1f ms", float64(rec.Duration())/float64(time.Millisecond))
		}
		line := fmt.Sprintf("%-32s %10s", label, timing)
		if rec.Detail != "" {
			line += "  (" + rec.Detail + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, child := range children[rec.ID] {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := walk(root, 0); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op.
func (t *TreeTracer) Flush() error { return nil }

// Close is a no-op; the tree stays readable after Close.
func (t *TreeTracer) Close() error { return nil }

// Level returns the recording level.
func (t *TreeTracer) Level() Level { return t.level }

// Enabled returns true if tracing is active.
func (t *TreeTracer) Enabled() bool { return t.level > LevelOff }

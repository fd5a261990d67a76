package diag

import (
	"math"
	"sort"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a fixed capacity.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag returns a bag holding at most max diagnostics.
// Non-positive or oversized limits are clamped to the uint16 range.
func NewBag(max int) *Bag {
	limit, err := safecast.Conv[uint16](max)
	if err != nil {
		if max <= 0 {
			limit = 0
		} else {
			limit = math.MaxUint16
		}
	}
	return &Bag{
		items: make([]Diagnostic, 0, limit),
		max:   limit,
	}
}

// Add appends d unless the bag is full.
// Returns false if the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// HasErrors reports whether any diagnostic has Severity >= SevError.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic has Severity >= SevWarning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Sort orders diagnostics by file, line, column, then severity (desc).
// Diagnostics without a location keep their relative order ahead of located ones.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		li, lj := b.items[i].Location, b.items[j].Location
		if li.IsZero() || lj.IsZero() {
			return li.IsZero() && !lj.IsZero()
		}
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
		return b.items[i].Severity > b.items[j].Severity
	})
}

// Dedup drops diagnostics repeating an earlier message at the same location.
func (b *Bag) Dedup() {
	type key struct {
		loc string
		msg string
	}
	seen := make(map[key]bool, len(b.items))
	kept := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		k := key{loc: d.Location.String(), msg: d.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, d)
	}
	b.items = kept
}

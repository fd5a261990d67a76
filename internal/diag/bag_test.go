package diag

import (
	"math"
	"testing"
)

func TestBagCapacity(t *testing.T) {
	b := NewBag(2)
	for i := 0; i < 3; i++ {
		b.Add(Diagnostic{Severity: SevError, Message: "boom"})
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if !b.HasErrors() {
		t.Fatalf("HasErrors() = false, want true")
	}
}

func TestNewBagClampsLimit(t *testing.T) {
	if got := NewBag(-1).Cap(); got != 0 {
		t.Fatalf("NewBag(-1).Cap() = %d, want 0", got)
	}
	if got := NewBag(1 << 20).Cap(); got != math.MaxUint16 {
		t.Fatalf("NewBag(1<<20).Cap() = %d, want %d", got, math.MaxUint16)
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(Diagnostic{Severity: SevWarning, Message: "w", Location: &Location{File: "b.js", Line: 1}})
	b.Add(Diagnostic{Severity: SevError, Message: "e", Location: &Location{File: "a.js", Line: 3, Column: 2}})
	b.Add(Diagnostic{Severity: SevError, Message: "e", Location: &Location{File: "a.js", Line: 3, Column: 2}})
	b.Add(Diagnostic{Severity: SevError, Message: "global"})
	b.Sort()
	b.Dedup()

	want := []string{"global", "a.js:3:2: e", "b.js:1:0: w"}
	items := b.Items()
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, d := range items {
		if d.Error() != want[i] {
			t.Fatalf("items[%d] = %q, want %q", i, d.Error(), want[i])
		}
	}
}

func TestWarningsOnlyIsNotError(t *testing.T) {
	b := NewBag(4)
	b.Add(Diagnostic{Severity: SevWarning, Message: "unused import"})
	if b.HasErrors() {
		t.Fatalf("HasErrors() = true, want false")
	}
	if !b.HasWarnings() {
		t.Fatalf("HasWarnings() = false, want true")
	}
}

// Package testkit holds assertions shared by tests across packages.
package testkit

import (
	"fmt"

	"nextrun/internal/trace"
)

// CheckSpanInvariants verifies the span tree recorded by tree:
// 1) every span was closed exactly once
// 2) every parent ID names a recorded span, and there is at most one root
// 3) children start no earlier than their parent and end no later
func CheckSpanInvariants(tree *trace.TreeTracer) error {
	if tree == nil {
		return fmt.Errorf("nil tree tracer")
	}
	spans := tree.Spans()
	byID := make(map[uint64]trace.SpanRecord, len(spans))
	for _, s := range spans {
		byID[s.ID] = s
	}

	roots := 0
	for _, s := range spans {
		// 1) closed exactly once
		if s.Closes != 1 {
			return fmt.Errorf("span %q (id=%d) closed %d times", s.Name, s.ID, s.Closes)
		}

		// 2) parent linkage
		if s.ParentID == 0 {
			roots++
			continue
		}
		parent, ok := byID[s.ParentID]
		if !ok {
			return fmt.Errorf("span %q (id=%d) has unknown parent %d", s.Name, s.ID, s.ParentID)
		}

		// 3) nesting in time
		if s.Start.Before(parent.Start) {
			return fmt.Errorf("span %q starts before its parent %q", s.Name, parent.Name)
		}
		if s.End.After(parent.End) {
			return fmt.Errorf("span %q ends after its parent %q", s.Name, parent.Name)
		}
	}
	if roots > 1 {
		return fmt.Errorf("span tree has %d roots, want at most 1", roots)
	}
	return nil
}

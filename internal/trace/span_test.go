package trace

import (
	"context"
	"errors"
	"testing"
)

func TestSpanEndIsIdempotent(t *testing.T) {
	tree := NewTreeTracer(LevelDebug)
	span := Begin(tree, ScopeDriver, "root", 0)
	span.End("")
	if got := span.End("again"); got != 0 {
		t.Fatalf("second End() = %v, want 0", got)
	}
	spans := tree.Spans()
	if len(spans) != 1 || spans[0].Closes != 1 {
		t.Fatalf("spans = %+v, want one span closed once", spans)
	}
	if spans[0].Detail != "" {
		t.Fatalf("detail = %q, want first End's detail", spans[0].Detail)
	}
}

func TestChildParentsToSpan(t *testing.T) {
	tree := NewTreeTracer(LevelDebug)
	root := Begin(tree, ScopeDriver, "root", 0)
	child := root.Child("load-config")
	child.End("")
	root.End("")

	rec, ok := tree.Find("load-config")
	if !ok {
		t.Fatalf("child span not recorded")
	}
	if rec.ParentID != root.ID() {
		t.Fatalf("child ParentID = %d, want %d", rec.ParentID, root.ID())
	}
	if rec.Scope != ScopePass {
		t.Fatalf("child Scope = %v, want %v", rec.Scope, ScopePass)
	}
}

func TestDoClosesSpanAndPreservesError(t *testing.T) {
	tree := NewTreeTracer(LevelDebug)
	ctx := WithTracer(context.Background(), tree)
	ctx, root := Start(ctx, ScopeDriver, "root")

	sentinel := errors.New("bundler crashed")
	_, err := Do(ctx, ScopePass, "compile", func(context.Context) (int, error) {
		return 0, sentinel
	})
	if err != sentinel {
		t.Fatalf("Do() error = %v, want the same error value", err)
	}

	v, err := Do(ctx, ScopePass, "ok", func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || v != "done" {
		t.Fatalf("Do() = (%q, %v), want (done, nil)", v, err)
	}
	root.End("")

	if open := tree.Open(); open != 0 {
		t.Fatalf("Open() = %d, want 0", open)
	}
	rec, _ := tree.Find("compile")
	if rec.Detail != "error: bundler crashed" {
		t.Fatalf("compile detail = %q", rec.Detail)
	}
	if rec.ParentID != root.ID() {
		t.Fatalf("compile ParentID = %d, want %d", rec.ParentID, root.ID())
	}
}

func TestDoClosesSpanOnPanic(t *testing.T) {
	tree := NewTreeTracer(LevelDebug)
	ctx := WithTracer(context.Background(), tree)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = Run(ctx, ScopePass, "explode", func(context.Context) error {
			panic("boom")
		})
	}()

	if open := tree.Open(); open != 0 {
		t.Fatalf("Open() = %d after panic, want 0", open)
	}
}

func TestNestedStartUsesNearestRecordedParent(t *testing.T) {
	tree := NewTreeTracer(LevelPhase)
	ctx := WithTracer(context.Background(), tree)
	ctx, root := Start(ctx, ScopeDriver, "root")
	// ScopeModule is filtered at LevelPhase and must not become a parent.
	ctx, detail := Start(ctx, ScopeModule, "entry")
	_, pass := Start(ctx, ScopePass, "late-pass")
	pass.End("")
	detail.End("")
	root.End("")

	rec, ok := tree.Find("late-pass")
	if !ok {
		t.Fatalf("late-pass not recorded")
	}
	if rec.ParentID != root.ID() {
		t.Fatalf("late-pass ParentID = %d, want root %d", rec.ParentID, root.ID())
	}
	if _, ok := tree.Find("entry"); ok {
		t.Fatalf("module-scope span recorded at phase level")
	}
}

func TestNopTracerSpansAreSafe(t *testing.T) {
	ctx, span := Start(context.Background(), ScopeDriver, "root")
	child := span.Child("child")
	child.WithExtra("k", "v").End("")
	span.Finish(errors.New("x"))
	if CurrentSpan(ctx).SpanID != 0 {
		t.Fatalf("nop span leaked into context")
	}
}

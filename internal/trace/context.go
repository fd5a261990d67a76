package trace

import (
	"context"
	"fmt"
)

type ctxKey struct{}

// FromContext extracts the Tracer from context.
// If not found, returns Nop tracer.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// SpanContext holds current span info for propagation.
type SpanContext struct {
	SpanID uint64
	Scope  Scope
}

type spanCtxKey struct{}

// CurrentSpan retrieves the active span context from context.
// Returns zero SpanContext if not found.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	if sc, ok := ctx.Value(spanCtxKey{}).(SpanContext); ok {
		return sc
	}
	return SpanContext{}
}

// WithSpanContext attaches span context.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		return nil
	}
	return context.WithValue(ctx, spanCtxKey{}, sc)
}

// Start opens a span parented to the span carried by ctx and returns a
// context carrying the new span. Unrecorded spans leave ctx's parent in place,
// so deeper spans still attach to the nearest recorded ancestor.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	return StartWithExtra(ctx, scope, name, nil)
}

// StartWithExtra is Start with attributes attached to the begin event.
func StartWithExtra(ctx context.Context, scope Scope, name string, extra map[string]string) (context.Context, *Span) {
	parent := CurrentSpan(ctx)
	span := BeginWithExtra(FromContext(ctx), scope, name, parent.SpanID, extra)
	if span.ID() == 0 {
		return ctx, span
	}
	return WithSpanContext(ctx, SpanContext{SpanID: span.ID(), Scope: scope}), span
}

// Do runs fn inside a span named name. The span is closed before Do returns,
// on success and on failure, and fn's result and error are returned unchanged.
// A panic in fn also closes the span before it continues unwinding.
func Do[T any](ctx context.Context, scope Scope, name string, fn func(context.Context) (T, error)) (v T, err error) {
	return DoWithExtra(ctx, scope, name, nil, fn)
}

// DoWithExtra is Do with attributes attached to the begin event.
func DoWithExtra[T any](ctx context.Context, scope Scope, name string, extra map[string]string, fn func(context.Context) (T, error)) (v T, err error) {
	ctx, span := StartWithExtra(ctx, scope, name, extra)
	defer func() {
		if r := recover(); r != nil {
			span.End(fmt.Sprintf("panic: %v", r))
			panic(r)
		}
		span.Finish(err)
	}()
	return fn(ctx)
}

// Run is Do for functions that return only an error.
func Run(ctx context.Context, scope Scope, name string, fn func(context.Context) error) error {
	_, err := Do(ctx, scope, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Package trace provides hierarchical tracing spans for a compile-and-run cycle.
//
// A run opens one root span and a child span per phase (config load, build
// configuration, compilation, script execution). Spans record start/end
// events through a Tracer; the Tracer decides where those events go.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	nextrun run --trace=- --trace-level=phase scripts/seed.js
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when the tracer closes
//   - TreeTracer: in-memory span tree used for --timings and tests
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only crash dumps
//   - LevelPhase: Driver and phase boundaries
//   - LevelDetail: Per-entrypoint events
//   - LevelDebug: Everything
//
// # Context Propagation
//
// Sequencing stays plain Go code; spans ride along on the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, root := trace.Start(ctx, trace.ScopeDriver, "next-run")
//	defer root.End("")
//
//	cfg, err := trace.Do(ctx, trace.ScopePass, "load-next-config", loadConfig)
//
// Every span is closed exactly once: End and Finish are no-ops after the
// first call.
package trace

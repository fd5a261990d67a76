package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nextrun/internal/runerr"
	"nextrun/internal/trace"
)

// tracing owns the tracers attached to a command's context.
type tracing struct {
	tracer    trace.Tracer
	tree      *trace.TreeTracer
	heartbeat *trace.Heartbeat
	cmd       *cobra.Command
}

// setupTracing reads the trace flags, attaches the resulting tracer to cmd's
// context and returns a handle whose close must be called once the command
// finishes. With timings enabled a span tree is recorded as well.
func setupTracing(cmd *cobra.Command, timings bool) (*tracing, error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, &runerr.ArgumentError{Message: err.Error()}
	}
	// An output file without an explicit level traces phases.
	if level == trace.LevelOff && traceOutput != "" && !flags.Changed("trace-level") {
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, &runerr.ArgumentError{Message: err.Error()}
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, &runerr.ArgumentError{Message: err.Error()}
	}

	t := &tracing{cmd: cmd}
	user, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		Output:     writerForOutput(cmd, traceOutput),
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	tracers := []trace.Tracer{user}
	if timings {
		t.tree = trace.NewTreeTracer(trace.LevelDetail)
		tracers = append(tracers, t.tree)
	}
	t.tracer = trace.NewMultiTracer(tracers...)

	cmd.SetContext(trace.WithTracer(cmd.Context(), t.tracer))

	if heartbeatInterval > 0 && user.Enabled() {
		t.heartbeat = trace.StartHeartbeat(t.tracer, heartbeatInterval)
	}
	return t, nil
}

// writerForOutput routes "-" and the empty path to the command's stderr.
func writerForOutput(cmd *cobra.Command, path string) io.Writer {
	if path == "" || path == "-" {
		return cmd.ErrOrStderr()
	}
	return nil
}

// close stops the heartbeat and flushes the tracers. A successful run drops
// the error-level ring buffer instead of dumping it.
func (t *tracing) close(success bool) {
	if t == nil {
		return
	}
	t.heartbeat.Stop()
	if success {
		suppressRingDumps(t.tracer)
	}
	if err := t.tracer.Flush(); err != nil {
		fmt.Fprintf(t.cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
	}
	if err := t.tracer.Close(); err != nil {
		fmt.Fprintf(t.cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
}

func suppressRingDumps(tr trace.Tracer) {
	switch v := tr.(type) {
	case *trace.RingTracer:
		v.SuppressDump()
	case *trace.MultiTracer:
		for _, inner := range v.Tracers() {
			suppressRingDumps(inner)
		}
	}
}

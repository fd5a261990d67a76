// Package compiler runs the bundler for a build configuration and turns its
// statistics into diagnostics.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"nextrun/internal/buildconfig"
	"nextrun/internal/bundler"
	"nextrun/internal/diag"
	"nextrun/internal/trace"
)

// Result is the outcome of a compilation that ran to completion.
// A non-empty Diagnostics means the compilation failed.
type Result struct {
	Diagnostics []diag.Diagnostic
	Warnings    []diag.Diagnostic
	OutputDir   string
	Assets      map[string]bundler.Asset
}

// Failed reports whether the compilation produced errors.
func (r *Result) Failed() bool {
	return r != nil && len(r.Diagnostics) > 0
}

// Driver compiles configurations with Engine.
type Driver struct {
	Engine bundler.Engine
}

// Compile runs one compilation inside the "run-compiler" span, which is closed
// exactly once on every path. Engine failures are returned as-is;
// compilation errors are reported in the result.
func (d Driver) Compile(ctx context.Context, cfg *buildconfig.Configuration) (res *Result, err error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "run-compiler")
	span.WithExtra("entrypoints", strings.Join(cfg.EntrypointNames(), ","))
	defer func() {
		if r := recover(); r != nil {
			span.End(fmt.Sprintf("panic: %v", r))
			panic(r)
		}
		if res != nil {
			span.WithExtra("errors", strconv.Itoa(len(res.Diagnostics))).
				WithExtra("warnings", strconv.Itoa(len(res.Warnings)))
		}
		span.Finish(err)
	}()

	engine := d.Engine
	if engine == nil {
		engine = bundler.Esbuild{}
	}
	stats, err := engine.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, errors.New("compiler: engine returned no stats")
	}

	res = &Result{
		Diagnostics: toDiagnostics(stats.Errors, diag.SevError),
		Warnings:    toDiagnostics(stats.Warnings, diag.SevWarning),
		OutputDir:   stats.OutputDir,
		Assets:      stats.Assets,
	}
	if res.OutputDir == "" {
		res.OutputDir = cfg.OutputDir
	}
	return res, nil
}

func toDiagnostics(msgs []bundler.Message, sev diag.Severity) []diag.Diagnostic {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := diag.Diagnostic{
			Severity: sev,
			Message:  m.Text,
			Location: toLocation(m.Location),
			Plugin:   m.Plugin,
		}
		for _, n := range m.Notes {
			d.Notes = append(d.Notes, diag.Note{Location: toLocation(n.Location), Msg: n.Text})
		}
		out = append(out, d)
	}
	return out
}

func toLocation(loc *bundler.Location) *diag.Location {
	if loc == nil {
		return nil
	}
	// Negative or oversized positions degrade to 0 rather than wrapping.
	line, err := safecast.Conv[uint32](loc.Line)
	if err != nil {
		line = 0
	}
	col, err := safecast.Conv[uint32](loc.Column)
	if err != nil {
		col = 0
	}
	length, err := safecast.Conv[uint32](loc.Length)
	if err != nil {
		length = 0
	}
	return &diag.Location{
		File:     loc.File,
		Line:     line,
		Column:   col,
		Length:   length,
		LineText: loc.LineText,
	}
}

// Package bundler runs a bundling engine over a synthesized build
// configuration and reports its statistics.
package bundler

import (
	"context"
	"fmt"
	"strings"

	"nextrun/internal/buildconfig"
)

// Engine bundles a configuration. Compilation errors are reported in
// Stats.Errors; a non-nil error means the engine itself failed.
type Engine interface {
	Build(ctx context.Context, cfg *buildconfig.Configuration) (*Stats, error)
}

// Stats summarizes one engine run.
type Stats struct {
	Errors    []Message
	Warnings  []Message
	OutputDir string
	// Assets are keyed by absolute output path.
	Assets map[string]Asset
}

// HasErrors reports whether the run produced compilation errors.
func (s *Stats) HasErrors() bool {
	return s != nil && len(s.Errors) > 0
}

// Asset is one emitted output file.
type Asset struct {
	Path       string
	Bytes      int
	EntryPoint string
}

// Message is a bundler diagnostic.
type Message struct {
	Text     string
	Plugin   string
	Location *Location
	Notes    []Note
}

// Location points into a source file. Line is 1-based and Column is a
// 0-based byte offset.
type Location struct {
	File     string
	Line     int
	Column   int
	Length   int
	LineText string
}

type Note struct {
	Text     string
	Location *Location
}

func (m Message) String() string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}

// FatalError reports that the engine could not run at all, as opposed to a
// run that completed with compilation errors.
type FatalError struct {
	Messages []Message
}

func (e *FatalError) Error() string {
	switch len(e.Messages) {
	case 0:
		return "bundler failed"
	case 1:
		return "bundler failed: " + e.Messages[0].String()
	}
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("bundler failed with %d errors: %s", len(e.Messages), strings.Join(parts, "; "))
}

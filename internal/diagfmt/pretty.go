package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"nextrun/internal/diag"
)

type palette struct {
	err, warn, info, note, loc, caret, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		note:  color.New(color.FgBlue, color.Bold),
		loc:   color.New(color.Bold),
		caret: color.New(color.FgGreen, color.Bold),
		dim:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.loc, p.caret, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diagnostics in a human-readable form:
//
//	<path>:<line>:<col>: <SEV>: <message>
//	  <source line>
//	  ^~~~
//
// followed by notes in the same shape. Items are printed in the order given.
func Pretty(w io.Writer, diagnostics []diag.Diagnostic, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	shown := diagnostics
	if opts.Max > 0 && len(shown) > opts.Max {
		shown = shown[:opts.Max]
	}
	for _, d := range shown {
		if err := writeDiagnostic(w, p, d, opts); err != nil {
			return err
		}
	}
	if hidden := len(diagnostics) - len(shown); hidden > 0 {
		if _, err := p.dim.Fprintf(w, "... %d more not shown\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostic(w io.Writer, p palette, d diag.Diagnostic, opts PrettyOpts) error {
	var sb strings.Builder
	if loc := locationPrefix(d.Location, opts); loc != "" {
		sb.WriteString(p.loc.Sprint(loc))
		sb.WriteString(": ")
	}
	sb.WriteString(p.severity(d.Severity).Sprint(d.Severity.String()))
	sb.WriteString(": ")
	if d.Plugin != "" {
		fmt.Fprintf(&sb, "[plugin %s] ", d.Plugin)
	}
	sb.WriteString(d.Message)
	sb.WriteByte('\n')
	writeSnippet(&sb, p, d.Location)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			sb.WriteString("  ")
			if loc := locationPrefix(n.Location, opts); loc != "" {
				sb.WriteString(p.loc.Sprint(loc))
				sb.WriteString(": ")
			}
			sb.WriteString(p.note.Sprint("NOTE"))
			sb.WriteString(": ")
			sb.WriteString(n.Msg)
			sb.WriteByte('\n')
			writeSnippet(&sb, p, n.Location)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func locationPrefix(loc *diag.Location, opts PrettyOpts) string {
	if loc.IsZero() {
		return ""
	}
	path := formatPath(loc.File, opts.PathMode, opts.BaseDir)
	if loc.Line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, loc.Line, loc.Column)
}

// writeSnippet prints the offending line and a caret run under it.
// Column is a byte offset into LineText; the caret is placed by display width.
func writeSnippet(sb *strings.Builder, p palette, loc *diag.Location) {
	if loc.IsZero() || loc.LineText == "" {
		return
	}
	line := strings.ReplaceAll(loc.LineText, "\t", " ")
	col := min(int(loc.Column), len(line))
	end := min(col+max(int(loc.Length), 1), len(line))

	pad := runewidth.StringWidth(line[:col])
	width := max(runewidth.StringWidth(line[col:end]), 1)

	sb.WriteString("    ")
	sb.WriteString(line)
	sb.WriteByte('\n')
	sb.WriteString("    ")
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(p.caret.Sprint("^" + strings.Repeat("~", width-1)))
	sb.WriteByte('\n')
}

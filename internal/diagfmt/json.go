package diagfmt

import (
	"encoding/json"
	"io"

	"nextrun/internal/diag"
)

// LocationJSON is a source position in JSON output.
type LocationJSON struct {
	File     string `json:"file"`
	Line     uint32 `json:"line,omitempty"`
	Column   uint32 `json:"column,omitempty"`
	Length   uint32 `json:"length,omitempty"`
	LineText string `json:"line_text,omitempty"`
}

type NoteJSON struct {
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Message  string        `json:"message"`
	Plugin   string        `json:"plugin,omitempty"`
	Location *LocationJSON `json:"location,omitempty"`
	Notes    []NoteJSON    `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(loc *diag.Location, opts JSONOpts) *LocationJSON {
	if loc.IsZero() {
		return nil
	}
	return &LocationJSON{
		File:     formatPath(loc.File, opts.PathMode, opts.BaseDir),
		Line:     loc.Line,
		Column:   loc.Column,
		Length:   loc.Length,
		LineText: loc.LineText,
	}
}

// BuildDiagnosticsOutput converts diagnostics to their JSON shape. Count is
// the total before truncation to opts.Max.
func BuildDiagnosticsOutput(diagnostics []diag.Diagnostic, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(diagnostics)),
		Count:       len(diagnostics),
	}
	for i, d := range diagnostics {
		if opts.Max > 0 && i >= opts.Max {
			break
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Message:  d.Message,
			Plugin:   d.Plugin,
			Location: makeLocation(d.Location, opts),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Location, opts)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, diagnostics []diag.Diagnostic, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(diagnostics, opts))
}

package diag

import "fmt"

// Location points at a position inside a source file.
type Location struct {
	File     string
	Line     uint32
	Column   uint32
	Length   uint32
	LineText string
}

// IsZero reports whether the location carries no position.
func (l *Location) IsZero() bool {
	return l == nil || l.File == ""
}

func (l *Location) String() string {
	if l.IsZero() {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

type Note struct {
	Location *Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Message  string
	Location *Location
	Notes    []Note
	Plugin   string
}

func (d Diagnostic) Error() string {
	if loc := d.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s", loc, d.Message)
	}
	return d.Message
}

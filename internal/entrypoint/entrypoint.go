// Package entrypoint derives the bundler entrypoint for a script file.
package entrypoint

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"nextrun/internal/runerr"
)

// Extensions stripped from the relative path when naming the entrypoint.
var Extensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

// Spec names one compilation entrypoint.
type Spec struct {
	// Name is the slash-separated path relative to the root, without its
	// source extension, e.g. "scripts/migrate", in Unicode NFC. Outputs are
	// named after it.
	Name string
	// ModulePath is the import specifier handed to the bundler. It is
	// "./" + Name spelled as on disk, so it differs from Name only for
	// decomposed file names.
	ModulePath string
	// InputPath is ModulePath with the source extension kept. The bundler
	// is handed this form so sibling files such as a.js and a.ts cannot be
	// confused through extension resolution.
	InputPath string
	// SourcePath is the absolute path of the script.
	SourcePath string
}

// Resolve maps file (relative to the working directory, or absolute) to an
// entrypoint under root. Files outside root are rejected.
func Resolve(root, file string) (Spec, error) {
	if strings.TrimSpace(file) == "" {
		return Spec{}, &runerr.ConfigurationError{Op: "resolve entrypoint", Err: errors.New("no file given")}
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return Spec{}, &runerr.ConfigurationError{Op: "resolve entrypoint", Path: file, Err: err}
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return Spec{}, &runerr.ConfigurationError{Op: "resolve entrypoint", Path: abs, Err: err}
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Spec{}, runerr.Configf("resolve entrypoint", abs, "file is not inside the project root %s", root)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Spec{}, &runerr.ConfigurationError{Op: "no such file:", Path: abs}
	case err != nil:
		return Spec{}, &runerr.ConfigurationError{Op: "stat entrypoint", Path: abs, Err: err}
	case info.IsDir():
		return Spec{}, runerr.Configf("resolve entrypoint", abs, "is a directory")
	}

	slashed := filepath.ToSlash(rel)
	name := StripExtension(slashed)
	return Spec{
		Name:       norm.NFC.String(name),
		ModulePath: "./" + name,
		InputPath:  "./" + slashed,
		SourcePath: abs,
	}, nil
}

// StripExtension removes one known source extension from p.
func StripExtension(p string) string {
	ext := path.Ext(p)
	for _, known := range Extensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

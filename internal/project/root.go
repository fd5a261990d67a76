// Package project locates the project root and its conventional directories.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nextrun/internal/runerr"
)

// ResolveDir returns the absolute project root for dir, which defaults to
// the current directory. A missing root is a ConfigurationError.
func ResolveDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &runerr.ConfigurationError{Op: "resolve project root", Path: dir, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &runerr.ConfigurationError{Op: "no such directory exists as the project root:", Path: abs}
		}
		return "", &runerr.ConfigurationError{Op: "stat project root", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &runerr.ConfigurationError{Op: "project root is not a directory:", Path: abs}
	}
	return abs, nil
}

// Dirs are the optional source directories conventionally found under a
// project root. Empty fields mean the directory does not exist.
type Dirs struct {
	Pages string
	Views string
}

// FindPagesDir looks for `pages` and, when views are enabled, `views`,
// first at the root and then under `src/`.
func FindPagesDir(root string, viewsEnabled bool) (Dirs, error) {
	var dirs Dirs
	pages, err := firstDir(root, "pages")
	if err != nil {
		return dirs, err
	}
	dirs.Pages = pages
	if viewsEnabled {
		views, err := firstDir(root, "views")
		if err != nil {
			return dirs, err
		}
		dirs.Views = views
	}
	return dirs, nil
}

func firstDir(root, name string) (string, error) {
	for _, candidate := range []string{
		filepath.Join(root, name),
		filepath.Join(root, "src", name),
	} {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return candidate, nil
			}
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", nil
}

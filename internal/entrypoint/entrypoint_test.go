package entrypoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nextrun/internal/runerr"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("console.log(1)\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	cases := []struct {
		file       string
		name       string
		modulePath string
	}{
		{"scripts/a.js", "scripts/a", "./scripts/a"},
		{"seed.ts", "seed", "./seed"},
		{"tools/db/migrate.mts", "tools/db/migrate", "./tools/db/migrate"},
		{"lib/jobs.worker.tsx", "lib/jobs.worker", "./lib/jobs.worker"},
		{"bin/run", "bin/run", "./bin/run"},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			abs := filepath.Join(root, filepath.FromSlash(tc.file))
			touch(t, abs)
			spec, err := Resolve(root, abs)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.file, err)
			}
			if spec.Name != tc.name {
				t.Fatalf("Resolve(%q).Name = %q, want %q", tc.file, spec.Name, tc.name)
			}
			if spec.ModulePath != tc.modulePath {
				t.Fatalf("Resolve(%q).ModulePath = %q, want %q", tc.file, spec.ModulePath, tc.modulePath)
			}
			if spec.SourcePath != abs {
				t.Fatalf("Resolve(%q).SourcePath = %q, want %q", tc.file, spec.SourcePath, abs)
			}
		})
	}
}

func TestResolveRoundTrip(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.js", "x/y/z.ts", "deep/er/file.cjs"} {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		touch(t, abs)
		spec, err := Resolve(root, abs)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", rel, err)
		}
		if back := filepath.Join(root, filepath.FromSlash(spec.InputPath)); back != abs {
			t.Fatalf("join(root, %q) = %q, want %q", spec.InputPath, back, abs)
		}
		if want := spec.InputPath[:len(spec.InputPath)-len(filepath.Ext(abs))]; spec.ModulePath != want {
			t.Fatalf("ModulePath = %q, want %q", spec.ModulePath, want)
		}
	}
}

func TestResolveRejects(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "other.js")
	touch(t, outside)
	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := map[string]string{
		"empty":     "",
		"root":      root,
		"outside":   outside,
		"missing":   filepath.Join(root, "missing.js"),
		"directory": filepath.Join(root, "dir"),
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(root, file)
			var cfgErr *runerr.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Resolve(%q) error = %v, want ConfigurationError", file, err)
			}
		})
	}
}

func TestStripExtension(t *testing.T) {
	cases := map[string]string{
		"a.js":       "a",
		"a.JS":       "a",
		"a.test.ts":  "a.test",
		"a.json":     "a.json",
		"dir.v2/run": "dir.v2/run",
	}
	for in, want := range cases {
		if got := StripExtension(in); got != want {
			t.Fatalf("StripExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveNormalizesName(t *testing.T) {
	root := t.TempDir()
	decomposed := "cafe\u0301.js"
	abs := filepath.Join(root, decomposed)
	touch(t, abs)
	spec, err := Resolve(root, abs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Name != "caf\u00e9" {
		t.Fatalf("Name = %q, want NFC %q", spec.Name, "caf\u00e9")
	}
	if spec.ModulePath != "./cafe\u0301" {
		t.Fatalf("ModulePath = %q, want the on-disk spelling", spec.ModulePath)
	}
}

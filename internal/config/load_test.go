package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nextrun/internal/runerr"
)

func writeConfig(t *testing.T, dir, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", FileName, err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Loader{}.Load(context.Background(), PhaseProductionBuild, dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Phase = PhaseProductionBuild
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
distDir = "build"
pageExtensions = ["ts", "js"]

[env]
API_URL = "http://localhost"

[[rewrites]]
source = "lodash"
destination = "lodash-es"

[experimental]
viewsDir = true

[compiler]
target = "es2022"
external = ["pg-native"]

[run]
runtime = "node"
runtimeArgs = ["--enable-source-maps"]
`)
	on := true
	cfg, err := Loader{}.Load(context.Background(), PhaseProductionBuild, dir, &Overrides{Runtime: "bun", Sourcemap: &on})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DistDir != "build" {
		t.Fatalf("DistDir = %q, want build", cfg.DistDir)
	}
	if cfg.Run.Runtime != "bun" {
		t.Fatalf("Run.Runtime = %q, want override bun", cfg.Run.Runtime)
	}
	if !cfg.Compiler.Sourcemap {
		t.Fatalf("Compiler.Sourcemap = false, want override true")
	}
	if !cfg.Experimental.ViewsDir {
		t.Fatalf("Experimental.ViewsDir = false, want true")
	}
	wantRewrites := []Rewrite{{Source: "lodash", Destination: "lodash-es"}}
	if diff := cmp.Diff(wantRewrites, cfg.Rewrites); diff != "" {
		t.Fatalf("rewrites mismatch (-want +got):\n%s", diff)
	}
	if cfg.Path != filepath.Join(dir, FileName) {
		t.Fatalf("Path = %q", cfg.Path)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"absolute distDir", `distDir = "/tmp/out"`, "must be relative"},
		{"escaping distDir", `distDir = "../out"`, "inside the project root"},
		{"dotted extension", `pageExtensions = [".ts"]`, "bare extension"},
		{"bad target", "[compiler]\ntarget = \"es3\"", "compiler.target"},
		{"bad env key", "[env]\n\"1X\" = \"v\"", "not a valid identifier"},
		{"half rewrite", "[[rewrites]]\nsource = \"a\"", "rewrites[0]"},
		{"path rewrite", "[[rewrites]]\nsource = \"./a\"\ndestination = \"b\"", "must be a package name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tc.data)
			_, err := Loader{}.Load(context.Background(), PhaseProductionBuild, dir, nil)
			var cfgErr *runerr.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load error = %v, want ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "distDir = ")
	_, err := Loader{}.Load(context.Background(), PhaseProductionBuild, dir, nil)
	var cfgErr *runerr.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Op != "parse" {
		t.Fatalf("Load error = %v, want parse ConfigurationError", err)
	}
}

func TestLoadUnknownPhase(t *testing.T) {
	_, err := Loader{}.Load(context.Background(), Phase("phase-nope"), t.TempDir(), nil)
	if err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}

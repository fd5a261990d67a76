package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nextrun/internal/buildconfig"
	"nextrun/internal/config"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func synthesize(t *testing.T, root string, entries map[string][]string) *buildconfig.Configuration {
	t.Helper()
	cfg := config.Default()
	cfg.Env = map[string]string{"GREETING": "hi"}
	bc, err := buildconfig.Synthesize(context.Background(), buildconfig.Options{
		RootDir:     root,
		BuildID:     "test-build",
		Config:      &cfg,
		Entrypoints: entries,
		Target:      buildconfig.CompilerServer,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	return bc
}

func TestEsbuildBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scripts", "util.ts"), "export const twice = (n: number): number => n * 2;\n")
	writeFile(t, filepath.Join(root, "scripts", "a.ts"), `import { twice } from "./util";
console.log(process.env.GREETING, process.env.__NEXT_BUILD_ID, twice(21));
`)

	cfg := synthesize(t, root, map[string][]string{"scripts/a": {"./scripts/a"}})
	stats, err := Esbuild{}.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.HasErrors() {
		t.Fatalf("Build errors: %v", stats.Errors)
	}

	out := filepath.Join(root, ".next", "server", "scripts", "a.js")
	asset, ok := stats.Assets[out]
	if !ok {
		t.Fatalf("Assets missing %s: %v", out, stats.Assets)
	}
	if asset.Bytes == 0 {
		t.Fatalf("asset %s has zero bytes", out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{`"hi"`, `"test-build"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("output missing %s:\n%s", want, data)
		}
	}
}

func TestEsbuildReportsCompilationErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.ts"), "const x = ;\n")

	cfg := synthesize(t, root, map[string][]string{"broken": {"./broken"}})
	stats, err := Esbuild{}.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build returned engine error %v, want compilation errors in stats", err)
	}
	if !stats.HasErrors() {
		t.Fatalf("Build reported no errors for a syntax error")
	}
	loc := stats.Errors[0].Location
	if loc == nil || loc.Line != 1 || !strings.HasSuffix(loc.File, "broken.ts") {
		t.Fatalf("error location = %+v, want broken.ts line 1", loc)
	}
	if _, err := os.Stat(filepath.Join(root, ".next", "server", "broken.js")); err == nil {
		t.Fatalf("output written despite compilation errors")
	}
}

func TestEsbuildMultiModuleEntrypointIsFatal(t *testing.T) {
	root := t.TempDir()
	cfg := synthesize(t, root, map[string][]string{"both": {"./a", "./b"}})
	_, err := Esbuild{}.Build(context.Background(), cfg)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Build error = %v, want FatalError", err)
	}
}

func TestEsbuildCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "console.log(1)\n")
	cfg := synthesize(t, root, map[string][]string{"a": {"./a"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := Esbuild{}.Build(ctx, cfg)
	// The build may finish before the cancellation is observed.
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Build error = %v, want nil or context.Canceled", err)
	}
	if err == nil && stats == nil {
		t.Fatalf("Build returned nil stats and nil error")
	}
}

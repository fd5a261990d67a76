package buildconfig

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nextrun/internal/config"
	"nextrun/internal/trace"
)

func testOptions(root string) Options {
	cfg := config.Default()
	cfg.Env = map[string]string{"API_URL": `http://x/"q"`}
	cfg.Rewrites = []config.Rewrite{{Source: "lodash", Destination: "lodash-es"}}
	cfg.Compiler.External = []string{"pg-native"}
	return Options{
		RootDir:     root,
		BuildID:     "build-1",
		Config:      &cfg,
		PagesDir:    filepath.Join(root, "src", "pages"),
		Entrypoints: map[string][]string{"scripts/a": {"./scripts/a"}},
		Target:      CompilerServer,
	}
}

func TestSynthesize(t *testing.T) {
	root := t.TempDir()
	got, err := Synthesize(context.Background(), testOptions(root))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if want := filepath.Join(root, ".next", "server"); got.OutputDir != want {
		t.Fatalf("OutputDir = %q, want %q", got.OutputDir, want)
	}
	wantDefine := map[string]string{
		"process.env.API_URL": `"http://x/\"q\""`,
		BuildIDDefine:         `"build-1"`,
	}
	if diff := cmp.Diff(wantDefine, got.Define); diff != "" {
		t.Fatalf("Define mismatch (-want +got):\n%s", diff)
	}
	wantAlias := map[string]string{
		"lodash":     "lodash-es",
		AliasRootDir: ".",
		AliasPages:   "./src/pages",
	}
	if diff := cmp.Diff(wantAlias, got.Alias); diff != "" {
		t.Fatalf("Alias mismatch (-want +got):\n%s", diff)
	}
	wantExt := []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".cjs", ".mts", ".cts", ".json"}
	if diff := cmp.Diff(wantExt, got.ResolveExtensions); diff != "" {
		t.Fatalf("ResolveExtensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"scripts/a"}, got.EntrypointNames()); diff != "" {
		t.Fatalf("EntrypointNames mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveExtensionsKeepScriptExtensions(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Config.PageExtensions = []string{"tsx"}
	got, err := Synthesize(context.Background(), opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	wantExt := []string{".tsx", ".js", ".jsx", ".ts", ".mjs", ".cjs", ".mts", ".cts", ".json"}
	if diff := cmp.Diff(wantExt, got.ResolveExtensions); diff != "" {
		t.Fatalf("ResolveExtensions mismatch (-want +got):\n%s", diff)
	}
}

func TestServerOutputDir(t *testing.T) {
	root := t.TempDir()
	if got, want := ServerOutputDir(root, "build/out"), filepath.Join(root, "build", "out", "server"); got != want {
		t.Fatalf("ServerOutputDir = %q, want %q", got, want)
	}
}

func TestSynthesizeRejects(t *testing.T) {
	root := t.TempDir()
	cases := map[string]func(*Options){
		"client target":  func(o *Options) { o.Target = CompilerType("client") },
		"no entrypoints": func(o *Options) { o.Entrypoints = nil },
		"empty modules":  func(o *Options) { o.Entrypoints = map[string][]string{"a": nil} },
		"nil config":     func(o *Options) { o.Config = nil },
		"relative root":  func(o *Options) { o.RootDir = "rel" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions(root)
			mutate(&opts)
			if _, err := Synthesize(context.Background(), opts); err == nil {
				t.Fatalf("Synthesize succeeded, want error")
			}
		})
	}
}

func TestSynthesizeSpanClosedOnError(t *testing.T) {
	tree := trace.NewTreeTracer(trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), tree)
	opts := testOptions(t.TempDir())
	opts.Entrypoints = nil
	if _, err := Synthesize(ctx, opts); err == nil {
		t.Fatalf("Synthesize succeeded, want error")
	}
	rec, ok := tree.Find("generate-build-config")
	if !ok || !rec.Closed() {
		t.Fatalf("generate-build-config span = %+v, found=%v; want closed", rec, ok)
	}
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nextrun/internal/artifact"
	"nextrun/internal/buildconfig"
	"nextrun/internal/bundler"
	"nextrun/internal/compiler"
	"nextrun/internal/config"
	"nextrun/internal/diag"
	"nextrun/internal/runerr"
	"nextrun/internal/testkit"
	"nextrun/internal/trace"
)

type fakeCompiler struct {
	result *compiler.Result
	err    error
	got    *buildconfig.Configuration
}

func (f *fakeCompiler) Compile(ctx context.Context, cfg *buildconfig.Configuration) (*compiler.Result, error) {
	f.got = cfg
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	out := filepath.Join(cfg.OutputDir, filepath.FromSlash(cfg.EntrypointNames()[0])+".js")
	return &compiler.Result{
		OutputDir: cfg.OutputDir,
		Assets:    map[string]bundler.Asset{out: {Path: out, Bytes: 10}},
	}, nil
}

type fakeLoader struct {
	calls []string
	args  [][]string
	err   error
}

func (f *fakeLoader) Load(_ context.Context, path string, args []string) error {
	f.calls = append(f.calls, path)
	f.args = append(f.args, args)
	return f.err
}

type recordingSink struct {
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.events = append(s.events, evt)
}

func newProject(t *testing.T) (root, file string) {
	t.Helper()
	root = t.TempDir()
	file = filepath.Join(root, "scripts", "a.js")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(file, []byte("console.log(1)\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return root, file
}

func newRunner(comp *fakeCompiler, loader *fakeLoader) *Runner {
	return &Runner{
		Compiler:  comp,
		LoaderFor: func(*config.Config) artifact.Loader { return loader },
		BuildID:   func() string { return "fixed-id" },
	}
}

func tracedContext() (context.Context, *trace.TreeTracer) {
	tree := trace.NewTreeTracer(trace.LevelDebug)
	return trace.WithTracer(context.Background(), tree), tree
}

func TestRunLoadsArtifactOnce(t *testing.T) {
	root, file := newProject(t)
	comp := &fakeCompiler{}
	loader := &fakeLoader{}
	sink := &recordingSink{}
	ctx, tree := tracedContext()

	res, err := newRunner(comp, loader).Run(ctx, &Request{
		ProjectDir: root,
		File:       file,
		Args:       []string{"--dry-run"},
		Progress:   sink,
		Version:    "1.2.3",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantPath := filepath.Join(root, ".next", "server", "scripts", "a.js")
	if diff := cmp.Diff([]string{wantPath}, loader.calls); diff != "" {
		t.Fatalf("loader calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"--dry-run"}}, loader.args); diff != "" {
		t.Fatalf("loader args mismatch (-want +got):\n%s", diff)
	}
	if res.ArtifactPath != wantPath {
		t.Fatalf("ArtifactPath = %q, want %q", res.ArtifactPath, wantPath)
	}
	if res.Entrypoint.ModulePath != "./scripts/a" {
		t.Fatalf("ModulePath = %q, want ./scripts/a", res.Entrypoint.ModulePath)
	}
	if diff := cmp.Diff(map[string][]string{"scripts/a": {"./scripts/a.js"}}, comp.got.Entrypoints); diff != "" {
		t.Fatalf("entrypoints mismatch (-want +got):\n%s", diff)
	}
	if got := comp.got.Define[buildconfig.BuildIDDefine]; got != `"fixed-id"` {
		t.Fatalf("build ID define = %q", got)
	}

	if err := testkit.CheckSpanInvariants(tree); err != nil {
		t.Fatalf("span tree: %v", err)
	}
	rootSpan, ok := tree.Find("next-run")
	if !ok || rootSpan.Extra["version"] != "1.2.3" {
		t.Fatalf("next-run span = %+v, want version attribute", rootSpan)
	}
	for _, name := range []string{"load-next-config", "generate-build-config", "run-script"} {
		rec, ok := tree.Find(name)
		if !ok {
			t.Fatalf("span %q not recorded", name)
		}
		if rec.ParentID != rootSpan.ID {
			t.Fatalf("span %q parent = %d, want root %d", name, rec.ParentID, rootSpan.ID)
		}
	}

	last := sink.events[len(sink.events)-1]
	if last.Stage != StageRun || last.Status != StatusDone {
		t.Fatalf("last event = %+v, want run done", last)
	}
	for _, s := range Stages {
		if !res.Timings.Has(s) {
			t.Fatalf("timings missing stage %s", s)
		}
	}
}

func TestRunDiagnosticsSkipLoad(t *testing.T) {
	root, file := newProject(t)
	diagnostics := []diag.Diagnostic{{Severity: diag.SevError, Message: "Could not resolve \"missing\""}}
	comp := &fakeCompiler{result: &compiler.Result{Diagnostics: diagnostics}}
	loader := &fakeLoader{}
	ctx, tree := tracedContext()

	res, err := newRunner(comp, loader).Run(ctx, &Request{ProjectDir: root, File: file})
	var diagErr *runerr.DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("Run error = %v, want DiagnosticsError", err)
	}
	if diff := cmp.Diff(diagnostics, diagErr.Diagnostics); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if len(loader.calls) != 0 {
		t.Fatalf("loader called %d times after failed compilation", len(loader.calls))
	}
	if res.Compilation == nil {
		t.Fatalf("Result.Compilation = nil, want the failed compilation")
	}
	if err := testkit.CheckSpanInvariants(tree); err != nil {
		t.Fatalf("span tree: %v", err)
	}
}

func TestRunCompilerErrorIdentity(t *testing.T) {
	root, file := newProject(t)
	fatal := &bundler.FatalError{Messages: []bundler.Message{{Text: "service crashed"}}}
	loader := &fakeLoader{}
	ctx, tree := tracedContext()

	_, err := newRunner(&fakeCompiler{err: fatal}, loader).Run(ctx, &Request{ProjectDir: root, File: file})
	if err != fatal {
		t.Fatalf("Run error = %v, want the compiler's error value", err)
	}
	if len(loader.calls) != 0 {
		t.Fatalf("loader called after compiler failure")
	}
	if tree.Open() != 0 {
		t.Fatalf("open spans = %d, want 0", tree.Open())
	}
}

func TestRunMissingProjectDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	ctx, tree := tracedContext()
	_, err := newRunner(&fakeCompiler{}, &fakeLoader{}).Run(ctx, &Request{ProjectDir: missing, File: "a.js"})
	var cfgErr *runerr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run error = %v, want ConfigurationError", err)
	}
	if len(tree.Spans()) != 0 {
		t.Fatalf("spans recorded before the project root was resolved: %+v", tree.Spans())
	}
}

func TestRunConfigErrorClosesSpans(t *testing.T) {
	root, file := newProject(t)
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(`distDir = "/abs"`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	comp := &fakeCompiler{}
	ctx, tree := tracedContext()
	_, err := newRunner(comp, &fakeLoader{}).Run(ctx, &Request{ProjectDir: root, File: file})
	var cfgErr *runerr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run error = %v, want ConfigurationError", err)
	}
	if comp.got != nil {
		t.Fatalf("compiler ran after a config error")
	}
	rec, ok := tree.Find("load-next-config")
	if !ok || rec.Closes != 1 {
		t.Fatalf("load-next-config span = %+v, want closed once", rec)
	}
	if tree.Open() != 0 {
		t.Fatalf("open spans = %d, want 0", tree.Open())
	}
}

func TestRunRuntimeFailure(t *testing.T) {
	root, file := newProject(t)
	loader := &fakeLoader{err: &runerr.RuntimeExecutionError{Path: "a.js", ExitCode: 4}}
	_, err := newRunner(&fakeCompiler{}, loader).Run(context.Background(), &Request{ProjectDir: root, File: file})
	if code := runerr.ExitCode(err); code != 4 {
		t.Fatalf("ExitCode(%v) = %d, want 4", err, code)
	}
	if len(loader.calls) != 1 {
		t.Fatalf("loader called %d times, want 1", len(loader.calls))
	}
}

func TestRunOnCompiledSeesWarningsBeforeLoad(t *testing.T) {
	root, file := newProject(t)
	loader := &fakeLoader{}
	var seenBeforeLoad bool
	_, err := newRunner(&fakeCompiler{}, loader).Run(context.Background(), &Request{
		ProjectDir: root,
		File:       file,
		OnCompiled: func(*compiler.Result) { seenBeforeLoad = len(loader.calls) == 0 },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !seenBeforeLoad {
		t.Fatalf("OnCompiled was not called before the artifact was loaded")
	}
}

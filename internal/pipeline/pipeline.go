// Package pipeline sequences one compile-and-run cycle: resolve the project
// root, load its config, compile the entrypoint for the server target, and
// execute the compiled artifact.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nextrun/internal/artifact"
	"nextrun/internal/buildconfig"
	"nextrun/internal/bundler"
	"nextrun/internal/compiler"
	"nextrun/internal/config"
	"nextrun/internal/ctxlog"
	"nextrun/internal/entrypoint"
	"nextrun/internal/project"
	"nextrun/internal/runerr"
	"nextrun/internal/trace"
)

// ConfigLoader loads the project config for a phase.
type ConfigLoader interface {
	Load(ctx context.Context, phase config.Phase, dir string, overrides *config.Overrides) (*config.Config, error)
}

// Synthesizer derives a bundler configuration.
type Synthesizer interface {
	Synthesize(ctx context.Context, opts buildconfig.Options) (*buildconfig.Configuration, error)
}

// SynthesizeFunc adapts a function to Synthesizer.
type SynthesizeFunc func(ctx context.Context, opts buildconfig.Options) (*buildconfig.Configuration, error)

func (f SynthesizeFunc) Synthesize(ctx context.Context, opts buildconfig.Options) (*buildconfig.Configuration, error) {
	return f(ctx, opts)
}

// Compiler runs one compilation.
type Compiler interface {
	Compile(ctx context.Context, cfg *buildconfig.Configuration) (*compiler.Result, error)
}

// Runner holds the collaborators of a run. Zero fields use the production
// implementations.
type Runner struct {
	Config   ConfigLoader
	Synth    Synthesizer
	Compiler Compiler
	// LoaderFor builds the artifact loader once the config is known.
	LoaderFor func(cfg *config.Config) artifact.Loader
	BuildID   func() string
}

// Request describes one run.
type Request struct {
	// ProjectDir defaults to the working directory.
	ProjectDir string
	// File is the script, relative to the working directory or absolute.
	File      string
	Args      []string
	Overrides *config.Overrides
	Progress  ProgressSink
	Version   string
	// OnCompiled, when set, observes every finished compilation before its
	// errors are checked and before anything is executed.
	OnCompiled func(*compiler.Result)
}

// Result reports what a run did. Fields are filled as far as the run got.
type Result struct {
	ProjectDir   string
	Config       *config.Config
	Entrypoint   entrypoint.Spec
	Build        *buildconfig.Configuration
	Compilation  *compiler.Result
	ArtifactPath string
	Timings      Timings
}

// New returns a Runner wired to the production implementations.
func New() *Runner {
	r := &Runner{}
	r.defaults()
	return r
}

func (r *Runner) defaults() {
	if r.Config == nil {
		r.Config = config.Loader{}
	}
	if r.Synth == nil {
		r.Synth = SynthesizeFunc(buildconfig.Synthesize)
	}
	if r.Compiler == nil {
		r.Compiler = compiler.Driver{Engine: bundler.Esbuild{}}
	}
	if r.LoaderFor == nil {
		r.LoaderFor = func(cfg *config.Config) artifact.Loader {
			return &artifact.ProcessLoader{Runtime: cfg.Run.Runtime, RuntimeArgs: cfg.Run.RuntimeArgs}
		}
	}
	if r.BuildID == nil {
		r.BuildID = uuid.NewString
	}
}

// Run executes the cycle. The artifact is loaded only when compilation
// produced no errors, and at most once. Errors from the compiler are
// returned unchanged; compilation errors are a *runerr.DiagnosticsError.
func (r *Runner) Run(ctx context.Context, req *Request) (Result, error) {
	var res Result
	if req == nil {
		return res, errors.New("pipeline: nil request")
	}
	r.defaults()

	stage := stageReporter{sink: req.Progress, file: req.File, timings: &res.Timings}
	for _, s := range Stages {
		stage.emit(s, StatusQueued, nil)
	}

	stage.start(StageConfig)
	dir, err := project.ResolveDir(req.ProjectDir)
	if err != nil {
		stage.fail(err)
		return res, err
	}
	res.ProjectDir = dir

	extra := map[string]string{"version": req.Version}
	_, err = trace.DoWithExtra(ctx, trace.ScopeDriver, "next-run", extra, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.run(ctx, req, &res, &stage)
	})
	return res, err
}

func (r *Runner) run(ctx context.Context, req *Request, res *Result, stage *stageReporter) error {
	log := ctxlog.FromContext(ctx)

	cfg, err := trace.Do(ctx, trace.ScopePass, "load-next-config", func(ctx context.Context) (*config.Config, error) {
		return r.Config.Load(ctx, config.PhaseProductionBuild, res.ProjectDir, req.Overrides)
	})
	if err != nil {
		stage.fail(err)
		return err
	}
	res.Config = cfg

	entry, err := entrypoint.Resolve(res.ProjectDir, req.File)
	if err != nil {
		stage.fail(err)
		return err
	}
	res.Entrypoint = entry

	dirs, err := project.FindPagesDir(res.ProjectDir, cfg.Experimental.ViewsDir)
	if err != nil {
		err = &runerr.ConfigurationError{Op: "find pages dir", Path: res.ProjectDir, Err: err}
		stage.fail(err)
		return err
	}
	stage.done()

	stage.start(StageCompile)
	buildID := r.BuildID()
	build, err := r.Synth.Synthesize(ctx, buildconfig.Options{
		RootDir:     res.ProjectDir,
		BuildID:     buildID,
		Config:      cfg,
		PagesDir:    dirs.Pages,
		ViewsDir:    dirs.Views,
		Entrypoints: map[string][]string{entry.Name: {entry.InputPath}},
		Target:      buildconfig.CompilerServer,
	})
	if err != nil {
		stage.fail(err)
		return err
	}
	res.Build = build
	log.Debug("build configuration ready", "entrypoint", entry.Name, "buildID", buildID, "outdir", build.OutputDir)

	compiled, err := r.Compiler.Compile(ctx, build)
	if err != nil {
		stage.fail(err)
		return err
	}
	res.Compilation = compiled
	if req.OnCompiled != nil {
		req.OnCompiled(compiled)
	}
	if compiled.Failed() {
		err := &runerr.DiagnosticsError{Diagnostics: compiled.Diagnostics}
		stage.fail(err)
		return err
	}

	path, err := artifact.Resolve(compiled, entry)
	if err != nil {
		stage.fail(err)
		return err
	}
	res.ArtifactPath = path
	stage.done()

	stage.start(StageRun)
	loader := r.LoaderFor(cfg)
	err = trace.Run(ctx, trace.ScopePass, "run-script", func(ctx context.Context) error {
		return loader.Load(ctx, path, req.Args)
	})
	if err != nil {
		stage.fail(err)
		return err
	}
	stage.done()
	return nil
}

// stageReporter emits progress events and records stage timings.
type stageReporter struct {
	sink    ProgressSink
	file    string
	timings *Timings
	current Stage
	started time.Time
}

func (s *stageReporter) emit(stage Stage, status Status, err error) {
	if s.sink == nil {
		return
	}
	var elapsed time.Duration
	if status == StatusDone || status == StatusError {
		elapsed = s.timings.Duration(stage)
	}
	s.sink.OnEvent(Event{File: s.file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func (s *stageReporter) start(stage Stage) {
	s.current = stage
	s.started = time.Now()
	s.emit(stage, StatusWorking, nil)
}

func (s *stageReporter) done() {
	s.timings.Set(s.current, time.Since(s.started))
	s.emit(s.current, StatusDone, nil)
}

func (s *stageReporter) fail(err error) {
	s.timings.Set(s.current, time.Since(s.started))
	s.emit(s.current, StatusError, err)
}

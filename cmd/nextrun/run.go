package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nextrun/internal/artifact"
	"nextrun/internal/compiler"
	"nextrun/internal/config"
	"nextrun/internal/diag"
	"nextrun/internal/diagfmt"
	"nextrun/internal/pipeline"
	"nextrun/internal/runerr"
	"nextrun/internal/version"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <file> [--] [args...]",
		Short: "Compile a script with the project's server build and execute it",
		Long: `Compile <file> as a single server entrypoint using the project's build
configuration and execute the compiled output. Arguments after the file are
passed to the script.

When the script exits with a non-zero status, nextrun exits with that same
status. Every other failure exits with status 1.`,
		Example: `  nextrun run scripts/seed.ts
  nextrun run --dir ./app scripts/migrate.ts -- --dry-run`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &runerr.ArgumentError{Message: "missing script file: nextrun run [flags] <file> [--] [args...]"}
			}
			return nil
		},
		RunE: runScript,
	}
	// Everything after the file belongs to the script.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringP("dir", "d", "", "project root (default: current directory)")
	cmd.Flags().String("runtime", "", "runtime used to execute the compiled script (overrides run.runtime)")
	cmd.Flags().String("dist-dir", "", "output directory relative to the project root (overrides distDir)")
	cmd.Flags().Bool("sourcemap", false, "emit inline source maps (overrides compiler.sourcemap)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().String("diagnostics-format", "pretty", "diagnostics output format (pretty|json)")
	cmd.Flags().String("path-mode", "auto", "diagnostic path display (auto|absolute|relative|basename)")
	return cmd
}

type runOptions struct {
	dir               string
	overrides         config.Overrides
	ui                uiMode
	diagnosticsFormat string
	pathMode          diagfmt.PathMode
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	var opts runOptions
	flags := cmd.Flags()
	var err error

	if opts.dir, err = flags.GetString("dir"); err != nil {
		return opts, fmt.Errorf("failed to get dir flag: %w", err)
	}
	if opts.overrides.Runtime, err = flags.GetString("runtime"); err != nil {
		return opts, fmt.Errorf("failed to get runtime flag: %w", err)
	}
	if opts.overrides.DistDir, err = flags.GetString("dist-dir"); err != nil {
		return opts, fmt.Errorf("failed to get dist-dir flag: %w", err)
	}
	if flags.Changed("sourcemap") {
		sourcemap, err := flags.GetBool("sourcemap")
		if err != nil {
			return opts, fmt.Errorf("failed to get sourcemap flag: %w", err)
		}
		opts.overrides.Sourcemap = &sourcemap
	}

	uiValue, err := flags.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = readUIMode(uiValue); err != nil {
		return opts, err
	}

	format, err := flags.GetString("diagnostics-format")
	if err != nil {
		return opts, fmt.Errorf("failed to get diagnostics-format flag: %w", err)
	}
	opts.diagnosticsFormat = strings.ToLower(strings.TrimSpace(format))
	if opts.diagnosticsFormat != "pretty" && opts.diagnosticsFormat != "json" {
		return opts, &runerr.ArgumentError{Message: fmt.Sprintf("invalid --diagnostics-format value %q (expected pretty|json)", format)}
	}

	pathMode, err := flags.GetString("path-mode")
	if err != nil {
		return opts, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	mode, ok := diagfmt.ParsePathMode(pathMode)
	if !ok {
		return opts, &runerr.ArgumentError{Message: fmt.Sprintf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", pathMode)}
	}
	opts.pathMode = mode
	return opts, nil
}

// scriptArgs returns the arguments forwarded to the script, dropping the
// "--" separator when one follows the file.
func scriptArgs(args []string) []string {
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}
	return rest
}

func runScript(cmd *cobra.Command, args []string) (err error) {
	global, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cmd, global); err != nil {
		return err
	}
	opts, err := readRunOptions(cmd)
	if err != nil {
		return err
	}
	profiler, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", stopErr)
		}
	}()
	tr, err := setupTracing(cmd, global.timings)
	if err != nil {
		return err
	}
	defer func() { tr.close(err == nil) }()

	stderr := cmd.ErrOrStderr()
	printer := diagnosticsPrinter{global: global, run: opts, stdout: cmd.OutOrStdout(), stderr: stderr}

	// Warnings go to stderr directly, or wait for the progress UI to finish.
	var pending bytes.Buffer
	useTUI := shouldUseTUI(opts.ui, global.quiet)
	warnOut := stderr
	if useTUI {
		warnOut = &pending
	}

	req := &pipeline.Request{
		ProjectDir: opts.dir,
		File:       args[0],
		Args:       scriptArgs(args),
		Overrides:  &opts.overrides,
		Version:    version.Version,
		OnCompiled: func(res *compiler.Result) {
			if !global.quiet && len(res.Warnings) > 0 {
				printer.warnings(warnOut, res.Warnings)
			}
		},
	}

	runner := pipeline.New()
	runner.LoaderFor = func(cfg *config.Config) artifact.Loader {
		return &artifact.ProcessLoader{
			Runtime:     cfg.Run.Runtime,
			RuntimeArgs: cfg.Run.RuntimeArgs,
			Stdin:       cmd.InOrStdin(),
			Stdout:      cmd.OutOrStdout(),
			Stderr:      stderr,
		}
	}
	var res pipeline.Result
	if useTUI {
		res, err = runWithUI(cmd.Context(), runner, req, args[0], cmd.OutOrStdout(), func() {
			_, _ = io.Copy(stderr, &pending)
		})
	} else {
		res, err = runner.Run(cmd.Context(), req)
	}

	var diagErr *runerr.DiagnosticsError
	if errors.As(err, &diagErr) {
		printer.errors(diagErr.Diagnostics, res.ProjectDir)
	}
	if global.timings {
		_ = printStageTimings(stderr, res.Timings)
		if tr.tree != nil {
			_ = tr.tree.Render(stderr)
		}
	}
	return err
}

type diagnosticsPrinter struct {
	global globalOptions
	run    runOptions
	stdout io.Writer
	stderr io.Writer
}

func (p diagnosticsPrinter) errors(diagnostics []diag.Diagnostic, baseDir string) {
	bag := diag.NewBag(len(diagnostics))
	for _, d := range diagnostics {
		bag.Add(d)
	}
	bag.Dedup()
	bag.Sort()

	if p.run.diagnosticsFormat == "json" {
		_ = diagfmt.JSON(p.stdout, bag.Items(), diagfmt.JSONOpts{
			PathMode:     p.run.pathMode,
			BaseDir:      baseDir,
			Max:          p.global.maxDiagnostics,
			IncludeNotes: true,
		})
		return
	}
	_ = diagfmt.Pretty(p.stderr, bag.Items(), diagfmt.PrettyOpts{
		Color:     p.global.color,
		PathMode:  p.run.pathMode,
		BaseDir:   baseDir,
		Max:       p.global.maxDiagnostics,
		ShowNotes: true,
	})
}

func (p diagnosticsPrinter) warnings(w io.Writer, warnings []diag.Diagnostic) {
	_ = diagfmt.Pretty(w, warnings, diagfmt.PrettyOpts{
		Color:     p.global.color,
		PathMode:  p.run.pathMode,
		Max:       p.global.maxDiagnostics,
		ShowNotes: true,
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nextrun/internal/bundler"
	"nextrun/internal/runerr"
	"nextrun/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nextrun",
		Short: "Compile a script for the server target and run it",
		Long: `nextrun compiles a single script inside a project with the project's
server build configuration, then executes the compiled output.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	root.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	root.PersistentFlags().String("log-format", "text", "log format (text|json)")

	root.PersistentFlags().String("trace", "", "write trace events to file (\"-\" for stderr)")
	root.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	root.PersistentFlags().String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	root.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson|chrome|msgpack)")
	root.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer capacity in events")
	root.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")

	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile of nextrun to file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile of nextrun to file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace of nextrun to file")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &runerr.ArgumentError{Message: err.Error()}
	})

	root.AddCommand(newRunCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// execute runs the CLI and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(stderr, err)
	}
	return runerr.ExitCode(err)
}

// reportError prints err for the user. Diagnostics were already printed by
// the run command, and a failing script has already written its own output.
func reportError(w io.Writer, err error) {
	var (
		argErr   *runerr.ArgumentError
		cfgErr   *runerr.ConfigurationError
		diagErr  *runerr.DiagnosticsError
		rtErr    *runerr.RuntimeExecutionError
		fatalErr *bundler.FatalError
	)
	red := color.New(color.FgRed, color.Bold)
	switch {
	case errors.As(err, &diagErr):
		_, _ = red.Fprintln(w, "> Build failed because of compilation errors")
	case errors.As(err, &argErr):
		_, _ = fmt.Fprintf(w, "%s\nRun 'nextrun --help' for usage.\n", argErr.Message)
	case errors.As(err, &cfgErr):
		_, _ = fmt.Fprintf(w, "> %s\n", cfgErr.Error())
	case errors.As(err, &rtErr):
		if rtErr.ExitCode <= 0 {
			_, _ = red.Fprintf(w, "> %s\n", rtErr.Error())
		}
	case errors.As(err, &fatalErr):
		_, _ = red.Fprintf(w, "> %s\n", fatalErr.Error())
	case errors.Is(err, context.Canceled):
		_, _ = fmt.Fprintln(w, "> interrupted")
	default:
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

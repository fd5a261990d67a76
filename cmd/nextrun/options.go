package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nextrun/internal/runerr"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
	logLevel       string
	logFormat      string
}

func readGlobalOptions(cmd *cobra.Command) (globalOptions, error) {
	flags := cmd.Root().PersistentFlags()
	var opts globalOptions

	colorMode, err := flags.GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	if opts.color, err = resolveColor(colorMode); err != nil {
		return opts, err
	}
	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.logLevel, err = flags.GetString("log-level"); err != nil {
		return opts, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if opts.logFormat, err = flags.GetString("log-format"); err != nil {
		return opts, fmt.Errorf("failed to get log-format flag: %w", err)
	}
	if opts.quiet {
		opts.logLevel = "error"
	}

	color.NoColor = !opts.color
	return opts, nil
}

func resolveColor(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return isTerminal(os.Stderr) && os.Getenv("NO_COLOR") == "", nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, &runerr.ArgumentError{Message: fmt.Sprintf("invalid --color value %q (expected auto|on|off)", mode)}
	}
}

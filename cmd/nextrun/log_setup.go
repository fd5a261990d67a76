package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"nextrun/internal/ctxlog"
	"nextrun/internal/runerr"
)

// setupLogging installs a logger on cmd's context and as the slog default.
func setupLogging(cmd *cobra.Command, opts globalOptions) error {
	logger, err := ctxlog.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
	if err != nil {
		return &runerr.ArgumentError{Message: err.Error()}
	}
	slog.SetDefault(logger)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}

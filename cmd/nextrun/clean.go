package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nextrun/internal/buildconfig"
	"nextrun/internal/config"
	"nextrun/internal/project"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove compiled server output",
		Long:  "Remove the <distDir>/server directory that run writes compiled scripts into.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClean,
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	global, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cmd, global); err != nil {
		return err
	}

	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := project.ResolveDir(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Loader{}.Load(cmd.Context(), config.PhaseProductionBuild, root, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	target := buildconfig.ServerOutputDir(root, cfg.DistDir)
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if !global.quiet {
				_, _ = fmt.Fprintln(out, "nothing to clean")
			}
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", target, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove %q: %w", target, err)
	}
	if !global.quiet {
		rel, relErr := filepath.Rel(root, target)
		if relErr != nil {
			rel = target
		}
		_, _ = fmt.Fprintf(out, "removed %s\n", filepath.ToSlash(rel))
	}
	return nil
}

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"nextrun/internal/ctxlog"
	"nextrun/internal/runerr"
)

// Loader reads FileName from a project root.
type Loader struct{}

// Load reads the configuration for phase from dir, applies defaults and
// overrides, and validates the result. A missing file yields the defaults.
// Every failure is a *runerr.ConfigurationError.
func (Loader) Load(ctx context.Context, phase Phase, dir string, overrides *Overrides) (*Config, error) {
	if !phase.Known() {
		return nil, runerr.Configf("load config", dir, "unknown phase %q", phase)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := Default()
	path := filepath.Join(dir, FileName)
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		cfg = Config{}
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, &runerr.ConfigurationError{Op: "parse", Path: path, Err: err}
		}
		for _, key := range meta.Undecoded() {
			ctxlog.FromContext(ctx).Warn("unknown config key", "file", path, "key", key.String())
		}
		cfg.Path = path
	case errors.Is(statErr, os.ErrNotExist):
		ctxlog.FromContext(ctx).Debug("no config file, using defaults", "dir", dir)
	default:
		return nil, &runerr.ConfigurationError{Op: "stat", Path: path, Err: statErr}
	}

	cfg.Phase = phase
	cfg.applyDefaults()
	cfg.applyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		where := cfg.Path
		if where == "" {
			where = dir
		}
		return nil, &runerr.ConfigurationError{Op: "invalid config", Path: where, Err: err}
	}
	return &cfg, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error

	dist := filepath.Clean(filepath.FromSlash(c.DistDir))
	switch {
	case filepath.IsAbs(dist):
		errs = append(errs, fmt.Errorf("distDir %q must be relative to the project root", c.DistDir))
	case dist == "." || dist == ".." || strings.HasPrefix(dist, ".."+string(filepath.Separator)):
		errs = append(errs, fmt.Errorf("distDir %q must name a directory inside the project root", c.DistDir))
	}

	for _, ext := range c.PageExtensions {
		if ext == "" || strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
			errs = append(errs, fmt.Errorf("pageExtensions entry %q must be a bare extension such as \"ts\"", ext))
		}
	}

	for key := range c.Env {
		if !validEnvKey(key) {
			errs = append(errs, fmt.Errorf("env key %q is not a valid identifier", key))
		}
	}

	for i, rw := range c.Rewrites {
		switch {
		case strings.TrimSpace(rw.Source) == "" || strings.TrimSpace(rw.Destination) == "":
			errs = append(errs, fmt.Errorf("rewrites[%d] needs both source and destination", i))
		case !bareSpecifier(rw.Source):
			errs = append(errs, fmt.Errorf("rewrites[%d].source %q must be a package name, not a path", i, rw.Source))
		}
	}

	if !slices.Contains(Targets, strings.ToLower(c.Compiler.Target)) {
		errs = append(errs, fmt.Errorf("compiler.target %q is not one of %s", c.Compiler.Target, strings.Join(Targets, ", ")))
	}

	if strings.TrimSpace(c.Run.Runtime) == "" {
		errs = append(errs, errors.New("run.runtime must not be empty"))
	}

	return errors.Join(errs...)
}

// bareSpecifier reports whether s names a package ("pkg", "@scope/pkg/sub")
// rather than a relative or absolute path.
func bareSpecifier(s string) bool {
	if strings.HasPrefix(s, ".") || strings.HasPrefix(s, "/") || filepath.IsAbs(s) {
		return false
	}
	return path.Clean(strings.ReplaceAll(s, `\`, "/")) == s
}

func validEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

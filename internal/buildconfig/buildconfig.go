// Package buildconfig synthesizes the server-target build configuration for
// a set of entrypoints.
package buildconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"nextrun/internal/config"
	"nextrun/internal/entrypoint"
	"nextrun/internal/trace"
)

// CompilerType selects the runtime environment the bundle is produced for.
// Only server builds exist.
type CompilerType string

const CompilerServer CompilerType = "server"

// Module aliases installed for the conventional source directories.
const (
	AliasPages   = "private-next-pages"
	AliasViews   = "private-next-views"
	AliasRootDir = "private-next-root-dir"
)

// BuildIDDefine is the expression replaced with the build ID in compiled code.
const BuildIDDefine = "process.env.__NEXT_BUILD_ID"

// Options are the inputs to Synthesize.
type Options struct {
	RootDir  string
	BuildID  string
	Config   *config.Config
	PagesDir string
	ViewsDir string
	// Entrypoints maps an entrypoint name to the module paths it bundles.
	Entrypoints map[string][]string
	Target      CompilerType
}

// Configuration is an opaque-to-callers description of one bundler run.
type Configuration struct {
	RootDir     string
	BuildID     string
	Target      CompilerType
	OutputDir   string
	Entrypoints map[string][]string

	Define             map[string]string
	Alias              map[string]string
	External           []string
	BundleDependencies bool
	Sourcemap          bool
	Minify             bool
	ResolveExtensions  []string
	OutExtension       string
	EsTarget           string
}

// Synthesize derives the bundler configuration from opts. Only server builds
// are supported.
func Synthesize(ctx context.Context, opts Options) (*Configuration, error) {
	return trace.Do(ctx, trace.ScopePass, "generate-build-config", func(ctx context.Context) (*Configuration, error) {
		return synthesize(opts)
	})
}

func synthesize(opts Options) (*Configuration, error) {
	if opts.Config == nil {
		return nil, errors.New("build config: nil project config")
	}
	if !filepath.IsAbs(opts.RootDir) {
		return nil, fmt.Errorf("build config: root dir %q is not absolute", opts.RootDir)
	}
	if opts.Target == "" {
		opts.Target = CompilerServer
	}
	if opts.Target != CompilerServer {
		return nil, fmt.Errorf("build config: unsupported compiler type %q", opts.Target)
	}
	if len(opts.Entrypoints) == 0 {
		return nil, errors.New("build config: no entrypoints")
	}
	cfg := opts.Config

	out := &Configuration{
		RootDir:            opts.RootDir,
		BuildID:            opts.BuildID,
		Target:             opts.Target,
		OutputDir:          ServerOutputDir(opts.RootDir, cfg.DistDir),
		Entrypoints:        make(map[string][]string, len(opts.Entrypoints)),
		Define:             make(map[string]string, len(cfg.Env)+1),
		Alias:              make(map[string]string, len(cfg.Rewrites)+3),
		External:           slices.Clone(cfg.Compiler.External),
		BundleDependencies: cfg.Compiler.BundleDependencies,
		Sourcemap:          cfg.Compiler.Sourcemap,
		Minify:             cfg.Compiler.Minify,
		ResolveExtensions:  resolveExtensions(cfg.PageExtensions),
		OutExtension:       ".js",
		EsTarget:           strings.ToLower(cfg.Compiler.Target),
	}

	for name, modules := range opts.Entrypoints {
		if name == "" || len(modules) == 0 {
			return nil, fmt.Errorf("build config: entrypoint %q has no modules", name)
		}
		out.Entrypoints[name] = slices.Clone(modules)
	}

	for key, value := range cfg.Env {
		out.Define["process.env."+key] = quote(value)
	}
	out.Define[BuildIDDefine] = quote(opts.BuildID)

	for _, rw := range cfg.Rewrites {
		out.Alias[rw.Source] = rw.Destination
	}
	out.Alias[AliasRootDir] = "."
	if opts.PagesDir != "" {
		rel, err := relativeModule(opts.RootDir, opts.PagesDir)
		if err != nil {
			return nil, err
		}
		out.Alias[AliasPages] = rel
	}
	if opts.ViewsDir != "" {
		rel, err := relativeModule(opts.RootDir, opts.ViewsDir)
		if err != nil {
			return nil, err
		}
		out.Alias[AliasViews] = rel
	}

	return out, nil
}

// ServerOutputDir is where server builds of the project at root write their
// output for the given distDir.
func ServerOutputDir(root, distDir string) string {
	return filepath.Join(root, filepath.FromSlash(distDir), "server")
}

// EntrypointNames returns the configured entrypoint names in sorted order.
func (c *Configuration) EntrypointNames() []string {
	names := make([]string, 0, len(c.Entrypoints))
	for name := range c.Entrypoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveExtensions puts the project's page extensions first, then every
// script extension the server build accepts, so narrowing pageExtensions
// never hides a script module.
func resolveExtensions(pageExtensions []string) []string {
	exts := make([]string, 0, len(pageExtensions)+len(entrypoint.Extensions)+1)
	seen := make(map[string]struct{}, cap(exts))
	add := func(ext string) {
		if _, ok := seen[ext]; ok {
			return
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	for _, ext := range pageExtensions {
		add("." + ext)
	}
	for _, ext := range entrypoint.Extensions {
		add(ext)
	}
	add(".json")
	return exts
}

func relativeModule(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Errorf("build config: %w", err)
	}
	return "./" + filepath.ToSlash(rel), nil
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

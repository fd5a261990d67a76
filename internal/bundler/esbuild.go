package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"nextrun/internal/buildconfig"
	"nextrun/internal/ctxlog"
)

// Esbuild bundles with the esbuild Go API.
type Esbuild struct{}

// Build implements Engine. Cancelling ctx cancels the running build.
func (Esbuild) Build(ctx context.Context, cfg *buildconfig.Configuration) (*Stats, error) {
	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		return nil, &FatalError{Messages: convertMessages(cerr.Errors)}
	}
	defer bctx.Dispose()

	done := make(chan api.BuildResult, 1)
	go func() {
		done <- bctx.Rebuild()
	}()

	var result api.BuildResult
	select {
	case result = <-done:
	case <-ctx.Done():
		bctx.Cancel()
		<-done
		return nil, ctx.Err()
	}

	stats := &Stats{
		Errors:    convertMessages(result.Errors),
		Warnings:  convertMessages(result.Warnings),
		OutputDir: cfg.OutputDir,
	}
	if len(result.Errors) > 0 {
		return stats, nil
	}
	assets, err := assetsFromMetafile(cfg.RootDir, result.Metafile)
	if err != nil {
		return nil, err
	}
	stats.Assets = assets
	ctxlog.FromContext(ctx).Debug("bundle written", "outdir", cfg.OutputDir, "assets", len(assets))
	return stats, nil
}

func buildOptions(cfg *buildconfig.Configuration) (api.BuildOptions, error) {
	target, err := esTarget(cfg.EsTarget)
	if err != nil {
		return api.BuildOptions{}, err
	}
	if cfg.Target != buildconfig.CompilerServer {
		return api.BuildOptions{}, fmt.Errorf("esbuild: unsupported compiler type %q", cfg.Target)
	}

	entries := make([]api.EntryPoint, 0, len(cfg.Entrypoints))
	for _, name := range cfg.EntrypointNames() {
		modules := cfg.Entrypoints[name]
		if len(modules) != 1 {
			return api.BuildOptions{}, &FatalError{Messages: []Message{{
				Text: fmt.Sprintf("entrypoint %q must bundle exactly one module, got %d", name, len(modules)),
			}}}
		}
		entries = append(entries, api.EntryPoint{InputPath: modules[0], OutputPath: name})
	}

	opts := api.BuildOptions{
		AbsWorkingDir:       cfg.RootDir,
		EntryPointsAdvanced: entries,
		Outdir:              cfg.OutputDir,
		Bundle:              true,
		Write:               true,
		Metafile:            true,
		Platform:            api.PlatformNode,
		Format:              api.FormatCommonJS,
		Target:              target,
		LogLevel:            api.LogLevelSilent,
		Define:              cfg.Define,
		Alias:               cfg.Alias,
		External:            cfg.External,
		ResolveExtensions:   cfg.ResolveExtensions,
		OutExtension:        map[string]string{".js": cfg.OutExtension},
		MinifyWhitespace:    cfg.Minify,
		MinifyIdentifiers:   cfg.Minify,
		MinifySyntax:        cfg.Minify,
	}
	if !cfg.BundleDependencies {
		opts.Packages = api.PackagesExternal
	}
	if cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapInline
	}
	return opts, nil
}

func esTarget(s string) (api.Target, error) {
	switch strings.ToLower(s) {
	case "", "esnext":
		return api.ESNext, nil
	case "es2015":
		return api.ES2015, nil
	case "es2016":
		return api.ES2016, nil
	case "es2017":
		return api.ES2017, nil
	case "es2018":
		return api.ES2018, nil
	case "es2019":
		return api.ES2019, nil
	case "es2020":
		return api.ES2020, nil
	case "es2021":
		return api.ES2021, nil
	case "es2022":
		return api.ES2022, nil
	case "es2023":
		return api.ES2023, nil
	default:
		return api.DefaultTarget, fmt.Errorf("esbuild: unknown target %q", s)
	}
}

func convertMessages(msgs []api.Message) []Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		msg := Message{
			Text:     m.Text,
			Plugin:   m.PluginName,
			Location: convertLocation(m.Location),
		}
		for _, n := range m.Notes {
			msg.Notes = append(msg.Notes, Note{Text: n.Text, Location: convertLocation(n.Location)})
		}
		out = append(out, msg)
	}
	return out
}

func convertLocation(loc *api.Location) *Location {
	if loc == nil {
		return nil
	}
	return &Location{
		File:     loc.File,
		Line:     loc.Line,
		Column:   loc.Column,
		Length:   loc.Length,
		LineText: loc.LineText,
	}
}

// metafile mirrors the parts of esbuild's metafile JSON read here.
type metafile struct {
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileOutput struct {
	Bytes      int    `json:"bytes"`
	EntryPoint string `json:"entryPoint,omitempty"`
}

func assetsFromMetafile(root, raw string) (map[string]Asset, error) {
	if raw == "" {
		return map[string]Asset{}, nil
	}
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("esbuild: decode metafile: %w", err)
	}
	assets := make(map[string]Asset, len(meta.Outputs))
	for rel, out := range meta.Outputs {
		path := filepath.Join(root, filepath.FromSlash(rel))
		assets[path] = Asset{Path: path, Bytes: out.Bytes, EntryPoint: out.EntryPoint}
	}
	return assets, nil
}

// Package config loads the project configuration consumed by a build phase.
package config

import (
	"slices"
	"strings"
)

// FileName is the configuration file looked up at the project root.
const FileName = "next.config.toml"

// Phase identifies the build phase the configuration is loaded for.
type Phase string

const (
	PhaseExport            Phase = "phase-export"
	PhaseProductionBuild   Phase = "phase-production-build"
	PhaseProductionServer  Phase = "phase-production-server"
	PhaseDevelopmentServer Phase = "phase-development-server"
	PhaseTest              Phase = "phase-test"
)

var knownPhases = []Phase{
	PhaseExport,
	PhaseProductionBuild,
	PhaseProductionServer,
	PhaseDevelopmentServer,
	PhaseTest,
}

// Known reports whether p is one of the defined phases.
func (p Phase) Known() bool {
	return slices.Contains(knownPhases, p)
}

// Config is the resolved project configuration.
type Config struct {
	DistDir        string            `toml:"distDir"`
	PageExtensions []string          `toml:"pageExtensions"`
	Env            map[string]string `toml:"env"`
	Rewrites       []Rewrite         `toml:"rewrites"`
	Experimental   Experimental      `toml:"experimental"`
	Compiler       Compiler          `toml:"compiler"`
	Run            Run               `toml:"run"`

	// Path is the file the configuration was read from; empty when defaults were used.
	Path string `toml:"-"`
	// Phase is the phase the configuration was loaded for.
	Phase Phase `toml:"-"`
}

// Rewrite replaces an import specifier with another module path.
type Rewrite struct {
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
}

type Experimental struct {
	ViewsDir bool `toml:"viewsDir"`
}

// Compiler tunes the bundler.
type Compiler struct {
	Target             string   `toml:"target"`
	Sourcemap          bool     `toml:"sourcemap"`
	Minify             bool     `toml:"minify"`
	BundleDependencies bool     `toml:"bundleDependencies"`
	External           []string `toml:"external"`
}

// Run configures how the compiled script is executed.
type Run struct {
	Runtime     string   `toml:"runtime"`
	RuntimeArgs []string `toml:"runtimeArgs"`
}

// Overrides are applied on top of the file, typically from CLI flags.
// Zero fields leave the file value untouched.
type Overrides struct {
	DistDir   string
	Runtime   string
	Sourcemap *bool
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DistDir:        ".next",
		PageExtensions: []string{"tsx", "ts", "jsx", "js"},
		Compiler: Compiler{
			Target: "es2020",
		},
		Run: Run{
			Runtime: "node",
		},
	}
}

// Targets accepted by [compiler].target.
var Targets = []string{"esnext", "es2015", "es2016", "es2017", "es2018", "es2019", "es2020", "es2021", "es2022", "es2023"}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.DistDir) == "" {
		c.DistDir = def.DistDir
	}
	if len(c.PageExtensions) == 0 {
		c.PageExtensions = def.PageExtensions
	}
	if c.Compiler.Target == "" {
		c.Compiler.Target = def.Compiler.Target
	}
	if c.Run.Runtime == "" {
		c.Run.Runtime = def.Run.Runtime
	}
}

func (c *Config) applyOverrides(o *Overrides) {
	if o == nil {
		return
	}
	if o.DistDir != "" {
		c.DistDir = o.DistDir
	}
	if o.Runtime != "" {
		c.Run.Runtime = o.Runtime
	}
	if o.Sourcemap != nil {
		c.Compiler.Sourcemap = *o.Sourcemap
	}
}

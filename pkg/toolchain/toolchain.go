// Package toolchain defines the compiler adapter contract consumed by
// the environment synthesizer, plus platform-specific link operations.
package toolchain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/forgebuild/forge/pkg/envmod"
)

// Language identifies a compiler front end.
type Language string

const (
	C   Language = "cc"
	Cxx Language = "cxx"
	F77 Language = "f77"
	FC  Language = "fc"
)

// Languages lists every front end in canonical order.
func Languages() []Language { return []Language{C, Cxx, F77, FC} }

// Toolchain is the per-build-session compiler capability. The core only
// calls this contract; implementations live with the toolchain
// registry, not here.
type Toolchain interface {
	// Name is the toolchain identity, e.g. "gcc" or "clang".
	Name() string

	// Compiler returns the real compiler path for a language, or ""
	// when the toolchain does not provide that front end.
	Compiler(lang Language) string

	// WrapperPath returns the wrapper script path for a language,
	// relative to the wrapper directory.
	WrapperPath(lang Language) string

	// RpathArg is the argument prefix that injects an RPATH entry for
	// the given front end, e.g. "-Wl,-rpath,".
	RpathArg(lang Language) string

	// LinkerArg is the prefix that forwards an argument to the linker.
	LinkerArg() string

	// EnableNewDtags / DisableNewDtags are the linker flags that switch
	// between RUNPATH and RPATH dtag semantics.
	EnableNewDtags() string
	DisableNewDtags() string

	// ExtraRpaths are directories the toolchain wants baked into every
	// binary it links.
	ExtraRpaths() []string

	// ImplicitRpaths are runtime library directories the compiler links
	// against implicitly.
	ImplicitRpaths() []string

	// Modules are environment module names that must be loaded for the
	// toolchain to work.
	Modules() []string

	// Environment is the toolchain's own environment extension.
	Environment() *envmod.EnvironmentModifications

	// VerifyExecutables fails when a provided front end's executable is
	// missing. Called before any variable is set.
	VerifyExecutables() error

	// OptimizationFlags returns the optimization flag string for a
	// resolved architecture tag.
	OptimizationFlags(target string) string
}

// Config is the declarative description of a toolchain, as found in a
// graph manifest.
type Config struct {
	Name        string              `json:"name" yaml:"name"`
	Compilers   map[Language]string `json:"compilers" yaml:"compilers"`
	Wrappers    map[Language]string `json:"wrappers,omitempty" yaml:"wrappers,omitempty"`
	RpathArg    string              `json:"rpathArg,omitempty" yaml:"rpathArg,omitempty"`
	LinkerArg   string              `json:"linkerArg,omitempty" yaml:"linkerArg,omitempty"`
	ExtraRpaths []string            `json:"extraRpaths,omitempty" yaml:"extraRpaths,omitempty"`
	Implicit    []string            `json:"implicitRpaths,omitempty" yaml:"implicitRpaths,omitempty"`
	Modules     []string            `json:"modules,omitempty" yaml:"modules,omitempty"`
	Environment envmod.Config       `json:"environment,omitempty" yaml:"environment,omitempty"`
	OptFlags    map[string]string   `json:"optFlags,omitempty" yaml:"optFlags,omitempty"` // target prefix -> flags
}

// Generic is a config-backed Toolchain. It covers the common
// GCC/Clang-style command lines.
type Generic struct {
	cfg Config
}

// NewGeneric builds a toolchain from its declarative config.
func NewGeneric(cfg Config) *Generic {
	if cfg.RpathArg == "" {
		cfg.RpathArg = "-Wl,-rpath,"
	}
	if cfg.LinkerArg == "" {
		cfg.LinkerArg = "-Wl,"
	}
	if cfg.Wrappers == nil {
		cfg.Wrappers = map[Language]string{}
	}
	for _, lang := range Languages() {
		if cfg.Wrappers[lang] == "" {
			cfg.Wrappers[lang] = defaultWrapperName(lang)
		}
	}
	return &Generic{cfg: cfg}
}

func defaultWrapperName(lang Language) string {
	switch lang {
	case C:
		return "cc"
	case Cxx:
		return "c++"
	case F77:
		return "f77"
	default:
		return "f90"
	}
}

func (g *Generic) Name() string { return g.cfg.Name }

func (g *Generic) Compiler(lang Language) string { return g.cfg.Compilers[lang] }

func (g *Generic) WrapperPath(lang Language) string { return g.cfg.Wrappers[lang] }

func (g *Generic) RpathArg(Language) string { return g.cfg.RpathArg }

func (g *Generic) LinkerArg() string { return g.cfg.LinkerArg }

func (g *Generic) EnableNewDtags() string { return "--enable-new-dtags" }

func (g *Generic) DisableNewDtags() string { return "--disable-new-dtags" }

func (g *Generic) ExtraRpaths() []string { return g.cfg.ExtraRpaths }

func (g *Generic) ImplicitRpaths() []string { return g.cfg.Implicit }

func (g *Generic) Modules() []string { return g.cfg.Modules }

func (g *Generic) Environment() *envmod.EnvironmentModifications {
	return envmod.FromConfig(g.cfg.Environment)
}

// VerifyExecutables checks every declared front end on disk.
func (g *Generic) VerifyExecutables() error {
	for _, lang := range Languages() {
		path := g.cfg.Compilers[lang]
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("toolchain %s: compiler for %s not found: %w", g.cfg.Name, lang, err)
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return fmt.Errorf("toolchain %s: compiler for %s is not executable: %s", g.cfg.Name, lang, path)
		}
	}
	return nil
}

// OptimizationFlags picks the longest configured target prefix that
// matches the resolved architecture tag.
func (g *Generic) OptimizationFlags(target string) string {
	prefixes := make([]string, 0, len(g.cfg.OptFlags))
	for p := range g.cfg.OptFlags {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if strings.HasPrefix(target, p) {
			return g.cfg.OptFlags[p]
		}
	}
	return ""
}

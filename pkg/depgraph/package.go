package depgraph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/toolchain"
	"github.com/forgebuild/forge/pkg/types"
)

// Sentinel errors for prefix discovery. Callers that can tolerate a
// header-only or binary-only package match on these.
var (
	ErrNoLibraries = errors.New("no libraries found in install prefix")
	ErrNoHeaders   = errors.New("no headers found in install prefix")
)

// Package is one installed (or about-to-be-installed) node in the
// dependency graph.
type Package struct {
	name     string
	version  *semver.Version
	prefix   string
	target   string
	platform types.Platform
	tc       toolchain.Toolchain
	rec      recipe.Recipe
	modules  []string
	flags    map[recipe.FlagCategory][]string
}

// NewPackage constructs a graph node. The recipe is resolved from the
// registry by package name; unregistered packages get no-op hooks.
func NewPackage(name, version, prefix, target string, tc toolchain.Toolchain) (*Package, error) {
	if name == "" {
		return nil, errors.New("package name must not be empty")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("package %s: invalid version %q: %w", name, version, err)
	}
	return &Package{
		name:     name,
		version:  v,
		prefix:   prefix,
		target:   target,
		platform: types.HostPlatform(),
		tc:       tc,
		rec:      recipe.Lookup(name),
		flags:    map[recipe.FlagCategory][]string{},
	}, nil
}

func (p *Package) Name() string   { return p.name }
func (p *Package) Prefix() string { return p.prefix }
func (p *Package) Target() string { return p.target }

func (p *Package) Version() *semver.Version { return p.version }

// Short is the human-readable identity used in logs and in the build
// environment, e.g. "zlib@1.2.13 arch=linux-x86_64".
func (p *Package) Short() string {
	return fmt.Sprintf("%s@%s arch=%s", p.name, p.version, p.target)
}

func (p *Package) Platform() types.Platform       { return p.platform }
func (p *Package) Toolchain() toolchain.Toolchain { return p.tc }
func (p *Package) Recipe() recipe.Recipe          { return p.rec }

// ExternalModules are environment modules that must be loaded for this
// package to be usable, typically for vendor-provided externals.
func (p *Package) ExternalModules() []string { return p.modules }

// Flags returns the user-requested compiler flags for one category.
func (p *Package) Flags(cat recipe.FlagCategory) []string { return p.flags[cat] }

// SetPlatform overrides the host platform, for cross-class graphs.
func (p *Package) SetPlatform(pl types.Platform) { p.platform = pl }

// SetExternalModules records the package's environment modules.
func (p *Package) SetExternalModules(modules []string) { p.modules = modules }

// SetFlags records user-requested flags for one category.
func (p *Package) SetFlags(cat recipe.FlagCategory, flags []string) {
	p.flags[cat] = flags
}

// LibDirs returns the existing library directories under the prefix,
// lib64 before lib when both exist.
func (p *Package) LibDirs() []string {
	var dirs []string
	for _, sub := range []string{"lib64", "lib"} {
		dir := filepath.Join(p.prefix, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// IncludeDirs returns the existing include directories under the prefix.
func (p *Package) IncludeDirs() []string {
	dir := filepath.Join(p.prefix, "include")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return []string{dir}
	}
	return nil
}

// Libs discovers the package's library files. Shared libraries are
// preferred; static archives are the fallback. ErrNoLibraries when the
// prefix carries neither.
func (p *Package) Libs() ([]string, error) {
	var shared, static []string
	for _, dir := range p.LibDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasPrefix(name, "lib") {
				continue
			}
			switch {
			case strings.Contains(name, ".so") || strings.HasSuffix(name, ".dylib"):
				shared = append(shared, filepath.Join(dir, name))
			case strings.HasSuffix(name, ".a"):
				static = append(static, filepath.Join(dir, name))
			}
		}
	}
	if len(shared) > 0 {
		return shared, nil
	}
	if len(static) > 0 {
		return static, nil
	}
	return nil, fmt.Errorf("package %s: %w", p.name, ErrNoLibraries)
}

// Headers discovers the package's header files, one level deep.
func (p *Package) Headers() ([]string, error) {
	var headers []string
	for _, dir := range p.IncludeDirs() {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".h", ".hpp", ".hh", ".hxx", ".mod":
				headers = append(headers, path)
			}
			return nil
		})
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("package %s: %w", p.name, ErrNoHeaders)
	}
	return headers, nil
}

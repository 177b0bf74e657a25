// Package recipe defines the contract between the build engine and
// package build recipes, and the explicit toolkit handed to them.
package recipe

import (
	"fmt"
	"sort"
	"sync"

	"github.com/forgebuild/forge/pkg/envmod"
)

// FlagCategory names a compiler-flag group routed through FlagHandler.
type FlagCategory string

const (
	CFlags   FlagCategory = "cflags"
	CxxFlags FlagCategory = "cxxflags"
	FFlags   FlagCategory = "fflags"
	FCFlags  FlagCategory = "fcflags"
	CppFlags FlagCategory = "cppflags"
	LdFlags  FlagCategory = "ldflags"
	LdLibs   FlagCategory = "ldlibs"
)

// FlagCategories lists every category in canonical order.
func FlagCategories() []FlagCategory {
	return []FlagCategory{CFlags, CxxFlags, FFlags, FCFlags, CppFlags, LdFlags, LdLibs}
}

// PackageRef is the minimal view of a package a recipe hook receives
// about its dependent.
type PackageRef interface {
	Name() string
	Prefix() string
	Short() string
}

// Recipe is the set of hooks a package recipe may implement. Embed
// Base to get no-op defaults.
type Recipe interface {
	// SetupBuildEnvironment lets the package adjust its own build
	// environment before the build action runs.
	SetupBuildEnvironment(env *envmod.EnvironmentModifications, pkg PackageRef) error

	// SetupDependentBuildEnvironment contributes to the build
	// environment of a package depending on this one.
	SetupDependentBuildEnvironment(env *envmod.EnvironmentModifications, dependent PackageRef) error

	// SetupDependentRunEnvironment contributes to the run environment
	// of a package depending on this one.
	SetupDependentRunEnvironment(env *envmod.EnvironmentModifications, dependent PackageRef) error

	// SetupDependentPackage performs a one-time customization of the
	// dependent's toolkit (e.g. exposing a tool this package installs).
	SetupDependentPackage(tk *Toolkit, dependent PackageRef) error

	// FlagHandler routes one category of compiler flags. The three
	// returned lists go, respectively, to wrapper-injection variables,
	// literal environment variables, and build-system arguments.
	FlagHandler(category FlagCategory, flags []string) (inject, env, buildSystem []string)

	// FlagsToBuildSystemArgs receives the flags the handler routed to
	// the build system.
	FlagsToBuildSystemArgs(flags map[FlagCategory][]string)

	// TransitiveRpaths selects transitive RPATH propagation: every
	// link-reachable dependency is RPATHed instead of only direct
	// link dependencies.
	TransitiveRpaths() bool

	// Parallel reports whether the package tolerates parallel make.
	Parallel() bool
}

// Base provides default hook implementations. The default flag handler
// injects everything through the compiler wrappers.
type Base struct{}

func (Base) SetupBuildEnvironment(*envmod.EnvironmentModifications, PackageRef) error { return nil }

func (Base) SetupDependentBuildEnvironment(*envmod.EnvironmentModifications, PackageRef) error {
	return nil
}

func (Base) SetupDependentRunEnvironment(*envmod.EnvironmentModifications, PackageRef) error {
	return nil
}

func (Base) SetupDependentPackage(*Toolkit, PackageRef) error { return nil }

func (Base) FlagHandler(_ FlagCategory, flags []string) (inject, env, buildSystem []string) {
	return flags, nil, nil
}

func (Base) FlagsToBuildSystemArgs(map[FlagCategory][]string) {}

func (Base) TransitiveRpaths() bool { return false }

func (Base) Parallel() bool { return true }

var (
	registryMu  sync.RWMutex
	registry    = map[string]Recipe{}
	sourceRoots []string
)

// Register adds a recipe under a name. Registration is explicit and
// happens at program init, so the same table exists in the parent and
// in the re-exec'd build child.
func Register(name string, r Recipe) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("recipe %q registered twice", name))
	}
	registry[name] = r
}

// Lookup returns a registered recipe. Unknown names get the no-op Base
// recipe so externally resolved packages still compose.
func Lookup(name string) Recipe {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if r, ok := registry[name]; ok {
		return r
	}
	return Base{}
}

// Names lists the registered recipe names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterSourceRoot declares a directory containing recipe source
// code. The failure reporter attributes stack frames under these roots
// to recipe code when choosing where to show source context.
func RegisterSourceRoot(dir string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	sourceRoots = append(sourceRoots, dir)
}

// SourceRoots returns the declared recipe source directories.
func SourceRoots() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, len(sourceRoots))
	copy(out, sourceRoots)
	return out
}

// Package buildenv synthesizes the per-package build environment: it
// sanitizes the inherited environment, computes compiler and directory
// variables from the dependency graph, composes dependency-contributed
// modifications in post-order, and applies the result.
package buildenv

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/logger"
	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/toolchain"
	"github.com/forgebuild/forge/pkg/types"
)

// ErrNoToolchain is returned when a package has no toolchain bound but
// compiler variables were requested for it.
var ErrNoToolchain = errors.New("package has no toolchain")

// ModuleLoader loads one environment module by name. The default
// implementation shells out to the module command; tests substitute a
// recorder.
type ModuleLoader func(name string) error

// Synthesizer computes the build environment for packages of one graph.
type Synthesizer struct {
	Graph    *depgraph.Graph
	Settings types.Settings

	// WrapperDir holds the compiler wrapper scripts; it is placed at
	// the front of PATH so the wrappers shadow any system compiler.
	WrapperDir string

	// WorkDir is where debug logs for this build land.
	WorkDir string

	Log logger.Logger

	// Modules loads environment modules. Nil disables module loading.
	Modules ModuleLoader

	// Platform lets a platform contribute its own modifications after
	// the generic build variables are set.
	Platform func(pkg *depgraph.Package, env *envmod.EnvironmentModifications) error
}

func (s *Synthesizer) log() logger.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logger.NewNop()
}

// SetCompilerEnvironmentVariables writes compiler identity, linker
// policy and flag-routing variables into the ledger. Missing compiler
// executables are fatal before any variable is set.
func (s *Synthesizer) SetCompilerEnvironmentVariables(pkg *depgraph.Package, env *envmod.EnvironmentModifications) error {
	tc := pkg.Toolchain()
	if tc == nil {
		return fmt.Errorf("%s: %w", pkg.Name(), ErrNoToolchain)
	}
	if err := tc.VerifyExecutables(); err != nil {
		return err
	}

	// Wrapper paths for the classic variables, real paths in shadows.
	// Only languages the toolchain provides are set.
	for _, lang := range toolchain.Languages() {
		real := tc.Compiler(lang)
		if real == "" {
			continue
		}
		names := compilerEnvNames[string(lang)]
		env.Set(names[0], filepath.Join(s.WrapperDir, tc.WrapperPath(lang)))
		env.Set(names[1], real)
		env.Set(rpathArgEnvNames[string(lang)], tc.RpathArg(lang))
	}
	env.Set(EnvLinkerArg, tc.LinkerArg())

	// Exactly one dtag pair, chosen by the linking policy.
	if s.Settings.SharedLinking == types.LinkingRunpath {
		env.Set(EnvDtagsToAdd, tc.EnableNewDtags())
		env.Set(EnvDtagsToStrip, tc.DisableNewDtags())
	} else {
		env.Set(EnvDtagsToAdd, tc.DisableNewDtags())
		env.Set(EnvDtagsToStrip, tc.EnableNewDtags())
	}

	if flags := tc.OptimizationFlags(pkg.Target()); flags != "" {
		env.Set(EnvTargetArgs, flags)
	}

	if err := s.routeFlags(pkg, env); err != nil {
		return err
	}

	env.Set(EnvCompilerSpec, tc.Name())
	if extra := envmod.FilterSystemPaths(tc.ExtraRpaths()); len(extra) > 0 {
		env.Set(EnvCompilerExtraRpaths, strings.Join(extra, ":"))
	}
	env.Set(EnvSystemDirs, strings.Join(envmod.SystemDirs(), ":"))

	env.Extend(tc.Environment())
	return nil
}

// routeFlags runs the recipe's flag handler per category and routes the
// three returned lists into wrapper-injection variables, literal
// environment variables, and the build-system-argument callback.
func (s *Synthesizer) routeFlags(pkg *depgraph.Package, env *envmod.EnvironmentModifications) error {
	rec := pkg.Recipe()
	buildSystem := map[recipe.FlagCategory][]string{}
	for _, cat := range recipe.FlagCategories() {
		inject, literal, bsys := rec.FlagHandler(cat, pkg.Flags(cat))
		if len(inject) > 0 {
			env.Set(InjectedFlagVar(cat), strings.Join(inject, " "))
		}
		if len(literal) > 0 {
			env.Set(LiteralFlagVar(cat), strings.Join(literal, " "))
		}
		if len(bsys) > 0 {
			buildSystem[cat] = bsys
		}
	}
	if len(buildSystem) > 0 {
		rec.FlagsToBuildSystemArgs(buildSystem)
	}
	return nil
}

// SetBuildEnvironmentVariables writes directory lists, search paths and
// tracing variables into the ledger.
func (s *Synthesizer) SetBuildEnvironmentVariables(pkg *depgraph.Package, env *envmod.EnvironmentModifications) error {
	log := s.log().WithPackage(pkg.Name())

	linkDeps := s.Graph.Traverse(pkg.Name(), types.DepLink)
	buildDeps := s.Graph.Dependencies(pkg.Name(), types.DepBuild, types.DepTest)

	var linkDirs, includeDirs []string
	for _, dep := range linkDeps {
		if libs, err := dep.Libs(); err != nil {
			log.Debug("skipping libraries", logger.WithField("dep", dep.Name()), logger.WithField("reason", err.Error()))
		} else {
			for _, lib := range libs {
				linkDirs = append(linkDirs, filepath.Dir(lib))
			}
		}
		if _, err := dep.Headers(); err != nil {
			log.Debug("skipping headers", logger.WithField("dep", dep.Name()), logger.WithField("reason", err.Error()))
		} else {
			includeDirs = append(includeDirs, dep.IncludeDirs()...)
		}
	}
	// Build-only deps may still provide headers (code generators,
	// header-only tools).
	for _, dep := range buildDeps {
		if _, err := dep.Headers(); err == nil {
			includeDirs = append(includeDirs, dep.IncludeDirs()...)
		}
	}

	rpathDirs := s.RpathDirs(pkg)

	env.Set(EnvLinkDirs, strings.Join(envmod.Dedupe(envmod.FilterSystemPaths(linkDirs)), ":"))
	env.Set(EnvIncludeDirs, strings.Join(envmod.Dedupe(envmod.FilterSystemPaths(includeDirs)), ":"))
	env.Set(EnvRpathDirs, strings.Join(rpathDirs, ":"))

	// CMake searches these prefixes for everything at once.
	var cmakePrefixes []string
	for _, dep := range s.Graph.Traverse(pkg.Name(), types.DepBuild, types.DepLink) {
		cmakePrefixes = append(cmakePrefixes, dep.Prefix())
	}
	if filtered := envmod.Dedupe(envmod.FilterSystemPaths(cmakePrefixes)); len(filtered) > 0 {
		env.SetPath("CMAKE_PREFIX_PATH", filtered)
	}

	s.prependDependencyPaths(pkg, env)
	s.prependWrapperPaths(pkg, env)

	env.Set(EnvShortSpec, pkg.Short())
	env.Set(EnvDebugLogID, pkg.Name()+"-"+uuid.NewString()[:8])
	env.Set(EnvDebugLogDir, s.WorkDir)
	if s.Settings.Debug {
		env.Set(EnvDebug, "TRUE")
	}

	if s.Settings.CCache {
		ccache, err := exec.LookPath("ccache")
		if err != nil {
			return fmt.Errorf("ccache is enabled but the ccache binary was not found on PATH: %w", err)
		}
		env.Set(EnvCCacheBinary, ccache)
	}
	return nil
}

// prependDependencyPaths puts dependency bin directories and pkgconfig
// directories on the search paths. Build prefixes include the run
// dependencies of direct build dependencies, which need their own tools
// at build time.
func (s *Synthesizer) prependDependencyPaths(pkg *depgraph.Package, env *envmod.EnvironmentModifications) {
	var buildPrefixes []string
	for _, dep := range s.Graph.Dependencies(pkg.Name(), types.DepBuild, types.DepTest) {
		buildPrefixes = append(buildPrefixes, dep.Prefix())
		for _, run := range s.Graph.Traverse(dep.Name(), types.DepRun) {
			buildPrefixes = append(buildPrefixes, run.Prefix())
		}
	}
	var linkPrefixes []string
	for _, dep := range s.Graph.Traverse(pkg.Name(), types.DepLink) {
		linkPrefixes = append(linkPrefixes, dep.Prefix())
	}

	// Prepending reverses, so walk the list backwards to keep the
	// declared order at the front of the variable.
	binPrefixes := envmod.Dedupe(envmod.FilterSystemPaths(buildPrefixes))
	for i := len(binPrefixes) - 1; i >= 0; i-- {
		for _, sub := range []string{"bin64", "bin"} {
			dir := filepath.Join(binPrefixes[i], sub)
			if isDir(dir) {
				env.PrependPath("PATH", dir)
			}
		}
	}

	pcPrefixes := envmod.Dedupe(envmod.FilterSystemPaths(append(buildPrefixes, linkPrefixes...)))
	for i := len(pcPrefixes) - 1; i >= 0; i-- {
		for _, sub := range []string{"share/pkgconfig", "lib64/pkgconfig", "lib/pkgconfig"} {
			dir := filepath.Join(pcPrefixes[i], sub)
			if isDir(dir) {
				env.PrependPath("PKG_CONFIG_PATH", dir)
			}
		}
	}
}

// prependWrapperPaths puts the compiler wrapper directories first on
// PATH so the wrappers shadow every other compiler.
func (s *Synthesizer) prependWrapperPaths(pkg *depgraph.Package, env *envmod.EnvironmentModifications) {
	if s.WrapperDir == "" {
		return
	}
	env.PrependPath("PATH", s.WrapperDir)
	if tc := pkg.Toolchain(); tc != nil {
		// The compiler-name subdirectory holds wrappers named after the
		// real compilers (gcc, g++, ...), for build systems that ignore
		// CC. A case-insensitive shim directory covers filesystems where
		// "CC" and "cc" collide.
		named := filepath.Join(s.WrapperDir, tc.Name())
		if isDir(named) {
			env.PrependPath("PATH", named)
		}
		shim := filepath.Join(named, "case-insensitive")
		if isDir(shim) {
			env.PrependPath("PATH", shim)
		}
	}
}

// RpathDirs computes the ordered RPATH directory set for a package: its
// own lib and lib64 unconditionally (the artifact has not been
// installed yet, so they cannot be verified on disk), then the library
// directories of the policy-selected dependencies, system-filtered and
// de-duplicated.
func (s *Synthesizer) RpathDirs(pkg *depgraph.Package) []string {
	dirs := []string{
		filepath.Join(pkg.Prefix(), "lib"),
		filepath.Join(pkg.Prefix(), "lib64"),
	}
	for _, dep := range s.Graph.RpathDeps(pkg.Name()) {
		dirs = append(dirs, dep.LibDirs()...)
	}
	return envmod.Dedupe(envmod.FilterSystemPaths(dirs))
}

// GetRpaths is the full RPATH query used by packaging collaborators: the
// package RPATH set plus the toolchain's extra and implicit RPATHs.
func (s *Synthesizer) GetRpaths(pkg *depgraph.Package) []string {
	dirs := s.RpathDirs(pkg)
	if tc := pkg.Toolchain(); tc != nil {
		dirs = append(dirs, envmod.FilterSystemPaths(tc.ExtraRpaths())...)
		dirs = append(dirs, envmod.FilterSystemPaths(tc.ImplicitRpaths())...)
	}
	return envmod.Dedupe(dirs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

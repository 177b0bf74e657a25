package buildenv

import (
	"fmt"
	"strings"

	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/logger"
	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/types"
)

// SetupPackage runs the full environment-setup sequence for one package
// and applies the result to the live process environment. It is meant
// to run inside the isolated build child: the sanitizer and the final
// Apply both mutate the process environment directly.
//
// Sequence: sanitize (unless dirty) -> compiler variables -> build
// variables -> platform hook -> dependency composition -> module loads
// -> recipe's own hook -> validate -> apply.
func (s *Synthesizer) SetupPackage(pkg *depgraph.Package, tk *recipe.Toolkit, ctx types.SetupContext, dirty bool) error {
	log := s.log().WithPackage(pkg.Name())

	if !dirty {
		CleanEnvironment(pkg.Platform(), s.Settings)
	}

	env := envmod.New()
	if err := s.SetCompilerEnvironmentVariables(pkg, env); err != nil {
		return err
	}
	if err := s.SetBuildEnvironmentVariables(pkg, env); err != nil {
		return err
	}
	if s.Platform != nil {
		if err := s.Platform(pkg, env); err != nil {
			return fmt.Errorf("platform setup: %w", err)
		}
	}

	deps, err := s.ModificationsFromDependencies(pkg, tk, ctx)
	if err != nil {
		return err
	}
	if deps.Touches("CPATH") {
		log.Warn("a dependency modifies CPATH; this can make the build include headers it should not see")
	}
	env.Extend(deps)

	if err := s.LoadModules(pkg); err != nil {
		return err
	}

	if tc := pkg.Toolchain(); tc != nil {
		if implicit := envmod.FilterSystemPaths(tc.ImplicitRpaths()); len(implicit) > 0 {
			env.Set(EnvCompilerImplicitRpaths, strings.Join(implicit, ":"))
		}
	}

	if err := pkg.Recipe().SetupBuildEnvironment(env, pkg); err != nil {
		return fmt.Errorf("recipe setup: %w", err)
	}

	env.Validate(func(msg string) { log.Warn(msg) })
	env.Apply()

	if tk != nil {
		tk.Env = env
	}
	return nil
}

// LoadModules loads the toolchain's required modules and every external
// module in the graph. Module systems are notorious for clobbering the
// compiler identity variables, so those are snapshot and restored
// around the loads.
func (s *Synthesizer) LoadModules(pkg *depgraph.Package) error {
	if s.Modules == nil {
		return nil
	}

	var names []string
	if tc := pkg.Toolchain(); tc != nil {
		names = append(names, tc.Modules()...)
	}
	names = append(names, pkg.ExternalModules()...)
	for _, dep := range s.Graph.Traverse(pkg.Name()) {
		names = append(names, dep.ExternalModules()...)
	}
	if len(names) == 0 {
		return nil
	}

	restore := envmod.PreserveEnvironment("CC", "CXX", "FC", "F77")
	defer restore()

	for _, name := range names {
		if err := s.Modules(name); err != nil {
			return fmt.Errorf("load module %s: %w", name, err)
		}
		s.log().Debug("loaded module", logger.WithField("module", name))
	}
	return nil
}

package buildenv

import (
	"fmt"

	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/types"
)

// contextRule selects, per setup context, the dependency edges to walk
// and the environment-contribution hook to invoke on each dependency.
type contextRule struct {
	deptypes []types.DepType
	hook     func(rec recipe.Recipe, env *envmod.EnvironmentModifications, dependent recipe.PackageRef) error
}

var contextRules = map[types.SetupContext]contextRule{
	types.ContextBuild: {
		deptypes: []types.DepType{types.DepBuild, types.DepLink, types.DepTest},
		hook: func(rec recipe.Recipe, env *envmod.EnvironmentModifications, dependent recipe.PackageRef) error {
			return rec.SetupDependentBuildEnvironment(env, dependent)
		},
	},
	types.ContextRun: {
		deptypes: []types.DepType{types.DepLink, types.DepRun},
		hook: func(rec recipe.Recipe, env *envmod.EnvironmentModifications, dependent recipe.PackageRef) error {
			return rec.SetupDependentRunEnvironment(env, dependent)
		},
	},
	types.ContextTest: {
		deptypes: []types.DepType{types.DepLink, types.DepRun, types.DepTest},
		hook: func(rec recipe.Recipe, env *envmod.EnvironmentModifications, dependent recipe.PackageRef) error {
			return rec.SetupDependentRunEnvironment(env, dependent)
		},
	},
}

// ModificationsFromDependencies composes the environment contributions
// of a package's dependencies for one context. Dependencies are visited
// in post-order with the root excluded, so a dependent's contribution
// lands after (and can override) anything its own dependencies set.
// Each dependency also gets one shot at customizing the root's toolkit.
func (s *Synthesizer) ModificationsFromDependencies(pkg *depgraph.Package, tk *recipe.Toolkit, ctx types.SetupContext) (*envmod.EnvironmentModifications, error) {
	rule, ok := contextRules[ctx]
	if !ok {
		return nil, fmt.Errorf("unknown setup context %q", ctx)
	}

	env := envmod.New()
	for _, dep := range s.Graph.PostOrder(pkg.Name(), rule.deptypes...) {
		rec := dep.Recipe()
		if tk != nil {
			if err := rec.SetupDependentPackage(tk, pkg); err != nil {
				return nil, fmt.Errorf("dependency %s: setup dependent package: %w", dep.Name(), err)
			}
		}
		sub := envmod.New()
		if err := rule.hook(rec, sub, pkg); err != nil {
			return nil, fmt.Errorf("dependency %s: environment contribution: %w", dep.Name(), err)
		}
		env.Extend(sub)
	}
	return env, nil
}

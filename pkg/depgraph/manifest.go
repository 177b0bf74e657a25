package depgraph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/toolchain"
	"github.com/forgebuild/forge/pkg/types"
)

// Manifest is the on-disk description of a dependency graph. It is the
// contract between the scheduler in the parent process and the build
// child, which rehydrates the graph from this file.
type Manifest struct {
	// Root names the package the environment is synthesized for.
	Root string `yaml:"root" json:"root"`

	Toolchains map[string]toolchain.Config `yaml:"toolchains" json:"toolchains"`
	Packages   []PackageSpec               `yaml:"packages" json:"packages"`
	Edges      []EdgeSpec                  `yaml:"edges" json:"edges"`
}

// PackageSpec declares one graph vertex.
type PackageSpec struct {
	Name      string              `yaml:"name" json:"name"`
	Version   string              `yaml:"version" json:"version"`
	Prefix    string              `yaml:"prefix" json:"prefix"`
	Target    string              `yaml:"target" json:"target"`
	Toolchain string              `yaml:"toolchain" json:"toolchain"`
	Platform  *types.Platform     `yaml:"platform,omitempty" json:"platform,omitempty"`
	Modules   []string            `yaml:"modules,omitempty" json:"modules,omitempty"`
	Flags     map[string][]string `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// EdgeSpec declares one typed dependency edge.
type EdgeSpec struct {
	From     string          `yaml:"from" json:"from"`
	To       string          `yaml:"to" json:"to"`
	DepTypes []types.DepType `yaml:"deptypes" json:"deptypes"`
}

// LoadManifest reads and builds a graph manifest from a YAML file.
func LoadManifest(path string) (*Manifest, *Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	g, err := m.Build()
	if err != nil {
		return nil, nil, err
	}
	return &m, g, nil
}

// Build materializes the manifest into a Graph, in declaration order.
func (m *Manifest) Build() (*Graph, error) {
	toolchains := make(map[string]toolchain.Toolchain, len(m.Toolchains))
	for name, cfg := range m.Toolchains {
		if cfg.Name == "" {
			cfg.Name = name
		}
		toolchains[name] = toolchain.NewGeneric(cfg)
	}

	g := New()
	for _, spec := range m.Packages {
		tc, ok := toolchains[spec.Toolchain]
		if !ok && spec.Toolchain != "" {
			return nil, fmt.Errorf("package %s: unknown toolchain %q", spec.Name, spec.Toolchain)
		}
		p, err := NewPackage(spec.Name, spec.Version, spec.Prefix, spec.Target, tc)
		if err != nil {
			return nil, err
		}
		if spec.Platform != nil {
			p.SetPlatform(*spec.Platform)
		}
		p.SetExternalModules(spec.Modules)
		for cat, flags := range spec.Flags {
			p.SetFlags(recipe.FlagCategory(cat), flags)
		}
		if err := g.AddPackage(p); err != nil {
			return nil, err
		}
	}
	for _, e := range m.Edges {
		deptypes := e.DepTypes
		if len(deptypes) == 0 {
			deptypes = []types.DepType{types.DepBuild, types.DepLink}
		}
		if err := g.Depend(e.From, e.To, deptypes...); err != nil {
			return nil, err
		}
	}
	if m.Root != "" {
		if _, ok := g.Package(m.Root); !ok {
			return nil, fmt.Errorf("manifest root %q is not a declared package", m.Root)
		}
	}
	return g, nil
}

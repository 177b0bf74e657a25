// Package depgraph models the typed dependency DAG the environment
// synthesizer walks: packages as vertices, build/link/run/test tagged
// edges, with deterministic insertion-ordered traversal.
package depgraph

import (
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/forgebuild/forge/pkg/types"
)

type edge struct {
	to       string
	deptypes types.DepTypeSet
}

// Graph is a directed acyclic dependency graph. Cycle prevention is
// enforced on edge insertion; traversal order is the edge insertion
// order, so environment composition is reproducible run to run.
type Graph struct {
	dag      graph.Graph[string, *Package]
	packages map[string]*Package
	order    []string
	edges    map[string][]edge
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		dag: graph.New(func(p *Package) string { return p.Name() },
			graph.Directed(), graph.PreventCycles()),
		packages: map[string]*Package{},
		edges:    map[string][]edge{},
	}
}

// AddPackage inserts a vertex. Package names are unique in a graph.
func (g *Graph) AddPackage(p *Package) error {
	if err := g.dag.AddVertex(p); err != nil {
		return fmt.Errorf("add package %s: %w", p.Name(), err)
	}
	g.packages[p.Name()] = p
	g.order = append(g.order, p.Name())
	return nil
}

// Depend records a typed dependency edge from one package to another.
// Repeated calls for the same pair merge the edge tags.
func (g *Graph) Depend(from, to string, deptypes ...types.DepType) error {
	if _, ok := g.packages[from]; !ok {
		return fmt.Errorf("depend: unknown package %q", from)
	}
	if _, ok := g.packages[to]; !ok {
		return fmt.Errorf("depend: unknown package %q", to)
	}
	for i, e := range g.edges[from] {
		if e.to == to {
			for _, t := range deptypes {
				g.edges[from][i].deptypes[t] = struct{}{}
			}
			return nil
		}
	}
	if err := g.dag.AddEdge(from, to); err != nil {
		return fmt.Errorf("depend %s -> %s: %w", from, to, err)
	}
	g.edges[from] = append(g.edges[from], edge{to: to, deptypes: types.DepTypes(deptypes...)})
	return nil
}

// Package looks up a vertex by name.
func (g *Graph) Package(name string) (*Package, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Packages returns all vertices in insertion order.
func (g *Graph) Packages() []*Package {
	out := make([]*Package, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.packages[name])
	}
	return out
}

// Dependencies returns the direct dependencies of a package whose edge
// carries at least one of the given tags, in edge insertion order. An
// empty tag list matches every edge.
func (g *Graph) Dependencies(of string, deptypes ...types.DepType) []*Package {
	var out []*Package
	for _, e := range g.edges[of] {
		if len(deptypes) == 0 || e.deptypes.ContainsAny(deptypes) {
			out = append(out, g.packages[e.to])
		}
	}
	return out
}

// Traverse returns the transitive dependencies of root in depth-first
// pre-order, root excluded, following only edges that carry at least
// one of the given tags. Each package appears once, at its first visit.
func (g *Graph) Traverse(root string, deptypes ...types.DepType) []*Package {
	seen := map[string]bool{root: true}
	var out []*Package
	var visit func(name string)
	visit = func(name string) {
		for _, e := range g.edges[name] {
			if len(deptypes) > 0 && !e.deptypes.ContainsAny(deptypes) {
				continue
			}
			if seen[e.to] {
				continue
			}
			seen[e.to] = true
			out = append(out, g.packages[e.to])
			visit(e.to)
		}
	}
	visit(root)
	return out
}

// PostOrder returns the transitive dependencies of root leaves-first,
// root excluded. A package is emitted only after everything it depends
// on (through matching edges) has been emitted, so composition lets
// packages closer to the root override their own dependencies.
func (g *Graph) PostOrder(root string, deptypes ...types.DepType) []*Package {
	seen := map[string]bool{}
	var out []*Package
	var visit func(name string)
	visit = func(name string) {
		for _, e := range g.edges[name] {
			if len(deptypes) > 0 && !e.deptypes.ContainsAny(deptypes) {
				continue
			}
			if seen[e.to] {
				continue
			}
			seen[e.to] = true
			visit(e.to)
			out = append(out, g.packages[e.to])
		}
	}
	visit(root)
	return out
}

// RpathDeps returns the dependencies whose library directories belong
// in the root's RPATH: direct link dependencies by default, the whole
// link-reachable closure when the root's recipe opts into transitive
// RPATHs.
func (g *Graph) RpathDeps(root string) []*Package {
	p, ok := g.packages[root]
	if !ok {
		return nil
	}
	if p.Recipe().TransitiveRpaths() {
		return g.Traverse(root, types.DepLink)
	}
	return g.Dependencies(root, types.DepLink)
}

package depot

import (
	"maps"
	"slices"

	"github.com/xraph/go-utils/di"
)

// DependencyGraph is the component graph of a registry: one node per
// registered (target, qualifier) pair, edges to the pairs it depends on.
type DependencyGraph struct {
	nodes map[string]*node
	order []string // Preserve insertion order
}

type node struct {
	name string
	deps []di.Dep
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*node),
		order: make([]string, 0),
	}
}

// AddNode adds a node with its dependency specs.
func (g *DependencyGraph) AddNode(name string, deps []di.Dep) {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}

	g.nodes[name] = &node{
		name: name,
		deps: deps,
	}
}

// Nodes returns the node names in insertion order.
func (g *DependencyGraph) Nodes() []string {
	return slices.Clone(g.order)
}

// GetDependencies returns the dependency names for a node.
func (g *DependencyGraph) GetDependencies(name string) []string {
	if node, ok := g.nodes[name]; ok {
		return di.DepNames(node.deps)
	}

	return nil
}

// GetDeps returns the full Dep specs for a node.
func (g *DependencyGraph) GetDeps(name string) []di.Dep {
	if node, ok := g.nodes[name]; ok {
		return node.deps
	}

	return nil
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(name string) bool {
	_, ok := g.nodes[name]

	return ok
}

// TopologicalSort returns nodes in dependency order.
// Nodes without dependencies maintain their insertion order.
// Returns error if a cycle is detected.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	for _, name := range g.order {
		if cycle := g.visit(name, visited, nil, &result); cycle != nil {
			return nil, ErrCyclicDependency(cycle)
		}
	}

	return result, nil
}

// FindCycle returns the first cycle reachable from start, as a path that
// begins and ends with the same node, or nil when there is none.
func (g *DependencyGraph) FindCycle(start string) []string {
	var result []string

	return g.visit(start, make(map[string]bool), nil, &result)
}

// visit performs DFS traversal. path holds the nodes currently being visited.
func (g *DependencyGraph) visit(name string, visited map[string]bool, path []string, result *[]string) []string {
	if visited[name] {
		return nil
	}

	if i := slices.Index(path, name); i >= 0 {
		cycle := slices.Clone(path[i:])

		return append(cycle, name)
	}

	node := g.nodes[name]
	if node == nil {
		// Not registered, may be an optional dependency
		return nil
	}

	path = append(path, name)

	for _, dep := range node.deps {
		if cycle := g.visit(dep.Name, visited, path, result); cycle != nil {
			return cycle
		}
	}

	visited[name] = true
	*result = append(*result, name)

	return nil
}

// Graph returns the component graph of the registry. The graph is rebuilt
// lazily after registrations change it.
func (r *Registry) Graph() *DependencyGraph {
	r.graphMu.Lock()
	defer r.graphMu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.graph != nil && r.graphVersion == r.version {
		return r.graph
	}

	g := NewDependencyGraph()

	for _, targetID := range slices.Sorted(maps.Keys(r.aliases)) {
		byName := r.aliases[targetID]
		for _, qualifier := range slices.Sorted(maps.Keys(byName)) {
			cfg := r.finalized[byName[qualifier]]
			g.AddNode(slotKey(targetID, qualifier), configDeps(cfg))
		}
	}

	r.graph = g
	r.graphVersion = r.version

	return g
}

// configDeps lists the dependencies of a config, constructor first, then
// fields by name.
func configDeps(cfg *InjectableConfig) []di.Dep {
	deps := make([]di.Dep, 0, len(cfg.ConstructorDeps)+len(cfg.FieldDeps))
	for _, dep := range cfg.ConstructorDeps {
		deps = append(deps, dep.dep())
	}

	for _, name := range cfg.FieldNames() {
		deps = append(deps, cfg.FieldDeps[name].dep())
	}

	return deps
}

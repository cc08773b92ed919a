package depot

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/di"
)

func eager(names ...string) []di.Dep {
	deps := make([]di.Dep, 0, len(names))
	for _, name := range names {
		deps = append(deps, di.Dep{Name: name, Mode: di.DepEager})
	}

	return deps
}

func TestDependencyGraph_TopologicalSort_Simple(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", nil)
	g.AddNode("b", eager("a"))
	g.AddNode("c", eager("b"))

	result, err := g.TopologicalSort()
	require.NoError(t, err)

	// Should be in dependency order: a, b, c
	assert.Equal(t, []string{"a", "b", "c"}, result)
}

func TestDependencyGraph_TopologicalSort_Complex(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("d", eager("b", "c"))
	g.AddNode("b", eager("a"))
	g.AddNode("c", eager("a"))
	g.AddNode("a", nil)

	result, err := g.TopologicalSort()
	require.NoError(t, err)

	aIdx := slices.Index(result, "a")
	bIdx := slices.Index(result, "b")
	cIdx := slices.Index(result, "c")
	dIdx := slices.Index(result, "d")

	assert.Less(t, aIdx, bIdx)
	assert.Less(t, aIdx, cIdx)
	assert.Less(t, bIdx, dIdx)
	assert.Less(t, cIdx, dIdx)
}

func TestDependencyGraph_TopologicalSort_Cycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", eager("b"))
	g.AddNode("b", eager("a"))

	_, err := g.TopologicalSort()
	assert.ErrorIs(t, err, ErrCyclicDependencySentinel)
}

func TestDependencyGraph_TopologicalSort_MissingDependency(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", eager("nonexistent"))

	// Missing dependencies are skipped
	result, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result)
}

func TestDependencyGraph_TopologicalSort_Empty(t *testing.T) {
	result, err := NewDependencyGraph().TopologicalSort()
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestDependencyGraph_FindCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("entry", eager("a"))
	g.AddNode("a", eager("b"))
	g.AddNode("b", eager("c"))
	g.AddNode("c", eager("a"))
	g.AddNode("free", eager("missing"))

	assert.Equal(t, []string{"a", "b", "c", "a"}, g.FindCycle("entry"))
	assert.Equal(t, []string{"b", "c", "a", "b"}, g.FindCycle("b"))
	assert.Nil(t, g.FindCycle("free"))
	assert.Nil(t, g.FindCycle("unknown"))
}

func TestDependencyGraph_Accessors(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("b", nil)
	g.AddNode("a", eager("b"))
	g.AddNode("b", eager("c"))

	assert.Equal(t, []string{"b", "a"}, g.Nodes(), "re-adding a node keeps its position")
	assert.Equal(t, []string{"c"}, g.GetDependencies("b"))
	assert.Len(t, g.GetDeps("a"), 1)
	assert.True(t, g.HasNode("a"))
	assert.False(t, g.HasNode("c"))
	assert.Nil(t, g.GetDependencies("c"))
}

func TestRegistry_Graph(t *testing.T) {
	r := newTestRegistry(t)

	db := synthetic("GraphDB", func() *resDB { return &resDB{} })
	cache := synthetic("GraphCache", func() *resCache { return &resCache{} })
	svc := synthetic("GraphService", func(d *resDB) *resService { return &resService{db: d} })

	require.NoError(t, r.FinalizeClass(db))
	require.NoError(t, r.RegisterConstructor(svc, DependsOn(db)))
	require.NoError(t, r.RegisterProperty(svc, "cache", DependsOn(cache).AsOptional()))
	require.NoError(t, r.FinalizeClass(svc))

	g := r.Graph()
	assert.Same(t, g, r.Graph(), "graph is cached until registrations change")

	svcKey := slotKey(svc.ID(), DefaultQualifier)
	dbKey := slotKey(db.ID(), DefaultQualifier)

	deps := g.GetDeps(svcKey)
	require.Len(t, deps, 2)
	assert.Equal(t, dbKey, deps[0].Name)
	assert.Equal(t, di.DepEager, deps[0].Mode)
	assert.Equal(t, di.DepOptional, deps[1].Mode)

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Less(t, slices.Index(order, dbKey), slices.Index(order, svcKey))

	require.NoError(t, r.FinalizeClass(cache))

	rebuilt := r.Graph()
	assert.NotSame(t, g, rebuilt)
	assert.True(t, rebuilt.HasNode(slotKey(cache.ID(), DefaultQualifier)))

	_, err = r.GetInstance(context.Background(), svc, "")
	require.NoError(t, err)
	assert.Same(t, rebuilt, r.Graph(), "resolution does not invalidate the graph")
}

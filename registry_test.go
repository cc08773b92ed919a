package depot

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regLeaf struct{ name string }

type regNode struct {
	leaf *regLeaf
}

type dupA struct{}

type dupB struct{}

func TestRegistry_ID(t *testing.T) {
	a := newTestRegistry(t)
	b := newTestRegistry(t)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, a.LiveReload())
	assert.True(t, newTestRegistry(t, WithLiveReload(true)).LiveReload())
}

func TestRegistry_PendingIsNotResolvable(t *testing.T) {
	r := newTestRegistry(t)
	leaf := synthetic("PendingLeaf", func() *regLeaf { return &regLeaf{} })

	require.NoError(t, r.RegisterConstructor(leaf))
	assert.False(t, r.Has(leaf, ""))

	_, err := r.GetInstance(context.Background(), leaf, "")
	assert.ErrorIs(t, err, ErrDependencyNotFoundSentinel)

	require.NoError(t, r.FinalizeClass(leaf))
	assert.True(t, r.Has(leaf, ""))
	assert.True(t, r.Has(leaf, DefaultQualifier))
}

func TestRegistry_DefaultQualifierFilled(t *testing.T) {
	r := newTestRegistry(t)
	leaf := synthetic("DefaultsLeaf", func() *regLeaf { return &regLeaf{} })
	node := synthetic("DefaultsNode", func(l *regLeaf) *regNode { return &regNode{leaf: l} })

	require.NoError(t, r.RegisterConstructor(node, Descriptor{Target: leaf}))
	require.NoError(t, r.RegisterProperty(node, "leaf", Descriptor{Target: leaf, Optional: true}))
	require.NoError(t, r.FinalizeClass(node))

	info, ok := r.InspectComponent(node, "")
	require.True(t, ok)
	assert.Equal(t, DefaultQualifier, info.Qualifier)
	require.Len(t, info.Deps, 2)
	assert.Equal(t, slotKey(leaf.ID(), DefaultQualifier), info.Deps[0].Name)
	assert.Equal(t, slotKey(leaf.ID(), DefaultQualifier), info.Fields["leaf"])
}

func TestRegistry_RegisterConstructorReplaces(t *testing.T) {
	r := newTestRegistry(t)
	a := synthetic("ReplaceA", nil)
	b := synthetic("ReplaceB", nil)
	node := synthetic("ReplaceNode", nil)

	require.NoError(t, r.RegisterConstructor(node, DependsOn(a), DependsOn(b)))
	require.NoError(t, r.RegisterConstructor(node, DependsOn(b)))
	require.NoError(t, r.FinalizeClass(node))

	info, _ := r.InspectComponent(node, "")
	require.Len(t, info.Deps, 1)
	assert.Equal(t, DependsOn(b).key(), info.Deps[0].Name)
}

func TestRegistry_AliasOverwrite(t *testing.T) {
	r := newTestRegistry(t)
	target := ClassOf[testGreeter]()

	require.NoError(t, r.FinalizeClass(Define[englishGreeter](func() englishGreeter { return englishGreeter{} }), As(target)))
	require.NoError(t, r.FinalizeClass(Define[frenchGreeter](func() frenchGreeter { return frenchGreeter{} }), As(target)))

	g, err := Get[testGreeter](context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "bonjour", g.Greet())
	candidates := r.GetCandidates(target)
	require.Len(t, candidates, 1)
	assert.Equal(t, DefaultQualifier, candidates[0].Qualifier)
	assert.Equal(t, ClassOf[frenchGreeter]().ID(), candidates[0].ID())
}

func TestRegistry_MultipleQualifiers(t *testing.T) {
	r := newTestRegistry(t)
	target := ClassOf[testGreeter]()

	require.NoError(t, r.FinalizeClass(Define[englishGreeter](func() englishGreeter { return englishGreeter{} }), As(target), Named("en")))
	require.NoError(t, r.FinalizeClass(Define[frenchGreeter](func() frenchGreeter { return frenchGreeter{} }), As(target), Named("fr")))

	ctx := context.Background()

	en, err := Get[testGreeter](ctx, r, "en")
	require.NoError(t, err)
	fr, err := Get[testGreeter](ctx, r, "fr")
	require.NoError(t, err)

	assert.Equal(t, "hello", en.Greet())
	assert.Equal(t, "bonjour", fr.Greet())
	candidates := r.GetCandidates(target)
	require.Len(t, candidates, 2)
	assert.Equal(t, "en", candidates[0].Qualifier)
	assert.Equal(t, "fr", candidates[1].Qualifier)
	assert.Equal(t, ClassOf[englishGreeter]().ID(), candidates[0].ID())

	candidates[0].Qualifier = "changed"
	assert.Equal(t, "en", r.GetCandidates(target)[0].Qualifier, "candidates are copies")

	_, err = Get[testGreeter](ctx, r)
	assert.ErrorIs(t, err, ErrDependencyNotFoundSentinel)
}

func TestRegistry_FinalizeAmendsPreviousConfig(t *testing.T) {
	r := newTestRegistry(t)
	leaf := synthetic("AmendLeaf", func() *regLeaf { return &regLeaf{} })
	node := synthetic("AmendNode", func(l *regLeaf) *regNode { return &regNode{leaf: l} })

	require.NoError(t, r.RegisterConstructor(node, DependsOn(leaf)))
	require.NoError(t, r.FinalizeClass(node, Named("primary"), AutoCreate(5)))

	require.NoError(t, r.RegisterProperty(node, "leaf", DependsOn(leaf)))
	require.NoError(t, r.FinalizeClass(node))

	info, ok := r.InspectComponent(node, "primary")
	require.True(t, ok, "qualifier of the first finalize is kept")
	assert.Len(t, info.Deps, 2, "constructor deps of the first finalize are kept")
	assert.Contains(t, info.Fields, "leaf")
	assert.True(t, info.AutoCreate)
	assert.Equal(t, 5, info.Priority)
}

func TestRegistry_FinalizeMovesPendingConfig(t *testing.T) {
	r := newTestRegistry(t)
	node := synthetic("MoveNode", nil)

	require.NoError(t, r.RegisterConstructor(node))
	assert.Contains(t, r.pending, node.ID())

	require.NoError(t, r.FinalizeClass(node))
	assert.NotContains(t, r.pending, node.ID())
	assert.Contains(t, r.finalized, node.ID())
	assert.Equal(t, node.ID(), r.aliases[node.ID()][DefaultQualifier])
}

func TestRegistry_IdentityCollision(t *testing.T) {
	r := newTestRegistry(t)

	a := &Class{Name: "Dup", Source: "internal/dup.go", Type: reflect.TypeFor[*dupA]()}
	b := &Class{Name: "Dup", Source: "internal/dup.go", Type: reflect.TypeFor[*dupB]()}

	require.Equal(t, a.ID(), b.ID())
	require.NoError(t, r.FinalizeClass(a))

	err := r.FinalizeClass(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentityCollisionSentinel)
	assert.Contains(t, err.Error(), "depot.dupA")

	err = r.RegisterConstructor(b)
	assert.ErrorIs(t, err, ErrIdentityCollisionSentinel)
}

func TestRegistry_RejectedTargetLeavesPendingIntact(t *testing.T) {
	r := newTestRegistry(t)

	a := &Class{Name: "DupTarget", Source: "internal/dup_target.go", Type: reflect.TypeFor[*dupA]()}
	b := &Class{Name: "DupTarget", Source: "internal/dup_target.go", Type: reflect.TypeFor[*dupB]()}
	impl := synthetic("DupTargetImpl", nil)

	require.NoError(t, r.FinalizeClass(a))
	require.NoError(t, r.RegisterConstructor(impl))

	err := r.FinalizeClass(impl, As(b), Named("shadow"), AutoCreate(3))
	assert.ErrorIs(t, err, ErrIdentityCollisionSentinel)

	cfg := r.pending[impl.ID()]
	require.NotNil(t, cfg)
	assert.Same(t, impl, cfg.Target)
	assert.Equal(t, DefaultQualifier, cfg.Qualifier)
	assert.False(t, cfg.AutoCreate.Enabled)
	assert.NotContains(t, r.finalized, impl.ID())

	require.NoError(t, r.FinalizeClass(impl))
	assert.True(t, r.Has(impl, ""))
	assert.False(t, r.Has(a, "shadow"))
}

func TestRegistry_ReRegistrationIsNotCollision(t *testing.T) {
	r := newTestRegistry(t)

	first := &Class{Name: "Reloaded", Source: "internal/reloaded.go", Type: reflect.TypeFor[*dupA]()}
	second := &Class{Name: "Reloaded", Source: "internal/reloaded.go", Type: reflect.TypeFor[*dupA]()}
	untyped := &Class{Name: "Reloaded", Source: "internal/reloaded.go"}

	require.NoError(t, r.FinalizeClass(first))
	require.NoError(t, r.FinalizeClass(second))
	require.NoError(t, r.FinalizeClass(untyped))
}

func TestRegistry_InvalidInput(t *testing.T) {
	r := newTestRegistry(t)
	node := synthetic("InvalidNode", nil)

	assert.ErrorIs(t, r.FinalizeClass(nil), ErrInvalidClass)
	assert.ErrorIs(t, r.RegisterConstructor(nil), ErrInvalidClass)
	assert.ErrorIs(t, r.RegisterConstructor(node, Descriptor{}), ErrInvalidClass)
	assert.ErrorIs(t, r.RegisterProperty(node, "", DependsOn(node)), ErrInvalidClass)

	_, err := r.GetInstance(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrInvalidClass)
	assert.False(t, r.Has(nil, ""))
}

func TestRegistry_AutoCreateQueuedAtFinalize(t *testing.T) {
	r := newTestRegistry(t)
	a := synthetic("QueueA", nil)
	b := synthetic("QueueB", nil)

	require.NoError(t, r.FinalizeClass(a, AutoCreate(30)))
	require.NoError(t, r.FinalizeClass(b))
	require.NoError(t, r.FinalizeClass(b, AutoCreate()))

	require.Len(t, r.autoCreate, 2)
	assert.Equal(t, autoCreateEntry{targetID: a.ID(), qualifier: DefaultQualifier, priority: 30}, r.autoCreate[0])
	assert.Equal(t, autoCreateEntry{targetID: b.ID(), qualifier: DefaultQualifier, priority: DefaultAutoCreatePriority}, r.autoCreate[1])
}

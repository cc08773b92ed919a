package depot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helperRepo interface {
	Find(id int) string
}

type helperMemRepo struct {
	prefix string
}

func (m *helperMemRepo) Find(id int) string { return m.prefix + string(rune('0'+id)) }

type helperService struct {
	repo helperRepo
}

func TestProvide(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, ProvideAs[helperRepo, *helperMemRepo](r, func() *helperMemRepo {
		return &helperMemRepo{prefix: "user-"}
	}))
	require.NoError(t, Provide[*helperService](r,
		func(repo helperRepo) *helperService { return &helperService{repo: repo} },
		Inject[helperRepo](""),
		AutoCreate(3),
	))

	svc, err := Get[*helperService](ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "user-7", svc.repo.Find(7))

	info, ok := r.InspectComponent(ClassOf[*helperService](), "")
	require.True(t, ok)
	assert.True(t, info.AutoCreate)
	assert.Equal(t, 3, info.Priority)
}

func TestProvide_InvalidArguments(t *testing.T) {
	r := newTestRegistry(t)

	err := Provide[*helperService](r, "not a function")
	assert.ErrorIs(t, err, ErrInvalidClass)

	err = Provide[*helperService](r, func() *helperService { return nil }, 42)
	assert.ErrorIs(t, err, ErrInvalidClass)
	assert.Contains(t, err.Error(), "int")
}

func TestProvideValue(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	repo := &helperMemRepo{prefix: "fixed-"}
	require.NoError(t, ProvideValue[helperRepo](r, repo, Named("fixed")))

	got, err := Get[helperRepo](ctx, r, "fixed")
	require.NoError(t, err)
	assert.Same(t, repo, got)

	assert.Same(t, repo, Must[helperRepo](ctx, r, "fixed"))
	assert.Panics(t, func() { Must[helperRepo](ctx, r, "other") })
}

func TestDeref(t *testing.T) {
	db := &resDB{url: "x"}

	got, err := Deref[*resDB](db)
	require.NoError(t, err)
	assert.Same(t, db, got)

	ref := newRef(db)

	got, err = Deref[*resDB](ref)
	require.NoError(t, err)
	assert.Same(t, db, got)

	self, err := Deref[*Ref](ref)
	require.NoError(t, err)
	assert.Same(t, ref, self)

	empty, err := Deref[*resDB](nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = Deref[*resCache](db)
	assert.ErrorIs(t, err, ErrTypeMismatchSentinel)
}

func TestProxyOf(t *testing.T) {
	ref := newRef(englishGreeter{})
	factory := ProxyOf(func(current func() testGreeter) testGreeter {
		return &greeterProxy{current: current}
	})

	g := factory(ref).(testGreeter)
	assert.Equal(t, "hello", g.Greet())

	ref.retarget(frenchGreeter{})
	assert.Equal(t, "bonjour", g.Greet())
	assert.Equal(t, int64(1), ref.Generation())
}

func TestKey(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	primary := NewKey[helperRepo]("primary")
	fallback := NewKey[helperRepo]("")

	assert.Equal(t, "primary", primary.Qualifier())
	assert.Equal(t, DefaultQualifier, fallback.Qualifier())
	assert.Same(t, ClassOf[helperRepo](), primary.Class())
	assert.Equal(t, slotKey(ClassOf[helperRepo]().ID(), "primary"), primary.String())
	assert.Equal(t, primary.String(), primary.Dep().key())
	assert.True(t, primary.OptionalDep().Optional)

	assert.False(t, HasKey(r, primary))

	require.NoError(t, ProvideAs[helperRepo, *helperMemRepo](r, func() *helperMemRepo {
		return &helperMemRepo{prefix: "p-"}
	}, Named("primary")))

	assert.True(t, HasKey(r, primary))
	assert.False(t, HasKey(r, fallback))

	repo, err := ResolveKey(ctx, r, primary)
	require.NoError(t, err)
	assert.Equal(t, "p-1", repo.Find(1))
	assert.Same(t, repo, MustKey(ctx, r, primary))

	_, err = ResolveKey(ctx, r, fallback)
	assert.ErrorIs(t, err, ErrDependencyNotFoundSentinel)
	assert.Panics(t, func() { MustKey(ctx, r, fallback) })
}

func TestDescriptor(t *testing.T) {
	target := ClassOf[helperRepo]()

	d := Inject[helperRepo]("")
	assert.Same(t, target, d.Target)
	assert.Equal(t, DefaultQualifier, d.Qualifier)
	assert.False(t, d.Optional)

	named := d.Named("replica")
	assert.Equal(t, "replica", named.Qualifier)
	assert.Equal(t, DefaultQualifier, d.Qualifier, "Named returns a copy")

	opt := OptionalInject[helperRepo]("replica")
	assert.True(t, opt.Optional)
	assert.Equal(t, slotKey(target.ID(), "replica"), opt.key())
	assert.Equal(t, named.key(), opt.key())
}

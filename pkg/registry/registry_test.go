package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_Idempotent(t *testing.T) {
	reg := registry.New()

	root := reg.GetOrCreateCollection(domain.NoParent, 0)
	assert.Equal(t, root, reg.GetOrCreateCollection(domain.NoParent, 0))
	assert.NotEqual(t, root, reg.GetOrCreateCollection(domain.NoParent, 1))

	req := reg.GetOrCreateRequest(root, 0)
	assert.Equal(t, req, reg.GetOrCreateRequest(root, 0))

	colls, reqs := reg.Stats()
	assert.Equal(t, 2, colls)
	assert.Equal(t, 1, reqs)
}

func TestHandles_AreUniqueAcrossKinds(t *testing.T) {
	reg := registry.New()

	c := reg.CreateCollection(domain.NoParent, 0)
	r := reg.CreateRequest(c, 0)
	c2 := reg.CreateCollection(domain.NoParent, 1)

	assert.Equal(t, domain.CollectionHandle("1"), c)
	assert.Equal(t, domain.RequestHandle("2"), r)
	assert.Equal(t, domain.CollectionHandle("3"), c2)
}

func TestResolve_RoundTrip(t *testing.T) {
	tree := []domain.Collection{
		{Name: "a", Folders: []domain.Collection{
			{Name: "a/0"},
			{Name: "a/1", Folders: []domain.Collection{{Name: "a/1/0"}},
				Requests: []domain.Request{{Name: "r0"}, {Name: "r1"}}},
		}},
		{Name: "b"},
	}

	reg := registry.New()
	a := reg.GetOrCreateCollection(domain.NoParent, 0)
	b := reg.GetOrCreateCollection(domain.NoParent, 1)
	a1 := reg.GetOrCreateCollection(a, 1)
	a10 := reg.GetOrCreateCollection(a1, 0)
	r1 := reg.GetOrCreateRequest(a1, 1)

	for handle, want := range map[domain.CollectionHandle]string{a: "a", b: "b", a1: "a/1", a10: "a/1/0"} {
		path, ok := reg.ResolveCollectionPath(handle)
		require.True(t, ok, "handle %s should resolve", handle)
		node, ok := domain.NavigateToFolder(tree, path)
		require.True(t, ok)
		assert.Equal(t, want, node.Name)
	}

	path, ok := reg.ResolveRequestPath(r1)
	require.True(t, ok)
	assert.Equal(t, domain.IndexPath{0, 1, 1}, path)
	req, ok := domain.RequestAt(tree, path)
	require.True(t, ok)
	assert.Equal(t, "r1", req.Name)
}

func TestResolve_CascadingInvalidation(t *testing.T) {
	var dropped []string
	reg := registry.New(registry.WithInvalidateFunc(func(kind domain.HandleKind, reason domain.InvalidationReason, n int) {
		dropped = append(dropped, string(kind)+":"+string(reason))
	}))

	a := reg.GetOrCreateCollection(domain.NoParent, 0)
	b := reg.GetOrCreateCollection(a, 0)
	c := reg.GetOrCreateCollection(b, 0)
	req := reg.GetOrCreateRequest(c, 0)

	// Simulate the tree losing A without the registry being told about B and C.
	require.True(t, reg.DeleteCollection(a))

	_, ok := reg.ResolveCollectionPath(c)
	assert.False(t, ok)

	_, ok = reg.Collection(b)
	assert.False(t, ok, "B must be cleaned up")
	_, ok = reg.Collection(c)
	assert.False(t, ok, "C must be cleaned up")

	// The request now dangles directly.
	_, ok = reg.ResolveRequestPath(req)
	assert.False(t, ok)
	_, ok = reg.Request(req)
	assert.False(t, ok)

	assert.Contains(t, dropped, "collection:cascade")
	assert.Contains(t, dropped, "request:cascade")
}

func TestResolveRequestPath_CascadesAncestors(t *testing.T) {
	reg := registry.New()
	a := reg.GetOrCreateCollection(domain.NoParent, 0)
	b := reg.GetOrCreateCollection(a, 2)
	req := reg.GetOrCreateRequest(b, 3)

	path, ok := reg.ResolveRequestPath(req)
	require.True(t, ok)
	assert.Equal(t, domain.IndexPath{0, 2, 3}, path)

	reg.DeleteCollection(a)
	_, ok = reg.ResolveRequestPath(req)
	assert.False(t, ok)

	_, ok = reg.Collection(b)
	assert.False(t, ok)
	_, ok = reg.Request(req)
	assert.False(t, ok)
}

func TestRelocate_SwapsWithoutCollision(t *testing.T) {
	reg := registry.New()
	h0 := reg.GetOrCreateCollection(domain.NoParent, 0)
	h1 := reg.GetOrCreateCollection(domain.NoParent, 1)

	reg.RelocateCollections(map[domain.CollectionHandle]registry.Entry{
		h0: {Parent: domain.NoParent, Index: 1},
		h1: {Parent: domain.NoParent, Index: 0},
	})

	got, ok := reg.CollectionAt(domain.NoParent, 0)
	require.True(t, ok)
	assert.Equal(t, h1, got)
	got, ok = reg.CollectionAt(domain.NoParent, 1)
	require.True(t, ok)
	assert.Equal(t, h0, got)

	colls, _ := reg.Stats()
	assert.Equal(t, 2, colls)
}

func TestCreate_EvictsStaleOccupant(t *testing.T) {
	var evicted int
	reg := registry.New(registry.WithInvalidateFunc(func(_ domain.HandleKind, reason domain.InvalidationReason, n int) {
		if reason == domain.InvalidatedEvicted {
			evicted += n
		}
	}))

	stale := reg.CreateCollection(domain.NoParent, 0)
	fresh := reg.CreateCollection(domain.NoParent, 0)

	assert.NotEqual(t, stale, fresh)
	_, ok := reg.Collection(stale)
	assert.False(t, ok)
	got, _ := reg.CollectionAt(domain.NoParent, 0)
	assert.Equal(t, fresh, got)
	assert.Equal(t, 1, evicted)
}

func TestChildren_TrackParent(t *testing.T) {
	reg := registry.New()
	p := reg.GetOrCreateCollection(domain.NoParent, 0)
	c0 := reg.GetOrCreateCollection(p, 0)
	c1 := reg.GetOrCreateCollection(p, 1)
	r0 := reg.GetOrCreateRequest(p, 0)

	assert.Equal(t, []domain.CollectionHandle{c0, c1}, reg.CollectionChildren(p))
	assert.Equal(t, []domain.RequestHandle{r0}, reg.RequestChildren(p))

	reg.DeleteCollection(c0)
	assert.Equal(t, []domain.CollectionHandle{c1}, reg.CollectionChildren(p))
}

func TestReplace_DropsUnlisted(t *testing.T) {
	reg := registry.New()
	keep := reg.GetOrCreateCollection(domain.NoParent, 0)
	drop := reg.GetOrCreateCollection(domain.NoParent, 1)
	req := reg.GetOrCreateRequest(keep, 0)

	reg.Replace(
		map[domain.CollectionHandle]registry.Entry{keep: {Parent: domain.NoParent, Index: 1}},
		map[domain.RequestHandle]registry.Entry{req: {Parent: keep, Index: 0}},
	)

	_, ok := reg.Collection(drop)
	assert.False(t, ok)
	e, ok := reg.Collection(keep)
	require.True(t, ok)
	assert.Equal(t, 1, e.Index)

	// Tickets keep counting after a replace.
	next := reg.CreateCollection(domain.NoParent, 0)
	assert.Equal(t, domain.CollectionHandle("4"), next)
}

func TestCommit_SignalsWatchersOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New()
	ch := reg.Watch(ctx)
	h := reg.GetOrCreateCollection(domain.NoParent, 0)

	assert.False(t, reg.Commit(), "issuing handles is not a change")

	reg.DeleteCollection(h)
	reg.Touch()
	assert.True(t, reg.Commit())
	assert.False(t, reg.Commit())

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal")
	}

	select {
	case <-ch:
		t.Fatal("signals must be coalesced per commit")
	default:
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := registry.New()
	ch := reg.Watch(ctx)
	assert.Equal(t, 1, reg.Watchers())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel should close")
	}
	assert.Eventually(t, func() bool { return reg.Watchers() == 0 }, time.Second, 10*time.Millisecond)
}

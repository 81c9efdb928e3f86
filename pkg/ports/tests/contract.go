package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractTree() []domain.Collection {
	root := domain.NewCollection("contract")
	folder := domain.NewCollection("folder")
	folder.Requests = append(folder.Requests, domain.NewRequest("get users", "GET", "https://example.test/users"))
	root.Folders = append(root.Folders, folder)
	root.Requests = append(root.Requests, domain.NewRequest("ping", "HEAD", "https://example.test"))
	return []domain.Collection{root}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store ports.SnapshotStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Save and Load", func(t *testing.T) {
		tree := contractTree()

		err := store.Save(ctx, key, tree)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded, 1)
		assert.Equal(t, tree[0].RefID, loaded[0].RefID)
		assert.Equal(t, "folder", loaded[0].Folders[0].Name)
		assert.Equal(t, tree[0].Folders[0].Requests[0].RefID, loaded[0].Folders[0].Requests[0].RefID)
		assert.Equal(t, "HEAD", loaded[0].Requests[0].Method)
	})

	t.Run("Load isolates callers", func(t *testing.T) {
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded[0].Name = "mutated"

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "contract", again[0].Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, contractTree()))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})
}

// RunCollectionStoreContract verifies the dispatch/subscribe behavior every
// CollectionStore must provide. newStore must return an empty store.
func RunCollectionStoreContract(t *testing.T, newStore func() ports.CollectionStore) {
	ctx := context.Background()

	t.Run("Dispatch notifies before returning", func(t *testing.T) {
		store := newStore()
		var seen []ports.Change
		unsubscribe := store.Subscribe(func(c ports.Change) { seen = append(seen, c) })
		defer unsubscribe()

		coll := domain.NewCollection("first")
		err := store.Dispatch(ctx, domain.NewDispatch(domain.AddCollectionPayload{Collection: coll}))
		require.NoError(t, err)

		require.Len(t, seen, 1)
		assert.Equal(t, domain.DispatchAddCollection, seen[0].Dispatch.Dispatcher)
		assert.Empty(t, seen[0].Prev)
		require.Len(t, seen[0].Next, 1)
		assert.Equal(t, coll.RefID, seen[0].Next[0].RefID)
		assert.Len(t, store.State(), 1)
	})

	t.Run("Unsubscribe stops delivery", func(t *testing.T) {
		store := newStore()
		calls := 0
		unsubscribe := store.Subscribe(func(ports.Change) { calls++ })
		unsubscribe()

		require.NoError(t, store.Dispatch(ctx, domain.NewDispatch(domain.AddCollectionPayload{Collection: domain.NewCollection("x")})))
		assert.Zero(t, calls)
	})

	t.Run("Invalid path is rejected without notification", func(t *testing.T) {
		store := newStore()
		calls := 0
		defer store.Subscribe(func(ports.Change) { calls++ })()

		err := store.Dispatch(ctx, domain.NewDispatch(domain.RemoveFolderPayload{Path: domain.IndexPath{4, 2}}))
		assert.ErrorIs(t, err, domain.ErrInvalidPath)
		assert.Zero(t, calls)
	})

	t.Run("Failed expectation drops the dispatch", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Dispatch(ctx, domain.NewDispatch(domain.SetCollectionsPayload{Entries: contractTree()})))
		folder := store.State()[0].Folders[0]
		calls := 0
		defer store.Subscribe(func(ports.Change) { calls++ })()

		remove := domain.NewDispatch(domain.RemoveRequestPayload{Path: domain.IndexPath{0, 0}, RequestIndex: 0})
		stale := remove.Expecting(domain.Expectation{Path: domain.IndexPath{0, 0, 0}, Request: true, RefID: "elsewhere"})
		err := store.Dispatch(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrStaleTarget)
		assert.Zero(t, calls)
		assert.Len(t, store.State()[0].Folders[0].Requests, 1)

		current := remove.Expecting(
			domain.Expectation{Path: domain.IndexPath{0, 0}, RefID: folder.RefID},
			domain.Expectation{Path: domain.IndexPath{0, 0, 0}, Request: true, RefID: folder.Requests[0].RefID},
		)
		require.NoError(t, store.Dispatch(ctx, current))
		assert.Equal(t, 1, calls)
		assert.Empty(t, store.State()[0].Folders[0].Requests)
	})

	t.Run("Prev is isolated from Next", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Dispatch(ctx, domain.NewDispatch(domain.SetCollectionsPayload{Entries: contractTree()})))

		var got ports.Change
		defer store.Subscribe(func(c ports.Change) { got = c })()
		require.NoError(t, store.Dispatch(ctx, domain.NewDispatch(domain.RemoveFolderPayload{Path: domain.IndexPath{0, 0}})))

		assert.Len(t, got.Prev[0].Folders, 1)
		assert.Empty(t, got.Next[0].Folders)
	})

	t.Run("Concurrent dispatches are serialized", func(t *testing.T) {
		store := newStore()
		var (
			mu      sync.Mutex
			lengths []int
		)
		defer store.Subscribe(func(c ports.Change) {
			mu.Lock()
			lengths = append(lengths, len(c.Next))
			mu.Unlock()
		})()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Dispatch(ctx, domain.NewDispatch(domain.AddCollectionPayload{Collection: domain.NewCollection("c")}))
			}()
		}
		wg.Wait()

		require.Len(t, lengths, 20)
		for i, n := range lengths {
			assert.Equal(t, i+1, n, "changes must arrive in dispatch order")
		}
	})
}

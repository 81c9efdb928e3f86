package ports

import (
	"context"

	"github.com/aretw0/grove/pkg/domain"
)

// Change is one observed transition of the collection tree: the dispatch
// that caused it and the tree before and after.
type Change struct {
	Dispatch domain.Dispatch
	Prev     []domain.Collection
	Next     []domain.Collection
}

// CollectionStore is the reactive collection tree the workspace providers
// observe. Implementations own the tree; providers never write to it except
// through Dispatch.
type CollectionStore interface {
	// State returns a snapshot of the current tree. Callers may not mutate it.
	State() []domain.Collection

	// Dispatch applies a structural or editing operation. It returns after
	// every subscriber has observed the resulting Change, so a caller can
	// read provider state derived from it right away.
	// Payload errors wrap domain.ErrInvalidDispatch or domain.ErrInvalidPath.
	// A dispatch whose expectations fail is dropped with domain.ErrStaleTarget.
	Dispatch(ctx context.Context, d domain.Dispatch) error

	// Subscribe registers fn for every future Change, delivered in dispatch
	// order and never concurrently. The returned function unsubscribes.
	Subscribe(fn func(Change)) (unsubscribe func())
}

// SnapshotStore persists whole collection trees, the way the sync layer
// mirrors the local tree to a remote.
type SnapshotStore interface {
	// Save persists the tree under key.
	Save(ctx context.Context, key string, tree []domain.Collection) error

	// Load retrieves the tree saved under key.
	// Returns domain.ErrSnapshotNotFound if nothing was saved.
	Load(ctx context.Context, key string) ([]domain.Collection, error)

	// Delete removes the snapshot under key.
	Delete(ctx context.Context, key string) error
}

// Watchable defines an interface for snapshot stores that can notify about
// changes made by other writers.
type Watchable interface {
	// Watch returns a channel that receives the key of every snapshot
	// written elsewhere. It closes when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}

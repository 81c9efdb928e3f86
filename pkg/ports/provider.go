package ports

import (
	"context"

	"github.com/aretw0/grove/pkg/domain"
)

// WorkspaceProvider issues handles for the workspaces, collections and
// requests of one backend, keeps them pointing at the same nodes across
// tree mutations, and resolves them on demand.
//
// Getters never fail with a Go error: a missing node is
// domain.ResourceUnavailable, a foreign workspace handle domain.ResourceError.
type WorkspaceProvider interface {
	// ProviderID is a constant, persistable identifier.
	ProviderID() domain.ProviderID

	// GetWorkspace resolves a workspace handle to its metadata.
	GetWorkspace(handle domain.WorkspaceHandle) domain.Resource[domain.WorkspaceMeta]

	// GetRootCollections lists the root collections of a workspace.
	GetRootCollections(handle domain.WorkspaceHandle) domain.Resource[domain.RootCollections]

	// GetCollectionChildren lists the direct folders and requests of a collection.
	GetCollectionChildren(handle domain.CollectionHandle) domain.Resource[domain.CollectionChildren]

	// GetRequest resolves a request handle to the request.
	GetRequest(handle domain.RequestHandle) domain.Resource[domain.Request]

	// CreateCollection creates a collection under parent, or at the root
	// when parent is domain.NoParent, and returns its handle.
	CreateCollection(ctx context.Context, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, input domain.CreateCollectionInput) (domain.CollectionHandle, error)

	// CreateRequest appends req to the requests of parent.
	CreateRequest(ctx context.Context, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, req domain.Request) (domain.RequestHandle, error)

	// DeleteRequest removes the request referred to by handle.
	DeleteRequest(ctx context.Context, handle domain.RequestHandle) error

	// DeleteCollection removes the collection referred to by handle.
	DeleteCollection(ctx context.Context, handle domain.CollectionHandle) error

	// Watch signals after every change that may alter a getter's result.
	Watch(ctx context.Context) <-chan struct{}
}

// WorkspaceEditor is implemented by providers that support the remaining
// structural edits of the collection tree.
type WorkspaceEditor interface {
	// MoveCollection moves a collection to the end of dest's folders, or to
	// the end of the root when dest is domain.NoParent.
	MoveCollection(ctx context.Context, handle, dest domain.CollectionHandle) error

	// MoveRequest moves a request to the end of dest's requests.
	MoveRequest(ctx context.Context, handle domain.RequestHandle, dest domain.CollectionHandle) error

	// ReorderCollection moves a collection to position index among its
	// siblings; a negative index moves it to the end.
	ReorderCollection(ctx context.Context, handle domain.CollectionHandle, index int) error

	// ReorderRequest moves a request to position index inside its
	// collection; a negative index moves it to the end.
	ReorderRequest(ctx context.Context, handle domain.RequestHandle, index int) error

	// DuplicateCollection copies a collection with fresh identities next to
	// the original and returns the copy's handle.
	DuplicateCollection(ctx context.Context, handle domain.CollectionHandle) (domain.CollectionHandle, error)

	// RenameCollection changes the name of a collection.
	RenameCollection(ctx context.Context, handle domain.CollectionHandle, name string) error

	// UpdateRequest replaces the contents of a request, keeping its identity.
	UpdateRequest(ctx context.Context, handle domain.RequestHandle, req domain.Request) error
}

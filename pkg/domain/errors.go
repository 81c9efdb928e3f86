package domain

import "errors"

// ErrInvalidWorkspace is returned when a workspace handle is not recognized by a provider.
var ErrInvalidWorkspace = errors.New("invalid workspace")

// ErrHandleUnresolvable is returned by mutations whose target handle no longer
// references a node (removed, or an ancestor was removed).
var ErrHandleUnresolvable = errors.New("handle cannot be resolved")

// ErrProviderNotFound is raised when a provider id was never registered.
var ErrProviderNotFound = errors.New("provider not found")

// ErrInvalidPath is returned when an index path does not address a node.
var ErrInvalidPath = errors.New("invalid index path")

// ErrInvalidDispatch is returned by a store when a dispatch payload is inconsistent.
var ErrInvalidDispatch = errors.New("invalid dispatch")

// ErrStaleTarget is returned by a store when a node a dispatch was aimed at
// moved or was removed before the dispatch arrived.
var ErrStaleTarget = errors.New("dispatch target changed")

// ErrSnapshotNotFound is returned when no persisted tree snapshot exists.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrUnsupportedOperation is returned when a provider does not implement an optional operation.
var ErrUnsupportedOperation = errors.New("operation not supported by provider")

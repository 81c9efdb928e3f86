/*
Package ports defines the driven ports (interfaces) for the grove workspace engine.

These interfaces decouple the handle engine from the collection store it observes,
from the snapshot backends used by the sync layer, and from the concrete providers
registered with the workspace service.

# Key Interfaces

  - CollectionStore: the reactive collection tree (snapshot read, dispatch, change stream).
  - SnapshotStore: persists whole trees (memory, file, Redis).
  - DistributedLocker: serializes snapshot pushes across instances.
  - WorkspaceProvider: the handle-resolution contract exposed to consumers.
  - WorkspaceEditor: optional structural edits (move, reorder, duplicate, rename).
*/
package ports

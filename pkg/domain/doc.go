/*
Package domain contains the core models of the grove workspace engine.

It defines the collection tree, the opaque handles issued for its nodes, the
structural dispatches that mutate the tree, and the Resource envelope returned
to consumers. The package performs no I/O.

# Key Entities

  - Collection and Request: the tree nodes, each carrying a stable RefID.
  - IndexPath: a root-to-leaf address of a node.
  - WorkspaceHandle, CollectionHandle, RequestHandle: opaque node references.
  - Dispatch: a typed structural change applied by a collection store.
  - Resource: an available, unavailable or error result of handle resolution.
*/
package domain

package domain

// ProviderID identifies a workspace provider. Unlike handles it is a
// constant and may be persisted.
type ProviderID string

// WorkspaceHandle identifies a workspace within one provider. Not persistable.
type WorkspaceHandle string

// CollectionHandle identifies a collection or folder for the lifetime of a
// provider's registry. Not persistable.
type CollectionHandle string

// RequestHandle identifies a request for the lifetime of a provider's
// registry. Not persistable.
type RequestHandle string

// NoParent is the parent of every root-level collection.
const NoParent CollectionHandle = ""

// HandleKind tells collection and request handles apart in events and metrics.
type HandleKind string

const (
	KindCollection HandleKind = "collection"
	KindRequest    HandleKind = "request"
)

// WorkspaceMeta describes a workspace.
type WorkspaceMeta struct {
	Name string `json:"name"`
}

// CollectionMeta is the summary of a collection exposed next to its handle.
type CollectionMeta struct {
	Name string `json:"name"`
}

// RequestMeta is the summary of a request exposed next to its handle.
type RequestMeta struct {
	Name   string `json:"name"`
	Method string `json:"method"`
}

// CollectionItem pairs a collection handle with its summary.
type CollectionItem struct {
	Handle CollectionHandle `json:"handle"`
	Data   CollectionMeta   `json:"data"`
}

// RequestItem pairs a request handle with its summary.
type RequestItem struct {
	Handle RequestHandle `json:"handle"`
	Data   RequestMeta   `json:"data"`
}

// RootCollections is the ordered list of root collections of a workspace.
type RootCollections []CollectionItem

// CollectionChildren lists the direct children of a collection.
type CollectionChildren struct {
	Folders  []CollectionItem `json:"folders"`
	Requests []RequestItem    `json:"requests"`
}

// CreateCollectionInput describes a collection to create.
type CreateCollectionInput struct {
	Name    string     `json:"name"`
	Headers []KeyValue `json:"headers,omitempty"`
	Auth    *Auth      `json:"auth,omitempty"`
}

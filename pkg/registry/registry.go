package registry

import (
	"context"
	"strconv"

	"github.com/aretw0/grove/pkg/domain"
)

// InvalidateFunc is notified whenever handles leave the registry.
type InvalidateFunc func(kind domain.HandleKind, reason domain.InvalidationReason, count int)

// Registry issues opaque handles for collections and requests and maps them
// to (parent handle, index in parent) pairs.
//
// A Registry is not safe for concurrent use; its owner serializes access.
// Watch is the exception and may be called from any goroutine.
type Registry struct {
	ticket   uint64
	colls    *table[domain.CollectionHandle]
	reqs     *table[domain.RequestHandle]
	notifier notifier
	dirty    bool

	onInvalidate InvalidateFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithInvalidateFunc registers a callback for dropped handles.
func WithInvalidateFunc(fn InvalidateFunc) Option {
	return func(r *Registry) {
		r.onInvalidate = fn
	}
}

// New creates an empty registry. Tickets start at 1.
func New(opts ...Option) *Registry {
	r := &Registry{
		colls:    newTable[domain.CollectionHandle](),
		reqs:     newTable[domain.RequestHandle](),
		notifier: newNotifier(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) next() string {
	r.ticket++
	return strconv.FormatUint(r.ticket, 10)
}

// NextCollectionHandle mints a collection handle without registering it.
func (r *Registry) NextCollectionHandle() domain.CollectionHandle {
	return domain.CollectionHandle(r.next())
}

// NextRequestHandle mints a request handle without registering it.
func (r *Registry) NextRequestHandle() domain.RequestHandle {
	return domain.RequestHandle(r.next())
}

// Collection returns the entry of a collection handle.
func (r *Registry) Collection(h domain.CollectionHandle) (Entry, bool) {
	return r.colls.get(h)
}

// Request returns the entry of a request handle.
func (r *Registry) Request(h domain.RequestHandle) (Entry, bool) {
	return r.reqs.get(h)
}

// CollectionAt returns the collection handle registered at (parent, index).
func (r *Registry) CollectionAt(parent domain.CollectionHandle, index int) (domain.CollectionHandle, bool) {
	return r.colls.at(parent, index)
}

// RequestAt returns the request handle registered at (parent, index).
func (r *Registry) RequestAt(parent domain.CollectionHandle, index int) (domain.RequestHandle, bool) {
	return r.reqs.at(parent, index)
}

// CreateCollection registers a fresh handle at (parent, index). A stale
// handle occupying the slot is evicted.
func (r *Registry) CreateCollection(parent domain.CollectionHandle, index int) domain.CollectionHandle {
	h := r.NextCollectionHandle()
	if _, evicted := r.colls.place(h, Entry{Parent: parent, Index: index}); evicted {
		r.invalidated(domain.KindCollection, domain.InvalidatedEvicted, 1)
	}
	return h
}

// CreateRequest registers a fresh request handle at (parent, index).
func (r *Registry) CreateRequest(parent domain.CollectionHandle, index int) domain.RequestHandle {
	h := r.NextRequestHandle()
	if _, evicted := r.reqs.place(h, Entry{Parent: parent, Index: index}); evicted {
		r.invalidated(domain.KindRequest, domain.InvalidatedEvicted, 1)
	}
	return h
}

// GetOrCreateCollection is idempotent: the same (parent, index) always
// yields the same handle until the slot changes hands.
func (r *Registry) GetOrCreateCollection(parent domain.CollectionHandle, index int) domain.CollectionHandle {
	if h, ok := r.colls.at(parent, index); ok {
		return h
	}
	return r.CreateCollection(parent, index)
}

// GetOrCreateRequest is the request counterpart of GetOrCreateCollection.
func (r *Registry) GetOrCreateRequest(parent domain.CollectionHandle, index int) domain.RequestHandle {
	if h, ok := r.reqs.at(parent, index); ok {
		return h
	}
	return r.CreateRequest(parent, index)
}

// DeleteCollection drops a collection handle. Its descendants are left for
// lazy cleanup.
func (r *Registry) DeleteCollection(h domain.CollectionHandle) bool {
	if !r.colls.del(h) {
		return false
	}
	r.dirty = true
	r.invalidated(domain.KindCollection, domain.InvalidatedRemoved, 1)
	return true
}

// DeleteRequest drops a request handle.
func (r *Registry) DeleteRequest(h domain.RequestHandle) bool {
	if !r.reqs.del(h) {
		return false
	}
	r.dirty = true
	r.invalidated(domain.KindRequest, domain.InvalidatedRemoved, 1)
	return true
}

// CollectionChildren lists the collection handles directly under parent.
func (r *Registry) CollectionChildren(parent domain.CollectionHandle) []domain.CollectionHandle {
	return r.colls.under(parent)
}

// RequestChildren lists the request handles directly under parent.
func (r *Registry) RequestChildren(parent domain.CollectionHandle) []domain.RequestHandle {
	return r.reqs.under(parent)
}

// CollectionHandles lists every live collection handle in issue order.
func (r *Registry) CollectionHandles() []domain.CollectionHandle {
	return r.colls.handles()
}

// RequestHandles lists every live request handle in issue order.
func (r *Registry) RequestHandles() []domain.RequestHandle {
	return r.reqs.handles()
}

// RelocateCollections moves several collection handles in one step.
// Unknown handles are skipped.
func (r *Registry) RelocateCollections(updates map[domain.CollectionHandle]Entry) {
	if len(updates) == 0 {
		return
	}
	evicted := r.colls.relocate(updates)
	r.dirty = true
	if len(evicted) > 0 {
		r.invalidated(domain.KindCollection, domain.InvalidatedEvicted, len(evicted))
	}
}

// RelocateRequests moves several request handles in one step.
func (r *Registry) RelocateRequests(updates map[domain.RequestHandle]Entry) {
	if len(updates) == 0 {
		return
	}
	evicted := r.reqs.relocate(updates)
	r.dirty = true
	if len(evicted) > 0 {
		r.invalidated(domain.KindRequest, domain.InvalidatedEvicted, len(evicted))
	}
}

// Replace swaps the whole mapping. Handles absent from the new maps are
// dropped; handles present keep their identity.
func (r *Registry) Replace(colls map[domain.CollectionHandle]Entry, reqs map[domain.RequestHandle]Entry) {
	droppedColls := 0
	for h := range r.colls.entries {
		if _, keep := colls[h]; !keep {
			droppedColls++
		}
	}
	droppedReqs := 0
	for h := range r.reqs.entries {
		if _, keep := reqs[h]; !keep {
			droppedReqs++
		}
	}

	r.colls = newTable[domain.CollectionHandle]()
	for _, h := range sortHandles(keys(colls)) {
		r.colls.place(h, colls[h])
	}
	r.reqs = newTable[domain.RequestHandle]()
	for _, h := range sortHandles(keys(reqs)) {
		r.reqs.place(h, reqs[h])
	}
	r.dirty = true

	if droppedColls > 0 {
		r.invalidated(domain.KindCollection, domain.InvalidatedReplaced, droppedColls)
	}
	if droppedReqs > 0 {
		r.invalidated(domain.KindRequest, domain.InvalidatedReplaced, droppedReqs)
	}
}

// ResolveCollectionPath walks from h up to the root and returns the
// root-to-node index path. When an ancestor is missing, h and every handle
// visited on the way are deleted and false is returned.
func (r *Registry) ResolveCollectionPath(h domain.CollectionHandle) (domain.IndexPath, bool) {
	path, visited, ok := r.walk(h)
	if !ok {
		r.cascade(visited, nil)
		return nil, false
	}
	return path, true
}

// ResolveRequestPath resolves a request handle; the last element of the
// path is the request index. A dangling ancestor deletes the visited
// collections and the request itself.
func (r *Registry) ResolveRequestPath(h domain.RequestHandle) (domain.IndexPath, bool) {
	e, ok := r.reqs.get(h)
	if !ok {
		return nil, false
	}
	if e.Parent == domain.NoParent {
		r.cascade(nil, &h)
		return nil, false
	}
	parentPath, visited, ok := r.walk(e.Parent)
	if !ok {
		r.cascade(visited, &h)
		return nil, false
	}
	return parentPath.Append(e.Index), true
}

// walk accumulates indices from h to the root. On failure it returns the
// handles visited before the dangling link.
func (r *Registry) walk(h domain.CollectionHandle) (domain.IndexPath, []domain.CollectionHandle, bool) {
	var (
		indices []int
		visited []domain.CollectionHandle
	)
	limit := r.colls.len()
	current := h
	for current != domain.NoParent {
		e, ok := r.colls.get(current)
		// A chain longer than the table can only be a cycle.
		if !ok || len(visited) > limit {
			return nil, visited, false
		}
		indices = append(indices, e.Index)
		visited = append(visited, current)
		current = e.Parent
	}
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
	return domain.IndexPath(indices), visited, true
}

func (r *Registry) cascade(visited []domain.CollectionHandle, req *domain.RequestHandle) {
	dropped := 0
	for _, h := range visited {
		if r.colls.del(h) {
			dropped++
		}
	}
	if dropped > 0 {
		r.dirty = true
		r.invalidated(domain.KindCollection, domain.InvalidatedCascade, dropped)
	}
	if req != nil && r.reqs.del(*req) {
		r.dirty = true
		r.invalidated(domain.KindRequest, domain.InvalidatedCascade, 1)
	}
}

// Touch marks the registry as changed without mutating it, for tree edits
// that leave handles in place but change what they resolve to.
func (r *Registry) Touch() {
	r.dirty = true
}

// Commit signals watchers if anything changed since the previous commit.
// Owners call it once per completed batch so watchers never see a half
// applied update. Registering new handles alone does not count as a change.
func (r *Registry) Commit() bool {
	if !r.dirty {
		return false
	}
	r.dirty = false
	r.notifier.notify()
	return true
}

// Watch returns a channel that receives a value after each committed change.
// Signals are coalesced; the channel closes when ctx is done.
func (r *Registry) Watch(ctx context.Context) <-chan struct{} {
	return r.notifier.watch(ctx)
}

// Stats reports the number of live handles per kind.
func (r *Registry) Stats() (collections, requests int) {
	return r.colls.len(), r.reqs.len()
}

func (r *Registry) invalidated(kind domain.HandleKind, reason domain.InvalidationReason, n int) {
	if r.onInvalidate != nil {
		r.onInvalidate(kind, reason, n)
	}
}

// Watchers reports how many watch channels are open.
func (r *Registry) Watchers() int {
	return r.notifier.count()
}

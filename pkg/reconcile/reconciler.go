// Package reconcile keeps a handle registry in step with the collection tree.
//
// Every dispatch observed on a CollectionStore is translated into registry
// updates so that handles keep pointing at the same logical node: siblings
// shift when a gap opens or closes, moved nodes follow their handle, and a
// bulk replace is matched by ref id.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/aretw0/grove/pkg/registry"
)

// Reconciler translates store changes into registry updates.
//
// It is not safe for concurrent use; the owner of the registry serializes
// calls to Apply and GenerateHandles.
type Reconciler struct {
	reg      *registry.Registry
	provider domain.ProviderID
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithHooks registers lifecycle hooks fired after each reconciliation.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Reconciler) {
		r.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithProviderID tags emitted events with the owning provider.
func WithProviderID(id domain.ProviderID) Option {
	return func(r *Reconciler) {
		r.provider = id
	}
}

// New creates a Reconciler over reg.
func New(reg *registry.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		reg:    reg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply updates the registry for one observed change and commits it, so
// watchers see the whole update at once. Handles missing mid-operation are
// skipped.
func (r *Reconciler) Apply(ctx context.Context, change ports.Change) {
	start := time.Now()
	if change.Dispatch.Dispatcher.Structural() {
		r.restructure(change)
	}

	// Every applied dispatch changes what some getter returns.
	r.reg.Touch()
	r.reg.Commit()

	elapsed := time.Since(start)
	colls, reqs := r.reg.Stats()
	r.logger.Debug("reconciled",
		"dispatcher", change.Dispatch.Dispatcher,
		"duration", elapsed,
		"collections", colls,
		"requests", reqs,
	)
	if r.hooks.OnReconcile != nil {
		r.hooks.OnReconcile(ctx, &domain.ReconcileEvent{
			Timestamp:   start,
			Provider:    r.provider,
			Dispatcher:  change.Dispatch.Dispatcher,
			Duration:    elapsed,
			Collections: colls,
			Requests:    reqs,
		})
	}
}

// restructure moves, issues and drops handles for a shape-changing dispatch.
func (r *Reconciler) restructure(change ports.Change) {
	switch p := change.Dispatch.Payload.(type) {
	case domain.AddCollectionPayload:
		r.appendRoots(change.Next, 1)
	case domain.AddFolderPayload:
		r.addFolder(change.Next, p.Path)
	case domain.RemoveFolderPayload:
		r.removeFolder(p.Path)
	case domain.RemoveCollectionPayload:
		r.removeFolder(domain.IndexPath{p.CollectionIndex})
	case domain.RemoveRequestPayload:
		r.removeRequest(p.Path, p.RequestIndex)
	case domain.MoveFolderPayload:
		r.moveFolder(change.Next, p.Path, p.DestinationPath)
	case domain.MoveRequestPayload:
		r.moveRequest(change.Next, p.Path, p.RequestIndex, p.DestinationPath)
	case domain.DuplicateCollectionPayload:
		r.duplicate(change.Next, p.Path)
	case domain.SaveRequestAsPayload:
		r.saveRequestAs(change.Next, p.Path)
	case domain.AppendCollectionsPayload:
		r.appendRoots(change.Next, len(p.Entries))
	case domain.UpdateRequestOrderPayload:
		r.reorderRequest(change.Next, p)
	case domain.UpdateCollectionOrderPayload:
		r.reorderCollection(change.Next, p)
	case domain.SetCollectionsPayload:
		r.setCollections(change.Prev, change.Next)
	default:
		r.logger.Warn("unhandled dispatcher", "dispatcher", change.Dispatch.Dispatcher)
	}
}

// GenerateHandles issues handles for colls and all their descendants, with
// colls[i] sitting at index start+i under parent. Existing handles are
// reused.
func (r *Reconciler) GenerateHandles(colls []domain.Collection, start int, parent domain.CollectionHandle) {
	r.generate(colls, start, parent, false)
}

type frame struct {
	parent domain.CollectionHandle
	index  int
	node   *domain.Collection
}

// generate walks the subtrees depth first. With fresh set every node gets a
// newly minted handle, evicting whatever occupied its slot.
func (r *Reconciler) generate(colls []domain.Collection, start int, parent domain.CollectionHandle, fresh bool) {
	stack := make([]frame, 0, len(colls))
	for i := len(colls) - 1; i >= 0; i-- {
		stack = append(stack, frame{parent: parent, index: start + i, node: &colls[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var h domain.CollectionHandle
		if fresh {
			h = r.reg.CreateCollection(f.parent, f.index)
		} else {
			h = r.reg.GetOrCreateCollection(f.parent, f.index)
		}

		for j := range f.node.Requests {
			if fresh {
				r.reg.CreateRequest(h, j)
			} else {
				r.reg.GetOrCreateRequest(h, j)
			}
		}
		for k := len(f.node.Folders) - 1; k >= 0; k-- {
			stack = append(stack, frame{parent: h, index: k, node: &f.node.Folders[k]})
		}
	}
}

// collectionAt descends the registry along path. The empty path yields
// domain.NoParent. With create set, missing handles are issued on the way.
func (r *Reconciler) collectionAt(path domain.IndexPath, create bool) (domain.CollectionHandle, bool) {
	current := domain.NoParent
	for _, idx := range path {
		if create {
			current = r.reg.GetOrCreateCollection(current, idx)
			continue
		}
		h, ok := r.reg.CollectionAt(current, idx)
		if !ok {
			return "", false
		}
		current = h
	}
	return current, true
}

func (r *Reconciler) appendRoots(next []domain.Collection, n int) {
	start := len(next) - n
	if n <= 0 || start < 0 {
		return
	}
	r.generate(next[start:], start, domain.NoParent, true)
}

func (r *Reconciler) addFolder(next []domain.Collection, path domain.IndexPath) {
	parent, ok := r.collectionAt(path, false)
	if !ok {
		return
	}
	node, ok := domain.NavigateToFolder(next, path)
	if !ok || len(node.Folders) == 0 {
		return
	}
	last := len(node.Folders) - 1
	r.generate(node.Folders[last:], last, parent, true)
}

func (r *Reconciler) removeFolder(path domain.IndexPath) {
	if len(path) == 0 {
		return
	}
	parent, ok := r.collectionAt(path.Parent(), false)
	if !ok {
		return
	}
	removed := path.Last()

	if h, ok := r.reg.CollectionAt(parent, removed); ok {
		// Direct children only; deeper descendants dangle until resolved.
		for _, child := range r.reg.CollectionChildren(h) {
			r.reg.DeleteCollection(child)
		}
		for _, req := range r.reg.RequestChildren(h) {
			r.reg.DeleteRequest(req)
		}
		r.reg.DeleteCollection(h)
	}

	r.reg.RelocateCollections(closeGap(r.reg.CollectionChildren(parent), r.reg.Collection, removed))
}

func (r *Reconciler) removeRequest(path domain.IndexPath, index int) {
	owner, ok := r.collectionAt(path, false)
	if !ok {
		return
	}
	if h, ok := r.reg.RequestAt(owner, index); ok {
		r.reg.DeleteRequest(h)
	}
	r.reg.RelocateRequests(closeGap(r.reg.RequestChildren(owner), r.reg.Request, index))
}

func (r *Reconciler) moveFolder(next []domain.Collection, src, dest domain.IndexPath) {
	if len(src) == 0 {
		return
	}
	srcParent, ok := r.collectionAt(src.Parent(), false)
	if !ok {
		return
	}
	// The destination is named in pre-move coordinates.
	destHandle, _ := r.collectionAt(dest, true)
	moved, hasMoved := r.reg.CollectionAt(srcParent, src.Last())

	updates := closeGap(r.reg.CollectionChildren(srcParent), r.reg.Collection, src.Last())
	if hasMoved {
		delete(updates, moved)
		count, ok := domain.FolderCount(next, afterRemoval(dest, src))
		if ok && count > 0 {
			updates[moved] = registry.Entry{Parent: destHandle, Index: count - 1}
		} else {
			r.reg.DeleteCollection(moved)
		}
	}
	r.reg.RelocateCollections(updates)
}

func (r *Reconciler) moveRequest(next []domain.Collection, src domain.IndexPath, index int, dest domain.IndexPath) {
	owner, ok := r.collectionAt(src, false)
	if !ok {
		return
	}
	destHandle, _ := r.collectionAt(dest, true)
	moved, hasMoved := r.reg.RequestAt(owner, index)

	updates := closeGap(r.reg.RequestChildren(owner), r.reg.Request, index)
	if hasMoved {
		delete(updates, moved)
		node, ok := domain.NavigateToFolder(next, dest)
		if ok && len(node.Requests) > 0 {
			updates[moved] = registry.Entry{Parent: destHandle, Index: len(node.Requests) - 1}
		} else {
			r.reg.DeleteRequest(moved)
		}
	}
	r.reg.RelocateRequests(updates)
}

func (r *Reconciler) duplicate(next []domain.Collection, path domain.IndexPath) {
	if len(path) == 0 {
		return
	}
	parentPath := path.Parent()
	parent, ok := r.collectionAt(parentPath, false)
	if !ok {
		return
	}
	count, ok := domain.FolderCount(next, parentPath)
	if !ok || count == 0 {
		return
	}
	dup, ok := domain.NavigateToFolder(next, parentPath.Append(count-1))
	if !ok {
		return
	}
	r.generate([]domain.Collection{*dup}, count-1, parent, true)
}

func (r *Reconciler) saveRequestAs(next []domain.Collection, path domain.IndexPath) {
	owner, ok := r.collectionAt(path, false)
	if !ok {
		return
	}
	node, ok := domain.NavigateToFolder(next, path)
	if !ok || len(node.Requests) == 0 {
		return
	}
	r.reg.CreateRequest(owner, len(node.Requests)-1)
}

func (r *Reconciler) reorderRequest(next []domain.Collection, p domain.UpdateRequestOrderPayload) {
	owner, ok := r.collectionAt(p.DestinationCollectionPath, false)
	if !ok {
		return
	}
	node, ok := domain.NavigateToFolder(next, p.DestinationCollectionPath)
	if !ok || len(node.Requests) == 0 {
		return
	}
	dest := len(node.Requests) - 1
	if p.DestinationRequestIndex != nil {
		dest = *p.DestinationRequestIndex
	}
	r.reg.RelocateRequests(reorder(r.reg.RequestChildren(owner), r.reg.Request, p.RequestIndex, dest))
}

func (r *Reconciler) reorderCollection(next []domain.Collection, p domain.UpdateCollectionOrderPayload) {
	if len(p.CollectionIndex) == 0 {
		return
	}
	parentPath := p.CollectionIndex.Parent()
	parent, ok := r.collectionAt(parentPath, false)
	if !ok {
		return
	}
	var dest int
	if len(p.DestinationCollectionIndex) > 0 {
		dest = p.DestinationCollectionIndex.Last()
	} else {
		count, ok := domain.FolderCount(next, parentPath)
		if !ok || count == 0 {
			return
		}
		dest = count - 1
	}
	r.reg.RelocateCollections(reorder(r.reg.CollectionChildren(parent), r.reg.Collection, p.CollectionIndex.Last(), dest))
}

// closeGap shifts every sibling after removed down by one.
func closeGap[H ~string](siblings []H, lookup func(H) (registry.Entry, bool), removed int) map[H]registry.Entry {
	updates := make(map[H]registry.Entry)
	for _, h := range siblings {
		e, ok := lookup(h)
		if !ok || e.Index <= removed {
			continue
		}
		updates[h] = registry.Entry{Parent: e.Parent, Index: e.Index - 1}
	}
	return updates
}

// reorder moves the sibling at src to dest. Forward moves shift the
// half-open interval (src, dest] down by one; backward moves shift
// [dest, src) up by one.
func reorder[H ~string](siblings []H, lookup func(H) (registry.Entry, bool), src, dest int) map[H]registry.Entry {
	updates := make(map[H]registry.Entry)
	if src == dest {
		return updates
	}
	for _, h := range siblings {
		e, ok := lookup(h)
		if !ok {
			continue
		}
		switch {
		case e.Index == src:
			updates[h] = registry.Entry{Parent: e.Parent, Index: dest}
		case src < dest && e.Index > src && e.Index <= dest:
			updates[h] = registry.Entry{Parent: e.Parent, Index: e.Index - 1}
		case dest < src && e.Index >= dest && e.Index < src:
			updates[h] = registry.Entry{Parent: e.Parent, Index: e.Index + 1}
		}
	}
	return updates
}

// afterRemoval translates a pre-move destination path into coordinates of
// the tree after the node at src has been taken out.
func afterRemoval(dest, src domain.IndexPath) domain.IndexPath {
	out := append(domain.IndexPath(nil), dest...)
	depth := len(src) - 1
	if len(dest) > depth && dest.HasPrefix(src.Parent()) && dest[depth] > src.Last() {
		out[depth]--
	}
	return out
}

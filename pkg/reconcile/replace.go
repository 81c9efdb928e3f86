package reconcile

import (
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/registry"
)

// setCollections matches handles across a bulk replace by ref id. A node
// whose ref id was known keeps its handle at its new position; new ref ids
// get fresh handles; everything else is dropped. When a ref id occurs more
// than once, the first occurrence in tree order wins.
func (r *Reconciler) setCollections(prev, next []domain.Collection) {
	prevColls, prevReqs := r.refIDHandles(prev)

	colls := make(map[domain.CollectionHandle]registry.Entry)
	reqs := make(map[domain.RequestHandle]registry.Entry)

	stack := make([]frame, 0, len(next))
	for i := len(next) - 1; i >= 0; i-- {
		stack = append(stack, frame{parent: domain.NoParent, index: i, node: &next[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		h, ok := prevColls[f.node.RefID]
		if ok && f.node.RefID != "" {
			delete(prevColls, f.node.RefID)
		} else {
			h = r.reg.NextCollectionHandle()
		}
		colls[h] = registry.Entry{Parent: f.parent, Index: f.index}

		for j, req := range f.node.Requests {
			rh, ok := prevReqs[req.RefID]
			if ok && req.RefID != "" {
				delete(prevReqs, req.RefID)
			} else {
				rh = r.reg.NextRequestHandle()
			}
			reqs[rh] = registry.Entry{Parent: h, Index: j}
		}
		for k := len(f.node.Folders) - 1; k >= 0; k-- {
			stack = append(stack, frame{parent: h, index: k, node: &f.node.Folders[k]})
		}
	}

	r.reg.Replace(colls, reqs)
}

// refIDHandles maps the ref ids of prev to the live handles resolving to
// them. Handles that no longer resolve are cleaned up on the way.
func (r *Reconciler) refIDHandles(prev []domain.Collection) (map[domain.RefID]domain.CollectionHandle, map[domain.RefID]domain.RequestHandle) {
	colls := make(map[domain.RefID]domain.CollectionHandle)
	for _, h := range r.reg.CollectionHandles() {
		path, ok := r.reg.ResolveCollectionPath(h)
		if !ok {
			continue
		}
		node, ok := domain.NavigateToFolder(prev, path)
		if !ok || node.RefID == "" {
			continue
		}
		if _, taken := colls[node.RefID]; !taken {
			colls[node.RefID] = h
		}
	}

	reqs := make(map[domain.RefID]domain.RequestHandle)
	for _, h := range r.reg.RequestHandles() {
		path, ok := r.reg.ResolveRequestPath(h)
		if !ok {
			continue
		}
		req, ok := domain.RequestAt(prev, path)
		if !ok || req.RefID == "" {
			continue
		}
		if _, taken := reqs[req.RefID]; !taken {
			reqs[req.RefID] = h
		}
	}
	return colls, reqs
}

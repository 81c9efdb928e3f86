package memory

import (
	"fmt"

	"github.com/aretw0/grove/pkg/domain"
)

// apply runs the reducer for d against tree, which the caller owns (a deep
// copy of the current state). It returns the new root sequence.
func apply(tree []domain.Collection, d domain.Dispatch) ([]domain.Collection, error) {
	switch p := d.Payload.(type) {
	case domain.AddCollectionPayload:
		return append(tree, fresh(p.Collection)), nil

	case domain.AddFolderPayload:
		parent, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		parent.Folders = append(parent.Folders, fresh(p.Folder))
		return tree, nil

	case domain.RemoveFolderPayload:
		return removeFolder(tree, p.Path)

	case domain.RemoveCollectionPayload:
		return removeFolder(tree, domain.IndexPath{p.CollectionIndex})

	case domain.RemoveRequestPayload:
		owner, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		if p.RequestIndex < 0 || p.RequestIndex >= len(owner.Requests) {
			return nil, fmt.Errorf("%w: request %d under %s", domain.ErrInvalidPath, p.RequestIndex, p.Path)
		}
		owner.Requests = append(owner.Requests[:p.RequestIndex], owner.Requests[p.RequestIndex+1:]...)
		return tree, nil

	case domain.MoveFolderPayload:
		return moveFolder(tree, p.Path, p.DestinationPath)

	case domain.MoveRequestPayload:
		return moveRequest(tree, p)

	case domain.DuplicateCollectionPayload:
		src, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		dup := src.CloneWithFreshRefIDs()
		dup.Name = src.Name + " - Duplicate"
		if p.Path.IsRoot() {
			return append(tree, dup), nil
		}
		parent, _ := domain.NavigateToFolder(tree, p.Path.Parent())
		parent.Folders = append(parent.Folders, dup)
		return tree, nil

	case domain.SaveRequestAsPayload:
		owner, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		req := p.Request.Clone()
		if req.RefID == "" {
			req.RefID = domain.NewRefID()
		}
		if req.Version == "" {
			req.Version = domain.RequestSchemaVersion
		}
		owner.Requests = append(owner.Requests, req)
		return tree, nil

	case domain.AppendCollectionsPayload:
		for _, c := range p.Entries {
			tree = append(tree, fresh(c))
		}
		return tree, nil

	case domain.UpdateRequestOrderPayload:
		owner, err := folderAt(tree, p.DestinationCollectionPath)
		if err != nil {
			return nil, err
		}
		reqs, err := reorder(owner.Requests, p.RequestIndex, p.DestinationRequestIndex)
		if err != nil {
			return nil, err
		}
		owner.Requests = reqs
		return tree, nil

	case domain.UpdateCollectionOrderPayload:
		return reorderCollection(tree, p)

	case domain.SetCollectionsPayload:
		out := domain.CloneTree(p.Entries)
		domain.EnsureRefIDs(out)
		return out, nil

	case domain.EditCollectionPayload:
		target, err := folderAt(tree, domain.IndexPath{p.CollectionIndex})
		if err != nil {
			return nil, err
		}
		editMeta(target, p.Collection)
		return tree, nil

	case domain.EditFolderPayload:
		target, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		editMeta(target, p.Folder)
		return tree, nil

	case domain.EditRequestPayload:
		owner, err := folderAt(tree, p.Path)
		if err != nil {
			return nil, err
		}
		if p.RequestIndex < 0 || p.RequestIndex >= len(owner.Requests) {
			return nil, fmt.Errorf("%w: request %d under %s", domain.ErrInvalidPath, p.RequestIndex, p.Path)
		}
		req := p.Request.Clone()
		req.RefID = owner.Requests[p.RequestIndex].RefID
		if req.Version == "" {
			req.Version = owner.Requests[p.RequestIndex].Version
		}
		owner.Requests[p.RequestIndex] = req
		return tree, nil
	}

	return nil, fmt.Errorf("%w: unknown dispatcher %q", domain.ErrInvalidDispatch, d.Dispatcher)
}

func fresh(c domain.Collection) domain.Collection {
	out := []domain.Collection{c.Clone()}
	domain.EnsureRefIDs(out)
	return out[0]
}

func folderAt(tree []domain.Collection, path domain.IndexPath) (*domain.Collection, error) {
	coll, ok := domain.NavigateToFolder(tree, path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPath, path.String())
	}
	return coll, nil
}

func editMeta(target *domain.Collection, src domain.Collection) {
	target.Name = src.Name
	target.Headers = src.Clone().Headers
	target.Auth = src.Clone().Auth
}

// siblings returns a pointer to the sequence holding the node at path.
func siblings(tree *[]domain.Collection, path domain.IndexPath) (*[]domain.Collection, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidPath)
	}
	if path.IsRoot() {
		if path[0] < 0 || path[0] >= len(*tree) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPath, path.String())
		}
		return tree, nil
	}
	parent, err := folderAt(*tree, path.Parent())
	if err != nil {
		return nil, err
	}
	if path.Last() < 0 || path.Last() >= len(parent.Folders) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPath, path.String())
	}
	return &parent.Folders, nil
}

func removeFolder(tree []domain.Collection, path domain.IndexPath) ([]domain.Collection, error) {
	seq, err := siblings(&tree, path)
	if err != nil {
		return nil, err
	}
	i := path.Last()
	*seq = append((*seq)[:i], (*seq)[i+1:]...)
	return tree, nil
}

func moveFolder(tree []domain.Collection, src, dest domain.IndexPath) ([]domain.Collection, error) {
	seq, err := siblings(&tree, src)
	if err != nil {
		return nil, err
	}
	if len(dest) > 0 {
		if _, err := folderAt(tree, dest); err != nil {
			return nil, err
		}
		if dest.HasPrefix(src) {
			return nil, fmt.Errorf("%w: cannot move %q into itself", domain.ErrInvalidDispatch, src.String())
		}
	}

	i := src.Last()
	moved := (*seq)[i]
	*seq = append((*seq)[:i], (*seq)[i+1:]...)

	if len(dest) == 0 {
		return append(tree, moved), nil
	}

	// Closing the source gap shifts a later sibling (or its subtree) down by one.
	adjusted := append(domain.IndexPath(nil), dest...)
	depth := len(src) - 1
	if dest.HasPrefix(src.Parent()) && len(dest) > depth && dest[depth] > i {
		adjusted[depth]--
	}
	target, err := folderAt(tree, adjusted)
	if err != nil {
		return nil, err
	}
	target.Folders = append(target.Folders, moved)
	return tree, nil
}

func moveRequest(tree []domain.Collection, p domain.MoveRequestPayload) ([]domain.Collection, error) {
	owner, err := folderAt(tree, p.Path)
	if err != nil {
		return nil, err
	}
	if p.RequestIndex < 0 || p.RequestIndex >= len(owner.Requests) {
		return nil, fmt.Errorf("%w: request %d under %s", domain.ErrInvalidPath, p.RequestIndex, p.Path)
	}
	if _, err := folderAt(tree, p.DestinationPath); err != nil {
		return nil, err
	}

	moved := owner.Requests[p.RequestIndex]
	owner.Requests = append(owner.Requests[:p.RequestIndex], owner.Requests[p.RequestIndex+1:]...)

	dest, _ := domain.NavigateToFolder(tree, p.DestinationPath)
	dest.Requests = append(dest.Requests, moved)
	return tree, nil
}

func reorderCollection(tree []domain.Collection, p domain.UpdateCollectionOrderPayload) ([]domain.Collection, error) {
	seq, err := siblings(&tree, p.CollectionIndex)
	if err != nil {
		return nil, err
	}
	var dest *int
	if p.DestinationCollectionIndex != nil {
		if !p.DestinationCollectionIndex.Parent().Equal(p.CollectionIndex.Parent()) {
			return nil, fmt.Errorf("%w: reorder across parents %q -> %q", domain.ErrInvalidDispatch,
				p.CollectionIndex.String(), p.DestinationCollectionIndex.String())
		}
		d := p.DestinationCollectionIndex.Last()
		dest = &d
	}
	out, err := reorder(*seq, p.CollectionIndex.Last(), dest)
	if err != nil {
		return nil, err
	}
	*seq = out
	return tree, nil
}

// reorder removes the element at src and reinserts it at dest, or at the
// end when dest is nil.
func reorder[T any](items []T, src int, dest *int) ([]T, error) {
	if src < 0 || src >= len(items) {
		return nil, fmt.Errorf("%w: index %d of %d", domain.ErrInvalidPath, src, len(items))
	}
	to := len(items) - 1
	if dest != nil {
		to = *dest
	}
	if to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: destination %d of %d", domain.ErrInvalidPath, to, len(items))
	}

	moved := items[src]
	items = append(items[:src], items[src+1:]...)
	items = append(items, moved)
	copy(items[to+1:], items[to:len(items)-1])
	items[to] = moved
	return items, nil
}

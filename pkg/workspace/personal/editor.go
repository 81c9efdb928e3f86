package personal

import (
	"context"
	"fmt"

	"github.com/aretw0/grove/pkg/domain"
)

// MoveCollection implements ports.WorkspaceEditor.
func (p *Provider) MoveCollection(ctx context.Context, handle, dest domain.CollectionHandle) error {
	path, pin, err := p.collectionTarget(handle)
	if err != nil {
		return err
	}
	pins := []domain.Expectation{pin}
	var destPath domain.IndexPath
	if dest != domain.NoParent {
		var destPin domain.Expectation
		if destPath, destPin, err = p.collectionTarget(dest); err != nil {
			return err
		}
		pins = append(pins, destPin)
	}
	return p.dispatch(ctx, domain.MoveFolderPayload{Path: path, DestinationPath: destPath}, pins...)
}

// MoveRequest implements ports.WorkspaceEditor.
func (p *Provider) MoveRequest(ctx context.Context, handle domain.RequestHandle, dest domain.CollectionHandle) error {
	if dest == domain.NoParent {
		return fmt.Errorf("%w: requests cannot live at the root", domain.ErrInvalidDispatch)
	}
	path, pin, err := p.requestTarget(handle)
	if err != nil {
		return err
	}
	destPath, destPin, err := p.collectionTarget(dest)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, domain.MoveRequestPayload{
		Path:            path.Parent(),
		RequestIndex:    path.Last(),
		DestinationPath: destPath,
	}, pin, destPin)
}

// ReorderCollection implements ports.WorkspaceEditor.
func (p *Provider) ReorderCollection(ctx context.Context, handle domain.CollectionHandle, index int) error {
	path, pin, err := p.collectionTarget(handle)
	if err != nil {
		return err
	}
	payload := domain.UpdateCollectionOrderPayload{CollectionIndex: path}
	if index >= 0 {
		payload.DestinationCollectionIndex = path.Parent().Append(index)
	}
	return p.dispatch(ctx, payload, pin)
}

// ReorderRequest implements ports.WorkspaceEditor.
func (p *Provider) ReorderRequest(ctx context.Context, handle domain.RequestHandle, index int) error {
	path, pin, err := p.requestTarget(handle)
	if err != nil {
		return err
	}
	payload := domain.UpdateRequestOrderPayload{
		RequestIndex:              path.Last(),
		DestinationCollectionPath: path.Parent(),
	}
	if index >= 0 {
		payload.DestinationRequestIndex = &index
	}
	return p.dispatch(ctx, payload, pin)
}

// DuplicateCollection implements ports.WorkspaceEditor. The copy is
// appended to the original's siblings.
func (p *Provider) DuplicateCollection(ctx context.Context, handle domain.CollectionHandle) (domain.CollectionHandle, error) {
	path, pin, err := p.collectionTarget(handle)
	if err != nil {
		return "", err
	}
	if err := p.dispatch(ctx, domain.DuplicateCollectionPayload{Path: path}, pin); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	count, ok := domain.FolderCount(p.tree, path.Parent())
	if !ok || count == 0 {
		return "", fmt.Errorf("%w: duplicate of %q", domain.ErrHandleUnresolvable, handle)
	}
	return p.handleAt(path.Parent().Append(count - 1)), nil
}

// RenameCollection implements ports.WorkspaceEditor.
func (p *Provider) RenameCollection(ctx context.Context, handle domain.CollectionHandle, name string) error {
	p.mu.Lock()
	path, ok := p.reg.ResolveCollectionPath(handle)
	var edited domain.Collection
	if ok {
		var node *domain.Collection
		if node, ok = domain.NavigateToFolder(p.tree, path); ok {
			edited = node.Clone()
		}
	}
	p.reg.Commit()
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: collection %q", domain.ErrHandleUnresolvable, handle)
	}

	pin := domain.Expectation{Path: path, RefID: edited.RefID}
	edited.Name = name
	if path.IsRoot() {
		return p.dispatch(ctx, domain.EditCollectionPayload{CollectionIndex: path[0], Collection: edited}, pin)
	}
	return p.dispatch(ctx, domain.EditFolderPayload{Path: path, Folder: edited}, pin)
}

// UpdateRequest implements ports.WorkspaceEditor.
func (p *Provider) UpdateRequest(ctx context.Context, handle domain.RequestHandle, req domain.Request) error {
	path, pin, err := p.requestTarget(handle)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, domain.EditRequestPayload{
		Path:         path.Parent(),
		RequestIndex: path.Last(),
		Request:      req,
	}, pin)
}

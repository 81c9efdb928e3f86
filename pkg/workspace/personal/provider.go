// Package personal implements the workspace provider for the local,
// single-user collection tree.
package personal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/aretw0/grove/pkg/reconcile"
	"github.com/aretw0/grove/pkg/registry"
)

const (
	// ProviderID is the persistable identity of the personal provider.
	ProviderID domain.ProviderID = "personal"
	// WorkspaceHandle is the only workspace the provider recognizes.
	WorkspaceHandle domain.WorkspaceHandle = "personal"
	// WorkspaceName is the display name of that workspace.
	WorkspaceName = "Personal Workspace"
)

// Provider serves handles over a CollectionStore. The registry is mutated
// only in response to observed dispatches; mutations go through the store.
type Provider struct {
	mu    sync.Mutex
	store ports.CollectionStore
	reg   *registry.Registry
	rec   *reconcile.Reconciler
	tree  []domain.Collection

	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	unsubscribe func()
}

var (
	_ ports.WorkspaceProvider = (*Provider)(nil)
	_ ports.WorkspaceEditor   = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithHooks registers lifecycle hooks for reconciliations and invalidations.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Provider) {
		p.hooks = hooks
	}
}

// New creates a provider over store, issues handles for the current tree and
// starts observing the store. Call Close to stop observing.
func New(store ports.CollectionStore, opts ...Option) *Provider {
	p := &Provider{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.reg = registry.New(registry.WithInvalidateFunc(p.invalidated))
	p.rec = reconcile.New(p.reg,
		reconcile.WithHooks(p.hooks),
		reconcile.WithLogger(p.logger),
		reconcile.WithProviderID(ProviderID),
	)

	p.tree = store.State()
	p.rec.GenerateHandles(p.tree, 0, domain.NoParent)
	p.unsubscribe = store.Subscribe(p.observe)
	return p
}

// Close stops observing the store.
func (p *Provider) Close() error {
	p.unsubscribe()
	return nil
}

// ProviderID implements ports.WorkspaceProvider.
func (p *Provider) ProviderID() domain.ProviderID {
	return ProviderID
}

func (p *Provider) observe(change ports.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree = change.Next
	p.rec.Apply(context.Background(), change)
}

func (p *Provider) invalidated(kind domain.HandleKind, reason domain.InvalidationReason, n int) {
	p.logger.Debug("handles invalidated", "kind", kind, "reason", reason, "count", n)
	if p.hooks.OnInvalidate != nil {
		p.hooks.OnInvalidate(context.Background(), &domain.InvalidationEvent{
			Timestamp: time.Now(),
			Provider:  ProviderID,
			Kind:      kind,
			Reason:    reason,
			Count:     n,
		})
	}
}

func invalidWorkspace[T any](handle domain.WorkspaceHandle) domain.Resource[T] {
	return domain.Failed[T]("Invalid workspace handle",
		fmt.Errorf("%w: %q", domain.ErrInvalidWorkspace, handle))
}

// GetWorkspace implements ports.WorkspaceProvider.
func (p *Provider) GetWorkspace(handle domain.WorkspaceHandle) domain.Resource[domain.WorkspaceMeta] {
	if handle != WorkspaceHandle {
		return invalidWorkspace[domain.WorkspaceMeta](handle)
	}
	return domain.Available(domain.WorkspaceMeta{Name: WorkspaceName})
}

// GetRootCollections implements ports.WorkspaceProvider.
func (p *Provider) GetRootCollections(handle domain.WorkspaceHandle) domain.Resource[domain.RootCollections] {
	if handle != WorkspaceHandle {
		return invalidWorkspace[domain.RootCollections](handle)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	items := make(domain.RootCollections, 0, len(p.tree))
	for i := range p.tree {
		items = append(items, domain.CollectionItem{
			Handle: p.reg.GetOrCreateCollection(domain.NoParent, i),
			Data:   domain.CollectionMeta{Name: p.tree[i].Name},
		})
	}
	return domain.Available(items)
}

// GetCollectionChildren implements ports.WorkspaceProvider.
func (p *Provider) GetCollectionChildren(handle domain.CollectionHandle) domain.Resource[domain.CollectionChildren] {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.reg.Commit()

	path, ok := p.reg.ResolveCollectionPath(handle)
	if !ok {
		return domain.Unavailable[domain.CollectionChildren]()
	}
	node, ok := domain.NavigateToFolder(p.tree, path)
	if !ok {
		return domain.Unavailable[domain.CollectionChildren]()
	}

	children := domain.CollectionChildren{
		Folders:  make([]domain.CollectionItem, 0, len(node.Folders)),
		Requests: make([]domain.RequestItem, 0, len(node.Requests)),
	}
	for i, f := range node.Folders {
		children.Folders = append(children.Folders, domain.CollectionItem{
			Handle: p.reg.GetOrCreateCollection(handle, i),
			Data:   domain.CollectionMeta{Name: f.Name},
		})
	}
	for i, r := range node.Requests {
		children.Requests = append(children.Requests, domain.RequestItem{
			Handle: p.reg.GetOrCreateRequest(handle, i),
			Data:   domain.RequestMeta{Name: r.Name, Method: r.Method},
		})
	}
	return domain.Available(children)
}

// GetRequest implements ports.WorkspaceProvider.
func (p *Provider) GetRequest(handle domain.RequestHandle) domain.Resource[domain.Request] {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.reg.Commit()

	path, ok := p.reg.ResolveRequestPath(handle)
	if !ok {
		return domain.Unavailable[domain.Request]()
	}
	req, ok := domain.RequestAt(p.tree, path)
	if !ok {
		return domain.Unavailable[domain.Request]()
	}
	return domain.Available(req.Clone())
}

// Watch implements ports.WorkspaceProvider.
func (p *Provider) Watch(ctx context.Context) <-chan struct{} {
	return p.reg.Watch(ctx)
}

// Stats reports the number of live handles per kind.
func (p *Provider) Stats() (collections, requests int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reg.Stats()
}

// collectionTarget resolves a handle for a mutation and pins the node it
// currently names. A dispatch carrying the pin is dropped by the store if
// another write moves that node first.
func (p *Provider) collectionTarget(handle domain.CollectionHandle) (domain.IndexPath, domain.Expectation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.reg.Commit()

	path, ok := p.reg.ResolveCollectionPath(handle)
	if !ok {
		return nil, domain.Expectation{}, fmt.Errorf("%w: collection %q", domain.ErrHandleUnresolvable, handle)
	}
	node, ok := domain.NavigateToFolder(p.tree, path)
	if !ok {
		return nil, domain.Expectation{}, fmt.Errorf("%w: collection %q", domain.ErrHandleUnresolvable, handle)
	}
	return path, domain.Expectation{Path: path, RefID: node.RefID}, nil
}

func (p *Provider) requestTarget(handle domain.RequestHandle) (domain.IndexPath, domain.Expectation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.reg.Commit()

	path, ok := p.reg.ResolveRequestPath(handle)
	if !ok {
		return nil, domain.Expectation{}, fmt.Errorf("%w: request %q", domain.ErrHandleUnresolvable, handle)
	}
	req, ok := domain.RequestAt(p.tree, path)
	if !ok {
		return nil, domain.Expectation{}, fmt.Errorf("%w: request %q", domain.ErrHandleUnresolvable, handle)
	}
	return path, domain.Expectation{Path: path, Request: true, RefID: req.RefID}, nil
}

// handleAt descends the registry along path, issuing handles as needed.
// The caller holds p.mu.
func (p *Provider) handleAt(path domain.IndexPath) domain.CollectionHandle {
	h := domain.NoParent
	for _, idx := range path {
		h = p.reg.GetOrCreateCollection(h, idx)
	}
	return h
}

func (p *Provider) dispatch(ctx context.Context, payload domain.Payload, pins ...domain.Expectation) error {
	d := domain.NewDispatch(payload).Expecting(pins...)
	if err := p.store.Dispatch(ctx, d); err != nil {
		return fmt.Errorf("dispatch %s: %w", d.Dispatcher, err)
	}
	return nil
}

// CreateCollection implements ports.WorkspaceProvider.
func (p *Provider) CreateCollection(ctx context.Context, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, input domain.CreateCollectionInput) (domain.CollectionHandle, error) {
	if workspace != WorkspaceHandle {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidWorkspace, workspace)
	}

	coll := domain.NewCollection(input.Name)
	coll.Headers = input.Headers
	coll.Auth = input.Auth

	var (
		payload domain.Payload = domain.AddCollectionPayload{Collection: coll}
		pins    []domain.Expectation
	)
	if parent != domain.NoParent {
		path, pin, err := p.collectionTarget(parent)
		if err != nil {
			return "", err
		}
		payload = domain.AddFolderPayload{Path: path, Folder: coll}
		pins = append(pins, pin)
	}
	if err := p.dispatch(ctx, payload, pins...); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := domain.FindCollection(p.tree, coll.RefID)
	if !ok {
		return "", fmt.Errorf("%w: created collection %q is gone", domain.ErrHandleUnresolvable, coll.RefID)
	}
	return p.handleAt(path), nil
}

// CreateRequest implements ports.WorkspaceProvider.
func (p *Provider) CreateRequest(ctx context.Context, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, req domain.Request) (domain.RequestHandle, error) {
	if workspace != WorkspaceHandle {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidWorkspace, workspace)
	}
	path, pin, err := p.collectionTarget(parent)
	if err != nil {
		return "", err
	}

	req = req.Clone()
	if req.RefID == "" {
		req.RefID = domain.NewRefID()
	}
	if err := p.dispatch(ctx, domain.SaveRequestAsPayload{Path: path, Request: req}, pin); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	reqPath, ok := domain.FindRequest(p.tree, req.RefID)
	if !ok {
		return "", fmt.Errorf("%w: created request %q is gone", domain.ErrHandleUnresolvable, req.RefID)
	}
	return p.reg.GetOrCreateRequest(p.handleAt(reqPath.Parent()), reqPath.Last()), nil
}

// DeleteRequest implements ports.WorkspaceProvider.
func (p *Provider) DeleteRequest(ctx context.Context, handle domain.RequestHandle) error {
	path, pin, err := p.requestTarget(handle)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, domain.RemoveRequestPayload{Path: path.Parent(), RequestIndex: path.Last()}, pin)
}

// DeleteCollection implements ports.WorkspaceProvider.
func (p *Provider) DeleteCollection(ctx context.Context, handle domain.CollectionHandle) error {
	path, pin, err := p.collectionTarget(handle)
	if err != nil {
		return err
	}
	if path.IsRoot() {
		return p.dispatch(ctx, domain.RemoveCollectionPayload{CollectionIndex: path[0]}, pin)
	}
	return p.dispatch(ctx, domain.RemoveFolderPayload{Path: path}, pin)
}

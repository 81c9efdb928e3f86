// Package workspace routes handle lookups and mutations to the registered
// workspace providers.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
)

// Selection identifies the workspace the user is working in.
type Selection struct {
	Provider  domain.ProviderID      `json:"provider"`
	Workspace domain.WorkspaceHandle `json:"workspace"`
}

// Service maps provider ids to providers and forwards every call to the
// provider named by the caller.
//
// Naming a provider that was never registered is a wiring bug and panics.
// Adapters taking provider ids from untrusted input use Lookup first.
type Service struct {
	mu        sync.RWMutex
	providers map[domain.ProviderID]ports.WorkspaceProvider
	current   *Selection
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service with no providers.
func NewService(opts ...Option) *Service {
	s := &Service{
		providers: make(map[domain.ProviderID]ports.WorkspaceProvider),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterWorkspaceProvider adds a provider. Registering an id twice keeps
// the first provider and logs a warning.
func (s *Service) RegisterWorkspaceProvider(p ports.WorkspaceProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.ProviderID()
	if _, exists := s.providers[id]; exists {
		s.logger.Warn("ignoring duplicate workspace provider", "provider", id)
		return
	}
	s.providers[id] = p
	s.logger.Debug("workspace provider registered", "provider", id)
}

// Lookup returns the provider registered under id.
func (s *Service) Lookup(id domain.ProviderID) (ports.WorkspaceProvider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	return p, ok
}

// Providers lists the registered provider ids in order.
func (s *Service) Providers() []domain.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.ProviderID, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) resolveProvider(id domain.ProviderID) ports.WorkspaceProvider {
	p, ok := s.Lookup(id)
	if !ok {
		panic(fmt.Errorf("%w: %q", domain.ErrProviderNotFound, id))
	}
	return p
}

// SetCurrentWorkspace selects the workspace to work in. The provider must
// recognize the workspace handle.
func (s *Service) SetCurrentWorkspace(provider domain.ProviderID, workspace domain.WorkspaceHandle) error {
	p, ok := s.Lookup(provider)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrProviderNotFound, provider)
	}
	res := p.GetWorkspace(workspace)
	if !res.IsAvailable() {
		if err := res.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %q", domain.ErrInvalidWorkspace, workspace)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Selection{Provider: provider, Workspace: workspace}
	return nil
}

// CurrentWorkspace returns the selected workspace, if any.
func (s *Service) CurrentWorkspace() (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Selection{}, false
	}
	return *s.current, true
}

// GetWorkspace forwards to the provider's GetWorkspace.
func (s *Service) GetWorkspace(provider domain.ProviderID, handle domain.WorkspaceHandle) domain.Resource[domain.WorkspaceMeta] {
	return s.resolveProvider(provider).GetWorkspace(handle)
}

// GetRootCollections forwards to the provider's GetRootCollections.
func (s *Service) GetRootCollections(provider domain.ProviderID, handle domain.WorkspaceHandle) domain.Resource[domain.RootCollections] {
	return s.resolveProvider(provider).GetRootCollections(handle)
}

// GetCollectionChildren forwards to the provider's GetCollectionChildren.
func (s *Service) GetCollectionChildren(provider domain.ProviderID, handle domain.CollectionHandle) domain.Resource[domain.CollectionChildren] {
	return s.resolveProvider(provider).GetCollectionChildren(handle)
}

// GetRequest forwards to the provider's GetRequest.
func (s *Service) GetRequest(provider domain.ProviderID, handle domain.RequestHandle) domain.Resource[domain.Request] {
	return s.resolveProvider(provider).GetRequest(handle)
}

// CreateCollection forwards to the provider's CreateCollection.
func (s *Service) CreateCollection(ctx context.Context, provider domain.ProviderID, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, input domain.CreateCollectionInput) (domain.CollectionHandle, error) {
	return s.resolveProvider(provider).CreateCollection(ctx, workspace, parent, input)
}

// CreateRequest forwards to the provider's CreateRequest.
func (s *Service) CreateRequest(ctx context.Context, provider domain.ProviderID, workspace domain.WorkspaceHandle, parent domain.CollectionHandle, req domain.Request) (domain.RequestHandle, error) {
	return s.resolveProvider(provider).CreateRequest(ctx, workspace, parent, req)
}

// DeleteRequest forwards to the provider's DeleteRequest.
func (s *Service) DeleteRequest(ctx context.Context, provider domain.ProviderID, handle domain.RequestHandle) error {
	return s.resolveProvider(provider).DeleteRequest(ctx, handle)
}

// DeleteCollection forwards to the provider's DeleteCollection.
func (s *Service) DeleteCollection(ctx context.Context, provider domain.ProviderID, handle domain.CollectionHandle) error {
	return s.resolveProvider(provider).DeleteCollection(ctx, handle)
}

// Watch forwards to the provider's Watch.
func (s *Service) Watch(ctx context.Context, provider domain.ProviderID) <-chan struct{} {
	return s.resolveProvider(provider).Watch(ctx)
}

// Editor returns the provider's structural editor, or
// domain.ErrUnsupportedOperation when it has none.
func (s *Service) Editor(provider domain.ProviderID) (ports.WorkspaceEditor, error) {
	ed, ok := s.resolveProvider(provider).(ports.WorkspaceEditor)
	if !ok {
		return nil, fmt.Errorf("%w: %q cannot edit", domain.ErrUnsupportedOperation, provider)
	}
	return ed, nil
}

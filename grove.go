package grove

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/adapters/file"
	"github.com/aretw0/grove/pkg/adapters/memory"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/mirror"
	"github.com/aretw0/grove/pkg/observability"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/aretw0/grove/pkg/workspace"
	"github.com/aretw0/grove/pkg/workspace/personal"
)

// Grove is the high-level entry point of the library. It owns a collection
// store, the personal workspace provider observing it, and the service the
// provider is registered with.
type Grove struct {
	store    *memory.Store
	provider *personal.Provider
	service  *workspace.Service
	syncer   *mirror.Syncer
	metrics  *observability.Metrics

	seed      []domain.Collection
	snapshots ports.SnapshotStore
	syncOpts  []mirror.Option
	hooks     []domain.LifecycleHooks
	logger    *slog.Logger
}

// Option defines a functional option for configuring a Grove.
type Option func(*Grove)

// WithSeed sets the initial collection tree.
func WithSeed(tree []domain.Collection) Option {
	return func(g *Grove) {
		g.seed = tree
	}
}

// WithLifecycleHooks registers observability hooks. It may be repeated.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Grove) {
		g.hooks = append(g.hooks, hooks)
	}
}

// WithMetrics records provider events in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Grove) {
		g.metrics = m
	}
}

// WithSnapshotStore mirrors the tree to store under key. Run keeps them in
// step; without this option Run only waits for ctx.
func WithSnapshotStore(store ports.SnapshotStore, key string) Option {
	return func(g *Grove) {
		g.snapshots = store
		g.syncOpts = append(g.syncOpts, mirror.WithKey(key))
	}
}

// WithSyncLocker serializes pushes of several instances.
func WithSyncLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(g *Grove) {
		g.syncOpts = append(g.syncOpts, mirror.WithLocker(locker, ttl))
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Grove) {
		g.logger = logger
	}
}

// New wires the store, provider and service.
func New(opts ...Option) (*Grove, error) {
	g := &Grove{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}

	hooks := append([]domain.LifecycleHooks{observability.LoggingHooks(g.logger)}, g.hooks...)
	if g.metrics != nil {
		hooks = append(hooks, g.metrics.Hooks())
	}

	g.store = memory.NewStore(
		memory.WithInitialState(g.seed),
		memory.WithLogger(g.logger),
	)
	g.provider = personal.New(g.store,
		personal.WithLogger(g.logger),
		personal.WithHooks(observability.Combine(hooks...)),
	)
	g.service = workspace.NewService(workspace.WithLogger(g.logger))
	g.service.RegisterWorkspaceProvider(g.provider)
	if err := g.service.SetCurrentWorkspace(personal.ProviderID, personal.WorkspaceHandle); err != nil {
		g.provider.Close()
		return nil, fmt.Errorf("select personal workspace: %w", err)
	}

	if g.snapshots != nil {
		g.syncer = mirror.New(g.store, g.snapshots, append(g.syncOpts, mirror.WithLogger(g.logger))...)
	}
	return g, nil
}

// Store returns the collection store.
func (g *Grove) Store() ports.CollectionStore {
	return g.store
}

// Service returns the workspace service.
func (g *Grove) Service() *workspace.Service {
	return g.service
}

// Provider returns the personal workspace provider.
func (g *Grove) Provider() *personal.Provider {
	return g.provider
}

// Syncer returns the syncer, or nil without a snapshot store.
func (g *Grove) Syncer() *mirror.Syncer {
	return g.syncer
}

// Run keeps the snapshot store in step with the tree until ctx is done.
func (g *Grove) Run(ctx context.Context) error {
	if g.syncer == nil {
		<-ctx.Done()
		return nil
	}
	return g.syncer.Run(ctx)
}

// Close stops the provider.
func (g *Grove) Close() error {
	return g.provider.Close()
}

// LoadSeed reads a collection tree from a JSON or YAML file.
func LoadSeed(ctx context.Context, path string) ([]domain.Collection, error) {
	ext := filepath.Ext(path)
	format := file.FormatJSON
	switch ext {
	case ".json":
	case ".yaml":
		format = file.FormatYAML
	default:
		return nil, fmt.Errorf("unsupported seed format %q", ext)
	}

	store := file.New(filepath.Dir(path), file.WithFormat(format))
	tree, err := store.Load(ctx, strings.TrimSuffix(filepath.Base(path), ext))
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	return tree, nil
}

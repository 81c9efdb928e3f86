// Package mirror keeps the local collection tree and a remote snapshot in
// step: local changes are pushed, remote snapshots replace the local tree.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
)

// DefaultKey is the snapshot key used when none is configured.
const DefaultKey = "personal"

// Syncer mirrors a CollectionStore to a SnapshotStore.
//
// A pulled snapshot arrives locally as one setCollections dispatch. The
// push it triggers is dropped because the tree matches what was just
// pulled, so two instances never bounce the same tree back and forth.
type Syncer struct {
	store     ports.CollectionStore
	snapshots ports.SnapshotStore
	key       string
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex // serializes Push and Pull
	lastSum [sha256.Size]byte
	hasSum  bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithKey sets the snapshot key.
func WithKey(key string) Option {
	return func(s *Syncer) {
		s.key = key
	}
}

// WithLocker takes a distributed lock around every push.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Syncer) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// New creates a Syncer.
func New(store ports.CollectionStore, snapshots ports.SnapshotStore, opts ...Option) *Syncer {
	s := &Syncer{
		store:     store,
		snapshots: snapshots,
		key:       DefaultKey,
		lockTTL:   5 * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checksum identifies a tree by content. Trees are normalized first so
// nil and empty child lists compare equal.
func checksum(tree []domain.Collection) ([sha256.Size]byte, error) {
	normalized := domain.CloneTree(tree)
	domain.EnsureRefIDs(normalized)
	data, err := json.Marshal(normalized)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Push saves the local tree unless it matches the last pushed or pulled one.
func (s *Syncer) Push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.store.State()
	sum, err := checksum(tree)
	if err != nil {
		return fmt.Errorf("checksum local tree: %w", err)
	}
	if s.hasSum && sum == s.lastSum {
		return nil
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, s.key, s.lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", s.key, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				s.logger.Warn("failed to release sync lock", "key", s.key, "err", err)
			}
		}()
	}

	if err := s.snapshots.Save(ctx, s.key, tree); err != nil {
		return fmt.Errorf("push %s: %w", s.key, err)
	}
	s.lastSum, s.hasSum = sum, true
	s.logger.Debug("snapshot pushed", "key", s.key, "collections", len(tree))
	return nil
}

// Pull replaces the local tree with the remote snapshot. It returns
// domain.ErrSnapshotNotFound when nothing was pushed yet.
func (s *Syncer) Pull(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.snapshots.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("pull %s: %w", s.key, err)
	}
	sum, err := checksum(tree)
	if err != nil {
		return fmt.Errorf("checksum remote tree: %w", err)
	}
	if s.hasSum && sum == s.lastSum {
		return nil
	}

	if err := s.store.Dispatch(ctx, domain.NewDispatch(domain.SetCollectionsPayload{Entries: tree})); err != nil {
		return fmt.Errorf("apply %s: %w", s.key, err)
	}
	// The push this dispatch schedules waits on s.mu and finds the sum unchanged.
	s.lastSum, s.hasSum = sum, true
	s.logger.Debug("snapshot pulled", "key", s.key, "collections", len(tree))
	return nil
}

// Run pulls the remote tree (or seeds it from the local one), then pushes
// every local change and pulls every remote one until ctx is done.
// Remote changes are only seen when the snapshot store is ports.Watchable.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.Pull(ctx); err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return err
		}
		if err := s.Push(ctx); err != nil {
			return err
		}
	}

	pushes := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func(ports.Change) {
		select {
		case pushes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var remote <-chan string
	if w, ok := s.snapshots.(ports.Watchable); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch snapshots: %w", err)
		}
		remote = ch
	}

	s.logger.Info("sync started", "key", s.key, "watching", remote != nil)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pushes:
			if err := s.Push(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("push failed", "key", s.key, "err", err)
			}
		case key, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			if key != s.key {
				continue
			}
			if err := s.Pull(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("pull failed", "key", s.key, "err", err)
			}
		}
	}
}

package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
)

// Store implements ports.CollectionStore in memory.
// Safe for concurrent use.
//
// Every dispatch works on a deep copy of the tree, so a slice handed out by
// State or carried in a Change is never mutated afterwards. Subscribers must
// not dispatch synchronously from their callback.
type Store struct {
	dispatchMu sync.Mutex // serializes reduce + notify

	mu    sync.RWMutex
	state []domain.Collection

	subsMu  sync.Mutex
	subs    map[int]func(ports.Change)
	nextSub int

	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for rejected dispatches.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithInitialState seeds the store. The tree is copied and missing ref ids
// are filled in.
func WithInitialState(tree []domain.Collection) StoreOption {
	return func(s *Store) {
		s.state = domain.CloneTree(tree)
		domain.EnsureRefIDs(s.state)
	}
}

// NewStore creates a new in-memory collection store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:  []domain.Collection{},
		subs:   make(map[int]func(ports.Change)),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current tree. Callers must treat it as read-only.
func (s *Store) State() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies d and notifies subscribers before returning.
func (s *Store) Dispatch(ctx context.Context, d domain.Dispatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.Payload == nil {
		return domain.ErrInvalidDispatch
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	prev := s.State()
	if err := d.Check(prev); err != nil {
		s.logger.Debug("dispatch rejected", "dispatcher", d.Dispatcher, "err", err)
		return err
	}
	next, err := apply(domain.CloneTree(prev), d)
	if err != nil {
		s.logger.Debug("dispatch rejected", "dispatcher", d.Dispatcher, "err", err)
		return err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	change := ports.Change{Dispatch: d, Prev: prev, Next: next}
	for _, fn := range s.subscribers() {
		fn(change)
	}
	return nil
}

// Subscribe registers fn for every applied dispatch. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(ports.Change)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// subscribers snapshots the callbacks in subscription order.
func (s *Store) subscribers() []func(ports.Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]func(ports.Change), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

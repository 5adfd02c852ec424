// Package favorites keeps the set of favorited content items.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/at-ishikawa/civics/internal/persist"
	"github.com/at-ishikawa/civics/internal/storage"
)

// StorageKey is the key the favorites snapshot is stored under.
const StorageKey = "favorites"

// Store holds favorited item IDs in insertion order.
// IDs are opaque; they are not checked against the content tree.
type Store struct {
	lifecycle persist.Lifecycle
	storage   storage.Storage
	mirror    *persist.Mirror
	logger    *slog.Logger

	mu    sync.RWMutex
	ids   []string
	index map[string]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an uninitialized store. Call Load before mutating it.
func NewStore(s storage.Storage, opts ...Option) *Store {
	store := &Store{
		storage: s,
		logger:  slog.Default(),
		index:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}
	store.mirror = persist.NewMirror(s, StorageKey, persist.WithLogger(store.logger))
	return store
}

// Load reads the persisted favorites. A storage failure is logged and the store starts empty.
func (s *Store) Load(ctx context.Context) error {
	if err := s.lifecycle.BeginLoad(); err != nil {
		return fmt.Errorf("lifecycle.BeginLoad() > %w", err)
	}

	ids, _ := persist.LoadSnapshot[[]string](ctx, s.storage, StorageKey, s.logger)

	s.mu.Lock()
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	count := len(s.ids)
	s.mu.Unlock()

	s.lifecycle.MarkReady()
	s.logger.Debug("loaded favorites", "count", count)
	return nil
}

func (s *Store) State() persist.State {
	return s.lifecycle.State()
}

// IsFavorite reports whether id is favorited. It is false until the store is loaded.
func (s *Store) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Add favorites id. Adding an existing favorite is a no-op.
func (s *Store) Add(id string) error {
	if err := s.lifecycle.CheckReady(); err != nil {
		return fmt.Errorf("lifecycle.CheckReady() > %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		return nil
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	s.submitLocked()
	return nil
}

// Remove unfavorites id. Removing a missing favorite is a no-op.
func (s *Store) Remove(id string) error {
	if err := s.lifecycle.CheckReady(); err != nil {
		return fmt.Errorf("lifecycle.CheckReady() > %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return nil
	}
	delete(s.index, id)
	s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })
	s.submitLocked()
	return nil
}

// Toggle adds id when it is not a favorite and removes it otherwise.
// It returns whether id is a favorite afterwards.
func (s *Store) Toggle(id string) (bool, error) {
	if s.IsFavorite(id) {
		return false, s.Remove(id)
	}
	return true, s.Add(id)
}

// List returns the favorites in the order they were added.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Flush waits for pending writes to be attempted.
func (s *Store) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

// Close flushes pending writes and stops the background writer.
func (s *Store) Close(ctx context.Context) error {
	return s.mirror.Close(ctx)
}

func (s *Store) submitLocked() {
	snapshot, err := persist.EncodeSnapshot(s.ids)
	if err != nil {
		s.logger.Error("failed to encode favorites", "error", err)
		return
	}
	s.mirror.Submit(snapshot)
}

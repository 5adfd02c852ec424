// Package history records which content items were read and when.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/at-ishikawa/civics/internal/persist"
	"github.com/at-ishikawa/civics/internal/storage"
)

const (
	// StorageKey is the key the history snapshot is stored under.
	StorageKey = "reading_history"

	DefaultMaxEntries = 50
)

// Entry is one visited item.
type Entry struct {
	ItemID     string    `json:"item_id"`
	VisitedAt  time.Time `json:"visited_at"`
	VisitCount int       `json:"visit_count"`
}

// Store keeps the reading history, most recent visit first.
type Store struct {
	lifecycle persist.Lifecycle
	storage   storage.Storage
	mirror    *persist.Mirror
	logger    *slog.Logger

	now        func() time.Time
	maxEntries int
	maxAge     time.Duration

	mu      sync.RWMutex
	entries []Entry
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMaxEntries caps the number of entries. Values below 1 keep the default.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithMaxAge drops entries not visited within d. Zero keeps entries forever.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.maxAge = d
		}
	}
}

func NewStore(s storage.Storage, opts ...Option) *Store {
	store := &Store{
		storage:    s,
		logger:     slog.Default(),
		now:        time.Now,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(store)
	}
	store.mirror = persist.NewMirror(s, StorageKey, persist.WithLogger(store.logger))
	return store
}

// Load reads the persisted history. Duplicate, expired and excess entries are dropped.
func (s *Store) Load(ctx context.Context) error {
	if err := s.lifecycle.BeginLoad(); err != nil {
		return fmt.Errorf("lifecycle.BeginLoad() > %w", err)
	}

	stored, _ := persist.LoadSnapshot[[]Entry](ctx, s.storage, StorageKey, s.logger)

	s.mu.Lock()
	seen := make(map[string]struct{}, len(stored))
	for _, entry := range stored {
		if entry.ItemID == "" {
			continue
		}
		if _, ok := seen[entry.ItemID]; ok {
			continue
		}
		seen[entry.ItemID] = struct{}{}
		if entry.VisitCount < 1 {
			entry.VisitCount = 1
		}
		s.entries = append(s.entries, entry)
	}
	slices.SortStableFunc(s.entries, func(a, b Entry) int {
		return b.VisitedAt.Compare(a.VisitedAt)
	})
	pruned := s.pruneLocked()
	count := len(s.entries)
	if pruned {
		s.submitLocked()
	}
	s.mu.Unlock()

	s.lifecycle.MarkReady()
	s.logger.Debug("loaded reading history", "count", count, "pruned", pruned)
	return nil
}

func (s *Store) State() persist.State {
	return s.lifecycle.State()
}

// RecordVisit moves id to the front of the history and increments its visit count.
func (s *Store) RecordVisit(id string) (Entry, error) {
	if err := s.lifecycle.CheckReady(); err != nil {
		return Entry{}, fmt.Errorf("lifecycle.CheckReady() > %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{ItemID: id}
	if i := slices.IndexFunc(s.entries, func(e Entry) bool { return e.ItemID == id }); i >= 0 {
		entry = s.entries[i]
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	entry.VisitedAt = s.now().UTC()
	entry.VisitCount++
	s.entries = slices.Insert(s.entries, 0, entry)

	s.pruneLocked()
	s.submitLocked()
	return entry, nil
}

// History returns every entry, most recent first.
func (s *Store) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Recent returns at most n entries, most recent first. n <= 0 returns all entries.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	return slices.Clone(s.entries[:n])
}

// Lookup returns the entry for id.
func (s *Store) Lookup(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.entries, func(e Entry) bool { return e.ItemID == id })
	if i < 0 {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if err := s.lifecycle.CheckReady(); err != nil {
		return fmt.Errorf("lifecycle.CheckReady() > %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	s.entries = nil
	s.submitLocked()
	return nil
}

func (s *Store) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.mirror.Close(ctx)
}

// pruneLocked applies the age and size limits. Entries must be sorted most recent first.
func (s *Store) pruneLocked() bool {
	before := len(s.entries)
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		s.entries = slices.DeleteFunc(s.entries, func(e Entry) bool {
			return e.VisitedAt.Before(cutoff)
		})
	}
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	return len(s.entries) != before
}

func (s *Store) submitLocked() {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	snapshot, err := persist.EncodeSnapshot(entries)
	if err != nil {
		s.logger.Error("failed to encode reading history", "error", err)
		return
	}
	s.mirror.Submit(snapshot)
}

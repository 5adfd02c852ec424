package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/at-ishikawa/civics/internal/storage"
)

// State is the initialization state of a store.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	// ErrNotReady is returned by mutations issued before the store finished loading.
	ErrNotReady = errors.New("store is not ready")
	// ErrAlreadyLoaded is returned when Load is called more than once.
	ErrAlreadyLoaded = errors.New("store is already loaded")
)

// Lifecycle tracks the uninitialized → loading → ready transitions of a store.
// The zero value is uninitialized.
type Lifecycle struct {
	state atomic.Int32
}

func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// BeginLoad moves an uninitialized store to loading.
func (l *Lifecycle) BeginLoad() error {
	if !l.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		return fmt.Errorf("state %s: %w", l.State(), ErrAlreadyLoaded)
	}
	return nil
}

func (l *Lifecycle) MarkReady() {
	l.state.Store(int32(StateReady))
}

// CheckReady returns ErrNotReady unless the store is ready.
func (l *Lifecycle) CheckReady() error {
	if state := l.State(); state != StateReady {
		return fmt.Errorf("state %s: %w", state, ErrNotReady)
	}
	return nil
}

// LoadSnapshot reads and decodes the JSON snapshot stored under key.
// Storage failures and undecodable snapshots are logged and reported as not found,
// so a store can start empty instead of failing.
func LoadSnapshot[T any](ctx context.Context, s storage.Storage, key string, logger *slog.Logger) (T, bool) {
	var snapshot T
	value, found, err := s.Load(ctx, key)
	if err != nil {
		logger.Warn("storage unavailable, starting empty", "key", key, "error", err)
		return snapshot, false
	}
	if !found || value == "" {
		return snapshot, false
	}
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		logger.Warn("discarding unreadable snapshot", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return snapshot, true
}

// EncodeSnapshot encodes a snapshot for Mirror.Submit.
func EncodeSnapshot(snapshot any) (string, error) {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("json.Marshal() > %w", err)
	}
	return string(b), nil
}

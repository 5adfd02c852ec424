// Package preferences stores reader display settings.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/at-ishikawa/civics/internal/persist"
	"github.com/at-ishikawa/civics/internal/storage"
)

const StorageKey = "preferences"

// ErrInvalidValue is returned for an unknown text size or theme mode.
var ErrInvalidValue = errors.New("invalid preference value")

type TextSize string

const (
	TextSizeSmall  TextSize = "small"
	TextSizeMedium TextSize = "medium"
	TextSizeLarge  TextSize = "large"
)

var TextSizes = []TextSize{TextSizeSmall, TextSizeMedium, TextSizeLarge}

func (t TextSize) Valid() bool {
	return slices.Contains(TextSizes, t)
}

type ThemeMode string

const (
	ThemeModeSystem ThemeMode = "system"
	ThemeModeLight  ThemeMode = "light"
	ThemeModeDark   ThemeMode = "dark"
)

var ThemeModes = []ThemeMode{ThemeModeSystem, ThemeModeLight, ThemeModeDark}

func (m ThemeMode) Valid() bool {
	return slices.Contains(ThemeModes, m)
}

type Preferences struct {
	TextSize  TextSize  `json:"text_size"`
	ThemeMode ThemeMode `json:"theme_mode"`
}

// Defaults returns the preferences used before anything is stored.
func Defaults() Preferences {
	return Preferences{
		TextSize:  TextSizeMedium,
		ThemeMode: ThemeModeSystem,
	}
}

type Store struct {
	lifecycle persist.Lifecycle
	storage   storage.Storage
	mirror    *persist.Mirror
	logger    *slog.Logger

	mu    sync.RWMutex
	prefs Preferences
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(s storage.Storage, opts ...Option) *Store {
	store := &Store{
		storage: s,
		logger:  slog.Default(),
		prefs:   Defaults(),
	}
	for _, opt := range opts {
		opt(store)
	}
	store.mirror = persist.NewMirror(s, StorageKey, persist.WithLogger(store.logger))
	return store
}

// Load reads the stored preferences. Unknown stored values fall back to the defaults.
func (s *Store) Load(ctx context.Context) error {
	if err := s.lifecycle.BeginLoad(); err != nil {
		return fmt.Errorf("lifecycle.BeginLoad() > %w", err)
	}

	stored, found := persist.LoadSnapshot[Preferences](ctx, s.storage, StorageKey, s.logger)
	if found {
		s.mu.Lock()
		if stored.TextSize.Valid() {
			s.prefs.TextSize = stored.TextSize
		} else {
			s.logger.Warn("ignoring stored text size", "value", stored.TextSize)
		}
		if stored.ThemeMode.Valid() {
			s.prefs.ThemeMode = stored.ThemeMode
		} else {
			s.logger.Warn("ignoring stored theme mode", "value", stored.ThemeMode)
		}
		s.mu.Unlock()
	}

	s.lifecycle.MarkReady()
	return nil
}

func (s *Store) State() persist.State {
	return s.lifecycle.State()
}

func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *Store) SetTextSize(size TextSize) error {
	if !size.Valid() {
		return fmt.Errorf("text size %q: %w", size, ErrInvalidValue)
	}
	return s.update(func(p *Preferences) {
		p.TextSize = size
	})
}

func (s *Store) SetThemeMode(mode ThemeMode) error {
	if !mode.Valid() {
		return fmt.Errorf("theme mode %q: %w", mode, ErrInvalidValue)
	}
	return s.update(func(p *Preferences) {
		p.ThemeMode = mode
	})
}

// Update applies the non-empty fields of change in one write.
// Nothing changes unless every given value is valid.
func (s *Store) Update(change Preferences) error {
	if change.TextSize != "" && !change.TextSize.Valid() {
		return fmt.Errorf("text size %q: %w", change.TextSize, ErrInvalidValue)
	}
	if change.ThemeMode != "" && !change.ThemeMode.Valid() {
		return fmt.Errorf("theme mode %q: %w", change.ThemeMode, ErrInvalidValue)
	}
	return s.update(func(p *Preferences) {
		if change.TextSize != "" {
			p.TextSize = change.TextSize
		}
		if change.ThemeMode != "" {
			p.ThemeMode = change.ThemeMode
		}
	})
}

func (s *Store) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.mirror.Close(ctx)
}

func (s *Store) update(fn func(*Preferences)) error {
	if err := s.lifecycle.CheckReady(); err != nil {
		return fmt.Errorf("lifecycle.CheckReady() > %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	fn(&next)
	if next == s.prefs {
		return nil
	}
	s.prefs = next

	snapshot, err := persist.EncodeSnapshot(s.prefs)
	if err != nil {
		s.logger.Error("failed to encode preferences", "error", err)
		return nil
	}
	s.mirror.Submit(snapshot)
	return nil
}

// Package library groups the per-reader stores backed by one storage.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/favorites"
	"github.com/at-ishikawa/civics/internal/history"
	"github.com/at-ishikawa/civics/internal/preferences"
	"github.com/at-ishikawa/civics/internal/storage"
)

type Library struct {
	Favorites   *favorites.Store
	History     *history.Store
	Preferences *preferences.Store

	logger *slog.Logger
}

// New creates the stores. They are unusable for writes until Load returns.
func New(s storage.Storage, historyConfig config.HistoryConfig, logger *slog.Logger, historyOptions ...history.Option) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []history.Option{
		history.WithLogger(logger),
		history.WithMaxEntries(historyConfig.MaxEntries),
		history.WithMaxAge(time.Duration(historyConfig.MaxAgeDays) * 24 * time.Hour),
	}
	opts = append(opts, historyOptions...)

	return &Library{
		Favorites:   favorites.NewStore(s, favorites.WithLogger(logger)),
		History:     history.NewStore(s, opts...),
		Preferences: preferences.NewStore(s, preferences.WithLogger(logger)),
		logger:      logger,
	}
}

func (l *Library) Load(ctx context.Context) error {
	if err := l.Favorites.Load(ctx); err != nil {
		return fmt.Errorf("Favorites.Load() > %w", err)
	}
	if err := l.History.Load(ctx); err != nil {
		return fmt.Errorf("History.Load() > %w", err)
	}
	if err := l.Preferences.Load(ctx); err != nil {
		return fmt.Errorf("Preferences.Load() > %w", err)
	}
	return nil
}

// Visit resolves id in tree and records it in the reading history.
// Unknown ids are reported as not found and not recorded.
func (l *Library) Visit(tree *content.Tree, id string) (content.ItemLocation, history.Entry, bool, error) {
	location, ok := tree.FindItemByID(id)
	if !ok {
		return content.ItemLocation{}, history.Entry{}, false, nil
	}
	entry, err := l.History.RecordVisit(id)
	if err != nil {
		return location, history.Entry{}, true, fmt.Errorf("History.RecordVisit(%s) > %w", id, err)
	}
	return location, entry, true, nil
}

// Flush waits for every pending write of every store.
func (l *Library) Flush(ctx context.Context) error {
	return errors.Join(
		l.Favorites.Flush(ctx),
		l.History.Flush(ctx),
		l.Preferences.Flush(ctx),
	)
}

// Close flushes and stops every store.
func (l *Library) Close(ctx context.Context) error {
	err := errors.Join(
		l.Favorites.Close(ctx),
		l.History.Close(ctx),
		l.Preferences.Close(ctx),
	)
	if err != nil {
		l.logger.Warn("failed to close library", "error", err)
	}
	return err
}

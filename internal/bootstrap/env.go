package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/library"
	"github.com/at-ishikawa/civics/internal/storage"
)

// Env holds the components shared by the CLI and the server.
type Env struct {
	Config  *config.Config
	Tree    *content.Tree
	Storage storage.Storage
	Library *library.Library
}

// Setup loads the content tree, opens storage and loads the library.
// Closing the library and the storage is registered on app, in that order.
func Setup(ctx context.Context, app *App, cfg *config.Config, logger *slog.Logger) (*Env, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tree, err := content.Open(cfg.Content.FixtureFile)
	if err != nil {
		return nil, fmt.Errorf("content.Open(%s) > %w", cfg.Content.FixtureFile, err)
	}

	s, closeStorage, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("OpenStorage(%s) > %w", cfg.Storage.Driver, err)
	}
	app.AddShutdownHook(func(context.Context) error {
		return closeStorage()
	})

	lib := library.New(s, cfg.History, logger)
	app.AddShutdownHook(lib.Close)
	if err := lib.Load(ctx); err != nil {
		return nil, fmt.Errorf("library.Load() > %w", err)
	}

	logger.Debug("environment ready",
		"driver", cfg.Storage.Driver,
		"items", tree.ItemCount(),
	)
	return &Env{
		Config:  cfg,
		Tree:    tree,
		Storage: s,
		Library: lib,
	}, nil
}

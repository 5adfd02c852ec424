package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/database"
	"github.com/at-ishikawa/civics/internal/storage"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverHTTP   = "http"
)

// OpenStorage opens the storage selected by cfg.Storage.Driver.
// SQL drivers are migrated before use. The returned close function is never nil.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
		return storage.NewMemoryStorage(), noop, nil

	case DriverFile:
		return storage.NewFileStorage(cfg.Storage.File.Directory), noop, nil

	case DriverMySQL:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("database.Open() > %w", err)
		}
		return openSQLStorage(ctx, db, database.DialectMySQL)

	case DriverSQLite:
		db, err := database.OpenSQLite(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("database.OpenSQLite(%s) > %w", cfg.Storage.SQLite.Path, err)
		}
		return openSQLStorage(ctx, db, database.DialectSQLite)

	case DriverBadger:
		s, err := storage.OpenBadgerStorage(storage.BadgerConfig{
			Path:       cfg.Storage.Badger.Directory,
			SyncWrites: cfg.Storage.Badger.SyncWrites,
			Logger:     logger.With("component", "badger"),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("storage.OpenBadgerStorage(%s) > %w", cfg.Storage.Badger.Directory, err)
		}
		return s, s.Close, nil

	case DriverHTTP:
		s := storage.NewHTTPStorage(httpStorageConfig(cfg.Storage.HTTP))
		return s, s.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSQLStorage(ctx context.Context, db *sqlx.DB, dialect database.Dialect) (storage.Storage, func() error, error) {
	if err := database.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, func() error { return nil }, fmt.Errorf("database.Migrate(%s) > %w", dialect, err)
	}
	return storage.NewSQLStorage(db, dialect), db.Close, nil
}

func httpStorageConfig(cfg config.HTTPStorageConfig) storage.HTTPConfig {
	return storage.HTTPConfig{
		BaseURL:       cfg.BaseURL,
		Token:         cfg.Token,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	}
}

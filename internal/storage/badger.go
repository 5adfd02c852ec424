package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "civics/kv/"

// BadgerConfig configures an embedded Badger database.
type BadgerConfig struct {
	// Path is ignored when InMemory is true.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives Badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// BadgerStorage stores values in an embedded Badger database.
type BadgerStorage struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStorage opens the database. Callers must Close it.
func OpenBadgerStorage(cfg BadgerConfig) (*BadgerStorage, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger.Open() > %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func badgerKey(key string) []byte {
	return []byte(badgerKeyPrefix + key)
}

func (s *BadgerStorage) Load(_ context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("load %q: %w", key, err)
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("db.View(%s) > %w", key, err)
	}
	return string(value), true, nil
}

func (s *BadgerStorage) Save(_ context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(key), []byte(value))
	}); err != nil {
		return fmt.Errorf("db.Update(%s) > %w", key, err)
	}
	return nil
}

func (s *BadgerStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	}); err != nil {
		return fmt.Errorf("db.Update(delete %s) > %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

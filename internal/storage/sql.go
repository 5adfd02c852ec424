package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/civics/internal/database"
)

// SQLStorage stores values in the kv_entries table.
type SQLStorage struct {
	db      *sqlx.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewSQLStorage creates a SQLStorage. The schema must have been migrated with database.Migrate.
func NewSQLStorage(db *sqlx.DB, dialect database.Dialect) *SQLStorage {
	return &SQLStorage{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

func (s *SQLStorage) Load(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("load %q: %w", key, err)
	}

	var value string
	err := s.db.GetContext(ctx, &value, "SELECT entry_value FROM kv_entries WHERE entry_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("db.GetContext(kv_entries %s) > %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStorage) Save(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}

	query, err := s.upsertQuery()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("db.ExecContext(upsert kv_entries %s) > %w", key, err)
	}
	return nil
}

// SaveAll upserts every value in one transaction, so either all keys are written or none.
func (s *SQLStorage) SaveAll(ctx context.Context, values map[string]string) error {
	keys := slices.Sorted(maps.Keys(values))
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return fmt.Errorf("save %q: %w", key, err)
		}
	}
	query, err := s.upsertQuery()
	if err != nil {
		return err
	}

	updatedAt := s.now().UTC()
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, query, key, values[key], updatedAt); err != nil {
				return fmt.Errorf("tx.ExecContext(upsert kv_entries %s) > %w", key, err)
			}
		}
		return nil
	})
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE entry_key = ?", key); err != nil {
		return fmt.Errorf("db.ExecContext(delete kv_entries %s) > %w", key, err)
	}
	return nil
}

func (s *SQLStorage) upsertQuery() (string, error) {
	switch s.dialect {
	case database.DialectMySQL:
		return `INSERT INTO kv_entries (entry_key, entry_value, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = VALUES(updated_at)`, nil
	case database.DialectSQLite:
		return `INSERT INTO kv_entries (entry_key, entry_value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", s.dialect)
	}
}

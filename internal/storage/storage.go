// Package storage provides key-value persistence for the library stores.
package storage

import (
	"context"
	"errors"
)

//go:generate mockgen -source=storage.go -destination=../mocks/storage/mock_storage.go -package=mock_storage

// Storage persists text values by key.
type Storage interface {
	// Load returns the value for key. found is false when the key was never saved.
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Save(ctx context.Context, key, value string) error
}

// Deleter is implemented by storages that can remove a key.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// BatchSaver is implemented by storages that can write several keys atomically.
type BatchSaver interface {
	SaveAll(ctx context.Context, values map[string]string) error
}

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid storage key")

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.') {
			return ErrInvalidKey
		}
	}
	if key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage stores each key as a JSON file under a directory.
type FileStorage struct {
	rootDir string
}

// NewFileStorage creates a FileStorage rooted at directory. The directory is created on first save.
func NewFileStorage(directory string) *FileStorage {
	return &FileStorage{rootDir: directory}
}

func (s *FileStorage) filePath(key string) string {
	return filepath.Join(s.rootDir, key+".json")
}

func (s *FileStorage) Load(_ context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("load %q: %w", key, err)
	}

	contents, err := os.ReadFile(s.filePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("os.ReadFile(%s) > %w", s.filePath(key), err)
	}
	return string(contents), true, nil
}

// Save writes to a temporary file and renames it so readers never observe a partial value.
func (s *FileStorage) Save(_ context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", s.rootDir, err)
	}

	file, err := os.CreateTemp(s.rootDir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp > %w", err)
	}
	tmpPath := file.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := file.WriteString(value); err != nil {
		_ = file.Close()
		return fmt.Errorf("file.Write > %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("file.Close > %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath(key)); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", s.filePath(key), err)
	}
	return nil
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if err := os.Remove(s.filePath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", s.filePath(key), err)
	}
	return nil
}

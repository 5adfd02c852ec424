// Package testutil provides shared test helpers for creating config files and content fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MinimalFixture is a valid content tree with one founding document and one regular item.
const MinimalFixture = `main_sections:
  - id: foundations
    title: Founding Documents
    sections:
      - id: principles
        title: Declaring Independence
        subsections:
          - id: declaration
            title: Declaration of Independence
            year: 1776
            summary: Independence from Great Britain.
            content: All men are created equal.
  - id: history
    title: American History
    sections:
      - id: nineteenth-century
        title: The 1800s
        subsections:
          - id: civil-war
            title: The Civil War
            summary: North and South.
`

// SetupTestConfig creates a config file using file storage and returns its path.
// Storage and export directories are created under tmpDir.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()
	return SetupTestConfigWithDriver(t, tmpDir, "file")
}

// SetupTestConfigWithDriver creates a config file for the given storage driver and returns its path.
func SetupTestConfigWithDriver(t *testing.T, tmpDir, driver string) string {
	t.Helper()

	dirs := []string{"library", "badger", "export"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`storage:
  driver: %s
  file:
    directory: %s
  sqlite:
    path: %s
  badger:
    directory: %s
    sync_writes: false
history:
  max_entries: 10
outputs:
  export_directory: %s
`,
		driver,
		filepath.Join(tmpDir, "library"),
		filepath.Join(tmpDir, "civics.sqlite"),
		filepath.Join(tmpDir, "badger"),
		filepath.Join(tmpDir, "export"),
	)

	configPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	return configPath
}

// SetupTestConfigWithFixture is SetupTestConfig with content.fixture_file pointing at
// a file holding fixture.
func SetupTestConfigWithFixture(t *testing.T, tmpDir, fixture string) string {
	t.Helper()
	configPath := SetupTestConfig(t, tmpDir)
	fixturePath := WriteContentFixture(t, tmpDir, fixture)

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	_, err = fmt.Fprintf(f, "content:\n  fixture_file: %s\n", fixturePath)
	require.NoError(t, err)
	return configPath
}

// WriteContentFixture writes fixture to <dir>/content.yml and returns the path.
func WriteContentFixture(t *testing.T, dir, fixture string) string {
	t.Helper()
	path := filepath.Join(dir, "content.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0644))
	return path
}

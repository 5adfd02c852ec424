package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/testutil"
)

func TestNewValidateCommand(t *testing.T) {
	cmd := newValidateCommand()
	assert.Equal(t, "validate [fixture file]", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name         string
		fixture      string
		wantErr      error
		wantContains []string
	}{
		{
			name:    "valid fixture missing founding documents",
			fixture: testutil.MinimalFixture,
			wantContains: []string{
				"is valid: 2 main sections, 2 items",
				`warning: founding document "constitution" is not in the tree`,
			},
		},
		{
			name: "duplicate item id",
			fixture: `main_sections:
  - id: a
    title: A
    sections:
      - id: s1
        title: S1
        subsections:
          - {id: declaration, title: One}
      - id: s2
        title: S2
        subsections:
          - {id: declaration, title: Two}
`,
			wantErr: content.ErrDuplicateID,
		},
		{
			name:    "missing title",
			fixture: "main_sections:\n  - id: a\n",
			wantErr: content.ErrInvalidFixture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteContentFixture(t, t.TempDir(), tt.fixture)
			got, err := executeCommand(t, "validate", path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestValidateCommand_EmbeddedContent(t *testing.T) {
	cfgPath := testutil.SetupTestConfig(t, t.TempDir())
	got, err := executeCommand(t, "--config", cfgPath, "validate")
	require.NoError(t, err)
	assert.Contains(t, got, "embedded content is valid")
	assert.NotContains(t, got, "warning")
}

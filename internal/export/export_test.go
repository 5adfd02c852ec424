package export

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/civics/internal/content"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func declarationLocation() content.ItemLocation {
	return content.ItemLocation{
		MainSection: content.MainSection{ID: "foundations", Title: "Founding Documents"},
		Section:     content.Section{ID: "principles", Title: "Declaring Independence"},
		Item: content.SubSection{
			ID:      "declaration",
			Title:   "Declaration of Independence",
			Year:    1776,
			Summary: "The colonies announce their separation.",
			Content: "All men are created equal.\n",
		},
	}
}

func TestParseItemTemplate(t *testing.T) {
	tests := []struct {
		name             string
		templatePath     func(t *testing.T) string
		wantTemplateName string
		wantContains     []string
	}{
		{
			name: "uses filesystem template when available",
			templatePath: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "custom.md.go.tmpl")
				require.NoError(t, os.WriteFile(path, []byte(`Custom: {{ .Item.Title }} ({{ join .Breadcrumb ">" }})`), 0644))
				return path
			},
			wantTemplateName: "custom.md.go.tmpl",
			wantContains:     []string{"Custom: Declaration of Independence (Founding Documents>Declaring Independence>Declaration of Independence)"},
		},
		{
			name:             "uses embedded template when no path is configured",
			templatePath:     func(t *testing.T) string { return "" },
			wantTemplateName: fallbackTemplateName,
			wantContains: []string{
				"# Declaration of Independence",
				"_Founding Documents / Declaring Independence / Declaration of Independence_",
				"**Year:** 1776",
				"> The colonies announce their separation.",
				"All men are created equal.",
				"Route: `/document/declaration` (favorite)",
			},
		},
		{
			name:             "uses embedded template when the file does not exist",
			templatePath:     func(t *testing.T) string { return "/non/existent/item.md.go.tmpl" },
			wantTemplateName: fallbackTemplateName,
			wantContains:     []string{"# Declaration of Independence"},
		},
		{
			name: "uses embedded template when the file cannot be parsed",
			templatePath: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "broken.md.go.tmpl")
				require.NoError(t, os.WriteFile(path, []byte(`{{ .Item.Title `), 0644))
				return path
			},
			wantTemplateName: fallbackTemplateName,
			wantContains:     []string{"# Declaration of Independence"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseItemTemplate(tt.templatePath(t), discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTemplateName, tmpl.Name())

			var buf bytes.Buffer
			exporter := NewExporter(tmpl, t.TempDir(), discardLogger())
			require.NoError(t, exporter.Render(&buf, NewDocument(declarationLocation(), true)))
			for _, want := range tt.wantContains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	location := declarationLocation()
	location.Item.ID = "civil-war"

	doc := NewDocument(location, false)
	assert.Equal(t, "/detail/civil-war", doc.Route)
	assert.Equal(t, []string{"Founding Documents", "Declaring Independence", "Declaration of Independence"}, doc.Breadcrumb)
	assert.False(t, doc.Favorite)
}

func TestExporter_Export(t *testing.T) {
	tmpl, err := ParseItemTemplate("", discardLogger())
	require.NoError(t, err)

	t.Run("markdown only", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "export")
		exporter := NewExporter(tmpl, dir, discardLogger())

		result, err := exporter.Export(NewDocument(declarationLocation(), false), false)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "declaration.md"), result.MarkdownPath)
		assert.Empty(t, result.PDFPath)

		body, err := os.ReadFile(result.MarkdownPath)
		require.NoError(t, err)
		assert.Contains(t, string(body), "# Declaration of Independence")
		assert.NotContains(t, string(body), "(favorite)")
	})

	t.Run("with pdf", func(t *testing.T) {
		dir := t.TempDir()
		exporter := NewExporter(tmpl, dir, discardLogger())

		result, err := exporter.Export(NewDocument(declarationLocation(), true), true)
		require.NoError(t, err)
		assert.Equal(t, ".pdf", filepath.Ext(result.PDFPath))
		_, err = os.Stat(result.PDFPath)
		assert.NoError(t, err)
	})
}

func TestExporter_Export_RejectsUnsafeIDs(t *testing.T) {
	tmpl, err := ParseItemTemplate("", discardLogger())
	require.NoError(t, err)

	for _, id := range []string{"../escape", "nested/item", "/etc/passwd"} {
		t.Run(id, func(t *testing.T) {
			root := t.TempDir()
			dir := filepath.Join(root, "export")
			exporter := NewExporter(tmpl, dir, discardLogger())

			location := declarationLocation()
			location.Item.ID = id
			_, err := exporter.Export(NewDocument(location, false), false)
			assert.ErrorContains(t, err, "cannot be used as a file name")

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing is written")
		})
	}
}

func TestConvertMarkdownToPDF(t *testing.T) {
	tests := []struct {
		name       string
		setupFile  func(t *testing.T) string
		wantErrMsg string
	}{
		{
			name:       "invalid extension",
			setupFile:  func(t *testing.T) string { return "item.txt" },
			wantErrMsg: "input file must have .md extension",
		},
		{
			name:       "file not found",
			setupFile:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.md") },
			wantErrMsg: "os.ReadFile",
		},
		{
			name: "successful conversion",
			setupFile: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "item.md")
				require.NoError(t, os.WriteFile(path, []byte("# Bill of Rights\n\nThe first ten amendments.\n"), 0644))
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfPath, err := ConvertMarkdownToPDF(tt.setupFile(t))
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(pdfPath))
			_, err = os.Stat(pdfPath)
			assert.NoError(t, err)
		})
	}
}

// Package export renders content items to markdown and PDF documents.
package export

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const fallbackTemplateName = "item.md.go.tmpl"

//go:embed templates/item.md.go.tmpl
var fallbackItemTemplate string

// ParseItemTemplate parses the template at templatePath, or the embedded one when
// templatePath is empty, missing or unparsable.
func ParseItemTemplate(templatePath string, logger *slog.Logger) (*template.Template, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(templatePath)).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			logger.Warn("failed to parse an item template, using the embedded one",
				slog.String("templatePath", templatePath),
				slog.Any("error", err),
			)
		} else {
			logger.Warn("item template not found, using the embedded one",
				slog.String("templatePath", templatePath),
			)
		}
	}

	tmpl, err := template.New(fallbackTemplateName).
		Funcs(funcMap).
		Parse(fallbackItemTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

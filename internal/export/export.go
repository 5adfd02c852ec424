package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/route"
)

// Document is the data an item template is executed with.
type Document struct {
	Item        content.SubSection
	Section     content.Section
	MainSection content.MainSection
	Breadcrumb  []string
	Route       string
	Favorite    bool
}

func NewDocument(location content.ItemLocation, favorite bool) Document {
	return Document{
		Item:        location.Item,
		Section:     location.Section,
		MainSection: location.MainSection,
		Breadcrumb:  location.Breadcrumb(),
		Route:       route.ItemRoute(location.Item.ID),
		Favorite:    favorite,
	}
}

// Result holds the paths of the written files. PDFPath is empty unless requested.
type Result struct {
	MarkdownPath string
	PDFPath      string
}

type Exporter struct {
	template  *template.Template
	outputDir string
	logger    *slog.Logger
}

func NewExporter(tmpl *template.Template, outputDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		template:  tmpl,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Render writes the markdown of doc to w.
func (e *Exporter) Render(w io.Writer, doc Document) error {
	if err := e.template.Execute(w, doc); err != nil {
		return fmt.Errorf("template.Execute(%s) > %w", doc.Item.ID, err)
	}
	return nil
}

// Export writes <outputDir>/<id>.md and, when withPDF is set, the PDF next to it.
func (e *Exporter) Export(doc Document, withPDF bool) (Result, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, doc); err != nil {
		return Result{}, err
	}

	name := doc.Item.ID + ".md"
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		return Result{}, fmt.Errorf("item id %q cannot be used as a file name", doc.Item.ID)
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return Result{}, fmt.Errorf("os.MkdirAll(%s) > %w", e.outputDir, err)
	}
	markdownPath := filepath.Join(e.outputDir, name)
	if err := os.WriteFile(markdownPath, buf.Bytes(), 0644); err != nil {
		return Result{}, fmt.Errorf("os.WriteFile(%s) > %w", markdownPath, err)
	}
	e.logger.Debug("exported markdown", "item", doc.Item.ID, "path", markdownPath)

	result := Result{MarkdownPath: markdownPath}
	if !withPDF {
		return result, nil
	}
	pdfPath, err := ConvertMarkdownToPDF(markdownPath)
	if err != nil {
		return result, fmt.Errorf("ConvertMarkdownToPDF(%s) > %w", markdownPath, err)
	}
	result.PDFPath = pdfPath
	e.logger.Debug("exported pdf", "item", doc.Item.ID, "path", pdfPath)
	return result, nil
}

// ConvertMarkdownToPDF writes a PDF next to a .md file and returns its absolute path.
func ConvertMarkdownToPDF(markdownPath string) (string, error) {
	if filepath.Ext(markdownPath) != ".md" {
		return "", fmt.Errorf("input file must have .md extension: %s", markdownPath)
	}

	body, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", markdownPath, err)
	}

	pdfPath := strings.TrimSuffix(markdownPath, ".md") + ".pdf"
	renderer := mdtopdf.NewPdfRenderer("P", "Letter", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(body); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}

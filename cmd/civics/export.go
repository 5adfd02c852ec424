package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/export"
)

func newExportCommand() *cobra.Command {
	var generatePDF bool
	var outputDir string
	command := &cobra.Command{
		Use:   "export <id>",
		Short: "Export an item to markdown, and optionally PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				location, ok := env.Tree.FindItemByID(id)
				if !ok {
					return fmt.Errorf("item %q not found", id)
				}

				tmpl, err := export.ParseItemTemplate(env.Config.Templates.ItemTemplate, slog.Default())
				if err != nil {
					return fmt.Errorf("export.ParseItemTemplate() > %w", err)
				}
				dir := outputDir
				if dir == "" {
					dir = env.Config.Outputs.ExportDirectory
				}

				exporter := export.NewExporter(tmpl, dir, slog.Default())
				result, err := exporter.Export(export.NewDocument(location, env.Library.Favorites.IsFavorite(id)), generatePDF)
				if err != nil {
					return fmt.Errorf("exporter.Export(%s) > %w", id, err)
				}

				w := cmd.OutOrStdout()
				_, _ = green.Fprintf(w, "Markdown: %s\n", result.MarkdownPath)
				if result.PDFPath != "" {
					_, _ = green.Fprintf(w, "PDF: %s\n", result.PDFPath)
				}
				return nil
			})
		},
	}
	command.Flags().BoolVar(&generatePDF, "pdf", false, "Also generate a PDF next to the markdown file")
	command.Flags().StringVar(&outputDir, "output", "", "Output directory. Defaults to outputs.export_directory")
	return command
}

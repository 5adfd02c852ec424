package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/route"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [fixture file]",
		Short: "Validate a content fixture: required fields and unique ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Content.FixtureFile
			}

			tree, err := content.Open(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			source := path
			if source == "" {
				source = "embedded content"
			}
			w := cmd.OutOrStdout()
			_, _ = green.Fprintf(w, "%s is valid: %d main sections, %d items\n", source, len(tree.MainSections()), tree.ItemCount())

			var missing []string
			for _, id := range route.FoundingDocumentIDs {
				if _, ok := tree.FindItemByID(id); !ok {
					missing = append(missing, id)
				}
			}
			for _, id := range missing {
				_, _ = faint.Fprintf(w, "warning: founding document %q is not in the tree\n", id)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/route"
)

func newSectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sections [main section id]",
		Short: "List the main sections, or the sections and items of one main section",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tree, err := content.Open(cfg.Content.FixtureFile)
			if err != nil {
				return fmt.Errorf("content.Open() > %w", err)
			}

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, main := range tree.MainSections() {
					printMainSectionSummary(w, main)
				}
				return nil
			}

			main, ok := tree.GetSectionByID(args[0])
			if !ok {
				return fmt.Errorf("main section %q not found", args[0])
			}
			printMainSection(w, main)
			return nil
		},
	}
}

func newItemCommand() *cobra.Command {
	var noRecord bool
	command := &cobra.Command{
		Use:   "item <id>",
		Short: "Show an item and record the visit in the reading history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				location, ok := env.Tree.FindItemByID(id)
				if !ok {
					return fmt.Errorf("item %q not found", id)
				}
				if !noRecord {
					if _, _, _, err := env.Library.Visit(env.Tree, id); err != nil {
						return fmt.Errorf("library.Visit(%s) > %w", id, err)
					}
				}
				printItem(cmd.OutOrStdout(), location, env.Library.Favorites.IsFavorite(id))
				return nil
			})
		},
	}
	command.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the visit")
	return command
}

func newRouteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "route <id>",
		Short: "Print the screen route an item id navigates to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), route.ItemRoute(args[0]))
			return err
		},
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search items by title or summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tree, err := content.Open(cfg.Content.FixtureFile)
			if err != nil {
				return fmt.Errorf("content.Open() > %w", err)
			}

			w := cmd.OutOrStdout()
			results := tree.Search(strings.Join(args, " "))
			if len(results) == 0 {
				_, _ = faint.Fprintln(w, "No items found.")
				return nil
			}
			for _, location := range results {
				printItemLine(w, location.Item)
				_, _ = faint.Fprintf(w, "    %s\n", strings.Join(location.Breadcrumb(), " / "))
			}
			return nil
		},
	}
}

func printMainSectionSummary(w io.Writer, main content.MainSection) {
	_, _ = bold.Fprintf(w, "%s", main.Title)
	_, _ = faint.Fprintf(w, " (%s)\n", main.ID)
	if main.Description != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", main.Description)
	}
}

func printMainSection(w io.Writer, main content.MainSection) {
	printMainSectionSummary(w, main)
	for _, section := range main.Sections {
		_, _ = fmt.Fprintln(w)
		_, _ = cyan.Fprintf(w, "  %s\n", section.Title)
		for _, item := range section.SubSections {
			printItemLine(w, item)
		}
	}
}

func printItemLine(w io.Writer, item content.SubSection) {
	_, _ = fmt.Fprintf(w, "  - %s", item.Title)
	_, _ = faint.Fprintf(w, " [%s]\n", item.ID)
}

func printItem(w io.Writer, location content.ItemLocation, favorite bool) {
	_, _ = faint.Fprintln(w, strings.Join(location.Breadcrumb(), " / "))
	_, _ = bold.Fprint(w, location.Item.Title)
	if favorite {
		_, _ = green.Fprint(w, " *")
	}
	_, _ = fmt.Fprintln(w)
	if location.Item.Year != 0 {
		_, _ = fmt.Fprintf(w, "Year: %d\n", location.Item.Year)
	}
	if location.Item.Summary != "" {
		_, _ = fmt.Fprintf(w, "%s\n", location.Item.Summary)
	}
	if location.Item.Content != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", strings.TrimRight(location.Item.Content, "\n"))
	}
	_, _ = faint.Fprintf(w, "\nroute: %s\n", route.ItemRoute(location.Item.ID))
}

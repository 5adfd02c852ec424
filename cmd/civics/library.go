package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/preferences"
)

func newFavoritesCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite items",
	}

	command.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites in the order they were added",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
					w := cmd.OutOrStdout()
					ids := env.Library.Favorites.List()
					if len(ids) == 0 {
						_, _ = faint.Fprintln(w, "No favorites yet.")
						return nil
					}
					for _, id := range ids {
						location, ok := env.Tree.FindItemByID(id)
						if !ok {
							_, _ = faint.Fprintf(w, "  - %s (no longer in the content tree)\n", id)
							continue
						}
						printItemLine(w, location.Item)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <id>...",
			Short: "Add items to favorites",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
					for _, id := range args {
						if _, ok := env.Tree.FindItemByID(id); !ok {
							return fmt.Errorf("item %q not found", id)
						}
					}
					for _, id := range args {
						if err := env.Library.Favorites.Add(id); err != nil {
							return fmt.Errorf("Favorites.Add(%s) > %w", id, err)
						}
						_, _ = green.Fprintf(cmd.OutOrStdout(), "Added %s\n", id)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>...",
			Short: "Remove items from favorites",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
					for _, id := range args {
						if err := env.Library.Favorites.Remove(id); err != nil {
							return fmt.Errorf("Favorites.Remove(%s) > %w", id, err)
						}
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
					}
					return nil
				})
			},
		},
	)
	return command
}

func newHistoryCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the reading history",
	}

	var limit int
	listCommand := &cobra.Command{
		Use:   "list",
		Short: "List visited items, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				w := cmd.OutOrStdout()
				entries := env.Library.History.Recent(limit)
				if len(entries) == 0 {
					_, _ = faint.Fprintln(w, "No reading history yet.")
					return nil
				}
				for _, entry := range entries {
					title := entry.ItemID
					if location, ok := env.Tree.FindItemByID(entry.ItemID); ok {
						title = location.Item.Title
					}
					_, _ = fmt.Fprintf(w, "  - %s", title)
					_, _ = faint.Fprintf(w, " [%s] %s, %d visit(s)\n",
						entry.ItemID,
						entry.VisitedAt.Local().Format(time.DateTime),
						entry.VisitCount,
					)
				}
				return nil
			})
		},
	}
	listCommand.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries to show. 0 shows all")

	clearCommand := &cobra.Command{
		Use:   "clear",
		Short: "Delete the reading history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				if err := env.Library.History.Clear(); err != nil {
					return fmt.Errorf("History.Clear() > %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Reading history cleared.")
				return nil
			})
		},
	}

	command.AddCommand(listCommand, clearCommand)
	return command
}

// TextSizeFlag is a text size accepted on the command line.
type TextSizeFlag preferences.TextSize

// Set implements pflag.Value.
func (f *TextSizeFlag) Set(v string) error {
	size := preferences.TextSize(v)
	if !size.Valid() {
		return fmt.Errorf("invalid value %q, valid values are %s", v, joinQuoted(preferences.TextSizes))
	}
	*f = TextSizeFlag(size)
	return nil
}

// String implements pflag.Value.
func (f *TextSizeFlag) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Type implements pflag.Value.
func (f *TextSizeFlag) Type() string {
	return "TextSize"
}

// ThemeModeFlag is a theme mode accepted on the command line.
type ThemeModeFlag preferences.ThemeMode

// Set implements pflag.Value.
func (f *ThemeModeFlag) Set(v string) error {
	mode := preferences.ThemeMode(v)
	if !mode.Valid() {
		return fmt.Errorf("invalid value %q, valid values are %s", v, joinQuoted(preferences.ThemeModes))
	}
	*f = ThemeModeFlag(mode)
	return nil
}

// String implements pflag.Value.
func (f *ThemeModeFlag) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Type implements pflag.Value.
func (f *ThemeModeFlag) Type() string {
	return "ThemeMode"
}

var (
	_ pflag.Value = (*TextSizeFlag)(nil)
	_ pflag.Value = (*ThemeModeFlag)(nil)
)

func joinQuoted[T ~string](values []T) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return strings.Join(quoted, ", ")
}

func newPrefsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change reader preferences",
	}

	showCommand := &cobra.Command{
		Use:   "show",
		Short: "Show the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				printPreferences(cmd, env.Library.Preferences.Get())
				return nil
			})
		},
	}

	var textSize TextSizeFlag
	var themeMode ThemeModeFlag
	setCommand := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("text-size") && !flags.Changed("theme") {
				return fmt.Errorf("at least one of --text-size or --theme is required")
			}
			return runWithEnv(cmd.Context(), func(ctx context.Context, env *bootstrap.Env) error {
				var change preferences.Preferences
				if flags.Changed("text-size") {
					change.TextSize = preferences.TextSize(textSize)
				}
				if flags.Changed("theme") {
					change.ThemeMode = preferences.ThemeMode(themeMode)
				}
				if err := env.Library.Preferences.Update(change); err != nil {
					return fmt.Errorf("Preferences.Update() > %w", err)
				}
				printPreferences(cmd, env.Library.Preferences.Get())
				return nil
			})
		},
	}
	setCommand.Flags().Var(&textSize, "text-size", "Text size. Options: "+joinQuoted(preferences.TextSizes))
	setCommand.Flags().Var(&themeMode, "theme", "Theme mode. Options: "+joinQuoted(preferences.ThemeModes))

	command.AddCommand(showCommand, setCommand)
	return command
}

func printPreferences(cmd *cobra.Command, prefs preferences.Preferences) {
	w := cmd.OutOrStdout()
	rows := [][2]string{
		{"text size", string(prefs.TextSize)},
		{"theme", string(prefs.ThemeMode)},
	}
	for _, row := range rows {
		_, _ = bold.Fprintf(w, "%-10s", row[0])
		_, _ = fmt.Fprintf(w, " %s\n", row[1])
	}
}

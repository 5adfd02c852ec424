package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/favorites"
	"github.com/at-ishikawa/civics/internal/history"
	"github.com/at-ishikawa/civics/internal/preferences"
	"github.com/at-ishikawa/civics/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migration commands",
	}

	migrateCmd.AddCommand(newMigrateSchemaCommand())
	migrateCmd.AddCommand(newMigrateCopyCommand())
	return migrateCmd
}

func newMigrateSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply the SQL schema for the mysql or sqlite storage driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != bootstrap.DriverMySQL && cfg.Storage.Driver != bootstrap.DriverSQLite {
				return fmt.Errorf("storage driver %q has no SQL schema", cfg.Storage.Driver)
			}

			// OpenStorage migrates SQL drivers before returning.
			_, closeStorage, err := bootstrap.OpenStorage(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			if err := closeStorage(); err != nil {
				return fmt.Errorf("close storage: %w", err)
			}
			_, _ = green.Fprintf(cmd.OutOrStdout(), "Schema is up to date for %s\n", cfg.Storage.Driver)
			return nil
		},
	}
}

// storeKeys are the keys written by the library stores.
var storeKeys = []string{favorites.StorageKey, history.StorageKey, preferences.StorageKey}

func newMigrateCopyCommand() *cobra.Command {
	var toDriver string
	command := &cobra.Command{
		Use:   "copy",
		Short: "Copy favorites, history and preferences to another storage driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if toDriver == cfg.Storage.Driver {
				return fmt.Errorf("source and destination driver are both %q", toDriver)
			}
			destination := *cfg
			destination.Storage.Driver = toDriver

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return copyStores(ctx, cmd, cfg, &destination)
		},
	}
	command.Flags().StringVar(&toDriver, "to", "", "Destination storage driver")
	_ = command.MarkFlagRequired("to")
	return command
}

func copyStores(ctx context.Context, cmd *cobra.Command, from, to *config.Config) error {
	source, closeSource, err := bootstrap.OpenStorage(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("open source storage: %w", err)
	}
	defer func() {
		_ = closeSource()
	}()

	destination, closeDestination, err := bootstrap.OpenStorage(ctx, to, nil)
	if err != nil {
		return fmt.Errorf("open destination storage: %w", err)
	}
	defer func() {
		_ = closeDestination()
	}()

	values := make(map[string]string, len(storeKeys))
	for _, key := range storeKeys {
		value, found, err := source.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("source.Load(%s) > %w", key, err)
		}
		if found {
			values[key] = value
		}
	}
	if err := saveValues(ctx, destination, values); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, key := range storeKeys {
		if _, ok := values[key]; ok {
			_, _ = fmt.Fprintf(w, "Copied %s\n", key)
		} else {
			_, _ = faint.Fprintf(w, "Skipped %s (not stored)\n", key)
		}
	}
	return nil
}

// saveValues writes all values in one batch when the destination supports it.
func saveValues(ctx context.Context, destination storage.Storage, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if batch, ok := destination.(storage.BatchSaver); ok {
		if err := batch.SaveAll(ctx, values); err != nil {
			return fmt.Errorf("destination.SaveAll() > %w", err)
		}
		return nil
	}
	for _, key := range storeKeys {
		value, ok := values[key]
		if !ok {
			continue
		}
		if err := destination.Save(ctx, key, value); err != nil {
			return fmt.Errorf("destination.Save(%s) > %w", key, err)
		}
	}
	return nil
}

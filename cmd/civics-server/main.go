package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/server"
)

var configFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debugMode bool
	rootCmd := &cobra.Command{
		Use:           "civics-server",
		Short:         "Civics content and library Connect RPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	return rootCmd
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	logger := slog.Default()
	app := bootstrap.New()
	return app.Run(ctx, func(ctx context.Context) error {
		env, err := bootstrap.Setup(ctx, app, cfg, logger)
		if err != nil {
			return fmt.Errorf("bootstrap.Setup() > %w", err)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.NewHTTPHandler(env.Tree, env.Library, cfg.Server.CORS.AllowedOrigins, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		// Registered last so it runs first: stop serving before the library and storage close.
		app.AddShutdownHook(srv.Shutdown)

		logger.Info("starting server",
			"addr", srv.Addr,
			"storage", cfg.Storage.Driver,
			"items", env.Tree.ItemCount(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

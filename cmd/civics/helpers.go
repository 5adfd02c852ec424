package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"

	"github.com/at-ishikawa/civics/internal/bootstrap"
	"github.com/at-ishikawa/civics/internal/config"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// runWithEnv sets up the content tree and the library, calls fn, then flushes and closes them.
func runWithEnv(ctx context.Context, fn func(ctx context.Context, env *bootstrap.Env) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := bootstrap.New()
	return app.Run(ctx, func(ctx context.Context) error {
		env, err := bootstrap.Setup(ctx, app, cfg, slog.Default())
		if err != nil {
			return fmt.Errorf("bootstrap.Setup() > %w", err)
		}
		return fn(ctx, env)
	})
}

// Package bootstrap wires configuration into running components and manages shutdown.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const DefaultShutdownTimeout = 15 * time.Second

// App runs a function until it returns or the process is interrupted,
// then calls the registered shutdown hooks in reverse order.
type App struct {
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []func(ctx context.Context) error
}

type Option func(*App)

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		a.shutdownTimeout = d
	}
}

func New(opts ...Option) *App {
	app := &App{
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// AddShutdownHook registers fn. Hooks run in LIFO order. Safe for concurrent use.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// AddCloser registers a hook for a resource without a context-aware Close.
func (a *App) AddCloser(closer interface{ Close() error }) {
	a.AddShutdownHook(func(context.Context) error {
		return closer.Close()
	})
}

// Run calls run and waits until it returns or an interrupt or SIGTERM arrives.
// Shutdown hooks run in both cases; their errors are joined with run's error.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
	defer cancelShutdown()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

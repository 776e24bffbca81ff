// Package boot runs a wired application: it loads configuration and the spec
// file, wires the spec below a context of environment variables, drives
// background components and tears everything down on shutdown.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/01fortes/gowire/pkg/container"
	"github.com/01fortes/gowire/pkg/plugins/debug"
	"github.com/01fortes/gowire/pkg/plugins/status"
	"github.com/01fortes/gowire/pkg/spec"
)

// Application represents a complete application
type Application struct {
	cfg      *Config
	logger   *slog.Logger
	registry *container.Registry
	spec     *spec.Map

	env        *container.Context
	app        *container.Context
	runner     *runner
	status     *status.Plugin
	server     *http.Server
	statusAddr string

	// mu guards env, app, server and statusAddr
	mu           sync.Mutex
	shutdownOnce sync.Once
	shutdownErr  error
}

// Option customizes an Application.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithSpec wires s instead of loading Config.SpecPath.
func WithSpec(s *spec.Map) Option {
	return func(a *Application) { a.spec = s }
}

// New creates an application resolving modules through registry. A nil cfg
// means DefaultConfig().
func New(cfg *Config, registry *container.Registry, opts ...Option) *Application {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	a := &Application{
		cfg:      cfg,
		registry: registry,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	}
	if a.registry == nil {
		a.registry = container.NewRegistry(a.logger)
	}
	a.runner = newRunner(a.logger)
	return a
}

// Start wires the application and returns once it is ready. On a wiring
// failure everything already created is destroyed and the error returned.
func (a *Application) Start(ctx context.Context) error {
	s := a.spec
	if s == nil {
		loaded, err := spec.LoadFile(a.cfg.SpecPath)
		if err != nil {
			return err
		}
		s = loaded
	}

	opts := []container.Option{
		container.WithLogger(a.logger),
		container.WithLoader(a.registry),
		container.WithMetrics(a.cfg.Metrics),
	}
	if a.cfg.Debug {
		opts = append(opts, container.WithPlugins(debug.New(a.logger)))
	}
	if a.cfg.StatusAddr != "" {
		a.status = status.New(a.logger)
		opts = append(opts, container.WithPlugins(a.status))
	}

	a.logger.Info("Starting application", "spec", a.cfg.SpecPath)
	start := time.Now()

	env := container.Wire(ctx, EnvSpec(a.cfg.EnvPrefix, os.Environ()), opts...)
	app := env.Wire(ctx, s)
	a.mu.Lock()
	a.env, a.app = env, app
	a.mu.Unlock()

	if _, err := app.Wait(ctx); err != nil {
		a.logger.Error("Application failed to start", "error", err)
		return errors.Join(err, a.Shutdown(context.Background()))
	}

	if a.status != nil {
		if err := a.serveStatus(); err != nil {
			return errors.Join(err, a.Shutdown(context.Background()))
		}
	}

	running := a.runner.start(ctx, app)
	a.logger.Info("Application started",
		"components", len(app.Names()),
		"running", running,
		"time_ms", time.Since(start).Milliseconds())
	return nil
}

// Run starts the application and blocks until ctx ends or SIGINT/SIGTERM
// arrives, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("Shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops running components and the status server, then destroys
// the application and environment contexts. It is idempotent.
func (a *Application) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})
	return a.shutdownErr
}

func (a *Application) shutdown(ctx context.Context) error {
	a.logger.Info("Stopping application")
	a.runner.stop(ctx)

	a.mu.Lock()
	server := a.server
	env := a.env
	a.mu.Unlock()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("status server: %w", err))
		}
	}

	if env != nil {
		if _, err := env.Destroy(ctx).Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		a.logger.Error("Application stopped with errors", "error", err)
		return err
	}
	a.logger.Info("Application stopped")
	return nil
}

func (a *Application) serveStatus() error {
	listener, err := net.Listen("tcp", a.cfg.StatusAddr)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}

	server := &http.Server{
		Handler:           a.status.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	addr := listener.Addr().String()

	a.mu.Lock()
	a.server = server
	a.statusAddr = addr
	a.mu.Unlock()
	a.logger.Info("Status server listening", "addr", addr)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed", "error", err)
		}
	}()
	return nil
}

// Context returns the application context, nil before Start.
func (a *Application) Context() *container.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.app
}

// Registry returns the module registry.
func (a *Application) Registry() *container.Registry {
	return a.registry
}

// StatusAddr returns the address the status server listens on, or "" when
// it is not running.
func (a *Application) StatusAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusAddr
}

package container

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ModuleLoader turns a module identifier into a loaded value: a factory
// function, a reflect.Type, a plugin, or any plain value.
type ModuleLoader interface {
	Load(ctx context.Context, id string) (any, error)
}

// LoaderFunc adapts a function to the ModuleLoader interface.
type LoaderFunc func(ctx context.Context, id string) (any, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, id string) (any, error) {
	return f(ctx, id)
}

// Registry is an in-memory ModuleLoader keyed by module id.
type Registry struct {
	modules map[string]any
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger means slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		modules: make(map[string]any),
		logger:  logger,
	}
}

// Register adds a module under id.
func (r *Registry) Register(id string, module any) error {
	if id == "" {
		return fmt.Errorf("module id cannot be empty")
	}
	if module == nil {
		return fmt.Errorf("cannot register nil module '%s'", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[id]; exists {
		return ModuleAlreadyRegisteredError(id)
	}

	r.logger.Debug("Registering module", "module", id, "type", fmt.Sprintf("%T", module))
	r.modules[id] = module
	return nil
}

// MustRegister is Register that panics on error. It returns r for chaining.
func (r *Registry) MustRegister(id string, module any) *Registry {
	if err := r.Register(id, module); err != nil {
		panic(err)
	}
	return r
}

// Load implements ModuleLoader.
func (r *Registry) Load(_ context.Context, id string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, exists := r.modules[id]
	if !exists {
		return nil, ModuleNotFoundError(id)
	}
	return module, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.modules[id]
	return exists
}

// Names returns the registered module ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package container implements a declarative wiring engine. A spec names
// components and describes how to create, configure and initialize them; a
// Context resolves the references between them, drives every component
// through its lifecycle in dependency order and tears them down in reverse.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/01fortes/gowire/pkg/spec"
	"github.com/google/uuid"
)

// Context is one wiring session: the components it owns, an optional parent
// it resolves through, and the outcomes observers subscribe to.
type Context struct {
	id      string
	parent  *Context
	spec    *spec.Map
	opts    Options
	logger  *slog.Logger
	metrics MetricsCollector

	ready     *Outcome[Components]
	destroyed *Outcome[struct{}]

	// names lists components in spec order; records is fixed after construction
	names   []string
	records map[string]*record

	mu          sync.RWMutex
	order       []string
	children    []*Context
	destroyFlag atomic.Bool
	destroyOnce sync.Once
}

// Wire starts wiring s in a new root context. Wiring runs on its own
// goroutine; use Ready or Wait to observe the result.
func Wire(ctx context.Context, s *spec.Map, opts ...Option) *Context {
	c := newContext(nil, s, DefaultOptions().apply(opts))
	go c.run(ctx, nil)
	return c
}

// Wire starts a child context. The child waits for c to be ready, inherits
// c's options unless overridden, resolves names it does not declare through
// c and its ancestors, and shadows them with its own declarations.
func (c *Context) Wire(ctx context.Context, s *spec.Map, opts ...Option) *Context {
	inherited := c.opts
	child := newContext(c, s, inherited.apply(opts))

	c.mu.Lock()
	destroyed := c.destroyFlag.Load()
	if !destroyed {
		c.children = append(c.children, child)
	}
	c.mu.Unlock()

	if destroyed {
		child.logger.Error("Cannot wire child of destroyed context", "parent", c.id)
		child.ready.settle(Components{}, WiringError([]error{ContextDestroyedError(c.id)}))
		return child
	}

	go child.run(ctx, c.ready.Done())
	return child
}

func newContext(parent *Context, s *spec.Map, opts Options) *Context {
	if s == nil {
		s = spec.NewMap()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("context", id)

	metrics := opts.Metrics
	if metrics == nil {
		metrics = newMetricsCollector(opts.EnableMetrics)
	}

	c := &Context{
		id:      id,
		parent:  parent,
		spec:    s,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		records: make(map[string]*record, s.Len()),
	}
	c.ready = newOutcome[Components](c, logger)
	c.destroyed = newOutcome[struct{}](c, logger)

	s.Each(func(name string, raw any) bool {
		if name == spec.KeyPlugins {
			return true
		}
		rec := &record{name: name, status: StatusPending}
		rec.def, rec.parseErr = parseDefinition(name, raw)
		if rec.def == nil {
			rec.def = &definition{name: name, raw: raw}
		}
		c.names = append(c.names, name)
		c.records[name] = rec
		return true
	})
	return c
}

// run is the wiring goroutine of c.
func (c *Context) run(ctx context.Context, parentReady <-chan struct{}) {
	if parentReady != nil {
		<-parentReady
	}

	start := time.Now()
	c.logger.Info("Wiring context", "components", len(c.names))

	plugins, err := c.loadPlugins(ctx)
	if err != nil {
		c.logger.Error("Failed to load plugins", "error", err)
		c.ready.settle(Components{}, WiringError([]error{err}))
		return
	}
	c.invokePlugins(plugins)

	plan := buildPlan(c, c.logger, c.metrics)
	e := &engine{c: c, ctx: ctx}

	for _, name := range c.names {
		if err, failed := plan.Failed[name]; failed {
			_ = e.fail(c.records[name], err)
		}
	}
	for _, name := range plan.Order {
		_, _ = e.ensure(name, needReady)
	}
	e.failDependents(plan)

	components := make(Components, len(c.names))
	var errs []error
	c.mu.RLock()
	for _, name := range c.names {
		rec := c.records[name]
		switch rec.status {
		case StatusInitialized:
			components[name] = rec.instance
		case StatusFailed:
			errs = append(errs, rec.err)
		}
	}
	c.mu.RUnlock()

	if len(errs) > 0 {
		c.logger.Error("Context wiring failed",
			"failed", len(errs),
			"ready", len(components),
			"time_ms", time.Since(start).Milliseconds())
		c.ready.settle(components, WiringError(errs))
		return
	}

	c.logger.Info("Context ready",
		"components", len(components),
		"time_ms", time.Since(start).Milliseconds())
	c.ready.settle(components, nil)
}

// Destroy tears the context down once wiring has settled: live children
// first, then owned components in reverse creation order. It is idempotent;
// every call returns the same outcome.
func (c *Context) Destroy(ctx context.Context) *Outcome[struct{}] {
	c.destroyOnce.Do(func() {
		go c.runDestroy(ctx)
	})
	return c.destroyed
}

func (c *Context) runDestroy(ctx context.Context) {
	<-c.ready.Done()

	start := time.Now()
	c.logger.Info("Destroying context")

	c.mu.Lock()
	c.destroyFlag.Store(true)
	children := append([]*Context(nil), c.children...)
	c.mu.Unlock()

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if _, err := children[i].Destroy(ctx).Wait(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("child context %s: %w", children[i].id, err))
		}
	}

	errs = append(errs, c.destroyAll(ctx)...)

	if len(errs) > 0 {
		err := DestroyError(errs)
		c.logger.Error("Context destroyed with errors",
			"error", err,
			"time_ms", time.Since(start).Milliseconds())
		c.destroyed.settle(struct{}{}, err)
		return
	}

	c.logger.Info("Context destroyed", "time_ms", time.Since(start).Milliseconds())
	c.destroyed.settle(struct{}{}, nil)
}

// ID returns the unique identifier of the context.
func (c *Context) ID() string {
	return c.id
}

// Parent returns the parent context, or nil for a root context.
func (c *Context) Parent() *Context {
	return c.parent
}

// Ready returns the readiness outcome. It resolves with every initialized
// component, or rejects with a WIRING_FAILED error while still carrying the
// components that did initialize.
func (c *Context) Ready() *Outcome[Components] {
	return c.ready
}

// Destroyed returns the destroy outcome without starting a teardown.
func (c *Context) Destroyed() *Outcome[struct{}] {
	return c.destroyed
}

// Wait blocks until wiring settles.
func (c *Context) Wait(ctx context.Context) (Components, error) {
	return c.ready.Wait(ctx)
}

// IsDestroyed reports whether teardown has started.
func (c *Context) IsDestroyed() bool {
	return c.destroyFlag.Load()
}

// Names returns the component names declared by this context, in spec order.
func (c *Context) Names() []string {
	return append([]string(nil), c.names...)
}

// Components returns the currently initialized components owned by c.
func (c *Context) Components() Components {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(Components, len(c.records))
	for name, rec := range c.records {
		if rec.status == StatusInitialized {
			result[name] = rec.instance
		}
	}
	return result
}

// CreationOrder returns the names of owned components in the order their
// instances were created.
func (c *Context) CreationOrder() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...)
}

// ComponentInfo describes the lifecycle state of one component.
type ComponentInfo struct {
	Name   string
	Status Status
	Type   string
	Err    error
}

// Component returns the state of a component declared by c.
func (c *Context) Component(name string) (ComponentInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, exists := c.records[name]
	if !exists {
		return ComponentInfo{}, false
	}
	return rec.info(), true
}

// Snapshot returns the state of every declared component in spec order.
func (c *Context) Snapshot() []ComponentInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]ComponentInfo, 0, len(c.names))
	for _, name := range c.names {
		result = append(result, c.records[name].info())
	}
	return result
}

func (r *record) info() ComponentInfo {
	info := ComponentInfo{Name: r.name, Status: r.status, Err: r.err}
	if r.created {
		info.Type = fmt.Sprintf("%T", r.instance)
	}
	return info
}

// Metrics returns collected component metrics, nil when disabled.
func (c *Context) Metrics() map[string]*ComponentMetrics {
	return c.metrics.GetMetrics()
}

// Children returns the child contexts wired from c.
func (c *Context) Children() []*Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]*Context(nil), c.children...)
}

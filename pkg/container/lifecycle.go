package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01fortes/gowire/pkg/spec"
)

// record is the lifecycle record of one component.
type record struct {
	name     string
	def      *definition
	parseErr error
	status   Status
	// busy is set while the engine drives the component through its phases
	busy     bool
	created  bool
	instance any
	err      error
	inline   []inlineInstance
}

// inlineInstance is a component defined inside another component's args or
// properties. It lives and dies with its owner.
type inlineInstance struct {
	def      *definition
	instance any
}

// engine drives components from pending to initialized. It runs on the
// wiring goroutine of its context only.
type engine struct {
	c   *Context
	ctx context.Context
}

// ensure brings name to at least the state n requires and returns its
// instance. Components not yet started run through all phases.
func (e *engine) ensure(name string, n need) (any, error) {
	rec := e.c.records[name]

	switch {
	case rec.status == StatusFailed:
		return nil, rec.err
	case rec.busy:
		if n == needCreated && rec.created {
			return rec.instance, nil
		}
		return nil, CircularReferenceError(name, []string{name, name})
	case rec.status == StatusInitialized:
		return rec.instance, nil
	case rec.status != StatusPending:
		return nil, fmt.Errorf("component '%s' is %s", name, rec.status)
	}

	rec.busy = true
	defer func() { rec.busy = false }()

	if err := e.create(rec); err != nil {
		return nil, e.fail(rec, err)
	}
	if err := e.configure(rec); err != nil {
		return nil, e.fail(rec, err)
	}
	if err := e.initialize(rec); err != nil {
		return nil, e.fail(rec, err)
	}
	return rec.instance, nil
}

func (e *engine) create(rec *record) error {
	start := time.Now()
	def := rec.def

	var instance any
	switch def.kind {
	case kindLiteral:
		instance = def.value

	case kindRef:
		v, err := e.resolveRef(rec, def.ref, needReady)
		if err != nil {
			return err
		}
		instance = v

	case kindValue:
		v, err := e.resolveValue(rec, def.value, needReady)
		if err != nil {
			return err
		}
		instance = v

	case kindModule:
		module, err := e.load(rec.name, def.module)
		if err != nil {
			return err
		}
		instance = module

	case kindCreate:
		v, err := e.construct(rec, def, needReady)
		if err != nil {
			return err
		}
		instance = v
	}

	e.c.mu.Lock()
	rec.instance = instance
	rec.created = true
	rec.status = StatusCreated
	e.c.order = append(e.c.order, rec.name)
	e.c.mu.Unlock()

	duration := time.Since(start)
	e.c.metrics.RecordCreateDuration(rec.name, duration)
	e.c.logger.Debug("Component created",
		"component", rec.name,
		"type", fmt.Sprintf("%T", instance),
		"time_ms", duration.Milliseconds())

	e.emit(rec, StatusCreated, nil)
	return nil
}

// construct loads the module of def, resolves its args and instantiates it.
func (e *engine) construct(rec *record, def *definition, n need) (any, error) {
	module, err := e.load(rec.name, def.module)
	if err != nil {
		return nil, err
	}

	args, err := e.resolveList(rec, def.args, n)
	if err != nil {
		return nil, err
	}

	instance, err := instantiate(e.ctx, module, args, def.isConstructor)
	if err != nil {
		return nil, ConstructionError(rec.name, err)
	}
	return instance, nil
}

func (e *engine) configure(rec *record) error {
	start := time.Now()

	if err := e.setProperties(rec, rec.def, rec.instance, needCreated); err != nil {
		return err
	}

	e.setStatus(rec, StatusConfigured)
	duration := time.Since(start)
	e.c.metrics.RecordConfigureDuration(rec.name, duration)
	e.c.logger.Debug("Component configured",
		"component", rec.name,
		"time_ms", duration.Milliseconds())

	e.emit(rec, StatusConfigured, nil)
	return nil
}

func (e *engine) setProperties(rec *record, def *definition, target any, n need) error {
	var err error
	def.properties.Each(func(key string, raw any) bool {
		var value any
		value, err = e.resolveValue(rec, raw, n)
		if err != nil {
			return false
		}
		if setErr := setProperty(target, key, value); setErr != nil {
			err = PropertyAssignmentError(rec.name, key, setErr)
			return false
		}
		return true
	})
	return err
}

func (e *engine) initialize(rec *record) error {
	start := time.Now()

	if err := e.runInit(rec, rec.def, rec.instance, needReady); err != nil {
		return err
	}

	e.setStatus(rec, StatusInitialized)
	duration := time.Since(start)
	e.c.metrics.RecordInitDuration(rec.name, duration)
	e.c.logger.Debug("Component initialized",
		"component", rec.name,
		"time_ms", duration.Milliseconds())

	e.emit(rec, StatusInitialized, nil)
	return nil
}

// runInit calls the declared init methods in order, then Initializer for
// instances the container constructed.
func (e *engine) runInit(rec *record, def *definition, target any, n need) error {
	for _, call := range def.init {
		args, err := e.resolveList(rec, call.args, n)
		if err != nil {
			return err
		}
		if err := invokeMethod(e.ctx, target, call.method, args); err != nil {
			return InitializationError(rec.name, call.method, err)
		}
	}

	if def.kind != kindCreate {
		return nil
	}
	if initializer, ok := target.(Initializer); ok {
		if err := safeInit(e.ctx, initializer); err != nil {
			return InitializationError(rec.name, "Init", err)
		}
	}
	return nil
}

func safeInit(ctx context.Context, initializer Initializer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return initializer.Init(ctx)
}

func (e *engine) load(component, id string) (any, error) {
	module, err := e.c.opts.Loader.Load(e.ctx, id)
	if err != nil {
		return nil, ModuleLoadError(component, id, err)
	}
	return module, nil
}

// resolveRef returns the instance name refers to, creating local
// components on demand and falling back to ancestors.
func (e *engine) resolveRef(rec *record, name string, n need) (any, error) {
	if e.c.isLocal(name) {
		v, err := e.ensure(name, n)
		if err != nil {
			return nil, DependencyFailedError(rec.name, name, err)
		}
		return v, nil
	}

	v, found, err := e.c.resolveAncestor(name)
	if err != nil {
		return nil, DependencyFailedError(rec.name, name, err)
	}
	if !found {
		return nil, UnresolvedReferenceError(rec.name, name)
	}
	return v, nil
}

// resolveValue replaces references inside v with instances, builds inline
// definitions and copies plain mappings and lists.
func (e *engine) resolveValue(rec *record, v any, n need) (any, error) {
	if name, ok := spec.RefName(v); ok {
		return e.resolveRef(rec, name, n)
	}

	switch t := v.(type) {
	case []any:
		return e.resolveList(rec, t, n)
	case *spec.Map, map[string]any:
	default:
		return v, nil
	}

	m, _ := spec.AsMap(v)
	if isDirective(m) {
		return e.createInline(rec, m, n)
	}

	out := make(map[string]any, m.Len())
	var err error
	m.Each(func(key string, item any) bool {
		out[key], err = e.resolveValue(rec, item, n)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *engine) resolveList(rec *record, list []any, n need) ([]any, error) {
	out := make([]any, len(list))
	for i, item := range list {
		v, err := e.resolveValue(rec, item, n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// createInline builds an anonymous component defined inside rec's spec.
// Its references resolve with the need of the enclosing position.
func (e *engine) createInline(rec *record, m *spec.Map, n need) (any, error) {
	def, err := parseDefinition(rec.name, m)
	if err != nil {
		return nil, err
	}

	var instance any
	switch def.kind {
	case kindLiteral:
		return def.value, nil
	case kindModule:
		instance, err = e.load(rec.name, def.module)
	case kindCreate:
		instance, err = e.construct(rec, def, n)
	}
	if err != nil {
		return nil, err
	}

	if err := e.setProperties(rec, def, instance, n); err != nil {
		return nil, err
	}
	if err := e.runInit(rec, def, instance, n); err != nil {
		return nil, err
	}

	rec.inline = append(rec.inline, inlineInstance{def: def, instance: instance})
	return instance, nil
}

func (e *engine) setStatus(rec *record, status Status) {
	e.c.mu.Lock()
	rec.status = status
	e.c.mu.Unlock()
}

func (e *engine) fail(rec *record, err error) error {
	e.c.mu.Lock()
	rec.status = StatusFailed
	rec.err = err
	e.c.mu.Unlock()

	e.c.logger.Error("Component failed",
		"component", rec.name,
		"error", err)

	// An owner that never got created is not in the destroy order, so its
	// inline instances are released here.
	if !rec.created {
		for j := len(rec.inline) - 1; j >= 0; j-- {
			in := rec.inline[j]
			if derr := runDestroyHooks(e.ctx, in.instance, in.def.destroy, in.def.kind == kindCreate); derr != nil {
				e.c.logger.Error("Error destroying inline component",
					"component", rec.name,
					"error", derr)
			}
		}
		rec.inline = nil
	}

	e.emit(rec, StatusFailed, err)
	return err
}

// failDependents fails every component that holds a reference to a failed
// component. A property reference may hand out an instance that fails
// afterwards, so this runs once the engine has visited the whole plan.
func (e *engine) failDependents(plan *Plan) {
	for changed := true; changed; {
		changed = false
		for _, name := range e.c.names {
			rec := e.c.records[name]
			if rec.status == StatusFailed {
				continue
			}
			for _, dep := range plan.Deps[name] {
				if d := e.c.records[dep]; d.status == StatusFailed {
					_ = e.fail(rec, DependencyFailedError(name, dep, d.err))
					changed = true
					break
				}
			}
		}
	}
}

func (e *engine) emit(rec *record, status Status, err error) {
	e.c.ready.notify(Notification{
		Context: e.c,
		Name:    rec.name,
		Target:  rec.instance,
		Status:  status,
		Spec:    rec.raw(),
		Err:     err,
	})
}

// raw returns the spec entry of the record.
func (r *record) raw() any {
	if r.def != nil {
		return r.def.raw
	}
	return nil
}

// destroyAll tears down every created component in reverse creation order.
// Failures are collected and do not stop the pass.
func (c *Context) destroyAll(ctx context.Context) []error {
	c.mu.RLock()
	order := append([]string(nil), c.order...)
	c.mu.RUnlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		rec := c.records[order[i]]
		start := time.Now()

		var recErrs []error
		if rec.def.kind == kindCreate || rec.def.kind == kindModule {
			if err := runDestroyHooks(ctx, rec.instance, rec.def.destroy, rec.def.kind == kindCreate); err != nil {
				recErrs = append(recErrs, componentDestroyError(rec.name, err))
			}
		}
		for j := len(rec.inline) - 1; j >= 0; j-- {
			in := rec.inline[j]
			if err := runDestroyHooks(ctx, in.instance, in.def.destroy, in.def.kind == kindCreate); err != nil {
				recErrs = append(recErrs, componentDestroyError(rec.name, err))
			}
		}

		c.mu.Lock()
		rec.status = StatusDestroyed
		c.mu.Unlock()

		duration := time.Since(start)
		c.metrics.RecordDestroyDuration(rec.name, duration)

		n := Notification{
			Context: c,
			Name:    rec.name,
			Target:  rec.instance,
			Status:  StatusDestroyed,
			Spec:    rec.raw(),
		}
		if len(recErrs) > 0 {
			n.Err = errors.Join(recErrs...)
			c.logger.Error("Error destroying component",
				"component", rec.name,
				"error", n.Err)
		} else {
			c.logger.Debug("Component destroyed",
				"component", rec.name,
				"time_ms", duration.Milliseconds())
		}
		c.destroyed.notify(n)
		errs = append(errs, recErrs...)
	}
	return errs
}

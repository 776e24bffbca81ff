package container

import (
	"fmt"

	"github.com/01fortes/gowire/pkg/spec"
)

// need is how far a referenced component must have progressed before the
// referring step may run.
type need int

const (
	// needCreated tolerates a component that is still being configured or
	// initialized, as long as its instance exists. Used for properties.
	needCreated need = iota
	// needReady requires a fully initialized component.
	needReady
)

type dependencyRef struct {
	name string
	need need
}

// dependencies returns the references of d grouped by the phase that
// resolves them, each group in resolution order.
func (d *definition) dependencies() (create, properties, init []dependencyRef, err error) {
	switch d.kind {
	case kindRef:
		create = []dependencyRef{{name: d.ref, need: needReady}}
	case kindValue:
		err = collectRefs(d.name, d.value, needReady, &create)
	case kindCreate:
		for _, arg := range d.args {
			if err = collectRefs(d.name, arg, needReady, &create); err != nil {
				return
			}
		}
	}
	if err != nil {
		return
	}

	d.properties.Each(func(_ string, v any) bool {
		err = collectRefs(d.name, v, needCreated, &properties)
		return err == nil
	})
	if err != nil {
		return
	}

	for _, call := range d.init {
		for _, arg := range call.args {
			if err = collectRefs(d.name, arg, needReady, &init); err != nil {
				return
			}
		}
	}
	return
}

// collectRefs walks v the same way resolveValue does and appends every
// reference it meets. Inline definitions are walked through their args,
// properties and init args with the enclosing need.
func collectRefs(owner string, v any, n need, out *[]dependencyRef) error {
	if name, ok := spec.RefName(v); ok {
		*out = append(*out, dependencyRef{name: name, need: n})
		return nil
	}

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if err := collectRefs(owner, item, n, out); err != nil {
				return err
			}
		}
		return nil
	case *spec.Map, map[string]any:
	default:
		return nil
	}

	m, _ := spec.AsMap(v)
	if !isDirective(m) {
		var err error
		m.Each(func(_ string, item any) bool {
			err = collectRefs(owner, item, n, out)
			return err == nil
		})
		return err
	}

	inline, err := parseDefinition(owner, m)
	if err != nil {
		return err
	}
	create, properties, init, err := inline.dependencies()
	if err != nil {
		return err
	}
	for _, group := range [][]dependencyRef{create, properties, init} {
		for _, r := range group {
			*out = append(*out, dependencyRef{name: r.name, need: n})
		}
	}
	return nil
}

// isLocal reports whether name is declared in this context's own spec.
func (c *Context) isLocal(name string) bool {
	if name == spec.KeyPlugins {
		return false
	}
	_, ok := c.records[name]
	return ok
}

// lookupLocal returns a component owned by c. found is true whenever c
// declares the name, so local declarations shadow ancestors even when they
// failed.
func (c *Context) lookupLocal(name string) (value any, found bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[name]
	if !ok {
		return nil, false, nil
	}
	switch rec.status {
	case StatusInitialized:
		return rec.instance, true, nil
	case StatusFailed:
		return nil, true, rec.err
	case StatusDestroyed:
		return nil, true, ContextDestroyedError(c.id)
	default:
		return nil, true, fmt.Errorf("component '%s' is %s, not ready", name, rec.status)
	}
}

// resolveAncestor walks the parent chain, nearest ancestor first.
func (c *Context) resolveAncestor(name string) (any, bool, error) {
	depth := 0
	for p := c.parent; p != nil; p = p.parent {
		depth++
		if depth > c.opts.MaxDepth {
			return nil, false, &ContainerError{
				Code:    CodeUnresolvedReference,
				Message: fmt.Sprintf("ancestor chain exceeds max depth %d while resolving '%s'", c.opts.MaxDepth, name),
			}
		}
		if p.IsDestroyed() {
			return nil, false, ContextDestroyedError(p.id)
		}
		if v, found, err := p.lookupLocal(name); found {
			return v, true, err
		}
	}
	return nil, false, nil
}

// Lookup returns the initialized component registered under name, searching
// this context first and then its ancestors.
func (c *Context) Lookup(name string) (any, bool) {
	if v, found, err := c.lookupLocal(name); found {
		return v, err == nil
	}
	v, found, err := c.resolveAncestor(name)
	return v, found && err == nil
}

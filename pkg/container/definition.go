package container

import (
	"fmt"

	"github.com/01fortes/gowire/pkg/spec"
)

type defKind int

const (
	// kindValue is a plain value or object literal, wired recursively
	kindValue defKind = iota
	kindLiteral
	kindModule
	kindCreate
	// kindRef aliases another component
	kindRef
)

type initCall struct {
	method string
	args   []any
}

// definition is the parsed form of one component spec entry.
type definition struct {
	name          string
	kind          defKind
	raw           any
	value         any
	module        string
	args          []any
	isConstructor bool
	ref           string
	properties    *spec.Map
	init          []initCall
	destroy       []string
}

// isDirective reports whether m is a component directive rather than a plain
// object literal.
func isDirective(m *spec.Map) bool {
	return m.Has(spec.KeyModule) || m.Has(spec.KeyCreate) || m.Has(spec.KeyLiteral)
}

func parseDefinition(name string, raw any) (*definition, error) {
	def := &definition{name: name, raw: raw, kind: kindValue, value: raw}

	if ref, ok := spec.RefName(raw); ok {
		def.kind = kindRef
		def.ref = ref
		return def, nil
	}

	m, ok := spec.AsMap(raw)
	if !ok || !isDirective(m) {
		return def, nil
	}

	if v, ok := m.Get(spec.KeyLiteral); ok {
		def.kind = kindLiteral
		def.value = v
		return def, nil
	}

	if err := def.parseFactory(m); err != nil {
		return nil, err
	}
	if err := def.parseProperties(m); err != nil {
		return nil, err
	}
	if err := def.parseInit(m); err != nil {
		return nil, err
	}
	if err := def.parseDestroy(m); err != nil {
		return nil, err
	}
	return def, nil
}

func (d *definition) parseFactory(m *spec.Map) error {
	module, _ := m.Get(spec.KeyModule)
	create, hasCreate := m.Get(spec.KeyCreate)

	if !hasCreate {
		id, ok := module.(string)
		if !ok || id == "" {
			return InvalidSpecError(d.name, "'module' must be a non-empty module id")
		}
		d.kind = kindModule
		d.module = id
		return nil
	}

	d.kind = kindCreate
	switch c := create.(type) {
	case string:
		d.module = c
	default:
		cm, ok := spec.AsMap(create)
		if !ok {
			return InvalidSpecError(d.name, fmt.Sprintf("'create' must be a module id or mapping, got %T", create))
		}
		if id, ok := cm.Get(spec.KeyModule); ok {
			d.module, _ = id.(string)
		} else if id, ok := module.(string); ok {
			d.module = id
		}
		if args, ok := cm.Get(spec.KeyArgs); ok {
			d.args = asList(args)
		}
		if flag, ok := cm.Get(spec.KeyIsConstructor); ok {
			b, ok := flag.(bool)
			if !ok {
				return InvalidSpecError(d.name, "'isConstructor' must be a boolean")
			}
			d.isConstructor = b
		}
	}

	if d.module == "" {
		return InvalidSpecError(d.name, "'create' requires a module id")
	}
	return nil
}

func (d *definition) parseProperties(m *spec.Map) error {
	raw, ok := m.Get(spec.KeyProperties)
	if !ok || raw == nil {
		return nil
	}
	props, ok := spec.AsMap(raw)
	if !ok {
		return InvalidSpecError(d.name, fmt.Sprintf("'properties' must be a mapping, got %T", raw))
	}
	d.properties = props
	return nil
}

// parseInit accepts a method name, a list of names, or a mapping of name to args.
func (d *definition) parseInit(m *spec.Map) error {
	raw, ok := m.Get(spec.KeyInit)
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case string:
		d.init = []initCall{{method: v}}
		return nil
	case []any:
		for _, item := range v {
			method, ok := item.(string)
			if !ok {
				return InvalidSpecError(d.name, fmt.Sprintf("'init' list entries must be method names, got %T", item))
			}
			d.init = append(d.init, initCall{method: method})
		}
		return nil
	}

	calls, ok := spec.AsMap(raw)
	if !ok {
		return InvalidSpecError(d.name, fmt.Sprintf("'init' must be a method name, list or mapping, got %T", raw))
	}
	calls.Each(func(method string, args any) bool {
		d.init = append(d.init, initCall{method: method, args: asList(args)})
		return true
	})
	return nil
}

func (d *definition) parseDestroy(m *spec.Map) error {
	raw, ok := m.Get(spec.KeyDestroy)
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case string:
		d.destroy = []string{v}
	case []any:
		for _, item := range v {
			method, ok := item.(string)
			if !ok {
				return InvalidSpecError(d.name, fmt.Sprintf("'destroy' entries must be method names, got %T", item))
			}
			d.destroy = append(d.destroy, method)
		}
	default:
		return InvalidSpecError(d.name, fmt.Sprintf("'destroy' must be a method name or list, got %T", raw))
	}
	return nil
}

// asList treats a single non-list value as a one-element argument list.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

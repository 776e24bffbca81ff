package spec

// Directive keys recognised in component definitions.
const (
	KeyRef           = "$ref"
	KeyPlugins       = "$plugins"
	KeyLiteral       = "literal"
	KeyModule        = "module"
	KeyCreate        = "create"
	KeyArgs          = "args"
	KeyIsConstructor = "isConstructor"
	KeyProperties    = "properties"
	KeyInit          = "init"
	KeyDestroy       = "destroy"
)

// Ref builds a reference token pointing at the named component.
func Ref(name string) *Map {
	return NewMap().Set(KeyRef, name)
}

// RefName returns the target of a reference token.
// A reference token is a mapping whose only key is "$ref" with a string value.
func RefName(v any) (string, bool) {
	m, ok := AsMap(v)
	if !ok || m.Len() != 1 {
		return "", false
	}
	raw, _ := m.Get(KeyRef)
	name, ok := raw.(string)
	return name, ok
}

// Literal wraps v so it is injected verbatim, without any wiring.
func Literal(v any) *Map {
	return NewMap().Set(KeyLiteral, v)
}

// Module builds a definition whose value is the loaded module itself.
func Module(id string) *Map {
	return NewMap().Set(KeyModule, id)
}

// Create builds a definition that calls the module's factory with args.
func Create(module string, args ...any) *Map {
	c := NewMap().Set(KeyModule, module)
	if len(args) > 0 {
		c.Set(KeyArgs, append([]any(nil), args...))
	}
	return NewMap().Set(KeyCreate, c)
}

// Construct is Create with isConstructor set.
func Construct(module string, args ...any) *Map {
	def := Create(module, args...)
	c, _ := def.Get(KeyCreate)
	c.(*Map).Set(KeyIsConstructor, true)
	return def
}

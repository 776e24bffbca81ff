// Package spec holds the declarative description of a component graph.
//
// A spec is an ordered mapping from component name to definition. Values are
// plain Go trees: scalars, []any, *Map (ordered) or map[string]any (visited in
// sorted key order). Specs are built in code with NewMap().Set(...) or loaded
// from YAML, JSON or HCL files with LoadFile.
package spec

import "sort"

// Map is a string-keyed mapping that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores value under key. Re-setting a key keeps its original position.
func (m *Map) Set(key string, value any) *Map {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Delete removes key, preserving the order of the remaining keys.
func (m *Map) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Each calls fn for every entry in order and stops early when fn returns false.
func (m *Map) Each(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// ToMap converts the ordered map (recursively) into plain Go maps.
func (m *Map) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = Plain(m.values[k])
	}
	return out
}

// FromMap builds an ordered map from a plain map, keys in sorted order.
func FromMap(in map[string]any) *Map {
	m := NewMap()
	for _, k := range SortedKeys(in) {
		m.Set(k, in[k])
	}
	return m
}

// Plain strips ordering from a value tree so it can be handed to code
// that expects map[string]any.
func Plain(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}

// AsMap views v as an ordered map when it is a *Map or a map[string]any.
func AsMap(v any) (*Map, bool) {
	switch t := v.(type) {
	case *Map:
		return t, t != nil
	case map[string]any:
		return FromMap(t), true
	default:
		return nil, false
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

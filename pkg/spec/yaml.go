package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into an ordered spec. Mapping order is
// taken from the document, anchors and aliases are expanded.
func ParseYAML(data []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return NewMap(), nil
	}

	v, err := fromYAMLNode(&doc)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewMap(), nil
	}

	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("spec: top-level YAML value must be a mapping, got %T", v)
	}
	return m, nil
}

func fromYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(node.Content[0])

	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)

	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Tag == "!!merge" {
				merged, err := fromYAMLNode(valueNode)
				if err != nil {
					return nil, err
				}
				if mm, ok := merged.(*Map); ok {
					mm.Each(func(k string, v any) bool {
						if !m.Has(k) {
							m.Set(k, v)
						}
						return true
					})
				}
				continue
			}
			value, err := fromYAMLNode(valueNode)
			if err != nil {
				return nil, fmt.Errorf("line %d: key %q: %w", keyNode.Line, keyNode.Value, err)
			}
			m.Set(keyNode.Value, value)
		}
		return m, nil

	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		if i, ok := v.(int); ok {
			return int64(i), nil
		}
		return v, nil

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

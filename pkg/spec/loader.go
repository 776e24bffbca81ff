package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files whose extension has no parser.
var ErrUnsupportedFormat = errors.New("spec: unsupported file format")

// Loader turns raw bytes into a spec.
type Loader interface {
	Parse(data []byte, filename string) (*Map, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(data []byte, filename string) (*Map, error)

// Parse calls f.
func (f LoaderFunc) Parse(data []byte, filename string) (*Map, error) {
	return f(data, filename)
}

// loaders maps file extensions to parsers.
var loaders = map[string]Loader{
	".yaml": LoaderFunc(func(data []byte, _ string) (*Map, error) { return ParseYAML(data) }),
	".yml":  LoaderFunc(func(data []byte, _ string) (*Map, error) { return ParseYAML(data) }),
	".json": LoaderFunc(func(data []byte, _ string) (*Map, error) { return ParseJSON(data) }),
	".hcl":  LoaderFunc(ParseHCL),
}

// LoadFile reads a spec file, choosing the parser from the file extension.
func LoadFile(path string) (*Map, error) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: read %s: %w", path, err)
	}

	m, err := loader.Parse(data, path)
	if err != nil {
		return nil, fmt.Errorf("spec: parse %s: %w", path, err)
	}
	return m, nil
}

// ParseJSON decodes a JSON object into an ordered spec. Object key order and
// integer-ness of numbers are preserved.
func ParseJSON(data []byte) (*Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("spec: trailing data after JSON document")
	}

	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("spec: top-level JSON value must be an object, got %T", v)
	}
	return m, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("in key %q: %w", key, err)
				}
				m.Set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := make([]any, 0)
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("spec: unexpected delimiter %q", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		// string, bool, nil
		return t, nil
	}
}

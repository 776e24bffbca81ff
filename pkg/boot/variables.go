package boot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/01fortes/gowire/pkg/spec"
)

// EnvSpec turns environment entries ("KEY=value") carrying prefix into a
// spec of literal components. The prefix is stripped, the key lowercased and
// underscores become dots, so APP_SERVER_PORT=8080 is component
// "server.port" with value int64(8080). Booleans and numbers are typed;
// everything else stays a string. An empty prefix exposes every entry.
func EnvSpec(prefix string, environ []string) *spec.Map {
	vars := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		key = strings.TrimPrefix(key, prefix)
		if key == "" {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
		vars[key] = typedValue(value)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := spec.NewMap()
	for _, k := range keys {
		s.Set(k, spec.Literal(vars[k]))
	}
	return s
}

func typedValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil && !isDigits(v) {
		return b
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// isDigits keeps "0" and "1" numeric instead of boolean.
func isDigits(v string) bool {
	return v != "" && strings.Trim(v, "0123456789") == ""
}

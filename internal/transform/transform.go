// Package transform converts payloads between the snake_case convention used
// by the data store and the camelCase convention used by older admin clients.
// Conversion is structural: maps and arrays are walked recursively and keys
// are rewritten; values are never touched.
package transform

import (
	"strings"
	"unicode"
)

// fieldMapping declares one dual-named field. Special fields are a
// compatibility shim: every member of their alias group is populated after
// conversion so that payloads stay readable under either convention and
// either historical spelling. Extending the shim means adding a row here,
// not touching the transformer.
type fieldMapping struct {
	Snake   string
	Camel   string
	Special bool
	Group   string
}

var mappings = []fieldMapping{
	// fields of the additional_exercises entries
	{Snake: "is_measured", Camel: "isMeasured", Special: true, Group: "is_measured"},
	{Snake: "measurement_type", Camel: "measurementType", Special: true, Group: "measurement_type"},
	// the vehicles lateral-acceleration rating has two historical spellings
	{Snake: "lat_acc_rating", Camel: "latAccRating", Special: true, Group: "lat_acc"},
	{Snake: "lateral_acc_rating", Camel: "lateralAccRating", Special: true, Group: "lat_acc"},
}

// aliasGroups maps every special key (both conventions) to the full set of
// keys that must carry the same value. Built once from the mapping table.
var aliasGroups = buildAliasGroups()

func buildAliasGroups() map[string][]string {
	byGroup := make(map[string][]string)
	for _, m := range mappings {
		if !m.Special {
			continue
		}
		byGroup[m.Group] = append(byGroup[m.Group], m.Snake, m.Camel)
	}
	groups := make(map[string][]string)
	for _, keys := range byGroup {
		for _, key := range keys {
			groups[key] = keys
		}
	}
	return groups
}

// ToCamel converts every key of the value from snake_case to camelCase.
// Nil and non-object values are returned as-is; the input is never mutated.
func ToCamel(value interface{}) interface{} {
	return walk(value, snakeToCamel)
}

// ToSnake converts every key of the value from camelCase to snake_case.
func ToSnake(value interface{}) interface{} {
	return walk(value, camelToSnake)
}

func walk(value interface{}, rename func(string) string) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[rename(key)] = walk(val, rename)
		}
		applyShim(out)
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = walk(item, rename)
		}
		return out
	default:
		return value
	}
}

// applyShim dual-populates every alias group whose value survived the
// conversion under any of its names. Intentional redundancy: consumers of
// either convention and either spelling see the same value.
func applyShim(m map[string]interface{}) {
	for key, group := range aliasGroups {
		value, ok := m[key]
		if !ok {
			continue
		}
		for _, alias := range group {
			if _, present := m[alias]; !present {
				m[alias] = value
			}
		}
	}
}

func snakeToCamel(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func camelToSnake(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

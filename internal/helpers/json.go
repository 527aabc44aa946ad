package helpers

import (
	"strconv"
	"strings"
)

// DeepCopyJSON copies a decoded JSON value (objects, arrays and scalars as
// produced by encoding/json).
func DeepCopyJSON(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = DeepCopyJSON(value)
		}
		return out

	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = DeepCopyJSON(value)
		}
		return out

	default:
		return typed
	}
}

// Lookup walks a dotted path such as "value.prospects.0.id" through a
// decoded JSON value. Numeric segments index arrays.
func Lookup(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[segment]
			if !ok {
				return nil, false
			}
			current = next

		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(typed) {
				return nil, false
			}
			current = typed[i]

		default:
			return nil, false
		}
	}

	return current, true
}

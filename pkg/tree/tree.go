// Package tree holds the helpers for working with parsed configuration
// trees. Content is the JSON-compatible dynamic shape the codecs produce
// (map[string]interface{} / []interface{} / scalars / nil); the helpers
// here are the only downcast points the merge strategies use.
package tree

import "reflect"

// AsMap downcasts a value to an object tree
func AsMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// AsSlice downcasts a value to an array
func AsSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}

// AsString downcasts a value to a string
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// IsMap reports whether a value is an object tree
func IsMap(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// IsSlice reports whether a value is an array
func IsSlice(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// Equal reports deep value equality between two tree values. Numbers
// compare by value regardless of Go type: the codecs hand back float64
// (JSON), int (YAML) or int64 (TOML) for the same literal, and layered
// sources routinely mix formats for one target.
func Equal(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ac := range av {
			bc, present := bv[k]
			if !present || !Equal(ac, bc) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		if af, ok := asNumber(a); ok {
			bf, bok := asNumber(b)
			return bok && af == bf
		}
		return reflect.DeepEqual(a, b)
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Clone deep-copies a tree value. Scalars are returned as-is.
func Clone(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = Clone(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}

// ShallowCloneMap copies the top level of an object tree
func ShallowCloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Contains reports whether list already holds an equal value. Composite
// values compare by deep equality; this is the dedup predicate used by
// array-concatenating merges.
func Contains(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// AppendUnique appends items not already present, keeping first occurrences
func AppendUnique(dst []interface{}, items []interface{}) []interface{} {
	for _, item := range items {
		if !Contains(dst, item) {
			dst = append(dst, item)
		}
	}
	return dst
}

// StringSliceUnion converts and unions string arrays preserving first-seen
// order. Non-string elements pass through the same dedup by deep equality.
func StringSliceUnion(lists ...[]interface{}) []interface{} {
	var out []interface{}
	for _, list := range lists {
		out = AppendUnique(out, list)
	}
	return out
}

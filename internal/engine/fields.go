package engine

import (
	"reflect"
	"strconv"
	"strings"
)

// ResolveField looks up a dotted path in the target snapshot, falling back to
// the evaluation context. A miss anywhere along the path yields (nil, false),
// never an error: a misconfigured field path must degrade to "not found".
func ResolveField(data, evalCtx map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := lookupPath(data, path); ok {
		return v, true
	}
	return lookupPath(evalCtx, path)
}

func lookupPath(root map[string]interface{}, path string) (interface{}, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current interface{} = root
	for _, segment := range strings.Split(path, ".") {
		v, ok := lookupSegment(current, segment)
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// lookupSegment tries a mapping lookup first, then a struct field lookup.
func lookupSegment(v interface{}, key string) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]interface{}); ok {
		val, ok := m[key]
		return val, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		field := rv.FieldByName(key)
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		return field.Interface(), true
	default:
		return nil, false
	}
}

// toFloat coerces a resolved value to float64. Non-numeric values report
// false rather than erroring.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

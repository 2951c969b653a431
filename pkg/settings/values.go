package settings

import (
	"encoding/json"
	"math"
	"reflect"
)

// Clone returns a deep copy of a document value
func Clone(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return CloneDocument(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	default:
		return val
	}
}

// CloneDocument returns a deep copy of doc. A nil document clones to nil.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = Clone(v)
	}
	return out
}

// Merge returns a deep copy of base with overlay laid over it. Objects
// merge key by key, any other overlay value replaces the base value.
func Merge(base, overlay Document) Document {
	out := CloneDocument(base)
	if out == nil {
		out = Document{}
	}
	for k, v := range overlay {
		if child, ok := v.(map[string]any); ok {
			if existing, ok := out[k].(map[string]any); ok {
				out[k] = Merge(existing, child)
				continue
			}
		}
		out[k] = Clone(v)
	}
	return out
}

// Equal compares two document values. Numbers compare by value
// regardless of their Go type, so int64(5) equals float64(5) and a
// json.Number "5". Two integers compare exactly, a float on either side
// compares as float64.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ia, ok := asInt(a); ok {
		if ib, ok := asInt(b); ok {
			return ia == ib
		}
	}
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, x := range va {
			y, exists := vb[k]
			if !exists || !Equal(x, y) {
				return false
			}
		}
		return true
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	}

	sa, okA := toSlice(a)
	sb, okB := toSlice(b)
	if okA && okB {
		if len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !Equal(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	if okA || okB {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// asFloat reads any Go numeric type (and json.Number) as float64
func asFloat(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// asInt reads integer kinds (and integral json.Number) as int64 without
// a float round trip. uint64 values above MaxInt64 are not reported.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

// toSlice accepts []any and any other slice or array kind
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a string in disguise, not a list
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asMap returns v as a document, or nil when it is not one
func asMap(v any) Document {
	m, _ := v.(map[string]any)
	return m
}

package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// Coerce converts v to the field's declared kind. Integers become
// int64, numbers float64. Object values are completed with defaults.
func (f *Field) Coerce(v any) (any, error) {
	return f.coerce(v)
}

func (f *Field) coerce(v any) (any, error) {
	switch f.Kind {
	case KindString:
		return coerceString(v)
	case KindInteger:
		return coerceInteger(v)
	case KindNumber:
		return coerceNumber(v)
	case KindBoolean:
		return coerceBoolean(v)
	case KindEnum:
		return f.coerceEnum(v)
	case KindList:
		items, ok := toSlice(v)
		if !ok {
			return nil, fmt.Errorf("expected a list, got %T", v)
		}
		if f.Item == nil {
			return nil, fmt.Errorf("list has no item descriptor")
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := f.Item.coerce(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected an object, got %T", v)
		}
		return applyFields(f.Fields, nil, m, nil), nil
	}
	return nil, fmt.Errorf("unknown field type %q", f.Kind)
}

func coerceString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case json.Number:
		return s.String(), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case int:
		return strconv.Itoa(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("expected a string, got %T", v)
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case bool:
		return nil, fmt.Errorf("expected an integer, got bool")
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid integer", n)
		}
		return i, nil
	}
	if i, ok := asInt(v); ok {
		return i, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil, fmt.Errorf("expected an integer, got %T", v)
	}
	// float64(MaxInt64) rounds up to 2^63, which int64 cannot hold
	if !isIntegral(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("value %v is not a valid integer", v)
	}
	return int64(f), nil
}

func coerceNumber(v any) (any, error) {
	switch n := v.(type) {
	case bool:
		return nil, fmt.Errorf("expected a number, got bool")
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid number", n)
		}
		return f, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil, fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("value %v is not a finite number", v)
	}
	return f, nil
}

func coerceBoolean(v any) (any, error) {
	if _, isList := toSlice(v); isList {
		return nil, fmt.Errorf("expected a boolean, got %T", v)
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	return utils.ParseBool(v)
}

func (f *Field) coerceEnum(v any) (any, error) {
	for _, member := range f.Enum {
		if Equal(member, v) {
			return member, nil
		}
	}
	return nil, fmt.Errorf("value %v is not one of %v", v, f.Enum)
}

// defaultValue returns the normalized default of a field
func (f *Field) defaultValue() any {
	switch f.Kind {
	case KindObject:
		return defaultsOf(f.Fields)
	case KindList:
		if f.Default != nil {
			if v, err := f.coerce(f.Default); err == nil {
				return v
			}
		}
		return []any{}
	}
	if f.Default != nil {
		if v, err := f.coerce(f.Default); err == nil {
			return v
		}
	}
	switch f.Kind {
	case KindString:
		return ""
	case KindInteger:
		return int64(0)
	case KindNumber:
		return float64(0)
	case KindBoolean:
		return false
	case KindEnum:
		if len(f.Enum) > 0 {
			return f.Enum[0]
		}
	}
	return nil
}

// Defaults returns a fully populated instance built from field defaults
func (s *Schema) Defaults() Document {
	return defaultsOf(s.Fields)
}

func defaultsOf(fields []*Field) Document {
	out := make(Document, len(fields))
	for _, f := range fields {
		out[f.Name] = f.defaultValue()
	}
	return out
}

// Package settings implements the addon settings override engine: a
// data-driven schema of fields, and the operations that merge, diff and
// describe override documents against it.
package settings

import (
	"fmt"
	"regexp"
	"sync"
)

// Kind is the declared type of a field
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindList    Kind = "list"
	KindObject  Kind = "object"
)

// Scope is a settings layer a field may be overridden at
type Scope string

const (
	ScopeStudio  Scope = "studio"
	ScopeProject Scope = "project"
	ScopeSite    Scope = "site"
)

// DefaultScope applies to fields that declare no scope of their own
// and have no parent to inherit one from.
var DefaultScope = []Scope{ScopeStudio, ScopeProject}

// Document is a settings instance or a sparse override tree.
// Nested objects are map[string]any, lists are []any.
type Document = map[string]any

// Field describes one node of a settings schema
type Field struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"type"`
	Title   string  `json:"title,omitempty"`
	Default any     `json:"default,omitempty"`
	Scope   []Scope `json:"scope,omitempty"`

	// Object fields
	Fields  []*Field `json:"fields,omitempty"`
	IsGroup bool     `json:"isGroup,omitempty"`

	// List fields
	Item     *Field `json:"item,omitempty"`
	MinItems *int   `json:"minItems,omitempty"`
	MaxItems *int   `json:"maxItems,omitempty"`

	// Leaf constraints
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Enum      []any    `json:"enum,omitempty"`
}

// Schema is the root of a settings model
type Schema struct {
	Fields []*Field `json:"fields"`
}

// NewSchema creates a schema from top-level fields
func NewSchema(fields ...*Field) *Schema {
	return &Schema{Fields: fields}
}

// Field returns the top-level field with the given name
func (s *Schema) Field(name string) *Field {
	return fieldByName(s.Fields, name)
}

// Lookup resolves a field by path. List items are addressed by index.
func (s *Schema) Lookup(path []string) (*Field, bool) {
	fields := s.Fields
	var f *Field
	for _, key := range path {
		if f != nil && f.Kind == KindList {
			if f.Item == nil {
				return nil, false
			}
			f = f.Item
		} else {
			f = fieldByName(fields, key)
			if f == nil {
				return nil, false
			}
		}
		fields = f.Fields
	}
	return f, f != nil
}

// Check verifies that the schema definition itself is coherent
func (s *Schema) Check() error {
	return checkFields(s.Fields, "")
}

func checkFields(fields []*Field, prefix string) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil {
			return fmt.Errorf("%snil field", prefix)
		}
		if f.Name == "" {
			return fmt.Errorf("%sfield without name", prefix)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s%s", prefix, f.Name)
		}
		seen[f.Name] = true
		if err := f.check(prefix + f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) check(path string) error {
	for _, sc := range f.Scope {
		switch sc {
		case ScopeStudio, ScopeProject, ScopeSite:
		default:
			return fmt.Errorf("field %s: unknown scope %q", path, sc)
		}
	}
	switch f.Kind {
	case KindString, KindInteger, KindNumber, KindBoolean:
	case KindEnum:
		if len(f.Enum) == 0 {
			return fmt.Errorf("field %s: enum without values", path)
		}
	case KindList:
		if f.Item == nil {
			return fmt.Errorf("field %s: list without item descriptor", path)
		}
		if f.Item.Kind == KindList {
			return fmt.Errorf("field %s: nested lists are not supported", path)
		}
		if err := f.Item.check(path + "[]"); err != nil {
			return err
		}
	case KindObject:
		if err := checkFields(f.Fields, path+"."); err != nil {
			return err
		}
	default:
		return fmt.Errorf("field %s: unknown type %q", path, f.Kind)
	}
	if f.Pattern != "" {
		if _, err := compilePattern(f.Pattern); err != nil {
			return fmt.Errorf("field %s: invalid pattern: %w", path, err)
		}
	}
	if f.Default != nil && f.Kind != KindObject {
		if _, err := f.coerce(f.Default); err != nil {
			return fmt.Errorf("field %s: invalid default: %w", path, err)
		}
	}
	return nil
}

// EffectiveScope returns the field scope, inheriting from parent
func (f *Field) EffectiveScope(parent []Scope) []Scope {
	if len(f.Scope) > 0 {
		return f.Scope
	}
	if len(parent) > 0 {
		return parent
	}
	return DefaultScope
}

func hasScope(scopes []Scope, s Scope) bool {
	for _, sc := range scopes {
		if sc == s {
			return true
		}
	}
	return false
}

// allowedAt reports whether a field with the given scope may be
// overridden at level. An empty level allows everything.
func allowedAt(scopes []Scope, level Scope) bool {
	return level == "" || hasScope(scopes, level)
}

func fieldByName(fields []*Field, name string) *Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// isBranch reports whether overrides recurse into the field
func (f *Field) isBranch() bool {
	return f.Kind == KindObject && !f.IsGroup
}

var patternCache sync.Map

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}

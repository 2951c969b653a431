package settings

import (
	"fmt"
	"strings"
)

// PinPath stores the current value found along path into overrides,
// so that it no longer follows the parent layer. Walking stops at the
// first group, list or leaf, which is pinned whole. Pinning a branch
// pins its whole subtree.
func (s *Schema) PinPath(instance, overrides Document, path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	fields := s.Fields
	current := instance
	target := overrides
	for i, key := range path {
		f := fieldByName(fields, key)
		if f == nil {
			return fmt.Errorf("%s is not present in the settings model", strings.Join(path[:i+1], "/"))
		}
		value, ok := current[key]
		if !ok {
			value = f.defaultValue()
		}
		if !f.isBranch() || i == len(path)-1 {
			target[key] = Clone(value)
			return nil
		}
		next, ok := target[key].(map[string]any)
		if !ok {
			next = make(Document)
			target[key] = next
		}
		target = next
		fields = f.Fields
		current = asMap(value)
	}
	return nil
}

// RemovePath drops the override at path, pruning empty ancestors
func RemovePath(overrides Document, path []string) bool {
	return DeletePath(overrides, path)
}

package settings

import (
	"strconv"
	"strings"
)

// PathKey renders a path as a flat identifier: root_a_b
func PathKey(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return "root_" + strings.Join(path, "_")
}

// GetPath returns the value at path. List elements are addressed by
// their decimal index.
func GetPath(doc Document, path []string) (any, bool) {
	var current any = doc
	for _, key := range path {
		switch node := current.(type) {
		case map[string]any:
			val, ok := node[key]
			if !ok {
				return nil, false
			}
			current = val
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath sets value at path, creating intermediate objects as needed.
// Intermediate values that are not objects are replaced.
func SetPath(doc Document, path []string, value any) {
	if doc == nil || len(path) == 0 {
		return
	}
	current := doc
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

// DeletePath removes the value at path and prunes ancestors that became
// empty. Missing paths are a no-op. Returns true if something was deleted.
func DeletePath(doc Document, path []string) bool {
	if doc == nil || len(path) == 0 {
		return false
	}
	key := path[0]
	if len(path) == 1 {
		if _, ok := doc[key]; !ok {
			return false
		}
		delete(doc, key)
		return true
	}
	child, ok := doc[key].(map[string]any)
	if !ok {
		return false
	}
	deleted := DeletePath(child, path[1:])
	if deleted && len(child) == 0 {
		delete(doc, key)
	}
	return deleted
}

type pathSet map[string]struct{}

func newPathSet(paths [][]string) pathSet {
	set := make(pathSet, len(paths))
	for _, p := range paths {
		if len(p) > 0 {
			set[joinPath(p)] = struct{}{}
		}
	}
	return set
}

func (s pathSet) has(path []string) bool {
	_, ok := s[joinPath(path)]
	return ok
}

// hasWithin reports whether a member lies strictly below path
func (s pathSet) hasWithin(path []string) bool {
	prefix := joinPath(path) + "\x00"
	for p := range s {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func joinPath(path []string) string {
	return strings.Join(path, "\x00")
}

func childPath(path []string, name string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = name
	return out
}

package settings

import "strconv"

// Override entry types
const (
	OverrideBranch = "branch"
	OverrideGroup  = "group"
	OverrideList   = "list"
	OverrideLeaf   = "leaf"
)

// OverrideInfo describes one overridden path of an instance
type OverrideInfo struct {
	Path    []string `json:"path"`
	Type    string   `json:"type"`
	Value   any      `json:"value,omitempty"`
	Level   Scope    `json:"level"`
	InGroup []string `json:"inGroup"`
	Scope   []Scope  `json:"scope"`
}

// ListOverrides reports, for every path carrying an override at level,
// where it sits in the instance. Keys are PathKey(path).
func (s *Schema) ListOverrides(instance, overrides Document, level Scope) map[string]OverrideInfo {
	result := make(map[string]OverrideInfo)
	listFields(s.Fields, instance, overrides, nil, level, []string{}, DefaultScope, result)
	return result
}

func listFields(fields []*Field, instance, overrides Document, path []string, level Scope, inGroup []string, parentScope []Scope, result map[string]OverrideInfo) {
	for _, f := range fields {
		fp := childPath(path, f.Name)
		scope := f.EffectiveScope(parentScope)
		ov, present := overrides[f.Name]
		value := instance[f.Name]

		switch {
		case f.isBranch():
			if present {
				result[PathKey(fp)] = OverrideInfo{Path: fp, Type: OverrideBranch, Level: level, InGroup: inGroup, Scope: scope}
			}
			listFields(f.Fields, asMap(value), asMap(ov), fp, level, inGroup, scope, result)

		case f.Kind == KindObject:
			if !present {
				continue
			}
			result[PathKey(fp)] = OverrideInfo{Path: fp, Type: OverrideGroup, Level: level, InGroup: inGroup, Scope: scope}
			listFields(f.Fields, asMap(value), asMap(ov), fp, level, fp, scope, result)

		case f.Kind == KindList:
			if !present {
				continue
			}
			result[PathKey(fp)] = OverrideInfo{Path: fp, Type: OverrideList, Level: level, InGroup: inGroup, Scope: scope}
			itemGroup := inGroup
			if len(itemGroup) == 0 {
				itemGroup = fp
			}
			items, _ := toSlice(value)
			ovItems, _ := toSlice(ov)
			for i, item := range items {
				ip := childPath(fp, strconv.Itoa(i))
				if f.Item != nil && f.Item.Kind == KindObject {
					var itemOv Document
					if i < len(ovItems) {
						itemOv = asMap(ovItems[i])
					}
					listFields(f.Item.Fields, asMap(item), itemOv, ip, level, itemGroup, scope, result)
					continue
				}
				result[PathKey(ip)] = OverrideInfo{Path: ip, Type: OverrideLeaf, Value: item, Level: level, InGroup: itemGroup, Scope: scope}
			}

		default:
			if !present {
				continue
			}
			result[PathKey(fp)] = OverrideInfo{Path: fp, Type: OverrideLeaf, Value: value, Level: level, InGroup: inGroup, Scope: scope}
		}
	}
}

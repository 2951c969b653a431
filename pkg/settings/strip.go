package settings

// StripInherited removes from overrides every value that equals the
// inherited one, every field not overridable at level and every key the
// schema does not declare. Branches that end up empty are removed.
func (s *Schema) StripInherited(overrides, inherited Document, level Scope) Document {
	return stripFields(s.Fields, overrides, inherited, DefaultScope, level)
}

func stripFields(fields []*Field, overrides, inherited Document, parentScope []Scope, level Scope) Document {
	out := make(Document)
	for _, f := range fields {
		ov, present := overrides[f.Name]
		if !present {
			continue
		}
		scope := f.EffectiveScope(parentScope)
		if !allowedAt(scope, level) {
			continue
		}
		if f.isBranch() {
			m, ok := ov.(map[string]any)
			if !ok {
				continue
			}
			if sub := stripFields(f.Fields, m, asMap(inherited[f.Name]), scope, level); len(sub) > 0 {
				out[f.Name] = sub
			}
			continue
		}
		v, err := f.coerce(ov)
		if err != nil {
			continue
		}
		if inh, ok := inherited[f.Name]; ok && Equal(v, inh) {
			continue
		}
		out[f.Name] = v
	}
	return out
}

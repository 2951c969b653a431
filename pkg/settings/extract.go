package settings

// ExtractOptions tune Extract
type ExtractOptions struct {
	// Existing is the override document currently stored for the level.
	// Fields present there are kept even when they match base.
	Existing Document
	// Pinned paths are emitted even when equal to base.
	Pinned [][]string
	// Unpinned paths are removed from the result after the walk.
	Unpinned [][]string
	// Level restricts the result to fields overridable at this scope.
	// Empty means no restriction.
	Level Scope
}

// Extract computes the minimal override document that turns base into
// modified: Apply(base, Extract(base, modified, opts)) == modified for every
// field the level allows. Lists and groups are emitted whole.
func (s *Schema) Extract(base, modified Document, opts ExtractOptions) Document {
	x := extractor{
		pins:  newPathSet(opts.Pinned),
		level: opts.Level,
	}
	result := make(Document)
	x.walk(s.Fields, base, modified, opts.Existing, nil, nil, result)
	for _, p := range opts.Unpinned {
		DeletePath(result, p)
	}
	return result
}

type extractor struct {
	pins  pathSet
	level Scope
}

func (x *extractor) walk(fields []*Field, base, modified, existing Document, path []string, parentScope []Scope, target Document) {
	for _, f := range fields {
		scope := f.EffectiveScope(parentScope)
		if !allowedAt(scope, x.level) {
			continue
		}
		fp := childPath(path, f.Name)
		oldVal := base[f.Name]
		newVal, present := modified[f.Name]
		if !present {
			newVal = oldVal
		}
		existingVal, inExisting := existing[f.Name]

		if f.isBranch() {
			if x.pins.has(fp) {
				target[f.Name] = Clone(newVal)
				continue
			}
			if inExisting || x.pins.hasWithin(fp) || !Equal(oldVal, newVal) {
				sub := make(Document)
				x.walk(f.Fields, asMap(oldVal), asMap(newVal), asMap(existingVal), fp, scope, sub)
				if len(sub) > 0 {
					target[f.Name] = sub
				}
			}
			continue
		}

		if inExisting || x.pins.has(fp) || !Equal(oldVal, newVal) {
			target[f.Name] = Clone(newVal)
		}
	}
}

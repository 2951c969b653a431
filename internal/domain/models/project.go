package models

const projectBundleKey = "bundle"

// Project is the part of a project entity this service reads and writes
type Project struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// BundleRefs returns the variant -> bundle name references
func (p *Project) BundleRefs() map[string]string {
	out := make(map[string]string)
	raw, _ := p.Data[projectBundleKey].(map[string]any)
	for variant, v := range raw {
		if name, ok := v.(string); ok && name != "" {
			out[variant] = name
		}
	}
	return out
}

// BundleFor returns the project bundle for a variant, if frozen
func (p *Project) BundleFor(variant string) (string, bool) {
	name, ok := p.BundleRefs()[variant]
	return name, ok
}

// SetBundle binds the project to a bundle for a variant
func (p *Project) SetBundle(variant, bundleName string) {
	if p.Data == nil {
		p.Data = make(map[string]any)
	}
	refs, _ := p.Data[projectBundleKey].(map[string]any)
	if refs == nil {
		refs = make(map[string]any)
	}
	refs[variant] = bundleName
	p.Data[projectBundleKey] = refs
}

// ClearBundle removes the reference for a variant, dropping the whole
// reference map once it is empty. Returns the removed bundle name.
func (p *Project) ClearBundle(variant string) (string, bool) {
	refs, _ := p.Data[projectBundleKey].(map[string]any)
	name, ok := refs[variant].(string)
	if !ok {
		return "", false
	}
	delete(refs, variant)
	if len(refs) == 0 {
		delete(p.Data, projectBundleKey)
	}
	return name, true
}

package settings

// String creates a string leaf
func String(name, def string) *Field {
	return &Field{Name: name, Kind: KindString, Default: def}
}

// Integer creates an integer leaf
func Integer(name string, def int64) *Field {
	return &Field{Name: name, Kind: KindInteger, Default: def}
}

// Number creates a floating point leaf
func Number(name string, def float64) *Field {
	return &Field{Name: name, Kind: KindNumber, Default: def}
}

// Boolean creates a boolean leaf
func Boolean(name string, def bool) *Field {
	return &Field{Name: name, Kind: KindBoolean, Default: def}
}

// Enum creates an enum leaf. values lists the allowed members.
func Enum(name string, def any, values ...any) *Field {
	return &Field{Name: name, Kind: KindEnum, Default: def, Enum: values}
}

// List creates a list of item descriptors
func List(name string, item *Field, def ...any) *Field {
	f := &Field{Name: name, Kind: KindList, Item: item}
	if def != nil {
		f.Default = def
	}
	return f
}

// Object creates a nested object whose children override individually
func Object(name string, fields ...*Field) *Field {
	return &Field{Name: name, Kind: KindObject, Fields: fields}
}

// Group creates a nested object that is overridden as a whole
func Group(name string, fields ...*Field) *Field {
	return &Field{Name: name, Kind: KindObject, Fields: fields, IsGroup: true}
}

// WithScope restricts the layers the field may be overridden at
func (f *Field) WithScope(scopes ...Scope) *Field {
	f.Scope = scopes
	return f
}

// Titled sets a human readable title
func (f *Field) Titled(title string) *Field {
	f.Title = title
	return f
}

// Range sets numeric bounds
func (f *Field) Range(min, max float64) *Field {
	f.Minimum = &min
	f.Maximum = &max
	return f
}

// Min sets a lower numeric bound
func (f *Field) Min(min float64) *Field {
	f.Minimum = &min
	return f
}

// Length sets string length bounds (in runes)
func (f *Field) Length(min, max int) *Field {
	f.MinLength = &min
	f.MaxLength = &max
	return f
}

// Items sets list length bounds
func (f *Field) Items(min, max int) *Field {
	f.MinItems = &min
	f.MaxItems = &max
	return f
}

// WithPattern sets a regular expression a string value must match
func (f *Field) WithPattern(pattern string) *Field {
	f.Pattern = pattern
	return f
}

package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError is one validation failure
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrors is returned by Parse and Validate
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(fe.Loc, "."), fe.Msg))
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// Parse builds a complete instance from a partial payload. Missing
// fields take their defaults. When any value fails coercion or its
// constraints the returned error is a ValidationErrors.
func (s *Schema) Parse(payload Document) (Document, error) {
	doc, errs := parseFields(s.Fields, payload, nil)
	if len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}

// Validate checks a complete instance against the schema
func (s *Schema) Validate(doc Document) error {
	_, err := s.Parse(doc)
	return err
}

func parseFields(fields []*Field, payload Document, path []string) (Document, ValidationErrors) {
	var errs ValidationErrors
	out := make(Document, len(fields))
	for _, f := range fields {
		fp := childPath(path, f.Name)
		raw, present := payload[f.Name]
		if !present || raw == nil {
			out[f.Name] = f.defaultValue()
			continue
		}
		v, fieldErrs := parseValue(f, raw, fp)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		out[f.Name] = v
	}
	return out, errs
}

func parseValue(f *Field, raw any, path []string) (any, ValidationErrors) {
	switch f.Kind {
	case KindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, ValidationErrors{{Loc: path, Msg: "value is not a valid object", Type: "type_error.object"}}
		}
		doc, errs := parseFields(f.Fields, m, path)
		return doc, errs

	case KindList:
		items, ok := toSlice(raw)
		if !ok {
			return nil, ValidationErrors{{Loc: path, Msg: "value is not a valid list", Type: "type_error.list"}}
		}
		var errs ValidationErrors
		out := make([]any, len(items))
		for i, item := range items {
			v, itemErrs := parseValue(f.Item, item, childPath(path, strconv.Itoa(i)))
			errs = append(errs, itemErrs...)
			out[i] = v
		}
		if len(errs) > 0 {
			return nil, errs
		}
		if msg := checkConstraints(f, out); msg != "" {
			return nil, ValidationErrors{{Loc: path, Msg: msg, Type: "value_error"}}
		}
		return out, nil
	}

	v, err := f.coerce(raw)
	if err != nil {
		return nil, ValidationErrors{{Loc: path, Msg: err.Error(), Type: "type_error"}}
	}
	if msg := checkConstraints(f, v); msg != "" {
		return nil, ValidationErrors{{Loc: path, Msg: msg, Type: "value_error"}}
	}
	return v, nil
}

// checkConstraints validates an already coerced value. Bounds are
// expressed as validator tags; pattern and enum membership are checked
// directly. Returns an empty string when the value is valid.
func checkConstraints(f *Field, v any) string {
	var tags []string
	switch f.Kind {
	case KindInteger:
		if f.Minimum != nil {
			tags = append(tags, "gte="+strconv.FormatInt(int64(math.Ceil(*f.Minimum)), 10))
		}
		if f.Maximum != nil {
			tags = append(tags, "lte="+strconv.FormatInt(int64(math.Floor(*f.Maximum)), 10))
		}
	case KindNumber:
		if f.Minimum != nil {
			tags = append(tags, "gte="+strconv.FormatFloat(*f.Minimum, 'f', -1, 64))
		}
		if f.Maximum != nil {
			tags = append(tags, "lte="+strconv.FormatFloat(*f.Maximum, 'f', -1, 64))
		}
	case KindString:
		if f.MinLength != nil {
			tags = append(tags, "min="+strconv.Itoa(*f.MinLength))
		}
		if f.MaxLength != nil {
			tags = append(tags, "max="+strconv.Itoa(*f.MaxLength))
		}
	case KindList:
		if f.MinItems != nil {
			tags = append(tags, "min="+strconv.Itoa(*f.MinItems))
		}
		if f.MaxItems != nil {
			tags = append(tags, "max="+strconv.Itoa(*f.MaxItems))
		}
	}

	if len(tags) > 0 {
		if err := validate.Var(v, strings.Join(tags, ",")); err != nil {
			return describeViolation(f, err)
		}
	}

	if f.Kind == KindString && f.Pattern != "" {
		re, err := compilePattern(f.Pattern)
		if err != nil {
			return fmt.Sprintf("invalid pattern %q", f.Pattern)
		}
		if s, _ := v.(string); !re.MatchString(s) {
			return fmt.Sprintf("string does not match regex %q", f.Pattern)
		}
	}
	return ""
}

func describeViolation(f *Field, err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch f.Kind {
	case KindString:
		if fe.Tag() == "min" {
			return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case KindList:
		if fe.Tag() == "min" {
			return fmt.Sprintf("ensure this value has at least %s items", fe.Param())
		}
		return fmt.Sprintf("ensure this value has at most %s items", fe.Param())
	}
	if fe.Tag() == "gte" {
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	}
	return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
}

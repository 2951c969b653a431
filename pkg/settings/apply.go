package settings

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// Apply overlays overrides onto base and returns a new document.
// Values that cannot be coerced to the declared kind are dropped with a
// warning and the base value is kept. Keys the schema does not declare
// are ignored. Apply never fails.
func (s *Schema) Apply(base, overrides Document) Document {
	return applyFields(s.Fields, base, overrides, nil)
}

func applyFields(fields []*Field, base, overrides Document, path []string) Document {
	out := make(Document, len(fields))
	for _, f := range fields {
		baseVal, ok := base[f.Name]
		if !ok {
			baseVal = f.defaultValue()
		}

		if f.Kind == KindObject {
			childOverrides, isMap := overrides[f.Name].(map[string]any)
			if raw, present := overrides[f.Name]; present && !isMap {
				warnDropped(childPath(path, f.Name), raw, "expected an object")
			}
			out[f.Name] = applyFields(f.Fields, asMap(baseVal), childOverrides, childPath(path, f.Name))
			continue
		}

		raw, present := overrides[f.Name]
		if !present {
			out[f.Name] = Clone(baseVal)
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			warnDropped(childPath(path, f.Name), raw, err.Error())
			out[f.Name] = Clone(baseVal)
			continue
		}
		out[f.Name] = v
	}
	return out
}

func warnDropped(path []string, value any, reason string) {
	logger.WithComponent("settings").WithFields(logrus.Fields{
		"path":  strings.Join(path, "/"),
		"value": value,
	}).Warnf("ignoring invalid override: %s", reason)
}

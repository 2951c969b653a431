package settings

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// MigrateOverrides carries an override document written against another
// version of the schema over to this one, by field name. Keys the schema
// does not declare and values that fail validation are skipped with a
// warning. Lists of objects migrate item by item.
func (s *Schema) MigrateOverrides(doc Document) Document {
	return migrateFields(s.Fields, doc, nil)
}

func migrateFields(fields []*Field, doc Document, path []string) Document {
	out := make(Document)
	for key, value := range doc {
		fp := childPath(path, key)
		f := fieldByName(fields, key)
		if f == nil {
			warnSkipped(fp, "field no longer exists")
			continue
		}

		switch {
		case f.Kind == KindObject:
			m, ok := value.(map[string]any)
			if !ok {
				warnSkipped(fp, "expected an object")
				continue
			}
			if f.IsGroup {
				// groups replace the whole object, so complete it
				out[key] = applyFields(f.Fields, nil, migrateFields(f.Fields, m, fp), fp)
				continue
			}
			if sub := migrateFields(f.Fields, m, fp); len(sub) > 0 {
				out[key] = sub
			}

		case f.Kind == KindList && f.Item != nil && f.Item.Kind == KindObject:
			items, ok := toSlice(value)
			if !ok {
				warnSkipped(fp, "expected a list")
				continue
			}
			migrated := make([]any, 0, len(items))
			for _, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					warnSkipped(fp, "list item is not an object")
					continue
				}
				migrated = append(migrated, applyFields(f.Item.Fields, nil, migrateFields(f.Item.Fields, m, fp), fp))
			}
			out[key] = migrated

		default:
			v, errs := parseValue(f, value, fp)
			if len(errs) > 0 {
				warnSkipped(fp, errs.Error())
				continue
			}
			out[key] = v
		}
	}
	return out
}

func warnSkipped(path []string, reason string) {
	logger.WithComponent("settings").WithFields(logrus.Fields{
		"path": strings.Join(path, "/"),
	}).Warnf("skipping override during migration: %s", reason)
}

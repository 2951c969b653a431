package addonlib

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/expression"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// Manifest declares one addon version
type Manifest struct {
	Name                      string           `json:"name"`
	Version                   string           `json:"version"`
	FriendlyName              string           `json:"friendlyName,omitempty"`
	IsSystem                  bool             `json:"isSystem,omitempty"`
	ProjectCanOverrideVersion bool             `json:"projectCanOverrideVersion,omitempty"`
	Settings                  *settings.Schema `json:"settings,omitempty"`
	Conversions               []ConversionRule `json:"conversions,omitempty"`
}

// ConversionRule rewrites overrides stored for From (or "*") before they
// are migrated into the manifest version. Paths are dotted. Rename runs
// first, then Set, then Drop. A Set expression sees the variables
// overrides, value, from and to; a nil result removes the path.
type ConversionRule struct {
	From   string            `json:"from"`
	Rename map[string]string `json:"rename,omitempty"`
	Set    map[string]string `json:"set,omitempty"`
	Drop   []string          `json:"drop,omitempty"`
}

var ruleVariables = []string{"overrides", "value", "from", "to"}

// Loader turns manifests into registered addons
type Loader struct {
	library *Library
	engine  *expression.Engine
}

// NewLoader creates a loader registering into library
func NewLoader(library *Library, engine *expression.Engine) *Loader {
	if engine == nil {
		engine = expression.NewEngine()
	}
	return &Loader{library: library, engine: engine}
}

// LoadDir registers every *.json manifest in dir and returns how many
// were loaded. A missing directory loads nothing.
func (l *Loader) LoadDir(dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list manifests in %s: %w", dir, err)
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
			l.library.log.WithField("dir", dir).Warn("addons directory does not exist")
		}
		return 0, nil
	}
	sort.Strings(files)

	count := 0
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return count, fmt.Errorf("failed to read manifest %s: %w", file, err)
		}
		var m Manifest
		if err := json.Unmarshal(raw, &m); err != nil {
			return count, fmt.Errorf("failed to parse manifest %s: %w", file, err)
		}
		if err := l.Load(&m); err != nil {
			return count, fmt.Errorf("manifest %s: %w", file, err)
		}
		count++
	}
	l.library.log.WithFields(logrus.Fields{"dir": dir, "count": count}).Info("addon manifests loaded")
	return count, nil
}

// Load registers the addon a manifest describes
func (l *Loader) Load(m *Manifest) error {
	addon := &models.Addon{
		Name:                      m.Name,
		Version:                   m.Version,
		FriendlyName:              m.FriendlyName,
		Schema:                    m.Settings,
		IsSystem:                  m.IsSystem,
		ProjectCanOverrideVersion: m.ProjectCanOverrideVersion,
	}
	if addon.FriendlyName == "" {
		addon.FriendlyName = m.Name
	}

	for i := range m.Conversions {
		rule := m.Conversions[i]
		if rule.From == "" {
			rule.From = models.AnyVersion
		}
		fn, err := l.compile(rule, m.Version)
		if err != nil {
			return fmt.Errorf("conversion from %s: %w", rule.From, err)
		}
		addon.AddConversion(rule.From, fn)
	}
	return l.library.Register(addon)
}

func (l *Loader) compile(rule ConversionRule, toVersion string) (models.ConvertFunc, error) {
	for target, src := range rule.Set {
		if err := l.engine.Validate(src); err != nil {
			return nil, fmt.Errorf("set %s: %w", target, err)
		}
		if err := expression.CheckVariables(src, ruleVariables...); err != nil {
			return nil, fmt.Errorf("set %s: %w", target, err)
		}
	}

	renames := sortedKeys(rule.Rename)
	sets := sortedKeys(rule.Set)

	return func(overrides settings.Document) (settings.Document, error) {
		doc := settings.CloneDocument(overrides)
		if doc == nil {
			doc = settings.Document{}
		}

		for _, from := range renames {
			oldPath, newPath := splitPath(from), splitPath(rule.Rename[from])
			val, ok := settings.GetPath(doc, oldPath)
			if !ok {
				continue
			}
			settings.DeletePath(doc, oldPath)
			settings.SetPath(doc, newPath, val)
		}

		for _, target := range sets {
			path := splitPath(target)
			current, _ := settings.GetPath(doc, path)
			out, err := l.engine.Evaluate(rule.Set[target], map[string]interface{}{
				"overrides": doc,
				"value":     current,
				"from":      rule.From,
				"to":        toVersion,
			})
			if err != nil {
				return nil, fmt.Errorf("set %s: %w", target, err)
			}
			if out == nil {
				settings.DeletePath(doc, path)
				continue
			}
			settings.SetPath(doc, path, out)
		}

		for _, p := range rule.Drop {
			settings.DeletePath(doc, splitPath(p))
		}
		return doc, nil
	}, nil
}

func splitPath(p string) []string {
	return strings.Split(p, ".")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package addonlib keeps the installed addons in memory and loads them
// from JSON manifests.
package addonlib

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// Library is an in-memory AddonRegistry
type Library struct {
	mu          sync.RWMutex
	definitions map[string]*models.AddonDefinition
	log         *logrus.Entry
}

var _ ports.AddonRegistry = (*Library)(nil)

// NewLibrary creates an empty library
func NewLibrary() *Library {
	return &Library{
		definitions: make(map[string]*models.AddonDefinition),
		log:         logger.WithComponent("addonlib"),
	}
}

// Register installs one addon version. A later registration of the same
// version replaces the earlier one.
func (l *Library) Register(addon *models.Addon) error {
	if addon.Name == "" || addon.Version == "" {
		return appErrors.NewValidationError("addon", "name and version are required")
	}
	if addon.Schema != nil {
		if err := addon.Schema.Check(); err != nil {
			return appErrors.NewValidationError(addon.Name+" "+addon.Version, err.Error())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	def, ok := l.definitions[addon.Name]
	if !ok {
		def = &models.AddonDefinition{
			Name:     addon.Name,
			Versions: make(map[string]*models.Addon),
		}
		l.definitions[addon.Name] = def
	}
	def.Versions[addon.Version] = addon
	// the newest version describes the addon
	if latest := def.Latest(); latest != nil {
		def.FriendlyName = latest.FriendlyName
		def.IsSystem = latest.IsSystem
		def.ProjectCanOverrideVersion = latest.ProjectCanOverrideVersion
	}
	if def.FriendlyName == "" {
		def.FriendlyName = addon.Name
	}

	l.log.WithFields(logrus.Fields{"addon": addon.Name, "version": addon.Version}).Debug("addon registered")
	return nil
}

// RegisterConversion installs a hook converting overrides of addon
// written for version from into version to
func (l *Library) RegisterConversion(name, from, to string, fn models.ConvertFunc) error {
	addon, err := l.Addon(name, to)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	addon.AddConversion(from, fn)
	return nil
}

// Addon returns one installed version
func (l *Library) Addon(name, version string) (*models.Addon, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	def, ok := l.definitions[name]
	if !ok {
		return nil, appErrors.NewNotFoundError("Addon", name)
	}
	addon, ok := def.Versions[version]
	if !ok {
		return nil, appErrors.NewNotFoundError("Addon", name+" "+version)
	}
	return addon, nil
}

// Definition returns every installed version of an addon
func (l *Library) Definition(name string) (*models.AddonDefinition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.definitions[name]
	return def, ok
}

// Definitions returns all addons sorted by name
func (l *Library) Definitions() []*models.AddonDefinition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.AddonDefinition, 0, len(l.definitions))
	for _, def := range l.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package models

import (
	"fmt"
	"sort"

	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// ConvertFunc rewrites an override document written for another
// version of an addon into the shape of the target version.
type ConvertFunc func(overrides settings.Document) (settings.Document, error)

// AnyVersion registers a conversion for every source version
const AnyVersion = "*"

// Addon is one installed version of an addon
type Addon struct {
	Name         string
	Version      string
	FriendlyName string
	// Schema is nil for addons without settings
	Schema *settings.Schema
	// ProjectCanOverrideVersion allows project bundles to pin this addon
	ProjectCanOverrideVersion bool
	IsSystem                  bool

	conversions map[string]ConvertFunc
}

// HasSettings reports whether the addon declares a settings model
func (a *Addon) HasSettings() bool {
	return a != nil && a.Schema != nil
}

// DefaultSettings returns the fully populated default instance
func (a *Addon) DefaultSettings() settings.Document {
	if !a.HasSettings() {
		return nil
	}
	return a.Schema.Defaults()
}

// AddConversion installs a hook used when overrides written for
// fromVersion are rendered for this version. AnyVersion matches every
// source version without a specific hook.
func (a *Addon) AddConversion(fromVersion string, fn ConvertFunc) {
	if a.conversions == nil {
		a.conversions = make(map[string]ConvertFunc)
	}
	a.conversions[fromVersion] = fn
}

// ConvertOverrides renders overrides stored for fromVersion against this
// version. A registered hook runs first; the result is then migrated by
// field name so unknown keys and invalid values are dropped.
func (a *Addon) ConvertOverrides(fromVersion string, overrides settings.Document) (settings.Document, error) {
	if !a.HasSettings() {
		return settings.Document{}, nil
	}
	doc := settings.CloneDocument(overrides)
	if doc == nil {
		doc = settings.Document{}
	}
	if fn := a.conversion(fromVersion); fn != nil {
		converted, err := fn(doc)
		if err != nil {
			return nil, fmt.Errorf("convert %s overrides from %s to %s: %w", a.Name, fromVersion, a.Version, err)
		}
		doc = converted
	}
	return a.Schema.MigrateOverrides(doc), nil
}

func (a *Addon) conversion(fromVersion string) ConvertFunc {
	if fromVersion == a.Version {
		return nil
	}
	if fn, ok := a.conversions[fromVersion]; ok {
		return fn
	}
	return a.conversions[AnyVersion]
}

// AddonDefinition groups the installed versions of one addon
type AddonDefinition struct {
	Name                      string
	FriendlyName              string
	IsSystem                  bool
	ProjectCanOverrideVersion bool
	Versions                  map[string]*Addon
}

// VersionList returns installed versions, oldest first
func (d *AddonDefinition) VersionList() []string {
	out := make([]string, 0, len(d.Versions))
	for v := range d.Versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) < 0
	})
	return out
}

// Latest returns the newest installed version
func (d *AddonDefinition) Latest() *Addon {
	versions := d.VersionList()
	if len(versions) == 0 {
		return nil
	}
	return d.Versions[versions[len(versions)-1]]
}

package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Variants every studio has. Any other variant names a dev bundle.
const (
	VariantProduction = "production"
	VariantStaging    = "staging"
)

// IsStandardVariant reports whether v is production or staging
func IsStandardVariant(v string) bool {
	return v == VariantProduction || v == VariantStaging
}

var bundleNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9_\.\-]*[a-zA-Z0-9_])?$`)

// ValidateBundleName checks the bundle naming rules
func ValidateBundleName(name string) error {
	if !bundleNameRegex.MatchString(name) {
		return fmt.Errorf("invalid bundle name %q", name)
	}
	return nil
}

const projectBundlePrefix = "__project__"

// ProjectBundleName is the name of the synthetic bundle a project is frozen to
func ProjectBundleName(project, variant string) string {
	return fmt.Sprintf("%s%s__%s", projectBundlePrefix, project, variant)
}

// IsProjectBundleName reports whether name was built by ProjectBundleName
func IsProjectBundleName(name string) bool {
	return strings.HasPrefix(name, projectBundlePrefix)
}

// AddonDevelopmentItem points a dev bundle addon at a local checkout
type AddonDevelopmentItem struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Bundle is a named set of addon versions
type Bundle struct {
	Name               string                          `json:"name" binding:"required"`
	CreatedAt          time.Time                       `json:"createdAt"`
	InstallerVersion   *string                         `json:"installerVersion,omitempty"`
	Addons             map[string]*string              `json:"addons"`
	DependencyPackages map[string]*string              `json:"dependencyPackages,omitempty"`
	AddonDevelopment   map[string]AddonDevelopmentItem `json:"addonDevelopment,omitempty"`
	IsProduction       bool                            `json:"isProduction"`
	IsStaging          bool                            `json:"isStaging"`
	IsArchived         bool                            `json:"isArchived"`
	IsDev              bool                            `json:"isDev"`
	IsProject          bool                            `json:"isProject"`
	ActiveUser         *string                         `json:"activeUser,omitempty"`
}

// AddonVersion returns the enabled version of an addon in the bundle
func (b *Bundle) AddonVersion(name string) (string, bool) {
	v, ok := b.Addons[name]
	if !ok || v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

// EnabledAddons returns addon versions, skipping disabled entries
func (b *Bundle) EnabledAddons() map[string]string {
	out := make(map[string]string, len(b.Addons))
	for name := range b.Addons {
		if v, ok := b.AddonVersion(name); ok {
			out[name] = v
		}
	}
	return out
}

// AddonNames returns the enabled addon names, sorted
func (b *Bundle) AddonNames() []string {
	enabled := b.EnabledAddons()
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns production, staging or an empty string
func (b *Bundle) Status() string {
	switch {
	case b.IsProduction:
		return VariantProduction
	case b.IsStaging:
		return VariantStaging
	}
	return ""
}

// BundlePatch is a partial bundle update. Nil pointers leave the
// field unchanged; a nil addon version removes the addon.
type BundlePatch struct {
	InstallerVersion   *string                         `json:"installerVersion,omitempty"`
	Addons             map[string]*string              `json:"addons,omitempty"`
	DependencyPackages map[string]*string              `json:"dependencyPackages,omitempty"`
	AddonDevelopment   map[string]AddonDevelopmentItem `json:"addonDevelopment,omitempty"`
	IsProduction       *bool                           `json:"isProduction,omitempty"`
	IsStaging          *bool                           `json:"isStaging,omitempty"`
	IsArchived         *bool                           `json:"isArchived,omitempty"`
	IsDev              *bool                           `json:"isDev,omitempty"`
	ActiveUser         *string                         `json:"activeUser,omitempty"`
}

// BundleList is the bundle listing with the active bundles resolved
type BundleList struct {
	Bundles          []*Bundle `json:"bundles"`
	ProductionBundle *string   `json:"productionBundle,omitempty"`
	StagingBundle    *string   `json:"stagingBundle,omitempty"`
	DevBundles       []string  `json:"devBundles"`
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}

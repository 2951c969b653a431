package models

import (
	"fmt"

	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// SettingsKey addresses one stored override document.
// Studio rows set only the addon and variant, project rows add the
// project name, and site rows add site and user (site rows do not
// depend on the variant).
type SettingsKey struct {
	AddonName    string `json:"addonName"`
	AddonVersion string `json:"addonVersion"`
	Variant      string `json:"variant,omitempty"`
	ProjectName  string `json:"projectName,omitempty"`
	SiteID       string `json:"siteId,omitempty"`
	UserName     string `json:"userName,omitempty"`
}

// StudioKey builds a studio-level key
func StudioKey(addon, version, variant string) SettingsKey {
	return SettingsKey{AddonName: addon, AddonVersion: version, Variant: variant}
}

// ProjectKey builds a project-level key
func ProjectKey(addon, version, variant, project string) SettingsKey {
	return SettingsKey{AddonName: addon, AddonVersion: version, Variant: variant, ProjectName: project}
}

// SiteKey builds a project-site-user key
func SiteKey(addon, version, project, siteID, user string) SettingsKey {
	return SettingsKey{AddonName: addon, AddonVersion: version, ProjectName: project, SiteID: siteID, UserName: user}
}

// IsSite reports whether the key addresses a project-site row
func (k SettingsKey) IsSite() bool {
	return k.SiteID != ""
}

// Level returns the scope the key belongs to
func (k SettingsKey) Level() settings.Scope {
	switch {
	case k.IsSite():
		return settings.ScopeSite
	case k.ProjectName != "":
		return settings.ScopeProject
	}
	return settings.ScopeStudio
}

// WithVersion returns a copy of the key for another addon version
func (k SettingsKey) WithVersion(version string) SettingsKey {
	k.AddonVersion = version
	return k
}

// Validate checks that the key is addressable
func (k SettingsKey) Validate() error {
	if k.AddonName == "" || k.AddonVersion == "" {
		return fmt.Errorf("addon name and version are required")
	}
	if k.IsSite() {
		if k.ProjectName == "" || k.UserName == "" {
			return fmt.Errorf("site settings require project and user")
		}
		return nil
	}
	if k.Variant == "" {
		return fmt.Errorf("variant is required")
	}
	return nil
}

func (k SettingsKey) String() string {
	switch k.Level() {
	case settings.ScopeSite:
		return fmt.Sprintf("%s %s (%s site %s user %s)", k.AddonName, k.AddonVersion, k.ProjectName, k.SiteID, k.UserName)
	case settings.ScopeProject:
		return fmt.Sprintf("%s %s %s (%s)", k.AddonName, k.AddonVersion, k.Variant, k.ProjectName)
	}
	return fmt.Sprintf("%s %s %s", k.AddonName, k.AddonVersion, k.Variant)
}

// SiteRef is one (site, user) pair carrying project-site overrides
type SiteRef struct {
	SiteID   string `json:"siteId"`
	UserName string `json:"userName"`
}

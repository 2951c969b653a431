package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// Provenance records which layers contributed to resolved settings
type Provenance struct {
	Studio  bool `json:"hasStudioOverrides"`
	Project bool `json:"hasProjectOverrides"`
	Site    bool `json:"hasSiteOverrides"`
}

// Resolved is a fully populated settings document and its provenance
type Resolved struct {
	Value      settings.Document `json:"value"`
	Provenance Provenance        `json:"provenance"`
}

// Resolver composes defaults with the stored override layers.
// Every method returns nil settings for addons without a schema.
type Resolver struct {
	addons ports.AddonRegistry
	store  ports.SettingsStore
	log    *logrus.Entry
}

// NewResolver creates a Resolver
func NewResolver(addons ports.AddonRegistry, store ports.SettingsStore) *Resolver {
	return &Resolver{
		addons: addons,
		store:  store,
		log:    logger.WithComponent("resolver"),
	}
}

// StudioOverrides loads the studio overrides of addon. With asVersion
// set they are rendered for that version of the addon.
func (r *Resolver) StudioOverrides(ctx context.Context, exec ports.Executor, addon *models.Addon, variant, asVersion string) (settings.Document, error) {
	return r.overrides(ctx, exec, addon, models.StudioKey(addon.Name, addon.Version, variant), asVersion)
}

// ProjectOverrides loads the project overrides of addon
func (r *Resolver) ProjectOverrides(ctx context.Context, exec ports.Executor, addon *models.Addon, variant, project, asVersion string) (settings.Document, error) {
	return r.overrides(ctx, exec, addon, models.ProjectKey(addon.Name, addon.Version, variant, project), asVersion)
}

// SiteOverrides loads the project-site overrides of a user
func (r *Resolver) SiteOverrides(ctx context.Context, exec ports.Executor, addon *models.Addon, project, siteID, user, asVersion string) (settings.Document, error) {
	return r.overrides(ctx, exec, addon, models.SiteKey(addon.Name, addon.Version, project, siteID, user), asVersion)
}

func (r *Resolver) overrides(ctx context.Context, exec ports.Executor, addon *models.Addon, key models.SettingsKey, asVersion string) (settings.Document, error) {
	doc, err := r.store.Get(ctx, exec, key)
	if err != nil {
		return nil, err
	}
	if asVersion == "" || asVersion == addon.Version {
		return doc, nil
	}
	target, err := r.target(addon, asVersion)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return settings.Document{}, nil
	}
	converted, err := target.ConvertOverrides(addon.Version, doc)
	if err != nil {
		// unconvertible overrides fall back to the target defaults
		r.log.WithFields(logrus.Fields{
			"addon": addon.Name,
			"from":  addon.Version,
			"to":    asVersion,
			"key":   key.String(),
		}).WithError(err).Warn("unable to convert overrides")
		return settings.Document{}, nil
	}
	return converted, nil
}

// schemaAddon returns the addon whose schema shapes the result
func (r *Resolver) schemaAddon(addon *models.Addon, asVersion string) (*models.Addon, error) {
	if asVersion == "" || asVersion == addon.Version {
		return addon, nil
	}
	return r.target(addon, asVersion)
}

func (r *Resolver) target(addon *models.Addon, version string) (*models.Addon, error) {
	target, err := r.addons.Addon(addon.Name, version)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.NewBadRequestError("unable to render %s %s settings as %s: target version not installed", addon.Name, addon.Version, version)
	}
	return target, err
}

// Studio resolves defaults plus studio overrides
func (r *Resolver) Studio(ctx context.Context, exec ports.Executor, addon *models.Addon, variant, asVersion string) (*Resolved, error) {
	shape, err := r.schemaAddon(addon, asVersion)
	if err != nil {
		return nil, err
	}
	if !shape.HasSettings() {
		return nil, nil
	}
	res := &Resolved{Value: shape.DefaultSettings()}
	ov, err := r.StudioOverrides(ctx, exec, addon, variant, asVersion)
	if err != nil {
		return nil, err
	}
	if len(ov) > 0 {
		res.Value = shape.Schema.Apply(res.Value, ov)
		res.Provenance.Studio = true
	}
	return res, nil
}

// Project resolves studio settings plus project overrides
func (r *Resolver) Project(ctx context.Context, exec ports.Executor, addon *models.Addon, variant, project, asVersion string) (*Resolved, error) {
	res, err := r.Studio(ctx, exec, addon, variant, asVersion)
	if err != nil || res == nil {
		return res, err
	}
	ov, err := r.ProjectOverrides(ctx, exec, addon, variant, project, asVersion)
	if err != nil {
		return nil, err
	}
	if len(ov) > 0 {
		shape, _ := r.schemaAddon(addon, asVersion)
		res.Value = shape.Schema.Apply(res.Value, ov)
		res.Provenance.Project = true
	}
	return res, nil
}

// ProjectSite resolves project settings plus the user's site overrides
func (r *Resolver) ProjectSite(ctx context.Context, exec ports.Executor, addon *models.Addon, variant, project, siteID, user, asVersion string) (*Resolved, error) {
	res, err := r.Project(ctx, exec, addon, variant, project, asVersion)
	if err != nil || res == nil {
		return res, err
	}
	ov, err := r.SiteOverrides(ctx, exec, addon, project, siteID, user, asVersion)
	if err != nil {
		return nil, err
	}
	if len(ov) > 0 {
		shape, _ := r.schemaAddon(addon, asVersion)
		res.Value = shape.Schema.Apply(res.Value, ov)
		res.Provenance.Site = true
	}
	return res, nil
}

// ForKey resolves settings at the level the key addresses
func (r *Resolver) ForKey(ctx context.Context, exec ports.Executor, addon *models.Addon, key models.SettingsKey) (*Resolved, error) {
	switch key.Level() {
	case settings.ScopeSite:
		return r.ProjectSite(ctx, exec, addon, variantOrDefault(key.Variant), key.ProjectName, key.SiteID, key.UserName, "")
	case settings.ScopeProject:
		return r.Project(ctx, exec, addon, key.Variant, key.ProjectName, "")
	}
	return r.Studio(ctx, exec, addon, key.Variant, "")
}

// Inherited resolves the settings a key's own overrides are layered on
func (r *Resolver) Inherited(ctx context.Context, exec ports.Executor, addon *models.Addon, key models.SettingsKey) (*Resolved, error) {
	switch key.Level() {
	case settings.ScopeSite:
		return r.Project(ctx, exec, addon, variantOrDefault(key.Variant), key.ProjectName, "")
	case settings.ScopeProject:
		return r.Studio(ctx, exec, addon, key.Variant, "")
	}
	if !addon.HasSettings() {
		return nil, nil
	}
	return &Resolved{Value: addon.DefaultSettings()}, nil
}

func variantOrDefault(v string) string {
	if v == "" {
		return models.VariantProduction
	}
	return v
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// Override modification actions
const (
	ActionDelete = "delete"
	ActionPin    = "pin"
)

// SettingsService reads and writes addon settings at every level
type SettingsService struct {
	tx         ports.TxRunner
	store      ports.SettingsStore
	addons     ports.AddonRegistry
	bundles    ports.BundleStore
	projects   ports.ProjectDirectory
	resolver   *Resolver
	events     ports.EventDispatcher
	auditTrail bool
	log        *logrus.Entry
}

// NewSettingsService creates a SettingsService
func NewSettingsService(
	tx ports.TxRunner,
	store ports.SettingsStore,
	addons ports.AddonRegistry,
	bundles ports.BundleStore,
	projects ports.ProjectDirectory,
	resolver *Resolver,
	dispatcher ports.EventDispatcher,
	auditTrail bool,
) *SettingsService {
	return &SettingsService{
		tx:         tx,
		store:      store,
		addons:     addons,
		bundles:    bundles,
		projects:   projects,
		resolver:   resolver,
		events:     dispatcher,
		auditTrail: auditTrail,
		log:        logger.WithComponent("settings"),
	}
}

// Schema returns the settings schema of an addon version
func (s *SettingsService) Schema(addonName, version string) (*settings.Schema, error) {
	addon, err := s.addons.Addon(addonName, version)
	if err != nil {
		return nil, err
	}
	if !addon.HasSettings() {
		return nil, appErrors.NewNotFoundError("Settings", addonName+" "+version)
	}
	return addon.Schema, nil
}

func (s *SettingsService) settingsAddon(key models.SettingsKey) (*models.Addon, error) {
	if err := key.Validate(); err != nil {
		return nil, appErrors.NewBadRequestError("%s", err.Error())
	}
	addon, err := s.addons.Addon(key.AddonName, key.AddonVersion)
	if err != nil {
		return nil, err
	}
	if !addon.HasSettings() {
		return nil, appErrors.NewBadRequestError("addon %s %s has no settings", key.AddonName, key.AddonVersion)
	}
	return addon, nil
}

// checkRead limits site-level reads to the owner of the row
func checkRead(user auth.UserSession, key models.SettingsKey) error {
	if key.IsSite() && key.UserName != user.Name && !user.IsAdmin {
		return appErrors.NewPermissionError("read", "site settings of "+key.UserName)
	}
	return nil
}

// checkWrite enforces the per-level write rules
func checkWrite(user auth.UserSession, key models.SettingsKey) error {
	switch key.Level() {
	case settings.ScopeSite:
		if key.UserName != user.Name {
			return appErrors.NewPermissionError("write", "site settings of "+key.UserName)
		}
	case settings.ScopeProject:
		if !user.CanWriteProjectSettings(key.ProjectName) {
			return appErrors.NewPermissionError("write", "project settings of "+key.ProjectName)
		}
	default:
		if !user.IsManagerOrAdmin() {
			return appErrors.NewPermissionError("write", "studio settings")
		}
	}
	return nil
}

// GetSettings resolves settings at the level the key addresses
func (s *SettingsService) GetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey) (*Resolved, error) {
	if err := checkRead(user, key); err != nil {
		return nil, err
	}
	addon, err := s.settingsAddon(key)
	if err != nil {
		return nil, err
	}
	return s.resolver.ForKey(ctx, s.tx.Executor(), addon, key)
}

// GetOverrides lists the overridden paths visible at the key's level.
// Entries of a lower level replace those of the level above.
func (s *SettingsService) GetOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (map[string]settings.OverrideInfo, error) {
	if err := checkRead(user, key); err != nil {
		return nil, err
	}
	addon, err := s.settingsAddon(key)
	if err != nil {
		return nil, err
	}
	exec := s.tx.Executor()
	variant := variantOrDefault(key.Variant)

	resolved, err := s.resolver.ForKey(ctx, exec, addon, key)
	if err != nil {
		return nil, err
	}

	studio, err := s.resolver.StudioOverrides(ctx, exec, addon, variant, "")
	if err != nil {
		return nil, err
	}
	result := addon.Schema.ListOverrides(resolved.Value, studio, settings.ScopeStudio)

	if key.Level() == settings.ScopeStudio {
		return result, nil
	}
	project, err := s.resolver.ProjectOverrides(ctx, exec, addon, variant, key.ProjectName, "")
	if err != nil {
		return nil, err
	}
	for k, v := range addon.Schema.ListOverrides(resolved.Value, project, settings.ScopeProject) {
		result[k] = v
	}

	if key.Level() == settings.ScopeProject {
		return result, nil
	}
	site, err := s.resolver.SiteOverrides(ctx, exec, addon, key.ProjectName, key.SiteID, key.UserName, "")
	if err != nil {
		return nil, err
	}
	for k, v := range addon.Schema.ListOverrides(resolved.Value, site, settings.ScopeSite) {
		result[k] = v
	}
	return result, nil
}

// SetSettings validates a full or partial settings payload and stores
// the overrides it implies against the inherited settings. The payload
// may carry paths to pin or unpin under the reserved keys.
func (s *SettingsService) SetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey, payload settings.Document) error {
	if err := checkWrite(user, key); err != nil {
		return err
	}
	addon, err := s.settingsAddon(key)
	if err != nil {
		return err
	}

	payload = settings.CloneDocument(payload)
	pinned, err := popPaths(payload, constants.PayloadPinnedFields)
	if err != nil {
		return err
	}
	unpinned, err := popPaths(payload, constants.PayloadUnpinnedFields)
	if err != nil {
		return err
	}

	if _, err := addon.Schema.Parse(payload); err != nil {
		return appErrors.NewInvalidPayloadError("invalid settings payload", err)
	}

	var change *overrideChange
	err = s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		inherited, err := s.resolver.Inherited(ctx, exec, addon, key)
		if err != nil {
			return err
		}
		existing, err := s.store.Get(ctx, exec, key)
		if err != nil {
			return err
		}
		// a partial payload keeps the stored values it does not mention
		full := addon.Schema.Apply(inherited.Value, existing)
		full = addon.Schema.Apply(full, payload)

		overrides := addon.Schema.Extract(inherited.Value, full, settings.ExtractOptions{
			Existing: existing,
			Pinned:   pinned,
			Unpinned: unpinned,
			Level:    key.Level(),
		})
		change, err = writeOverrides(ctx, exec, s.store, key, overrides)
		return err
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, change, user, "")
	return nil
}

// DeleteOverrides removes every override stored for the key
func (s *SettingsService) DeleteOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) error {
	if err := checkWrite(user, key); err != nil {
		return err
	}
	if _, err := s.settingsAddon(key); err != nil {
		return err
	}
	var change *overrideChange
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		var err error
		change, err = writeOverrides(ctx, exec, s.store, key, nil)
		return err
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, change, user, "")
	return nil
}

// ModifyOverrides removes or pins the override at one path
func (s *SettingsService) ModifyOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, action string, path []string) error {
	if err := checkWrite(user, key); err != nil {
		return err
	}
	addon, err := s.settingsAddon(key)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return appErrors.NewBadRequestError("path is required")
	}
	if action != ActionDelete && action != ActionPin {
		return appErrors.NewBadRequestError("unsupported action %q", action)
	}

	var change *overrideChange
	err = s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		overrides, err := s.store.Get(ctx, exec, key)
		if err != nil {
			return err
		}
		if action == ActionDelete {
			settings.RemovePath(overrides, path)
		} else {
			resolved, err := s.resolver.ForKey(ctx, exec, addon, key)
			if err != nil {
				return err
			}
			if err := addon.Schema.PinPath(resolved.Value, overrides, path); err != nil {
				return appErrors.NewBadRequestError("%s", err.Error())
			}
		}
		change, err = writeOverrides(ctx, exec, s.store, key, overrides)
		return err
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, change, user, "("+action+" "+strings.Join(path, "/")+")")
	return nil
}

// GetRawOverrides returns the stored document without processing
func (s *SettingsService) GetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (settings.Document, error) {
	if !user.IsAdmin {
		return nil, appErrors.NewPermissionError("read", "raw overrides")
	}
	if err := key.Validate(); err != nil {
		return nil, appErrors.NewBadRequestError("%s", err.Error())
	}
	return s.store.Get(ctx, s.tx.Executor(), key)
}

// SetRawOverrides stores a document as-is, without validation
func (s *SettingsService) SetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, doc settings.Document) error {
	if !user.IsAdmin {
		return appErrors.NewPermissionError("write", "raw overrides")
	}
	if err := key.Validate(); err != nil {
		return appErrors.NewBadRequestError("%s", err.Error())
	}
	var change *overrideChange
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		var err error
		change, err = writeOverrides(ctx, exec, s.store, key, doc)
		return err
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, change, user, "(raw)")
	return nil
}

// AllSettingsRequest selects the bundle and level of AllSettings
type AllSettingsRequest struct {
	Variant     string `json:"variant" form:"variant"`
	ProjectName string `json:"projectName,omitempty" form:"project_name"`
	SiteID      string `json:"siteId,omitempty" form:"site_id"`
}

// AllSettings is the settings of every addon in a bundle
type AllSettings struct {
	Bundle        string                       `json:"bundleName"`
	ProjectBundle string                       `json:"projectBundleName,omitempty"`
	Addons        map[string]string            `json:"addons"`
	Settings      map[string]settings.Document `json:"settings"`
	Provenance    map[string]Provenance        `json:"provenance"`
}

// AllSettings resolves the settings of every addon in the bundle serving
// a variant. A frozen project uses the versions of its project bundle.
func (s *SettingsService) AllSettings(ctx context.Context, user auth.UserSession, req AllSettingsRequest) (*AllSettings, error) {
	variant := variantOrDefault(req.Variant)
	if req.SiteID != "" && req.ProjectName == "" {
		return nil, appErrors.NewBadRequestError("site settings require a project")
	}
	exec := s.tx.Executor()

	bundle, err := s.bundleForVariant(ctx, exec, variant)
	if err != nil {
		return nil, err
	}
	out := &AllSettings{
		Bundle:     bundle.Name,
		Addons:     bundle.EnabledAddons(),
		Settings:   make(map[string]settings.Document),
		Provenance: make(map[string]Provenance),
	}

	if req.ProjectName != "" {
		project, err := s.projects.Get(ctx, exec, req.ProjectName, false)
		if err != nil {
			return nil, err
		}
		if ref, ok := project.BundleFor(variant); ok {
			pb, err := s.bundles.Get(ctx, exec, ref, false)
			if err != nil {
				return nil, err
			}
			out.ProjectBundle = pb.Name
			for name, version := range pb.EnabledAddons() {
				out.Addons[name] = version
			}
		}
	}

	names := make([]string, 0, len(out.Addons))
	for name := range out.Addons {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		version := out.Addons[name]
		addon, err := s.addons.Addon(name, version)
		if appErrors.IsNotFound(err) {
			s.log.WithFields(logrus.Fields{"addon": name, "version": version}).Warn("addon in bundle is not installed")
			continue
		}
		if err != nil {
			return nil, err
		}

		var res *Resolved
		switch {
		case req.SiteID != "":
			res, err = s.resolver.ProjectSite(ctx, exec, addon, variant, req.ProjectName, req.SiteID, user.Name, "")
		case req.ProjectName != "":
			res, err = s.resolver.Project(ctx, exec, addon, variant, req.ProjectName, "")
		default:
			res, err = s.resolver.Studio(ctx, exec, addon, variant, "")
		}
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		out.Settings[name] = res.Value
		out.Provenance[name] = res.Provenance
	}
	return out, nil
}

func (s *SettingsService) bundleForVariant(ctx context.Context, exec ports.Executor, variant string) (*models.Bundle, error) {
	var (
		b   *models.Bundle
		err error
	)
	switch variant {
	case models.VariantProduction:
		b, err = s.bundles.Production(ctx, exec)
	case models.VariantStaging:
		b, err = s.bundles.Staging(ctx, exec)
	default:
		// any other variant names a dev bundle
		b, err = s.bundles.Get(ctx, exec, variant, false)
	}
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, appErrors.NewNotFoundError("Bundle", variant)
	}
	return b, nil
}

func (s *SettingsService) dispatch(ctx context.Context, change *overrideChange, user auth.UserSession, action string) {
	if change == nil || s.events == nil {
		return
	}
	s.events.Dispatch(ctx, changeEvent(change, user.Name, action, s.auditTrail))
}

// popPaths removes a reserved key holding a list of paths. A path is a
// list of names or a string separated by slashes.
func popPaths(payload settings.Document, key string) ([][]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, nil
	}
	delete(payload, key)
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, appErrors.NewBadRequestError("%s must be a list of paths", key)
	}
	paths := make([][]string, 0, len(items))
	for _, item := range items {
		switch p := item.(type) {
		case string:
			paths = append(paths, strings.Split(strings.Trim(p, "/"), "/"))
		case []any:
			path := make([]string, 0, len(p))
			for _, part := range p {
				path = append(path, fmt.Sprint(part))
			}
			paths = append(paths, path)
		case []string:
			paths = append(paths, p)
		default:
			return nil, appErrors.NewBadRequestError("%s must be a list of paths", key)
		}
	}
	return paths, nil
}

package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// FreezeRequest binds a project to its own addon versions for a variant
type FreezeRequest struct {
	Variant            string             `json:"variant" binding:"omitempty,oneof=production staging"`
	Addons             map[string]*string `json:"addons"`
	InstallerVersion   *string            `json:"installerVersion,omitempty"`
	DependencyPackages map[string]*string `json:"dependencyPackages,omitempty"`
}

// ProjectBundleService freezes and unfreezes project bundles
type ProjectBundleService struct {
	tx         ports.TxRunner
	bundles    ports.BundleStore
	store      ports.SettingsStore
	projects   ports.ProjectDirectory
	addons     ports.AddonRegistry
	resolver   *Resolver
	events     ports.EventDispatcher
	auditTrail bool
	log        *logrus.Entry
}

// NewProjectBundleService creates a ProjectBundleService
func NewProjectBundleService(
	tx ports.TxRunner,
	bundles ports.BundleStore,
	store ports.SettingsStore,
	projects ports.ProjectDirectory,
	addons ports.AddonRegistry,
	resolver *Resolver,
	dispatcher ports.EventDispatcher,
	auditTrail bool,
) *ProjectBundleService {
	return &ProjectBundleService{
		tx:         tx,
		bundles:    bundles,
		store:      store,
		projects:   projects,
		addons:     addons,
		resolver:   resolver,
		events:     dispatcher,
		auditTrail: auditTrail,
		log:        logger.WithComponent("project-bundles"),
	}
}

func checkProjectVariant(variant string) (string, error) {
	if variant == "" {
		return models.VariantProduction, nil
	}
	if !models.IsStandardVariant(variant) {
		return "", appErrors.NewBadRequestError("project bundles support only production and staging, got %q", variant)
	}
	return variant, nil
}

// Get returns the project's bundle references by variant
func (s *ProjectBundleService) Get(ctx context.Context, project string) (map[string]string, error) {
	p, err := s.projects.Get(ctx, s.tx.Executor(), project, false)
	if err != nil {
		return nil, err
	}
	return p.BundleRefs(), nil
}

// Freeze stores the project bundle and materializes the current studio
// and project settings of every explicitly versioned addon as project
// overrides, so later studio edits no longer reach the project.
func (s *ProjectBundleService) Freeze(ctx context.Context, user auth.UserSession, project string, req FreezeRequest) error {
	if !user.CanWriteProjectSettings(project) {
		return appErrors.NewPermissionError("freeze", "project "+project)
	}
	variant, err := checkProjectVariant(req.Variant)
	if err != nil {
		return err
	}
	bundleName := models.ProjectBundleName(project, variant)

	var changes []*overrideChange
	err = s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		p, err := s.projects.Get(ctx, exec, project, true)
		if err != nil {
			return err
		}

		createdAt := time.Now().UTC()
		if existing, err := s.bundles.Get(ctx, exec, bundleName, false); err == nil {
			createdAt = existing.CreatedAt
		} else if !appErrors.IsNotFound(err) {
			return err
		}

		addons := make(map[string]*string, len(req.Addons))
		for k, v := range req.Addons {
			addons[k] = v
		}
		b := &models.Bundle{
			Name:               bundleName,
			CreatedAt:          createdAt,
			Addons:             addons,
			InstallerVersion:   req.InstallerVersion,
			DependencyPackages: req.DependencyPackages,
			IsProject:          true,
		}
		if err := s.bundles.Save(ctx, exec, b); err != nil {
			return err
		}

		for _, addonName := range b.AddonNames() {
			version, _ := b.AddonVersion(addonName)
			change, err := s.freezeAddon(ctx, exec, addonName, version, project, variant)
			if err != nil {
				return err
			}
			if change != nil {
				changes = append(changes, change)
			}
		}

		p.SetBundle(variant, bundleName)
		return s.projects.SaveData(ctx, exec, p)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"project": project, "variant": variant}).Info("project bundle frozen")
	for _, c := range changes {
		s.dispatch(ctx, changeEvent(c, user.Name, "(project bundle frozen)", s.auditTrail))
	}
	return nil
}

func (s *ProjectBundleService) freezeAddon(ctx context.Context, exec ports.Executor, name, version, project, variant string) (*overrideChange, error) {
	addon, err := s.addons.Addon(name, version)
	if err != nil {
		return nil, err
	}
	if !addon.ProjectCanOverrideVersion {
		return nil, appErrors.NewBadRequestError("addon %s version %s does not allow project overrides", name, version)
	}
	resolved, err := s.resolver.Project(ctx, exec, addon, variant, project, "")
	if err != nil {
		return nil, err
	}
	doc := settings.Document{}
	if resolved != nil {
		doc = resolved.Value
	}
	return writeOverrides(ctx, exec, s.store, models.ProjectKey(name, version, variant, project), doc)
}

// Unfreeze drops the project bundle. Project overrides of the frozen
// addons are reduced to the values that still differ from the studio
// settings; when the studio bundle carries another version of an addon
// the remainder is rendered for that version.
func (s *ProjectBundleService) Unfreeze(ctx context.Context, user auth.UserSession, project, variant string) error {
	if !user.CanWriteProjectSettings(project) {
		return appErrors.NewPermissionError("unfreeze", "project "+project)
	}
	variant, err := checkProjectVariant(variant)
	if err != nil {
		return err
	}

	var changes []*overrideChange
	err = s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		p, err := s.projects.Get(ctx, exec, project, true)
		if err != nil {
			return err
		}
		bundleName, ok := p.ClearBundle(variant)
		if !ok {
			bundleName = models.ProjectBundleName(project, variant)
		}

		pb, err := s.bundles.Get(ctx, exec, bundleName, true)
		if err != nil && !appErrors.IsNotFound(err) {
			return err
		}

		if pb != nil {
			studio, err := s.studioBundle(ctx, exec, variant)
			if err != nil {
				return err
			}
			for _, addonName := range pb.AddonNames() {
				frozen, _ := pb.AddonVersion(addonName)
				target := frozen
				if studio != nil {
					if v, ok := studio.AddonVersion(addonName); ok {
						target = v
					}
				}
				cs, err := s.unfreezeAddon(ctx, exec, addonName, frozen, target, project, variant)
				if err != nil {
					return err
				}
				changes = append(changes, cs...)
			}
			if err := s.bundles.Delete(ctx, exec, bundleName); err != nil && !appErrors.IsNotFound(err) {
				return err
			}
		}

		return s.projects.SaveData(ctx, exec, p)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"project": project, "variant": variant}).Info("project bundle unfrozen")
	for _, c := range changes {
		s.dispatch(ctx, changeEvent(c, user.Name, "(project bundle unfrozen)", s.auditTrail))
	}
	return nil
}

func (s *ProjectBundleService) studioBundle(ctx context.Context, exec ports.Executor, variant string) (*models.Bundle, error) {
	if variant == models.VariantStaging {
		return s.bundles.Staging(ctx, exec)
	}
	return s.bundles.Production(ctx, exec)
}

func (s *ProjectBundleService) unfreezeAddon(ctx context.Context, exec ports.Executor, name, frozen, target, project, variant string) ([]*overrideChange, error) {
	fields := logrus.Fields{"addon": name, "version": frozen, "project": project}

	source, err := s.addons.Addon(name, frozen)
	if appErrors.IsNotFound(err) {
		s.log.WithFields(fields).Warn("frozen addon is not installed, keeping its overrides")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !source.HasSettings() {
		return nil, nil
	}

	frozenKey := models.ProjectKey(name, frozen, variant, project)
	overrides, err := s.store.Get(ctx, exec, frozenKey)
	if err != nil {
		return nil, err
	}
	stripped, err := s.stripStudio(ctx, exec, source, variant, overrides)
	if err != nil {
		return nil, err
	}

	var changes []*overrideChange
	change, err := writeOverrides(ctx, exec, s.store, frozenKey, stripped)
	if err != nil {
		return nil, err
	}
	if change != nil {
		changes = append(changes, change)
	}

	if target == frozen || len(stripped) == 0 {
		return changes, nil
	}

	dest, err := s.addons.Addon(name, target)
	if appErrors.IsNotFound(err) {
		s.log.WithFields(fields).WithField("target", target).Warn("studio addon version is not installed")
		return changes, nil
	}
	if err != nil {
		return nil, err
	}
	if !dest.HasSettings() {
		return changes, nil
	}
	converted, err := dest.ConvertOverrides(frozen, stripped)
	if err != nil {
		s.log.WithFields(fields).WithField("target", target).WithError(err).Warn("unable to convert frozen overrides")
		return changes, nil
	}
	// the target version may already carry project overrides of its own;
	// frozen values win where both set a path
	targetKey := models.ProjectKey(name, target, variant, project)
	existing, err := s.store.Get(ctx, exec, targetKey)
	if err != nil {
		return nil, err
	}
	converted, err = s.stripStudio(ctx, exec, dest, variant, settings.Merge(existing, converted))
	if err != nil {
		return nil, err
	}
	if len(converted) == 0 {
		return changes, nil
	}
	change, err = writeOverrides(ctx, exec, s.store, targetKey, converted)
	if err != nil {
		return nil, err
	}
	if change != nil {
		changes = append(changes, change)
	}
	return changes, nil
}

// stripStudio drops the overrides that equal the current studio settings
func (s *ProjectBundleService) stripStudio(ctx context.Context, exec ports.Executor, addon *models.Addon, variant string, overrides settings.Document) (settings.Document, error) {
	if len(overrides) == 0 {
		return settings.Document{}, nil
	}
	studio, err := s.resolver.Studio(ctx, exec, addon, variant, "")
	if err != nil {
		return nil, err
	}
	return addon.Schema.StripInherited(overrides, studio.Value, settings.ScopeProject), nil
}

func (s *ProjectBundleService) dispatch(ctx context.Context, ev events.Event) {
	if s.events != nil {
		s.events.Dispatch(ctx, ev)
	}
}

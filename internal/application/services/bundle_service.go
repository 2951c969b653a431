package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// BundleService manages bundles and their deployment flags
type BundleService struct {
	tx       ports.TxRunner
	bundles  ports.BundleStore
	store    ports.SettingsStore
	projects ports.ProjectDirectory
	addons   ports.AddonRegistry
	events   ports.EventDispatcher
	log      *logrus.Entry
}

// NewBundleService creates a BundleService
func NewBundleService(
	tx ports.TxRunner,
	bundles ports.BundleStore,
	store ports.SettingsStore,
	projects ports.ProjectDirectory,
	addons ports.AddonRegistry,
	dispatcher ports.EventDispatcher,
) *BundleService {
	return &BundleService{
		tx:       tx,
		bundles:  bundles,
		store:    store,
		projects: projects,
		addons:   addons,
		events:   dispatcher,
		log:      logger.WithComponent("bundles"),
	}
}

func requireAdmin(user auth.UserSession, action string) error {
	if !user.IsAdmin {
		return appErrors.NewPermissionError(action, "bundles")
	}
	return nil
}

// List returns bundles with the active ones resolved
func (s *BundleService) List(ctx context.Context, includeArchived bool) (*models.BundleList, error) {
	bundles, err := s.bundles.List(ctx, s.tx.Executor(), includeArchived)
	if err != nil {
		return nil, err
	}
	out := &models.BundleList{Bundles: bundles, DevBundles: []string{}}
	if out.Bundles == nil {
		out.Bundles = []*models.Bundle{}
	}
	for _, b := range bundles {
		if b.IsProduction {
			out.ProductionBundle = models.StrPtr(b.Name)
		}
		if b.IsStaging {
			out.StagingBundle = models.StrPtr(b.Name)
		}
		if b.IsDev {
			out.DevBundles = append(out.DevBundles, b.Name)
		}
	}
	return out, nil
}

// Get returns one bundle
func (s *BundleService) Get(ctx context.Context, name string) (*models.Bundle, error) {
	return s.bundles.Get(ctx, s.tx.Executor(), name, false)
}

// Create stores a new bundle. System addons missing from it are added
// at their latest version.
func (s *BundleService) Create(ctx context.Context, user auth.UserSession, b *models.Bundle) error {
	if err := requireAdmin(user, "create"); err != nil {
		return err
	}
	if err := models.ValidateBundleName(b.Name); err != nil {
		return appErrors.NewBadRequestError("%s", err.Error())
	}
	if b.Addons == nil {
		b.Addons = make(map[string]*string)
	}

	for _, def := range s.addons.Definitions() {
		if !def.IsSystem {
			continue
		}
		if _, ok := b.Addons[def.Name]; ok {
			continue
		}
		if latest := def.Latest(); latest != nil {
			s.log.WithFields(logrus.Fields{"addon": def.Name, "bundle": b.Name}).Debug("adding system addon to bundle")
			b.Addons[def.Name] = models.StrPtr(latest.Version)
		}
	}

	if b.IsProject {
		if b.IsProduction || b.IsStaging {
			return appErrors.NewBadRequestError("project bundles cannot be set as production or staging")
		}
		if b.IsDev {
			return appErrors.NewBadRequestError("project bundles cannot be set as development")
		}
		for name := range b.Addons {
			def, ok := s.addons.Definition(name)
			if !ok {
				return appErrors.NewBadRequestError("addon %s does not exist", name)
			}
			if !def.ProjectCanOverrideVersion {
				delete(b.Addons, name)
			}
		}
	}
	if !b.IsDev {
		b.ActiveUser = nil
		b.AddonDevelopment = nil
	}
	// archived bundles are never created
	b.IsArchived = false
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		if err := s.clearConflicts(ctx, exec, b); err != nil {
			return err
		}
		return s.bundles.Insert(ctx, exec, b)
	})
	if err != nil {
		return err
	}

	stat := ""
	switch {
	case b.IsProduction:
		stat = " production"
	case b.IsStaging:
		stat = " staging"
	case b.IsDev:
		stat = " development"
	}
	s.dispatch(ctx, events.Event{
		Topic:       events.BundleCreated,
		Description: fmt.Sprintf("New%s bundle '%s' created", stat, b.Name),
		Summary: map[string]any{
			"name":         b.Name,
			"isProduction": b.IsProduction,
			"isStaging":    b.IsStaging,
			"isDev":        b.IsDev,
		},
		Payload: bundlePayload(b),
		User:    user.Name,
	})
	return nil
}

// clearConflicts releases the exclusive flags b is about to take
func (s *BundleService) clearConflicts(ctx context.Context, exec ports.Executor, b *models.Bundle) error {
	if b.IsProduction {
		if err := s.bundles.ClearProduction(ctx, exec); err != nil {
			return err
		}
	}
	if b.IsStaging {
		if err := s.bundles.ClearStaging(ctx, exec); err != nil {
			return err
		}
	}
	if b.IsDev && b.ActiveUser != nil && *b.ActiveUser != "" {
		if err := s.bundles.ClearActiveUser(ctx, exec, *b.ActiveUser); err != nil {
			return err
		}
	}
	return nil
}

// Update applies a partial update to a bundle
func (s *BundleService) Update(ctx context.Context, user auth.UserSession, name string, patch *models.BundlePatch) error {
	if err := requireAdmin(user, "update"); err != nil {
		return err
	}

	var updated *models.Bundle
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		b, err := s.bundles.Get(ctx, exec, name, true)
		if err != nil {
			return err
		}

		// flags are checked as they will be after the patch
		archived := boolOr(patch.IsArchived, b.IsArchived)
		active := boolOr(patch.IsProduction, b.IsProduction) || boolOr(patch.IsStaging, b.IsStaging)
		if archived && active {
			if !b.IsArchived {
				return appErrors.NewBadRequestError("cannot archive bundle that is production or staging")
			}
			return appErrors.NewBadRequestError("archived bundles cannot be production or staging")
		}
		if b.IsProject {
			if isTrue(patch.IsProduction) || isTrue(patch.IsStaging) {
				return appErrors.NewBadRequestError("project bundles cannot be production or staging")
			}
			if isTrue(patch.IsDev) {
				return appErrors.NewBadRequestError("project bundles cannot be set as development")
			}
		}

		if patch.IsDev != nil {
			b.IsDev = *patch.IsDev
		}
		if b.IsDev {
			if patch.ActiveUser != nil {
				if *patch.ActiveUser == "" {
					b.ActiveUser = nil
				} else {
					if err := s.bundles.ClearActiveUser(ctx, exec, *patch.ActiveUser); err != nil {
						return err
					}
					b.ActiveUser = models.StrPtr(*patch.ActiveUser)
				}
			}
			if patch.AddonDevelopment != nil {
				b.AddonDevelopment = patch.AddonDevelopment
			}
			if patch.InstallerVersion != nil {
				b.InstallerVersion = patch.InstallerVersion
			}
		} else {
			b.ActiveUser = nil
		}

		if patch.DependencyPackages != nil {
			b.DependencyPackages = patch.DependencyPackages
		}

		if patch.Addons != nil {
			addons := make(map[string]*string, len(b.Addons))
			for k, v := range b.Addons {
				addons[k] = v
			}
			for addonName, version := range patch.Addons {
				if _, ok := s.addons.Definition(addonName); !ok {
					s.log.WithField("addon", addonName).Warn("addon does not exist, ignoring")
					continue
				}
				if version == nil {
					delete(addons, addonName)
					continue
				}
				addons[addonName] = version
			}
			b.Addons = addons
		}

		if patch.IsArchived != nil {
			b.IsArchived = *patch.IsArchived
		}
		if patch.IsProduction != nil {
			if *patch.IsProduction {
				if err := s.bundles.ClearProduction(ctx, exec); err != nil {
					return err
				}
			}
			b.IsProduction = *patch.IsProduction
		}
		if patch.IsStaging != nil {
			if *patch.IsStaging {
				if err := s.bundles.ClearStaging(ctx, exec); err != nil {
					return err
				}
			}
			b.IsStaging = *patch.IsStaging
		}
		if !b.IsDev {
			b.AddonDevelopment = nil
		}

		updated = b
		return s.bundles.Save(ctx, exec, b)
	})
	if err != nil {
		return err
	}

	changed := patchedFields(patch)
	s.dispatch(ctx, events.Event{
		Topic:       events.BundleUpdated,
		Description: fmt.Sprintf("Bundle %s updated: %s", name, strings.Join(changed, ", ")),
		Summary: map[string]any{
			"name":          name,
			"changedFields": changed,
			"isProduction":  updated.IsProduction,
			"isStaging":     updated.IsStaging,
			"isArchived":    updated.IsArchived,
			"isDev":         updated.IsDev,
			"isProject":     updated.IsProject,
		},
		Payload: bundlePayload(updated),
		User:    user.Name,
	})
	return nil
}

// Delete removes a bundle
func (s *BundleService) Delete(ctx context.Context, user auth.UserSession, name string) error {
	if err := requireAdmin(user, "delete"); err != nil {
		return err
	}
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		return s.bundles.Delete(ctx, exec, name)
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, events.Event{
		Topic:       events.BundleDeleted,
		Description: fmt.Sprintf("Bundle %s deleted", name),
		Summary:     map[string]any{"name": name},
		User:        user.Name,
	})
	return nil
}

// Promote makes a staging bundle the production bundle and copies the
// staging settings of its addons to production, for the studio and for
// every project. A production row without a staging counterpart is
// deleted.
func (s *BundleService) Promote(ctx context.Context, user auth.UserSession, name string) error {
	var promoted *models.Bundle
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		b, err := s.bundles.Get(ctx, exec, name, true)
		if err != nil {
			return err
		}
		if b.IsArchived {
			return appErrors.NewBadRequestError("archived bundles cannot be modified")
		}
		if !user.IsAdmin {
			return appErrors.NewPermissionError("promote", "bundles")
		}
		if b.IsProject {
			return appErrors.NewBadRequestError("project bundles cannot be promoted")
		}
		if !b.IsStaging {
			return appErrors.NewBadRequestError("only staging bundles can be promoted")
		}
		if b.IsDev {
			return appErrors.NewBadRequestError("dev bundles cannot be promoted")
		}

		if err := s.bundles.ClearProduction(ctx, exec); err != nil {
			return err
		}
		b.IsProduction = true
		if err := s.bundles.Save(ctx, exec, b); err != nil {
			return err
		}

		projects, err := s.projects.ListNames(ctx, exec)
		if err != nil {
			return err
		}

		for _, addonName := range b.AddonNames() {
			version, _ := b.AddonVersion(addonName)
			if err := s.copyToProduction(ctx, exec, models.StudioKey(addonName, version, models.VariantStaging)); err != nil {
				return err
			}
			for _, project := range projects {
				if err := s.copyToProduction(ctx, exec, models.ProjectKey(addonName, version, models.VariantStaging, project)); err != nil {
					return err
				}
			}
		}
		promoted = b
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithField("bundle", name).Info("bundle promoted to production")
	s.dispatch(ctx, events.Event{
		Topic:       events.BundleStatusChanged,
		Description: fmt.Sprintf("Bundle %s promoted to production", name),
		Summary: map[string]any{
			"name":   name,
			"status": models.VariantProduction,
		},
		Payload: bundlePayload(promoted),
		User:    user.Name,
	})
	return nil
}

func (s *BundleService) copyToProduction(ctx context.Context, exec ports.Executor, staging models.SettingsKey) error {
	production := staging
	production.Variant = models.VariantProduction

	exists, err := s.store.Exists(ctx, exec, staging)
	if err != nil {
		return err
	}
	if !exists {
		return s.store.Delete(ctx, exec, production)
	}
	doc, err := s.store.Get(ctx, exec, staging)
	if err != nil {
		return err
	}
	return s.store.Upsert(ctx, exec, production, doc)
}

func (s *BundleService) dispatch(ctx context.Context, ev events.Event) {
	if s.events != nil {
		s.events.Dispatch(ctx, ev)
	}
}

func bundlePayload(b *models.Bundle) map[string]any {
	if b == nil {
		return nil
	}
	payload := map[string]any{
		"addons":              b.Addons,
		"dependency_packages": b.DependencyPackages,
		"installer_version":   b.InstallerVersion,
		"is_project":          b.IsProject,
	}
	if b.IsDev {
		payload["addon_development"] = b.AddonDevelopment
	}
	return payload
}

func patchedFields(p *models.BundlePatch) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.InstallerVersion != nil, "installerVersion")
	add(p.Addons != nil, "addons")
	add(p.DependencyPackages != nil, "dependencyPackages")
	add(p.AddonDevelopment != nil, "addonDevelopment")
	add(p.IsProduction != nil, "isProduction")
	add(p.IsStaging != nil, "isStaging")
	add(p.IsArchived != nil, "isArchived")
	add(p.IsDev != nil, "isDev")
	add(p.ActiveUser != nil, "activeUser")
	sort.Strings(out)
	return out
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// boolOr returns *p, or current when the patch leaves the flag alone
func boolOr(p *bool, current bool) bool {
	if p == nil {
		return current
	}
	return *p
}

package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// MigrateRequest copies settings between the addons of two bundles
type MigrateRequest struct {
	SourceBundle  string `json:"sourceBundle" binding:"required"`
	TargetBundle  string `json:"targetBundle" binding:"required"`
	SourceVariant string `json:"sourceVariant" binding:"required"`
	TargetVariant string `json:"targetVariant" binding:"required"`
	WithProjects  *bool  `json:"withProjects,omitempty"`
}

// IncludeProjects defaults to true
func (r MigrateRequest) IncludeProjects() bool {
	return r.WithProjects == nil || *r.WithProjects
}

// MigrationService renders the overrides of one bundle's addon versions
// for another bundle
type MigrationService struct {
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

// NewMigrationService creates a MigrationService
func NewMigrationService(
	tx ports.TxRunner,
	bundles ports.BundleStore,
	store ports.SettingsStore,
	projects ports.ProjectDirectory,
	addons ports.AddonRegistry,
	resolver *Resolver,
	dispatcher ports.EventDispatcher,
	auditTrail bool,
) *MigrationService {
	return &MigrationService{
		tx:         tx,
		bundles:    bundles,
		store:      store,
		projects:   projects,
		addons:     addons,
		resolver:   resolver,
		events:     dispatcher,
		auditTrail: auditTrail,
		log:        logger.WithComponent("migration"),
	}
}

// Migrate renders every addon present in both bundles from the source
// version to the target version: studio overrides, then per project,
// then per site and user. Rows are upserted when they change and
// deleted when the rendered document is empty. Addons that are not
// installed are skipped.
func (s *MigrationService) Migrate(ctx context.Context, user auth.UserSession, req MigrateRequest) error {
	if !user.IsAdmin {
		return appErrors.NewPermissionError("migrate", "bundle settings")
	}
	if !models.IsStandardVariant(req.SourceVariant) && req.SourceBundle != req.SourceVariant {
		return appErrors.NewBadRequestError("when source variant is not production or staging, source bundle must be the same as source variant")
	}
	if !models.IsStandardVariant(req.TargetVariant) && req.TargetBundle != req.TargetVariant {
		return appErrors.NewBadRequestError("when target variant is not production or staging, target bundle must be the same as target variant")
	}

	var changes []*overrideChange
	err := s.tx.WithTransaction(ctx, func(exec ports.Executor) error {
		changes = nil

		source, err := s.bundleAddons(ctx, exec, req.SourceBundle, "source")
		if err != nil {
			return err
		}
		target, err := s.bundleAddons(ctx, exec, req.TargetBundle, "target")
		if err != nil {
			return err
		}

		var projects []string
		if req.IncludeProjects() {
			if projects, err = s.projects.ListNames(ctx, exec); err != nil {
				return err
			}
		}

		for _, name := range intersect(source, target) {
			src, err := s.installed(name, source[name], "source")
			if err != nil {
				return err
			}
			dst, err := s.installed(name, target[name], "target")
			if err != nil {
				return err
			}
			if src == nil || dst == nil {
				continue
			}

			s.log.WithFields(logrus.Fields{
				"addon": name,
				"from":  src.Version + " " + req.SourceVariant,
				"to":    dst.Version + " " + req.TargetVariant,
			}).Debug("migrating addon settings")

			cs, err := s.migrateAddon(ctx, exec, src, dst, req.SourceVariant, req.TargetVariant, projects)
			if err != nil {
				return err
			}
			changes = append(changes, cs...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, c := range changes {
		if s.events != nil {
			s.events.Dispatch(ctx, changeEvent(c, user.Name, "during migration", s.auditTrail))
		}
	}
	return nil
}

func (s *MigrationService) bundleAddons(ctx context.Context, exec ports.Executor, name, role string) (map[string]string, error) {
	b, err := s.bundles.Get(ctx, exec, name, false)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.NewNotFoundError("Bundle", role+" bundle "+name)
	}
	if err != nil {
		return nil, err
	}
	addons := b.EnabledAddons()
	if len(addons) == 0 {
		return nil, appErrors.NewNotFoundError("Bundle addons", role+" bundle "+name)
	}
	return addons, nil
}

// installed returns nil when the addon version is not installed
func (s *MigrationService) installed(name, version, role string) (*models.Addon, error) {
	addon, err := s.addons.Addon(name, version)
	if appErrors.IsNotFound(err) {
		s.log.WithFields(logrus.Fields{"addon": name, "version": version}).Warnf("%s addon is not installed", role)
		return nil, nil
	}
	return addon, err
}

func (s *MigrationService) migrateAddon(ctx context.Context, exec ports.Executor, src, dst *models.Addon, srcVariant, dstVariant string, projects []string) ([]*overrideChange, error) {
	var changes []*overrideChange
	record := func(c *overrideChange) {
		if c != nil {
			changes = append(changes, c)
		}
	}

	studio, err := s.resolver.StudioOverrides(ctx, exec, src, srcVariant, dst.Version)
	if err != nil {
		return nil, err
	}
	c, err := writeOverrides(ctx, exec, s.store, models.StudioKey(dst.Name, dst.Version, dstVariant), studio)
	if err != nil {
		return nil, err
	}
	record(c)

	for _, project := range projects {
		overrides, err := s.resolver.ProjectOverrides(ctx, exec, src, srcVariant, project, dst.Version)
		if err != nil {
			return nil, err
		}
		c, err := writeOverrides(ctx, exec, s.store, models.ProjectKey(dst.Name, dst.Version, dstVariant, project), overrides)
		if err != nil {
			return nil, err
		}
		record(c)

		sites, err := s.store.ListSites(ctx, exec, src.Name, src.Version, project)
		if err != nil {
			return nil, err
		}
		for _, site := range sites {
			overrides, err := s.resolver.SiteOverrides(ctx, exec, src, project, site.SiteID, site.UserName, dst.Version)
			if err != nil {
				return nil, err
			}
			c, err := writeOverrides(ctx, exec, s.store, models.SiteKey(dst.Name, dst.Version, project, site.SiteID, site.UserName), overrides)
			if err != nil {
				return nil, err
			}
			record(c)
		}
	}
	return changes, nil
}

func intersect(a, b map[string]string) []string {
	var out []string
	for name := range a {
		if _, ok := b[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

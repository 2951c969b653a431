package services

import (
	"context"

	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/internal/infrastructure/database"
	"github.com/ynput/ayon-backend-sub000/internal/infrastructure/persistence"
)

// Options tune the services built by NewServiceManager
type Options struct {
	// AuditTrail adds original and new values to settings.changed events
	AuditTrail   bool
	TxMaxRetries int
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager *persistence.TransactionManager
	EventBus  *EventBus
	Events    *EventStream
	Addons    ports.AddonRegistry

	Resolver       *Resolver
	Settings       *SettingsService
	Bundles        *BundleService
	ProjectBundles *ProjectBundleService
	Migration      *MigrationService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection, addons ports.AddonRegistry, opts Options) *ServiceManager {
	sm := &ServiceManager{
		db:     db,
		Addons: addons,
	}

	sm.TxManager = persistence.NewTransactionManager(db.DB(), opts.TxMaxRetries)
	sm.EventBus = NewEventBus()
	sm.Events = NewEventStream(persistence.NewEventRepository(), sm.TxManager.Executor(), sm.EventBus)

	settingsRepo := persistence.NewSettingsRepository()
	bundleRepo := persistence.NewBundleRepository()
	projectRepo := persistence.NewProjectRepository()

	sm.Resolver = NewResolver(addons, settingsRepo)
	sm.Settings = NewSettingsService(sm.TxManager, settingsRepo, addons, bundleRepo, projectRepo, sm.Resolver, sm.Events, opts.AuditTrail)
	sm.Bundles = NewBundleService(sm.TxManager, bundleRepo, settingsRepo, projectRepo, addons, sm.Events)
	sm.ProjectBundles = NewProjectBundleService(sm.TxManager, bundleRepo, settingsRepo, projectRepo, addons, sm.Resolver, sm.Events, opts.AuditTrail)
	sm.Migration = NewMigrationService(sm.TxManager, bundleRepo, settingsRepo, projectRepo, addons, sm.Resolver, sm.Events, opts.AuditTrail)

	return sm
}

// EnsureSchema creates the tables the services use
func (sm *ServiceManager) EnsureSchema(ctx context.Context) error {
	return persistence.EnsureSchema(ctx, sm.TxManager.Executor())
}

// Shutdown waits for pending event handlers
func (sm *ServiceManager) Shutdown() {
	sm.EventBus.Wait()
}

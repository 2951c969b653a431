package bootstrap

import (
	"context"
	"fmt"

	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/config"
	"github.com/ynput/ayon-backend-sub000/internal/infrastructure/addonlib"
	"github.com/ynput/ayon-backend-sub000/internal/infrastructure/database"
	"github.com/ynput/ayon-backend-sub000/pkg/expression"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// App is a connected and wired process, shared by the server and the CLI
type App struct {
	Config   *config.Config
	DB       *database.Connection
	Library  *addonlib.Library
	Services *services.ServiceManager
}

// LoadAddons registers every manifest found in dir into a new library
func LoadAddons(dir string) (*addonlib.Library, int, error) {
	lib := addonlib.NewLibrary()
	n, err := addonlib.NewLoader(lib, expression.NewEngine()).LoadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load addons: %w", err)
	}
	return lib, n, nil
}

// Start initializes logging, connects to the database, loads the addon
// library and creates the schema.
func Start(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logger.WithComponent("bootstrap")

	lib, n, err := LoadAddons(cfg.AddonsDir)
	if err != nil {
		return nil, err
	}
	log.Infof("📦 %d addon versions loaded from %s", n, cfg.AddonsDir)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info("✅ Database connection established")

	sm := services.NewServiceManager(db, lib, services.Options{
		AuditTrail:   cfg.AuditTrail,
		TxMaxRetries: cfg.TxMaxRetries,
	})
	if err := sm.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Info("🔧 Service manager initialized")

	return &App{Config: cfg, DB: db, Library: lib, Services: sm}, nil
}

// Close waits for event handlers and closes the database
func (a *App) Close() error {
	a.Services.Shutdown()
	return a.DB.Close()
}

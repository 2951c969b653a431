package ports

import (
	"context"
	"database/sql"

	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// Executor allows repositories to run against either *sql.DB or *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner runs a function inside one transaction. The transaction is
// rolled back when fn returns an error and committed otherwise.
type TxRunner interface {
	// Executor returns a non-transactional executor for reads
	Executor() Executor
	WithTransaction(ctx context.Context, fn func(exec Executor) error) error
}

// SettingsStore persists override documents.
// Get returns an empty document when no row exists.
type SettingsStore interface {
	Get(ctx context.Context, exec Executor, key models.SettingsKey) (settings.Document, error)
	Exists(ctx context.Context, exec Executor, key models.SettingsKey) (bool, error)
	Upsert(ctx context.Context, exec Executor, key models.SettingsKey, doc settings.Document) error
	Delete(ctx context.Context, exec Executor, key models.SettingsKey) error
	// ListSites returns the (site, user) pairs holding project-site overrides
	ListSites(ctx context.Context, exec Executor, addon, version, project string) ([]models.SiteRef, error)
}

// BundleStore persists bundles
type BundleStore interface {
	Get(ctx context.Context, exec Executor, name string, forUpdate bool) (*models.Bundle, error)
	List(ctx context.Context, exec Executor, includeArchived bool) ([]*models.Bundle, error)
	Insert(ctx context.Context, exec Executor, b *models.Bundle) error
	// Save inserts or replaces the bundle
	Save(ctx context.Context, exec Executor, b *models.Bundle) error
	Delete(ctx context.Context, exec Executor, name string) error
	// Production / Staging return nil when no bundle has the flag
	Production(ctx context.Context, exec Executor) (*models.Bundle, error)
	Staging(ctx context.Context, exec Executor) (*models.Bundle, error)
	ClearProduction(ctx context.Context, exec Executor) error
	ClearStaging(ctx context.Context, exec Executor) error
	// ClearActiveUser clears the dev bundle assignment of a user
	ClearActiveUser(ctx context.Context, exec Executor, user string) error
}

// ProjectDirectory exposes the project entities this service touches
type ProjectDirectory interface {
	ListNames(ctx context.Context, exec Executor) ([]string, error)
	Get(ctx context.Context, exec Executor, name string, forUpdate bool) (*models.Project, error)
	SaveData(ctx context.Context, exec Executor, p *models.Project) error
}

// EventStore appends to and reads the event log
type EventStore interface {
	Insert(ctx context.Context, exec Executor, ev *events.Event) error
	Recent(ctx context.Context, exec Executor, topic string, limit int) ([]events.Event, error)
}

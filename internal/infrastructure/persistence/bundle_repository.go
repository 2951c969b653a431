package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
)

// bundleData is the JSON payload of a bundle row. Flags live in their
// own columns so they can be queried and cleared in bulk.
type bundleData struct {
	Addons             map[string]*string                     `json:"addons"`
	InstallerVersion   *string                                `json:"installer_version,omitempty"`
	DependencyPackages map[string]*string                     `json:"dependency_packages,omitempty"`
	AddonDevelopment   map[string]models.AddonDevelopmentItem `json:"addon_development,omitempty"`
	IsProject          bool                                   `json:"is_project,omitempty"`
}

const bundleColumns = "name, data, is_production, is_staging, is_dev, is_project, is_archived, active_user, created_at"

// BundleRepository persists bundles
type BundleRepository struct{}

var _ ports.BundleStore = (*BundleRepository)(nil)

// NewBundleRepository creates a new BundleRepository
func NewBundleRepository() *BundleRepository {
	return &BundleRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBundle(row rowScanner) (*models.Bundle, error) {
	var (
		b          models.Bundle
		raw        []byte
		activeUser sql.NullString
		createdAt  time.Time
	)
	if err := row.Scan(&b.Name, &raw, &b.IsProduction, &b.IsStaging, &b.IsDev, &b.IsProject, &b.IsArchived, &activeUser, &createdAt); err != nil {
		return nil, err
	}
	var data bundleData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode bundle %s: %w", b.Name, err)
		}
	}
	b.Addons = data.Addons
	if b.Addons == nil {
		b.Addons = map[string]*string{}
	}
	b.InstallerVersion = data.InstallerVersion
	b.DependencyPackages = data.DependencyPackages
	b.AddonDevelopment = data.AddonDevelopment
	b.IsProject = b.IsProject || data.IsProject
	if activeUser.Valid {
		b.ActiveUser = &activeUser.String
	}
	b.CreatedAt = createdAt
	return &b, nil
}

func bundleArgs(b *models.Bundle) ([]interface{}, error) {
	data, err := json.Marshal(bundleData{
		Addons:             b.Addons,
		InstallerVersion:   b.InstallerVersion,
		DependencyPackages: b.DependencyPackages,
		AddonDevelopment:   b.AddonDevelopment,
		IsProject:          b.IsProject,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	var activeUser sql.NullString
	if b.ActiveUser != nil && *b.ActiveUser != "" {
		activeUser = sql.NullString{String: *b.ActiveUser, Valid: true}
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return []interface{}{b.Name, data, b.IsProduction, b.IsStaging, b.IsDev, b.IsProject, b.IsArchived, activeUser, createdAt}, nil
}

// Get loads a bundle, optionally locking the row
func (r *BundleRepository) Get(ctx context.Context, exec Executor, name string, forUpdate bool) (*models.Bundle, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", bundleColumns, constants.TableBundles, constants.ColName)
	if forUpdate {
		query += " FOR UPDATE"
	}
	b, err := scanBundle(exec.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFoundError("Bundle", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle %s: %w", name, err)
	}
	return b, nil
}

// List returns bundles, newest first
func (r *BundleRepository) List(ctx context.Context, exec Executor, includeArchived bool) ([]*models.Bundle, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", bundleColumns, constants.TableBundles)
	if !includeArchived {
		query += " WHERE is_archived = FALSE"
	}
	query += " ORDER BY created_at DESC, name ASC"
	return r.queryBundles(ctx, exec, query)
}

func (r *BundleRepository) queryBundles(ctx context.Context, exec Executor, query string, args ...interface{}) ([]*models.Bundle, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundles: %w", err)
	}
	defer rows.Close()

	var bundles []*models.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}

// Insert creates a bundle, returning a ConflictError if the name is taken
func (r *BundleRepository) Insert(ctx context.Context, exec Executor, b *models.Bundle) error {
	args, err := bundleArgs(b)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", constants.TableBundles, bundleColumns)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return appErrors.NewConflictError("Bundle", "name", b.Name)
		}
		return fmt.Errorf("failed to insert bundle %s: %w", b.Name, err)
	}
	return nil
}

// Save inserts or replaces a bundle. created_at is kept on update.
func (r *BundleRepository) Save(ctx context.Context, exec Executor, b *models.Bundle) error {
	args, err := bundleArgs(b)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data), is_production = VALUES(is_production),
		is_staging = VALUES(is_staging), is_dev = VALUES(is_dev), is_project = VALUES(is_project),
		is_archived = VALUES(is_archived), active_user = VALUES(active_user)`, constants.TableBundles, bundleColumns)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save bundle %s: %w", b.Name, err)
	}
	return nil
}

// Delete removes a bundle
func (r *BundleRepository) Delete(ctx context.Context, exec Executor, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableBundles, constants.ColName)
	res, err := exec.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to delete bundle %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewNotFoundError("Bundle", name)
	}
	return nil
}

// Production returns the production bundle or nil
func (r *BundleRepository) Production(ctx context.Context, exec Executor) (*models.Bundle, error) {
	return r.flagged(ctx, exec, "is_production")
}

// Staging returns the staging bundle or nil
func (r *BundleRepository) Staging(ctx context.Context, exec Executor) (*models.Bundle, error) {
	return r.flagged(ctx, exec, "is_staging")
}

func (r *BundleRepository) flagged(ctx context.Context, exec Executor, column string) (*models.Bundle, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = TRUE LIMIT 1", bundleColumns, constants.TableBundles, column)
	b, err := scanBundle(exec.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s bundle: %w", column, err)
	}
	return b, nil
}

// ClearProduction unsets the production flag on every bundle
func (r *BundleRepository) ClearProduction(ctx context.Context, exec Executor) error {
	return r.clearFlag(ctx, exec, "is_production")
}

// ClearStaging unsets the staging flag on every bundle
func (r *BundleRepository) ClearStaging(ctx context.Context, exec Executor) error {
	return r.clearFlag(ctx, exec, "is_staging")
}

func (r *BundleRepository) clearFlag(ctx context.Context, exec Executor, column string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = FALSE WHERE %s = TRUE", constants.TableBundles, column, column)
	if _, err := exec.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear %s: %w", column, err)
	}
	return nil
}

// ClearActiveUser detaches a user from the dev bundle they were using
func (r *BundleRepository) ClearActiveUser(ctx context.Context, exec Executor, user string) error {
	query := fmt.Sprintf("UPDATE %s SET active_user = NULL WHERE active_user = ?", constants.TableBundles)
	if _, err := exec.ExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to clear active user %s: %w", user, err)
	}
	return nil
}

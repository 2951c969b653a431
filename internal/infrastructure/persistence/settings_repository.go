package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// SettingsRepository stores override documents in three tables, one per
// level: studio, project and project-site.
type SettingsRepository struct{}

var _ ports.SettingsStore = (*SettingsRepository)(nil)

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

// keyColumns returns the table and the (column, value) pairs addressing key
func keyColumns(key models.SettingsKey) (string, []string, []interface{}) {
	switch key.Level() {
	case settings.ScopeSite:
		return constants.TableProjectSiteSettings,
			[]string{constants.ColAddonName, constants.ColAddonVersion, constants.ColProjectName, constants.ColSiteID, constants.ColUserName},
			[]interface{}{key.AddonName, key.AddonVersion, key.ProjectName, key.SiteID, key.UserName}
	case settings.ScopeProject:
		return constants.TableProjectSettings,
			[]string{constants.ColAddonName, constants.ColAddonVersion, constants.ColVariant, constants.ColProjectName},
			[]interface{}{key.AddonName, key.AddonVersion, key.Variant, key.ProjectName}
	}
	return constants.TableSettings,
		[]string{constants.ColAddonName, constants.ColAddonVersion, constants.ColVariant},
		[]interface{}{key.AddonName, key.AddonVersion, key.Variant}
}

func whereClause(cols []string) string {
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = c + " = ?"
	}
	return strings.Join(conds, " AND ")
}

// Get returns the stored overrides or an empty document
func (r *SettingsRepository) Get(ctx context.Context, exec Executor, key models.SettingsKey) (settings.Document, error) {
	table, cols, args := keyColumns(key)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", constants.ColData, table, whereClause(cols))

	var raw []byte
	err := exec.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings %s: %w", key, err)
	}
	return decodeDocument(raw)
}

// Exists reports whether a row is stored for key
func (r *SettingsRepository) Exists(ctx context.Context, exec Executor, key models.SettingsKey) (bool, error) {
	table, cols, args := keyColumns(key)
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", table, whereClause(cols))

	var exists bool
	if err := exec.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check settings %s: %w", key, err)
	}
	return exists, nil
}

// Upsert stores doc as the complete override document for key
func (r *SettingsRepository) Upsert(ctx context.Context, exec Executor, key models.SettingsKey, doc settings.Document) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	table, cols, args := keyColumns(key)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (%s) ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
		table, strings.Join(cols, ", "), constants.ColData, placeholders, constants.ColData, constants.ColData,
	)
	if _, err := exec.ExecContext(ctx, query, append(args, data)...); err != nil {
		return fmt.Errorf("failed to save settings %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key. Deleting a missing row is not an error.
func (r *SettingsRepository) Delete(ctx context.Context, exec Executor, key models.SettingsKey) error {
	table, cols, args := keyColumns(key)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, whereClause(cols))
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete settings %s: %w", key, err)
	}
	return nil
}

// ListSites returns the (site, user) pairs with project-site overrides
func (r *SettingsRepository) ListSites(ctx context.Context, exec Executor, addon, version, project string) ([]models.SiteRef, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s = ? AND %s = ? AND %s = ? ORDER BY %s, %s",
		constants.ColSiteID, constants.ColUserName, constants.TableProjectSiteSettings,
		constants.ColAddonName, constants.ColAddonVersion, constants.ColProjectName,
		constants.ColSiteID, constants.ColUserName,
	)
	rows, err := exec.QueryContext(ctx, query, addon, version, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list site settings: %w", err)
	}
	defer rows.Close()

	var refs []models.SiteRef
	for rows.Next() {
		var ref models.SiteRef
		if err := rows.Scan(&ref.SiteID, &ref.UserName); err != nil {
			return nil, fmt.Errorf("failed to scan site settings: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func decodeDocument(raw []byte) (settings.Document, error) {
	doc := settings.Document{}
	if len(raw) == 0 || string(raw) == "null" {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}
	return doc, nil
}

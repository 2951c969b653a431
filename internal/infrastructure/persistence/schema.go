package persistence

import (
	"context"
	"fmt"

	"github.com/ynput/ayon-backend-sub000/pkg/constants"
)

// schemaStatements creates every table the service owns. The projects
// table normally belongs to the entity service; it is created here so a
// standalone deployment works.
var schemaStatements = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		addon_name VARCHAR(255) NOT NULL,
		addon_version VARCHAR(64) NOT NULL,
		variant VARCHAR(255) NOT NULL,
		data JSON NOT NULL,
		PRIMARY KEY (addon_name, addon_version, variant)
	)`, constants.TableSettings),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		addon_name VARCHAR(255) NOT NULL,
		addon_version VARCHAR(64) NOT NULL,
		variant VARCHAR(255) NOT NULL,
		project_name VARCHAR(255) NOT NULL,
		data JSON NOT NULL,
		PRIMARY KEY (addon_name, addon_version, variant, project_name),
		KEY idx_project_settings_project (project_name)
	)`, constants.TableProjectSettings),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		addon_name VARCHAR(255) NOT NULL,
		addon_version VARCHAR(64) NOT NULL,
		project_name VARCHAR(255) NOT NULL,
		site_id VARCHAR(255) NOT NULL,
		user_name VARCHAR(255) NOT NULL,
		data JSON NOT NULL,
		PRIMARY KEY (addon_name, addon_version, project_name, site_id, user_name)
	)`, constants.TableProjectSiteSettings),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		data JSON NOT NULL,
		is_production BOOLEAN NOT NULL DEFAULT FALSE,
		is_staging BOOLEAN NOT NULL DEFAULT FALSE,
		is_dev BOOLEAN NOT NULL DEFAULT FALSE,
		is_project BOOLEAN NOT NULL DEFAULT FALSE,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		active_user VARCHAR(255) NULL,
		created_at DATETIME(6) NOT NULL
	)`, constants.TableBundles),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		data JSON NOT NULL
	)`, constants.TableProjects),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		topic VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		summary JSON NULL,
		payload JSON NULL,
		user_name VARCHAR(255) NULL,
		project_name VARCHAR(255) NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_events_topic_created (topic, created_at)
	)`, constants.TableEvents),
}

// EnsureSchema creates missing tables
func EnsureSchema(ctx context.Context, exec Executor) error {
	for _, stmt := range schemaStatements {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
)

// ProjectRepository reads project names and the project data blob
type ProjectRepository struct{}

var _ ports.ProjectDirectory = (*ProjectRepository)(nil)

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{}
}

// ListNames returns all project names, sorted
func (r *ProjectRepository) ListNames(ctx context.Context, exec Executor) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", constants.ColName, constants.TableProjects, constants.ColName)
	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan project name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get loads a project, optionally locking the row
func (r *ProjectRepository) Get(ctx context.Context, exec Executor, name string, forUpdate bool) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ?", constants.ColName, constants.ColData, constants.TableProjects, constants.ColName)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		p   models.Project
		raw []byte
	)
	err := exec.QueryRowContext(ctx, query, name).Scan(&p.Name, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFoundError("Project", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", name, err)
	}
	p.Data = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Data); err != nil {
			return nil, fmt.Errorf("failed to decode project %s data: %w", name, err)
		}
		if p.Data == nil {
			p.Data = map[string]any{}
		}
	}
	return &p, nil
}

// SaveData writes the project data blob back
func (r *ProjectRepository) SaveData(ctx context.Context, exec Executor, p *models.Project) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal project data: %w", err)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", constants.TableProjects, constants.ColData, constants.ColName)
	// MySQL reports zero affected rows for unchanged data, so the row
	// count cannot tell a missing project apart
	if _, err := exec.ExecContext(ctx, query, data, p.Name); err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.Name, err)
	}
	return nil
}

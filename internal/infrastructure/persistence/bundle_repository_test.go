package persistence

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
)

var bundleCols = []string{"name", "data", "is_production", "is_staging", "is_dev", "is_project", "is_archived", "active_user", "created_at"}

func TestBundleRepositoryGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	query := "SELECT " + bundleColumns + " FROM bundles WHERE name = ? FOR UPDATE"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("prod").
		WillReturnRows(sqlmock.NewRows(bundleCols).AddRow(
			"prod", []byte(`{"addons": {"core": "1.0.0", "maya": null}, "installer_version": "1.2"}`),
			true, false, false, false, false, nil, created,
		))

	b, err := NewBundleRepository().Get(context.Background(), db, "prod", true)
	require.NoError(t, err)
	assert.Equal(t, "prod", b.Name)
	assert.True(t, b.IsProduction)
	assert.Equal(t, map[string]string{"core": "1.0.0"}, b.EnabledAddons())
	assert.Contains(t, b.Addons, "maya")
	assert.Equal(t, "1.2", *b.InstallerVersion)
	assert.Nil(t, b.ActiveUser)
	assert.Equal(t, created, b.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBundleRepositoryGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + bundleColumns + " FROM bundles WHERE name = ?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(bundleCols))

	_, err = NewBundleRepository().Get(context.Background(), db, "nope", false)
	assert.True(t, appErrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBundleRepositoryInsertConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bundles (" + bundleColumns + ")")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err = NewBundleRepository().Insert(context.Background(), db, &models.Bundle{Name: "b1", Addons: map[string]*string{}})
	assert.True(t, appErrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBundleRepositoryFlags(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBundleRepository()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bundles SET is_production = FALSE WHERE is_production = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bundles SET active_user = NULL WHERE active_user = ?")).
		WithArgs("artist").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + bundleColumns + " FROM bundles WHERE is_staging = TRUE LIMIT 1")).
		WillReturnRows(sqlmock.NewRows(bundleCols))

	require.NoError(t, repo.ClearProduction(ctx, db))
	require.NoError(t, repo.ClearActiveUser(ctx, db, "artist"))
	staging, err := repo.Staging(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, staging)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBundleRepositoryDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bundles WHERE name = ?")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewBundleRepository().Delete(context.Background(), db, "gone")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestProjectRepositoryGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, data FROM projects WHERE name = ? FOR UPDATE")).
		WithArgs("demo").
		WillReturnRows(sqlmock.NewRows([]string{"name", "data"}).
			AddRow("demo", []byte(`{"bundle": {"production": "__project__demo__production"}}`)))

	p, err := NewProjectRepository().Get(context.Background(), db, "demo", true)
	require.NoError(t, err)
	name, ok := p.BundleFor("production")
	assert.True(t, ok)
	assert.Equal(t, "__project__demo__production", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type anyArg struct{}

func (anyArg) Match(driver.Value) bool { return true }

func TestEventRepositoryInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (id, topic, description, summary, payload, user_name, project_name, created_at)")).
		WithArgs(anyArg{}, "bundle.status_changed", "Bundle b1 set to production", []byte(`{"name":"b1"}`), []byte("null"), "admin", nil, anyArg{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ev := &events.Event{
		Topic:       events.BundleStatusChanged,
		Description: "Bundle b1 set to production",
		Summary:     map[string]any{"name": "b1"},
		User:        "admin",
	}
	require.NoError(t, NewEventRepository().Insert(context.Background(), db, ev))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schemaStatements {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

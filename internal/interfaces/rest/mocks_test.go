package rest_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// MockSettingsService is a mock implementation of rest.SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Schema(addonName, version string) (*settings.Schema, error) {
	args := m.Called(addonName, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Schema), args.Error(1)
}

func (m *MockSettingsService) GetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey) (*services.Resolved, error) {
	args := m.Called(ctx, user, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Resolved), args.Error(1)
}

func (m *MockSettingsService) GetOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (map[string]settings.OverrideInfo, error) {
	args := m.Called(ctx, user, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]settings.OverrideInfo), args.Error(1)
}

func (m *MockSettingsService) SetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey, payload settings.Document) error {
	return m.Called(ctx, user, key, payload).Error(0)
}

func (m *MockSettingsService) DeleteOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) error {
	return m.Called(ctx, user, key).Error(0)
}

func (m *MockSettingsService) ModifyOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, action string, path []string) error {
	return m.Called(ctx, user, key, action, path).Error(0)
}

func (m *MockSettingsService) GetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (settings.Document, error) {
	args := m.Called(ctx, user, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(settings.Document), args.Error(1)
}

func (m *MockSettingsService) SetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, doc settings.Document) error {
	return m.Called(ctx, user, key, doc).Error(0)
}

func (m *MockSettingsService) AllSettings(ctx context.Context, user auth.UserSession, req services.AllSettingsRequest) (*services.AllSettings, error) {
	args := m.Called(ctx, user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AllSettings), args.Error(1)
}

// MockBundleService is a mock implementation of rest.BundleService
type MockBundleService struct {
	mock.Mock
}

func (m *MockBundleService) List(ctx context.Context, includeArchived bool) (*models.BundleList, error) {
	args := m.Called(ctx, includeArchived)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BundleList), args.Error(1)
}

func (m *MockBundleService) Get(ctx context.Context, name string) (*models.Bundle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bundle), args.Error(1)
}

func (m *MockBundleService) Create(ctx context.Context, user auth.UserSession, b *models.Bundle) error {
	return m.Called(ctx, user, b).Error(0)
}

func (m *MockBundleService) Update(ctx context.Context, user auth.UserSession, name string, patch *models.BundlePatch) error {
	return m.Called(ctx, user, name, patch).Error(0)
}

func (m *MockBundleService) Delete(ctx context.Context, user auth.UserSession, name string) error {
	return m.Called(ctx, user, name).Error(0)
}

func (m *MockBundleService) Promote(ctx context.Context, user auth.UserSession, name string) error {
	return m.Called(ctx, user, name).Error(0)
}

// MockMigrationService is a mock implementation of rest.MigrationService
type MockMigrationService struct {
	mock.Mock
}

func (m *MockMigrationService) Migrate(ctx context.Context, user auth.UserSession, req services.MigrateRequest) error {
	return m.Called(ctx, user, req).Error(0)
}

// MockProjectBundleService is a mock implementation of rest.ProjectBundleService
type MockProjectBundleService struct {
	mock.Mock
}

func (m *MockProjectBundleService) Get(ctx context.Context, project string) (map[string]string, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockProjectBundleService) Freeze(ctx context.Context, user auth.UserSession, project string, req services.FreezeRequest) error {
	return m.Called(ctx, user, project, req).Error(0)
}

func (m *MockProjectBundleService) Unfreeze(ctx context.Context, user auth.UserSession, project, variant string) error {
	return m.Called(ctx, user, project, variant).Error(0)
}

// MockEventReader is a mock implementation of rest.EventReader
type MockEventReader struct {
	mock.Mock
}

func (m *MockEventReader) Recent(ctx context.Context, topic string, limit int) ([]events.Event, error) {
	args := m.Called(ctx, topic, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]events.Event), args.Error(1)
}

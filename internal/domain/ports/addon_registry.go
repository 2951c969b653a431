package ports

import "github.com/ynput/ayon-backend-sub000/internal/domain/models"

// AddonRegistry resolves installed addons.
// Addon returns a NotFoundError for unknown names or versions.
type AddonRegistry interface {
	Addon(name, version string) (*models.Addon, error)
	Definition(name string) (*models.AddonDefinition, bool)
	Definitions() []*models.AddonDefinition
}

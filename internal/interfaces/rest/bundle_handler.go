package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// BundleService defines the bundle operations exposed over HTTP
type BundleService interface {
	List(ctx context.Context, includeArchived bool) (*models.BundleList, error)
	Get(ctx context.Context, name string) (*models.Bundle, error)
	Create(ctx context.Context, user auth.UserSession, b *models.Bundle) error
	Update(ctx context.Context, user auth.UserSession, name string, patch *models.BundlePatch) error
	Delete(ctx context.Context, user auth.UserSession, name string) error
	Promote(ctx context.Context, user auth.UserSession, name string) error
}

// MigrationService copies settings between bundles
type MigrationService interface {
	Migrate(ctx context.Context, user auth.UserSession, req services.MigrateRequest) error
}

// BundleHandler handles bundle endpoints
type BundleHandler struct {
	bundles   BundleService
	migration MigrationService
}

// NewBundleHandler creates a new BundleHandler
func NewBundleHandler(bundles BundleService, migration MigrationService) *BundleHandler {
	return &BundleHandler{bundles: bundles, migration: migration}
}

// ActionPromote is the only bundle action
const ActionPromote = "promote"

// ListBundles handles GET /api/bundles
func (h *BundleHandler) ListBundles(c *gin.Context) {
	includeArchived := utils.ToBool(c.Query(constants.QueryArchived))
	list, err := h.bundles.List(c.Request.Context(), includeArchived)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetBundle handles GET /api/bundles/:name
func (h *BundleHandler) GetBundle(c *gin.Context) {
	b, err := h.bundles.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreateBundle handles POST /api/bundles
func (h *BundleHandler) CreateBundle(c *gin.Context) {
	var b models.Bundle
	if !BindJSON(c, &b) {
		return
	}
	if err := h.bundles.Create(c.Request.Context(), GetUserFromContext(c), &b); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.FieldMessage: "Bundle created",
		"bundle":               b,
	})
}

// UpdateBundle handles PATCH /api/bundles/:name
func (h *BundleHandler) UpdateBundle(c *gin.Context) {
	var patch models.BundlePatch
	if !BindJSONStrict(c, &patch) {
		return
	}
	if err := h.bundles.Update(c.Request.Context(), GetUserFromContext(c), c.Param("name"), &patch); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// DeleteBundle handles DELETE /api/bundles/:name
func (h *BundleHandler) DeleteBundle(c *gin.Context) {
	if err := h.bundles.Delete(c.Request.Context(), GetUserFromContext(c), c.Param("name")); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// BundleAction handles POST /api/bundles/:name/:action
func (h *BundleHandler) BundleAction(c *gin.Context) {
	action := c.Param("action")
	if action != ActionPromote {
		RespondAppError(c, appErrors.NewBadRequestError("unsupported bundle action %q", action))
		return
	}
	if err := h.bundles.Promote(c.Request.Context(), GetUserFromContext(c), c.Param("name")); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// MigrateSettings handles POST /api/migrateSettingsByBundle
func (h *BundleHandler) MigrateSettings(c *gin.Context) {
	var req services.MigrateRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.migration.Migrate(c.Request.Context(), GetUserFromContext(c), req); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// SettingsService defines the settings operations exposed over HTTP
type SettingsService interface {
	Schema(addonName, version string) (*settings.Schema, error)
	GetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey) (*services.Resolved, error)
	GetOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (map[string]settings.OverrideInfo, error)
	SetSettings(ctx context.Context, user auth.UserSession, key models.SettingsKey, payload settings.Document) error
	DeleteOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) error
	ModifyOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, action string, path []string) error
	GetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey) (settings.Document, error)
	SetRawOverrides(ctx context.Context, user auth.UserSession, key models.SettingsKey, doc settings.Document) error
	AllSettings(ctx context.Context, user auth.UserSession, req services.AllSettingsRequest) (*services.AllSettings, error)
}

// SettingsHandler serves addon settings, overrides and schemas
type SettingsHandler struct {
	svc SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// ModifyOverridesRequest removes or pins the override at one path
type ModifyOverridesRequest struct {
	Action string   `json:"action" binding:"required,oneof=delete pin"`
	Path   []string `json:"path" binding:"required,min=1"`
}

// settingsKey builds the key addressed by the route. Project routes
// carry :project; a site_id query selects the caller's site row.
func settingsKey(c *gin.Context, user auth.UserSession) models.SettingsKey {
	addon := c.Param("addon")
	version := c.Param("version")
	variant := c.DefaultQuery(constants.QueryVariant, models.VariantProduction)
	project := c.Param("project")

	if project == "" {
		return models.StudioKey(addon, version, variant)
	}
	if site := c.Query(constants.QuerySiteID); site != "" {
		key := models.SiteKey(addon, version, project, site, user.Name)
		key.Variant = variant
		return key
	}
	return models.ProjectKey(addon, version, variant, project)
}

// GetSchema handles GET /api/addons/:addon/:version/schema
func (h *SettingsHandler) GetSchema(c *gin.Context) {
	schema, err := h.svc.Schema(c.Param("addon"), c.Param("version"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// GetSettings handles GET /api/addons/:addon/:version/settings[/:project]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	user := GetUserFromContext(c)
	res, err := h.svc.GetSettings(c.Request.Context(), user, settingsKey(c, user))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SetSettings handles POST /api/addons/:addon/:version/settings[/:project]
func (h *SettingsHandler) SetSettings(c *gin.Context) {
	user := GetUserFromContext(c)
	payload, ok := bindDocument(c)
	if !ok {
		return
	}
	if err := h.svc.SetSettings(c.Request.Context(), user, settingsKey(c, user), payload); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// GetOverrides handles GET /api/addons/:addon/:version/overrides[/:project]
func (h *SettingsHandler) GetOverrides(c *gin.Context) {
	user := GetUserFromContext(c)
	res, err := h.svc.GetOverrides(c.Request.Context(), user, settingsKey(c, user))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteOverrides handles DELETE /api/addons/:addon/:version/overrides[/:project]
func (h *SettingsHandler) DeleteOverrides(c *gin.Context) {
	user := GetUserFromContext(c)
	if err := h.svc.DeleteOverrides(c.Request.Context(), user, settingsKey(c, user)); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// ModifyOverrides handles POST /api/addons/:addon/:version/overrides[/:project]
func (h *SettingsHandler) ModifyOverrides(c *gin.Context) {
	user := GetUserFromContext(c)
	var req ModifyOverridesRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.svc.ModifyOverrides(c.Request.Context(), user, settingsKey(c, user), req.Action, req.Path); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// GetRawOverrides handles GET /api/addons/:addon/:version/rawOverrides[/:project]
func (h *SettingsHandler) GetRawOverrides(c *gin.Context) {
	user := GetUserFromContext(c)
	doc, err := h.svc.GetRawOverrides(c.Request.Context(), user, settingsKey(c, user))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// SetRawOverrides handles PUT /api/addons/:addon/:version/rawOverrides[/:project]
func (h *SettingsHandler) SetRawOverrides(c *gin.Context) {
	user := GetUserFromContext(c)
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	if err := h.svc.SetRawOverrides(c.Request.Context(), user, settingsKey(c, user), doc); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// GetAllSettings handles GET /api/settings
func (h *SettingsHandler) GetAllSettings(c *gin.Context) {
	var req services.AllSettingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondAppError(c, validationError("query", err))
		return
	}
	res, err := h.svc.AllSettings(c.Request.Context(), GetUserFromContext(c), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

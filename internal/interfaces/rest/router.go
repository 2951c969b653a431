package rest

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every REST handler
type Handlers struct {
	Settings       *SettingsHandler
	Bundles        *BundleHandler
	ProjectBundles *ProjectBundleHandler
	Events         *EventHandler
}

// RegisterRoutes mounts the API under api. Every route requires
// authentication; per-operation permissions are checked by the services.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, requireAuth, requireAdmin gin.HandlerFunc) {
	api.Use(requireAuth)

	addons := api.Group("/addons/:addon/:version")
	{
		addons.GET("/schema", h.Settings.GetSchema)

		addons.GET("/settings", h.Settings.GetSettings)
		addons.POST("/settings", h.Settings.SetSettings)
		addons.GET("/settings/:project", h.Settings.GetSettings)
		addons.POST("/settings/:project", h.Settings.SetSettings)

		addons.GET("/overrides", h.Settings.GetOverrides)
		addons.POST("/overrides", h.Settings.ModifyOverrides)
		addons.DELETE("/overrides", h.Settings.DeleteOverrides)
		addons.GET("/overrides/:project", h.Settings.GetOverrides)
		addons.POST("/overrides/:project", h.Settings.ModifyOverrides)
		addons.DELETE("/overrides/:project", h.Settings.DeleteOverrides)

		addons.GET("/rawOverrides", requireAdmin, h.Settings.GetRawOverrides)
		addons.PUT("/rawOverrides", requireAdmin, h.Settings.SetRawOverrides)
		addons.GET("/rawOverrides/:project", requireAdmin, h.Settings.GetRawOverrides)
		addons.PUT("/rawOverrides/:project", requireAdmin, h.Settings.SetRawOverrides)
	}

	api.GET("/settings", h.Settings.GetAllSettings)

	bundles := api.Group("/bundles")
	{
		bundles.GET("", h.Bundles.ListBundles)
		bundles.POST("", requireAdmin, h.Bundles.CreateBundle)
		bundles.GET("/:name", h.Bundles.GetBundle)
		bundles.PATCH("/:name", requireAdmin, h.Bundles.UpdateBundle)
		bundles.DELETE("/:name", requireAdmin, h.Bundles.DeleteBundle)
		bundles.POST("/:name/:action", requireAdmin, h.Bundles.BundleAction)
	}
	api.POST("/migrateSettingsByBundle", requireAdmin, h.Bundles.MigrateSettings)

	projects := api.Group("/projects/:name")
	{
		projects.GET("/bundle", h.ProjectBundles.GetBundle)
		projects.PUT("/bundle", h.ProjectBundles.Freeze)
		projects.DELETE("/bundle", h.ProjectBundles.Unfreeze)
	}

	api.GET("/events", requireAdmin, h.Events.ListEvents)
}

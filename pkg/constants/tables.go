package constants

// Table names
const (
	TableSettings            = "settings"
	TableProjectSettings     = "project_settings"
	TableProjectSiteSettings = "project_site_settings"
	TableBundles             = "bundles"
	TableProjects            = "projects"
	TableEvents              = "events"
)

// Column names shared by the settings tables
const (
	ColAddonName    = "addon_name"
	ColAddonVersion = "addon_version"
	ColVariant      = "variant"
	ColProjectName  = "project_name"
	ColSiteID       = "site_id"
	ColUserName     = "user_name"
	ColData         = "data"
	ColName         = "name"
)

// Payload keys carrying pin state in settings writes
const (
	PayloadPinnedFields   = "__pinned_fields__"
	PayloadUnpinnedFields = "__unpinned_fields__"
)

// Context keys
const (
	ContextKeyUser      = "user"
	HeaderAuthorization = "Authorization"
)

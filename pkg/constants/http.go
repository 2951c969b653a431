package constants

// Response envelope keys
const (
	ResponseError = "error"
	FieldMessage  = "message"
	FieldData     = "data"
	FieldCode     = "code"
)

// Query parameters shared by the settings endpoints
const (
	QueryVariant     = "variant"
	QuerySiteID      = "site_id"
	QueryProjectName = "project_name"
	QueryArchived    = "archived"
)

// Routes
const (
	APIPrefix = "/api"
)

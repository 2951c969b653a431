package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
)

// ProjectBundleService freezes projects to their own bundles
type ProjectBundleService interface {
	Get(ctx context.Context, project string) (map[string]string, error)
	Freeze(ctx context.Context, user auth.UserSession, project string, req services.FreezeRequest) error
	Unfreeze(ctx context.Context, user auth.UserSession, project, variant string) error
}

// EventReader lists recorded events
type EventReader interface {
	Recent(ctx context.Context, topic string, limit int) ([]events.Event, error)
}

// ProjectBundleHandler handles /api/projects/:name/bundle
type ProjectBundleHandler struct {
	svc ProjectBundleService
}

// NewProjectBundleHandler creates a new ProjectBundleHandler
func NewProjectBundleHandler(svc ProjectBundleService) *ProjectBundleHandler {
	return &ProjectBundleHandler{svc: svc}
}

// GetBundle handles GET /api/projects/:name/bundle
func (h *ProjectBundleHandler) GetBundle(c *gin.Context) {
	refs, err := h.svc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

// Freeze handles PUT /api/projects/:name/bundle
func (h *ProjectBundleHandler) Freeze(c *gin.Context) {
	var req services.FreezeRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.svc.Freeze(c.Request.Context(), GetUserFromContext(c), c.Param("name"), req); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// Unfreeze handles DELETE /api/projects/:name/bundle?variant=
func (h *ProjectBundleHandler) Unfreeze(c *gin.Context) {
	variant := c.Query(constants.QueryVariant)
	if err := h.svc.Unfreeze(c.Request.Context(), GetUserFromContext(c), c.Param("name"), variant); err != nil {
		RespondAppError(c, err)
		return
	}
	respondNoContent(c)
}

// EventHandler lists the event log
type EventHandler struct {
	events EventReader
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events EventReader) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents handles GET /api/events?topic=&limit=
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondAppError(c, validationError("limit", err))
			return
		}
		limit = n
	}
	list, err := h.events.Recent(c.Request.Context(), c.Query("topic"), limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

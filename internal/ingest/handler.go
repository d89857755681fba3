package ingest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vidria/internal/constants"
	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/internal/tenants"
	"vidria/pkg/errors"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	evts := group.Group("/events")
	{
		evts.POST("", h.IngestEvent)
		evts.GET("", h.ListEvents)
		evts.GET("/recent", h.RecentEvents)
		evts.GET("/:id", h.GetEvent)
		evts.GET("/:id/snapshot", h.GetSnapshot)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func (h *Handler) tenant(c *gin.Context) (*tenants.Tenant, bool) {
	tenant, ok := tenants.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
	}
	return tenant, ok
}

func (h *Handler) limit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultLimit)))
	if err != nil || limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	return limit
}

// IngestEvent godoc
// @Summary      Ingest a normalized detection event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Token  header  string                true  "Tenant token"
// @Param        event           body    events.IngestRequest  true  "Normalized detection"
// @Success      202  {object}  Result
// @Failure      400  {object}  map[string]interface{}
// @Router       /events [post]
func (h *Handler) IngestEvent(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	var req events.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), tenant, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// ListEvents godoc
// @Summary      List stored detection events for the authenticated tenant
// @Tags         events
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        limit           query   int     false "Max events to return"
// @Success      200  {object}  map[string]interface{}
// @Router       /events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), tenant, h.limit(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if result == nil {
		result = []events.Event{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(result), "events": result})
}

// RecentEvents godoc
// @Summary      List the most recently ingested events held in memory
// @Tags         events
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        limit           query   int     false "Max events to return"
// @Success      200  {object}  map[string]interface{}
// @Router       /events/recent [get]
func (h *Handler) RecentEvents(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	// The buffer is process-wide; scope the response to the caller.
	var result []events.Event
	for _, event := range h.service.Recent(h.limit(c)) {
		if event.TenantToken == tenant.Token {
			result = append(result, event)
		}
	}
	if result == nil {
		result = []events.Event{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(result), "events": result})
}

// GetEvent godoc
// @Summary      Get one stored detection event
// @Tags         events
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        id              path    int     true  "Event ID"
// @Success      200  {object}  events.Event
// @Failure      404  {object}  map[string]interface{}
// @Router       /events/{id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "invalid event id")))
		return
	}

	event, err := h.service.Get(c.Request.Context(), tenant, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// GetSnapshot godoc
// @Summary      Get the snapshot JPEG for one stored event
// @Tags         events
// @Produce      jpeg
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        id              path    int     true  "Event ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  map[string]interface{}
// @Router       /events/{id}/snapshot [get]
func (h *Handler) GetSnapshot(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "invalid event id")))
		return
	}

	snapshot, err := h.service.Snapshot(c.Request.Context(), tenant, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", snapshot)
}

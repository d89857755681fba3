package rules

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vidria/internal/constants"
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
	rules := group.Group("/rules")
	{
		rules.GET("", h.ListRules)
		rules.POST("", h.CreateRule)
		rules.GET("/hits", h.ListHits)
		rules.GET("/:id", h.GetRule)
		rules.PATCH("/:id", h.UpdateRule)
		rules.DELETE("/:id", h.DeleteRule)
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

// ListRules godoc
// @Summary      List notification rules for the authenticated tenant
// @Tags         rules
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Success      200  {array}   Rule
// @Failure      401  {object}  map[string]interface{}
// @Router       /rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), tenant)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if result == nil {
		result = []Rule{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(result), "rules": result})
}

// CreateRule godoc
// @Summary      Create a notification rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Token  header  string             true  "Tenant token"
// @Param        rule            body    CreateRuleRequest  true  "Rule definition"
// @Success      201  {object}  Rule
// @Failure      400  {object}  map[string]interface{}
// @Router       /rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.Create(c.Request.Context(), tenant, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a notification rule
// @Tags         rules
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        id              path    int     true  "Rule ID"
// @Success      200  {object}  Rule
// @Failure      404  {object}  map[string]interface{}
// @Router       /rules/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "invalid rule id")))
		return
	}

	rule, err := h.service.Get(c.Request.Context(), tenant, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update a notification rule
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Token  header  string             true  "Tenant token"
// @Param        id              path    int                true  "Rule ID"
// @Param        rule            body    UpdateRuleRequest  true  "Fields to update"
// @Success      200  {object}  Rule
// @Failure      404  {object}  map[string]interface{}
// @Router       /rules/{id} [patch]
func (h *Handler) UpdateRule(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "invalid rule id")))
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.Update(c.Request.Context(), tenant, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a notification rule
// @Tags         rules
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        id              path    int     true  "Rule ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "invalid rule id")))
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenant, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListHits godoc
// @Summary      List recent rule hits for the authenticated tenant
// @Tags         rules
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Param        limit           query   int     false "Max hits to return"
// @Success      200  {object}  map[string]interface{}
// @Router       /rules/hits [get]
func (h *Handler) ListHits(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultLimit)))
	if err != nil || limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}

	hits, err := h.service.ListHits(c.Request.Context(), tenant, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if hits == nil {
		hits = []Hit{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(hits), "hits": hits})
}

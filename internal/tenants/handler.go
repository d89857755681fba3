package tenants

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vidria/internal/logger"
	"vidria/pkg/errors"
	"vidria/pkg/timeutil"
)

type Handler struct {
	repo   Repository
	logger logger.Logger
}

func NewHandler(repo Repository, log logger.Logger) *Handler {
	return &Handler{repo: repo, logger: log}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/tenants/me", h.GetMe)
	group.PATCH("/tenants/me", h.UpdateMe)
}

// GetMe godoc
// @Summary      Get the authenticated tenant
// @Tags         tenants
// @Produce      json
// @Param        X-Tenant-Token  header  string  true  "Tenant token"
// @Success      200  {object}  Tenant
// @Failure      401  {object}  map[string]interface{}
// @Router       /tenants/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	tenant, ok := FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// UpdateMe godoc
// @Summary      Update the authenticated tenant's notification settings
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        X-Tenant-Token  header  string               true  "Tenant token"
// @Param        tenant          body    UpdateTenantRequest  true  "Fields to update"
// @Success      200  {object}  Tenant
// @Failure      400  {object}  map[string]interface{}
// @Router       /tenants/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	tenant, ok := FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "timezone is not a valid IANA name")))
			return
		}
	} else if req.WhatsAppNumber != nil && *req.WhatsAppNumber != "" {
		// A new number without an explicit timezone re-derives it from the
		// country calling code.
		derived := timeutil.TimezoneForPhone(*req.WhatsAppNumber)
		req.Timezone = &derived
	}

	updated, err := h.repo.Update(c.Request.Context(), tenant.ID, req)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Tenant update failed", "error", err, "tenant_id", tenant.ID)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, updated)
}

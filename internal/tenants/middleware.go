package tenants

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidria/internal/constants"
	"vidria/internal/logger"
	"vidria/pkg/errors"
)

const contextKey = "tenant"

// AuthMiddleware resolves the X-Tenant-Token header to a tenant and stores
// it on the request context. Requests without a valid token are rejected.
func AuthMiddleware(repo Repository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(constants.TenantTokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.ToErrorResponse(errors.ErrUnauthorized.WithDetail("message", "missing tenant token")))
			return
		}

		tenant, err := repo.GetByToken(c.Request.Context(), token)
		if err != nil {
			if errors.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					errors.ToErrorResponse(errors.ErrUnauthorized.WithDetail("message", "invalid tenant token")))
				return
			}
			log.ErrorwCtx(c.Request.Context(), "Tenant lookup failed", "error", err)
			c.AbortWithStatusJSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
			return
		}

		c.Set(contextKey, tenant)
		c.Next()
	}
}

// FromContext returns the tenant stored by AuthMiddleware.
func FromContext(c *gin.Context) (*Tenant, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	tenant, ok := value.(*Tenant)
	return tenant, ok
}

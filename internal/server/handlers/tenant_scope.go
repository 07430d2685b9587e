package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
)

// UserIDHeader carries the authenticated user id set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

const (
	userIDKey = "user_id"
	tenantKey = "tenant"
)

// TenantOpener acquires a handle on an existing tenant store.
type TenantOpener interface {
	Open(ctx context.Context, userID string) (*sqlite.Tenant, error)
}

// RequireUser rejects requests without an authenticated user id.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserIDHeader, "code": "unauthenticated"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// TenantScope opens the caller's store for the duration of the request and
// releases it afterwards, whatever the handler did.
func TenantScope(opener TenantOpener, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		tenant, err := opener.Open(c.Request.Context(), c.GetString(userIDKey))
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}
		defer func() { _ = tenant.Close() }()

		c.Set(tenantKey, tenant)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func tenantFrom(c *gin.Context) *sqlite.Tenant {
	return c.MustGet(tenantKey).(*sqlite.Tenant)
}

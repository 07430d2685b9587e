package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/metrics"
)

// TenantProvisioner creates and wipes tenant stores.
type TenantProvisioner interface {
	Provision(ctx context.Context, userID string) (bool, error)
	ClearAll(ctx context.Context, userID string) error
}

// TenantHandler exposes the tenant lifecycle.
type TenantHandler struct {
	provisioner TenantProvisioner
	logger      *zap.Logger
}

// NewTenantHandler constructs the tenant lifecycle handler.
func NewTenantHandler(provisioner TenantProvisioner, logger *zap.Logger) *TenantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantHandler{provisioner: provisioner, logger: logger}
}

// Provision creates the caller's farm store if needed.
func (h *TenantHandler) Provision(c *gin.Context) {
	id := userID(c)

	created, err := h.provisioner.Provision(c.Request.Context(), id)
	if err != nil {
		metrics.TenantProvisions.WithLabelValues(metrics.OutcomeError).Inc()
		writeError(c, h.logger, err)
		return
	}

	if created {
		metrics.TenantProvisions.WithLabelValues("created").Inc()
		c.JSON(http.StatusCreated, gin.H{"user_id": id, "created": true})
		return
	}

	metrics.TenantProvisions.WithLabelValues("existing").Inc()
	c.JSON(http.StatusOK, gin.H{"user_id": id, "created": false})
}

// Clear wipes every farm row of the caller. The request must carry
// ?confirm=true since the operation cannot be undone.
func (h *TenantHandler) Clear(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "add ?confirm=true to delete all farm data", "code": "validation", "field": "confirm"})
		return
	}

	id := userID(c)
	if err := h.provisioner.ClearAll(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.logger.Warn("farm data cleared on request", zap.String("user_id", id))
	c.Status(http.StatusNoContent)
}

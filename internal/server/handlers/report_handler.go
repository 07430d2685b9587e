package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// ReportService builds and lists daily feed reports.
type ReportService interface {
	PublishFeedReport(ctx context.Context, userID string) (models.FeedReport, error)
	History(ctx context.Context, userID string, limit int64) ([]models.FeedReport, error)
}

// ReportHandler exposes feed reports of the caller.
type ReportHandler struct {
	svc    ReportService
	logger *zap.Logger
}

// NewReportHandler constructs the report HTTP handler.
func NewReportHandler(svc ReportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// Publish builds today's report, archives it and exports it.
func (h *ReportHandler) Publish(c *gin.Context) {
	report, err := h.svc.PublishFeedReport(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// History lists archived reports, newest first. ?limit= caps the count.
func (h *ReportHandler) History(c *gin.Context) {
	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(c, h.logger, &models.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := h.svc.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if reports == nil {
		reports = []models.FeedReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

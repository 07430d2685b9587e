package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// writeError maps domain errors to HTTP responses. Combined errors are
// reported one detail per underlying error.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	errs := multierr.Errors(err)
	if len(errs) > 1 {
		status := http.StatusBadRequest
		details := make([]gin.H, 0, len(errs))
		for _, e := range errs {
			s, body := classify(e)
			if s >= http.StatusInternalServerError {
				writeError(c, logger, e)
				return
			}
			details = append(details, body)
		}
		c.JSON(status, gin.H{"error": "request rejected", "code": "multiple_errors", "details": details})
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body = gin.H{"error": "internal error", "code": "internal"}
	}
	c.JSON(status, body)
}

func classify(err error) (int, gin.H) {
	var (
		validation     *models.ValidationError
		mismatch       *models.PercentageMismatchError
		duplicate      *models.DuplicateNameError
		notProvisioned *models.NotProvisionedError
		notFound       *models.NotFoundError
	)

	switch {
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, gin.H{
			"error":       mismatch.Error(),
			"code":        "percentage_mismatch",
			"meal_number": mismatch.MealNumber,
			"total":       mismatch.Total,
		}
	case errors.As(err, &validation):
		return http.StatusBadRequest, gin.H{"error": validation.Error(), "code": "validation", "field": validation.Field}
	case errors.As(err, &duplicate):
		return http.StatusConflict, gin.H{"error": duplicate.Error(), "code": "duplicate_name", "name": duplicate.Name}
	case errors.As(err, &notProvisioned):
		return http.StatusNotFound, gin.H{"error": notProvisioned.Error(), "code": "not_provisioned"}
	case errors.As(err, &notFound):
		return http.StatusNotFound, gin.H{"error": notFound.Error(), "code": "not_found"}
	default:
		return http.StatusInternalServerError, gin.H{"error": err.Error()}
	}
}

func badBody(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation"})
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/service/flock"
)

// FlockHandler serves pens, sheep and pregnancies.
type FlockHandler struct {
	logger *zap.Logger
}

// NewFlockHandler constructs the flock HTTP handler.
func NewFlockHandler(logger *zap.Logger) *FlockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlockHandler{logger: logger}
}

type createPenRequest struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	MealsPerDay int    `json:"meals_per_day"`
}

type updatePenRequest struct {
	Name        *string `json:"name"`
	Capacity    *int    `json:"capacity"`
	MealsPerDay *int    `json:"meals_per_day"`
}

type createSheepRequest struct {
	ID        string `json:"id"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	PenID     *int64 `json:"pen_id"`
}

type updateSheepRequest struct {
	Stage     *string `json:"stage"`
	Status    *string `json:"status"`
	PenID     *int64  `json:"pen_id"`
	ClearPen  bool    `json:"clear_pen"`
	BirthDate *string `json:"birth_date"`
}

type pregnancyRequest struct {
	MatingDate   string `json:"mating_date"`
	ExpectedDate string `json:"expected_date"`
	Notes        string `json:"notes"`
}

type sheepResponse struct {
	models.Sheep
	Warnings []string `json:"warnings,omitempty"`
}

// ListPens returns every pen with its occupancy.
func (h *FlockHandler) ListPens(c *gin.Context) {
	pens, err := h.service(c).ListPens(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pens": pens})
}

// CreatePen adds a pen.
func (h *FlockHandler) CreatePen(c *gin.Context) {
	var req createPenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	pen, err := h.service(c).CreatePen(c.Request.Context(), req.Name, req.Capacity, req.MealsPerDay)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pen)
}

// GetPen returns one pen.
func (h *FlockHandler) GetPen(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	pen, err := h.service(c).GetPen(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pen)
}

// UpdatePen changes the name, capacity or meals per day of a pen.
func (h *FlockHandler) UpdatePen(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var req updatePenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	pen, err := h.service(c).UpdatePen(c.Request.Context(), id, flock.PenPatch{
		Name:        req.Name,
		Capacity:    req.Capacity,
		MealsPerDay: req.MealsPerDay,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pen)
}

// ListSheep returns the flock, filtered by ?pen_id= when given.
func (h *FlockHandler) ListSheep(c *gin.Context) {
	var penID *int64
	if raw := c.Query("pen_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, h.logger, &models.ValidationError{Field: "pen_id", Message: "must be an integer"})
			return
		}
		penID = &id
	}

	sheep, err := h.service(c).ListSheep(c.Request.Context(), penID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheep": sheep})
}

// CreateSheep registers an animal.
func (h *FlockHandler) CreateSheep(c *gin.Context) {
	var req createSheepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	birth, err := optionalDate("birth_date", req.BirthDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	sheep, warnings, err := h.service(c).CreateSheep(c.Request.Context(), flock.NewSheep{
		ID:        req.ID,
		Gender:    req.Gender,
		BirthDate: birth,
		Stage:     req.Stage,
		Status:    req.Status,
		PenID:     req.PenID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sheepResponse{Sheep: sheep, Warnings: warnings})
}

// UpdateSheep moves a sheep, changes its status or overrides its stage.
func (h *FlockHandler) UpdateSheep(c *gin.Context) {
	var req updateSheepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	patch := flock.SheepPatch{
		Stage:    req.Stage,
		Status:   req.Status,
		PenID:    req.PenID,
		ClearPen: req.ClearPen,
	}
	if req.BirthDate != nil {
		birth, err := optionalDate("birth_date", *req.BirthDate)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		patch.BirthDate = birth
	}

	sheep, warnings, err := h.service(c).UpdateSheep(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sheepResponse{Sheep: sheep, Warnings: warnings})
}

// RecordPregnancy opens a gestation for a ewe.
func (h *FlockHandler) RecordPregnancy(c *gin.Context) {
	var req pregnancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	mating, err := optionalDate("mating_date", req.MatingDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if mating == nil {
		writeError(c, h.logger, &models.ValidationError{Field: "mating_date", Message: "is required"})
		return
	}
	expected, err := optionalDate("expected_date", req.ExpectedDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	pregnancy, err := h.service(c).RecordPregnancy(c.Request.Context(), c.Param("id"), *mating, expected, req.Notes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pregnancy)
}

// MarkDelivered closes an active pregnancy.
func (h *FlockHandler) MarkDelivered(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.service(c).MarkDelivered(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlockHandler) service(c *gin.Context) *flock.Service {
	return flock.NewService(tenantFrom(c).Farm(), h.logger)
}

func optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Message: "must be formatted YYYY-MM-DD"}
	}
	return &day, nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/service/feeding"
)

const dateLayout = "2006-01-02"

// FeedHandler serves feed settings, the feed type catalog, meal plans and
// feed calculations of the caller's farm.
type FeedHandler struct {
	defaults models.FarmDefaults
	logger   *zap.Logger
	now      func() time.Time
}

// NewFeedHandler constructs the feeding HTTP handler.
func NewFeedHandler(defaults models.FarmDefaults, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{defaults: defaults, logger: logger, now: time.Now}
}

type feedSettingRequest struct {
	DailyFeedKg json.Number `json:"daily_feed_kg"`
}

type feedTypeRequest struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type mealEntryRequest struct {
	FeedTypeID int64       `json:"feed_type_id"`
	Percentage json.Number `json:"percentage"`
}

type mealRequest struct {
	MealNumber int                `json:"meal_number"`
	FeedTypes  []mealEntryRequest `json:"feed_types"`
}

type mealPlanRequest struct {
	Meals []mealRequest `json:"meals"`
}

type mealPlanResponse struct {
	PenID int64         `json:"pen_id"`
	Meals []mealRequest `json:"meals"`
}

// ListSettings returns the effective ration of every stage.
func (h *FeedHandler) ListSettings(c *gin.Context) {
	settings, err := feeding.NewSettingsStore(tenantFrom(c).Farm(), h.defaults).List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed_settings": settings})
}

// GetSetting returns the ration of one stage.
func (h *FeedHandler) GetSetting(c *gin.Context) {
	stage := models.Stage(c.Param("stage"))

	kg, ok, err := feeding.NewSettingsStore(tenantFrom(c).Farm(), h.defaults).Get(c.Request.Context(), stage)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !ok {
		writeError(c, h.logger, &models.NotFoundError{Entity: "feed setting", ID: string(stage)})
		return
	}

	c.JSON(http.StatusOK, models.FeedSetting{Stage: stage, DailyFeedKg: kg})
}

// PutSetting upserts the ration of one stage.
func (h *FeedHandler) PutSetting(c *gin.Context) {
	var req feedSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	stage := models.Stage(c.Param("stage"))
	kg, err := models.ParseAmount(fmt.Sprintf("daily_feed_kg[%s]", stage), req.DailyFeedKg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	setting, err := feeding.NewSettingsStore(tenantFrom(c).Farm(), h.defaults).Set(c.Request.Context(), stage, kg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// ListFeedTypes returns the catalog.
func (h *FeedHandler) ListFeedTypes(c *gin.Context) {
	types, err := feeding.NewCatalog(tenantFrom(c).Farm()).List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed_types": types})
}

// AddFeedType registers a new feed type.
func (h *FeedHandler) AddFeedType(c *gin.Context) {
	var req feedTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	ft, err := feeding.NewCatalog(tenantFrom(c).Farm()).Add(c.Request.Context(), req.Name, req.Unit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ft)
}

// GetMealPlan returns every meal composition of a pen.
func (h *FeedHandler) GetMealPlan(c *gin.Context) {
	penID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	allocation, err := h.allocator(c).GetMealAllocation(c.Request.Context(), penID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mealPlanResponse{PenID: penID, Meals: toMealRequests(allocation)})
}

// PutMealPlan replaces several meals of a pen in one write.
func (h *FeedHandler) PutMealPlan(c *gin.Context) {
	penID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var req mealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	plan := make(models.MealAllocation, len(req.Meals))
	for i, meal := range req.Meals {
		if _, dup := plan[meal.MealNumber]; dup {
			writeError(c, h.logger, &models.ValidationError{
				Field:   fmt.Sprintf("meals[%d].meal_number", i),
				Message: fmt.Sprintf("meal %d listed twice", meal.MealNumber),
			})
			return
		}
		entries, err := toEntries(meal.MealNumber, meal.FeedTypes)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		plan[meal.MealNumber] = entries
	}

	if err := h.allocator(c).SaveMealPlan(c.Request.Context(), penID, plan); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.GetMealPlan(c)
}

// PutMeal replaces the composition of one meal of a pen.
func (h *FeedHandler) PutMeal(c *gin.Context) {
	penID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	meal, err := strconv.Atoi(c.Param("meal"))
	if err != nil {
		writeError(c, h.logger, &models.ValidationError{Field: "meal_number", Message: "must be an integer"})
		return
	}

	var req mealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.logger, err)
		return
	}

	entries, err := toEntries(meal, req.FeedTypes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.allocator(c).SetMealAllocation(c.Request.Context(), penID, meal, entries); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, mealRequest{MealNumber: meal, FeedTypes: toEntryRequests(entries)})
}

// PenCalculation returns today's feeding plan of one pen. ?date=YYYY-MM-DD
// evaluates sheep ages at another day.
func (h *FeedHandler) PenCalculation(c *gin.Context) {
	penID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	asOf, err := h.asOf(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	plan, err := feeding.NewCalculator(tenantFrom(c).Farm(), h.defaults, h.logger).Compute(c.Request.Context(), penID, asOf)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// FarmCalculation returns the feeding plan of every pen.
func (h *FeedHandler) FarmCalculation(c *gin.Context) {
	asOf, err := h.asOf(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	plans, err := feeding.NewCalculator(tenantFrom(c).Farm(), h.defaults, h.logger).ComputeAll(c.Request.Context(), asOf)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var total float64
	for _, plan := range plans {
		total += plan.TotalDailyFeedKg
	}
	c.JSON(http.StatusOK, gin.H{"pens": plans, "total_daily_feed_kg": total})
}

func (h *FeedHandler) allocator(c *gin.Context) *feeding.Allocator {
	return feeding.NewAllocator(tenantFrom(c).Farm(), h.logger)
}

func (h *FeedHandler) asOf(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return h.now(), nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "date", Message: "must be formatted YYYY-MM-DD"}
	}
	return day, nil
}

func toEntries(meal int, raw []mealEntryRequest) ([]models.MealFeedEntry, error) {
	entries := make([]models.MealFeedEntry, 0, len(raw))
	for i, item := range raw {
		pct, err := models.ParseAmount(fmt.Sprintf("meals[%d].feed_types[%d].percentage", meal, i), item.Percentage)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.MealFeedEntry{FeedTypeID: item.FeedTypeID, Percentage: pct})
	}
	return entries, nil
}

func toEntryRequests(entries []models.MealFeedEntry) []mealEntryRequest {
	out := make([]mealEntryRequest, 0, len(entries))
	for _, entry := range entries {
		out = append(out, mealEntryRequest{
			FeedTypeID: entry.FeedTypeID,
			Percentage: json.Number(strconv.FormatFloat(entry.Percentage, 'f', -1, 64)),
		})
	}
	return out
}

func toMealRequests(allocation models.MealAllocation) []mealRequest {
	meals := make([]int, 0, len(allocation))
	for meal := range allocation {
		meals = append(meals, meal)
	}
	sort.Ints(meals)

	out := make([]mealRequest, 0, len(meals))
	for _, meal := range meals {
		out = append(out, mealRequest{MealNumber: meal, FeedTypes: toEntryRequests(allocation[meal])})
	}
	return out
}

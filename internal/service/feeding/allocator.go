package feeding

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/metrics"
)

type allocatorRepository interface {
	PenReader
	CatalogRepository
	AllocationRepository
}

// Allocator splits a pen's meals across feed types by percentage.
type Allocator struct {
	repo   allocatorRepository
	logger *zap.Logger
}

// NewAllocator wires a meal plan allocator.
func NewAllocator(repo allocatorRepository, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{repo: repo, logger: logger}
}

// SetMealAllocation replaces the composition of one meal of a pen.
// Nothing is written unless the entries are valid and sum to 100%.
func (a *Allocator) SetMealAllocation(ctx context.Context, penID int64, mealNumber int, entries []models.MealFeedEntry) error {
	return a.save(ctx, penID, models.MealAllocation{mealNumber: entries})
}

// SaveMealPlan replaces several meals at once. Every meal is checked first and
// all failures are returned together; no meal is written if any fails.
func (a *Allocator) SaveMealPlan(ctx context.Context, penID int64, plan models.MealAllocation) error {
	if len(plan) == 0 {
		return &models.ValidationError{Field: "meals", Message: "at least one meal is required"}
	}
	return a.save(ctx, penID, plan)
}

// GetMealAllocation returns the composition of every meal of a pen. Meals
// 1..meals_per_day are always present; stored meals beyond that are kept too.
func (a *Allocator) GetMealAllocation(ctx context.Context, penID int64) (models.MealAllocation, error) {
	pen, err := a.repo.GetPen(ctx, penID)
	if err != nil {
		return nil, err
	}

	stored, err := a.repo.ListMealAllocations(ctx, penID)
	if err != nil {
		return nil, err
	}

	allocation := make(models.MealAllocation, pen.MealsPerDay)
	for meal := 1; meal <= pen.MealsPerDay; meal++ {
		allocation[meal] = []models.MealFeedEntry{}
	}
	for meal, entries := range stored {
		allocation[meal] = entries
	}
	return allocation, nil
}

func (a *Allocator) save(ctx context.Context, penID int64, plan models.MealAllocation) error {
	pen, err := a.repo.GetPen(ctx, penID)
	if err != nil {
		return err
	}

	known, err := a.feedTypeIDs(ctx)
	if err != nil {
		return err
	}

	meals := make([]int, 0, len(plan))
	for meal := range plan {
		meals = append(meals, meal)
	}
	sort.Ints(meals)

	var errs error
	for _, meal := range meals {
		errs = multierr.Append(errs, validateMeal(pen, meal, plan[meal], known))
	}
	if errs != nil {
		metrics.MealAllocations.WithLabelValues(metrics.OutcomeRejected).Inc()
		a.logger.Info("meal allocation rejected", zap.Int64("pen_id", penID), zap.Error(errs))
		return errs
	}

	if err := a.repo.ReplaceMealAllocations(ctx, penID, plan); err != nil {
		metrics.MealAllocations.WithLabelValues(metrics.OutcomeError).Inc()
		return err
	}

	metrics.MealAllocations.WithLabelValues(metrics.OutcomeOK).Inc()
	a.logger.Debug("meal allocation saved", zap.Int64("pen_id", penID), zap.Ints("meals", meals))
	return nil
}

func (a *Allocator) feedTypeIDs(ctx context.Context) (map[int64]struct{}, error) {
	types, err := a.repo.ListFeedTypes(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{}, len(types))
	for _, ft := range types {
		ids[ft.ID] = struct{}{}
	}
	return ids, nil
}

func validateMeal(pen models.Pen, meal int, entries []models.MealFeedEntry, known map[int64]struct{}) error {
	if meal < 1 || meal > pen.MealsPerDay {
		return &models.ValidationError{
			Field:   "meal_number",
			Message: fmt.Sprintf("%d is outside 1..%d for pen %d", meal, pen.MealsPerDay, pen.ID),
		}
	}
	if len(entries) == 0 {
		return &models.ValidationError{Field: fmt.Sprintf("meals[%d]", meal), Message: "at least one feed type is required"}
	}

	seen := make(map[int64]struct{}, len(entries))
	for i, entry := range entries {
		field := fmt.Sprintf("meals[%d].feed_types[%d]", meal, i)
		if _, ok := known[entry.FeedTypeID]; !ok {
			return &models.ValidationError{Field: field + ".feed_type_id", Message: fmt.Sprintf("unknown feed type %d", entry.FeedTypeID)}
		}
		if _, dup := seen[entry.FeedTypeID]; dup {
			return &models.ValidationError{Field: field + ".feed_type_id", Message: fmt.Sprintf("feed type %d listed twice", entry.FeedTypeID)}
		}
		seen[entry.FeedTypeID] = struct{}{}

		if _, err := models.CheckFinite(field+".percentage", entry.Percentage); err != nil {
			return err
		}
		if entry.Percentage <= 0 || entry.Percentage > 100 {
			return &models.ValidationError{Field: field + ".percentage", Message: "must be in (0, 100]"}
		}
	}

	if total := models.SumPercentages(entries); !models.PercentagesComplete(total) {
		return &models.PercentageMismatchError{MealNumber: meal, Total: total}
	}
	return nil
}

package feeding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/metrics"
)

// UnresolvedStage labels sheep with neither an explicit stage nor a birth date.
const UnresolvedStage models.Stage = "unknown"

// Calculator computes the daily feeding plan of pens. It never writes.
type Calculator struct {
	repo     Repository
	settings *SettingsStore
	logger   *zap.Logger
}

// NewCalculator wires a calculator over a tenant repository.
func NewCalculator(repo Repository, defaults models.FarmDefaults, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		repo:     repo,
		settings: NewSettingsStore(repo, defaults),
		logger:   logger,
	}
}

// Compute builds the feeding plan of one pen as of the given instant.
func (c *Calculator) Compute(ctx context.Context, penID int64, asOf time.Time) (models.FeedCalculation, error) {
	pen, err := c.repo.GetPen(ctx, penID)
	if err != nil {
		return models.FeedCalculation{}, err
	}

	catalog, err := c.catalog(ctx)
	if err != nil {
		return models.FeedCalculation{}, err
	}

	return c.computePen(ctx, pen, catalog, asOf)
}

// ComputeAll builds the feeding plan of every pen, ordered by pen id.
func (c *Calculator) ComputeAll(ctx context.Context, asOf time.Time) ([]models.FeedCalculation, error) {
	pens, err := c.repo.ListPens(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := c.catalog(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]models.FeedCalculation, 0, len(pens))
	for _, pen := range pens {
		plan, err := c.computePen(ctx, pen, catalog, asOf)
		if err != nil {
			return nil, fmt.Errorf("compute pen %d: %w", pen.ID, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c *Calculator) computePen(ctx context.Context, pen models.Pen, catalog map[int64]models.FeedType, asOf time.Time) (models.FeedCalculation, error) {
	roster, err := c.repo.ListPenSheep(ctx, pen.ID)
	if err != nil {
		metrics.FeedCalculations.WithLabelValues(metrics.OutcomeError).Inc()
		return models.FeedCalculation{}, err
	}

	allocation, err := c.repo.ListMealAllocations(ctx, pen.ID)
	if err != nil {
		metrics.FeedCalculations.WithLabelValues(metrics.OutcomeError).Inc()
		return models.FeedCalculation{}, err
	}

	plan := models.FeedCalculation{
		PenID:        pen.ID,
		PenName:      pen.Name,
		MealsPerDay:  pen.MealsPerDay,
		StageSummary: map[models.Stage]models.StageSummary{},
	}

	rations := map[models.Stage]ration{}
	unknown := map[models.Stage]int{}

	for _, sheep := range roster {
		if !sheep.Present() {
			continue
		}
		plan.SheepCount++

		stage := sheep.ResolveStage(asOf)
		if stage == "" {
			stage = UnresolvedStage
		}

		r, cached := rations[stage]
		if !cached {
			kg, ok, err := c.settings.Get(ctx, stage)
			if err != nil {
				metrics.FeedCalculations.WithLabelValues(metrics.OutcomeError).Inc()
				return models.FeedCalculation{}, err
			}
			r = ration{kg: kg, known: ok}
			rations[stage] = r
		}
		if !r.known {
			unknown[stage]++
		}

		summary := plan.StageSummary[stage]
		summary.Count++
		summary.FeedPerHead = r.kg
		summary.TotalFeed += r.kg
		plan.StageSummary[stage] = summary

		plan.TotalDailyFeedKg += r.kg
	}

	for _, stage := range sortedStages(unknown) {
		count := unknown[stage]
		metrics.UnknownStageSheep.Add(float64(count))
		c.logger.Warn("stage has no ration, counting as 0 kg",
			zap.Int64("pen_id", pen.ID),
			zap.String("stage", string(stage)),
			zap.Int("sheep", count))
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d sheep with stage %q have no ration and were counted as 0 kg", count, stage))
	}

	meals := pen.MealsPerDay
	if meals < 1 {
		meals = 1
	}
	plan.FeedPerMealKg = plan.TotalDailyFeedKg / float64(meals)

	plan.Meals = make([]models.MealBreakdown, 0, meals)
	for meal := 1; meal <= meals; meal++ {
		breakdown := models.MealBreakdown{
			MealNumber:  meal,
			TotalFeedKg: plan.FeedPerMealKg,
			FeedTypes:   []models.FeedTypeAmount{},
		}
		for _, entry := range allocation[meal] {
			ft, ok := catalog[entry.FeedTypeID]
			if !ok {
				ft = models.FeedType{ID: entry.FeedTypeID, Name: fmt.Sprintf("feed type #%d", entry.FeedTypeID), Unit: models.DefaultFeedUnit}
			}
			breakdown.FeedTypes = append(breakdown.FeedTypes, models.FeedTypeAmount{
				FeedTypeID: ft.ID,
				Name:       ft.Name,
				Unit:       ft.Unit,
				Percentage: entry.Percentage,
				AmountKg:   plan.FeedPerMealKg * entry.Percentage / 100,
			})
		}
		plan.Meals = append(plan.Meals, breakdown)
	}

	metrics.FeedCalculations.WithLabelValues(metrics.OutcomeOK).Inc()
	return plan, nil
}

func (c *Calculator) catalog(ctx context.Context) (map[int64]models.FeedType, error) {
	types, err := c.repo.ListFeedTypes(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[int64]models.FeedType, len(types))
	for _, ft := range types {
		catalog[ft.ID] = ft
	}
	return catalog, nil
}

type ration struct {
	kg    float64
	known bool
}

func sortedStages(counts map[models.Stage]int) []models.Stage {
	stages := make([]models.Stage, 0, len(counts))
	for stage := range counts {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	return stages
}

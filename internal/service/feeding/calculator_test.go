package feeding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/service/feeding"
)

var asOf = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestCalculator_Compute(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)
	defaults := models.DefaultFarmDefaults()

	pen, err := repo.CreatePen(ctx, "North", 50, 2)
	require.NoError(t, err)
	addSheep(t, repo, pen.ID, "adult", 10, models.StageAdult)
	addSheep(t, repo, pen.ID, "lamb", 5, models.StageNewborn)

	barley := feedTypeID(t, repo, "Barley")
	alfalfa := feedTypeID(t, repo, "Alfalfa")
	mix := []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 60}, {FeedTypeID: alfalfa, Percentage: 40}}
	require.NoError(t, feeding.NewAllocator(repo, nil).SaveMealPlan(ctx, pen.ID, models.MealAllocation{1: mix, 2: mix}))

	calc := feeding.NewCalculator(repo, defaults, nil)

	t.Run("totals and split", func(t *testing.T) {
		plan, err := calc.Compute(ctx, pen.ID, asOf)
		require.NoError(t, err)

		assert.Equal(t, 15, plan.SheepCount)
		assert.InDelta(t, 17.5, plan.TotalDailyFeedKg, 1e-9)
		assert.InDelta(t, 8.75, plan.FeedPerMealKg, 1e-9)
		assert.Empty(t, plan.Warnings)

		assert.Equal(t, models.StageSummary{Count: 10, FeedPerHead: 1.5, TotalFeed: 15}, plan.StageSummary[models.StageAdult])
		assert.Equal(t, models.StageSummary{Count: 5, FeedPerHead: 0.5, TotalFeed: 2.5}, plan.StageSummary[models.StageNewborn])

		require.Len(t, plan.Meals, 2)
		for i, meal := range plan.Meals {
			assert.Equal(t, i+1, meal.MealNumber)
			require.Len(t, meal.FeedTypes, 2)
			assert.Equal(t, "Barley", meal.FeedTypes[0].Name)
			assert.InDelta(t, 5.25, meal.FeedTypes[0].AmountKg, 1e-9)
			assert.Equal(t, "Alfalfa", meal.FeedTypes[1].Name)
			assert.InDelta(t, 3.5, meal.FeedTypes[1].AmountKg, 1e-9)
		}
	})

	t.Run("amounts add back up to the total", func(t *testing.T) {
		plan, err := calc.Compute(ctx, pen.ID, asOf)
		require.NoError(t, err)

		var total float64
		for _, meal := range plan.Meals {
			var mealSum float64
			for _, ft := range meal.FeedTypes {
				mealSum += ft.AmountKg
			}
			assert.InDelta(t, plan.FeedPerMealKg, mealSum, 1e-9)
			total += mealSum
		}
		assert.InDelta(t, plan.TotalDailyFeedKg, total, 1e-9)
	})

	t.Run("settings changes apply on the next call", func(t *testing.T) {
		_, err := feeding.NewSettingsStore(repo, defaults).Set(ctx, models.StageAdult, 2)
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = feeding.NewSettingsStore(repo, defaults).Set(ctx, models.StageAdult, 1.5) })

		plan, err := calc.Compute(ctx, pen.ID, asOf)
		require.NoError(t, err)
		assert.InDelta(t, 22.5, plan.TotalDailyFeedKg, 1e-9)
	})

	t.Run("unknown pen", func(t *testing.T) {
		_, err := calc.Compute(ctx, 999, asOf)
		var nf *models.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
}

func TestCalculator_EmptyPen(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)

	pen, err := repo.CreatePen(ctx, "Empty", 10, 3)
	require.NoError(t, err)

	plan, err := feeding.NewCalculator(repo, models.DefaultFarmDefaults(), nil).Compute(ctx, pen.ID, asOf)
	require.NoError(t, err)

	assert.Zero(t, plan.SheepCount)
	assert.Zero(t, plan.TotalDailyFeedKg)
	assert.Zero(t, plan.FeedPerMealKg)
	assert.Empty(t, plan.StageSummary)
	require.Len(t, plan.Meals, 3)
	for _, meal := range plan.Meals {
		assert.NotNil(t, meal.FeedTypes)
		assert.Empty(t, meal.FeedTypes)
	}
}

func TestCalculator_StageResolution(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)

	pen, err := repo.CreatePen(ctx, "Mixed", 10, 1)
	require.NoError(t, err)

	lambBirth := asOf.AddDate(0, 0, -30)
	seniorBirth := asOf.AddDate(-3, 0, 0)
	flock := []models.Sheep{
		{ID: "derived-lamb", Gender: models.GenderMale, BirthDate: &lambBirth, Status: models.StatusAlive},
		{ID: "old-ewe", Gender: models.GenderFemale, BirthDate: &seniorBirth, Status: models.StatusAlive},
		{ID: "pregnant-ewe", Gender: models.GenderFemale, Stage: models.StageAdult, Status: models.StatusAlive},
		{ID: "dead", Gender: models.GenderMale, Stage: models.StageAdult, Status: models.StatusDead},
		{ID: "sold", Gender: models.GenderMale, Stage: models.StageAdult, Status: models.StatusSold},
		{ID: "odd-stage", Gender: models.GenderMale, Stage: "ram", Status: models.StatusAlive},
		{ID: "no-data", Gender: models.GenderMale, Status: models.StatusAlive},
	}
	for _, s := range flock {
		s.PenID = &pen.ID
		_, err := repo.CreateSheep(ctx, s)
		require.NoError(t, err)
	}
	_, err = repo.CreatePregnancy(ctx, models.Pregnancy{SheepID: "pregnant-ewe", MatingDate: asOf.AddDate(0, -1, 0)})
	require.NoError(t, err)

	plan, err := feeding.NewCalculator(repo, models.DefaultFarmDefaults(), nil).Compute(ctx, pen.ID, asOf)
	require.NoError(t, err)

	assert.Equal(t, 5, plan.SheepCount)
	assert.Equal(t, 1, plan.StageSummary[models.StageNewborn].Count)
	assert.Equal(t, 1, plan.StageSummary[models.StageSenior].Count)
	assert.Equal(t, 1, plan.StageSummary[models.StagePregnant].Count)
	assert.NotContains(t, plan.StageSummary, models.StageAdult)

	assert.Equal(t, models.StageSummary{Count: 1}, plan.StageSummary["ram"])
	assert.Equal(t, models.StageSummary{Count: 1}, plan.StageSummary[feeding.UnresolvedStage])
	assert.Len(t, plan.Warnings, 2)

	assert.InDelta(t, 0.5+1.2+2.0, plan.TotalDailyFeedKg, 1e-9)
}

func TestCalculator_ComputeAll(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)
	calc := feeding.NewCalculator(repo, models.DefaultFarmDefaults(), nil)

	plans, err := calc.ComputeAll(ctx, asOf)
	require.NoError(t, err)
	assert.Empty(t, plans)

	north, err := repo.CreatePen(ctx, "North", 10, 2)
	require.NoError(t, err)
	south, err := repo.CreatePen(ctx, "South", 10, 1)
	require.NoError(t, err)
	addSheep(t, repo, north.ID, "n", 2, models.StageAdult)
	addSheep(t, repo, south.ID, "s", 1, models.StageSenior)

	plans, err = calc.ComputeAll(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, north.ID, plans[0].PenID)
	assert.InDelta(t, 3.0, plans[0].TotalDailyFeedKg, 1e-9)
	assert.Equal(t, south.ID, plans[1].PenID)
	assert.InDelta(t, 1.2, plans[1].TotalDailyFeedKg, 1e-9)
}

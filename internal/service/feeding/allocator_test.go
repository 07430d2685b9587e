package feeding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/service/feeding"
)

func TestAllocator_SetMealAllocation(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)
	alloc := feeding.NewAllocator(repo, nil)

	pen, err := repo.CreatePen(ctx, "North", 20, 2)
	require.NoError(t, err)
	barley := feedTypeID(t, repo, "Barley")
	alfalfa := feedTypeID(t, repo, "Alfalfa")

	valid := []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 60}, {FeedTypeID: alfalfa, Percentage: 40}}
	require.NoError(t, alloc.SetMealAllocation(ctx, pen.ID, 1, valid))

	rejected := []struct {
		name    string
		meal    int
		entries []models.MealFeedEntry
	}{
		{"sums to 97", 1, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 60}, {FeedTypeID: alfalfa, Percentage: 37}}},
		{"sums to 101", 1, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 61}, {FeedTypeID: alfalfa, Percentage: 40}}},
		{"empty", 1, nil},
		{"meal zero", 0, valid},
		{"meal beyond meals per day", 3, valid},
		{"unknown feed type", 1, []models.MealFeedEntry{{FeedTypeID: 999, Percentage: 100}}},
		{"feed type twice", 1, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 50}, {FeedTypeID: barley, Percentage: 50}}},
		{"zero percentage", 1, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 100}, {FeedTypeID: alfalfa, Percentage: 0}}},
		{"over 100", 1, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 120}, {FeedTypeID: alfalfa, Percentage: -20}}},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, alloc.SetMealAllocation(ctx, pen.ID, tt.meal, tt.entries))

			got, err := alloc.GetMealAllocation(ctx, pen.ID)
			require.NoError(t, err)
			assert.Equal(t, valid, got[1])
		})
	}

	t.Run("mismatch carries the total", func(t *testing.T) {
		err := alloc.SetMealAllocation(ctx, pen.ID, 2, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 60}, {FeedTypeID: alfalfa, Percentage: 37}})
		var mismatch *models.PercentageMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 2, mismatch.MealNumber)
		assert.InDelta(t, 97, mismatch.Total, 1e-9)
	})

	t.Run("within tolerance", func(t *testing.T) {
		thirds := []models.MealFeedEntry{
			{FeedTypeID: barley, Percentage: 33.33},
			{FeedTypeID: alfalfa, Percentage: 33.33},
			{FeedTypeID: feedTypeID(t, repo, "Corn"), Percentage: 33.33},
		}
		require.NoError(t, alloc.SetMealAllocation(ctx, pen.ID, 2, thirds))
	})

	t.Run("unknown pen", func(t *testing.T) {
		var nf *models.NotFoundError
		assert.ErrorAs(t, alloc.SetMealAllocation(ctx, 999, 1, valid), &nf)
	})
}

func TestAllocator_SaveMealPlan(t *testing.T) {
	ctx := context.Background()
	repo := newFarm(t)
	alloc := feeding.NewAllocator(repo, nil)

	pen, err := repo.CreatePen(ctx, "North", 20, 3)
	require.NoError(t, err)
	barley := feedTypeID(t, repo, "Barley")
	straw := feedTypeID(t, repo, "Straw")

	t.Run("every failing meal is reported and nothing is written", func(t *testing.T) {
		err := alloc.SaveMealPlan(ctx, pen.ID, models.MealAllocation{
			1: {{FeedTypeID: barley, Percentage: 100}},
			2: {{FeedTypeID: barley, Percentage: 90}},
			3: {{FeedTypeID: straw, Percentage: 50}},
		})
		require.Error(t, err)

		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		var mismatch *models.PercentageMismatchError
		require.ErrorAs(t, errs[0], &mismatch)
		assert.Equal(t, 2, mismatch.MealNumber)
		require.ErrorAs(t, errs[1], &mismatch)
		assert.Equal(t, 3, mismatch.MealNumber)

		stored, err := repo.ListMealAllocations(ctx, pen.ID)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("empty plan", func(t *testing.T) {
		var verr *models.ValidationError
		assert.ErrorAs(t, alloc.SaveMealPlan(ctx, pen.ID, models.MealAllocation{}), &verr)
	})

	t.Run("valid plan", func(t *testing.T) {
		require.NoError(t, alloc.SaveMealPlan(ctx, pen.ID, models.MealAllocation{
			1: {{FeedTypeID: barley, Percentage: 100}},
			3: {{FeedTypeID: straw, Percentage: 100}},
		}))

		got, err := alloc.GetMealAllocation(ctx, pen.ID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Empty(t, got[2])
		assert.NotNil(t, got[2])
		assert.Equal(t, straw, got[3][0].FeedTypeID)
	})

	t.Run("meals dropped from the pen stay stored but are not computed", func(t *testing.T) {
		pen.MealsPerDay = 1
		require.NoError(t, repo.UpdatePen(ctx, pen))

		got, err := alloc.GetMealAllocation(ctx, pen.ID)
		require.NoError(t, err)
		assert.Contains(t, got, 3)

		plan, err := feeding.NewCalculator(repo, models.DefaultFarmDefaults(), nil).Compute(ctx, pen.ID, asOf)
		require.NoError(t, err)
		assert.Len(t, plan.Meals, 1)

		var verr *models.ValidationError
		assert.ErrorAs(t, alloc.SetMealAllocation(ctx, pen.ID, 3, []models.MealFeedEntry{{FeedTypeID: barley, Percentage: 100}}), &verr)
	})
}

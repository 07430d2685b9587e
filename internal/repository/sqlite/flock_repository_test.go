package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

func TestFarmRepository_Pens(t *testing.T) {
	ctx := context.Background()
	repo := openTestFarm(t, newTestProvisioner(t), "owner")

	pen, err := repo.CreatePen(ctx, "North", 2, 2)
	require.NoError(t, err)

	for i, status := range []models.Status{models.StatusAlive, models.StatusAlive, models.StatusAlive, models.StatusSold} {
		_, err := repo.CreateSheep(ctx, models.Sheep{
			ID:     string(rune('A' + i)),
			Gender: models.GenderFemale,
			Status: status,
			PenID:  &pen.ID,
		})
		require.NoError(t, err)
	}

	got, err := repo.GetPen(ctx, pen.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SheepCount)
	assert.True(t, got.OverCapacity())

	_, err = repo.GetPen(ctx, 404)
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "pen", nf.Entity)

	err = repo.UpdatePen(ctx, models.Pen{ID: 404, Name: "x", Capacity: 1, MealsPerDay: 1})
	assert.ErrorAs(t, err, &nf)
}

func TestFarmRepository_Sheep(t *testing.T) {
	ctx := context.Background()
	repo := openTestFarm(t, newTestProvisioner(t), "owner")

	pen, err := repo.CreatePen(ctx, "North", 10, 2)
	require.NoError(t, err)

	birth := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.CreateSheep(ctx, models.Sheep{ID: "E1", Gender: models.GenderFemale, BirthDate: &birth, Status: models.StatusAlive, PenID: &pen.ID})
	require.NoError(t, err)
	_, err = repo.CreateSheep(ctx, models.Sheep{ID: "R1", Gender: models.GenderMale, Stage: models.StageAdult, Status: models.StatusAlive})
	require.NoError(t, err)

	t.Run("duplicate id", func(t *testing.T) {
		_, err := repo.CreateSheep(ctx, models.Sheep{ID: "E1", Gender: models.GenderFemale, Status: models.StatusAlive})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "id", verr.Field)
	})

	t.Run("round trip", func(t *testing.T) {
		ewe, err := repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		require.NotNil(t, ewe.BirthDate)
		assert.True(t, birth.Equal(*ewe.BirthDate))
		assert.Equal(t, pen.ID, *ewe.PenID)
		assert.Equal(t, models.Stage(""), ewe.Stage)
		assert.False(t, ewe.Pregnant)

		ram, err := repo.GetSheep(ctx, "R1")
		require.NoError(t, err)
		assert.Nil(t, ram.PenID)
		assert.Equal(t, models.StageAdult, ram.Stage)
	})

	t.Run("list by pen", func(t *testing.T) {
		all, err := repo.ListSheep(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		inPen, err := repo.ListPenSheep(ctx, pen.ID)
		require.NoError(t, err)
		require.Len(t, inPen, 1)
		assert.Equal(t, "E1", inPen[0].ID)
	})

	t.Run("pregnancy lifecycle", func(t *testing.T) {
		p, err := repo.CreatePregnancy(ctx, models.Pregnancy{SheepID: "E1", MatingDate: birth.AddDate(1, 0, 0)})
		require.NoError(t, err)
		assert.NotZero(t, p.ID)

		ewe, err := repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		assert.True(t, ewe.Pregnant)

		require.NoError(t, repo.MarkDelivered(ctx, p.ID, time.Now()))

		ewe, err = repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		assert.False(t, ewe.Pregnant)

		var nf *models.NotFoundError
		assert.ErrorAs(t, repo.MarkDelivered(ctx, p.ID, time.Now()), &nf)
	})

	t.Run("refresh derived stages", func(t *testing.T) {
		asOf := birth.AddDate(0, 0, 30)
		changed, err := repo.RefreshDerivedStages(ctx, asOf)
		require.NoError(t, err)
		assert.Equal(t, 1, changed)

		ewe, err := repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, models.StageNewborn, ewe.DerivedStage)

		changed, err = repo.RefreshDerivedStages(ctx, asOf)
		require.NoError(t, err)
		assert.Zero(t, changed)

		changed, err = repo.RefreshDerivedStages(ctx, birth.AddDate(0, 0, 100))
		require.NoError(t, err)
		assert.Equal(t, 1, changed)
	})

	t.Run("update and unassign", func(t *testing.T) {
		ewe, err := repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		ewe.PenID = nil
		ewe.Status = models.StatusDead
		require.NoError(t, repo.UpdateSheep(ctx, ewe))

		got, err := repo.GetSheep(ctx, "E1")
		require.NoError(t, err)
		assert.Nil(t, got.PenID)
		assert.Equal(t, models.StatusDead, got.Status)

		var nf *models.NotFoundError
		assert.ErrorAs(t, repo.UpdateSheep(ctx, models.Sheep{ID: "nobody", Gender: models.GenderMale, Status: models.StatusAlive}), &nf)
	})
}

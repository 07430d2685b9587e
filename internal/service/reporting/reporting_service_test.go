package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
)

type fakeArchive struct {
	saved []models.FeedReport
	err   error
}

func (f *fakeArchive) SaveFeedReport(_ context.Context, report models.FeedReport) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, report)
	return nil
}

func (f *fakeArchive) ListFeedReports(_ context.Context, userID string, _ int64) ([]models.FeedReport, error) {
	var out []models.FeedReport
	for _, r := range f.saved {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSheet struct {
	rows [][]interface{}
}

func (f *fakeSheet) AppendRows(_ context.Context, _ string, rows [][]interface{}) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSheet) ReadRange(_ context.Context, _ string) ([][]interface{}, error) {
	return f.rows, nil
}

var reportDay = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

func seededProvisioner(t *testing.T) *sqlite.Provisioner {
	t.Helper()

	ctx := context.Background()
	p, err := sqlite.NewProvisioner(t.TempDir(), models.DefaultFarmDefaults(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.Provision(ctx, "owner")
	require.NoError(t, err)

	err = p.WithTenant(ctx, "owner", func(tenant *sqlite.Tenant) error {
		repo := tenant.Farm()
		pen, err := repo.CreatePen(ctx, "North", 10, 2)
		if err != nil {
			return err
		}
		for _, id := range []string{"a", "b"} {
			if _, err := repo.CreateSheep(ctx, models.Sheep{ID: id, Gender: models.GenderMale, Stage: models.StageAdult, Status: models.StatusAlive, PenID: &pen.ID}); err != nil {
				return err
			}
		}
		return repo.ReplaceMealAllocations(ctx, pen.ID, models.MealAllocation{
			1: {{FeedTypeID: 1, Percentage: 50}, {FeedTypeID: 2, Percentage: 50}},
		})
	})
	require.NoError(t, err)
	return p
}

func TestService_PublishFeedReport(t *testing.T) {
	ctx := context.Background()
	archive := &fakeArchive{}
	sheet := &fakeSheet{}

	svc := NewService(seededProvisioner(t), archive, sheet, models.DefaultFarmDefaults(), nil)
	svc.now = func() time.Time { return reportDay }

	report, err := svc.PublishFeedReport(ctx, "owner")
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "2025-06-01", report.Date.Format(dateLayout))
	assert.Equal(t, 1, report.PenCount)
	assert.Equal(t, 2, report.SheepCount)
	assert.InDelta(t, 3.0, report.TotalDailyFeedKg, 1e-9)
	assert.Contains(t, report.Summary, "North: 2 sheep, 3.00 kg/day")

	require.Len(t, archive.saved, 1)
	assert.Equal(t, report.ID, archive.saved[0].ID)

	// Meal 1 has two feed types, meal 2 has none.
	require.Len(t, sheet.rows, 3)
	assert.Equal(t, []interface{}{"2025-06-01", "owner", "North", 1, "Barley", 50.0, 0.75, "kg"}, sheet.rows[0])
	assert.Equal(t, []interface{}{"2025-06-01", "owner", "North", 2, unspecifiedFeed, 0, 1.5, "kg"}, sheet.rows[2])

	t.Run("second run same day does not export twice", func(t *testing.T) {
		_, err := svc.PublishFeedReport(ctx, "owner")
		require.NoError(t, err)
		assert.Len(t, sheet.rows, 3)
		assert.Len(t, archive.saved, 2)
	})

	t.Run("history reads the archive", func(t *testing.T) {
		reports, err := svc.History(ctx, "owner", 10)
		require.NoError(t, err)
		assert.Len(t, reports, 2)
	})
}

func TestService_PublishFeedReport_Degraded(t *testing.T) {
	ctx := context.Background()
	p := seededProvisioner(t)

	t.Run("archive failure is not fatal", func(t *testing.T) {
		svc := NewService(p, &fakeArchive{err: errors.New("mongo down")}, nil, models.DefaultFarmDefaults(), nil)
		_, err := svc.PublishFeedReport(ctx, "owner")
		assert.NoError(t, err)
	})

	t.Run("no integrations", func(t *testing.T) {
		svc := NewService(p, nil, nil, models.DefaultFarmDefaults(), nil)
		_, err := svc.PublishFeedReport(ctx, "owner")
		require.NoError(t, err)

		reports, err := svc.History(ctx, "owner", 0)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		svc := NewService(p, nil, nil, models.DefaultFarmDefaults(), nil)
		_, err := svc.PublishFeedReport(ctx, "ghost")
		var npe *models.NotProvisionedError
		assert.ErrorAs(t, err, &npe)
	})
}

func TestFormatFeedReport_NoPens(t *testing.T) {
	text := FormatFeedReport(models.FeedReport{Date: reportDay})
	assert.Equal(t, "Feeding plan 2025-06-01\nNo pens configured yet.", text)
}

func TestFormatPenPlan(t *testing.T) {
	text := FormatPenPlan(models.FeedCalculation{
		PenName:          "North",
		MealsPerDay:      2,
		SheepCount:       3,
		TotalDailyFeedKg: 4,
		FeedPerMealKg:    2,
		Meals: []models.MealBreakdown{
			{MealNumber: 1, TotalFeedKg: 2, FeedTypes: []models.FeedTypeAmount{{Name: "Barley", Unit: "kg", Percentage: 100, AmountKg: 2}}},
			{MealNumber: 2, TotalFeedKg: 2, FeedTypes: []models.FeedTypeAmount{}},
		},
		Warnings: []string{"1 sheep with stage \"ram\" have no ration and were counted as 0 kg"},
	})

	assert.Contains(t, text, "North: 3 sheep, 4.00 kg/day (2.00 kg x 2 meals)")
	assert.Contains(t, text, "Meal 1: Barley 2.00 kg")
	assert.Contains(t, text, "Meal 2: 2.00 kg (no mix set)")
	assert.Contains(t, text, "! 1 sheep")
}

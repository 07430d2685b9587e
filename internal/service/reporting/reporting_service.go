package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/mongodb"
	"github.com/mamadbah2/sheepfold/internal/repository/sheets"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
	"github.com/mamadbah2/sheepfold/internal/service/feeding"
)

const (
	dateLayout        = "2006-01-02"
	feedPlanDataRange = "FeedPlan!A:H"
	feedPlanDateRange = "FeedPlan!A:B"
	unspecifiedFeed   = "unspecified"
)

// TenantRunner gives scoped access to a tenant store.
type TenantRunner interface {
	WithTenant(ctx context.Context, userID string, fn func(t *sqlite.Tenant) error) error
}

// Service builds daily feed reports and ships them to the archive and the spreadsheet.
type Service struct {
	tenants  TenantRunner
	archive  mongodb.Repository
	sheets   sheets.Repository
	defaults models.FarmDefaults
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance. archive and sheet may be nil.
func NewService(tenants TenantRunner, archive mongodb.Repository, sheet sheets.Repository, defaults models.FarmDefaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tenants:  tenants,
		archive:  archive,
		sheets:   sheet,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildFeedReport computes the feeding plan of every pen of a tenant.
func (s *Service) BuildFeedReport(ctx context.Context, userID string) (models.FeedReport, error) {
	now := s.now()
	report := models.FeedReport{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt: now.UTC(),
	}

	err := s.tenants.WithTenant(ctx, userID, func(t *sqlite.Tenant) error {
		calc := feeding.NewCalculator(t.Farm(), s.defaults, s.logger.Named("calculator"))
		plans, err := calc.ComputeAll(ctx, now)
		if err != nil {
			return err
		}
		report.Pens = plans
		return nil
	})
	if err != nil {
		return models.FeedReport{}, fmt.Errorf("build feed report for %s: %w", userID, err)
	}

	for _, plan := range report.Pens {
		report.PenCount++
		report.SheepCount += plan.SheepCount
		report.TotalDailyFeedKg += plan.TotalDailyFeedKg
	}
	report.Summary = FormatFeedReport(report)

	return report, nil
}

// PublishFeedReport builds the report, archives it and exports it to the spreadsheet.
// Archive and export failures are logged and do not fail the report.
func (s *Service) PublishFeedReport(ctx context.Context, userID string) (models.FeedReport, error) {
	report, err := s.BuildFeedReport(ctx, userID)
	if err != nil {
		return models.FeedReport{}, err
	}

	if s.archive != nil {
		if err := s.archive.SaveFeedReport(ctx, report); err != nil {
			s.logger.Error("failed to archive feed report", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if s.sheets != nil {
		if err := s.exportToSheet(ctx, report); err != nil {
			s.logger.Error("failed to export feed report", zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.logger.Info("feed report published",
		zap.String("user_id", userID),
		zap.String("report_id", report.ID),
		zap.Int("pens", report.PenCount),
		zap.Float64("total_kg", report.TotalDailyFeedKg))

	return report, nil
}

// History returns archived reports of a tenant, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int64) ([]models.FeedReport, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.ListFeedReports(ctx, userID, limit)
}

func (s *Service) exportToSheet(ctx context.Context, report models.FeedReport) error {
	date := report.Date.Format(dateLayout)

	exported, err := s.alreadyExported(ctx, report.UserID, date)
	if err != nil {
		return err
	}
	if exported {
		s.logger.Debug("feed plan already exported", zap.String("user_id", report.UserID), zap.String("date", date))
		return nil
	}

	return s.sheets.AppendRows(ctx, feedPlanDataRange, SheetRows(report))
}

func (s *Service) alreadyExported(ctx context.Context, userID, date string) (bool, error) {
	rows, err := s.sheets.ReadRange(ctx, feedPlanDateRange)
	if err != nil {
		return false, fmt.Errorf("load exported dates: %w", err)
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if fmt.Sprint(row[0]) == date && fmt.Sprint(row[1]) == userID {
			return true, nil
		}
	}
	return false, nil
}

// SheetRows flattens a report into one row per pen, meal and feed type:
// date, user, pen, meal, feed type, percentage, amount, unit.
func SheetRows(report models.FeedReport) [][]interface{} {
	date := report.Date.Format(dateLayout)

	var rows [][]interface{}
	for _, plan := range report.Pens {
		for _, meal := range plan.Meals {
			if len(meal.FeedTypes) == 0 {
				rows = append(rows, []interface{}{date, report.UserID, plan.PenName, meal.MealNumber, unspecifiedFeed, 0, round2(meal.TotalFeedKg), models.DefaultFeedUnit})
				continue
			}
			for _, ft := range meal.FeedTypes {
				rows = append(rows, []interface{}{date, report.UserID, plan.PenName, meal.MealNumber, ft.Name, ft.Percentage, round2(ft.AmountKg), ft.Unit})
			}
		}
	}
	return rows
}

// FormatFeedReport renders the report as a short text message.
func FormatFeedReport(report models.FeedReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Feeding plan %s\n", report.Date.Format(dateLayout))
	if report.PenCount == 0 {
		b.WriteString("No pens configured yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d pens, %d sheep, %.2f kg/day\n", report.PenCount, report.SheepCount, report.TotalDailyFeedKg)

	for _, plan := range report.Pens {
		b.WriteString(FormatPenPlan(plan))
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatPenPlan renders the plan of one pen.
func FormatPenPlan(plan models.FeedCalculation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s: %d sheep, %.2f kg/day (%.2f kg x %d meals)\n",
		plan.PenName, plan.SheepCount, plan.TotalDailyFeedKg, plan.FeedPerMealKg, plan.MealsPerDay)

	for _, meal := range plan.Meals {
		if len(meal.FeedTypes) == 0 {
			fmt.Fprintf(&b, "  Meal %d: %.2f kg (no mix set)\n", meal.MealNumber, meal.TotalFeedKg)
			continue
		}
		parts := make([]string, 0, len(meal.FeedTypes))
		for _, ft := range meal.FeedTypes {
			parts = append(parts, fmt.Sprintf("%s %.2f %s", ft.Name, ft.AmountKg, ft.Unit))
		}
		fmt.Fprintf(&b, "  Meal %d: %s\n", meal.MealNumber, strings.Join(parts, ", "))
	}

	for _, warning := range plan.Warnings {
		fmt.Fprintf(&b, "  ! %s\n", warning)
	}

	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

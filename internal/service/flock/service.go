// Package flock manages pens, sheep and pregnancies, the roster the feed
// calculation reads from.
package flock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// Repository persists the flock of one tenant.
type Repository interface {
	CreatePen(ctx context.Context, name string, capacity, mealsPerDay int) (models.Pen, error)
	GetPen(ctx context.Context, id int64) (models.Pen, error)
	ListPens(ctx context.Context) ([]models.Pen, error)
	UpdatePen(ctx context.Context, pen models.Pen) error
	CreateSheep(ctx context.Context, sheep models.Sheep) (models.Sheep, error)
	GetSheep(ctx context.Context, id string) (models.Sheep, error)
	ListSheep(ctx context.Context, penID *int64) ([]models.Sheep, error)
	UpdateSheep(ctx context.Context, sheep models.Sheep) error
	GetFeedSetting(ctx context.Context, stage models.Stage) (float64, bool, error)
	CreatePregnancy(ctx context.Context, p models.Pregnancy) (models.Pregnancy, error)
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
}

// NewSheep is the input of CreateSheep.
type NewSheep struct {
	ID        string
	Gender    string
	BirthDate *time.Time
	Stage     string
	Status    string
	PenID     *int64
}

// SheepPatch lists the fields UpdateSheep may change. Nil means unchanged.
type SheepPatch struct {
	Stage     *string
	Status    *string
	PenID     *int64
	ClearPen  bool
	BirthDate *time.Time
}

// PenPatch lists the fields UpdatePen may change. Nil means unchanged.
type PenPatch struct {
	Name        *string
	Capacity    *int
	MealsPerDay *int
}

// Service implements the flock operations with their validation rules.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a flock service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreatePen adds a pen.
func (s *Service) CreatePen(ctx context.Context, name string, capacity, mealsPerDay int) (models.Pen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Pen{}, &models.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if err := models.ValidatePenSettings(capacity, mealsPerDay); err != nil {
		return models.Pen{}, err
	}
	return s.repo.CreatePen(ctx, name, capacity, mealsPerDay)
}

// GetPen loads a pen with its sheep count.
func (s *Service) GetPen(ctx context.Context, id int64) (models.Pen, error) {
	return s.repo.GetPen(ctx, id)
}

// ListPens returns every pen with its sheep count.
func (s *Service) ListPens(ctx context.Context) ([]models.Pen, error) {
	return s.repo.ListPens(ctx)
}

// UpdatePen applies a patch. Reducing meals_per_day keeps the meal plans of
// dropped meals in storage; they are no longer used by calculations.
func (s *Service) UpdatePen(ctx context.Context, id int64, patch PenPatch) (models.Pen, error) {
	pen, err := s.repo.GetPen(ctx, id)
	if err != nil {
		return models.Pen{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Pen{}, &models.ValidationError{Field: "name", Message: "must not be empty"}
		}
		pen.Name = name
	}
	if patch.Capacity != nil {
		pen.Capacity = *patch.Capacity
	}
	if patch.MealsPerDay != nil {
		pen.MealsPerDay = *patch.MealsPerDay
	}
	if err := models.ValidatePenSettings(pen.Capacity, pen.MealsPerDay); err != nil {
		return models.Pen{}, err
	}

	if err := s.repo.UpdatePen(ctx, pen); err != nil {
		return models.Pen{}, err
	}
	return pen, nil
}

// CreateSheep adds a sheep and returns capacity warnings for its pen.
func (s *Service) CreateSheep(ctx context.Context, input NewSheep) (models.Sheep, []string, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return models.Sheep{}, nil, &models.ValidationError{Field: "id", Message: "must not be empty"}
	}

	gender, err := models.ParseGender(input.Gender)
	if err != nil {
		return models.Sheep{}, nil, err
	}
	status, err := models.ParseStatus(input.Status)
	if err != nil {
		return models.Sheep{}, nil, err
	}
	if err := s.checkBirthDate(input.BirthDate); err != nil {
		return models.Sheep{}, nil, err
	}
	stage, err := s.checkStage(ctx, input.Stage)
	if err != nil {
		return models.Sheep{}, nil, err
	}

	sheep := models.Sheep{
		ID:        id,
		Gender:    gender,
		BirthDate: input.BirthDate,
		Stage:     stage,
		Status:    status,
		PenID:     input.PenID,
	}

	var warnings []string
	if sheep.PenID != nil {
		warnings, err = s.capacityWarnings(ctx, *sheep.PenID, 1)
		if err != nil {
			return models.Sheep{}, nil, err
		}
	}

	created, err := s.repo.CreateSheep(ctx, sheep)
	if err != nil {
		return models.Sheep{}, nil, err
	}
	return created, warnings, nil
}

// ListSheep returns the flock, optionally limited to a pen.
func (s *Service) ListSheep(ctx context.Context, penID *int64) ([]models.Sheep, error) {
	return s.repo.ListSheep(ctx, penID)
}

// UpdateSheep applies a patch and returns capacity warnings when the sheep moves pen.
func (s *Service) UpdateSheep(ctx context.Context, id string, patch SheepPatch) (models.Sheep, []string, error) {
	sheep, err := s.repo.GetSheep(ctx, id)
	if err != nil {
		return models.Sheep{}, nil, err
	}

	if patch.Stage != nil {
		stage, err := s.checkStage(ctx, *patch.Stage)
		if err != nil {
			return models.Sheep{}, nil, err
		}
		sheep.Stage = stage
	}
	if patch.Status != nil {
		status, err := models.ParseStatus(*patch.Status)
		if err != nil {
			return models.Sheep{}, nil, err
		}
		sheep.Status = status
	}
	if patch.BirthDate != nil {
		if err := s.checkBirthDate(patch.BirthDate); err != nil {
			return models.Sheep{}, nil, err
		}
		sheep.BirthDate = patch.BirthDate
	}

	var warnings []string
	switch {
	case patch.ClearPen:
		sheep.PenID = nil
	case patch.PenID != nil && (sheep.PenID == nil || *sheep.PenID != *patch.PenID):
		warnings, err = s.capacityWarnings(ctx, *patch.PenID, 1)
		if err != nil {
			return models.Sheep{}, nil, err
		}
		pen := *patch.PenID
		sheep.PenID = &pen
	}

	if err := s.repo.UpdateSheep(ctx, sheep); err != nil {
		return models.Sheep{}, nil, err
	}
	return sheep, warnings, nil
}

// RecordPregnancy opens a gestation for a living ewe.
func (s *Service) RecordPregnancy(ctx context.Context, sheepID string, matingDate time.Time, expected *time.Time, notes string) (models.Pregnancy, error) {
	sheep, err := s.repo.GetSheep(ctx, sheepID)
	if err != nil {
		return models.Pregnancy{}, err
	}
	if sheep.Gender != models.GenderFemale {
		return models.Pregnancy{}, &models.ValidationError{Field: "sheep_id", Message: fmt.Sprintf("sheep %s is not a female", sheepID)}
	}
	if !sheep.Present() {
		return models.Pregnancy{}, &models.ValidationError{Field: "sheep_id", Message: fmt.Sprintf("sheep %s is %s", sheepID, sheep.Status)}
	}
	if sheep.Pregnant {
		return models.Pregnancy{}, &models.ValidationError{Field: "sheep_id", Message: fmt.Sprintf("sheep %s already has an active pregnancy", sheepID)}
	}
	if matingDate.IsZero() {
		return models.Pregnancy{}, &models.ValidationError{Field: "mating_date", Message: "is required"}
	}
	if expected != nil && expected.Before(matingDate) {
		return models.Pregnancy{}, &models.ValidationError{Field: "expected_date", Message: "must not be before mating_date"}
	}

	return s.repo.CreatePregnancy(ctx, models.Pregnancy{
		SheepID:      sheepID,
		MatingDate:   matingDate,
		ExpectedDate: expected,
		Notes:        strings.TrimSpace(notes),
	})
}

// MarkDelivered closes an active pregnancy today.
func (s *Service) MarkDelivered(ctx context.Context, pregnancyID int64) error {
	return s.repo.MarkDelivered(ctx, pregnancyID, s.now())
}

func (s *Service) capacityWarnings(ctx context.Context, penID int64, incoming int) ([]string, error) {
	pen, err := s.repo.GetPen(ctx, penID)
	if err != nil {
		return nil, err
	}
	if pen.SheepCount+incoming <= pen.Capacity {
		return nil, nil
	}

	s.logger.Info("pen over capacity",
		zap.Int64("pen_id", pen.ID),
		zap.Int("capacity", pen.Capacity),
		zap.Int("sheep", pen.SheepCount+incoming))
	return []string{fmt.Sprintf("pen %q holds %d sheep for a capacity of %d", pen.Name, pen.SheepCount+incoming, pen.Capacity)}, nil
}

// checkStage accepts an empty override, a built-in stage, or a stage the farm
// has a feed setting for.
func (s *Service) checkStage(ctx context.Context, raw string) (models.Stage, error) {
	stage := models.Stage(strings.TrimSpace(raw))
	if stage == "" || stage.Known() {
		return stage, nil
	}

	_, ok, err := s.repo.GetFeedSetting(ctx, stage)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &models.ValidationError{Field: "stage", Message: fmt.Sprintf("unknown stage %q", stage)}
	}
	return stage, nil
}

func (s *Service) checkBirthDate(birth *time.Time) error {
	if birth != nil && birth.After(s.now()) {
		return &models.ValidationError{Field: "birth_date", Message: "must not be in the future"}
	}
	return nil
}

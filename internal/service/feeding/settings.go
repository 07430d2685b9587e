package feeding

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// SettingsStore resolves the daily ration of each stage.
type SettingsStore struct {
	repo     SettingsRepository
	defaults models.FarmDefaults
}

// NewSettingsStore builds a store falling back to defaults for stages without a row.
func NewSettingsStore(repo SettingsRepository, defaults models.FarmDefaults) *SettingsStore {
	return &SettingsStore{repo: repo, defaults: defaults}
}

// Get returns the ration of stage. ok is false when neither a row nor a default exists.
func (s *SettingsStore) Get(ctx context.Context, stage models.Stage) (float64, bool, error) {
	kg, ok, err := s.repo.GetFeedSetting(ctx, stage)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return kg, true, nil
	}

	kg, ok = s.defaults.DailyFeedFor(stage)
	return kg, ok, nil
}

// Set upserts the ration of stage.
func (s *SettingsStore) Set(ctx context.Context, stage models.Stage, kg float64) (models.FeedSetting, error) {
	stage = models.Stage(strings.TrimSpace(string(stage)))
	if stage == "" {
		return models.FeedSetting{}, &models.ValidationError{Field: "stage", Message: "must not be empty"}
	}

	field := fmt.Sprintf("daily_feed_kg[%s]", stage)
	if _, err := models.CheckFinite(field, kg); err != nil {
		return models.FeedSetting{}, err
	}
	if kg < 0 {
		return models.FeedSetting{}, &models.ValidationError{Field: field, Message: "must not be negative"}
	}

	if err := s.repo.UpsertFeedSetting(ctx, stage, kg); err != nil {
		return models.FeedSetting{}, err
	}
	return models.FeedSetting{Stage: stage, DailyFeedKg: kg, Stored: true}, nil
}

// List returns the effective ration table: stored rows merged over the defaults.
func (s *SettingsStore) List(ctx context.Context) ([]models.FeedSetting, error) {
	stored, err := s.repo.ListFeedSettings(ctx)
	if err != nil {
		return nil, err
	}

	effective := make(map[models.Stage]models.FeedSetting, len(stored)+len(s.defaults.FeedSettings))
	for _, setting := range s.defaults.FeedSettings {
		setting.Stored = false
		effective[setting.Stage] = setting
	}
	for _, setting := range stored {
		setting.Stored = true
		effective[setting.Stage] = setting
	}

	settings := make([]models.FeedSetting, 0, len(effective))
	for _, setting := range effective {
		settings = append(settings, setting)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Stage < settings[j].Stage })
	return settings, nil
}

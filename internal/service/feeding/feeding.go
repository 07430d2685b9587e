// Package feeding turns a pen's roster, stage rations and meal plans into a
// daily feeding plan.
package feeding

import (
	"context"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// SettingsRepository persists per-stage rations.
type SettingsRepository interface {
	GetFeedSetting(ctx context.Context, stage models.Stage) (float64, bool, error)
	ListFeedSettings(ctx context.Context) ([]models.FeedSetting, error)
	UpsertFeedSetting(ctx context.Context, stage models.Stage, kg float64) error
}

// CatalogRepository persists feed ingredients.
type CatalogRepository interface {
	InsertFeedType(ctx context.Context, name, unit string) (models.FeedType, error)
	ListFeedTypes(ctx context.Context) ([]models.FeedType, error)
}

// PenReader loads pens.
type PenReader interface {
	GetPen(ctx context.Context, id int64) (models.Pen, error)
	ListPens(ctx context.Context) ([]models.Pen, error)
}

// AllocationRepository persists meal compositions.
type AllocationRepository interface {
	ReplaceMealAllocations(ctx context.Context, penID int64, allocation models.MealAllocation) error
	ListMealAllocations(ctx context.Context, penID int64) (models.MealAllocation, error)
}

// RosterProvider lists the sheep assigned to a pen.
type RosterProvider interface {
	ListPenSheep(ctx context.Context, penID int64) ([]models.Sheep, error)
}

// Repository is everything the feeding services need from a tenant store.
type Repository interface {
	SettingsRepository
	CatalogRepository
	PenReader
	AllocationRepository
	RosterProvider
}

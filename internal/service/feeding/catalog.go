package feeding

import (
	"context"
	"strings"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// Catalog manages the feed ingredients of a farm.
type Catalog struct {
	repo CatalogRepository
}

// NewCatalog wires a catalog over its repository.
func NewCatalog(repo CatalogRepository) *Catalog {
	return &Catalog{repo: repo}
}

// Add registers a feed type. Names are trimmed, then matched exactly, case included.
func (c *Catalog) Add(ctx context.Context, name, unit string) (models.FeedType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.FeedType{}, &models.ValidationError{Field: "name", Message: "must not be empty"}
	}

	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = models.DefaultFeedUnit
	}

	return c.repo.InsertFeedType(ctx, name, unit)
}

// List returns the catalog in insertion order.
func (c *Catalog) List(ctx context.Context) ([]models.FeedType, error) {
	return c.repo.ListFeedTypes(ctx)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// GetFeedSetting returns the stored ration of a stage. ok is false when no row exists.
func (r *FarmRepository) GetFeedSetting(ctx context.Context, stage models.Stage) (float64, bool, error) {
	var kg float64
	err := r.db.QueryRowContext(ctx, `SELECT daily_feed_kg FROM feed_settings WHERE stage = ?`, string(stage)).Scan(&kg)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select feed setting %s: %w", stage, err)
	}
	return kg, true, nil
}

// ListFeedSettings returns every stored ration ordered by stage.
func (r *FarmRepository) ListFeedSettings(ctx context.Context) ([]models.FeedSetting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stage, daily_feed_kg FROM feed_settings ORDER BY stage`)
	if err != nil {
		return nil, fmt.Errorf("select feed settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var settings []models.FeedSetting
	for rows.Next() {
		var (
			stage string
			kg    float64
		)
		if err := rows.Scan(&stage, &kg); err != nil {
			return nil, fmt.Errorf("scan feed setting: %w", err)
		}
		settings = append(settings, models.FeedSetting{Stage: models.Stage(stage), DailyFeedKg: kg, Stored: true})
	}
	return settings, rows.Err()
}

// UpsertFeedSetting writes the ration of a stage, overwriting any previous value.
func (r *FarmRepository) UpsertFeedSetting(ctx context.Context, stage models.Stage, kg float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feed_settings(stage, daily_feed_kg, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(stage) DO UPDATE SET daily_feed_kg = excluded.daily_feed_kg, updated_at = excluded.updated_at`,
		string(stage), kg, r.timestamp())
	if err != nil {
		return fmt.Errorf("upsert feed setting %s: %w", stage, err)
	}
	return nil
}

// InsertFeedType adds a feed ingredient. A taken name yields DuplicateNameError.
func (r *FarmRepository) InsertFeedType(ctx context.Context, name, unit string) (models.FeedType, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO feed_types(name, unit) VALUES(?, ?)`, name, unit)
	if err != nil {
		if isUniqueViolation(err) {
			return models.FeedType{}, &models.DuplicateNameError{Name: name}
		}
		return models.FeedType{}, fmt.Errorf("insert feed type %s: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.FeedType{}, fmt.Errorf("feed type id: %w", err)
	}
	return models.FeedType{ID: id, Name: name, Unit: unit}, nil
}

// ListFeedTypes returns the catalog in insertion order.
func (r *FarmRepository) ListFeedTypes(ctx context.Context) ([]models.FeedType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, unit FROM feed_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select feed types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var types []models.FeedType
	for rows.Next() {
		var ft models.FeedType
		if err := rows.Scan(&ft.ID, &ft.Name, &ft.Unit); err != nil {
			return nil, fmt.Errorf("scan feed type: %w", err)
		}
		types = append(types, ft)
	}
	return types, rows.Err()
}

// ReplaceMealAllocations swaps the composition of every meal in allocation
// inside one transaction. Meals absent from allocation are left as they are.
func (r *FarmRepository) ReplaceMealAllocations(ctx context.Context, penID int64, allocation models.MealAllocation) error {
	meals := make([]int, 0, len(allocation))
	for meal := range allocation {
		meals = append(meals, meal)
	}
	sort.Ints(meals)

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, meal := range meals {
			if err := replaceMeal(ctx, tx, penID, meal, allocation[meal]); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceMeal(ctx context.Context, tx *sql.Tx, penID int64, meal int, entries []models.MealFeedEntry) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pen_meal_plans(pen_id, meal_number) VALUES(?, ?) ON CONFLICT(pen_id, meal_number) DO NOTHING`,
		penID, meal); err != nil {
		return fmt.Errorf("upsert meal plan %d: %w", meal, err)
	}

	var planID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM pen_meal_plans WHERE pen_id = ? AND meal_number = ?`, penID, meal).Scan(&planID); err != nil {
		return fmt.Errorf("select meal plan %d: %w", meal, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_feed_details WHERE meal_plan_id = ?`, planID); err != nil {
		return fmt.Errorf("delete meal %d details: %w", meal, err)
	}

	for position, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meal_feed_details(meal_plan_id, feed_type_id, percentage, position) VALUES(?, ?, ?, ?)`,
			planID, entry.FeedTypeID, entry.Percentage, position); err != nil {
			return fmt.Errorf("insert meal %d detail: %w", meal, err)
		}
	}
	return nil
}

// ListMealAllocations returns every stored meal of a pen, including meal
// numbers beyond the pen's current meals_per_day.
func (r *FarmRepository) ListMealAllocations(ctx context.Context, penID int64) (models.MealAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.meal_number, d.feed_type_id, d.percentage
		   FROM pen_meal_plans p
		   JOIN meal_feed_details d ON d.meal_plan_id = p.id
		  WHERE p.pen_id = ?
		  ORDER BY p.meal_number, d.position`, penID)
	if err != nil {
		return nil, fmt.Errorf("select meal allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocation := models.MealAllocation{}
	for rows.Next() {
		var (
			meal  int
			entry models.MealFeedEntry
		)
		if err := rows.Scan(&meal, &entry.FeedTypeID, &entry.Percentage); err != nil {
			return nil, fmt.Errorf("scan meal allocation: %w", err)
		}
		allocation[meal] = append(allocation[meal], entry)
	}
	return allocation, rows.Err()
}

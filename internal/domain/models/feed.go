package models

import "math"

// Allowed deviation from 100% for a meal's feed composition.
const PercentageTolerance = 0.01

// DefaultFeedUnit is used when a feed type is added without a unit.
const DefaultFeedUnit = "kg"

// FeedSetting is the daily ration of one stage.
type FeedSetting struct {
	Stage       Stage   `json:"stage"`
	DailyFeedKg float64 `json:"daily_feed_kg"`
	// Stored is false when the value comes from the built-in table.
	Stored bool `json:"stored"`
}

// FeedType is a feed ingredient such as barley or alfalfa.
type FeedType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// MealFeedEntry is one feed type share within a meal.
type MealFeedEntry struct {
	FeedTypeID int64   `json:"feed_type_id"`
	Percentage float64 `json:"percentage"`
}

// MealAllocation maps meal numbers to their ordered feed composition.
type MealAllocation map[int][]MealFeedEntry

// SumPercentages adds up the percentages of a meal.
func SumPercentages(entries []MealFeedEntry) float64 {
	var total float64
	for _, entry := range entries {
		total += entry.Percentage
	}
	return total
}

// PercentagesComplete reports whether total is 100 within PercentageTolerance.
func PercentagesComplete(total float64) bool {
	return math.Abs(total-100) <= PercentageTolerance+1e-9
}

// StageSummary aggregates the ration of one stage inside a pen.
type StageSummary struct {
	Count       int     `json:"count" bson:"count"`
	FeedPerHead float64 `json:"feed_per_head" bson:"feed_per_head"`
	TotalFeed   float64 `json:"total_feed" bson:"total_feed"`
}

// FeedTypeAmount is the mass of one feed type served in a meal.
type FeedTypeAmount struct {
	FeedTypeID int64   `json:"feed_type_id" bson:"feed_type_id"`
	Name       string  `json:"name" bson:"name"`
	Unit       string  `json:"unit" bson:"unit"`
	Percentage float64 `json:"percentage" bson:"percentage"`
	AmountKg   float64 `json:"amount_kg" bson:"amount_kg"`
}

// MealBreakdown is the composition of one meal slot.
type MealBreakdown struct {
	MealNumber  int              `json:"meal_number" bson:"meal_number"`
	TotalFeedKg float64          `json:"total_feed_kg" bson:"total_feed_kg"`
	FeedTypes   []FeedTypeAmount `json:"feed_types" bson:"feed_types"`
}

// FeedCalculation is the feeding plan of a pen for one day.
type FeedCalculation struct {
	PenID            int64                  `json:"pen_id" bson:"pen_id"`
	PenName          string                 `json:"pen_name" bson:"pen_name"`
	MealsPerDay      int                    `json:"meals_per_day" bson:"meals_per_day"`
	SheepCount       int                    `json:"sheep_count" bson:"sheep_count"`
	TotalDailyFeedKg float64                `json:"total_daily_feed_kg" bson:"total_daily_feed_kg"`
	FeedPerMealKg    float64                `json:"feed_per_meal_kg" bson:"feed_per_meal_kg"`
	StageSummary     map[Stage]StageSummary `json:"stage_summary" bson:"stage_summary"`
	Meals            []MealBreakdown        `json:"meals" bson:"meals"`
	Warnings         []string               `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

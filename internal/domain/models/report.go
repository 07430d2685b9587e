package models

import "time"

// FeedReport is the archived daily feeding plan of a tenant.
type FeedReport struct {
	ID               string            `bson:"_id" json:"id"`
	UserID           string            `bson:"user_id" json:"user_id"`
	Date             time.Time         `bson:"date" json:"date"`
	PenCount         int               `bson:"pen_count" json:"pen_count"`
	SheepCount       int               `bson:"sheep_count" json:"sheep_count"`
	TotalDailyFeedKg float64           `bson:"total_daily_feed_kg" json:"total_daily_feed_kg"`
	Pens             []FeedCalculation `bson:"pens" json:"pens"`
	Summary          string            `bson:"summary" json:"summary"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
}

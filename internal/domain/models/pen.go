package models

import (
	"fmt"
	"time"
)

// Pen is an enclosure holding a bounded number of sheep.
type Pen struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	MealsPerDay int       `json:"meals_per_day"`
	SheepCount  int       `json:"sheep_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// OverCapacity reports whether more sheep are assigned than the pen holds.
// Capacity is advisory and never enforced on writes.
func (p Pen) OverCapacity() bool {
	return p.SheepCount > p.Capacity
}

// MaxMealsPerDay bounds how many meals a pen may be served each day.
const MaxMealsPerDay = 12

// ValidatePenSettings checks the numeric bounds of a pen.
func ValidatePenSettings(capacity, mealsPerDay int) error {
	if capacity <= 0 {
		return &ValidationError{Field: "capacity", Message: "must be greater than 0"}
	}
	if mealsPerDay < 1 || mealsPerDay > MaxMealsPerDay {
		return &ValidationError{Field: "meals_per_day", Message: fmt.Sprintf("must be between 1 and %d", MaxMealsPerDay)}
	}
	return nil
}

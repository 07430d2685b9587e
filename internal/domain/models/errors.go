package models

import "fmt"

// ValidationError is returned when input is rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PercentageMismatchError is returned when a meal's feed percentages do not add up to 100.
type PercentageMismatchError struct {
	MealNumber int
	Total      float64
}

func (e *PercentageMismatchError) Error() string {
	return fmt.Sprintf("meal %d percentages sum to %.2f%%, expected 100%%", e.MealNumber, e.Total)
}

// DuplicateNameError is returned when a feed type name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("feed type %q already exists", e.Name)
}

// NotProvisionedError is returned when a tenant store has not been created yet.
type NotProvisionedError struct {
	UserID string
}

func (e *NotProvisionedError) Error() string {
	return fmt.Sprintf("farm data for user %q is not provisioned", e.UserID)
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts raw numeric input into a finite float64.
// Non-numeric, NaN and infinite values are rejected with a ValidationError on field.
func ParseAmount(field string, raw json.Number) (float64, error) {
	text := strings.TrimSpace(raw.String())
	if text == "" {
		return 0, &ValidationError{Field: field, Message: "value is required"}
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Message: "must be a number"}
	}

	return CheckFinite(field, value)
}

// CheckFinite rejects NaN and infinite values.
func CheckFinite(field string, value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Message: "must be a finite number"}
	}
	return value, nil
}

package models

import (
	"strings"
	"time"
)

// Gender enumerates the sexes tracked on a sheep record.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Stage is a sheep's life-phase label. It drives the daily ration.
type Stage string

const (
	StageNewborn     Stage = "newborn"
	StageYoungMale   Stage = "young_male"
	StageYoungFemale Stage = "young_female"
	StageAdult       Stage = "adult"
	StageSenior      Stage = "senior"
	StagePregnant    Stage = "pregnant"
)

// Known reports whether s is one of the built-in stages.
func (s Stage) Known() bool {
	switch s {
	case StageNewborn, StageYoungMale, StageYoungFemale, StageAdult, StageSenior, StagePregnant:
		return true
	}
	return false
}

// Age thresholds, in days, used when a sheep has no explicit stage.
const (
	newbornMaxAgeDays = 90
	youngMaxAgeDays   = 240
	adultMaxAgeDays   = 365
)

// Status is the lifecycle state of a sheep.
type Status string

const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"
	StatusSold  Status = "sold"
)

// Sheep is one animal of the flock.
type Sheep struct {
	ID        string     `json:"id"`
	Gender    Gender     `json:"gender"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	// Stage is the explicit override. Empty means derive from BirthDate.
	Stage Stage `json:"stage,omitempty"`
	// DerivedStage is the age-derived stage cached by the nightly refresh for
	// display. Feeding always derives the stage again from BirthDate.
	DerivedStage Stage     `json:"derived_stage,omitempty"`
	Status       Status    `json:"status"`
	PenID        *int64    `json:"pen_id,omitempty"`
	Pregnant     bool      `json:"pregnant"`
	CreatedAt    time.Time `json:"created_at"`
}

// Present reports whether the sheep is physically on the farm and eats.
func (s Sheep) Present() bool {
	return s.Status == StatusAlive
}

// ResolveStage returns the stage used for feeding at the given instant.
// An active pregnancy wins, then the explicit override, then the age-derived stage.
func (s Sheep) ResolveStage(asOf time.Time) Stage {
	if s.Pregnant && s.Gender == GenderFemale {
		return StagePregnant
	}
	if s.Stage != "" {
		return s.Stage
	}
	if s.BirthDate == nil {
		return ""
	}
	return DeriveStage(s.Gender, *s.BirthDate, asOf)
}

// DeriveStage maps an age in days onto the stage table.
func DeriveStage(gender Gender, birthDate, asOf time.Time) Stage {
	days := int(asOf.Sub(birthDate).Hours() / 24)

	switch {
	case days < newbornMaxAgeDays:
		return StageNewborn
	case days < youngMaxAgeDays:
		if gender == GenderFemale {
			return StageYoungFemale
		}
		return StageYoungMale
	case days <= adultMaxAgeDays:
		return StageAdult
	default:
		return StageSenior
	}
}

// ParseGender normalises user input into a Gender.
func ParseGender(value string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(value))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	default:
		return "", &ValidationError{Field: "gender", Message: "must be male or female"}
	}
}

// ParseStatus normalises user input into a Status. Empty input means alive.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusAlive:
		return StatusAlive, nil
	case StatusDead:
		return StatusDead, nil
	case StatusSold:
		return StatusSold, nil
	default:
		return "", &ValidationError{Field: "status", Message: "must be alive, dead or sold"}
	}
}

// Pregnancy tracks one gestation of a ewe.
type Pregnancy struct {
	ID           int64      `json:"id"`
	SheepID      string     `json:"sheep_id"`
	MatingDate   time.Time  `json:"mating_date"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// Active reports whether the pregnancy is still running.
func (p Pregnancy) Active() bool {
	return p.DeliveredAt == nil
}

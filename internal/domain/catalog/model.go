// Package catalog holds the reference data shared by risk matrices: hazard
// factors, exam types, exclusion criteria and immunizations.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// HazardCategory groups hazard factors.
type HazardCategory string

const (
	CategoryPhysical     HazardCategory = "physical"
	CategoryChemical     HazardCategory = "chemical"
	CategoryBiological   HazardCategory = "biological"
	CategoryErgonomic    HazardCategory = "ergonomic"
	CategoryPsychosocial HazardCategory = "psychosocial"
	CategorySafety       HazardCategory = "safety"
)

var validCategories = map[HazardCategory]bool{
	CategoryPhysical: true, CategoryChemical: true, CategoryBiological: true,
	CategoryErgonomic: true, CategoryPsychosocial: true, CategorySafety: true,
}

// HazardFactor maps to the hazard_factor table.
type HazardFactor struct {
	ID                   uuid.UUID      `db:"id" json:"id"`
	Code                 string         `db:"code" json:"code"`
	Name                 string         `db:"name" json:"name"`
	Category             HazardCategory `db:"category" json:"category"`
	Description          string         `db:"description" json:"description,omitempty"`
	ReviewIntervalMonths *int           `db:"review_interval_months" json:"review_interval_months,omitempty"`
	Regulation           string         `db:"regulation" json:"regulation,omitempty"`
	Unit                 string         `db:"unit" json:"unit,omitempty"`
	UnitSymbol           string         `db:"unit_symbol" json:"unit_symbol,omitempty"`
	RequiresSurveillance bool           `db:"requires_surveillance" json:"requires_surveillance"`
	Active               bool           `db:"active" json:"active"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultUnit is the unit a matrix row inherits when it leaves its own blank.
func (h *HazardFactor) DefaultUnit() string {
	if h.UnitSymbol != "" {
		return h.UnitSymbol
	}
	return h.Unit
}

// HazardFilter narrows hazard listings. Zero values do not filter.
type HazardFilter struct {
	Query      string
	Category   HazardCategory
	ActiveOnly bool
}

// Kind selects one of the simple catalogs.
type Kind string

const (
	KindExamType           Kind = "exam_type"
	KindExclusionCriterion Kind = "exclusion_criterion"
	KindImmunization       Kind = "immunization"
)

// Entry is a row of one of the simple catalogs. Code is only used by exam
// types.
type Entry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Kind        Kind      `db:"-" json:"-"`
	Code        string    `db:"code" json:"code,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

package riskmatrix

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ohs/ohs/internal/domain/gtc45"
	"github.com/ohs/ohs/internal/platform/apperr"
)

var maxExposureHours = decimal.NewFromInt(24)

// validateHeader checks the scalar fields of a matrix. The justification
// rule is checked after any auto-generated text has been filled in.
func validateHeader(m *RiskMatrix) error {
	m.Version = strings.TrimSpace(m.Version)
	if m.PositionID == uuid.Nil {
		return apperr.Validation("position_id is required")
	}
	if m.Version == "" {
		return apperr.Validation("version is required")
	}
	if len(m.Version) > 20 {
		return apperr.Validation("version is too long: %q", m.Version)
	}
	if !validStates[m.State] {
		return apperr.Validation("invalid state: %s", m.State)
	}
	if !validPeriodicities[m.ExamPeriodicityMonths] {
		return apperr.Validation("invalid exam_periodicity_months: %d (allowed 6, 12, 24, 36)", m.ExamPeriodicityMonths)
	}
	if m.PositionRiskLevel != nil && !validLevels[*m.PositionRiskLevel] {
		return apperr.Validation("invalid position_risk_level: %s", *m.PositionRiskLevel)
	}
	if m.ExposedWorkers != nil && *m.ExposedWorkers < 0 {
		return apperr.Validation("exposed_workers cannot be negative")
	}
	if m.ValidityMonths != nil && *m.ValidityMonths <= 0 {
		return apperr.Validation("validity_months must be positive")
	}
	return nil
}

func validateJustification(m *RiskMatrix) error {
	if m.ExamPeriodicityMonths <= 12 {
		return nil
	}
	if n := len([]rune(strings.TrimSpace(m.PeriodicityJustification))); n < MinJustificationLength {
		return apperr.Validation("periodicity_justification must have at least %d characters when exam_periodicity_months is %d (got %d)",
			MinJustificationLength, m.ExamPeriodicityMonths, n)
	}
	return nil
}

func validateRows(rows []*Row) error {
	seen := make(map[uuid.UUID]bool, len(rows))
	for i, r := range rows {
		if r == nil {
			return apperr.Validation("rows[%d]: missing row", i)
		}
		if r.HazardID == uuid.Nil {
			return apperr.Validation("rows[%d]: hazard_id is required", i)
		}
		if seen[r.HazardID] {
			return apperr.Validation("rows[%d]: hazard %s appears more than once", i, r.HazardID)
		}
		seen[r.HazardID] = true

		if err := gtc45.ValidateScores(r.ND, r.NE, r.NC); err != nil {
			return apperr.Validation("rows[%d]: %v", i, err)
		}
		if r.ExposureLevel != nil && !validLevels[*r.ExposureLevel] {
			return apperr.Validation("rows[%d]: invalid exposure_level: %s", i, *r.ExposureLevel)
		}
		if h := r.ExposureHours; h != nil && (h.IsNegative() || h.GreaterThan(maxExposureHours)) {
			return apperr.Validation("rows[%d]: exposure_hours must be between 0 and 24", i)
		}
		if err := r.MeasuredValue.Validate(); err != nil {
			return apperr.Validation("rows[%d]: measured_value: %v", i, err)
		}
		if err := r.PermissibleLimit.Validate(); err != nil {
			return apperr.Validation("rows[%d]: permissible_limit: %v", i, err)
		}
		for j, c := range r.Controls {
			if !validHierarchy[c.Level] {
				return apperr.Validation("rows[%d].controls[%d]: invalid level: %s", i, j, c.Level)
			}
			if strings.TrimSpace(c.Measure) == "" {
				return apperr.Validation("rows[%d].controls[%d]: measure is required", i, j)
			}
		}
		for j, p := range r.Interventions {
			if !validHierarchy[p.Level] {
				return apperr.Validation("rows[%d].interventions[%d]: invalid level: %s", i, j, p.Level)
			}
			if strings.TrimSpace(p.Description) == "" {
				return apperr.Validation("rows[%d].interventions[%d]: description is required", i, j)
			}
		}
	}
	return nil
}

func validateExamRequirements(reqs []*ExamRequirement) error {
	type key struct {
		exam  uuid.UUID
		stage Stage
	}
	seen := make(map[key]bool, len(reqs))
	for i, e := range reqs {
		if e == nil {
			return apperr.Validation("exam_requirements[%d]: missing requirement", i)
		}
		if e.ExamTypeID == uuid.Nil {
			return apperr.Validation("exam_requirements[%d]: exam_type_id is required", i)
		}
		if !validStages[e.Stage] {
			return apperr.Validation("exam_requirements[%d]: invalid stage: %s", i, e.Stage)
		}
		k := key{e.ExamTypeID, e.Stage}
		if seen[k] {
			return apperr.Validation("exam_requirements[%d]: exam type %s is already required at stage %s", i, e.ExamTypeID, e.Stage)
		}
		seen[k] = true

		if e.Stage == StagePeriodic {
			if e.PeriodicityMonths == nil {
				return apperr.Validation("exam_requirements[%d]: periodicity_months is required for periodic exams", i)
			}
			if !validPeriodicities[*e.PeriodicityMonths] {
				return apperr.Validation("exam_requirements[%d]: invalid periodicity_months: %d", i, *e.PeriodicityMonths)
			}
		} else if e.PeriodicityMonths != nil {
			return apperr.Validation("exam_requirements[%d]: periodicity_months only applies to periodic exams", i)
		}
	}
	return nil
}

// dedupe drops repeated ids keeping the first occurrence.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

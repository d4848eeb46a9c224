// Package riskmatrix owns the versioned per-position risk matrix: hazard rows
// scored with GTC-45, their control measures and intervention plans, required
// exams, exclusion criteria and immunizations.
package riskmatrix

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ohs/ohs/internal/domain/gtc45"
)

type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateDraft    State = "draft"
)

var validStates = map[State]bool{StateActive: true, StateInactive: true, StateDraft: true}

// Level is the four-step scale used for row exposure and the position's
// overall risk.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

var validLevels = map[Level]bool{LevelLow: true, LevelMedium: true, LevelHigh: true, LevelVeryHigh: true}

// HierarchyLevel is a step of the hierarchy of controls.
type HierarchyLevel string

const (
	HierarchyElimination    HierarchyLevel = "elimination"
	HierarchySubstitution   HierarchyLevel = "substitution"
	HierarchyEngineering    HierarchyLevel = "engineering"
	HierarchyAdministrative HierarchyLevel = "administrative"
	HierarchyPPE            HierarchyLevel = "ppe"
)

var validHierarchy = map[HierarchyLevel]bool{
	HierarchyElimination: true, HierarchySubstitution: true, HierarchyEngineering: true,
	HierarchyAdministrative: true, HierarchyPPE: true,
}

// Stage is the moment in the employment cycle an exam is required at.
type Stage string

const (
	StageOnboarding     Stage = "onboarding"
	StagePeriodic       Stage = "periodic"
	StageExit           Stage = "exit"
	StagePositionChange Stage = "position_change"
	StagePostLeave      Stage = "post_leave"
	StageReinstatement  Stage = "reinstatement"
)

var validStages = map[Stage]bool{
	StageOnboarding: true, StagePeriodic: true, StageExit: true,
	StagePositionChange: true, StagePostLeave: true, StageReinstatement: true,
}

// Allowed exam periodicities in months.
var validPeriodicities = map[int]bool{6: true, 12: true, 24: true, 36: true}

// MinJustificationLength applies to the trimmed justification whenever the
// exam periodicity exceeds 12 months.
const MinJustificationLength = 50

// RiskMatrix maps to the risk_matrix table plus its owned collections.
type RiskMatrix struct {
	ID                       uuid.UUID  `db:"id" json:"id"`
	PositionID               uuid.UUID  `db:"position_id" json:"position_id"`
	Version                  string     `db:"version" json:"version"`
	State                    State      `db:"state" json:"state"`
	Company                  string     `db:"company" json:"company,omitempty"`
	Department               string     `db:"department" json:"department,omitempty"`
	PositionCode             string     `db:"position_code" json:"position_code,omitempty"`
	ExposedWorkers           *int       `db:"exposed_workers" json:"exposed_workers,omitempty"`
	PreparationDate          *time.Time `db:"preparation_date" json:"preparation_date,omitempty"`
	ValidatedBy              string     `db:"validated_by" json:"validated_by,omitempty"`
	NextReviewDate           *time.Time `db:"next_review_date" json:"next_review_date,omitempty"`
	PreparedBy               string     `db:"prepared_by" json:"prepared_by,omitempty"`
	ReviewedBy               string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ApprovedBy               string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalDate             *time.Time `db:"approval_date" json:"approval_date,omitempty"`
	ValidityMonths           *int       `db:"validity_months" json:"validity_months,omitempty"`
	PredominantPosture       string     `db:"predominant_posture" json:"predominant_posture,omitempty"`
	ActivityDescription      string     `db:"activity_description" json:"activity_description,omitempty"`
	ExamPeriodicityMonths    int        `db:"exam_periodicity_months" json:"exam_periodicity_months"`
	PeriodicityJustification string     `db:"periodicity_justification" json:"periodicity_justification,omitempty"`
	LastReviewDate           *time.Time `db:"last_review_date" json:"last_review_date,omitempty"`
	PositionRiskLevel        *Level     `db:"position_risk_level" json:"position_risk_level,omitempty"`
	CreatedBy                string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	ModifiedBy               string     `db:"modified_by" json:"modified_by,omitempty"`
	ModifiedAt               *time.Time `db:"modified_at" json:"modified_at,omitempty"`

	Rows                  []*Row             `json:"rows"`
	ExamRequirements      []*ExamRequirement `json:"exam_requirements"`
	ExclusionCriterionIDs []uuid.UUID        `json:"exclusion_criterion_ids"`
	ImmunizationIDs       []uuid.UUID        `json:"immunization_ids"`
}

// Row is one hazard of a matrix, keyed by (matrix, hazard).
type Row struct {
	HazardID               uuid.UUID        `db:"hazard_id" json:"hazard_id"`
	Process                string           `db:"process" json:"process,omitempty"`
	Activity               string           `db:"activity" json:"activity,omitempty"`
	Task                   string           `db:"task" json:"task,omitempty"`
	Routine                bool             `db:"routine" json:"routine"`
	HazardDescription      string           `db:"hazard_description" json:"hazard_description,omitempty"`
	PossibleEffects        string           `db:"possible_effects" json:"possible_effects,omitempty"`
	Zone                   string           `db:"zone" json:"zone,omitempty"`
	HazardType             string           `db:"hazard_type" json:"hazard_type,omitempty"`
	HazardClassification   string           `db:"hazard_classification" json:"hazard_classification,omitempty"`
	ControlsSource         string           `db:"controls_source" json:"controls_source,omitempty"`
	ControlsMedium         string           `db:"controls_medium" json:"controls_medium,omitempty"`
	ControlsIndividual     string           `db:"controls_individual" json:"controls_individual,omitempty"`
	WorstConsequence       string           `db:"worst_consequence" json:"worst_consequence,omitempty"`
	LegalRequirement       string           `db:"legal_requirement" json:"legal_requirement,omitempty"`
	ExposureLevel          *Level           `db:"exposure_level" json:"exposure_level,omitempty"`
	ExposureHours          *decimal.Decimal `db:"exposure_hours" json:"exposure_hours,omitempty"`
	MeasuredValue          Measurement      `db:"measured_value" json:"measured_value"`
	PermissibleLimit       Measurement      `db:"permissible_limit" json:"permissible_limit"`
	Unit                   string           `db:"unit" json:"unit,omitempty"`
	ND                     *int             `db:"nd" json:"nd,omitempty"`
	NE                     *int             `db:"ne" json:"ne,omitempty"`
	NC                     *int             `db:"nc" json:"nc,omitempty"`
	Elimination            string           `db:"elimination" json:"elimination,omitempty"`
	Substitution           string           `db:"substitution" json:"substitution,omitempty"`
	EngineeringControls    string           `db:"engineering_controls" json:"engineering_controls,omitempty"`
	AdministrativeControls string           `db:"administrative_controls" json:"administrative_controls,omitempty"`
	Signage                string           `db:"signage" json:"signage,omitempty"`
	RequiredPPE            string           `db:"required_ppe" json:"required_ppe,omitempty"`

	Controls      []*ControlMeasure   `json:"controls"`
	Interventions []*InterventionPlan `json:"interventions"`
}

// Classification derives the GTC-45 values of the row. Nothing derived is
// stored.
func (r *Row) Classification() gtc45.Classification {
	return gtc45.Classify(r.ND, r.NE, r.NC)
}

// MarshalJSON adds the derived classification to the stored fields.
func (r Row) MarshalJSON() ([]byte, error) {
	type stored Row
	return json.Marshal(struct {
		stored
		Classification gtc45.Classification `json:"classification"`
	}{stored(r), r.Classification()})
}

type ControlMeasure struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Level        HierarchyLevel `db:"level" json:"level"`
	Measure      string         `db:"measure" json:"measure"`
	Description  string         `db:"description" json:"description,omitempty"`
	CurrentState string         `db:"current_state" json:"current_state,omitempty"`
	Target       string         `db:"target" json:"target,omitempty"`
}

type InterventionPlan struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Level       HierarchyLevel `db:"level" json:"level"`
	Description string         `db:"description" json:"description"`
	Responsible string         `db:"responsible" json:"responsible,omitempty"`
	Deadline    *time.Time     `db:"deadline" json:"deadline,omitempty"`
}

// ExamRequirement is keyed by (matrix, exam type, stage).
type ExamRequirement struct {
	ExamTypeID        uuid.UUID `db:"exam_type_id" json:"exam_type_id"`
	Stage             Stage     `db:"stage" json:"stage"`
	PeriodicityMonths *int      `db:"periodicity_months" json:"periodicity_months,omitempty"`
	Justification     string    `db:"justification" json:"justification,omitempty"`
	Mandatory         bool      `db:"mandatory" json:"mandatory"`
	Order             int       `db:"sort_order" json:"order"`
	RegulatoryBasis   string    `db:"regulatory_basis" json:"regulatory_basis,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched; a non-nil
// collection replaces the stored one wholesale.
type Patch struct {
	Version                  *string    `json:"version"`
	State                    *State     `json:"state"`
	Company                  *string    `json:"company"`
	Department               *string    `json:"department"`
	PositionCode             *string    `json:"position_code"`
	ExposedWorkers           *int       `json:"exposed_workers"`
	ResetExposedWorkers      bool       `json:"reset_exposed_workers"`
	PreparationDate          *time.Time `json:"preparation_date"`
	ValidatedBy              *string    `json:"validated_by"`
	NextReviewDate           *time.Time `json:"next_review_date"`
	PreparedBy               *string    `json:"prepared_by"`
	ReviewedBy               *string    `json:"reviewed_by"`
	ApprovedBy               *string    `json:"approved_by"`
	ApprovalDate             *time.Time `json:"approval_date"`
	ValidityMonths           *int       `json:"validity_months"`
	PredominantPosture       *string    `json:"predominant_posture"`
	ActivityDescription      *string    `json:"activity_description"`
	ExamPeriodicityMonths    *int       `json:"exam_periodicity_months"`
	PeriodicityJustification *string    `json:"periodicity_justification"`
	LastReviewDate           *time.Time `json:"last_review_date"`
	PositionRiskLevel        *Level     `json:"position_risk_level"`

	Rows                  []*Row             `json:"rows"`
	ExamRequirements      []*ExamRequirement `json:"exam_requirements"`
	ExclusionCriterionIDs []uuid.UUID        `json:"exclusion_criterion_ids"`
	ImmunizationIDs       []uuid.UUID        `json:"immunization_ids"`
}

// DuplicateRequest copies a matrix to other positions.
type DuplicateRequest struct {
	TargetPositionIDs []uuid.UUID `json:"target_position_ids"`
	State             State       `json:"state"`
}

// DuplicateResult reports the outcome for one target position.
type DuplicateResult struct {
	PositionID   uuid.UUID  `json:"position_id"`
	PositionName string     `json:"position_name,omitempty"`
	MatrixID     *uuid.UUID `json:"matrix_id,omitempty"`
	Version      string     `json:"version,omitempty"`
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
}

// Package workforce reads positions, workers and their occupational history.
// The records are owned by other services; the only write is the position's
// exam-periodicity label.
package workforce

import (
	"time"

	"github.com/google/uuid"
)

type Position struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	ExamPeriodicity string    `db:"exam_periodicity" json:"exam_periodicity,omitempty"`
}

type Worker struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PositionID uuid.UUID  `db:"position_id" json:"position_id"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	HireDate   *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	Active     bool       `db:"active" json:"active"`
}

// EventType classifies an absence.
type EventType string

const (
	EventWorkAccident   EventType = "work_accident"
	EventWorkIllness    EventType = "work_illness"
	EventCommonAccident EventType = "common_accident"
	EventGeneralIllness EventType = "general_illness"
	EventMinorIllness   EventType = "minor_illness"
)

// WorkRelated reports whether the event is an occupational accident or
// illness.
func (t EventType) WorkRelated() bool {
	return t == EventWorkAccident || t == EventWorkIllness
}

type AbsenceEvent struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	WorkerID    uuid.UUID  `db:"worker_id" json:"worker_id"`
	EventType   EventType  `db:"event_type" json:"event_type"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	ChargedDays int        `db:"charged_days" json:"charged_days"`
}

// Aptitude is the medical fitness concept of an occupational exam.
type Aptitude string

const (
	AptitudeFit                    Aptitude = "fit"
	AptitudeFitWithRecommendations Aptitude = "fit_with_recommendations"
	AptitudeUnfit                  Aptitude = "unfit"
)

type OccupationalExam struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	WorkerID         uuid.UUID  `db:"worker_id" json:"worker_id"`
	PositionID       *uuid.UUID `db:"position_id" json:"position_id,omitempty"`
	ExamKind         string     `db:"exam_kind" json:"exam_kind"`
	ExamDate         time.Time  `db:"exam_date" json:"exam_date"`
	Aptitude         Aptitude   `db:"aptitude" json:"aptitude,omitempty"`
	RequiresFollowUp bool       `db:"requires_follow_up" json:"requires_follow_up"`
}

var periodicityLabels = map[int]string{
	6:  "semiannual",
	12: "annual",
	24: "biennial",
	36: "triennial",
}

// PeriodicityLabel names an exam periodicity in months. ok is false for
// unsupported values.
func PeriodicityLabel(months int) (label string, ok bool) {
	label, ok = periodicityLabels[months]
	return label, ok
}

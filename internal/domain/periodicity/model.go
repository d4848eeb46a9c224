// Package periodicity recommends the periodic occupational exam interval of a
// position and writes the justification for a chosen interval. It reads
// worker demographics, absenteeism, exam history and the position's risk
// matrix versions; it never writes.
package periodicity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ohs/ohs/internal/domain/gtc45"
)

// Periodicities the engine chooses between.
const (
	ShortInterval = 24
	LongInterval  = 36
)

// RecommendationWindowMonths is the trailing window the cascade reads
// absenteeism and exam history over.
const RecommendationWindowMonths = 36

// RiskThreshold is the maximum NR at which the long interval stops being
// supportable.
const RiskThreshold = 50

// Demographics counts the active workers of a position. The counts are
// independent of each other; total is the only shared denominator.
type Demographics struct {
	PositionID      uuid.UUID `json:"position_id"`
	ActiveWorkers   int       `json:"active_workers"`
	Under21         int       `json:"under_21"`
	AtLeast21       int       `json:"at_least_21"`
	TenureUnder2    int       `json:"tenure_under_2_years"`
	TenureAtLeast2  int       `json:"tenure_at_least_2_years"`
	MissingHireDate int       `json:"missing_hire_date"`
}

// Absenteeism summarizes absence events within the window. Unavailable is
// set when the store could not be read; the counts are then zero.
type Absenteeism struct {
	WindowStart   time.Time `json:"window_start"`
	WindowMonths  int       `json:"window_months"`
	Events        int       `json:"events"`
	ChargedDays   int       `json:"charged_days"`
	WorkAccidents int       `json:"work_accidents"`
	WorkIllnesses int       `json:"work_illnesses"`
	Unavailable   bool      `json:"unavailable,omitempty"`
}

// ExamHistory summarizes occupational exams within the window.
type ExamHistory struct {
	WindowStart            time.Time `json:"window_start"`
	WindowMonths           int       `json:"window_months"`
	Total                  int       `json:"total"`
	Fit                    int       `json:"fit"`
	FitWithRecommendations int       `json:"fit_with_recommendations"`
	Unfit                  int       `json:"unfit"`
	FollowUpRequired       int       `json:"follow_up_required"`
	Unavailable            bool      `json:"unavailable,omitempty"`
}

// MatrixIndicators describes the newest risk matrix version of a position
// and whether its rows changed against the version before it. Stable is nil
// when there is no previous version to compare with.
type MatrixIndicators struct {
	HasMatrix     bool       `json:"has_matrix"`
	LatestID      *uuid.UUID `json:"latest_id,omitempty"`
	LatestVersion string     `json:"latest_version,omitempty"`
	LatestDate    *time.Time `json:"latest_date,omitempty"`
	HasPrevious   bool       `json:"has_previous"`
	Stable        *bool      `json:"stable,omitempty"`
	RowCount      int        `json:"row_count"`
	Unavailable   bool       `json:"unavailable,omitempty"`
}

// Unstable reports a previous version whose rows differ from the latest.
func (m MatrixIndicators) Unstable() bool {
	return m.HasPrevious && m.Stable != nil && !*m.Stable
}

// RiskItem is one scored hazard of a summary.
type RiskItem struct {
	HazardID uuid.UUID       `json:"hazard_id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	NR       int             `json:"nr"`
	Level    gtc45.RiskLevel `json:"level"`
}

// RiskSummary is the GTC-45 view of one set of hazard rows.
type RiskSummary struct {
	HasMatrix    bool                    `json:"has_matrix"`
	Evaluated    int                     `json:"evaluated"`
	MaxNR        *int                    `json:"max_nr,omitempty"`
	CountByLevel map[gtc45.RiskLevel]int `json:"count_by_level"`
	Top          []RiskItem              `json:"top"`
}

// HazardScore is an unsaved hazard row used to preview a summary.
type HazardScore struct {
	HazardID uuid.UUID `json:"hazard_id"`
	ND       *int      `json:"nd"`
	NE       *int      `json:"ne"`
	NC       *int      `json:"nc"`
}

// Inputs bundles everything the cascade and the justification read.
// Override is set when Risk was built from ad-hoc hazard scores rather than
// the stored matrix.
type Inputs struct {
	Demographics Demographics     `json:"demographics"`
	Absenteeism  Absenteeism      `json:"absenteeism"`
	Exams        ExamHistory      `json:"exams"`
	Matrix       MatrixIndicators `json:"matrix"`
	Risk         RiskSummary      `json:"risk"`
	Override     bool             `json:"override,omitempty"`
}

// Rule identifies the cascade branch that decided a recommendation.
type Rule string

const (
	RuleNoActiveWorkers   Rule = "no_active_workers"
	RuleUnder21           Rule = "worker_under_21"
	RuleShortTenure       Rule = "tenure_under_2_years"
	RuleMissingHireDate   Rule = "missing_hire_date"
	RuleWorkRelatedEvents Rule = "work_related_events"
	RuleExamFindings      Rule = "exam_findings"
	RuleNoRiskMatrix      Rule = "no_risk_matrix"
	RuleUnstableMatrix    Rule = "unstable_risk_matrix"
	RuleHighRisk          Rule = "max_nr_at_least_50"
	RuleNoFindings        Rule = "no_short_interval_criteria"
)

// Recommendation is the engine's answer. Rules lists every condition of the
// deciding cascade step that held.
type Recommendation struct {
	Months int    `json:"months"`
	Rules  []Rule `json:"rules"`
}

// Format selects the justification verbosity.
type Format string

const (
	FormatTerse    Format = "terse"
	FormatDetailed Format = "detailed"
)

// ParseFormat falls back to terse for anything it does not recognize.
func ParseFormat(s string) Format {
	if Format(strings.ToLower(strings.TrimSpace(s))) == FormatDetailed {
		return FormatDetailed
	}
	return FormatTerse
}

package periodicity

import (
	"context"

	"github.com/google/uuid"

	"github.com/ohs/ohs/internal/platform/metrics"
)

// A check inspects the inputs loaded so far and decides when it fires.
type check func(in *Inputs) (Recommendation, bool)

// cascade is the fixed priority order; the first check that fires decides.
var cascade = []check{checkDemographics, checkAbsenteeism, checkExams, checkMatrix}

func checkDemographics(in *Inputs) (Recommendation, bool) {
	d := in.Demographics
	if d.ActiveWorkers <= 0 {
		return Recommendation{Months: LongInterval, Rules: []Rule{RuleNoActiveWorkers}}, true
	}
	var rules []Rule
	if d.Under21 > 0 {
		rules = append(rules, RuleUnder21)
	}
	if d.TenureUnder2 > 0 {
		rules = append(rules, RuleShortTenure)
	}
	if d.MissingHireDate > 0 {
		rules = append(rules, RuleMissingHireDate)
	}
	if len(rules) > 0 {
		return Recommendation{Months: ShortInterval, Rules: rules}, true
	}
	return Recommendation{}, false
}

func checkAbsenteeism(in *Inputs) (Recommendation, bool) {
	if in.Absenteeism.WorkAccidents > 0 || in.Absenteeism.WorkIllnesses > 0 {
		return Recommendation{Months: ShortInterval, Rules: []Rule{RuleWorkRelatedEvents}}, true
	}
	return Recommendation{}, false
}

func checkExams(in *Inputs) (Recommendation, bool) {
	if in.Exams.Unfit > 0 || in.Exams.FollowUpRequired > 0 {
		return Recommendation{Months: ShortInterval, Rules: []Rule{RuleExamFindings}}, true
	}
	return Recommendation{}, false
}

func checkMatrix(in *Inputs) (Recommendation, bool) {
	var rules []Rule
	if missingMatrix(in) {
		rules = append(rules, RuleNoRiskMatrix)
	}
	if in.Matrix.Unstable() {
		rules = append(rules, RuleUnstableMatrix)
	}
	if highRisk(in.Risk) {
		rules = append(rules, RuleHighRisk)
	}
	if len(rules) > 0 {
		return Recommendation{Months: ShortInterval, Rules: rules}, true
	}
	return Recommendation{}, false
}

// missingMatrix holds when a staffed position has no stored matrix and no
// ad-hoc scores were supplied in its place.
func missingMatrix(in *Inputs) bool {
	return !in.Override && in.Demographics.ActiveWorkers > 0 && !in.Matrix.HasMatrix
}

func highRisk(r RiskSummary) bool {
	return r.MaxNR != nil && *r.MaxNR >= RiskThreshold
}

// Decide runs the cascade over fully loaded inputs.
func Decide(in *Inputs) Recommendation {
	for _, c := range cascade {
		if rec, ok := c(in); ok {
			return rec
		}
	}
	return noFindings()
}

func noFindings() Recommendation {
	return Recommendation{Months: LongInterval, Rules: []Rule{RuleNoFindings}}
}

// Engine recommends the exam interval of a position, reading each source
// only when the cascade reaches it.
type Engine struct {
	agg *Aggregator
}

func NewEngine(agg *Aggregator) *Engine {
	return &Engine{agg: agg}
}

// Recommend returns 24 or 36 months. It fails only when the position's
// workers cannot be read; every other source degrades to empty indicators.
// override, when non-nil, stands in for the stored matrix's risk summary.
func (e *Engine) Recommend(ctx context.Context, positionID uuid.UUID, override *RiskSummary) (Recommendation, error) {
	demo, err := e.agg.Demographics(ctx, positionID)
	if err != nil {
		return Recommendation{}, err
	}
	in := &Inputs{Demographics: demo, Override: override != nil}
	// loaders[i] reads what cascade[i] needs.
	loaders := []func(){
		func() {},
		func() { in.Absenteeism = e.agg.Absenteeism(ctx, positionID, RecommendationWindowMonths) },
		func() { in.Exams = e.agg.ExamHistory(ctx, positionID, RecommendationWindowMonths) },
		func() {
			in.Matrix, in.Risk = e.agg.Matrix(ctx, positionID)
			if override != nil {
				in.Risk = *override
			}
		},
	}
	for i, c := range cascade {
		loaders[i]()
		if rec, ok := c(in); ok {
			return record(rec), nil
		}
	}
	return record(noFindings()), nil
}

func record(rec Recommendation) Recommendation {
	metrics.RecordRecommendation(rec.Months, string(rec.Rules[0]))
	return rec
}

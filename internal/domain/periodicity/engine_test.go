package periodicity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs/ohs/internal/domain/riskmatrix"
	"github.com/ohs/ohs/internal/domain/workforce"
)

func recommend(t *testing.T, e *env) Recommendation {
	t.Helper()
	rec, err := e.engine().Recommend(context.Background(), e.positionID, nil)
	require.NoError(t, err)
	return rec
}

func TestRecommend_CleanPositionGetsLongInterval(t *testing.T) {
	e := newEnv()
	rec := recommend(t, e)
	assert.Equal(t, LongInterval, rec.Months)
	assert.Equal(t, []Rule{RuleNoFindings}, rec.Rules)
}

func TestRecommend_NoWorkers(t *testing.T) {
	e := newEnv()
	e.workers.workers = nil
	e.absences.events = []*workforce.AbsenceEvent{{EventType: workforce.EventWorkAccident}}

	rec := recommend(t, e)
	assert.Equal(t, LongInterval, rec.Months)
	assert.Equal(t, []Rule{RuleNoActiveWorkers}, rec.Rules)
	assert.Zero(t, e.absences.calls, "cascade stops before reading absenteeism")
}

func TestRecommend_Under21WinsOverEverything(t *testing.T) {
	e := newEnv()
	e.workers.workers = append(e.workers.workers, &workforce.Worker{BirthDate: date(2008, 1, 1), HireDate: date(2015, 1, 1)})

	rec := recommend(t, e)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleUnder21}, rec.Rules)
	assert.Zero(t, e.exams.calls)
	assert.Zero(t, e.matrices.calls)
}

func TestRecommend_DemographicFlags(t *testing.T) {
	e := newEnv()
	e.workers.workers = []*workforce.Worker{
		{BirthDate: date(1990, 1, 1), HireDate: date(2026, 1, 1)},
		{BirthDate: date(1990, 1, 1)},
	}
	rec := recommend(t, e)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleShortTenure, RuleMissingHireDate}, rec.Rules)
}

func TestRecommend_WorkRelatedEvents(t *testing.T) {
	for _, typ := range []workforce.EventType{workforce.EventWorkAccident, workforce.EventWorkIllness} {
		e := newEnv()
		e.absences.events = append(e.absences.events, &workforce.AbsenceEvent{EventType: typ})
		rec := recommend(t, e)
		assert.Equal(t, ShortInterval, rec.Months, typ)
		assert.Equal(t, []Rule{RuleWorkRelatedEvents}, rec.Rules)
		assert.Zero(t, e.exams.calls)
	}
}

func TestRecommend_ExamFindings(t *testing.T) {
	cases := []*workforce.OccupationalExam{
		{Aptitude: workforce.AptitudeUnfit},
		{Aptitude: workforce.AptitudeFit, RequiresFollowUp: true},
	}
	for _, exam := range cases {
		e := newEnv()
		e.exams.exams = append(e.exams.exams, exam)
		rec := recommend(t, e)
		assert.Equal(t, ShortInterval, rec.Months)
		assert.Equal(t, []Rule{RuleExamFindings}, rec.Rules)
	}
}

func TestRecommend_FitWithRecommendationsIsNotAFinding(t *testing.T) {
	e := newEnv()
	e.exams.exams = []*workforce.OccupationalExam{{Aptitude: workforce.AptitudeFitWithRecommendations}}
	assert.Equal(t, LongInterval, recommend(t, e).Months)
}

func TestRecommend_NoMatrix(t *testing.T) {
	e := newEnv()
	e.matrices.versions = nil
	rec := recommend(t, e)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleNoRiskMatrix}, rec.Rules)

	low := Summarize([]HazardScore{{HazardID: uuid.New(), ND: iptr(2), NE: iptr(1), NC: iptr(10)}}, nil, 3)
	rec, err := e.engine().Recommend(context.Background(), e.positionID, &low)
	require.NoError(t, err)
	assert.Equal(t, LongInterval, rec.Months, "ad-hoc scores stand in for the missing matrix")
}

func TestRecommend_UnstableMatrix(t *testing.T) {
	e := newEnv()
	moved := e.row(e.dust, 2, 1, 10)
	moved.Zone = "Yard"
	e.matrices.versions[0].Rows[1] = moved
	rec := recommend(t, e)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleUnstableMatrix}, rec.Rules)
}

func TestRecommend_RiskThreshold(t *testing.T) {
	e := newEnv()
	// 6*1*10 = 60 on both versions keeps the matrix stable.
	for _, m := range e.matrices.versions {
		m.Rows = []*riskmatrix.Row{e.row(e.noise, 6, 1, 10)}
	}
	rec := recommend(t, e)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleHighRisk}, rec.Rules)
}

func TestDecide_MaxNR49Versus50(t *testing.T) {
	e := newEnv()
	in, err := e.agg.Collect(context.Background(), e.positionID, RecommendationWindowMonths, nil)
	require.NoError(t, err)

	in.Risk.MaxNR = iptr(49)
	assert.Equal(t, LongInterval, Decide(in).Months)

	in.Risk.MaxNR = iptr(50)
	rec := Decide(in)
	assert.Equal(t, ShortInterval, rec.Months)
	assert.Equal(t, []Rule{RuleHighRisk}, rec.Rules)
}

func TestRecommend_OverrideAtThreshold(t *testing.T) {
	e := newEnv()
	override := RiskSummary{HasMatrix: true, Evaluated: 1, MaxNR: iptr(49)}
	rec, err := e.engine().Recommend(context.Background(), e.positionID, &override)
	require.NoError(t, err)
	assert.Equal(t, LongInterval, rec.Months)

	override.MaxNR = iptr(50)
	rec, err = e.engine().Recommend(context.Background(), e.positionID, &override)
	require.NoError(t, err)
	assert.Equal(t, ShortInterval, rec.Months)
}

func TestRecommend_Idempotent(t *testing.T) {
	e := newEnv()
	e.exams.exams = append(e.exams.exams, &workforce.OccupationalExam{RequiresFollowUp: true})
	first := recommend(t, e)
	second := recommend(t, e)
	assert.Equal(t, first, second)
}

func TestRecommend_DegradedSourcesCountAsEmpty(t *testing.T) {
	e := newEnv()
	e.absences.err = errStoreDown
	e.exams.err = errStoreDown
	assert.Equal(t, LongInterval, recommend(t, e).Months)
}

func TestRecommend_MatchesDecideOnSameData(t *testing.T) {
	e := newEnv()
	e.matrices.versions = e.matrices.versions[:1]
	in, err := e.agg.Collect(context.Background(), e.positionID, RecommendationWindowMonths, nil)
	require.NoError(t, err)
	assert.Equal(t, Decide(in), recommend(t, e))
}

func TestRecommend_WorkersUnreadable(t *testing.T) {
	e := newEnv()
	e.workers.err = errStoreDown
	_, err := e.engine().Recommend(context.Background(), e.positionID, nil)
	assert.ErrorIs(t, err, errStoreDown)
}

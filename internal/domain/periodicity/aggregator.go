package periodicity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/domain/catalog"
	"github.com/ohs/ohs/internal/domain/gtc45"
	"github.com/ohs/ohs/internal/domain/riskmatrix"
	"github.com/ohs/ohs/internal/domain/workforce"
	"github.com/ohs/ohs/internal/platform/metrics"
)

// MatrixSource returns the newest n risk matrix versions of a position,
// newest first, with their rows.
type MatrixSource interface {
	LatestByPosition(ctx context.Context, positionID uuid.UUID, n int) ([]*riskmatrix.RiskMatrix, error)
}

// HazardLookup resolves hazard names and categories for summaries.
type HazardLookup interface {
	HazardsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.HazardFactor, error)
}

// Degraded-read sources.
const (
	sourceAbsenteeism = "absenteeism"
	sourceExams       = "exams"
	sourceRiskMatrix  = "risk_matrix"
	sourceHazards     = "hazard_catalog"
)

// Aggregator reads the four indicator sources of a position. Every call
// re-reads its source.
type Aggregator struct {
	workers  workforce.WorkerRepository
	absences workforce.AbsenceRepository
	exams    workforce.ExamRepository
	matrices MatrixSource
	hazards  HazardLookup
	topN     int
	now      func() time.Time
	logger   zerolog.Logger
}

func NewAggregator(workers workforce.WorkerRepository, absences workforce.AbsenceRepository, exams workforce.ExamRepository,
	matrices MatrixSource, hazards HazardLookup, topN int, logger zerolog.Logger) *Aggregator {
	if topN < 0 {
		topN = 0
	}
	return &Aggregator{
		workers:  workers,
		absences: absences,
		exams:    exams,
		matrices: matrices,
		hazards:  hazards,
		topN:     topN,
		now:      time.Now,
		logger:   logger.With().Str("component", "periodicity").Logger(),
	}
}

// today is the current calendar date at UTC midnight.
func (a *Aggregator) today() time.Time {
	return dateOf(a.now())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowStart is the first day of today's month minus months.
func WindowStart(today time.Time, months int) time.Time {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if months <= 0 {
		return first
	}
	return first.AddDate(0, -months, 0)
}

// -- Demographics --

// Demographics counts the active workers of the position. Store errors are
// returned: without a population there is nothing to recommend for.
func (a *Aggregator) Demographics(ctx context.Context, positionID uuid.UUID) (Demographics, error) {
	workers, err := a.workers.ActiveByPosition(ctx, positionID)
	if err != nil {
		return Demographics{}, fmt.Errorf("load active workers: %w", err)
	}
	return CountDemographics(positionID, workers, a.today()), nil
}

// CountDemographics buckets workers by age and tenure at today.
func CountDemographics(positionID uuid.UUID, workers []*workforce.Worker, today time.Time) Demographics {
	d := Demographics{PositionID: positionID}
	today = dateOf(today)
	for _, w := range workers {
		d.ActiveWorkers++
		if age, ok := ageAt(w.BirthDate, today); ok {
			if age < 21 {
				d.Under21++
			} else {
				d.AtLeast21++
			}
		}
		tenure, ok := tenureYears(w.HireDate, today)
		switch {
		case !ok:
			d.MissingHireDate++
		case tenure < 2:
			d.TenureUnder2++
		default:
			d.TenureAtLeast2++
		}
	}
	return d
}

// ageAt returns completed years. Unknown and future birth dates give !ok.
func ageAt(birth *time.Time, today time.Time) (int, bool) {
	if birth == nil {
		return 0, false
	}
	b := dateOf(*birth)
	if b.After(today) {
		return 0, false
	}
	age := today.Year() - b.Year()
	if today.Month() < b.Month() || (today.Month() == b.Month() && today.Day() < b.Day()) {
		age--
	}
	return age, true
}

// tenureYears uses a 365.25-day year. Unknown and future hire dates give !ok.
func tenureYears(hire *time.Time, today time.Time) (float64, bool) {
	if hire == nil {
		return 0, false
	}
	h := dateOf(*hire)
	if h.After(today) {
		return 0, false
	}
	days := int(today.Sub(h).Hours() / 24)
	return float64(days) / 365.25, true
}

// -- Absenteeism and exams --

// Absenteeism counts the position's absence events over the trailing window.
// A store failure yields zero counts flagged Unavailable.
func (a *Aggregator) Absenteeism(ctx context.Context, positionID uuid.UUID, months int) Absenteeism {
	start := WindowStart(a.today(), months)
	out := Absenteeism{WindowStart: start, WindowMonths: months}
	events, err := a.absences.ByPositionSince(ctx, positionID, start)
	if err != nil {
		a.degraded(positionID, sourceAbsenteeism, err)
		out.Unavailable = true
		return out
	}
	for _, e := range events {
		out.Events++
		out.ChargedDays += e.ChargedDays
		switch e.EventType {
		case workforce.EventWorkAccident:
			out.WorkAccidents++
		case workforce.EventWorkIllness:
			out.WorkIllnesses++
		}
	}
	return out
}

// ExamHistory counts the position's occupational exams over the trailing
// window. A store failure yields zero counts flagged Unavailable.
func (a *Aggregator) ExamHistory(ctx context.Context, positionID uuid.UUID, months int) ExamHistory {
	start := WindowStart(a.today(), months)
	out := ExamHistory{WindowStart: start, WindowMonths: months}
	exams, err := a.exams.ByPositionSince(ctx, positionID, start)
	if err != nil {
		a.degraded(positionID, sourceExams, err)
		out.Unavailable = true
		return out
	}
	for _, e := range exams {
		out.Total++
		switch e.Aptitude {
		case workforce.AptitudeFit:
			out.Fit++
		case workforce.AptitudeFitWithRecommendations:
			out.FitWithRecommendations++
		case workforce.AptitudeUnfit:
			out.Unfit++
		}
		if e.RequiresFollowUp {
			out.FollowUpRequired++
		}
	}
	return out
}

// -- Risk matrix --

// Matrix loads the two newest matrix versions and returns the stability
// indicators together with the risk summary of the latest version.
func (a *Aggregator) Matrix(ctx context.Context, positionID uuid.UUID) (MatrixIndicators, RiskSummary) {
	versions, err := a.matrices.LatestByPosition(ctx, positionID, 2)
	if err != nil {
		a.degraded(positionID, sourceRiskMatrix, err)
		return MatrixIndicators{Unavailable: true}, emptySummary(false)
	}
	if len(versions) == 0 {
		return MatrixIndicators{}, emptySummary(false)
	}

	latest := versions[0]
	id := latest.ID
	date := latest.CreatedAt
	if latest.LastReviewDate != nil {
		date = *latest.LastReviewDate
	}
	ind := MatrixIndicators{
		HasMatrix:     true,
		LatestID:      &id,
		LatestVersion: latest.Version,
		LatestDate:    &date,
		RowCount:      len(latest.Rows),
	}
	if len(versions) > 1 {
		stable := sameRows(latest.Rows, versions[1].Rows)
		ind.HasPrevious = true
		ind.Stable = &stable
	}

	scores := make([]HazardScore, 0, len(latest.Rows))
	for _, r := range latest.Rows {
		scores = append(scores, HazardScore{HazardID: r.HazardID, ND: r.ND, NE: r.NE, NC: r.NC})
	}
	return ind, a.summarize(ctx, positionID, scores)
}

// SummarizeInputs previews the risk summary of unsaved hazard scores.
func (a *Aggregator) SummarizeInputs(ctx context.Context, positionID uuid.UUID, scores []HazardScore) RiskSummary {
	return a.summarize(ctx, positionID, scores)
}

func (a *Aggregator) summarize(ctx context.Context, positionID uuid.UUID, scores []HazardScore) RiskSummary {
	var names map[uuid.UUID]*catalog.HazardFactor
	if len(scores) > 0 && a.hazards != nil {
		ids := make([]uuid.UUID, 0, len(scores))
		for _, s := range scores {
			ids = append(ids, s.HazardID)
		}
		var err error
		if names, err = a.hazards.HazardsByIDs(ctx, ids); err != nil {
			a.degraded(positionID, sourceHazards, err)
			names = nil
		}
	}
	return Summarize(scores, names, a.topN)
}

// Summarize scores each tuple with GTC-45 and keeps the topN highest NR.
// Tuples without a computable NR are skipped. Hazards missing from names
// are labelled "Factor <id>".
func Summarize(scores []HazardScore, names map[uuid.UUID]*catalog.HazardFactor, topN int) RiskSummary {
	out := emptySummary(true)
	items := make([]RiskItem, 0, len(scores))
	for _, s := range scores {
		nr, ok := gtc45.Risk(s.ND, s.NE, s.NC)
		if !ok {
			continue
		}
		level := gtc45.LevelFor(nr, true)
		out.CountByLevel[level]++
		item := RiskItem{HazardID: s.HazardID, Name: "Factor " + s.HazardID.String(), NR: nr, Level: level}
		if h, found := names[s.HazardID]; found && h != nil {
			if h.Name != "" {
				item.Name = h.Name
			}
			item.Category = string(h.Category)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return out
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].NR > items[j].NR })
	maxNR := items[0].NR
	out.Evaluated = len(items)
	out.MaxNR = &maxNR
	if topN > len(items) {
		topN = len(items)
	}
	out.Top = items[:topN]
	return out
}

func emptySummary(hasMatrix bool) RiskSummary {
	return RiskSummary{HasMatrix: hasMatrix, CountByLevel: map[gtc45.RiskLevel]int{}, Top: []RiskItem{}}
}

// sameRows compares the row signatures of two versions as unordered sets.
func sameRows(a, b []*riskmatrix.Row) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := signatures(a), signatures(b)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func signatures(rows []*riskmatrix.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowSignature(r))
	}
	sort.Strings(out)
	return out
}

// rowSignature joins the descriptive and scoring fields of a row. Fields are
// quoted so separators inside free text cannot collide.
func rowSignature(r *riskmatrix.Row) string {
	score := func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}
	parts := []string{
		r.HazardID.String(),
		fmt.Sprintf("%q", r.Process),
		fmt.Sprintf("%q", r.Activity),
		fmt.Sprintf("%q", r.Task),
		fmt.Sprint(r.Routine),
		fmt.Sprintf("%q", r.Zone),
		fmt.Sprintf("%q", r.HazardType),
		fmt.Sprintf("%q", r.HazardClassification),
		fmt.Sprintf("%q", r.ControlsSource),
		fmt.Sprintf("%q", r.ControlsMedium),
		fmt.Sprintf("%q", r.ControlsIndividual),
		fmt.Sprintf("%q", r.WorstConsequence),
		fmt.Sprintf("%q", r.LegalRequirement),
		score(r.ND),
		score(r.NE),
		score(r.NC),
		fmt.Sprintf("%q", r.Unit),
	}
	return strings.Join(parts, "|")
}

func (a *Aggregator) degraded(positionID uuid.UUID, source string, err error) {
	a.logger.Warn().Err(err).
		Str("position_id", positionID.String()).
		Str("source", source).
		Msg("indicator source unavailable, using empty indicators")
	metrics.RecordDegradedRead(source)
}

// Collect loads every input the cascade and the justification read.
// override, when non-nil, replaces the stored matrix's risk summary.
func (a *Aggregator) Collect(ctx context.Context, positionID uuid.UUID, months int, override *RiskSummary) (*Inputs, error) {
	demo, err := a.Demographics(ctx, positionID)
	if err != nil {
		return nil, err
	}
	in := &Inputs{
		Demographics: demo,
		Absenteeism:  a.Absenteeism(ctx, positionID, months),
		Exams:        a.ExamHistory(ctx, positionID, months),
	}
	in.Matrix, in.Risk = a.Matrix(ctx, positionID)
	if override != nil {
		in.Risk = *override
		in.Override = true
	}
	return in, nil
}

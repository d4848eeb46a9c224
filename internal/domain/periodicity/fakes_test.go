package periodicity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/domain/catalog"
	"github.com/ohs/ohs/internal/domain/riskmatrix"
	"github.com/ohs/ohs/internal/domain/workforce"
	"github.com/ohs/ohs/internal/platform/apperr"
)

var (
	errStoreDown = errors.New("connection refused")
	fixedToday   = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func iptr(v int) *int { return &v }

type fakeWorkers struct {
	workers []*workforce.Worker
	err     error
}

func (f *fakeWorkers) ActiveByPosition(_ context.Context, _ uuid.UUID) ([]*workforce.Worker, error) {
	return f.workers, f.err
}

type fakeAbsences struct {
	events []*workforce.AbsenceEvent
	err    error
	calls  int
	since  time.Time
}

func (f *fakeAbsences) ByPositionSince(_ context.Context, _ uuid.UUID, since time.Time) ([]*workforce.AbsenceEvent, error) {
	f.calls++
	f.since = since
	return f.events, f.err
}

type fakeExams struct {
	exams []*workforce.OccupationalExam
	err   error
	calls int
}

func (f *fakeExams) ByPositionSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]*workforce.OccupationalExam, error) {
	f.calls++
	return f.exams, f.err
}

type fakeMatrices struct {
	versions []*riskmatrix.RiskMatrix
	err      error
	calls    int
}

func (f *fakeMatrices) LatestByPosition(_ context.Context, _ uuid.UUID, n int) ([]*riskmatrix.RiskMatrix, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.versions) > n {
		return f.versions[:n], nil
	}
	return f.versions, nil
}

type fakeHazards struct {
	hazards map[uuid.UUID]*catalog.HazardFactor
	err     error
}

func (f *fakeHazards) HazardsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.HazardFactor, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID]*catalog.HazardFactor)
	for _, id := range ids {
		if h, ok := f.hazards[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

type fakePositions struct {
	positions map[uuid.UUID]*workforce.Position
}

func (f *fakePositions) GetByID(_ context.Context, id uuid.UUID) (*workforce.Position, error) {
	p, ok := f.positions[id]
	if !ok {
		return nil, apperr.NotFound("position", id)
	}
	return p, nil
}

func (f *fakePositions) Missing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := f.positions[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakePositions) SetExamPeriodicity(_ context.Context, id uuid.UUID, label string) error {
	return nil
}

// env is a position whose every source looks clean: two seasoned adult
// workers, no events, no findings and a stable low-risk matrix.
type env struct {
	positionID uuid.UUID
	workers    *fakeWorkers
	absences   *fakeAbsences
	exams      *fakeExams
	matrices   *fakeMatrices
	hazards    *fakeHazards
	positions  *fakePositions
	agg        *Aggregator
	noise      uuid.UUID
	dust       uuid.UUID
}

func newEnv() *env {
	e := &env{
		positionID: uuid.New(),
		noise:      uuid.New(),
		dust:       uuid.New(),
	}
	e.workers = &fakeWorkers{workers: []*workforce.Worker{
		{ID: uuid.New(), BirthDate: date(1980, 3, 1), HireDate: date(2015, 6, 1), Active: true},
		{ID: uuid.New(), BirthDate: date(1990, 7, 15), HireDate: date(2020, 1, 10), Active: true},
	}}
	e.absences = &fakeAbsences{events: []*workforce.AbsenceEvent{
		{ID: uuid.New(), EventType: workforce.EventGeneralIllness, ChargedDays: 3},
	}}
	e.exams = &fakeExams{exams: []*workforce.OccupationalExam{
		{ID: uuid.New(), Aptitude: workforce.AptitudeFit},
	}}
	e.hazards = &fakeHazards{hazards: map[uuid.UUID]*catalog.HazardFactor{
		e.noise: {ID: e.noise, Name: "Noise", Category: catalog.CategoryPhysical},
		e.dust:  {ID: e.dust, Name: "Dust", Category: catalog.CategoryChemical},
	}}
	e.positions = &fakePositions{positions: map[uuid.UUID]*workforce.Position{
		e.positionID: {ID: e.positionID, Code: "WLD-01", Name: "Welder"},
	}}
	// NR 2*2*10 = 40 on both versions.
	e.matrices = &fakeMatrices{versions: []*riskmatrix.RiskMatrix{
		e.matrix("2.0", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), e.row(e.noise, 2, 2, 10), e.row(e.dust, 2, 1, 10)),
		e.matrix("1.0", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), e.row(e.dust, 2, 1, 10), e.row(e.noise, 2, 2, 10)),
	}}
	e.agg = NewAggregator(e.workers, e.absences, e.exams, e.matrices, e.hazards, 3, zerolog.Nop())
	e.agg.now = func() time.Time { return fixedToday }
	return e
}

func (e *env) row(hazard uuid.UUID, nd, ne, nc int) *riskmatrix.Row {
	return &riskmatrix.Row{HazardID: hazard, Process: "Fabrication", Task: "Welding", Routine: true,
		ND: iptr(nd), NE: iptr(ne), NC: iptr(nc), Unit: "dB"}
}

func (e *env) matrix(version string, created time.Time, rows ...*riskmatrix.Row) *riskmatrix.RiskMatrix {
	return &riskmatrix.RiskMatrix{ID: uuid.New(), PositionID: e.positionID, Version: version,
		State: riskmatrix.StateActive, ExamPeriodicityMonths: 36, CreatedAt: created, Rows: rows}
}

func (e *env) engine() *Engine { return NewEngine(e.agg) }

func (e *env) service() *Service {
	return NewService(e.agg, e.positions, 36, zerolog.Nop())
}

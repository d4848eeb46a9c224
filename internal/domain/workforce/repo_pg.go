package workforce

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/db"
)

// =========== Position Repository ===========

type positionRepoPG struct{ pool *pgxpool.Pool }

func NewPositionRepoPG(pool *pgxpool.Pool) PositionRepository {
	return &positionRepoPG{pool: pool}
}

func (r *positionRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *positionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Position, error) {
	var p Position
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, code, name, exam_periodicity FROM position WHERE id = $1`, id,
	).Scan(&p.ID, &p.Code, &p.Name, &p.ExamPeriodicity)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("position", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *positionRepoPG) Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT want.id FROM unnest($1::uuid[]) AS want(id)
		WHERE NOT EXISTS (SELECT 1 FROM position p WHERE p.id = want.id)`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *positionRepoPG) SetExamPeriodicity(ctx context.Context, id uuid.UUID, label string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE position SET exam_periodicity = $2, updated_at = NOW() WHERE id = $1`, id, label)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("position", id)
	}
	return nil
}

// =========== Worker Repository ===========

type workerRepoPG struct{ pool *pgxpool.Pool }

func NewWorkerRepoPG(pool *pgxpool.Pool) WorkerRepository {
	return &workerRepoPG{pool: pool}
}

func (r *workerRepoPG) ActiveByPosition(ctx context.Context, positionID uuid.UUID) ([]*Worker, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, position_id, birth_date, hire_date, active
		FROM worker WHERE position_id = $1 AND active`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Worker
	for rows.Next() {
		var w Worker
		if err := rows.Scan(&w.ID, &w.PositionID, &w.BirthDate, &w.HireDate, &w.Active); err != nil {
			return nil, err
		}
		items = append(items, &w)
	}
	return items, rows.Err()
}

// =========== Absence Repository ===========

type absenceRepoPG struct{ pool *pgxpool.Pool }

func NewAbsenceRepoPG(pool *pgxpool.Pool) AbsenceRepository {
	return &absenceRepoPG{pool: pool}
}

func (r *absenceRepoPG) ByPositionSince(ctx context.Context, positionID uuid.UUID, since time.Time) ([]*AbsenceEvent, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT a.id, a.worker_id, a.event_type, a.start_date, a.end_date, a.charged_days
		FROM absence_event a
		JOIN worker w ON w.id = a.worker_id
		WHERE w.position_id = $1 AND a.start_date >= $2`, positionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AbsenceEvent
	for rows.Next() {
		var a AbsenceEvent
		if err := rows.Scan(&a.ID, &a.WorkerID, &a.EventType, &a.StartDate, &a.EndDate, &a.ChargedDays); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

// =========== Exam Repository ===========

type examRepoPG struct{ pool *pgxpool.Pool }

func NewExamRepoPG(pool *pgxpool.Pool) ExamRepository {
	return &examRepoPG{pool: pool}
}

func (r *examRepoPG) ByPositionSince(ctx context.Context, positionID uuid.UUID, since time.Time) ([]*OccupationalExam, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT e.id, e.worker_id, e.position_id, e.exam_kind, e.exam_date, e.aptitude, e.requires_follow_up
		FROM occupational_exam e
		JOIN worker w ON w.id = e.worker_id
		WHERE (e.position_id = $1 OR w.position_id = $1) AND e.exam_date >= $2`, positionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OccupationalExam
	for rows.Next() {
		var e OccupationalExam
		if err := rows.Scan(&e.ID, &e.WorkerID, &e.PositionID, &e.ExamKind, &e.ExamDate, &e.Aptitude, &e.RequiresFollowUp); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

package workforce

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PositionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Position, error)
	// Missing returns the ids with no position row.
	Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	SetExamPeriodicity(ctx context.Context, id uuid.UUID, label string) error
}

type WorkerRepository interface {
	ActiveByPosition(ctx context.Context, positionID uuid.UUID) ([]*Worker, error)
}

// AbsenceRepository returns events of workers currently holding the position
// that started on or after since.
type AbsenceRepository interface {
	ByPositionSince(ctx context.Context, positionID uuid.UUID, since time.Time) ([]*AbsenceEvent, error)
}

// ExamRepository returns exams dated on or after since that were taken for
// the position or whose worker currently holds it.
type ExamRepository interface {
	ByPositionSince(ctx context.Context, positionID uuid.UUID, since time.Time) ([]*OccupationalExam, error)
}

package riskmatrix

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists matrices. Write methods expect to run inside the
// caller's transaction.
type Repository interface {
	// CreateHeader inserts the matrix row; a taken (position, version) is a
	// conflict.
	CreateHeader(ctx context.Context, m *RiskMatrix) error
	UpdateHeader(ctx context.Context, m *RiskMatrix) error
	GetByID(ctx context.Context, id uuid.UUID) (*RiskMatrix, error)
	ListByPosition(ctx context.Context, positionID uuid.UUID, limit, offset int) ([]*RiskMatrix, int, error)
	// LatestByPosition returns up to n fully loaded versions, newest first by
	// creation time.
	LatestByPosition(ctx context.Context, positionID uuid.UUID, n int) ([]*RiskMatrix, error)
	Versions(ctx context.Context, positionID uuid.UUID) ([]string, error)
	DeactivateOthers(ctx context.Context, positionID, keepID uuid.UUID, modifiedBy string) error
	Delete(ctx context.Context, id uuid.UUID) error

	ReplaceRows(ctx context.Context, matrixID uuid.UUID, rows []*Row) error
	ReplaceExamRequirements(ctx context.Context, matrixID uuid.UUID, reqs []*ExamRequirement) error
	ReplaceExclusionCriteria(ctx context.Context, matrixID uuid.UUID, ids []uuid.UUID) error
	ReplaceImmunizations(ctx context.Context, matrixID uuid.UUID, ids []uuid.UUID) error
}

package catalog

import (
	"context"

	"github.com/google/uuid"
)

type HazardRepository interface {
	Create(ctx context.Context, h *HazardFactor) error
	GetByID(ctx context.Context, id uuid.UUID) (*HazardFactor, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*HazardFactor, error)
	Update(ctx context.Context, h *HazardFactor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f HazardFilter, limit, offset int) ([]*HazardFactor, int, error)
}

// EntryRepository stores the simple catalogs; every call names the kind.
type EntryRepository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Entry, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
	List(ctx context.Context, kind Kind, query string, limit, offset int) ([]*Entry, int, error)
	// Missing returns the ids that have no row in the kind's table.
	Missing(ctx context.Context, kind Kind, ids []uuid.UUID) ([]uuid.UUID, error)
}

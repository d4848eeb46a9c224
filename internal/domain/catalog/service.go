package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ohs/ohs/internal/platform/apperr"
)

type Service struct {
	hazards HazardRepository
	entries EntryRepository
}

func NewService(hazards HazardRepository, entries EntryRepository) *Service {
	return &Service{hazards: hazards, entries: entries}
}

// -- Hazard factors --

func validateHazard(h *HazardFactor) error {
	h.Code = strings.TrimSpace(h.Code)
	h.Name = strings.TrimSpace(h.Name)
	if h.Code == "" {
		return apperr.Validation("code is required")
	}
	if h.Name == "" {
		return apperr.Validation("name is required")
	}
	if !validCategories[h.Category] {
		return apperr.Validation("invalid category: %s", h.Category)
	}
	if h.ReviewIntervalMonths != nil && *h.ReviewIntervalMonths <= 0 {
		return apperr.Validation("review_interval_months must be positive")
	}
	return nil
}

func (s *Service) CreateHazard(ctx context.Context, h *HazardFactor) error {
	if err := validateHazard(h); err != nil {
		return err
	}
	return s.hazards.Create(ctx, h)
}

func (s *Service) GetHazard(ctx context.Context, id uuid.UUID) (*HazardFactor, error) {
	return s.hazards.GetByID(ctx, id)
}

// HazardsByIDs resolves a set of hazards; unknown ids are absent from the map.
func (s *Service) HazardsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*HazardFactor, error) {
	return s.hazards.GetByIDs(ctx, ids)
}

func (s *Service) UpdateHazard(ctx context.Context, h *HazardFactor) error {
	if err := validateHazard(h); err != nil {
		return err
	}
	return s.hazards.Update(ctx, h)
}

func (s *Service) DeleteHazard(ctx context.Context, id uuid.UUID) error {
	return s.hazards.Delete(ctx, id)
}

func (s *Service) ListHazards(ctx context.Context, f HazardFilter, limit, offset int) ([]*HazardFactor, int, error) {
	if f.Category != "" && !validCategories[f.Category] {
		return nil, 0, apperr.Validation("invalid category: %s", f.Category)
	}
	return s.hazards.List(ctx, f, limit, offset)
}

// -- Simple catalogs --

func (s *Service) CreateEntry(ctx context.Context, e *Entry) error {
	if _, ok := entryTables[e.Kind]; !ok {
		return apperr.Validation("unknown catalog kind: %s", e.Kind)
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Code = strings.TrimSpace(e.Code)
	if e.Name == "" {
		return apperr.Validation("name is required")
	}
	if e.Kind == KindExamType && e.Code == "" {
		return apperr.Validation("code is required")
	}
	return s.entries.Create(ctx, e)
}

func (s *Service) GetEntry(ctx context.Context, kind Kind, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, kind, id)
}

func (s *Service) DeleteEntry(ctx context.Context, kind Kind, id uuid.UUID) error {
	return s.entries.Delete(ctx, kind, id)
}

func (s *Service) ListEntries(ctx context.Context, kind Kind, query string, limit, offset int) ([]*Entry, int, error) {
	return s.entries.List(ctx, kind, query, limit, offset)
}

// EnsureExist returns a not-found error naming the first id of kind that is
// not in the catalog.
func (s *Service) EnsureExist(ctx context.Context, kind Kind, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.entries.Missing(ctx, kind, ids)
	if err != nil {
		return fmt.Errorf("check %s ids: %w", kind, err)
	}
	if len(missing) > 0 {
		return apperr.NotFound(entryTables[kind].label, missing[0])
	}
	return nil
}

// EnsureHazardsExist is EnsureExist for hazard factors.
func (s *Service) EnsureHazardsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*HazardFactor, error) {
	found, err := s.hazards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load hazard factors: %w", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, apperr.NotFound("hazard factor", id)
		}
	}
	return found, nil
}

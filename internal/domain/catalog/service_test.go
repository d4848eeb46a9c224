package catalog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs/ohs/internal/platform/apperr"
)

// =========== Mock Repositories ===========

type mockHazardRepo struct {
	store map[uuid.UUID]*HazardFactor
	inUse map[uuid.UUID]bool
}

func newMockHazardRepo() *mockHazardRepo {
	return &mockHazardRepo{store: make(map[uuid.UUID]*HazardFactor), inUse: make(map[uuid.UUID]bool)}
}

func (m *mockHazardRepo) Create(_ context.Context, h *HazardFactor) error {
	for _, existing := range m.store {
		if existing.Code == h.Code {
			return apperr.Conflict("hazard code already exists: %s", h.Code)
		}
	}
	h.ID = uuid.New()
	m.store[h.ID] = h
	return nil
}

func (m *mockHazardRepo) GetByID(_ context.Context, id uuid.UUID) (*HazardFactor, error) {
	h, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("hazard factor", id)
	}
	return h, nil
}

func (m *mockHazardRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*HazardFactor, error) {
	out := make(map[uuid.UUID]*HazardFactor)
	for _, id := range ids {
		if h, ok := m.store[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (m *mockHazardRepo) Update(_ context.Context, h *HazardFactor) error {
	if _, ok := m.store[h.ID]; !ok {
		return apperr.NotFound("hazard factor", h.ID)
	}
	m.store[h.ID] = h
	return nil
}

func (m *mockHazardRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("hazard factor", id)
	}
	if m.inUse[id] {
		return apperr.Conflict("hazard factor is referenced by a risk matrix")
	}
	delete(m.store, id)
	return nil
}

func (m *mockHazardRepo) List(_ context.Context, f HazardFilter, limit, offset int) ([]*HazardFactor, int, error) {
	var result []*HazardFactor
	for _, h := range m.store {
		if f.Category != "" && h.Category != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(f.Query)) {
			continue
		}
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, len(result), nil
}

type mockEntryRepo struct {
	store map[uuid.UUID]*Entry
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{store: make(map[uuid.UUID]*Entry)}
}

func (m *mockEntryRepo) Create(_ context.Context, e *Entry) error {
	e.ID = uuid.New()
	m.store[e.ID] = e
	return nil
}

func (m *mockEntryRepo) GetByID(_ context.Context, kind Kind, id uuid.UUID) (*Entry, error) {
	e, ok := m.store[id]
	if !ok || e.Kind != kind {
		return nil, apperr.NotFound(string(kind), id)
	}
	return e, nil
}

func (m *mockEntryRepo) Delete(_ context.Context, kind Kind, id uuid.UUID) error {
	if e, ok := m.store[id]; !ok || e.Kind != kind {
		return apperr.NotFound(string(kind), id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockEntryRepo) List(_ context.Context, kind Kind, query string, limit, offset int) ([]*Entry, int, error) {
	var result []*Entry
	for _, e := range m.store {
		if e.Kind == kind && strings.Contains(e.Name, query) {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

func (m *mockEntryRepo) Missing(_ context.Context, kind Kind, ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	for _, id := range ids {
		if e, ok := m.store[id]; !ok || e.Kind != kind {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func newTestService() (*Service, *mockHazardRepo, *mockEntryRepo) {
	hz, en := newMockHazardRepo(), newMockEntryRepo()
	return NewService(hz, en), hz, en
}

func noise() *HazardFactor {
	return &HazardFactor{Code: "FIS-01", Name: "Noise", Category: CategoryPhysical, Unit: "decibel", UnitSymbol: "dB", Active: true}
}

// =========== Hazard Tests ===========

func TestCreateHazard(t *testing.T) {
	svc, _, _ := newTestService()
	h := noise()
	require.NoError(t, svc.CreateHazard(context.Background(), h))
	assert.NotEqual(t, uuid.Nil, h.ID)

	got, err := svc.GetHazard(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, "dB", got.DefaultUnit())
}

func TestCreateHazard_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	zero := 0
	cases := []*HazardFactor{
		{Name: "Noise", Category: CategoryPhysical},
		{Code: "X", Category: CategoryPhysical},
		{Code: "X", Name: "Noise", Category: "cosmic"},
		{Code: "X", Name: "Noise", Category: CategoryPhysical, ReviewIntervalMonths: &zero},
	}
	for _, h := range cases {
		err := svc.CreateHazard(context.Background(), h)
		assert.True(t, apperr.IsValidation(err), "%+v", h)
	}
}

func TestCreateHazard_DuplicateCode(t *testing.T) {
	svc, _, _ := newTestService()
	require.NoError(t, svc.CreateHazard(context.Background(), noise()))
	err := svc.CreateHazard(context.Background(), noise())
	assert.True(t, apperr.IsConflict(err))
}

func TestDeleteHazard_InUse(t *testing.T) {
	svc, repo, _ := newTestService()
	h := noise()
	require.NoError(t, svc.CreateHazard(context.Background(), h))
	repo.inUse[h.ID] = true

	assert.True(t, apperr.IsConflict(svc.DeleteHazard(context.Background(), h.ID)))
	assert.True(t, apperr.IsNotFound(svc.DeleteHazard(context.Background(), uuid.New())))
}

func TestListHazards_FilterByCategory(t *testing.T) {
	svc, _, _ := newTestService()
	require.NoError(t, svc.CreateHazard(context.Background(), noise()))
	require.NoError(t, svc.CreateHazard(context.Background(), &HazardFactor{Code: "QUI-01", Name: "Solvents", Category: CategoryChemical}))

	items, total, err := svc.ListHazards(context.Background(), HazardFilter{Category: CategoryChemical}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Solvents", items[0].Name)

	_, _, err = svc.ListHazards(context.Background(), HazardFilter{Category: "cosmic"}, 20, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestEnsureHazardsExist(t *testing.T) {
	svc, _, _ := newTestService()
	h := noise()
	require.NoError(t, svc.CreateHazard(context.Background(), h))

	found, err := svc.EnsureHazardsExist(context.Background(), []uuid.UUID{h.ID})
	require.NoError(t, err)
	assert.Contains(t, found, h.ID)

	missing := uuid.New()
	_, err = svc.EnsureHazardsExist(context.Background(), []uuid.UUID{h.ID, missing})
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), missing.String())
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

// =========== Entry Tests ===========

func TestCreateEntry(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.CreateEntry(context.Background(), &Entry{Kind: KindExamType, Name: "Audiometry"})
	assert.True(t, apperr.IsValidation(err), "exam types need a code")

	e := &Entry{Kind: KindExamType, Code: "AUD", Name: " Audiometry "}
	require.NoError(t, svc.CreateEntry(context.Background(), e))
	assert.Equal(t, "Audiometry", e.Name)

	err = svc.CreateEntry(context.Background(), &Entry{Kind: "unknown", Name: "x"})
	assert.True(t, apperr.IsValidation(err))

	err = svc.CreateEntry(context.Background(), &Entry{Kind: KindImmunization, Name: "  "})
	assert.True(t, apperr.IsValidation(err))
}

func TestEnsureExist(t *testing.T) {
	svc, _, _ := newTestService()
	e := &Entry{Kind: KindImmunization, Name: "Tetanus"}
	require.NoError(t, svc.CreateEntry(context.Background(), e))

	assert.NoError(t, svc.EnsureExist(context.Background(), KindImmunization, nil))
	assert.NoError(t, svc.EnsureExist(context.Background(), KindImmunization, []uuid.UUID{e.ID}))

	err := svc.EnsureExist(context.Background(), KindExclusionCriterion, []uuid.UUID{e.ID})
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), "exclusion criterion")
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

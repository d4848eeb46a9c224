package riskmatrix

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/domain/catalog"
	"github.com/ohs/ohs/internal/domain/workforce"
	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/metrics"
)

// Transactor runs fn in a transaction; nested calls open savepoints.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Catalog resolves the reference data rows and links point at.
type Catalog interface {
	EnsureHazardsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.HazardFactor, error)
	EnsureExist(ctx context.Context, kind catalog.Kind, ids []uuid.UUID) error
}

// JustificationDrafter writes the terse periodicity justification used when
// a matrix asks for more than 12 months without one.
type JustificationDrafter interface {
	DraftJustification(ctx context.Context, positionID uuid.UUID, months int) (string, error)
}

type Service struct {
	repo      Repository
	tx        Transactor
	catalog   Catalog
	positions workforce.PositionRepository
	workers   workforce.WorkerRepository
	drafter   JustificationDrafter
	logger    zerolog.Logger
}

func NewService(repo Repository, tx Transactor, cat Catalog, positions workforce.PositionRepository,
	workers workforce.WorkerRepository, drafter JustificationDrafter, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		catalog:   cat,
		positions: positions,
		workers:   workers,
		drafter:   drafter,
		logger:    logger.With().Str("component", "riskmatrix").Logger(),
	}
}

// -- Reads --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*RiskMatrix, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPosition(ctx context.Context, positionID uuid.UUID, limit, offset int) ([]*RiskMatrix, int, error) {
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPosition(ctx, positionID, limit, offset)
}

// -- Create --

// Create validates m, fills defaults and stores it with all its collections
// in one transaction.
func (s *Service) Create(ctx context.Context, m *RiskMatrix, user string) error {
	if m.State == "" {
		m.State = StateActive
	}
	if err := validateHeader(m); err != nil {
		return err
	}
	if err := s.validateCollections(ctx, m.Rows, m.ExamRequirements); err != nil {
		return err
	}
	m.ExclusionCriterionIDs = dedupe(m.ExclusionCriterionIDs)
	m.ImmunizationIDs = dedupe(m.ImmunizationIDs)
	if err := s.validateLinks(ctx, m.ExclusionCriterionIDs, m.ImmunizationIDs); err != nil {
		return err
	}

	if _, err := s.positions.GetByID(ctx, m.PositionID); err != nil {
		return err
	}
	if err := s.ensureVersionFree(ctx, m.PositionID, m.Version); err != nil {
		return err
	}
	if m.ExposedWorkers == nil {
		n, err := s.activeWorkers(ctx, m.PositionID)
		if err != nil {
			return err
		}
		m.ExposedWorkers = &n
	}
	if err := s.fillJustification(ctx, m); err != nil {
		return err
	}
	if err := validateJustification(m); err != nil {
		return err
	}

	m.CreatedBy = user
	m.ModifiedBy = ""
	m.ModifiedAt = nil

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateHeader(ctx, m); err != nil {
			return err
		}
		if m.State == StateActive {
			if err := s.repo.DeactivateOthers(ctx, m.PositionID, m.ID, user); err != nil {
				return fmt.Errorf("deactivate previous versions: %w", err)
			}
		}
		if err := s.writeCollections(ctx, m.ID, m.Rows, m.ExamRequirements, m.ExclusionCriterionIDs, m.ImmunizationIDs); err != nil {
			return err
		}
		return s.labelPosition(ctx, m.PositionID, m.ExamPeriodicityMonths)
	})
}

// -- Update --

// Update applies p to the matrix. Nil collections are kept; provided ones
// replace the stored collection wholesale.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patch, user string) (*RiskMatrix, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive, oldVersion := m.State == StateActive, m.Version
	applyPatch(m, p)

	if err := validateHeader(m); err != nil {
		return nil, err
	}
	if err := s.validateCollections(ctx, p.Rows, p.ExamRequirements); err != nil {
		return nil, err
	}
	exclusions, immunizations := dedupe(p.ExclusionCriterionIDs), dedupe(p.ImmunizationIDs)
	if err := s.validateLinks(ctx, exclusions, immunizations); err != nil {
		return nil, err
	}
	if m.Version != oldVersion {
		if err := s.ensureVersionFree(ctx, m.PositionID, m.Version); err != nil {
			return nil, err
		}
	}
	if p.ResetExposedWorkers {
		n, err := s.activeWorkers(ctx, m.PositionID)
		if err != nil {
			return nil, err
		}
		m.ExposedWorkers = &n
	}
	if p.ExamPeriodicityMonths != nil {
		if err := s.fillJustification(ctx, m); err != nil {
			return nil, err
		}
	}
	if err := validateJustification(m); err != nil {
		return nil, err
	}
	m.ModifiedBy = user

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateHeader(ctx, m); err != nil {
			return err
		}
		if m.State == StateActive && !wasActive {
			if err := s.repo.DeactivateOthers(ctx, m.PositionID, m.ID, user); err != nil {
				return fmt.Errorf("deactivate previous versions: %w", err)
			}
		}
		if err := s.writeCollections(ctx, m.ID, p.Rows, p.ExamRequirements, exclusions, immunizations); err != nil {
			return err
		}
		if p.ExamPeriodicityMonths != nil {
			return s.labelPosition(ctx, m.PositionID, m.ExamPeriodicityMonths)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func applyPatch(m *RiskMatrix, p *Patch) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&m.Version, p.Version)
	setStr(&m.Company, p.Company)
	setStr(&m.Department, p.Department)
	setStr(&m.PositionCode, p.PositionCode)
	setStr(&m.ValidatedBy, p.ValidatedBy)
	setStr(&m.PreparedBy, p.PreparedBy)
	setStr(&m.ReviewedBy, p.ReviewedBy)
	setStr(&m.ApprovedBy, p.ApprovedBy)
	setStr(&m.PredominantPosture, p.PredominantPosture)
	setStr(&m.ActivityDescription, p.ActivityDescription)
	setStr(&m.PeriodicityJustification, p.PeriodicityJustification)

	if p.State != nil {
		m.State = *p.State
	}
	if p.ExposedWorkers != nil {
		m.ExposedWorkers = p.ExposedWorkers
	}
	if p.PreparationDate != nil {
		m.PreparationDate = p.PreparationDate
	}
	if p.NextReviewDate != nil {
		m.NextReviewDate = p.NextReviewDate
	}
	if p.ApprovalDate != nil {
		m.ApprovalDate = p.ApprovalDate
	}
	if p.ValidityMonths != nil {
		m.ValidityMonths = p.ValidityMonths
	}
	if p.ExamPeriodicityMonths != nil {
		m.ExamPeriodicityMonths = *p.ExamPeriodicityMonths
	}
	if p.LastReviewDate != nil {
		m.LastReviewDate = p.LastReviewDate
	}
	if p.PositionRiskLevel != nil {
		m.PositionRiskLevel = p.PositionRiskLevel
	}
	if p.Rows != nil {
		m.Rows = p.Rows
	}
	if p.ExamRequirements != nil {
		m.ExamRequirements = p.ExamRequirements
	}
	if p.ExclusionCriterionIDs != nil {
		m.ExclusionCriterionIDs = dedupe(p.ExclusionCriterionIDs)
	}
	if p.ImmunizationIDs != nil {
		m.ImmunizationIDs = dedupe(p.ImmunizationIDs)
	}
}

// -- Delete --

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

// -- Duplicate --

var errAllTargetsFailed = errors.New("no duplication target succeeded")

// Duplicate copies the source matrix to every target position. Each target
// runs in its own savepoint and reports its own result; the batch commits
// when at least one target succeeded and rolls back otherwise.
func (s *Service) Duplicate(ctx context.Context, sourceID uuid.UUID, req DuplicateRequest, user string) ([]DuplicateResult, error) {
	if req.State == "" {
		req.State = StateDraft
	}
	if !validStates[req.State] {
		return nil, apperr.Validation("invalid state: %s", req.State)
	}
	targets := dedupe(req.TargetPositionIDs)
	if len(targets) == 0 {
		return nil, apperr.Validation("target_position_ids is required")
	}
	src, err := s.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	results := make([]DuplicateResult, 0, len(targets))
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		succeeded := 0
		for _, positionID := range targets {
			res := DuplicateResult{PositionID: positionID}
			err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
				return s.copyTo(ctx, src, positionID, req.State, user, &res)
			})
			if err != nil {
				res.Success = false
				res.MatrixID = nil
				res.Version = ""
				res.Message = fmt.Sprintf("duplication failed: %v", err)
				s.logger.Warn().Err(err).
					Str("source_id", sourceID.String()).
					Str("position_id", positionID.String()).
					Msg("risk matrix duplication target failed")
				metrics.RecordDuplicationTarget("failure")
			} else {
				succeeded++
				metrics.RecordDuplicationTarget("success")
			}
			results = append(results, res)
		}
		if succeeded == 0 {
			return errAllTargetsFailed
		}
		return nil
	})
	if err != nil && !errors.Is(err, errAllTargetsFailed) {
		return nil, err
	}
	return results, nil
}

func (s *Service) copyTo(ctx context.Context, src *RiskMatrix, positionID uuid.UUID, state State, user string, res *DuplicateResult) error {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return err
	}
	res.PositionName = pos.Name

	versions, err := s.repo.Versions(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	m := cloneForTarget(src, pos, NextVersion(versions), state, user)

	if err := s.repo.CreateHeader(ctx, m); err != nil {
		return err
	}
	if m.State == StateActive {
		if err := s.repo.DeactivateOthers(ctx, positionID, m.ID, user); err != nil {
			return fmt.Errorf("deactivate previous versions: %w", err)
		}
	}
	if err := s.writeCollections(ctx, m.ID, m.Rows, m.ExamRequirements, m.ExclusionCriterionIDs, m.ImmunizationIDs); err != nil {
		return err
	}

	id := m.ID
	res.MatrixID = &id
	res.Version = m.Version
	res.Success = true
	res.Message = fmt.Sprintf("risk matrix copied to position %q as version %s", pos.Name, m.Version)
	return nil
}

// NextVersion is one more than the highest version that parses as a number,
// formatted with one decimal; "1.0" when none parses.
func NextVersion(existing []string) string {
	found := false
	highest := 0.0
	for _, v := range existing {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if !found || f > highest {
			highest = f
			found = true
		}
	}
	return fmt.Sprintf("%.1f", highest+1)
}

// cloneForTarget deep-copies src for another position, clearing approval
// and authorship metadata.
func cloneForTarget(src *RiskMatrix, pos *workforce.Position, version string, state State, user string) *RiskMatrix {
	m := *src
	m.ID = uuid.Nil
	m.PositionID = pos.ID
	m.Version = version
	m.State = state
	if pos.Code != "" {
		m.PositionCode = pos.Code
	}
	m.PreparationDate = nil
	m.ValidatedBy = ""
	m.NextReviewDate = nil
	m.PreparedBy = ""
	m.ReviewedBy = ""
	m.ApprovedBy = ""
	m.ApprovalDate = nil
	m.CreatedBy = user
	m.CreatedAt = time.Time{}
	m.ModifiedBy = ""
	m.ModifiedAt = nil
	if src.ExposedWorkers != nil {
		n := *src.ExposedWorkers
		m.ExposedWorkers = &n
	}
	if src.ValidityMonths != nil {
		n := *src.ValidityMonths
		m.ValidityMonths = &n
	}
	if src.PositionRiskLevel != nil {
		l := *src.PositionRiskLevel
		m.PositionRiskLevel = &l
	}

	m.Rows = make([]*Row, 0, len(src.Rows))
	for _, r := range src.Rows {
		row := *r
		row.Controls = make([]*ControlMeasure, 0, len(r.Controls))
		for _, c := range r.Controls {
			cc := *c
			cc.ID = uuid.Nil
			row.Controls = append(row.Controls, &cc)
		}
		row.Interventions = make([]*InterventionPlan, 0, len(r.Interventions))
		for _, p := range r.Interventions {
			pp := *p
			pp.ID = uuid.Nil
			row.Interventions = append(row.Interventions, &pp)
		}
		m.Rows = append(m.Rows, &row)
	}
	m.ExamRequirements = make([]*ExamRequirement, 0, len(src.ExamRequirements))
	for _, e := range src.ExamRequirements {
		ee := *e
		m.ExamRequirements = append(m.ExamRequirements, &ee)
	}
	m.ExclusionCriterionIDs = append([]uuid.UUID{}, src.ExclusionCriterionIDs...)
	m.ImmunizationIDs = append([]uuid.UUID{}, src.ImmunizationIDs...)
	return &m
}

// -- Helpers --

// validateCollections checks rows and exam requirements and fills blank row
// units from the hazard catalog. Nil collections are skipped.
func (s *Service) validateCollections(ctx context.Context, rows []*Row, reqs []*ExamRequirement) error {
	if err := validateRows(rows); err != nil {
		return err
	}
	if err := validateExamRequirements(reqs); err != nil {
		return err
	}
	if len(rows) > 0 {
		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.HazardID)
		}
		hazards, err := s.catalog.EnsureHazardsExist(ctx, ids)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if strings.TrimSpace(r.Unit) == "" {
				r.Unit = hazards[r.HazardID].DefaultUnit()
			}
		}
	}
	if len(reqs) > 0 {
		ids := make([]uuid.UUID, 0, len(reqs))
		for _, e := range reqs {
			ids = append(ids, e.ExamTypeID)
		}
		if err := s.catalog.EnsureExist(ctx, catalog.KindExamType, dedupe(ids)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateLinks(ctx context.Context, exclusions, immunizations []uuid.UUID) error {
	if err := s.catalog.EnsureExist(ctx, catalog.KindExclusionCriterion, exclusions); err != nil {
		return err
	}
	return s.catalog.EnsureExist(ctx, catalog.KindImmunization, immunizations)
}

func (s *Service) ensureVersionFree(ctx context.Context, positionID uuid.UUID, version string) error {
	versions, err := s.repo.Versions(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	for _, v := range versions {
		if v == version {
			return apperr.Conflict("position %s already has a risk matrix version %s", positionID, version)
		}
	}
	return nil
}

func (s *Service) activeWorkers(ctx context.Context, positionID uuid.UUID) (int, error) {
	workers, err := s.workers.ActiveByPosition(ctx, positionID)
	if err != nil {
		return 0, fmt.Errorf("count active workers: %w", err)
	}
	return len(workers), nil
}

// fillJustification drafts a justification when the periodicity exceeds 12
// months and none was given.
func (s *Service) fillJustification(ctx context.Context, m *RiskMatrix) error {
	if m.ExamPeriodicityMonths <= 12 || strings.TrimSpace(m.PeriodicityJustification) != "" || s.drafter == nil {
		return nil
	}
	text, err := s.drafter.DraftJustification(ctx, m.PositionID, m.ExamPeriodicityMonths)
	if err != nil {
		return fmt.Errorf("draft periodicity justification: %w", err)
	}
	m.PeriodicityJustification = text
	return nil
}

func (s *Service) writeCollections(ctx context.Context, id uuid.UUID, rows []*Row, reqs []*ExamRequirement, exclusions, immunizations []uuid.UUID) error {
	if rows != nil {
		if err := s.repo.ReplaceRows(ctx, id, rows); err != nil {
			return err
		}
	}
	if reqs != nil {
		if err := s.repo.ReplaceExamRequirements(ctx, id, reqs); err != nil {
			return err
		}
	}
	if exclusions != nil {
		if err := s.repo.ReplaceExclusionCriteria(ctx, id, exclusions); err != nil {
			return err
		}
	}
	if immunizations != nil {
		if err := s.repo.ReplaceImmunizations(ctx, id, immunizations); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) labelPosition(ctx context.Context, positionID uuid.UUID, months int) error {
	label, ok := workforce.PeriodicityLabel(months)
	if !ok {
		return nil
	}
	if err := s.positions.SetExamPeriodicity(ctx, positionID, label); err != nil {
		return fmt.Errorf("update position periodicity: %w", err)
	}
	return nil
}

package riskmatrix

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/db"
)

type riskMatrixRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &riskMatrixRepoPG{pool: pool}
}

func (r *riskMatrixRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

// =========== Header ===========

const matrixCols = `id, position_id, version, state, company, department, position_code,
	exposed_workers, preparation_date, validated_by, next_review_date,
	prepared_by, reviewed_by, approved_by, approval_date, validity_months,
	predominant_posture, activity_description, exam_periodicity_months,
	periodicity_justification, last_review_date, position_risk_level,
	created_by, created_at, modified_by, modified_at`

func scanMatrix(row pgx.Row) (*RiskMatrix, error) {
	var m RiskMatrix
	err := row.Scan(&m.ID, &m.PositionID, &m.Version, &m.State, &m.Company, &m.Department, &m.PositionCode,
		&m.ExposedWorkers, &m.PreparationDate, &m.ValidatedBy, &m.NextReviewDate,
		&m.PreparedBy, &m.ReviewedBy, &m.ApprovedBy, &m.ApprovalDate, &m.ValidityMonths,
		&m.PredominantPosture, &m.ActivityDescription, &m.ExamPeriodicityMonths,
		&m.PeriodicityJustification, &m.LastReviewDate, &m.PositionRiskLevel,
		&m.CreatedBy, &m.CreatedAt, &m.ModifiedBy, &m.ModifiedAt)
	return &m, err
}

func (r *riskMatrixRepoPG) CreateHeader(ctx context.Context, m *RiskMatrix) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO risk_matrix (id, position_id, version, state, company, department, position_code,
			exposed_workers, preparation_date, validated_by, next_review_date,
			prepared_by, reviewed_by, approved_by, approval_date, validity_months,
			predominant_posture, activity_description, exam_periodicity_months,
			periodicity_justification, last_review_date, position_risk_level, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING created_at`,
		m.ID, m.PositionID, m.Version, m.State, m.Company, m.Department, m.PositionCode,
		m.ExposedWorkers, m.PreparationDate, m.ValidatedBy, m.NextReviewDate,
		m.PreparedBy, m.ReviewedBy, m.ApprovedBy, m.ApprovalDate, m.ValidityMonths,
		m.PredominantPosture, m.ActivityDescription, m.ExamPeriodicityMonths,
		m.PeriodicityJustification, m.LastReviewDate, m.PositionRiskLevel, m.CreatedBy,
	).Scan(&m.CreatedAt)
	return translateWriteErr(err, m)
}

func (r *riskMatrixRepoPG) UpdateHeader(ctx context.Context, m *RiskMatrix) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE risk_matrix SET version=$2, state=$3, company=$4, department=$5, position_code=$6,
			exposed_workers=$7, preparation_date=$8, validated_by=$9, next_review_date=$10,
			prepared_by=$11, reviewed_by=$12, approved_by=$13, approval_date=$14, validity_months=$15,
			predominant_posture=$16, activity_description=$17, exam_periodicity_months=$18,
			periodicity_justification=$19, last_review_date=$20, position_risk_level=$21,
			modified_by=$22, modified_at=NOW()
		WHERE id = $1
		RETURNING modified_at`,
		m.ID, m.Version, m.State, m.Company, m.Department, m.PositionCode,
		m.ExposedWorkers, m.PreparationDate, m.ValidatedBy, m.NextReviewDate,
		m.PreparedBy, m.ReviewedBy, m.ApprovedBy, m.ApprovalDate, m.ValidityMonths,
		m.PredominantPosture, m.ActivityDescription, m.ExamPeriodicityMonths,
		m.PeriodicityJustification, m.LastReviewDate, m.PositionRiskLevel, m.ModifiedBy,
	).Scan(&m.ModifiedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("risk matrix", m.ID)
	}
	return translateWriteErr(err, m)
}

func translateWriteErr(err error, m *RiskMatrix) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return apperr.Conflict("position %s already has a risk matrix version %s", m.PositionID, m.Version)
	case db.IsForeignKeyViolation(err):
		return apperr.Wrap(apperr.ErrValidation, "unknown position", err)
	case db.IsCheckViolation(err):
		return apperr.Wrap(apperr.ErrValidation, "risk matrix violates a constraint", err)
	}
	return err
}

func (r *riskMatrixRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RiskMatrix, error) {
	m, err := scanMatrix(r.conn(ctx).QueryRow(ctx, `SELECT `+matrixCols+` FROM risk_matrix WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("risk matrix", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *riskMatrixRepoPG) ListByPosition(ctx context.Context, positionID uuid.UUID, limit, offset int) ([]*RiskMatrix, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM risk_matrix WHERE position_id = $1`, positionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryHeaders(ctx, `SELECT `+matrixCols+` FROM risk_matrix WHERE position_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, positionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *riskMatrixRepoPG) LatestByPosition(ctx context.Context, positionID uuid.UUID, n int) ([]*RiskMatrix, error) {
	items, err := r.queryHeaders(ctx, `SELECT `+matrixCols+` FROM risk_matrix WHERE position_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, positionID, n)
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		if err := r.loadChildren(ctx, m); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *riskMatrixRepoPG) queryHeaders(ctx context.Context, sql string, args ...interface{}) ([]*RiskMatrix, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*RiskMatrix{}
	for rows.Next() {
		m, err := scanMatrix(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *riskMatrixRepoPG) Versions(ctx context.Context, positionID uuid.UUID) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT version FROM risk_matrix WHERE position_id = $1`, positionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *riskMatrixRepoPG) DeactivateOthers(ctx context.Context, positionID, keepID uuid.UUID, modifiedBy string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE risk_matrix SET state = 'inactive', modified_by = $3, modified_at = NOW()
		WHERE position_id = $1 AND id <> $2 AND state = 'active'`, positionID, keepID, modifiedBy)
	return err
}

func (r *riskMatrixRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM risk_matrix WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Wrap(apperr.ErrConflict, "risk matrix has dependent records", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("risk matrix", id)
	}
	return nil
}

// =========== Children ===========

const rowCols = `hazard_id, process, activity, task, routine, hazard_description, possible_effects,
	zone, hazard_type, hazard_classification, controls_source, controls_medium, controls_individual,
	worst_consequence, legal_requirement, exposure_level, exposure_hours, measured_value,
	permissible_limit, unit, nd, ne, nc, elimination, substitution, engineering_controls,
	administrative_controls, signage, required_ppe`

func (r *riskMatrixRepoPG) loadChildren(ctx context.Context, m *RiskMatrix) error {
	var err error
	if m.Rows, err = r.loadRows(ctx, m.ID); err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	if m.ExamRequirements, err = r.loadExamRequirements(ctx, m.ID); err != nil {
		return fmt.Errorf("load exam requirements: %w", err)
	}
	if m.ExclusionCriterionIDs, err = r.loadIDs(ctx,
		`SELECT criterion_id FROM matrix_exclusion_criterion WHERE matrix_id = $1 ORDER BY criterion_id`, m.ID); err != nil {
		return fmt.Errorf("load exclusion criteria: %w", err)
	}
	if m.ImmunizationIDs, err = r.loadIDs(ctx,
		`SELECT immunization_id FROM matrix_immunization WHERE matrix_id = $1 ORDER BY immunization_id`, m.ID); err != nil {
		return fmt.Errorf("load immunizations: %w", err)
	}
	return nil
}

func (r *riskMatrixRepoPG) loadRows(ctx context.Context, matrixID uuid.UUID) ([]*Row, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+rowCols+` FROM risk_matrix_row WHERE matrix_id = $1 ORDER BY hazard_id`, matrixID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Row{}
	byHazard := make(map[uuid.UUID]*Row)
	for rows.Next() {
		var w Row
		if err := rows.Scan(&w.HazardID, &w.Process, &w.Activity, &w.Task, &w.Routine, &w.HazardDescription,
			&w.PossibleEffects, &w.Zone, &w.HazardType, &w.HazardClassification, &w.ControlsSource,
			&w.ControlsMedium, &w.ControlsIndividual, &w.WorstConsequence, &w.LegalRequirement,
			&w.ExposureLevel, &w.ExposureHours, &w.MeasuredValue, &w.PermissibleLimit, &w.Unit,
			&w.ND, &w.NE, &w.NC, &w.Elimination, &w.Substitution, &w.EngineeringControls,
			&w.AdministrativeControls, &w.Signage, &w.RequiredPPE); err != nil {
			return nil, err
		}
		w.Controls = []*ControlMeasure{}
		w.Interventions = []*InterventionPlan{}
		items = append(items, &w)
		byHazard[w.HazardID] = &w
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ctrl, err := r.conn(ctx).Query(ctx, `
		SELECT hazard_id, id, level, measure, description, current_state, target
		FROM control_measure WHERE matrix_id = $1 ORDER BY id`, matrixID)
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()
	for ctrl.Next() {
		var hazardID uuid.UUID
		var c ControlMeasure
		if err := ctrl.Scan(&hazardID, &c.ID, &c.Level, &c.Measure, &c.Description, &c.CurrentState, &c.Target); err != nil {
			return nil, err
		}
		if w := byHazard[hazardID]; w != nil {
			w.Controls = append(w.Controls, &c)
		}
	}
	if err := ctrl.Err(); err != nil {
		return nil, err
	}
	ctrl.Close()

	plans, err := r.conn(ctx).Query(ctx, `
		SELECT hazard_id, id, level, description, responsible, deadline
		FROM intervention_plan WHERE matrix_id = $1 ORDER BY id`, matrixID)
	if err != nil {
		return nil, err
	}
	defer plans.Close()
	for plans.Next() {
		var hazardID uuid.UUID
		var p InterventionPlan
		if err := plans.Scan(&hazardID, &p.ID, &p.Level, &p.Description, &p.Responsible, &p.Deadline); err != nil {
			return nil, err
		}
		if w := byHazard[hazardID]; w != nil {
			w.Interventions = append(w.Interventions, &p)
		}
	}
	return items, plans.Err()
}

func (r *riskMatrixRepoPG) loadExamRequirements(ctx context.Context, matrixID uuid.UUID) ([]*ExamRequirement, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT exam_type_id, stage, periodicity_months, justification, mandatory, sort_order, regulatory_basis
		FROM exam_requirement WHERE matrix_id = $1 ORDER BY sort_order, stage, exam_type_id`, matrixID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*ExamRequirement{}
	for rows.Next() {
		var e ExamRequirement
		if err := rows.Scan(&e.ExamTypeID, &e.Stage, &e.PeriodicityMonths, &e.Justification,
			&e.Mandatory, &e.Order, &e.RegulatoryBasis); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

func (r *riskMatrixRepoPG) loadIDs(ctx context.Context, sql string, matrixID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, matrixID)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (r *riskMatrixRepoPG) ReplaceRows(ctx context.Context, matrixID uuid.UUID, items []*Row) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM risk_matrix_row WHERE matrix_id = $1`, matrixID); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	for _, w := range items {
		_, err := q.Exec(ctx, `
			INSERT INTO risk_matrix_row (matrix_id, `+rowCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)`,
			matrixID, w.HazardID, w.Process, w.Activity, w.Task, w.Routine, w.HazardDescription,
			w.PossibleEffects, w.Zone, w.HazardType, w.HazardClassification, w.ControlsSource,
			w.ControlsMedium, w.ControlsIndividual, w.WorstConsequence, w.LegalRequirement,
			w.ExposureLevel, w.ExposureHours, w.MeasuredValue, w.PermissibleLimit, w.Unit,
			w.ND, w.NE, w.NC, w.Elimination, w.Substitution, w.EngineeringControls,
			w.AdministrativeControls, w.Signage, w.RequiredPPE)
		if err != nil {
			return fmt.Errorf("insert row for hazard %s: %w", w.HazardID, err)
		}
		for _, c := range w.Controls {
			c.ID = uuid.New()
			if _, err := q.Exec(ctx, `
				INSERT INTO control_measure (id, matrix_id, hazard_id, level, measure, description, current_state, target)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				c.ID, matrixID, w.HazardID, c.Level, c.Measure, c.Description, c.CurrentState, c.Target); err != nil {
				return fmt.Errorf("insert control measure: %w", err)
			}
		}
		for _, p := range w.Interventions {
			p.ID = uuid.New()
			if _, err := q.Exec(ctx, `
				INSERT INTO intervention_plan (id, matrix_id, hazard_id, level, description, responsible, deadline)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				p.ID, matrixID, w.HazardID, p.Level, p.Description, p.Responsible, p.Deadline); err != nil {
				return fmt.Errorf("insert intervention plan: %w", err)
			}
		}
	}
	return nil
}

func (r *riskMatrixRepoPG) ReplaceExamRequirements(ctx context.Context, matrixID uuid.UUID, reqs []*ExamRequirement) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM exam_requirement WHERE matrix_id = $1`, matrixID); err != nil {
		return fmt.Errorf("clear exam requirements: %w", err)
	}
	for _, e := range reqs {
		if _, err := q.Exec(ctx, `
			INSERT INTO exam_requirement (matrix_id, exam_type_id, stage, periodicity_months, justification,
				mandatory, sort_order, regulatory_basis)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			matrixID, e.ExamTypeID, e.Stage, e.PeriodicityMonths, e.Justification,
			e.Mandatory, e.Order, e.RegulatoryBasis); err != nil {
			return fmt.Errorf("insert exam requirement: %w", err)
		}
	}
	return nil
}

func (r *riskMatrixRepoPG) ReplaceExclusionCriteria(ctx context.Context, matrixID uuid.UUID, ids []uuid.UUID) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM matrix_exclusion_criterion WHERE matrix_id = $1`, matrixID); err != nil {
		return fmt.Errorf("clear exclusion criteria: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO matrix_exclusion_criterion (matrix_id, criterion_id)
		SELECT $1, unnest($2::uuid[])`, matrixID, ids)
	return err
}

func (r *riskMatrixRepoPG) ReplaceImmunizations(ctx context.Context, matrixID uuid.UUID, ids []uuid.UUID) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM matrix_immunization WHERE matrix_id = $1`, matrixID); err != nil {
		return fmt.Errorf("clear immunizations: %w", err)
	}
	for _, id := range ids {
		if _, err := q.Exec(ctx, `INSERT INTO matrix_immunization (id, matrix_id, immunization_id) VALUES ($1,$2,$3)`,
			uuid.New(), matrixID, id); err != nil {
			return fmt.Errorf("insert immunization link: %w", err)
		}
	}
	return nil
}

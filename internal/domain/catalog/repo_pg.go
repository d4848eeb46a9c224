package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/db"
)

// =========== Hazard Repository ===========

type hazardRepoPG struct{ pool *pgxpool.Pool }

func NewHazardRepoPG(pool *pgxpool.Pool) HazardRepository {
	return &hazardRepoPG{pool: pool}
}

func (r *hazardRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const hazardCols = `id, code, name, category, description, review_interval_months,
	regulation, unit, unit_symbol, requires_surveillance, active, created_at, updated_at`

func (r *hazardRepoPG) scanHazard(row pgx.Row) (*HazardFactor, error) {
	var h HazardFactor
	err := row.Scan(&h.ID, &h.Code, &h.Name, &h.Category, &h.Description, &h.ReviewIntervalMonths,
		&h.Regulation, &h.Unit, &h.UnitSymbol, &h.RequiresSurveillance, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

func (r *hazardRepoPG) Create(ctx context.Context, h *HazardFactor) error {
	h.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hazard_factor (id, code, name, category, description, review_interval_months,
			regulation, unit, unit_symbol, requires_surveillance, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		h.ID, h.Code, h.Name, h.Category, h.Description, h.ReviewIntervalMonths,
		h.Regulation, h.Unit, h.UnitSymbol, h.RequiresSurveillance, h.Active,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("hazard code already exists: %s", h.Code)
	}
	return err
}

func (r *hazardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HazardFactor, error) {
	h, err := r.scanHazard(r.conn(ctx).QueryRow(ctx, `SELECT `+hazardCols+` FROM hazard_factor WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("hazard factor", id)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *hazardRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*HazardFactor, error) {
	out := make(map[uuid.UUID]*HazardFactor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+hazardCols+` FROM hazard_factor WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		h, err := r.scanHazard(rows)
		if err != nil {
			return nil, err
		}
		out[h.ID] = h
	}
	return out, rows.Err()
}

func (r *hazardRepoPG) Update(ctx context.Context, h *HazardFactor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hazard_factor SET code=$2, name=$3, category=$4, description=$5,
			review_interval_months=$6, regulation=$7, unit=$8, unit_symbol=$9,
			requires_surveillance=$10, active=$11, updated_at=NOW()
		WHERE id = $1`,
		h.ID, h.Code, h.Name, h.Category, h.Description, h.ReviewIntervalMonths,
		h.Regulation, h.Unit, h.UnitSymbol, h.RequiresSurveillance, h.Active)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("hazard code already exists: %s", h.Code)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("hazard factor", h.ID)
	}
	return nil
}

func (r *hazardRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM hazard_factor WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Wrap(apperr.ErrConflict, "hazard factor is referenced by a risk matrix", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("hazard factor", id)
	}
	return nil
}

func (r *hazardRepoPG) List(ctx context.Context, f HazardFilter, limit, offset int) ([]*HazardFactor, int, error) {
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%')
		AND ($2 = '' OR category = $2)
		AND (NOT $3 OR active)`
	args := []interface{}{f.Query, string(f.Category), f.ActiveOnly}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hazard_factor `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+hazardCols+` FROM hazard_factor `+where+
		` ORDER BY category, code LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HazardFactor
	for rows.Next() {
		h, err := r.scanHazard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

// =========== Entry Repository ===========

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

type entryTable struct {
	name    string
	codeCol string
	label   string
}

var entryTables = map[Kind]entryTable{
	KindExamType:           {name: "exam_type", codeCol: "code", label: "exam type"},
	KindExclusionCriterion: {name: "exclusion_criterion", codeCol: "''", label: "exclusion criterion"},
	KindImmunization:       {name: "immunization", codeCol: "''", label: "immunization"},
}

func tableFor(kind Kind) (entryTable, error) {
	t, ok := entryTables[kind]
	if !ok {
		return entryTable{}, fmt.Errorf("unknown catalog kind: %q", kind)
	}
	return t, nil
}

func (t entryTable) cols() string {
	return `id, ` + t.codeCol + `, name, description, active, created_at`
}

func scanEntry(kind Kind, row pgx.Row) (*Entry, error) {
	e := Entry{Kind: kind}
	err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Description, &e.Active, &e.CreatedAt)
	return &e, err
}

func (r *entryRepoPG) Create(ctx context.Context, e *Entry) error {
	t, err := tableFor(e.Kind)
	if err != nil {
		return err
	}
	e.ID = uuid.New()
	if e.Kind == KindExamType {
		err = r.conn(ctx).QueryRow(ctx,
			`INSERT INTO exam_type (id, code, name, description, active) VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
			e.ID, e.Code, e.Name, e.Description, e.Active).Scan(&e.CreatedAt)
	} else {
		err = r.conn(ctx).QueryRow(ctx,
			`INSERT INTO `+t.name+` (id, name, description, active) VALUES ($1,$2,$3,$4) RETURNING created_at`,
			e.ID, e.Name, e.Description, e.Active).Scan(&e.CreatedAt)
	}
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("%s already exists: %s", t.label, e.Name)
	}
	return err
}

func (r *entryRepoPG) GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Entry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	e, err := scanEntry(kind, r.conn(ctx).QueryRow(ctx, `SELECT `+t.cols()+` FROM `+t.name+` WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(t.label, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *entryRepoPG) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM `+t.name+` WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Wrap(apperr.ErrConflict, t.label+" is referenced by a risk matrix", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(t.label, id)
	}
	return nil
}

func (r *entryRepoPG) List(ctx context.Context, kind Kind, query string, limit, offset int) ([]*Entry, int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM `+t.name+` `+where, query).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+t.cols()+` FROM `+t.name+` `+where+
		` ORDER BY name LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(kind, rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *entryRepoPG) Missing(ctx context.Context, kind Kind, ids []uuid.UUID) ([]uuid.UUID, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT want.id FROM unnest($1::uuid[]) AS want(id)
		WHERE NOT EXISTS (SELECT 1 FROM `+t.name+` c WHERE c.id = want.id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missing []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

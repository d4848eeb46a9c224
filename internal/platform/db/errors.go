package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsForeignKeyViolation(err error) bool { return pgCode(err) == codeForeignKeyViolation }
func IsUniqueViolation(err error) bool     { return pgCode(err) == codeUniqueViolation }
func IsCheckViolation(err error) bool      { return pgCode(err) == codeCheckViolation }

// IsNoRows reports whether a QueryRow scan found nothing.
func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

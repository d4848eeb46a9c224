package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	fk := fmt.Errorf("delete hazard: %w", &pgconn.PgError{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))

	uq := &pgconn.PgError{Code: "23505"}
	assert.True(t, IsUniqueViolation(uq))
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))

	assert.False(t, IsForeignKeyViolation(fmt.Errorf("plain")))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
}

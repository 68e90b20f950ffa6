package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileOperacionFilters(t *testing.T) {
	filters, err := domain.BuildOperacionFilters(map[string]string{
		"fecha":   "2024-01:2024-03",
		"codigo":  "50%_off",
		"persona": "Norte",
	})
	require.NoError(t, err)

	w, err := compileOperacionFilters(filters)
	require.NoError(t, err)

	assert.Equal(t,
		" WHERE o.codigo ILIKE $1"+
			" AND o.fecha BETWEEN $2 AND $3"+
			" AND EXISTS (SELECT 1 FROM personas p WHERE p.id = o.id_persona AND (p.cuit ILIKE $4 OR p.razon_social ILIKE $4))",
		w.clause())
	require.Len(t, w.args, 4)
	assert.Equal(t, `%50\%\_off%`, w.args[0])
	assert.Equal(t, pgtype.Date{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}, w.args[1])
	assert.Equal(t, pgtype.Date{Time: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Valid: true}, w.args[2])
	assert.Equal(t, "%Norte%", w.args[3])
}

func TestCompileOperacionFilters_NoFilters(t *testing.T) {
	w, err := compileOperacionFilters(nil)
	require.NoError(t, err)
	assert.Equal(t, "", w.clause())
	assert.Empty(t, w.args)
}

func TestCompileOperacionFilters_UnknownColumn(t *testing.T) {
	_, err := compileOperacionFilters([]domain.FilterPredicate{{Kind: domain.FilterSubstring, Column: "password"}})
	assert.Error(t, err)

	_, err = compileOperacionFilters([]domain.FilterPredicate{{Kind: 99}})
	assert.Error(t, err)
}

func TestCatalogoWhere(t *testing.T) {
	w := catalogoWhere(domain.CatalogoFilter{
		Matches:  []domain.FieldMatch{{Field: "nombre", Value: "serv"}, {Field: "otro", Value: "x"}},
		ParentID: 3,
	}, "id_concepto")
	assert.Equal(t, " WHERE nombre ILIKE $1 AND id_concepto = $2", w.clause())
	assert.Equal(t, []any{"%serv%", int32(3)}, w.args)

	top := catalogoWhere(domain.CatalogoFilter{ParentID: 3}, "")
	assert.Equal(t, "", top.clause())
}

func TestForeignKeyError(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"operaciones_id_persona_fkey", domain.ErrPersonaNotFound},
		{"operaciones_id_subcategoria_fkey", domain.ErrSubcategoriaNotFound},
		{"operaciones_id_usuario_fkey", domain.ErrUsuarioNotFound},
		{"categorias_id_concepto_fkey", domain.ErrConceptoNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			err := &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: tt.constraint}
			assert.ErrorIs(t, foreignKeyError(err), tt.want)
		})
	}

	other := errors.New("boom")
	assert.Equal(t, other, foreignKeyError(other))
	assert.ErrorIs(t, inUseError(&pgconn.PgError{Code: pgForeignKeyViolation}), domain.ErrInUse)
	assert.True(t, isPgUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}))
}

func TestNumericRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("-1234.56")
	num, err := decimalToPgNumeric(d)
	require.NoError(t, err)
	assert.True(t, d.Equal(pgNumericToDecimal(num)))
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
}

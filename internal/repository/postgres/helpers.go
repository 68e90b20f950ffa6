package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	if n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func toPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

// pgErrorCode returns the SQLSTATE and constraint name of err, or empty strings.
func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isPgUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

// foreignKeyError maps a foreign key violation on an operation column to the not-found
// error of the referenced entity.
func foreignKeyError(err error) error {
	code, constraint := pgErrorCode(err)
	if code != pgForeignKeyViolation {
		return err
	}
	switch {
	case strings.Contains(constraint, "id_persona"):
		return domain.ErrPersonaNotFound
	case strings.Contains(constraint, "id_subcategoria"):
		return domain.ErrSubcategoriaNotFound
	case strings.Contains(constraint, "id_usuario"):
		return domain.ErrUsuarioNotFound
	case strings.Contains(constraint, "id_categoria"):
		return domain.ErrCategoriaNotFound
	case strings.Contains(constraint, "id_concepto"):
		return domain.ErrConceptoNotFound
	}
	return err
}

// inUseError maps a foreign key violation raised by a DELETE to domain.ErrInUse.
func inUseError(err error) error {
	if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
		return domain.ErrInUse
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching value literally anywhere in the text.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// arg registers v and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(cond string) {
	w.conds = append(w.conds, cond)
}

// matches adds a substring condition for every FieldMatch whose field is in columns.
func (w *whereBuilder) matches(matches []domain.FieldMatch, columns map[string]string) {
	for _, m := range matches {
		col, ok := columns[m.Field]
		if !ok {
			continue
		}
		w.add(fmt.Sprintf("%s ILIKE %s", col, w.arg(containsPattern(m.Value))))
	}
}

// clause renders " WHERE ..." or "" when there are no conditions.
func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// listPage runs a count and a page query sharing the same FROM and WHERE.
func listPage[T any](ctx context.Context, q querier, selectCols, from, orderBy string, w *whereBuilder, page domain.Pagination, scan func(pgx.CollectableRow) (*T, error)) (*domain.Paginated[T], error) {
	page = page.Normalize()

	var total int64
	if err := q.QueryRow(ctx, "SELECT count(*) FROM "+from+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, err
	}

	args := append([]any{}, w.args...)
	limit := fmt.Sprintf("$%d", len(args)+1)
	offset := fmt.Sprintf("$%d", len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	sql := "SELECT " + selectCols + " FROM " + from + w.clause() + " ORDER BY " + orderBy + " LIMIT " + limit + " OFFSET " + offset
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	data, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginated(data, total, page), nil
}

func notFoundOr(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const operacionColumns = `o.id, o.fecha, o.tipo, o.caracter, o.naturaleza, o.id_persona, o."option", o.codigo,
	o.observaciones, o.metodo_de_pago, o.monto_total, o.id_subcategoria, o.id_usuario,
	o.comprobante_path, o.comprobante_tipo, o.archivo1_path, o.archivo1_tipo,
	o.archivo2_path, o.archivo2_tipo, o.archivo3_path, o.archivo3_tipo, o.modificado_por_otro`

const detalleColumns = `COALESCE(p.cuit, ''), COALESCE(p.razon_social, ''), COALESCE(s.nombre, ''),
	COALESCE(c.nombre, ''), COALESCE(k.nombre, ''), COALESCE(u.nombre, ''), COALESCE(u.apellido, '')`

const detalleFrom = `operaciones o
	LEFT JOIN personas p ON p.id = o.id_persona
	LEFT JOIN subcategorias s ON s.id = o.id_subcategoria
	LEFT JOIN categorias c ON c.id = s.id_categoria
	LEFT JOIN conceptos k ON k.id = c.id_concepto
	LEFT JOIN usuarios u ON u.id = o.id_usuario`

// OperacionRepository implements domain.OperacionRepository using PostgreSQL
type OperacionRepository struct {
	pool *pgxpool.Pool
}

// NewOperacionRepository creates a new OperacionRepository
func NewOperacionRepository(pool *pgxpool.Pool) *OperacionRepository {
	return &OperacionRepository{pool: pool}
}

// Begin opens a database transaction scoped to one logical operation
func (r *OperacionRepository) Begin(ctx context.Context) (domain.OperacionUnitOfWork, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &operacionUnitOfWork{tx: tx}, nil
}

// Create inserts a new operation
func (r *OperacionRepository) Create(ctx context.Context, op *domain.Operacion) (*domain.Operacion, error) {
	args, err := operacionArgs(op)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO operaciones AS o (fecha, tipo, caracter, naturaleza, id_persona, "option",
		codigo, observaciones, metodo_de_pago, monto_total, id_subcategoria, id_usuario,
		comprobante_path, comprobante_tipo, archivo1_path, archivo1_tipo,
		archivo2_path, archivo2_tipo, archivo3_path, archivo3_tipo, modificado_por_otro)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING `+operacionColumns, args...)
	created, err := scanOperacion(row)
	if err != nil {
		return nil, foreignKeyError(err)
	}
	return created, nil
}

// GetByID retrieves an operation outside any transaction
func (r *OperacionRepository) GetByID(ctx context.Context, id int32) (*domain.Operacion, error) {
	return getOperacion(ctx, r.pool, id)
}

// Delete removes an operation
func (r *OperacionRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM operaciones WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOperacionNotFound
	}
	return nil
}

// List returns one page of the operations matching every filter
func (r *OperacionRepository) List(ctx context.Context, filters []domain.FilterPredicate, page domain.Pagination) (*domain.Paginated[domain.Operacion], error) {
	w, err := compileOperacionFilters(filters)
	if err != nil {
		return nil, err
	}
	return listPage(ctx, r.pool, operacionColumns, "operaciones o", "o.id", w, page,
		func(row pgx.CollectableRow) (*domain.Operacion, error) {
			return scanOperacion(row)
		})
}

// ListDetalle returns every matching operation with its related names resolved
func (r *OperacionRepository) ListDetalle(ctx context.Context, filters []domain.FilterPredicate) ([]*domain.OperacionDetalle, error) {
	w, err := compileOperacionFilters(filters)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, "SELECT "+operacionColumns+", "+detalleColumns+" FROM "+detalleFrom+w.clause()+" ORDER BY o.id", w.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OperacionDetalle, error) {
		var d domain.OperacionDetalle
		op, err := scanOperacion(row,
			&d.PersonaCUIT, &d.PersonaRazonSocial, &d.SubcategoriaNombre,
			&d.CategoriaNombre, &d.ConceptoNombre, &d.UsuarioNombre, &d.UsuarioApellido)
		if err != nil {
			return nil, err
		}
		d.Operacion = *op
		return &d, nil
	})
}

// operacionUnitOfWork wraps one pgx transaction
type operacionUnitOfWork struct {
	tx pgx.Tx
}

func (u *operacionUnitOfWork) GetByID(ctx context.Context, id int32) (*domain.Operacion, error) {
	return getOperacion(ctx, u.tx, id)
}

func (u *operacionUnitOfWork) Update(ctx context.Context, op *domain.Operacion) error {
	args, err := operacionArgs(op)
	if err != nil {
		return err
	}
	args = append([]any{op.ID}, args...)
	tag, err := u.tx.Exec(ctx, `UPDATE operaciones SET fecha = $2, tipo = $3, caracter = $4, naturaleza = $5,
		id_persona = $6, "option" = $7, codigo = $8, observaciones = $9, metodo_de_pago = $10,
		monto_total = $11, id_subcategoria = $12, id_usuario = $13,
		comprobante_path = $14, comprobante_tipo = $15, archivo1_path = $16, archivo1_tipo = $17,
		archivo2_path = $18, archivo2_tipo = $19, archivo3_path = $20, archivo3_tipo = $21,
		modificado_por_otro = $22
		WHERE id = $1`, args...)
	if err != nil {
		return foreignKeyError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOperacionNotFound
	}
	return nil
}

func (u *operacionUnitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *operacionUnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func getOperacion(ctx context.Context, q querier, id int32) (*domain.Operacion, error) {
	row := q.QueryRow(ctx, "SELECT "+operacionColumns+" FROM operaciones o WHERE o.id = $1", id)
	op, err := scanOperacion(row)
	if err != nil {
		return nil, notFoundOr(err, domain.ErrOperacionNotFound)
	}
	return op, nil
}

// operacionArgs lists the column values of op in insert order, without the id.
func operacionArgs(op *domain.Operacion) ([]any, error) {
	monto, err := decimalToPgNumeric(op.MontoTotal)
	if err != nil {
		return nil, fmt.Errorf("invalid monto_total: %w", err)
	}
	args := []any{
		toPgDate(op.Fecha), string(op.Tipo), op.Caracter, op.Naturaleza, op.IDPersona, op.Option,
		op.Codigo, op.Observaciones, op.MetodoDePago, monto, op.IDSubcategoria, op.IDUsuario,
	}
	for _, slot := range domain.ArchivoSlots {
		var path, tipo pgtype.Text
		if a := op.Archivo(slot); a != nil {
			path = pgtype.Text{String: a.Path, Valid: true}
			tipo = pgtype.Text{String: a.Tipo, Valid: true}
		}
		args = append(args, path, tipo)
	}
	return append(args, op.ModificadoPorOtro), nil
}

// scanOperacion reads operacionColumns followed by any extra destinations.
func scanOperacion(row pgx.Row, extra ...any) (*domain.Operacion, error) {
	var (
		op    domain.Operacion
		fecha pgtype.Date
		tipo  string
		monto pgtype.Numeric
		paths [4]pgtype.Text
		tipos [4]pgtype.Text
	)
	dest := []any{
		&op.ID, &fecha, &tipo, &op.Caracter, &op.Naturaleza, &op.IDPersona, &op.Option, &op.Codigo,
		&op.Observaciones, &op.MetodoDePago, &monto, &op.IDSubcategoria, &op.IDUsuario,
		&paths[0], &tipos[0], &paths[1], &tipos[1], &paths[2], &tipos[2], &paths[3], &tipos[3],
		&op.ModificadoPorOtro,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	op.Fecha = fecha.Time
	op.Tipo = domain.TipoOperacion(tipo)
	op.MontoTotal = pgNumericToDecimal(monto)
	for i, slot := range domain.ArchivoSlots {
		if paths[i].Valid {
			op.SetArchivo(slot, &domain.Archivo{Path: paths[i].String, Tipo: tipos[i].String})
		}
	}
	return &op, nil
}

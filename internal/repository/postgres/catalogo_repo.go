package postgres

import (
	"context"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var catalogoSearchColumns = map[string]string{
	"id":     "id::text",
	"nombre": "nombre",
}

// catalogoWhere builds the filter of a catalog level; parentColumn is empty for conceptos.
func catalogoWhere(filter domain.CatalogoFilter, parentColumn string) *whereBuilder {
	w := &whereBuilder{}
	w.matches(filter.Matches, catalogoSearchColumns)
	if parentColumn != "" && filter.ParentID > 0 {
		w.add(parentColumn + " = " + w.arg(filter.ParentID))
	}
	return w
}

func execDelete(ctx context.Context, pool *pgxpool.Pool, sql string, id int32, notFound error) error {
	tag, err := pool.Exec(ctx, sql, id)
	if err != nil {
		return inUseError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// ConceptoRepository implements domain.ConceptoRepository using PostgreSQL
type ConceptoRepository struct {
	pool *pgxpool.Pool
}

// NewConceptoRepository creates a new ConceptoRepository
func NewConceptoRepository(pool *pgxpool.Pool) *ConceptoRepository {
	return &ConceptoRepository{pool: pool}
}

func (r *ConceptoRepository) Create(ctx context.Context, c *domain.Concepto) (*domain.Concepto, error) {
	return scanConcepto(r.pool.QueryRow(ctx, "INSERT INTO conceptos (nombre) VALUES ($1) RETURNING id, nombre", c.Nombre))
}

func (r *ConceptoRepository) GetByID(ctx context.Context, id int32) (*domain.Concepto, error) {
	c, err := scanConcepto(r.pool.QueryRow(ctx, "SELECT id, nombre FROM conceptos WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrConceptoNotFound)
	}
	return c, nil
}

func (r *ConceptoRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Concepto], error) {
	return listPage(ctx, r.pool, "id, nombre", "conceptos", "id", catalogoWhere(filter, ""), page,
		func(row pgx.CollectableRow) (*domain.Concepto, error) {
			return scanConcepto(row)
		})
}

func (r *ConceptoRepository) Update(ctx context.Context, c *domain.Concepto) (*domain.Concepto, error) {
	updated, err := scanConcepto(r.pool.QueryRow(ctx,
		"UPDATE conceptos SET nombre = $2 WHERE id = $1 RETURNING id, nombre", c.ID, c.Nombre))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrConceptoNotFound)
	}
	return updated, nil
}

func (r *ConceptoRepository) Delete(ctx context.Context, id int32) error {
	return execDelete(ctx, r.pool, "DELETE FROM conceptos WHERE id = $1", id, domain.ErrConceptoNotFound)
}

func scanConcepto(row pgx.Row) (*domain.Concepto, error) {
	var c domain.Concepto
	if err := row.Scan(&c.ID, &c.Nombre); err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoriaRepository implements domain.CategoriaRepository using PostgreSQL
type CategoriaRepository struct {
	pool *pgxpool.Pool
}

// NewCategoriaRepository creates a new CategoriaRepository
func NewCategoriaRepository(pool *pgxpool.Pool) *CategoriaRepository {
	return &CategoriaRepository{pool: pool}
}

func (r *CategoriaRepository) Create(ctx context.Context, c *domain.Categoria) (*domain.Categoria, error) {
	created, err := scanCategoria(r.pool.QueryRow(ctx,
		"INSERT INTO categorias (nombre, id_concepto) VALUES ($1, $2) RETURNING id, nombre, id_concepto",
		c.Nombre, c.IDConcepto))
	if err != nil {
		return nil, foreignKeyError(err)
	}
	return created, nil
}

func (r *CategoriaRepository) GetByID(ctx context.Context, id int32) (*domain.Categoria, error) {
	c, err := scanCategoria(r.pool.QueryRow(ctx, "SELECT id, nombre, id_concepto FROM categorias WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrCategoriaNotFound)
	}
	return c, nil
}

func (r *CategoriaRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Categoria], error) {
	return listPage(ctx, r.pool, "id, nombre, id_concepto", "categorias", "id", catalogoWhere(filter, "id_concepto"), page,
		func(row pgx.CollectableRow) (*domain.Categoria, error) {
			return scanCategoria(row)
		})
}

func (r *CategoriaRepository) Update(ctx context.Context, c *domain.Categoria) (*domain.Categoria, error) {
	updated, err := scanCategoria(r.pool.QueryRow(ctx,
		"UPDATE categorias SET nombre = $2, id_concepto = $3 WHERE id = $1 RETURNING id, nombre, id_concepto",
		c.ID, c.Nombre, c.IDConcepto))
	if err != nil {
		return nil, notFoundOr(foreignKeyError(err), domain.ErrCategoriaNotFound)
	}
	return updated, nil
}

func (r *CategoriaRepository) Delete(ctx context.Context, id int32) error {
	return execDelete(ctx, r.pool, "DELETE FROM categorias WHERE id = $1", id, domain.ErrCategoriaNotFound)
}

func scanCategoria(row pgx.Row) (*domain.Categoria, error) {
	var c domain.Categoria
	if err := row.Scan(&c.ID, &c.Nombre, &c.IDConcepto); err != nil {
		return nil, err
	}
	return &c, nil
}

// SubcategoriaRepository implements domain.SubcategoriaRepository using PostgreSQL
type SubcategoriaRepository struct {
	pool *pgxpool.Pool
}

// NewSubcategoriaRepository creates a new SubcategoriaRepository
func NewSubcategoriaRepository(pool *pgxpool.Pool) *SubcategoriaRepository {
	return &SubcategoriaRepository{pool: pool}
}

func (r *SubcategoriaRepository) Create(ctx context.Context, s *domain.Subcategoria) (*domain.Subcategoria, error) {
	created, err := scanSubcategoria(r.pool.QueryRow(ctx,
		"INSERT INTO subcategorias (nombre, id_categoria) VALUES ($1, $2) RETURNING id, nombre, id_categoria",
		s.Nombre, s.IDCategoria))
	if err != nil {
		return nil, foreignKeyError(err)
	}
	return created, nil
}

func (r *SubcategoriaRepository) GetByID(ctx context.Context, id int32) (*domain.Subcategoria, error) {
	s, err := scanSubcategoria(r.pool.QueryRow(ctx, "SELECT id, nombre, id_categoria FROM subcategorias WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrSubcategoriaNotFound)
	}
	return s, nil
}

func (r *SubcategoriaRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Subcategoria], error) {
	return listPage(ctx, r.pool, "id, nombre, id_categoria", "subcategorias", "id", catalogoWhere(filter, "id_categoria"), page,
		func(row pgx.CollectableRow) (*domain.Subcategoria, error) {
			return scanSubcategoria(row)
		})
}

func (r *SubcategoriaRepository) Update(ctx context.Context, s *domain.Subcategoria) (*domain.Subcategoria, error) {
	updated, err := scanSubcategoria(r.pool.QueryRow(ctx,
		"UPDATE subcategorias SET nombre = $2, id_categoria = $3 WHERE id = $1 RETURNING id, nombre, id_categoria",
		s.ID, s.Nombre, s.IDCategoria))
	if err != nil {
		return nil, notFoundOr(foreignKeyError(err), domain.ErrSubcategoriaNotFound)
	}
	return updated, nil
}

func (r *SubcategoriaRepository) Delete(ctx context.Context, id int32) error {
	return execDelete(ctx, r.pool, "DELETE FROM subcategorias WHERE id = $1", id, domain.ErrSubcategoriaNotFound)
}

func scanSubcategoria(row pgx.Row) (*domain.Subcategoria, error) {
	var s domain.Subcategoria
	if err := row.Scan(&s.ID, &s.Nombre, &s.IDCategoria); err != nil {
		return nil, err
	}
	return &s, nil
}

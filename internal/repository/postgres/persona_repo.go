package postgres

import (
	"context"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const personaColumns = "id, cuit, razon_social"

var personaSearchColumns = map[string]string{
	"id":           "id::text",
	"cuit":         "cuit",
	"razon_social": "razon_social",
}

// PersonaRepository implements domain.PersonaRepository using PostgreSQL
type PersonaRepository struct {
	pool *pgxpool.Pool
}

// NewPersonaRepository creates a new PersonaRepository
func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

func (r *PersonaRepository) Create(ctx context.Context, p *domain.Persona) (*domain.Persona, error) {
	row := r.pool.QueryRow(ctx,
		"INSERT INTO personas (cuit, razon_social) VALUES ($1, $2) RETURNING "+personaColumns,
		p.CUIT, p.RazonSocial)
	created, err := scanPersona(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrCUITTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PersonaRepository) GetByID(ctx context.Context, id int32) (*domain.Persona, error) {
	p, err := scanPersona(r.pool.QueryRow(ctx, "SELECT "+personaColumns+" FROM personas WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrPersonaNotFound)
	}
	return p, nil
}

func (r *PersonaRepository) List(ctx context.Context, filters []domain.FieldMatch, page domain.Pagination) (*domain.Paginated[domain.Persona], error) {
	w := &whereBuilder{}
	w.matches(filters, personaSearchColumns)
	return listPage(ctx, r.pool, personaColumns, "personas", "id", w, page,
		func(row pgx.CollectableRow) (*domain.Persona, error) {
			return scanPersona(row)
		})
}

func (r *PersonaRepository) Update(ctx context.Context, p *domain.Persona) (*domain.Persona, error) {
	row := r.pool.QueryRow(ctx,
		"UPDATE personas SET cuit = $2, razon_social = $3 WHERE id = $1 RETURNING "+personaColumns,
		p.ID, p.CUIT, p.RazonSocial)
	updated, err := scanPersona(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrCUITTaken
		}
		return nil, notFoundOr(err, domain.ErrPersonaNotFound)
	}
	return updated, nil
}

func (r *PersonaRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM personas WHERE id = $1", id)
	if err != nil {
		return inUseError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPersonaNotFound
	}
	return nil
}

func scanPersona(row pgx.Row) (*domain.Persona, error) {
	var p domain.Persona
	if err := row.Scan(&p.ID, &p.CUIT, &p.RazonSocial); err != nil {
		return nil, err
	}
	return &p, nil
}

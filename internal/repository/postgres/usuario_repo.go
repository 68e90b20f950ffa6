package postgres

import (
	"context"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usuarioColumns = "id, nombre, apellido, email, password, rol, reset_token, token_expiration"

var usuarioSearchColumns = map[string]string{
	"id":       "id::text",
	"nombre":   "nombre",
	"apellido": "apellido",
	"email":    "email",
	"rol":      "rol",
}

// UsuarioRepository implements domain.UsuarioRepository using PostgreSQL
type UsuarioRepository struct {
	pool *pgxpool.Pool
}

// NewUsuarioRepository creates a new UsuarioRepository
func NewUsuarioRepository(pool *pgxpool.Pool) *UsuarioRepository {
	return &UsuarioRepository{pool: pool}
}

// Create inserts a new user
func (r *UsuarioRepository) Create(ctx context.Context, u *domain.Usuario) (*domain.Usuario, error) {
	row := r.pool.QueryRow(ctx,
		"INSERT INTO usuarios (nombre, apellido, email, password, rol) VALUES ($1, $2, $3, $4, $5) RETURNING "+usuarioColumns,
		u.Nombre, u.Apellido, u.Email, u.PasswordHash, string(u.Rol))
	created, err := scanUsuario(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *UsuarioRepository) GetByID(ctx context.Context, id int32) (*domain.Usuario, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UsuarioRepository) GetByEmail(ctx context.Context, email string) (*domain.Usuario, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

// GetByResetToken retrieves the user holding a password reset token
func (r *UsuarioRepository) GetByResetToken(ctx context.Context, token string) (*domain.Usuario, error) {
	return r.getOne(ctx, "reset_token = $1", token)
}

func (r *UsuarioRepository) getOne(ctx context.Context, cond string, arg any) (*domain.Usuario, error) {
	u, err := scanUsuario(r.pool.QueryRow(ctx, "SELECT "+usuarioColumns+" FROM usuarios WHERE "+cond, arg))
	if err != nil {
		return nil, notFoundOr(err, domain.ErrUsuarioNotFound)
	}
	return u, nil
}

// List returns one page of users
func (r *UsuarioRepository) List(ctx context.Context, filters []domain.FieldMatch, page domain.Pagination) (*domain.Paginated[domain.Usuario], error) {
	w := &whereBuilder{}
	w.matches(filters, usuarioSearchColumns)
	return listPage(ctx, r.pool, usuarioColumns, "usuarios", "id", w, page,
		func(row pgx.CollectableRow) (*domain.Usuario, error) {
			return scanUsuario(row)
		})
}

// Update changes the non-nil fields of upd
func (r *UsuarioRepository) Update(ctx context.Context, id int32, upd domain.UsuarioUpdate) (*domain.Usuario, error) {
	var rol *string
	if upd.Rol != nil {
		s := string(*upd.Rol)
		rol = &s
	}
	row := r.pool.QueryRow(ctx, `UPDATE usuarios SET
		nombre = COALESCE($2, nombre),
		apellido = COALESCE($3, apellido),
		email = COALESCE($4, email),
		rol = COALESCE($5, rol)
		WHERE id = $1 RETURNING `+usuarioColumns,
		id, upd.Nombre, upd.Apellido, upd.Email, rol)
	u, err := scanUsuario(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, notFoundOr(err, domain.ErrUsuarioNotFound)
	}
	return u, nil
}

// SetResetToken stores a password reset token and its expiration
func (r *UsuarioRepository) SetResetToken(ctx context.Context, id int32, token string, expiration time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE usuarios SET reset_token = $2, token_expiration = $3 WHERE id = $1",
		id, token, pgtype.Timestamptz{Time: expiration, Valid: true})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsuarioNotFound
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens that expired before now
func (r *UsuarioRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE usuarios SET reset_token = NULL, token_expiration = NULL WHERE reset_token IS NOT NULL AND token_expiration < $1",
		pgtype.Timestamptz{Time: now, Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdatePassword replaces the password hash and clears any pending reset token
func (r *UsuarioRepository) UpdatePassword(ctx context.Context, id int32, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE usuarios SET password = $2, reset_token = NULL, token_expiration = NULL WHERE id = $1",
		id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsuarioNotFound
	}
	return nil
}

// Delete removes a user. Users that created operations cannot be deleted.
func (r *UsuarioRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM usuarios WHERE id = $1", id)
	if err != nil {
		return inUseError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsuarioNotFound
	}
	return nil
}

func scanUsuario(row pgx.Row) (*domain.Usuario, error) {
	var (
		u          domain.Usuario
		rol        string
		token      pgtype.Text
		expiration pgtype.Timestamptz
	)
	if err := row.Scan(&u.ID, &u.Nombre, &u.Apellido, &u.Email, &u.PasswordHash, &rol, &token, &expiration); err != nil {
		return nil, err
	}
	u.Rol = domain.Rol(rol)
	if token.Valid {
		u.ResetToken = &token.String
	}
	if expiration.Valid {
		u.TokenExpiration = &expiration.Time
	}
	return &u, nil
}

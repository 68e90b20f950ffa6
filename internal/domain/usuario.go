package domain

import (
	"context"
	"time"
)

type Rol string

const (
	RolAdmin      Rol = "admin"
	RolSupervisor Rol = "supervisor"
	RolUsuario    Rol = "usuario"
)

// Valid reports whether r is a known role.
func (r Rol) Valid() bool {
	switch r {
	case RolAdmin, RolSupervisor, RolUsuario:
		return true
	}
	return false
}

// Usuario is a staff account. The password hash never leaves the service layer.
type Usuario struct {
	ID              int32      `json:"id"`
	Nombre          string     `json:"nombre"`
	Apellido        string     `json:"apellido"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Rol             Rol        `json:"rol"`
	ResetToken      *string    `json:"-"`
	TokenExpiration *time.Time `json:"-"`
}

// ResetTokenValid reports whether the stored reset token is still usable at now.
func (u *Usuario) ResetTokenValid(now time.Time) bool {
	return u.ResetToken != nil && u.TokenExpiration != nil && now.Before(*u.TokenExpiration)
}

// UsuarioSearchFields are the list filters accepted for users.
var UsuarioSearchFields = []string{"id", "nombre", "apellido", "email", "rol"}

// UsuarioUpdate holds the editable user fields; nil means unchanged.
type UsuarioUpdate struct {
	Nombre   *string
	Apellido *string
	Email    *string
	Rol      *Rol
}

type UsuarioRepository interface {
	Create(ctx context.Context, u *Usuario) (*Usuario, error)
	GetByID(ctx context.Context, id int32) (*Usuario, error)
	GetByEmail(ctx context.Context, email string) (*Usuario, error)
	GetByResetToken(ctx context.Context, token string) (*Usuario, error)
	List(ctx context.Context, filters []FieldMatch, page Pagination) (*Paginated[Usuario], error)
	Update(ctx context.Context, id int32, upd UsuarioUpdate) (*Usuario, error)
	SetResetToken(ctx context.Context, id int32, token string, expiration time.Time) error
	UpdatePassword(ctx context.Context, id int32, passwordHash string) error
	// ClearExpiredResetTokens drops every reset token that expired before now and
	// returns how many were removed
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id int32) error
}

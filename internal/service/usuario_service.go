package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// UsuarioService handles user administration
type UsuarioService struct {
	usuarioRepo domain.UsuarioRepository
}

// NewUsuarioService creates a new UsuarioService
func NewUsuarioService(usuarioRepo domain.UsuarioRepository) *UsuarioService {
	return &UsuarioService{usuarioRepo: usuarioRepo}
}

// ListUsuarios returns one page of the users matching params
func (s *UsuarioService) ListUsuarios(ctx context.Context, params map[string]string, page domain.Pagination) (*domain.Paginated[domain.Usuario], error) {
	result, err := s.usuarioRepo.List(ctx, domain.BuildFieldMatches(params, domain.UsuarioSearchFields), page.Normalize())
	if err != nil {
		return nil, domain.NewPersistenceError("list usuarios", err)
	}
	return result, nil
}

// GetUsuario retrieves a user by ID
func (s *UsuarioService) GetUsuario(ctx context.Context, id int32) (*domain.Usuario, error) {
	u, err := s.usuarioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get usuario", err)
	}
	return u, nil
}

// UpdateUsuario applies a partial update. Passwords cannot be changed here; other
// unknown keys are ignored.
func (s *UsuarioService) UpdateUsuario(ctx context.Context, id int32, body map[string]json.RawMessage) (*domain.Usuario, error) {
	if _, ok := body["password"]; ok {
		return nil, domain.ErrPasswordNotAllowed
	}

	var upd domain.UsuarioUpdate
	for _, f := range []struct {
		name string
		dst  **string
	}{
		{"nombre", &upd.Nombre},
		{"apellido", &upd.Apellido},
		{"email", &upd.Email},
	} {
		field, dst := f.name, f.dst
		raw, ok := body[field]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil || strings.TrimSpace(v) == "" {
			return nil, domain.NewFieldError(field, "must be a non-empty string")
		}
		if len(v) > domain.MaxNombreLength {
			return nil, domain.NewFieldError(field, "too long")
		}
		v = strings.TrimSpace(v)
		*dst = &v
	}
	if raw, ok := body["rol"]; ok {
		var rol domain.Rol
		if err := json.Unmarshal(raw, &rol); err != nil || !rol.Valid() {
			return nil, domain.NewFieldError("rol", "must be one of admin, supervisor, usuario")
		}
		upd.Rol = &rol
	}

	u, err := s.usuarioRepo.Update(ctx, id, upd)
	if err != nil {
		return nil, domain.NewPersistenceError("update usuario", err)
	}
	log.Info().Int32("usuario_id", id).Msg("Usuario updated")
	return u, nil
}

// DeleteUsuario removes a user. Users that still own operations cannot be deleted.
func (s *UsuarioService) DeleteUsuario(ctx context.Context, id int32) error {
	if err := s.usuarioRepo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete usuario", err)
	}
	log.Info().Int32("usuario_id", id).Msg("Usuario deleted")
	return nil
}

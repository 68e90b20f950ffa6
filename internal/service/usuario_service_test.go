package service

import (
	"context"
	"strings"
	"testing"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsuarioService() (*UsuarioService, *testutil.MockUsuarioRepository) {
	repo := testutil.NewMockUsuarioRepository()
	repo.AddUsuario(&domain.Usuario{Nombre: "Ana", Apellido: "Gómez", Email: "ana@example.com", Rol: domain.RolAdmin})
	repo.AddUsuario(&domain.Usuario{Nombre: "Bruno", Apellido: "Díaz", Email: "bruno@example.com", Rol: domain.RolUsuario})
	repo.AddUsuario(&domain.Usuario{Nombre: "Carla", Apellido: "Gomez", Email: "carla@example.com", Rol: domain.RolSupervisor})
	return NewUsuarioService(repo), repo
}

func TestListUsuarios_Filters(t *testing.T) {
	svc, _ := setupUsuarioService()

	result, err := svc.ListUsuarios(context.Background(), map[string]string{"apellido": "GOM", "ignored": "x"}, domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, "Ana", result.Data[0].Nombre)
	assert.Equal(t, "Carla", result.Data[1].Nombre)
}

func TestListUsuarios_Pagination(t *testing.T) {
	svc, _ := setupUsuarioService()

	result, err := svc.ListUsuarios(context.Background(), nil, domain.Pagination{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, int32(2), result.Pages)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Carla", result.Data[0].Nombre)
}

func TestGetUsuario_NotFound(t *testing.T) {
	svc, _ := setupUsuarioService()

	_, err := svc.GetUsuario(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrUsuarioNotFound)
}

func TestUpdateUsuario(t *testing.T) {
	svc, _ := setupUsuarioService()

	u, err := svc.UpdateUsuario(context.Background(), 2, body(t, map[string]any{
		"nombre": " Bruno José ",
		"rol":    "supervisor",
		"otro":   "ignored",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Bruno José", u.Nombre)
	assert.Equal(t, "Díaz", u.Apellido)
	assert.Equal(t, domain.RolSupervisor, u.Rol)
}

func TestUpdateUsuario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      int32
		body    map[string]any
		wantErr error
	}{
		{"password rejected", 2, map[string]any{"password": "x"}, domain.ErrPasswordNotAllowed},
		{"empty nombre", 2, map[string]any{"nombre": "  "}, domain.ErrValidation},
		{"nombre not a string", 2, map[string]any{"nombre": 7}, domain.ErrValidation},
		{"nombre too long", 2, map[string]any{"nombre": strings.Repeat("a", domain.MaxNombreLength+1)}, domain.ErrValidation},
		{"invalid rol", 2, map[string]any{"rol": "root"}, domain.ErrValidation},
		{"duplicate email", 2, map[string]any{"email": "ana@example.com"}, domain.ErrEmailTaken},
		{"unknown usuario", 99, map[string]any{"nombre": "X"}, domain.ErrUsuarioNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupUsuarioService()

			_, err := svc.UpdateUsuario(context.Background(), tt.id, body(t, tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteUsuario(t *testing.T) {
	svc, repo := setupUsuarioService()

	require.NoError(t, svc.DeleteUsuario(context.Background(), 2))
	assert.NotContains(t, repo.Usuarios, int32(2))

	repo.DeleteFn = func(id int32) error { return domain.ErrInUse }
	assert.ErrorIs(t, svc.DeleteUsuario(context.Background(), 1), domain.ErrConflict)
}

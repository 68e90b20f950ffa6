package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts a single token
type stubVerifier struct {
	valid  string
	claims *token.Claims
}

func (s *stubVerifier) Verify(ctx context.Context, raw string) (*token.Claims, error) {
	if raw != s.valid {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func newTestAuth() *AuthMiddleware {
	return NewAuthMiddleware(&stubVerifier{
		valid:  "good",
		claims: &token.Claims{UsuarioID: 4, Rol: domain.RolSupervisor, Email: "sup@example.com"},
	})
}

func runMiddleware(mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, bool, domain.Actor) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/operaciones", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var actor domain.Actor
	_ = mw(func(c echo.Context) error {
		called = true
		actor, _ = GetActor(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, called, actor
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"valid token", "Bearer good", http.StatusOK, true},
		{"lowercase scheme", "bearer good", http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, false},
		{"empty token", "Bearer ", http.StatusUnauthorized, false},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called, _ := runMiddleware(newTestAuth().Authenticate(), tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestAuthenticate_StoresActor(t *testing.T) {
	_, called, actor := runMiddleware(newTestAuth().Authenticate(), "Bearer good")
	require.True(t, called)
	assert.Equal(t, domain.Actor{ID: 4, Rol: domain.RolSupervisor}, actor)
}

func TestOptionalAuthenticate(t *testing.T) {
	rec, called, actor := runMiddleware(newTestAuth().OptionalAuthenticate(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, domain.Actor{}, actor)

	rec, called, _ = runMiddleware(newTestAuth().OptionalAuthenticate(), "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name       string
		claims     *token.Claims
		wantStatus int
	}{
		{"admin allowed", &token.Claims{UsuarioID: 1, Rol: domain.RolAdmin}, http.StatusOK},
		{"supervisor allowed", &token.Claims{UsuarioID: 2, Rol: domain.RolSupervisor}, http.StatusOK},
		{"usuario rejected", &token.Claims{UsuarioID: 3, Rol: domain.RolUsuario}, http.StatusForbidden},
		{"no claims", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), ClaimsKey, tt.claims))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRoles(domain.RolAdmin, domain.RolSupervisor)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetClaims_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, GetClaims(c))
	_, ok := GetActor(c)
	assert.False(t, ok)
}

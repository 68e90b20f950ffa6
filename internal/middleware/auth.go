package middleware

import (
	"context"
	"strings"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for the verified access token claims
	ClaimsKey contextKey = "claims"
)

// TokenVerifier verifies an access token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authenticate stores the claims of raw in the request context. When it reports false
// the error response has already been written.
func (m *AuthMiddleware) authenticate(c echo.Context, raw string) (bool, error) {
	claims, err := m.verifier.Verify(c.Request().Context(), raw)
	if err != nil {
		log.Debug().Err(err).Msg("Token validation failed")
		return false, unauthorizedError(c, "invalid token")
	}
	ctx := context.WithValue(c.Request().Context(), ClaimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))
	return true, nil
}

// Authenticate returns an Echo middleware that requires a valid access token
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return unauthorizedError(c, "missing authorization header")
			}
			raw, ok := bearerToken(c)
			if !ok {
				return unauthorizedError(c, "invalid authorization header format")
			}
			if ok, err := m.authenticate(c, raw); !ok {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuthenticate verifies the access token when one is sent and lets anonymous
// requests through. An invalid token is still rejected.
func (m *AuthMiddleware) OptionalAuthenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			raw, ok := bearerToken(c)
			if !ok {
				return unauthorizedError(c, "invalid authorization header format")
			}
			if ok, err := m.authenticate(c, raw); !ok {
				return err
			}
			return next(c)
		}
	}
}

// RequireRoles returns an Echo middleware that only lets the given roles through.
// It must run after Authenticate.
func RequireRoles(roles ...domain.Rol) echo.MiddlewareFunc {
	allowed := make(map[domain.Rol]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := GetClaims(c)
			if claims == nil {
				return unauthorizedError(c, "missing credentials")
			}
			if !allowed[claims.Rol] {
				log.Debug().
					Int32("usuario_id", claims.UsuarioID).
					Str("rol", string(claims.Rol)).
					Str("path", c.Path()).
					Msg("Role not allowed")
				return forbiddenError(c, "role not allowed for this resource")
			}
			return next(c)
		}
	}
}

// GetClaims extracts the verified claims from the context
func GetClaims(c echo.Context) *token.Claims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

// GetActor returns the identity of the authenticated caller
func GetActor(c echo.Context) (domain.Actor, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return domain.Actor{}, false
	}
	return claims.Actor(), true
}

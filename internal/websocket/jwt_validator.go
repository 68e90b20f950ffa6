package websocket

import (
	"context"
	"errors"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/token"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier verifies an access token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// JWTValidator authenticates WebSocket connections with the API access tokens
type JWTValidator struct {
	verifier TokenVerifier
}

// NewJWTValidator creates a new JWTValidator
func NewJWTValidator(verifier TokenVerifier) *JWTValidator {
	return &JWTValidator{verifier: verifier}
}

// ValidateToken validates a JWT token and returns the caller identity
func (v *JWTValidator) ValidateToken(ctx context.Context, raw string) (domain.Actor, error) {
	claims, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}
	return claims.Actor(), nil
}

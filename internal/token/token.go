// Package token issues and verifies the HS256 access tokens of the API.
package token

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/config"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom claims carried by every access token
type Claims struct {
	UsuarioID int32      `json:"id"`
	Rol       domain.Rol `json:"rol"`
	Email     string     `json:"email"`
}

// Validate implements validator.CustomClaims
func (c *Claims) Validate(ctx context.Context) error {
	if c.UsuarioID <= 0 {
		return errors.New("missing user id claim")
	}
	if !c.Rol.Valid() {
		return errors.New("unknown role claim")
	}
	return nil
}

// Actor returns the caller identity encoded in the claims
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.UsuarioID, Rol: c.Rol}
}

type accessClaims struct {
	Claims
	jwt.RegisteredClaims
}

// Issuer signs access tokens
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	expires  time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer from the JWT configuration
func NewIssuer(cfg config.JWTConfig) *Issuer {
	return &Issuer{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expires:  cfg.Expires,
		now:      time.Now,
	}
}

// Issue returns a signed access token for u
func (i *Issuer) Issue(u *domain.Usuario) (string, error) {
	now := i.now()
	claims := accessClaims{
		Claims: Claims{UsuarioID: u.ID, Rol: u.Rol, Email: u.Email},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(u.ID)),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expires)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verifier validates access tokens issued by Issuer
type Verifier struct {
	validator *validator.Validator
}

// NewVerifier creates a Verifier for the HS256 secret in cfg
func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	secret := []byte(cfg.SecretKey)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	v, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &Claims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}
	return &Verifier{validator: v}, nil
}

// Verify checks the signature, issuer, audience and lifetime of raw and returns its claims
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.validator.ValidateToken(ctx, raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	validated, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	custom, ok := validated.CustomClaims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return custom, nil
}

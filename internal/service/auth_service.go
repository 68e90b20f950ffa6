package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/mail"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	generatedPasswordBytes = 10
	resetTokenBytes        = 32
	// DefaultResetTokenTTL is how long a password reset link stays valid
	DefaultResetTokenTTL = 30 * time.Minute
)

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Issue(u *domain.Usuario) (string, error)
}

// AuthService handles login, registration and password flows
type AuthService struct {
	usuarioRepo domain.UsuarioRepository
	issuer      TokenIssuer
	mailer      mail.Mailer
	resetTTL    time.Duration
	frontendURL string
	hashCost    int
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(usuarioRepo domain.UsuarioRepository, issuer TokenIssuer, mailer mail.Mailer, resetTTL time.Duration, frontendURL string) *AuthService {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &AuthService{
		usuarioRepo: usuarioRepo,
		issuer:      issuer,
		mailer:      mailer,
		resetTTL:    resetTTL,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// LoginResult is returned on successful login
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	Usuario     *domain.Usuario `json:"usuario"`
}

// Login verifies the credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrCredentialsMissing
	}

	u, err := s.usuarioRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewPersistenceError("get usuario", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Debug().Int32("usuario_id", u.ID).Msg("Wrong password")
		return nil, domain.ErrWrongPassword
	}

	accessToken, err := s.issuer.Issue(u)
	if err != nil {
		log.Error().Err(err).Int32("usuario_id", u.ID).Msg("Failed to sign access token")
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	log.Info().Int32("usuario_id", u.ID).Str("rol", string(u.Rol)).Msg("Usuario logged in")
	return &LoginResult{AccessToken: accessToken, Usuario: u}, nil
}

// RegisterInput holds the input for creating an account
type RegisterInput struct {
	Nombre   string
	Apellido string
	Email    string
	Rol      domain.Rol
}

// Register creates an account with a generated password and mails the password to it.
// A mail delivery failure is logged and does not undo the registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Usuario, error) {
	rol := input.Rol
	if rol == "" {
		rol = domain.RolUsuario
	}
	if !rol.Valid() {
		return nil, domain.NewFieldError("rol", "must be one of admin, supervisor, usuario")
	}

	password, err := randomToken(generatedPasswordBytes)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.usuarioRepo.Create(ctx, &domain.Usuario{
		Nombre:       strings.TrimSpace(input.Nombre),
		Apellido:     strings.TrimSpace(input.Apellido),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Rol:          rol,
	})
	if err != nil {
		return nil, domain.NewPersistenceError("create usuario", err)
	}

	if err := s.mailer.SendWelcome(ctx, created, password); err != nil {
		log.Error().Err(err).Int32("usuario_id", created.ID).Msg("Failed to send welcome mail")
	}

	log.Info().Int32("usuario_id", created.ID).Str("rol", string(rol)).Msg("Usuario registered")
	return created, nil
}

// RequestPasswordReset stores a reset token for the account registered under email and
// mails the reset link. Unknown addresses are ignored so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.usuarioRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		log.Debug().Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return domain.NewPersistenceError("get usuario", err)
	}

	resetToken, err := randomToken(resetTokenBytes)
	if err != nil {
		return err
	}
	if err := s.usuarioRepo.SetResetToken(ctx, u.ID, resetToken, s.now().Add(s.resetTTL)); err != nil {
		return domain.NewPersistenceError("store reset token", err)
	}

	resetURL := s.frontendURL + "/reset-password?token=" + url.QueryEscape(resetToken)
	if err := s.mailer.SendPasswordReset(ctx, u, resetURL); err != nil {
		log.Error().Err(err).Int32("usuario_id", u.ID).Msg("Failed to send password reset mail")
		return fmt.Errorf("failed to send password reset mail: %w", err)
	}

	log.Info().Int32("usuario_id", u.ID).Msg("Password reset requested")
	return nil
}

// UpdatePasswordInput holds the input of a password change
type UpdatePasswordInput struct {
	ResetToken      string
	CurrentPassword string
	NewPassword     string
}

// UpdatePassword changes a password either through a reset token or, for an
// authenticated caller, by confirming the current password. actor is nil for anonymous
// requests.
func (s *AuthService) UpdatePassword(ctx context.Context, actor *domain.Actor, input UpdatePasswordInput) error {
	if input.NewPassword == "" {
		return domain.ErrNewPasswordMissing
	}

	var u *domain.Usuario
	if input.ResetToken != "" {
		found, err := s.usuarioRepo.GetByResetToken(ctx, input.ResetToken)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidResetToken
		}
		if err != nil {
			return domain.NewPersistenceError("get usuario", err)
		}
		if !found.ResetTokenValid(s.now()) {
			return domain.ErrExpiredResetToken
		}
		u = found
	} else {
		if actor == nil || input.CurrentPassword == "" {
			return domain.ErrInvalidCredentials
		}
		found, err := s.usuarioRepo.GetByID(ctx, actor.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		if err != nil {
			return domain.NewPersistenceError("get usuario", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(input.CurrentPassword)) != nil {
			return domain.ErrInvalidCredentials
		}
		u = found
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.usuarioRepo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return domain.NewPersistenceError("update password", err)
	}

	log.Info().Int32("usuario_id", u.ID).Bool("reset_token", input.ResetToken != "").Msg("Password updated")
	return nil
}

// randomToken returns n random bytes encoded as unpadded URL-safe base64
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Error().Err(err).Msg("Failed to generate secure token")
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

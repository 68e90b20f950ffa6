package handler

import (
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// resetRequestedMessage is returned whether or not the address has an account
const resetRequestedMessage = "If the email is registered, a password reset link has been sent"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService    *service.AuthService
	usuarioService *service.UsuarioService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, usuarioService *service.UsuarioService) *AuthHandler {
	return &AuthHandler{authService: authService, usuarioService: usuarioService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the register request body
type RegisterRequest struct {
	Nombre   *string `json:"nombre" validate:"required,max=255"`
	Apellido *string `json:"apellido" validate:"required,max=255"`
	Email    *string `json:"email" validate:"required,email,max=255"`
	Rol      string  `json:"rol" validate:"omitempty,oneof=admin supervisor usuario"`
}

// ResetPasswordRequest represents the reset password request body
type ResetPasswordRequest struct {
	Email *string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest represents the update password request body
type UpdatePasswordRequest struct {
	ResetToken      string `json:"reset_token"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// Login godoc
// @Summary Log in
// @Description Exchanges email and password for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Failed to log in")
	}
	return c.JSON(http.StatusOK, result)
}

// Register godoc
// @Summary Register a user
// @Description Creates an account with a generated password that is mailed to the user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterRequest true "New user"
// @Success 201 {object} domain.Usuario
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	u, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Nombre:   *req.Nombre,
		Apellido: *req.Apellido,
		Email:    *req.Email,
		Rol:      domain.Rol(req.Rol),
	})
	if err != nil {
		return respondError(c, err, "Failed to register user")
	}
	return c.JSON(http.StatusCreated, u)
}

// ResetPassword godoc
// @Summary Request a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ProblemDetails
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), *req.Email); err != nil {
		return respondError(c, err, "Failed to request password reset")
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: resetRequestedMessage})
}

// UpdatePassword godoc
// @Summary Change a password
// @Description Either with a reset token or, when authenticated, with the current password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdatePasswordRequest true "Password change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ProblemDetails
// @Router /auth/update-password [post]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var actor *domain.Actor
	if a, ok := middleware.GetActor(c); ok {
		actor = &a
	}

	err := h.authService.UpdatePassword(c.Request().Context(), actor, service.UpdatePasswordInput{
		ResetToken:      req.ResetToken,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return respondError(c, err, "Failed to update password")
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Usuario
// @Failure 401 {object} ProblemDetails
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	u, err := h.usuarioService.GetUsuario(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err, "Failed to get user")
	}
	return c.JSON(http.StatusOK, u)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// UsuarioHandler handles user administration requests
type UsuarioHandler struct {
	usuarioService *service.UsuarioService
}

// NewUsuarioHandler creates a new UsuarioHandler
func NewUsuarioHandler(usuarioService *service.UsuarioService) *UsuarioHandler {
	return &UsuarioHandler{usuarioService: usuarioService}
}

// ListUsuarios godoc
// @Summary List users
// @Description Filters: id, nombre, apellido, email, rol
// @Tags usuarios
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /usuarios [get]
func (h *UsuarioHandler) ListUsuarios(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}
	result, err := h.usuarioService.ListUsuarios(c.Request().Context(), queryParams(c), page)
	if err != nil {
		return respondError(c, err, "Failed to list users")
	}
	return listResponse(c, "usuarios", result)
}

// GetUsuario godoc
// @Summary Get a user
// @Tags usuarios
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} domain.Usuario
// @Failure 404 {object} ProblemDetails
// @Router /usuario/{id} [get]
func (h *UsuarioHandler) GetUsuario(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	u, err := h.usuarioService.GetUsuario(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get user")
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateUsuario godoc
// @Summary Update a user
// @Description Partial update of nombre, apellido, email and rol. Passwords are rejected.
// @Tags usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} domain.Usuario
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /usuario/{id} [patch]
func (h *UsuarioHandler) UpdateUsuario(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil || body == nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	u, err := h.usuarioService.UpdateUsuario(c.Request().Context(), id, body)
	if err != nil {
		return respondError(c, err, "Failed to update user")
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUsuario godoc
// @Summary Delete a user
// @Tags usuarios
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /usuario/{id} [delete]
func (h *UsuarioHandler) DeleteUsuario(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	if err := h.usuarioService.DeleteUsuario(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete user")
	}
	return c.NoContent(http.StatusNoContent)
}

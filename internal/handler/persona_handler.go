package handler

import (
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// PersonaHandler handles counterparty requests
type PersonaHandler struct {
	personaService *service.PersonaService
}

// NewPersonaHandler creates a new PersonaHandler
func NewPersonaHandler(personaService *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{personaService: personaService}
}

// PersonaRequest represents the create and update persona request body
type PersonaRequest struct {
	CUIT        *string `json:"cuit"`
	RazonSocial *string `json:"razon_social"`
}

func (r PersonaRequest) input() service.PersonaInput {
	return service.PersonaInput{CUIT: r.CUIT, RazonSocial: r.RazonSocial}
}

// ListPersonas godoc
// @Summary List personas
// @Description Filters: id, cuit, razon_social
// @Tags personas
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /personas [get]
func (h *PersonaHandler) ListPersonas(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}
	result, err := h.personaService.ListPersonas(c.Request().Context(), queryParams(c), page)
	if err != nil {
		return respondError(c, err, "Failed to list personas")
	}
	return listResponse(c, "personas", result)
}

// GetPersona godoc
// @Summary Get a persona
// @Tags personas
// @Produce json
// @Security BearerAuth
// @Param id path int true "Persona ID"
// @Success 200 {object} domain.Persona
// @Failure 404 {object} ProblemDetails
// @Router /persona/{id} [get]
func (h *PersonaHandler) GetPersona(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	p, err := h.personaService.GetPersona(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get persona")
	}
	return c.JSON(http.StatusOK, p)
}

// CreatePersona godoc
// @Summary Create a persona
// @Tags personas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PersonaRequest true "Persona"
// @Success 201 {object} domain.Persona
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /personas [post]
func (h *PersonaHandler) CreatePersona(c echo.Context) error {
	var req PersonaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	p, err := h.personaService.CreatePersona(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err, "Failed to create persona")
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePersona godoc
// @Summary Update a persona
// @Tags personas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Persona ID"
// @Param request body PersonaRequest true "Fields to change"
// @Success 200 {object} domain.Persona
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /persona/{id} [patch]
func (h *PersonaHandler) UpdatePersona(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	var req PersonaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	p, err := h.personaService.UpdatePersona(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(c, err, "Failed to update persona")
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePersona godoc
// @Summary Delete a persona
// @Tags personas
// @Security BearerAuth
// @Param id path int true "Persona ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /persona/{id} [delete]
func (h *PersonaHandler) DeletePersona(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	if err := h.personaService.DeletePersona(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete persona")
	}
	return c.NoContent(http.StatusNoContent)
}

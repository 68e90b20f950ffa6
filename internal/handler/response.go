package handler

import (
	"errors"
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://operaciones.app/errors/validation"
	ErrorTypeNotFound     = "https://operaciones.app/errors/not-found"
	ErrorTypeUnauthorized = "https://operaciones.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://operaciones.app/errors/forbidden"
	ErrorTypeConflict     = "https://operaciones.app/errors/conflict"
	ErrorTypeInternal     = "https://operaciones.app/errors/internal"
)

func problem(c echo.Context, status int, typ, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// respondError maps a service error to its problem response. Persistence and unknown
// errors are logged and reported without their cause.
func respondError(c echo.Context, err error, msg string) error {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: fe.Field, Message: fe.Message}})
	case errors.Is(err, domain.ErrValidation):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, err.Error())
	}
	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(msg)
	return NewInternalError(c, msg)
}

// listResponse renders one page of a listing under key
func listResponse[T any](c echo.Context, key string, page *domain.Paginated[T]) error {
	return c.JSON(http.StatusOK, map[string]any{
		key:        page.Data,
		"total":    page.Total,
		"pages":    page.Pages,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

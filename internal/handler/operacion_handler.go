package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// OperacionHandler handles operation-related HTTP requests
type OperacionHandler struct {
	operacionService *service.OperacionService
}

// NewOperacionHandler creates a new OperacionHandler
func NewOperacionHandler(operacionService *service.OperacionService) *OperacionHandler {
	return &OperacionHandler{operacionService: operacionService}
}

// OperacionResponse represents an operation in API responses
type OperacionResponse struct {
	ID                int32           `json:"id"`
	Fecha             string          `json:"fecha"`
	Tipo              string          `json:"tipo"`
	Caracter          string          `json:"caracter"`
	Naturaleza        string          `json:"naturaleza"`
	IDPersona         int32           `json:"id_persona"`
	Option            string          `json:"option"`
	Codigo            string          `json:"codigo"`
	Observaciones     string          `json:"observaciones"`
	MetodoDePago      string          `json:"metodo_de_pago"`
	MontoTotal        string          `json:"monto_total"`
	IDSubcategoria    int32           `json:"id_subcategoria"`
	IDUsuario         int32           `json:"id_usuario"`
	Comprobante       *domain.Archivo `json:"comprobante"`
	Archivo1          *domain.Archivo `json:"archivo1"`
	Archivo2          *domain.Archivo `json:"archivo2"`
	Archivo3          *domain.Archivo `json:"archivo3"`
	ModificadoPorOtro bool            `json:"modificado_por_otro"`
}

func toOperacionResponse(op *domain.Operacion) OperacionResponse {
	return OperacionResponse{
		ID:                op.ID,
		Fecha:             op.Fecha.Format(domain.DateLayout),
		Tipo:              string(op.Tipo),
		Caracter:          op.Caracter,
		Naturaleza:        op.Naturaleza,
		IDPersona:         op.IDPersona,
		Option:            op.Option,
		Codigo:            op.Codigo,
		Observaciones:     op.Observaciones,
		MetodoDePago:      op.MetodoDePago,
		MontoTotal:        op.MontoTotal.StringFixed(2),
		IDSubcategoria:    op.IDSubcategoria,
		IDUsuario:         op.IDUsuario,
		Comprobante:       op.Comprobante,
		Archivo1:          op.Archivo1,
		Archivo2:          op.Archivo2,
		Archivo3:          op.Archivo3,
		ModificadoPorOtro: op.ModificadoPorOtro,
	}
}

// CreateOperacionRequest represents the create operation request body
type CreateOperacionRequest struct {
	Fecha          *string         `json:"fecha" validate:"required"`
	Tipo           *string         `json:"tipo" validate:"required"`
	Caracter       *string         `json:"caracter" validate:"required"`
	Naturaleza     *string         `json:"naturaleza" validate:"required"`
	IDPersona      *int32          `json:"id_persona" validate:"required,gt=0"`
	Option         *string         `json:"option" validate:"required"`
	Codigo         *string         `json:"codigo" validate:"required"`
	Observaciones  *string         `json:"observaciones"`
	MetodoDePago   *string         `json:"metodo_de_pago" validate:"required"`
	MontoTotal     json.RawMessage `json:"monto_total" validate:"required"`
	IDSubcategoria *int32          `json:"id_subcategoria" validate:"required,gt=0"`
	IDUsuario      *int32          `json:"id_usuario" validate:"required,gt=0"`
}

// ListOperaciones godoc
// @Summary List operations
// @Description Paginated listing filtered by any of id, fecha, tipo, naturaleza, caracter, option, codigo, observaciones, pago, monto, persona, categoria, usuario. fecha accepts a FROM:TO range.
// @Tags operaciones
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /operaciones [get]
func (h *OperacionHandler) ListOperaciones(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}

	result, err := h.operacionService.ListOperaciones(c.Request().Context(), queryParams(c), page)
	if err != nil {
		return respondError(c, err, "Failed to list operations")
	}

	data := make([]OperacionResponse, len(result.Data))
	for i, op := range result.Data {
		data[i] = toOperacionResponse(op)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"operaciones": data,
		"total":       result.Total,
		"pages":       result.Pages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	})
}

// ExportOperaciones godoc
// @Summary Export operations to Excel
// @Description Same filters as the listing, without pagination
// @Tags operaciones
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 400 {object} ProblemDetails
// @Router /operaciones/excel [get]
func (h *OperacionHandler) ExportOperaciones(c echo.Context) error {
	export, err := h.operacionService.ExportOperaciones(c.Request().Context(), queryParams(c))
	if err != nil {
		return respondError(c, err, "Failed to export operations")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.Filename+`"`)
	c.Response().Header().Set("X-Total-Count", strconv.Itoa(export.Rows))
	return c.Blob(http.StatusOK, service.XLSXContentType, export.Content)
}

// GetOperacion godoc
// @Summary Get an operation
// @Tags operaciones
// @Produce json
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Success 200 {object} OperacionResponse
// @Failure 404 {object} ProblemDetails
// @Router /operacion/{id} [get]
func (h *OperacionHandler) GetOperacion(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	op, err := h.operacionService.GetOperacion(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get operation")
	}
	return c.JSON(http.StatusOK, toOperacionResponse(op))
}

// CreateOperacion godoc
// @Summary Create an operation
// @Tags operaciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOperacionRequest true "Operation creation request"
// @Success 201 {object} OperacionResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /operaciones [post]
func (h *OperacionHandler) CreateOperacion(c echo.Context) error {
	var req CreateOperacionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	fecha, err := domain.ParseFecha(*req.Fecha)
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "fecha", Message: "must be in YYYY-MM-DD format"},
		})
	}
	monto, err := domain.DecodeMonto(req.MontoTotal)
	if err != nil {
		return respondError(c, err, "Invalid amount")
	}

	input := service.CreateOperacionInput{
		Fecha:          fecha,
		Tipo:           domain.TipoOperacion(*req.Tipo),
		Caracter:       *req.Caracter,
		Naturaleza:     *req.Naturaleza,
		IDPersona:      *req.IDPersona,
		Option:         *req.Option,
		Codigo:         *req.Codigo,
		MetodoDePago:   *req.MetodoDePago,
		MontoTotal:     monto,
		IDSubcategoria: *req.IDSubcategoria,
		IDUsuario:      *req.IDUsuario,
	}
	if req.Observaciones != nil {
		input.Observaciones = *req.Observaciones
	}

	op, err := h.operacionService.CreateOperacion(c.Request().Context(), input)
	if err != nil {
		return respondError(c, err, "Failed to create operation")
	}
	return c.JSON(http.StatusCreated, toOperacionResponse(op))
}

// UpdateOperacion godoc
// @Summary Update an operation
// @Description Partial update of the editable fields. Unknown keys are ignored.
// @Tags operaciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Success 200 {object} service.UpdateResult
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /operacion/{id} [patch]
func (h *OperacionHandler) UpdateOperacion(c echo.Context) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil || body == nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.operacionService.UpdateOperacion(c.Request().Context(), actor, id, body)
	if err != nil {
		return respondError(c, err, "Failed to update operation")
	}
	return c.JSON(http.StatusOK, result)
}

// BulkUpdateOperaciones godoc
// @Summary Update several operations
// @Description Body is a non-empty list of partial updates, each with its id. Applied atomically.
// @Tags operaciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.BulkResult
// @Failure 400 {object} ProblemDetails
// @Failure 500 {object} service.BulkResult
// @Router /operaciones/bulk [patch]
func (h *OperacionHandler) BulkUpdateOperaciones(c echo.Context) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var items []map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&items); err != nil || len(items) == 0 {
		return NewValidationError(c, domain.ErrBulkNotAList.Error(), nil)
	}

	result, err := h.operacionService.BulkUpdate(c.Request().Context(), actor, items)
	if err != nil {
		if result != nil && errors.Is(err, domain.ErrPersistence) {
			log.Error().Err(err).Int32("usuario_id", actor.ID).Msg("Bulk update rolled back")
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":         "bulk update could not be saved",
				"updated":       result.Updated,
				"not_found":     result.NotFound,
				"forbidden":     result.Forbidden,
				"sin_cambios":   result.SinCambios,
				"ids_invalidos": result.InvalidIDs,
			})
		}
		return respondError(c, err, "Failed to update operations")
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteOperacion godoc
// @Summary Delete an operation
// @Description Removes the stored attachments and then the operation
// @Tags operaciones
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Router /operacion/{id} [delete]
func (h *OperacionHandler) DeleteOperacion(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	if err := h.operacionService.DeleteOperacion(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete operation")
	}
	return c.NoContent(http.StatusNoContent)
}

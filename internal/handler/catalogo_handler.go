package handler

import (
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// CatalogoHandler handles the conceptos, categorias and subcategorias resources
type CatalogoHandler struct {
	catalogoService *service.CatalogoService
}

// NewCatalogoHandler creates a new CatalogoHandler
func NewCatalogoHandler(catalogoService *service.CatalogoService) *CatalogoHandler {
	return &CatalogoHandler{catalogoService: catalogoService}
}

// ConceptoRequest represents the create and update concepto request body
type ConceptoRequest struct {
	Nombre *string `json:"nombre"`
}

// CategoriaRequest represents the create and update categoria request body
type CategoriaRequest struct {
	Nombre     *string `json:"nombre"`
	IDConcepto *int32  `json:"id_concepto"`
}

// SubcategoriaRequest represents the create and update subcategoria request body
type SubcategoriaRequest struct {
	Nombre      *string `json:"nombre"`
	IDCategoria *int32  `json:"id_categoria"`
}

// parentFilter reads an optional parent id query parameter
func parentFilter(c echo.Context, name string) (int32, bool, error) {
	var id int32
	if ok, err := parseIntParam(c.QueryParam(name), &id); err != nil || (ok && id <= 0) {
		return 0, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "must be a positive integer"},
		})
	}
	return id, true, nil
}

// ListConceptos godoc
// @Summary List conceptos
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param nombre query string false "Name substring"
// @Success 200 {object} map[string]interface{}
// @Router /conceptos [get]
func (h *CatalogoHandler) ListConceptos(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}
	result, err := h.catalogoService.ListConceptos(c.Request().Context(), queryParams(c), page)
	if err != nil {
		return respondError(c, err, "Failed to list conceptos")
	}
	return listResponse(c, "conceptos", result)
}

// GetConcepto godoc
// @Summary Get a concepto
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param id path int true "Concepto ID"
// @Success 200 {object} domain.Concepto
// @Failure 404 {object} ProblemDetails
// @Router /concepto/{id} [get]
func (h *CatalogoHandler) GetConcepto(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	concepto, err := h.catalogoService.GetConcepto(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get concepto")
	}
	return c.JSON(http.StatusOK, concepto)
}

// CreateConcepto godoc
// @Summary Create a concepto
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ConceptoRequest true "Concepto"
// @Success 201 {object} domain.Concepto
// @Failure 400 {object} ProblemDetails
// @Router /conceptos [post]
func (h *CatalogoHandler) CreateConcepto(c echo.Context) error {
	var req ConceptoRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	concepto, err := h.catalogoService.CreateConcepto(c.Request().Context(), service.CatalogoInput{Nombre: req.Nombre})
	if err != nil {
		return respondError(c, err, "Failed to create concepto")
	}
	return c.JSON(http.StatusCreated, concepto)
}

// UpdateConcepto godoc
// @Summary Rename a concepto
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Concepto ID"
// @Param request body ConceptoRequest true "Concepto"
// @Success 200 {object} domain.Concepto
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /concepto/{id} [patch]
func (h *CatalogoHandler) UpdateConcepto(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	var req ConceptoRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	concepto, err := h.catalogoService.UpdateConcepto(c.Request().Context(), id, service.CatalogoInput{Nombre: req.Nombre})
	if err != nil {
		return respondError(c, err, "Failed to update concepto")
	}
	return c.JSON(http.StatusOK, concepto)
}

// DeleteConcepto godoc
// @Summary Delete a concepto
// @Tags catalogo
// @Security BearerAuth
// @Param id path int true "Concepto ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /concepto/{id} [delete]
func (h *CatalogoHandler) DeleteConcepto(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	if err := h.catalogoService.DeleteConcepto(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete concepto")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCategorias godoc
// @Summary List categorias
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param id_concepto query int false "Parent concepto"
// @Success 200 {object} map[string]interface{}
// @Router /categorias [get]
func (h *CatalogoHandler) ListCategorias(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}
	parent, ok, err := parentFilter(c, "id_concepto")
	if !ok {
		return err
	}
	result, err := h.catalogoService.ListCategorias(c.Request().Context(), queryParams(c), parent, page)
	if err != nil {
		return respondError(c, err, "Failed to list categorias")
	}
	return listResponse(c, "categorias", result)
}

// GetCategoria godoc
// @Summary Get a categoria
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param id path int true "Categoria ID"
// @Success 200 {object} domain.Categoria
// @Failure 404 {object} ProblemDetails
// @Router /categoria/{id} [get]
func (h *CatalogoHandler) GetCategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	categoria, err := h.catalogoService.GetCategoria(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get categoria")
	}
	return c.JSON(http.StatusOK, categoria)
}

// CreateCategoria godoc
// @Summary Create a categoria
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoriaRequest true "Categoria"
// @Success 201 {object} domain.Categoria
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /categorias [post]
func (h *CatalogoHandler) CreateCategoria(c echo.Context) error {
	var req CategoriaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	categoria, err := h.catalogoService.CreateCategoria(c.Request().Context(), service.CatalogoInput{Nombre: req.Nombre, ParentID: req.IDConcepto})
	if err != nil {
		return respondError(c, err, "Failed to create categoria")
	}
	return c.JSON(http.StatusCreated, categoria)
}

// UpdateCategoria godoc
// @Summary Update a categoria
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Categoria ID"
// @Param request body CategoriaRequest true "Fields to change"
// @Success 200 {object} domain.Categoria
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /categoria/{id} [patch]
func (h *CatalogoHandler) UpdateCategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	var req CategoriaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	categoria, err := h.catalogoService.UpdateCategoria(c.Request().Context(), id, service.CatalogoInput{Nombre: req.Nombre, ParentID: req.IDConcepto})
	if err != nil {
		return respondError(c, err, "Failed to update categoria")
	}
	return c.JSON(http.StatusOK, categoria)
}

// DeleteCategoria godoc
// @Summary Delete a categoria
// @Tags catalogo
// @Security BearerAuth
// @Param id path int true "Categoria ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /categoria/{id} [delete]
func (h *CatalogoHandler) DeleteCategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	if err := h.catalogoService.DeleteCategoria(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete categoria")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSubcategorias godoc
// @Summary List subcategorias
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param id_categoria query int false "Parent categoria"
// @Success 200 {object} map[string]interface{}
// @Router /subcategorias [get]
func (h *CatalogoHandler) ListSubcategorias(c echo.Context) error {
	page, ok, err := parsePagination(c)
	if !ok {
		return err
	}
	parent, ok, err := parentFilter(c, "id_categoria")
	if !ok {
		return err
	}
	result, err := h.catalogoService.ListSubcategorias(c.Request().Context(), queryParams(c), parent, page)
	if err != nil {
		return respondError(c, err, "Failed to list subcategorias")
	}
	return listResponse(c, "subcategorias", result)
}

// GetSubcategoria godoc
// @Summary Get a subcategoria
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subcategoria ID"
// @Success 200 {object} domain.Subcategoria
// @Failure 404 {object} ProblemDetails
// @Router /subcategoria/{id} [get]
func (h *CatalogoHandler) GetSubcategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	sub, err := h.catalogoService.GetSubcategoria(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get subcategoria")
	}
	return c.JSON(http.StatusOK, sub)
}

// CreateSubcategoria godoc
// @Summary Create a subcategoria
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubcategoriaRequest true "Subcategoria"
// @Success 201 {object} domain.Subcategoria
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /subcategorias [post]
func (h *CatalogoHandler) CreateSubcategoria(c echo.Context) error {
	var req SubcategoriaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	sub, err := h.catalogoService.CreateSubcategoria(c.Request().Context(), service.CatalogoInput{Nombre: req.Nombre, ParentID: req.IDCategoria})
	if err != nil {
		return respondError(c, err, "Failed to create subcategoria")
	}
	return c.JSON(http.StatusCreated, sub)
}

// UpdateSubcategoria godoc
// @Summary Update a subcategoria
// @Tags catalogo
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subcategoria ID"
// @Param request body SubcategoriaRequest true "Fields to change"
// @Success 200 {object} domain.Subcategoria
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /subcategoria/{id} [patch]
func (h *CatalogoHandler) UpdateSubcategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	var req SubcategoriaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	sub, err := h.catalogoService.UpdateSubcategoria(c.Request().Context(), id, service.CatalogoInput{Nombre: req.Nombre, ParentID: req.IDCategoria})
	if err != nil {
		return respondError(c, err, "Failed to update subcategoria")
	}
	return c.JSON(http.StatusOK, sub)
}

// DeleteSubcategoria godoc
// @Summary Delete a subcategoria
// @Tags catalogo
// @Security BearerAuth
// @Param id path int true "Subcategoria ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /subcategoria/{id} [delete]
func (h *CatalogoHandler) DeleteSubcategoria(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	if err := h.catalogoService.DeleteSubcategoria(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete subcategoria")
	}
	return c.NoContent(http.StatusNoContent)
}

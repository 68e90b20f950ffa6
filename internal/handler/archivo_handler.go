package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ArchivoHandler handles the attachment slots of operations
type ArchivoHandler struct {
	archivoService *service.ArchivoService
}

// NewArchivoHandler creates a new ArchivoHandler
func NewArchivoHandler(archivoService *service.ArchivoService) *ArchivoHandler {
	return &ArchivoHandler{archivoService: archivoService}
}

// openUpload turns a multipart file header into an upload. The caller closes the file.
func openUpload(fh *multipart.FileHeader) (service.ArchivoUpload, multipart.File, error) {
	src, err := fh.Open()
	if err != nil {
		return service.ArchivoUpload{}, nil, err
	}
	return service.ArchivoUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     src,
	}, src, nil
}

// UpdateArchivo godoc
// @Summary Replace one attachment
// @Description Multipart upload; the form field is named after the slot (comprobante, archivo1, archivo2, archivo3)
// @Tags archivos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Param campo path string true "Attachment slot"
// @Success 200 {object} service.ArchivoResult
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /operacion/{id}/archivo/{campo} [patch]
func (h *ArchivoHandler) UpdateArchivo(c echo.Context) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}
	campo := c.Param("campo")
	if _, err := domain.ParseArchivoSlot(campo); err != nil {
		return respondError(c, err, "Invalid attachment field")
	}

	fh, err := c.FormFile(campo)
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: campo, Message: "File is required"},
		})
	}
	upload, src, err := openUpload(fh)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	result, err := h.archivoService.UpdateArchivo(c.Request().Context(), actor, id, campo, upload)
	if err != nil {
		return respondError(c, err, "Failed to update attachment")
	}
	return c.JSON(http.StatusOK, result)
}

// AttachArchivos godoc
// @Summary Attach files to an operation
// @Description Multipart upload of any subset of comprobante, archivo1, archivo2, archivo3
// @Tags archivos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /operaciones/{id}/archivos [post]
func (h *ArchivoHandler) AttachArchivos(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewValidationError(c, "Invalid multipart form", nil)
	}

	uploads := make(map[domain.ArchivoSlot]service.ArchivoUpload)
	for _, slot := range domain.ArchivoSlots {
		files := form.File[string(slot)]
		if len(files) == 0 {
			continue
		}
		upload, src, err := openUpload(files[0])
		if err != nil {
			log.Error().Err(err).Str("campo", string(slot)).Msg("Failed to open uploaded file")
			return NewInternalError(c, "Failed to process file")
		}
		defer src.Close()
		uploads[slot] = upload
	}

	slots, err := h.archivoService.AttachArchivos(c.Request().Context(), id, uploads)
	if err != nil {
		return respondError(c, err, "Failed to attach files")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":                    id,
		"archivos_actualizados": slots,
	})
}

// GetArchivo godoc
// @Summary Download one attachment
// @Description Redirects to a short-lived presigned URL
// @Tags archivos
// @Security BearerAuth
// @Param id path int true "Operation ID"
// @Param campo path string true "Attachment slot"
// @Success 307
// @Failure 404 {object} ProblemDetails
// @Router /operacion/{id}/archivo/{campo} [get]
func (h *ArchivoHandler) GetArchivo(c echo.Context) error {
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	url, err := h.archivoService.ArchivoURL(c.Request().Context(), id, c.Param("campo"))
	if err != nil {
		return respondError(c, err, "Failed to get attachment")
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

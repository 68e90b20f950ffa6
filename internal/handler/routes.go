package handler

import (
	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth      *AuthHandler
	Usuario   *UsuarioHandler
	Operacion *OperacionHandler
	Archivo   *ArchivoHandler
	Persona   *PersonaHandler
	Catalogo  *CatalogoHandler
	WebSocket *WebSocketHandler
}

// RegisterRoutes sets up all API routes. rateLimiter may be nil to disable limiting of
// the public auth routes.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	staff := middleware.RequireRoles(domain.RolAdmin, domain.RolSupervisor)
	adminOnly := middleware.RequireRoles(domain.RolAdmin)

	// Auth routes
	var limited []echo.MiddlewareFunc
	if rateLimiter != nil {
		limited = append(limited, middleware.RateLimitMiddleware(rateLimiter))
	}
	auth := e.Group("/auth")
	auth.POST("/login", h.Auth.Login, limited...)
	auth.POST("/reset-password", h.Auth.ResetPassword, limited...)
	auth.POST("/update-password", h.Auth.UpdatePassword, append(limited, authMiddleware.OptionalAuthenticate())...)
	auth.POST("/register", h.Auth.Register, authMiddleware.Authenticate(), adminOnly)
	auth.GET("/me", h.Auth.Me, authMiddleware.Authenticate())

	api := e.Group("/api")
	api.Use(authMiddleware.Authenticate())

	// Usuario routes
	api.GET("/usuarios", h.Usuario.ListUsuarios, staff)
	api.GET("/usuario/:id", h.Usuario.GetUsuario, staff)
	api.PATCH("/usuario/:id", h.Usuario.UpdateUsuario, adminOnly)
	api.DELETE("/usuario/:id", h.Usuario.DeleteUsuario, adminOnly)

	// Operacion routes
	api.GET("/operaciones", h.Operacion.ListOperaciones, staff)
	api.GET("/operaciones/excel", h.Operacion.ExportOperaciones, staff)
	api.POST("/operaciones", h.Operacion.CreateOperacion, adminOnly)
	api.PATCH("/operaciones/bulk", h.Operacion.BulkUpdateOperaciones, staff)
	api.GET("/operacion/:id", h.Operacion.GetOperacion, staff)
	api.PATCH("/operacion/:id", h.Operacion.UpdateOperacion, staff)
	api.DELETE("/operacion/:id", h.Operacion.DeleteOperacion, staff)

	// Archivo routes
	api.POST("/operaciones/:id/archivos", h.Archivo.AttachArchivos, adminOnly)
	api.GET("/operacion/:id/archivo/:campo", h.Archivo.GetArchivo, staff)
	api.PATCH("/operacion/:id/archivo/:campo", h.Archivo.UpdateArchivo, staff)

	// Persona routes
	api.GET("/personas", h.Persona.ListPersonas, staff)
	api.POST("/personas", h.Persona.CreatePersona, staff)
	api.GET("/persona/:id", h.Persona.GetPersona, staff)
	api.PATCH("/persona/:id", h.Persona.UpdatePersona, staff)
	api.DELETE("/persona/:id", h.Persona.DeletePersona, staff)

	// Catalogo routes
	api.GET("/conceptos", h.Catalogo.ListConceptos, staff)
	api.POST("/conceptos", h.Catalogo.CreateConcepto, staff)
	api.GET("/concepto/:id", h.Catalogo.GetConcepto, staff)
	api.PATCH("/concepto/:id", h.Catalogo.UpdateConcepto, staff)
	api.DELETE("/concepto/:id", h.Catalogo.DeleteConcepto, staff)

	api.GET("/categorias", h.Catalogo.ListCategorias, staff)
	api.POST("/categorias", h.Catalogo.CreateCategoria, staff)
	api.GET("/categoria/:id", h.Catalogo.GetCategoria, staff)
	api.PATCH("/categoria/:id", h.Catalogo.UpdateCategoria, staff)
	api.DELETE("/categoria/:id", h.Catalogo.DeleteCategoria, staff)

	api.GET("/subcategorias", h.Catalogo.ListSubcategorias, staff)
	api.POST("/subcategorias", h.Catalogo.CreateSubcategoria, staff)
	api.GET("/subcategoria/:id", h.Catalogo.GetSubcategoria, staff)
	api.PATCH("/subcategoria/:id", h.Catalogo.UpdateSubcategoria, staff)
	api.DELETE("/subcategoria/:id", h.Catalogo.DeleteSubcategoria, staff)

	// Live events
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}
}

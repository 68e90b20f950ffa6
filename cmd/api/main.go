package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/config"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/handler"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/mail"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/repository/postgres"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/repository/storage"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/token"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Initialize repositories
	usuarioRepo := postgres.NewUsuarioRepository(pool)
	operacionRepo := postgres.NewOperacionRepository(pool)
	personaRepo := postgres.NewPersonaRepository(pool)
	conceptoRepo := postgres.NewConceptoRepository(pool)
	categoriaRepo := postgres.NewCategoriaRepository(pool)
	subcategoriaRepo := postgres.NewSubcategoriaRepository(pool)

	// Attachment storage
	attachmentStorage, err := storage.NewS3AttachmentStorage(context.Background(), cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize attachment storage")
	}
	log.Info().Str("bucket", cfg.S3.Bucket).Msg("Attachment storage ready")

	// Access tokens
	issuer := token.NewIssuer(cfg.JWT)
	verifier, err := token.NewVerifier(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token verifier")
	}

	// Live events
	hub := websocket.NewHub()

	// Initialize services
	authService := service.NewAuthService(usuarioRepo, issuer, mail.New(cfg.Mail), cfg.ResetTokenTTL, cfg.FrontendURL)
	usuarioService := service.NewUsuarioService(usuarioRepo)
	operacionService := service.NewOperacionService(operacionRepo, attachmentStorage)
	operacionService.SetEventPublisher(hub)
	archivoService := service.NewArchivoService(operacionRepo, attachmentStorage, cfg.S3.PresignExpiry)
	archivoService.SetEventPublisher(hub)
	personaService := service.NewPersonaService(personaRepo)
	catalogoService := service.NewCatalogoService(conceptoRepo, categoriaRepo, subcategoriaRepo)

	// Background purge of expired reset tokens
	sweeper := service.NewResetTokenSweeper(usuarioRepo, log.Logger, cfg.ResetSweepInterval)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// Rate limiter for the public auth routes
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute/4+1)
	defer rateLimiter.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Attachments are capped at 10MB each, a full set fits in the body limit
	e.Use(echomiddleware.BodyLimit("45M"))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"ws_clients": hub.ClientCount(),
		})
	})

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, usuarioService),
		Usuario:   handler.NewUsuarioHandler(usuarioService),
		Operacion: handler.NewOperacionHandler(operacionService),
		Archivo:   handler.NewArchivoHandler(archivoService),
		Persona:   handler.NewPersonaHandler(personaService),
		Catalogo:  handler.NewCatalogoHandler(catalogoService),
		WebSocket: handler.NewWebSocketHandler(hub, websocket.NewJWTValidator(verifier), cfg.CORSOrigins),
	})

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			evt := log.Info()
			if res.Status >= http.StatusInternalServerError {
				evt = log.Error()
			}
			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}

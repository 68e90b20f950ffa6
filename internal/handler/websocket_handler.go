package handler

import (
	"context"
	"net/http"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTValidator validates access tokens and returns the caller
type JWTValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.Actor, error)
}

// WebSocketHandler upgrades staff connections and registers them with the event hub
type WebSocketHandler struct {
	hub      *websocket.Hub
	tokens   JWTValidator
	origins  map[string]struct{}
	upgrader ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, tokens JWTValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:     hub,
		tokens:  tokens,
		origins: make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		h.origins[o] = struct{}{}
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients send no Origin
		return true
	}
	if _, ok := h.origins[origin]; ok {
		return true
	}
	log.Warn().Str("origin", origin).Msg("Rejected event stream: origin not allowed")
	return false
}

// HandleWS handles GET /ws. Browsers cannot set headers on the upgrade request, so the
// access token travels in the token query parameter. Only admins and supervisors receive
// operation events.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return NewUnauthorizedError(c, "missing token")
	}

	actor, err := h.tokens.ValidateToken(c.Request().Context(), raw)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected event stream: invalid token")
		return NewUnauthorizedError(c, "invalid token")
	}
	if actor.Rol != domain.RolAdmin && actor.Rol != domain.RolSupervisor {
		return NewForbiddenError(c, "events are only available to staff")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		log.Warn().Err(err).Int32("usuario_id", actor.ID).Msg("WebSocket upgrade failed")
		return nil
	}

	client := websocket.NewClient(conn, actor, h.hub)
	h.hub.Register(client)
	log.Info().
		Int32("usuario_id", actor.ID).
		Str("rol", string(actor.Rol)).
		Str("client_id", client.ID()).
		Int("clients", h.hub.ClientCount()).
		Msg("Event stream opened")

	go client.WritePump()
	go client.ReadPump()
	return nil
}

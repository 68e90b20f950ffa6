package websocket

import (
	"errors"
	"sync"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	UsuarioID() int32
	Rol() domain.Rol
	Send(data []byte) error
	Close() error
}

// Hub manages the WebSocket connections of authenticated users
// It is safe for concurrent use
type Hub struct {
	clients map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]ClientInterface),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID()] = client

	log.Debug().
		Int32("usuario_id", client.UsuarioID()).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.ID()]; exists {
		delete(h.clients, client.ID())

		log.Debug().
			Int32("usuario_id", client.UsuarioID()).
			Str("client_id", client.ID()).
			Msg("WebSocket client unregistered")
	}
}

// receives reports whether client may see event. Staff see every event; other users
// only see events about operations they created.
func receives(client ClientInterface, event Event) bool {
	switch client.Rol() {
	case domain.RolAdmin, domain.RolSupervisor:
		return true
	}
	return event.OwnerID != 0 && event.OwnerID == client.UsuarioID()
}

// Broadcast sends an event to every client allowed to receive it
func (h *Hub) Broadcast(event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	recipients := make([]ClientInterface, 0, len(h.clients))
	for _, client := range h.clients {
		if receives(client, event) {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	// Send to each client asynchronously
	for _, client := range recipients {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("event_type", event.Type).
		Int("client_count", len(recipients)).
		Msg("Broadcast event")
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

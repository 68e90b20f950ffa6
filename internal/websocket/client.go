package websocket

import (
	"sync"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must stay below pongWait

	// clients only listen, so inbound frames are limited to control traffic
	maxMessageSize = 512

	sendBuffer = 256
)

var newline = []byte{'\n'}

// Client is one staff connection to the event stream
type Client struct {
	id     string
	actor  domain.Actor
	conn   *websocket.Conn
	hub    *Hub
	logger zerolog.Logger

	mu        sync.RWMutex
	send      chan []byte
	closed    bool
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection for an authenticated user
func NewClient(conn *websocket.Conn, actor domain.Actor, hub *Hub) *Client {
	id := uuid.NewString()
	return &Client{
		id:    id,
		actor: actor,
		conn:  conn,
		hub:   hub,
		send:  make(chan []byte, sendBuffer),
		logger: log.With().
			Str("client_id", id).
			Int32("usuario_id", actor.ID).
			Logger(),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UsuarioID() int32 { return c.actor.ID }

func (c *Client) Rol() domain.Rol { return c.actor.Rol }

// Send queues a message. A full buffer means the peer is too slow and is reported as closed
// so the hub drops it.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientClosed
	}
}

// Close is safe to call from several goroutines
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReadPump keeps the read deadline alive through pongs and unregisters the client when
// the peer goes away. Run it in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Event stream closed unexpectedly")
			}
			return
		}
	}
}

// WritePump delivers queued events and pings the peer. Events queued while a write is in
// flight are flushed in the same frame, one JSON document per line. Run it in its own
// goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeBatch(msg); err != nil {
				c.logger.Warn().Err(err).Msg("Event stream write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeBatch(first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)

	for pending := len(c.send); pending > 0; pending-- {
		msg, ok := <-c.send
		if !ok {
			break
		}
		w.Write(newline)
		w.Write(msg)
	}
	return w.Close()
}

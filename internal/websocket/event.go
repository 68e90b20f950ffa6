package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated     EventType = "created"
	EventTypeUpdated     EventType = "updated"
	EventTypeDeleted     EventType = "deleted"
	EventTypeBulkUpdated EventType = "bulk_updated"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeOperacion EntityType = "operacion"
	EntityTypeArchivo   EntityType = "archivo"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "operacion.updated"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "operacion"
	Payload   interface{} `json:"payload"`   // Entity data or change summary
	Timestamp time.Time   `json:"timestamp"` // Event timestamp

	// OwnerID is the creator of the operation the event is about. Zero means the event
	// concerns several operations and only staff clients receive it.
	OwnerID int32 `json:"-"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, ownerID int32, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		OwnerID:   ownerID,
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// OperacionCreated creates an operacion.created event
func OperacionCreated(ownerID int32, payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeOperacion, ownerID, payload)
}

// OperacionUpdated creates an operacion.updated event
func OperacionUpdated(ownerID int32, payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeOperacion, ownerID, payload)
}

// OperacionDeleted creates an operacion.deleted event
func OperacionDeleted(ownerID int32, payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeOperacion, ownerID, payload)
}

// OperacionesBulkUpdated creates an operacion.bulk_updated event, visible to staff only
func OperacionesBulkUpdated(payload interface{}) Event {
	return NewEvent(EventTypeBulkUpdated, EntityTypeOperacion, 0, payload)
}

// ArchivoUpdated creates an archivo.updated event
func ArchivoUpdated(ownerID int32, payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeArchivo, ownerID, payload)
}

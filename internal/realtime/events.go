// Package realtime implements the push collaborators: durable row-insert
// notifications over Postgres LISTEN/NOTIFY, and a low-latency ephemeral
// broadcast channel over WebSocket used for typing state.
package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types - peer → relay
const (
	EventTypeTyping = "typing"
	EventTypePing   = "ping"
)

// Event types - relay → peer
const (
	EventTypePong  = "pong"
	EventTypeError = "error"
)

// Event is the envelope for all broadcast messages.
type Event struct {
	Type      string          `json:"type"`
	ChannelID *uuid.UUID      `json:"channel_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// MessageEvent is the row-insert notification delivered for new messages.
// Delivery is at-least-once; consumers de-duplicate by id.
type MessageEvent struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingEvent is an ephemeral typing broadcast. No persistence guarantee.
type TypingEvent struct {
	ChannelID   uuid.UUID `json:"channel_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsTyping    bool      `json:"is_typing"`
}

// ErrorPayload is the relay's error envelope.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType string, channelID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		ChannelID: channelID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

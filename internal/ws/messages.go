package ws

import (
	"encoding/json"

	"chatroomgo/internal/core"
)

// Envelope wraps every WS frame, both directions.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "chat/send"
	Body  json.RawMessage `json:"body,omitempty"` // event-specific object
}

// ──────────────────────────── Request / Response DTOs ─────────────────────────

// JoinBody is the body for "chat/join".
type JoinBody struct {
	RoomID string `json:"room_id"`
}

// LeaveBody is the body for "chat/leave".
type LeaveBody struct {
	RoomID string `json:"room_id"`
}

// SendBody is the body for "chat/send". Field validation is the engine's
// job: it owns the error sentinels the wire codes are derived from.
type SendBody struct {
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`
	Content string `json:"content"`
}

// TypingBody is the body for "chat/typing"; start/stop is the bool.
type TypingBody struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

// Empty ACK body.
type AckBody struct{}

// SendAck tells the sender which room and sequence its message landed on.
type SendAck struct {
	RoomID string `json:"room_id"`
	Seq    uint64 `json:"seq"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// EncodeEvent wraps an outbound engine event into its wire envelope.
func EncodeEvent(ev core.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: ev.EventName(), Body: body})
}

// DecodeEvent unwraps an envelope produced by EncodeEvent back into the
// typed event. Used for frames arriving over the cross-process bus.
func DecodeEvent(data []byte) (core.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return core.DecodeEvent(env.Event, env.Body)
}

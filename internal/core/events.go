package core

import (
	"encoding/json"
	"time"
)

// Identity is the verified user reference produced by the auth collaborator.
// It is stable across connections and immutable for a connection's lifetime.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomKind selects how a send's target resolves to a room id.
type RoomKind string

const (
	RoomPublic  RoomKind = "public"
	RoomPrivate RoomKind = "private"
	RoomNamed   RoomKind = "named"
)

// ──────────────────────────── Inbound variants ───────────────────────────────

// SendEvent asks the router to deliver content to a room.
// Target is a room id for Named, the peer identity id for Private,
// and ignored for Public.
type SendEvent struct {
	Kind    RoomKind
	Target  string
	Content string
}

// ──────────────────────────── Outbound variants ──────────────────────────────

// Event is the closed set of payloads the engine pushes to connections.
type Event interface {
	EventName() string
}

// MessageEvent carries one sequenced room message.
type MessageEvent struct {
	RoomID     string    `json:"room_id"`
	Seq        uint64    `json:"seq"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	ServerTime time.Time `json:"server_time"`
}

func (MessageEvent) EventName() string { return "chat/message" }

// PresenceEvent marks an identity-level online/offline edge.
type PresenceEvent struct {
	Identity string     `json:"identity"`
	Online   bool       `json:"-"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func (e PresenceEvent) EventName() string {
	if e.Online {
		return "presence/online"
	}
	return "presence/offline"
}

// MemberEvent announces an explicit join or leave inside a room.
type MemberEvent struct {
	RoomID   string `json:"room_id"`
	Identity string `json:"identity"`
	Joined   bool   `json:"-"`
}

func (e MemberEvent) EventName() string {
	if e.Joined {
		return "room/member_joined"
	}
	return "room/member_left"
}

// TypingEvent is fire-and-forget: never sequenced, never persisted.
type TypingEvent struct {
	RoomID   string `json:"room_id"`
	Identity string `json:"identity"`
	IsTyping bool   `json:"is_typing"`
}

func (TypingEvent) EventName() string { return "chat/typing" }

// ErrorEvent is sent back to the offending connection only.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (ErrorEvent) EventName() string { return "error" }

// DecodeEvent rebuilds an outbound event from its wire name and body.
// Used when re-injecting events received from the cross-process bus.
func DecodeEvent(name string, body []byte) (Event, error) {
	switch name {
	case "chat/message":
		var ev MessageEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "presence/online":
		var ev PresenceEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		ev.Online = true
		return ev, nil
	case "presence/offline":
		var ev PresenceEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "room/member_joined":
		var ev MemberEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		ev.Joined = true
		return ev, nil
	case "room/member_left":
		var ev MemberEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "chat/typing":
		var ev TypingEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev ErrorEvent
		if err := unmarshalInto(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, ErrUnknownEvent
	}
}

func unmarshalInto(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

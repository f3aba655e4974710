// Package ws is the websocket transport of the relay. It owns the JSON wire
// frames and the per-connection read/write pumps; all chat semantics live in
// the runtime package.
package ws

import (
	"chat-relay/domain/event"
)

// Client-to-server event names.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
)

// Server-to-client event names.
const (
	EventMessage  = "message"
	EventUserList = "user_list"
)

// Message types carried by EventMessage frames.
const (
	TypeMessage = "message"
	TypeJoin    = "join"
	TypeLeave   = "leave"
	TypeError   = "error"
)

// ClientFrame is what a client may send. Unknown events are dropped by the
// read pump before dispatch.
type ClientFrame struct {
	Event    string `json:"event" validate:"required,oneof=join send_message"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ServerFrame is the unified outbound frame. EventMessage frames carry a
// type tag; EventUserList frames replace the client's whole roster.
type ServerFrame struct {
	Event    string   `json:"event"`
	Type     string   `json:"type,omitempty"`
	Username string   `json:"username,omitempty"`
	Text     string   `json:"text,omitempty"`
	// Users must serialize as [] when the roster is empty; omitzero only
	// drops the field when the slice is nil, omitempty would drop [] too.
	Users []string `json:"users,omitzero"`
}

// ToServerFrame maps a domain event onto the wire. Events with no wire
// representation (pre-moderation messages) report ok=false.
func ToServerFrame(e event.DomainEvent) (ServerFrame, bool) {
	switch evt := e.(type) {
	case event.ChatBroadcast:
		return ServerFrame{
			Event:    EventMessage,
			Type:     TypeMessage,
			Username: evt.Author,
			Text:     evt.Content,
		}, true
	case event.UserJoined:
		return ServerFrame{Event: EventMessage, Type: TypeJoin, Username: evt.Username}, true
	case event.UserLeft:
		return ServerFrame{Event: EventMessage, Type: TypeLeave, Username: evt.Username}, true
	case event.ErrorNotice:
		return ServerFrame{Event: EventMessage, Type: TypeError, Text: evt.Text}, true
	case event.RosterUpdated:
		users := evt.Users
		if users == nil {
			users = []string{}
		}
		return ServerFrame{Event: EventUserList, Users: users}, true
	default:
		return ServerFrame{}, false
	}
}

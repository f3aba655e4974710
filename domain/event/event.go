package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable outbound event produced by the engine.
// Recipient returns the single target connection for reply-only events;
// broadcast events report ok=false and are fanned out to every connection.
type DomainEvent interface {
	Recipient() (domain.ConnectionID, bool)
}

// broadcast is embedded by events addressed to all connections.
type broadcast struct{}

func (broadcast) Recipient() (domain.ConnectionID, bool) {
	return domain.ConnectionID{}, false
}

type UserJoined struct {
	broadcast
	Username string
}

type UserLeft struct {
	broadcast
	Username string
}

// MessagePosted is the raw, pre-moderation chat event. It never reaches
// connection sinks directly; the moderation worker turns it into a
// ChatBroadcast first.
type MessagePosted struct {
	broadcast
	ID      uuid.UUID
	Author  string
	Content string
	At      time.Time
}

// ChatBroadcast is the sanitized chat event delivered to every connection,
// including the author.
type ChatBroadcast struct {
	broadcast
	ID            uuid.UUID
	Author        string
	Content       string
	Lang          string
	CensoredWords []string
	At            time.Time
}

// RosterUpdated carries the full join-ordered list of active display names.
// It replaces any previously delivered roster on the client.
type RosterUpdated struct {
	broadcast
	Users []string
}

// ErrorNotice is addressed to the connection that caused it. It never
// broadcasts; validation failures must not leak to other participants.
type ErrorNotice struct {
	Conn domain.ConnectionID
	Text string
}

func (e ErrorNotice) Recipient() (domain.ConnectionID, bool) {
	return e.Conn, true
}

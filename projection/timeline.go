// Package projection builds local read models from observed events.
// It never emits events or mutates runtime state.
package projection

import (
	"chat-relay/domain/event"
	"context"
	"sync"
	"time"
)

// Entry is one rendered line of the transcript.
type Entry struct {
	Kind   string    `json:"kind"`
	Author string    `json:"author,omitempty"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

// Timeline keeps the most recent broadcast activity for the inspect page.
// It is a permanent sink: it observes the same stream the connections do.
type Timeline struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

func NewTimeline(limit int) *Timeline {
	return &Timeline{limit: limit}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	var entry Entry
	switch evt := e.(type) {
	case event.ChatBroadcast:
		entry = Entry{Kind: "message", Author: evt.Author, Text: evt.Content, At: evt.At}
	case event.UserJoined:
		entry = Entry{Kind: "join", Author: evt.Username, At: time.Now().UTC()}
	case event.UserLeft:
		entry = Entry{Kind: "leave", Author: evt.Username, At: time.Now().UTC()}
	default:
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.limit {
		t.entries = t.entries[len(t.entries)-t.limit:]
	}
	return nil
}

// Recent returns the retained entries, newest last.
func (t *Timeline) Recent() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

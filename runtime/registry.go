package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
)

// Registry is the single mutual-exclusion domain of the relay. It tracks
// every attached connection's sink, the session each connection registered,
// and the join order of active names. The uniqueness check and the session
// write inside Register happen under one lock, so two concurrent joins for
// the same name can never both succeed.
type Registry struct {
	mu       sync.RWMutex
	sinks    map[domain.ConnectionID]contract.EventSink
	sessions map[domain.ConnectionID]string
	byName   map[string]domain.ConnectionID
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:    make(map[domain.ConnectionID]contract.EventSink),
		sessions: make(map[domain.ConnectionID]string),
		byName:   make(map[string]domain.ConnectionID),
	}
}

// Attach records a freshly connected transport and its delivery sink.
// The connection has no session until it registers a name.
func (r *Registry) Attach(conn domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Detach removes the connection's sink and session. It returns the freed
// display name, or false if the connection never registered one.
func (r *Registry) Detach(conn domain.ConnectionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sinks, conn)

	name, ok := r.sessions[conn]
	if !ok {
		return "", false
	}
	delete(r.sessions, conn)
	delete(r.byName, name)
	r.removeFromOrder(name)
	return name, true
}

// Register binds a display name to the connection. It fails with ErrNameTaken
// when another connection holds the exact same name. Re-registering the same
// connection replaces its previous name, matching an identity replay.
func (r *Registry) Register(conn domain.ConnectionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, taken := r.byName[name]; taken {
		if holder == conn {
			return nil
		}
		return errors.ErrNameTaken
	}

	if previous, ok := r.sessions[conn]; ok {
		delete(r.byName, previous)
		r.removeFromOrder(previous)
	}

	r.sessions[conn] = name
	r.byName[name] = conn
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) NameOf(conn domain.ConnectionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.sessions[conn]
	return name, ok
}

// Names returns a join-ordered snapshot of the active display names,
// suitable for a roster broadcast.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Sinks returns every attached connection's sink, named or not. Broadcasts
// reach all connected clients, not only registered sessions.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) SinkOf(conn domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[conn]
	return sink, ok
}

// removeFromOrder deletes one occurrence of name preserving join order.
// Callers must hold the write lock.
func (r *Registry) removeFromOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Package client implements the relay client: one websocket connection, a
// connection state machine, and bounded reconnection with identity replay.
// It emits Events for a presentation layer and never renders anything itself.
package client

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/ws"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// MaxReconnectAttempts bounds the retry budget after a mid-session loss.
	MaxReconnectAttempts = 3
	// ReconnectDelay spaces the attempts.
	ReconnectDelay = 2 * time.Second
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

type EventKind string

const (
	KindChat   EventKind = "message"
	KindJoin   EventKind = "join"
	KindLeave  EventKind = "leave"
	KindError  EventKind = "error"
	KindRoster EventKind = "user_list"
	KindSystem EventKind = "system"
)

// Event is what the presentation consumer renders: relayed server frames
// plus locally generated system notices (connection lost, reconnected...).
type Event struct {
	Kind     EventKind
	Username string
	Text     string
	Users    []string
}

// Client owns the transport connection and serializes every operation on one
// mutex: no overlapping connect attempts, and sends issued while
// reconnecting wait on the same reconnection path instead of racing it.
type Client struct {
	mu       sync.Mutex
	log      *slog.Logger
	url      string
	dialer   Dialer
	delay    func(time.Duration)
	state    State
	conn     Conn
	username string
	closed   bool
	events   chan Event
}

func NewClient(log *slog.Logger, serverURL string) *Client {
	return &Client{
		log:    log,
		url:    serverURL,
		dialer: WebsocketDialer{},
		delay:  time.Sleep,
		events: make(chan Event, 64),
	}
}

// WithDialer replaces the websocket dialer. Used by tests.
func (c *Client) WithDialer(d Dialer) *Client {
	c.dialer = d
	return c
}

// WithDelay replaces the inter-attempt delay function. Used by tests.
func (c *Client) WithDelay(fn func(time.Duration)) *Client {
	c.delay = fn
	return c
}

// Events is the ordered stream consumed by the presentation layer.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username returns the locally chosen display name, if any.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Connect performs the initial connection. A failure here surfaces an error
// and leaves the client Disconnected without retrying: only a mid-session
// loss triggers the reconnection path.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected {
		return nil
	}
	c.state = StateConnecting

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.state = StateDisconnected
		c.deliver(Event{Kind: KindError, Text: fmt.Sprintf("connection failed: %v", err)})
		return err
	}

	c.adopt(conn)
	return nil
}

// Join chooses the display name and requests a session. The name persists
// across reconnects and is replayed automatically after a successful
// reconnect attempt. Called while not connected, it drives the shared
// reconnection path first, which also serves as the manual retry after a
// terminal disconnect.
func (c *Client) Join(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > domain.MaxUsernameLength {
		return fmt.Errorf("name must be non-empty and ≤ %d chars", domain.MaxUsernameLength)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.username = username

	if c.state != StateConnected {
		if err := c.reconnect(ctx); err != nil {
			return err
		}
		// reconnect already replayed the join for us.
		return nil
	}

	return c.writeJoin(username)
}

// Send broadcasts a chat message. While not connected it triggers the
// reconnection path and drops the message: the user resends once the
// connection is back. No outbound queue exists by design of the protocol.
func (c *Client) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		c.deliver(Event{Kind: KindError, Text: "no connection to the relay"})
		if err := c.reconnect(ctx); err != nil {
			return err
		}
		return errors.ErrNotConnected
	}

	err := c.conn.WriteJSON(ws.ClientFrame{Event: ws.EventSendMessage, Text: text})
	if err != nil {
		c.log.Warn("Send failed", "error", err)
		c.deliver(Event{Kind: KindError, Text: fmt.Sprintf("send failed: %v", err)})
		return err
	}
	return nil
}

// Close tears the connection down for good; the read loop must not treat
// this as a transport loss.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.state = StateDisconnected
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// adopt installs a live connection and starts its read loop.
// Callers must hold the mutex.
func (c *Client) adopt(conn Conn) {
	c.conn = conn
	c.state = StateConnected
	go c.readLoop(conn)
}

func (c *Client) writeJoin(username string) error {
	return c.conn.WriteJSON(ws.ClientFrame{Event: ws.EventJoin, Username: username})
}

// reconnect runs the bounded retry loop under the client mutex, so every
// concurrent operation waits for its outcome. On the first attempt that
// succeeds, a previously chosen name is replayed before declaring Connected;
// a NameTaken rejection of that replay arrives as a server error frame and
// is surfaced, never swallowed. Callers must hold the mutex.
func (c *Client) reconnect(ctx context.Context) error {
	c.state = StateReconnecting
	c.deliver(Event{Kind: KindSystem, Text: "attempting to reconnect..."})

	for attempt := 1; attempt <= MaxReconnectAttempts; attempt++ {
		c.delay(ReconnectDelay)

		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			c.log.Debug("Reconnect attempt failed",
				"attempt", attempt, "max", MaxReconnectAttempts, "error", err)
			continue
		}

		if c.username != "" {
			if err := conn.WriteJSON(ws.ClientFrame{Event: ws.EventJoin, Username: c.username}); err != nil {
				_ = conn.Close()
				continue
			}
		}

		c.adopt(conn)
		c.deliver(Event{Kind: KindSystem, Text: "connection restored"})
		return nil
	}

	c.state = StateDisconnected
	c.deliver(Event{Kind: KindError, Text: "could not reconnect to the server"})
	return errors.ErrReconnectExhausted
}

// readLoop forwards server frames until the connection dies, then hands
// control to the reconnection path.
func (c *Client) readLoop(conn Conn) {
	for {
		var frame ws.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.onConnectionLost(conn)
			return
		}
		c.forward(frame)
	}
}

// onConnectionLost drives the mid-session recovery. It ignores losses of
// connections that were already replaced or deliberately closed.
func (c *Client) onConnectionLost(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn != conn {
		return
	}

	c.deliver(Event{Kind: KindError, Text: "connection to the server lost"})
	_ = c.reconnect(context.Background())
}

func (c *Client) forward(frame ws.ServerFrame) {
	switch frame.Event {
	case ws.EventUserList:
		c.deliver(Event{Kind: KindRoster, Users: frame.Users})
	case ws.EventMessage:
		c.deliver(Event{
			Kind:     EventKind(frame.Type),
			Username: frame.Username,
			Text:     frame.Text,
		})
	default:
		c.log.Debug("Unknown server frame", "event", frame.Event)
	}
}

// deliver is best-effort: a stalled consumer loses UI events rather than
// wedging the transport.
func (c *Client) deliver(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.Debug("Event consumer too slow, dropping event")
	}
}

package client

import (
	"chat-relay/errors"
	"chat-relay/infrastructure/ws"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeConn is a scriptable connection: the test feeds server frames in and
// inspects what the client wrote.
type fakeConn struct {
	mu        sync.Mutex
	frames    chan ws.ServerFrame
	writes    []ws.ClientFrame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan ws.ServerFrame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case frame := <-c.frames:
		*v.(*ws.ServerFrame) = frame
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return io.EOF
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(ws.ClientFrame))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentFrames() []ws.ClientFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ws.ClientFrame, len(c.writes))
	copy(out, c.writes)
	return out
}

// fakeDialer pops one scripted outcome per dial attempt.
type fakeDialer struct {
	mu       sync.Mutex
	outcomes []dialOutcome
	attempts int
}

type dialOutcome struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context, serverURL string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if len(d.outcomes) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	next := d.outcomes[0]
	d.outcomes = d.outcomes[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func newTestClient(dialer *fakeDialer) *Client {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewClient(log, "http://localhost:4000").
		WithDialer(dialer).
		WithDelay(func(time.Duration) {})
}

func awaitEvent(req *require.Assertions, c *Client, kind EventKind) Event {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-c.Events():
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			req.FailNowf("Event never arrived", "kind %s", kind)
			return Event{}
		}
	}
}

func TestClient_Initial_Connect_Failure_Does_Not_Retry(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{outcomes: []dialOutcome{{err: io.ErrUnexpectedEOF}}}
	c := newTestClient(dialer)

	// When the very first connection fails
	err := c.Connect(context.Background())

	// Then the failure surfaces, exactly one dial happened, no retry loop
	req.Error(err)
	req.Equal(1, dialer.dialCount())
	req.Equal(StateDisconnected, c.State())
	awaitEvent(req, c, KindError)
}

func TestClient_Join_Writes_Frame_When_Connected(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn}}}
	c := newTestClient(dialer)

	req.NoError(c.Connect(context.Background()))

	// When joining with padding around the name
	req.NoError(c.Join(context.Background(), "  alice  "))

	// Then one trimmed join frame went out
	frames := conn.sentFrames()
	req.Len(frames, 1)
	req.Equal(ws.EventJoin, frames[0].Event)
	req.Equal("alice", frames[0].Username)
	req.Equal("alice", c.Username())
}

func TestClient_Join_Rejects_Invalid_Name_Locally(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn}}}
	c := newTestClient(dialer)
	req.NoError(c.Connect(context.Background()))

	// When the name is blank
	err := c.Join(context.Background(), "   ")

	// Then nothing reaches the wire
	req.Error(err)
	req.Empty(conn.sentFrames())
}

func TestClient_Connection_Loss_Reconnects_And_Replays_Join(t *testing.T) {
	req := require.New(t)
	conn1 := newFakeConn()
	conn2 := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn1}, {conn: conn2}}}
	c := newTestClient(dialer)

	// Given a joined session
	req.NoError(c.Connect(context.Background()))
	req.NoError(c.Join(context.Background(), "alice"))

	// When the transport dies mid-session
	_ = conn1.Close()

	// Then the loss is surfaced and the client reconnects on its own
	awaitEvent(req, c, KindError)
	restored := awaitEvent(req, c, KindSystem)
	req.Equal("connection restored", restored.Text)
	req.Equal(StateConnected, c.State())

	// And the join was replayed with the same identity before Connected
	frames := conn2.sentFrames()
	req.NotEmpty(frames)
	req.Equal(ws.EventJoin, frames[0].Event)
	req.Equal("alice", frames[0].Username)
}

func TestClient_Replayed_Join_Rejection_Is_Surfaced(t *testing.T) {
	req := require.New(t)
	conn1 := newFakeConn()
	conn2 := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn1}, {conn: conn2}}}
	c := newTestClient(dialer)

	req.NoError(c.Connect(context.Background()))
	req.NoError(c.Join(context.Background(), "carol"))

	// Given carol's name is stolen during the outage
	_ = conn1.Close()
	req.Eventually(func() bool { return c.State() == StateConnected },
		2*time.Second, 10*time.Millisecond)

	// When the relay rejects the replayed join
	conn2.frames <- ws.ServerFrame{Event: ws.EventMessage, Type: ws.TypeError, Text: "name already in use, choose another"}

	// Then the conflict reaches the user instead of being swallowed
	notice := awaitEvent(req, c, KindError)
	req.Contains(notice.Text, "already in use")
}

func TestClient_Reconnect_Gives_Up_After_Three_Attempts(t *testing.T) {
	req := require.New(t)
	conn1 := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn1}}} // every later dial fails

	var delays []time.Duration
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	c := NewClient(log, "http://localhost:4000").
		WithDialer(dialer).
		WithDelay(func(d time.Duration) { delays = append(delays, d) })

	req.NoError(c.Connect(context.Background()))
	req.NoError(c.Join(context.Background(), "alice"))

	// When the transport dies and every reconnect attempt fails
	_ = conn1.Close()

	// Then after the attempt budget the client settles Disconnected
	req.Eventually(func() bool { return c.State() == StateDisconnected },
		2*time.Second, 10*time.Millisecond)
	req.Equal(1+MaxReconnectAttempts, dialer.dialCount())
	req.Equal([]time.Duration{ReconnectDelay, ReconnectDelay, ReconnectDelay}, delays)
}

func TestClient_Send_While_Disconnected_Drops_And_Reconnects(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	// First dial fails on Connect, the next one serves the reconnection
	dialer := &fakeDialer{outcomes: []dialOutcome{{err: io.ErrUnexpectedEOF}, {conn: conn}}}
	c := newTestClient(dialer)

	req.Error(c.Connect(context.Background()))

	// When sending without a connection
	err := c.Send(context.Background(), "hello")

	// Then the message is dropped, not queued, and the client reconnected
	req.ErrorIs(err, errors.ErrNotConnected)
	req.Equal(StateConnected, c.State())
	req.Empty(conn.sentFrames())
}

func TestClient_Join_While_Disconnected_Uses_Reconnect_Path(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{err: io.ErrUnexpectedEOF}, {conn: conn}}}
	c := newTestClient(dialer)

	req.Error(c.Connect(context.Background()))

	// When joining while disconnected
	req.NoError(c.Join(context.Background(), "alice"))

	// Then the reconnect succeeded and already carried the join
	req.Equal(StateConnected, c.State())
	frames := conn.sentFrames()
	req.Len(frames, 1)
	req.Equal(ws.EventJoin, frames[0].Event)
}

func TestClient_Close_Is_Terminal(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn}}}
	c := newTestClient(dialer)
	req.NoError(c.Connect(context.Background()))

	// When the client closes deliberately
	req.NoError(c.Close())

	// Then the read loop's exit must not trigger a reconnection
	req.Equal(StateDisconnected, c.State())
	time.Sleep(50 * time.Millisecond)
	req.Equal(1, dialer.dialCount())
}

func TestClient_Forwards_Server_Frames_As_Events(t *testing.T) {
	req := require.New(t)
	conn := newFakeConn()
	dialer := &fakeDialer{outcomes: []dialOutcome{{conn: conn}}}
	c := newTestClient(dialer)
	req.NoError(c.Connect(context.Background()))

	// When the server pushes a chat frame and a roster frame
	conn.frames <- ws.ServerFrame{Event: ws.EventMessage, Type: ws.TypeMessage, Username: "bob", Text: "hi"}
	conn.frames <- ws.ServerFrame{Event: ws.EventUserList, Users: []string{"alice", "bob"}}

	// Then both surface as typed events, in order
	chat := awaitEvent(req, c, KindChat)
	req.Equal("bob", chat.Username)
	req.Equal("hi", chat.Text)

	roster := awaitEvent(req, c, KindRoster)
	req.Equal([]string{"alice", "bob"}, roster.Users)
}

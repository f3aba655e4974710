package client

import (
	"chat-relay/infrastructure/ws"
	"context"
	"net/url"

	"github.com/gorilla/websocket"
)

// Conn is the minimal connection surface the client needs.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a connection to the relay. Tests inject fakes.
type Dialer interface {
	Dial(ctx context.Context, serverURL string) (Conn, error)
}

// WebsocketDialer dials the relay's websocket endpoint. It accepts the
// configured http(s) server URL and rewrites it to the ws(s) scheme, so the
// default `http://localhost:4000` works as-is.
type WebsocketDialer struct{}

func (WebsocketDialer) Dial(ctx context.Context, serverURL string) (Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = ws.Path
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const (
	// Path is the websocket endpoint the relay serves.
	Path = "/ws"

	readLimit     = 8192
	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// Relay is the slice of the orchestrator the transport needs.
type Relay interface {
	Connect() (domain.ConnectionID, <-chan event.DomainEvent)
	Dispatch(cmd domain.Command)
}

// Server upgrades HTTP requests and runs one read pump and one write pump
// per connection. It translates wire frames into commands and domain events
// into wire frames, nothing more.
type Server struct {
	log      *slog.Logger
	relay    Relay
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, relay Relay) *Server {
	return &Server{
		log:      log,
		relay:    relay,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay has no cross-origin surface to protect; any
			// browser client may connect, like the original CORS "*".
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the mux serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveWS)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn, events := s.relay.Connect()
	done := make(chan struct{})

	go s.writePump(wsConn, conn, events, done)
	s.readPump(wsConn, conn)

	// Read pump returned: the connection is gone, for whatever reason.
	close(done)
	s.relay.Dispatch(domain.DisconnectCommand{Conn: conn})
	_ = wsConn.Close()
}

// readPump decodes client frames and dispatches commands until the
// connection errors out. Malformed frames are dropped, never fatal.
func (s *Server) readPump(wsConn *websocket.Conn, conn domain.ConnectionID) {
	wsConn.SetReadLimit(readLimit)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.log.Warn("Unexpected websocket error", "conn", conn, "error", err)
			} else {
				s.log.Debug("Client disconnected", "conn", conn)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug("Invalid frame", "conn", conn, "error", err)
			continue
		}
		if err := s.validate.Struct(frame); err != nil {
			s.log.Debug("Unknown frame event", "conn", conn, "event", frame.Event)
			continue
		}

		switch frame.Event {
		case EventJoin:
			s.relay.Dispatch(domain.JoinCommand{Conn: conn, Username: frame.Username})
		case EventSendMessage:
			s.relay.Dispatch(domain.PostMessageCommand{
				Conn:      conn,
				Content:   frame.Text,
				CreatedAt: time.Now().UTC(),
			})
		}
	}
}

// writePump drains the connection sink and keeps the connection alive with
// pings. It stops when the read pump signals done or a write fails.
func (s *Server) writePump(wsConn *websocket.Conn, conn domain.ConnectionID,
	events <-chan event.DomainEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt := <-events:
			frame, ok := ToServerFrame(evt)
			if !ok {
				continue
			}
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := wsConn.WriteJSON(frame); err != nil {
				s.log.Debug("Write failed", "conn", conn, "error", err)
				return
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "conn", conn, "error", err)
				return
			}
		}
	}
}

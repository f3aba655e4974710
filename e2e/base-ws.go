package e2e

import (
	"chat-relay/infrastructure/ws"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

// BaseRelaySuite starts a relay for the scenario tests. With RELAY_ADDR set
// it targets that deployment; otherwise the whole pipeline runs in-process.
type BaseRelaySuite struct {
	suite.Suite
	Config Config

	wsURL  string
	server *httptest.Server
	cancel context.CancelFunc
}

// SetupSuite loads the environment configuration and boots the relay.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayAddr != "" {
		s.wsURL = "ws://" + s.Config.RelayAddr + ws.Path
		return
	}

	log := slog.New(slog.DiscardHandler)
	orchestrator := runtime.NewOrchestrator(
		log, workers.NewSupervisor(log), runtime.NewRegistry(),
		observability.NewMonitoring(log),
		256, 64,
		time.Second, time.Minute,
		'*',
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		_ = orchestrator.Start(ctx)
	}()

	s.server = httptest.NewServer(ws.NewServer(log, orchestrator).Handler())
	s.wsURL = "ws" + strings.TrimPrefix(s.server.URL, "http") + ws.Path
	time.Sleep(100 * time.Millisecond) // Let the supervised workers start
}

func (s *BaseRelaySuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Participant is one connected chat client under test.
type Participant struct {
	suite *BaseRelaySuite
	name  string
	conn  *websocket.Conn
}

// Dial connects a named participant with a colorized header in the logs.
func (s *BaseRelaySuite) Dial(name string) *Participant {
	header := fmt.Sprintf("  ====== %s connects ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	s.Require().NoError(err, "Failed to connect to relay at "+s.wsURL)
	s.T().Cleanup(func() { _ = conn.Close() })
	return &Participant{suite: s, name: name, conn: conn}
}

func (p *Participant) send(frame ws.ClientFrame) {
	p.logFrame("SENT", frame)
	p.suite.Require().NoError(p.conn.WriteJSON(frame))
}

func (p *Participant) Join(username string) {
	p.send(ws.ClientFrame{Event: ws.EventJoin, Username: username})
}

func (p *Participant) Say(text string) {
	p.send(ws.ClientFrame{Event: ws.EventSendMessage, Text: text})
}

func (p *Participant) Leave() {
	_ = p.conn.Close()
}

// NextFrame reads one server frame within the suite timeout.
func (p *Participant) NextFrame() ws.ServerFrame {
	p.suite.Require().NoError(p.conn.SetReadDeadline(time.Now().Add(frameTimeout)))

	var frame ws.ServerFrame
	err := p.conn.ReadJSON(&frame)
	p.suite.Require().NoError(err, p.name+" expected a frame but the read failed")
	p.logFrame("RECEIVED", frame)
	return frame
}

func (p *Participant) logFrame(direction string, frame any) {
	if !p.suite.Config.DebugJSON {
		return
	}
	raw, _ := json.MarshalIndent(frame, "", "  ")
	p.suite.T().Logf("%s %s:\n%s", p.name, direction, raw)
}

package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Reply texts sent to the offending connection only.
const (
	InvalidNameText    = "name must be non-empty and ≤ 50 chars"
	NameInUseText      = "name already in use, choose another"
	InvalidMessageText = "message must be non-empty and ≤ 1000 chars"
)

// Ensure *SessionWorker implements the contract.Worker interface at compile
// time. This prevents "type mismatch" errors from appearing late in other
// packages and acts as a static assertion of our architectural rules.
var _ contract.Worker = (*SessionWorker)(nil)

// joinInput and messageInput carry trimmed user input through the validator.
// For strings, min/max count runes, which matches the character-based limits.
type joinInput struct {
	Username string `validate:"required,max=50"`
}

type messageInput struct {
	Text string `validate:"required,max=1000"`
}

// SessionWorker is the broadcast engine. It consumes inbound commands one at
// a time, validates them, mutates the registry, and emits outbound events.
// Being the only registry writer, it serializes every join/disconnect.
type SessionWorker struct {
	registry   contract.IRegistry
	commands   chan domain.Command
	events     chan event.DomainEvent
	validate   *validator.Validate
	monitoring *observability.Monitoring
	log        *slog.Logger
}

func NewSessionWorker(
	registry contract.IRegistry,
	commands chan domain.Command,
	events chan event.DomainEvent,
	monitoring *observability.Monitoring,
	log *slog.Logger) *SessionWorker {
	return &SessionWorker{
		registry:   registry,
		commands:   commands,
		events:     events,
		validate:   validator.New(),
		monitoring: monitoring,
		log:        log,
	}
}

func (w *SessionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handle(ctx, cmd)
		}
	}
}

func (w *SessionWorker) handle(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		w.handleJoin(ctx, c)
	case domain.PostMessageCommand:
		w.handlePostMessage(ctx, c)
	case domain.DisconnectCommand:
		w.handleDisconnect(ctx, c)
	default:
		w.log.Debug(fmt.Sprintf("Unknown command %T", cmd))
	}
}

func (w *SessionWorker) handleJoin(ctx context.Context, cmd domain.JoinCommand) {
	username := strings.TrimSpace(cmd.Username)

	if err := w.validate.Struct(joinInput{Username: username}); err != nil {
		w.emit(ctx, event.ErrorNotice{Conn: cmd.Conn, Text: InvalidNameText})
		return
	}

	_, hadSession := w.registry.NameOf(cmd.Conn)

	if err := w.registry.Register(cmd.Conn, username); err != nil {
		if err == errors.ErrNameTaken {
			w.emit(ctx, event.ErrorNotice{Conn: cmd.Conn, Text: NameInUseText})
			return
		}
		w.log.Error("Registration failed", "conn", cmd.Conn, "error", err)
		return
	}

	if !hadSession {
		w.monitoring.SessionStarted()
	}
	w.log.Info("User joined", "username", username, "conn", cmd.Conn)

	w.emit(ctx, event.UserJoined{Username: username})
	w.emit(ctx, event.RosterUpdated{Users: w.registry.Names()})
}

func (w *SessionWorker) handlePostMessage(ctx context.Context, cmd domain.PostMessageCommand) {
	author, ok := w.registry.NameOf(cmd.Conn)
	if !ok {
		// No session, no sender identity. Dropped silently so pre-join
		// races don't leak state back to the connection.
		w.log.Debug("Dropping message from nameless connection", "conn", cmd.Conn)
		return
	}

	content := strings.TrimSpace(cmd.Content)
	if err := w.validate.Struct(messageInput{Text: content}); err != nil {
		w.emit(ctx, event.ErrorNotice{Conn: cmd.Conn, Text: InvalidMessageText})
		return
	}

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	w.emit(ctx, event.MessagePosted{
		ID:      uuid.New(),
		Author:  author,
		Content: content,
		At:      createdAt,
	})
}

func (w *SessionWorker) handleDisconnect(ctx context.Context, cmd domain.DisconnectCommand) {
	name, hadSession := w.registry.Detach(cmd.Conn)
	w.monitoring.ConnectionClosed()

	if !hadSession {
		w.log.Debug("Connection left before joining", "conn", cmd.Conn)
		return
	}

	w.monitoring.SessionEnded()
	w.log.Info("User disconnected", "username", name)

	w.emit(ctx, event.UserLeft{Username: name})
	w.emit(ctx, event.RosterUpdated{Users: w.registry.Names()})
}

// emit blocks until the event is queued, unless the engine is shutting down.
func (w *SessionWorker) emit(ctx context.Context, e event.DomainEvent) {
	select {
	case <-ctx.Done():
	case w.events <- e:
	}
}

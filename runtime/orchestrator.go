package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

//go:embed censored/*
var censoredFolder embed.FS

// transcriptLimit caps the inspect-page timeline.
const transcriptLimit = 50

// Orchestrator wires the relay pipeline and owns its channels. It registers
// all workers with the supervisor and exposes the two operations the
// transport needs: Connect and Dispatch.
type Orchestrator struct {
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        *Registry
	monitoring      *observability.Monitoring
	timeline        *projection.Timeline
	commands        chan domain.Command
	rawEvents       chan event.DomainEvent
	domainEvents    chan event.DomainEvent
	telemetryEvents chan event.DomainEvent
	connBufferSize  int
	sinkTimeout     time.Duration
	metricInterval  time.Duration
	charReplacement rune
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, monitoring *observability.Monitoring,
	bufferSize, connBufferSize int,
	sinkTimeout, metricInterval time.Duration,
	charReplacement rune) *Orchestrator {
	return &Orchestrator{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		monitoring:      monitoring,
		timeline:        projection.NewTimeline(transcriptLimit),
		commands:        make(chan domain.Command, bufferSize),
		rawEvents:       make(chan event.DomainEvent, bufferSize),
		domainEvents:    make(chan event.DomainEvent, bufferSize),
		telemetryEvents: make(chan event.DomainEvent, bufferSize),
		connBufferSize:  connBufferSize,
		sinkTimeout:     sinkTimeout,
		metricInterval:  metricInterval,
		charReplacement: charReplacement,
	}
}

// Connect attaches a new transport connection: it allocates the connection
// identity and the buffered sink its write loop will drain. No broadcast is
// emitted; a connection stays invisible until it joins.
func (o *Orchestrator) Connect() (domain.ConnectionID, <-chan event.DomainEvent) {
	conn := domain.NewConnectionID()
	connSink := sink.NewConnSink(o.log, o.connBufferSize, o.sinkTimeout)
	o.registry.Attach(conn, connSink)
	o.monitoring.ConnectionOpened()
	o.log.Info("Client connected", "conn", conn)
	return conn, connSink.Events
}

// Dispatch queues an inbound command for the engine. A full command channel
// sheds chat traffic instead of blocking the transport read loops, but a
// disconnect is never shed: dropping one would leak the session, leave a
// ghost name in every roster, and keep a dead sink on the fanout path. The
// reporting goroutine is already past its read loop, so blocking is safe.
func (o *Orchestrator) Dispatch(cmd domain.Command) {
	if _, lifecycle := cmd.(domain.DisconnectCommand); lifecycle {
		o.commands <- cmd
		return
	}

	select {
	case o.commands <- cmd:
	default:
		o.log.Warn(fmt.Sprintf("Command channel full, dropping command from %s", cmd.ConnID()))
	}
}

// Timeline exposes the transcript read model for the debug server.
func (o *Orchestrator) Timeline() *projection.Timeline {
	return o.timeline
}

// Start prepares all workers (engine, moderation, fanout, telemetry) and
// hands them to the supervisor. Heavy preparation such as the Aho-Corasick
// build happens before any worker runs.
func (o *Orchestrator) Start(ctx context.Context) error {
	moderationWorker, err := o.prepareModeration("censored", o.charReplacement)
	if err != nil {
		return err
	}

	sessionWorker := workers.NewSessionWorker(o.registry, o.commands, o.rawEvents, o.monitoring, o.log)
	fanoutWorker := workers.NewEventFanout(
		o.log, o.registry, o.domainEvents, o.telemetryEvents, o.monitoring, o.sinkTimeout,
	).Add(o.timeline)
	telemetryWorker := workers.NewTelemetryWorker(o.monitoring, o.telemetryEvents, o.metricInterval, o.log)

	o.supervisor.Add(sessionWorker, moderationWorker, fanoutWorker, telemetryWorker)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads the censored dictionaries and builds the censor.
func (o *Orchestrator) prepareModeration(path string, charReplacement rune) (contract.Worker, error) {
	loader := NewDictionaryLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement, o.log)
	if err != nil {
		return nil, err
	}

	return workers.NewModerationWorker(moderator, o.rawEvents, o.domainEvents, o.log), nil
}

// Stop cancels the supervised context; workers drain and exit.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers domain events to connection sinks and permanent sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across connections, durability, or retries. EventFanout is not a
// message broker. A failing sink never aborts delivery to the others.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	domainEvents   chan event.DomainEvent
	telemetryEvent chan event.DomainEvent
	permanentSinks []contract.EventSink
	monitoring     *observability.Monitoring
	sinkTimeout    time.Duration
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IRegistry,
	domainEvents, telemetryEvent chan event.DomainEvent,
	monitoring *observability.Monitoring,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		domainEvents:   domainEvents,
		telemetryEvent: telemetryEvent,
		monitoring:     monitoring,
		sinkTimeout:    sinkTimeout,
	}
}

// Add appends permanent sinks observing every broadcast (transcript, metrics).
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return ctx.Err()
		case evt, ok := <-w.domainEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
			select {
			case w.telemetryEvent <- evt:
			default:
				w.monitoring.IncrTelemetryDropped()
			}
		}
	}
}

// Fanout resolves the audience and delivers. Targeted events reach only
// their recipient; everything else goes to every attached connection plus
// the permanent sinks.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	if conn, targeted := evt.Recipient(); targeted {
		if sink, ok := w.registry.SinkOf(conn); ok {
			w.deliver(ctx, sink, evt)
		}
		return
	}

	w.monitoring.IncrEventsBroadcast()
	for _, sink := range w.registry.Sinks() {
		w.deliver(ctx, sink, evt)
	}
	for _, sink := range w.permanentSinks {
		w.deliver(ctx, sink, evt)
	}
}

// deliver isolates one sink's failure from the rest of the audience.
func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(deliveryCtx, evt); err != nil {
		w.monitoring.IncrDeliveryFailures()
		w.log.Debug("Sink delivery failed", "error", err)
	}
}

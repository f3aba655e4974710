package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker drains the telemetry side channel and refreshes the
// monitoring snapshot on every metric interval. Running under supervision,
// a panic in stats collection restarts sampling instead of killing it.
type TelemetryWorker struct {
	monitoring      *observability.Monitoring
	telemetryEvents chan event.DomainEvent
	metricInterval  time.Duration
	log             *slog.Logger
}

func NewTelemetryWorker(monitoring *observability.Monitoring,
	telemetryEvents chan event.DomainEvent,
	metricInterval time.Duration, log *slog.Logger) *TelemetryWorker {
	return &TelemetryWorker{
		monitoring:      monitoring,
		telemetryEvents: telemetryEvents,
		metricInterval:  metricInterval,
		log:             log,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			w.monitoring.Refresh()
		case evt, ok := <-w.telemetryEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if _, isChat := evt.(event.ChatBroadcast); isChat {
				w.monitoring.IncrChatMessages()
			}
		}
	}
}

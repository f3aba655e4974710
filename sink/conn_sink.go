// Package sink contains EventSink implementations fed by the fanout worker.
package sink

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

// ConnSink is the per-connection delivery buffer. The fanout worker pushes
// events in, the websocket write loop drains them. A slow or dead connection
// fails its own deliveries without blocking the fanout for longer than the
// delivery timeout.
type ConnSink struct {
	Events          chan event.DomainEvent
	log             *slog.Logger
	deliveryTimeout time.Duration
}

func NewConnSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *ConnSink {
	return &ConnSink{
		Events:          make(chan event.DomainEvent, bufferSize),
		log:             log,
		deliveryTimeout: deliveryTimeout,
	}
}

// Consume implements contract.EventSink. The fast path is a non-blocking
// buffered send; when the buffer is full we wait up to the delivery timeout
// before giving up on this connection for this event.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	default:
	}

	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()

	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Debug("Connection sink full, dropping event")
		return context.DeadlineExceeded
	}
}

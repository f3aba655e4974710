package sink

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestConnSink_Buffered_Send_Never_Blocks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	connSink := NewConnSink(log, 2, 10*time.Millisecond)

	// When two events fit the buffer
	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "alice"}))
	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "bob"}))

	// Then they are drained in order
	joined := (<-connSink.Events).(event.UserJoined)
	req.Equal("alice", joined.Username)
	joined = (<-connSink.Events).(event.UserJoined)
	req.Equal("bob", joined.Username)
}

func TestConnSink_Full_Buffer_Times_Out(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	connSink := NewConnSink(log, 1, 20*time.Millisecond)

	// Given a full buffer nobody drains
	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "alice"}))

	// When another event arrives
	err := connSink.Consume(context.Background(), event.UserJoined{Username: "bob"})

	// Then the delivery gives up after the timeout
	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestConnSink_Full_Buffer_Drained_Within_Timeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	connSink := NewConnSink(log, 1, 500*time.Millisecond)

	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "alice"}))

	// Given a consumer drains the buffer shortly after
	go func() {
		time.Sleep(20 * time.Millisecond)
		<-connSink.Events
	}()

	// When another event arrives on the full buffer
	// Then the slow path delivers it before the timeout
	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "bob"}))
}

func TestConnSink_Cancelled_Context_Aborts_Delivery(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	connSink := NewConnSink(log, 1, time.Minute)

	req.NoError(connSink.Consume(context.Background(), event.UserJoined{Username: "alice"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When the fanout's delivery context is already cancelled
	err := connSink.Consume(ctx, event.UserJoined{Username: "bob"})

	// Then the send aborts instead of waiting out the sink timeout
	req.ErrorIs(err, context.Canceled)
}

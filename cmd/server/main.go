package main

import (
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. This pattern ensures deferred cleanup runs
// before the process exits and keeps the wiring testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Engine wiring
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoring(logger)
	supervisor := workers.NewSupervisor(logger)
	orchestrator := runtime.NewOrchestrator(
		logger, supervisor, registry, monitoring,
		config.BufferSize, config.ConnectionBufferSize,
		config.SinkTimeout, config.MetricInterval,
		charReplacement,
	)

	if logger.Enabled(ctx, slog.LevelDebug) {
		url := fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort)
		logger.Info("Debug inspector available", "url", url)
		internal.StartDebugServer(orchestrator.Timeline(), config.DebugPort, func() map[string]any {
			stats := monitoring.GetLatest()
			return map[string]any{
				"Connections": stats.ActiveConnections,
				"Sessions":    stats.ActiveSessions,
				"Broadcasts":  stats.EventsBroadcast,
				"Messages":    stats.ChatMessages,
				"Failures":    stats.DeliveryFailures,
				"CPU %":       fmt.Sprintf("%.1f", stats.CPUPercent),
				"RSS MB":      stats.RSSBytes / 1024 / 1024,
			}
		})
	}

	// 3. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger
	// a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP & Orchestrator)
	errChan := make(chan error, 2)

	// 4. Start the engine (workers and fanout)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 5. Websocket endpoint
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	wsServer := ws.NewServer(logger, orchestrator)
	httpServer := &http.Server{Addr: address, Handler: wsServer.Handler()}

	go func() {
		logger.Info("Starting relay", "address", address, "endpoint", ws.Path, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Graceful shutdown: stop accepting connections, then drain workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	orchestrator.Stop()
	logger.Info("Relay stopped cleanly")

	return exitOK, nil
}

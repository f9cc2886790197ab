package main

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	relayhttp "chat-relay/infrastructure/http"
	"chat-relay/internal"
	"chat-relay/internal/ratelimit"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so 'defer' statements (like database
// cleanup) execute before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: internal.SlogLevel(config.LogLevel),
	}))

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Relay core
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	registry := runtime.NewRegistry(logger, runtime.ReplacePolicy(config.SessionReplacePolicy))
	broadcaster := runtime.NewBroadcaster(logger, registry, metrics)

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.InboxLimit)
	coordinator := runtime.NewCoordinator(logger, userRepository, messageRepository, registry, metrics)

	// 4. Services & boundary
	chatService := services.NewChatService(logger, messageRepository, userRepository)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	limiter := ratelimit.New(config.SendRatePerSecond, config.SendBurst, config.LimiterIdleTTL)

	server := relayhttp.NewServer(logger,
		relayhttp.NewAuthHandler(logger, authService, userRepository),
		relayhttp.NewChatHandler(logger, chatService),
		relayhttp.NewWsHandler(logger, registry, broadcaster, coordinator,
			limiter, config.ConnectionBufferSize),
	)

	httpServer := &stdhttp.Server{
		Addr:    config.Addr(),
		Handler: server.Handler(),
	}

	// 5. Lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", config.Addr())
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return exitRuntime, fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped cleanly")
	return exitOK, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chat-relay/auth"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	rt "chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: run() does the work, main maps its outcome
	// onto the OS exit code after all defers have executed.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger. A missing .env is fine; the environment
	// itself may already be populated.
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	voteScope := services.VoteBroadcastScope(config.VoteBroadcastScope)
	if voteScope != services.VoteScopeGlobal && voteScope != services.VoteScopeAudience {
		return exitConfig, fmt.Errorf("unknown VOTE_BROADCAST_SCOPE %q", config.VoteBroadcastScope)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := internal.NewLogger(config.LogLevel, config.LogPretty)

	// 2. Database (BadgerDB).
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components.
	moderator, err := moderation.NewModerator(config.CensoredWordList(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens)

	registry := rt.NewRegistry()
	router := rt.NewRouter(registry, logger, config.DeliveryTimeout)
	chatService := services.NewChatService(
		messageRepository, userRepository, registry, router,
		&moderator, voteScope, config.MaxContentLength, logger)

	gateway := ws.NewGateway(chatService, authService, logger,
		config.AuthTimeout, config.ConnectionBufferSize)
	api := httpapi.NewAPI(authService, chatService, gateway, logger)

	// 4. Background workers under supervision.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewMonitoringWorker(logger, config.MetricInterval, func() map[string]any {
			return map[string]any{"connections": len(registry.AllSinks())}
		}),
		workers.NewBadgerGCWorker(db, logger, config.GCInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 5. HTTP server with graceful shutdown.
	server := &http.Server{
		Addr:              config.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("chat-relay listening", "addr", config.Addr())
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", "error", err)
	}

	supervisor.Stop()
	<-supervisorDone

	return exitOK, nil
}

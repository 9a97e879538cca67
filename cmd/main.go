package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigchat/moderation"
	"gigchat/repositories"
	"gigchat/runtime"
	"gigchat/runtime/workers"
	"gigchat/search"
	"gigchat/services"
	"gigchat/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so that every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Full-text index (Bluge)
	index, err := search.Open(config.BlugeFilepath)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 4. Moderation
	words, err := moderation.LoadWords()
	if err != nil {
		return fmt.Errorf("loading moderation dictionaries failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words.Words, config.ModerationCharReplacement)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 5. Repositories & services
	messageRepository := repositories.NewMessageRepository(db, log)
	agreementRepository := repositories.NewAgreementRepository(db)
	gigRepository := repositories.NewGigRepository(db)
	userRepository := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry)
	broadcaster.Add(search.NewSink(index, log))

	gate := services.NewGate(agreementRepository, gigRepository)
	chatService := services.NewChatService(log, gate,
		messageRepository, agreementRepository, gigRepository,
		registry, broadcaster, &moderator).
		WithIndex(index)
	authService := services.NewAuthService(userRepository, config.TokenDuration)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewTelemetryWorker(log, config.TelemetryInterval),
		workers.NewBadgerGCWorker(db, log, config.GCInterval),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 8. HTTP server
	router := transport.NewRouter(
		transport.NewChatHandler(log, chatService),
		transport.NewSessionHandler(log, chatService, config.ConnectionBufferSize),
		transport.NewAuthHandler(log, authService),
	)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

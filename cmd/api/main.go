package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/freud-of-the-dark/internal/config"
	"github.com/jwebster45206/freud-of-the-dark/internal/events"
	"github.com/jwebster45206/freud-of-the-dark/internal/games"
	"github.com/jwebster45206/freud-of-the-dark/internal/handlers"
	"github.com/jwebster45206/freud-of-the-dark/internal/logger"
	"github.com/jwebster45206/freud-of-the-dark/internal/middleware"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Freud of the Dark API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"snippet_file", cfg.SnippetFile,
		"content_rating", cfg.ContentRating,
		"max_interactions", cfg.MaxInteractions)

	catalog := snippet.LoadOrBuiltin(cfg.SnippetFile, log)
	log.Info("Snippets loaded",
		"source", catalog.Source(),
		"snippets", catalog.Len(),
		"topics", len(catalog.ListTopics()))

	registry := games.NewRegistry(catalog, cfg.RandomSeed, log,
		conversation.WithMaxDeliveries(cfg.MaxInteractions))
	filter := textfilter.New(textfilter.ParseRating(cfg.ContentRating))

	mux := http.NewServeMux()

	// Events are optional; without Redis the API runs with no publisher.
	var broadcaster *events.Broadcaster
	if cfg.EventsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		broadcaster, err = events.NewBroadcaster(ctx, cfg.RedisURL, log)
		cancel()
		if err != nil {
			log.Error("Failed to connect event broadcaster", "error", err)
			os.Exit(1)
		}
		log.Info("Event broadcaster connected")
	}

	// Interfaces stay nil, not typed-nil, when events are disabled.
	var (
		publisher events.Publisher
		pinger    handlers.Pinger
	)
	if broadcaster != nil {
		publisher, pinger = broadcaster, broadcaster
		mux.Handle("/v1/events/games/", handlers.NewEventsHandler(registry, broadcaster, log))
	}

	gameHandler := handlers.NewGameHandler(registry, publisher, filter, log)
	mux.Handle("/health", handlers.NewHealthHandler(catalog, pinger, log))
	mux.Handle("/v1/games", gameHandler)
	mux.Handle("/v1/games/", gameHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Chain(mux, middleware.RequestID(), middleware.Logger(log), middleware.Recover(log)),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream holds its connection open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if broadcaster != nil {
		if err := broadcaster.Close(); err != nil {
			log.Error("Error closing event broadcaster", "error", err)
		}
	}

	log.Info("Server exited", "games", registry.Len())
}

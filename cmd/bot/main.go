package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/statrsq/events-bot/internal/calendar"
	"github.com/statrsq/events-bot/internal/config"
	"github.com/statrsq/events-bot/internal/notifier"
	"github.com/statrsq/events-bot/internal/reconcile"
	"github.com/statrsq/events-bot/internal/storage"
	"github.com/statrsq/events-bot/internal/telegram"
	"github.com/statrsq/events-bot/pkg/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init(true, "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	debug := cfg.Log.Level == "debug"
	if err := logger.Init(debug, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting community events bot")

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	users := storage.NewUserStore(db)
	events := storage.NewEventStore(db)
	participants := storage.NewParticipationStore(db)
	receipts := storage.NewReceiptStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Initialize calendar client
	calClient, err := calendar.NewClient(context.Background(),
		cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Calendar.WindowDays)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize calendar client")
	}

	// Initialize Telegram bot
	handlers := telegram.NewHandlers(users, events, participants, nil)
	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Debug, handlers)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	// Create dispatcher and wire it back into the handlers
	dispatcher := notifier.NewDispatcher(bot.API(), users, participants, receipts, cfg.MessageDelay())
	handlers.SetBroadcaster(dispatcher)

	// Create reconciliation engine
	engine := reconcile.NewEngine(calClient, events, receipts, dispatcher, cfg.SyncInterval())
	engine.Start()

	// Set up HTTP router for health checks
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start Telegram bot
	bot.Start()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the engine first; an in-flight tick is allowed to finish
	engine.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	bot.Stop()

	logger.Info().Msg("Shutdown complete")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestbook-board/internal/arrangement"
	"guestbook-board/internal/config"
	"guestbook-board/internal/domain"
	"guestbook-board/internal/handler"
	"guestbook-board/internal/messaging"
	"guestbook-board/internal/middleware"
	"guestbook-board/internal/observability"
	"guestbook-board/internal/repository/postgres"
	"guestbook-board/internal/service"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	mode := cfg.Mode()
	slog.Info("starting guestbook server",
		slog.String("mode", string(mode)),
		slog.String("environment", cfg.Environment))

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// The board serves 503s until the database answers; schema setup retries on use
	if err := config.Ping(context.Background(), db, 10*time.Second); err != nil {
		slog.Warn("database unreachable at startup", slog.String("error", err.Error()))
	} else {
		slog.Info("connected to postgresql")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		events domain.EventPublisher
		broker handler.Broker
	)
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 30*time.Second)
		rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
		rmqCancel()
		if err != nil {
			slog.Error("board events disabled, rabbitmq unavailable", slog.String("error", err.Error()))
		} else {
			defer rmq.Close()
			events = rmq
			broker = rmq
			slog.Info("publishing board events", slog.String("exchange", messaging.EventsExchange))
		}
	}

	messageRepo := postgres.NewMessageRepository(db)
	engine := arrangement.NewEngine(mode, messageRepo)
	boardService := service.NewBoardService(messageRepo, engine, events)
	messageHandler := handler.NewMessageHandler(boardService)

	go recordPoolStats(ctx, db)

	router := newRouter(routerDeps{
		messages:       messageHandler,
		db:             db,
		broker:         broker,
		allowedOrigins: cfg.AllowedOrigins,
		openAPI:        middleware.DefaultOpenAPIValidatorConfig(cfg.OpenAPIValidation),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("guestbook server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// recordPoolStats samples connection pool statistics into the db gauges
func recordPoolStats(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.RecordDBStats(db.Stats())
		}
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
	"github.com/DSwithSiam/demo-websocket-project/internal/consumer"
	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
	"github.com/DSwithSiam/demo-websocket-project/internal/server"
	"github.com/DSwithSiam/demo-websocket-project/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := server.NewConfigFromEnv()
	setupLogger(cfg.LogLevel)

	messages := openStore(cfg)

	var validator auth.Validator
	if cfg.AuthServiceURL != "" {
		validator = auth.NewHTTPValidator(cfg.AuthServiceURL)
	} else {
		slog.Warn("AUTH_SERVICE_URL not set; all connections resolve to anonymous")
	}

	registry := hub.NewHub()
	policy := server.NewOriginPolicy(cfg.AllowedOrigins)
	wsHandlers := server.NewHandlers(registry, cfg, policy, validator, messages)
	api := server.NewAPI(registry, messages, consumer.NewNotifier(registry), validator)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(wsHandlers, api))

	go func() {
		if err := server.StartServer(httpServer); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	if err := registry.Shutdown(shutdownTimeout); err != nil {
		slog.Error("hub shutdown error", "error", err)
	}
}

func setupLogger(levelName string) {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// openStore connects to Postgres when configured, retrying while the
// database comes up, and falls back to the in-memory store otherwise.
func openStore(cfg *server.Config) store.MessageStore {
	if cfg.DBConnString == "" {
		slog.Warn("DB_HOST not set; using in-memory message store")
		return store.NewMemoryStore()
	}

	var (
		pg  *store.PostgresStore
		err error
	)
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pg, err = store.NewPostgresStore(ctx, cfg.DBConnString)
		cancel()
		if err == nil {
			slog.Info("postgres message store initialized")
			return pg
		}
		slog.Warn("waiting for database to be ready", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	slog.Error("failed to initialize postgres store after retries", "error", err)
	os.Exit(1)
	return nil
}

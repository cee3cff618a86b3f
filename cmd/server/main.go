package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mcoot/sketchrelay/internal/api"
	"github.com/mcoot/sketchrelay/internal/factory"
	"github.com/mcoot/sketchrelay/internal/services/registry"
	redisstorage "github.com/mcoot/sketchrelay/internal/storage/redis"
	"github.com/mcoot/sketchrelay/internal/transport/ws"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, serverConfig, err := configFromEnv()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.Logger = logger

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := factory.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Registry:       app.Registry,
		WebSocket:      app.WebSocket,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})

	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(app.WebSocket.Shutdown)

	if cfg.Registry.IdleRoomTTL > 0 {
		go sweepIdleRooms(ctx, app, cfg.Registry.IdleRoomTTL, logger)
	}

	logger.Info("server starting",
		slog.String("storage", cfg.StorageType),
		slog.Duration("room_idle_ttl", cfg.Registry.IdleRoomTTL))

	// Run blocks until a shutdown signal cancels ctx
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// configFromEnv reads PORT, STORAGE_TYPE, REDIS_URL, ROOM_IDLE_TTL and
// ALLOWED_ORIGINS
func configFromEnv() (factory.Config, api.ServerConfig, error) {
	cfg := factory.Config{StorageType: os.Getenv("STORAGE_TYPE")}
	if cfg.StorageType == "" {
		cfg.StorageType = factory.StorageTypeMemory
	}
	serverConfig := api.DefaultServerConfig()

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return cfg, serverConfig, err
		}
		serverConfig.Port = p
	}

	cfg.Registry = registry.DefaultConfig()
	if ttl := os.Getenv("ROOM_IDLE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return cfg, serverConfig, err
		}
		cfg.Registry.IdleRoomTTL = d
	}

	// Configure Redis if storage type is redis. Empty rooms expire on the
	// same schedule the sweeper uses.
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			return cfg, serverConfig, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		redisCfg.EmptyRoomTTL = cfg.Registry.IdleRoomTTL
		cfg.RedisConfig = &redisCfg
	}

	cfg.WebSocket = ws.DefaultConfig()
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.WebSocket.AllowedOrigins = append(cfg.WebSocket.AllowedOrigins, o)
			}
		}
	}

	return cfg, serverConfig, nil
}

// sweepIdleRooms evicts idle rooms until ctx is cancelled. It checks at a
// quarter of the TTL, so a room lives at most 1.25x the TTL once idle.
func sweepIdleRooms(ctx context.Context, app *factory.App, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(max(ttl/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.Router.SweepIdleRooms(ctx); err != nil {
				logger.Error("idle room sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/sketchrelay/internal/dependencies/clock"
	"github.com/mcoot/sketchrelay/internal/dependencies/random"
	"github.com/mcoot/sketchrelay/internal/services/registry"
	"github.com/mcoot/sketchrelay/internal/services/room"
	"github.com/mcoot/sketchrelay/internal/services/router"
	"github.com/mcoot/sketchrelay/internal/storage"
	"github.com/mcoot/sketchrelay/internal/storage/memory"
	redisstorage "github.com/mcoot/sketchrelay/internal/storage/redis"
	"github.com/mcoot/sketchrelay/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry   *registry.Service
	Machine    *room.Machine
	HubManager *ws.HubManager
	Router     *router.Router
	WebSocket  *ws.Server

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Registry holds room registry settings
	// If zero value, defaults to registry.DefaultConfig()
	Registry registry.Config
	// WebSocket holds transport settings
	// If zero value, defaults to ws.DefaultConfig()
	WebSocket ws.Config
}

// New creates a new application with all dependencies wired. A durable
// store starts with every room's membership cleared, since no connection
// survives a restart.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	var closers []func() error
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	registryCfg := cfg.Registry
	if registryCfg == (registry.Config{}) {
		registryCfg = registry.DefaultConfig()
	}
	wsCfg := cfg.WebSocket
	if wsCfg.SendBufferSize == 0 {
		wsCfg = withTransportDefaults(wsCfg)
	}

	app := newWithDependencies(store, clock.New(), random.New(), registryCfg, wsCfg, logger)
	app.closers = closers

	if storageType == StorageTypeRedis {
		if err := app.Registry.ResetMembership(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("reset room membership: %w", err)
		}
	}

	return app, nil
}

// Close releases storage connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// withTransportDefaults fills unset transport fields, keeping AllowedOrigins
func withTransportDefaults(cfg ws.Config) ws.Config {
	defaults := ws.DefaultConfig()
	defaults.AllowedOrigins = cfg.AllowedOrigins
	return defaults
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, registryCfg registry.Config, wsCfg ws.Config, logger *slog.Logger) *App {
	reg := registry.New(store, clk, rnd, registryCfg, logger)
	machine := room.NewMachine(clk, rnd, logger)
	hubManager := ws.NewHubManager(logger)
	rtr := router.New(reg, machine, hubManager, logger)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Registry:   reg,
		Machine:    machine,
		HubManager: hubManager,
		Router:     rtr,
		WebSocket:  ws.NewServer(rtr, wsCfg, logger),
	}
}

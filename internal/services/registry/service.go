package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/sketchrelay/internal/dependencies/clock"
	"github.com/mcoot/sketchrelay/internal/dependencies/random"
	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes
	RoomCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Config holds registry settings
type Config struct {
	// MaxCodeAttempts bounds collision retries when generating a room code
	MaxCodeAttempts int
	// IdleRoomTTL is how long an empty room survives after its last change.
	// Zero disables eviction.
	IdleRoomTTL time.Duration
}

// DefaultConfig returns the default registry configuration
func DefaultConfig() Config {
	return Config{
		MaxCodeAttempts: 16,
		IdleRoomTTL:     0,
	}
}

// Service owns the set of rooms and the per-room locks guarding them
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[model.RoomID]*sync.Mutex
}

// New creates a new registry Service
func New(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultConfig().MaxCodeAttempts
	}
	return &Service{
		storage: store,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "registry")),
		locks:   make(map[model.RoomID]*sync.Mutex),
	}
}

// CreateRoom allocates a fresh room code and stores an empty room under it
func (s *Service) CreateRoom(ctx context.Context) (*model.Room, error) {
	for attempt := 0; attempt < s.cfg.MaxCodeAttempts; attempt++ {
		id := model.RoomID(s.random.String(RoomCodeLength, RoomCodeAlphabet))
		if id == "" {
			continue
		}

		unlock := s.Lock(id)
		exists, err := s.storage.RoomExists(ctx, id)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("check room code: %w", err)
		}
		if exists {
			unlock()
			s.logger.Debug("room code collision", slog.String("room", string(id)))
			continue
		}

		room := model.NewRoom(id, s.clock.Now())
		err = s.storage.SaveRoom(ctx, room)
		unlock()
		if err != nil {
			return nil, fmt.Errorf("save room: %w", err)
		}

		s.logger.Info("room created", slog.String("room", string(id)))
		return room, nil
	}

	return nil, model.ErrRoomCodeExhausted
}

// RoomExists reports whether a room is registered under the id
func (s *Service) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	return s.storage.RoomExists(ctx, id)
}

// GetRoom returns a copy of the room, or model.ErrRoomNotFound
func (s *Service) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.storage.GetRoom(ctx, id)
}

// SaveRoom persists a room. The caller must hold the room's lock.
func (s *Service) SaveRoom(ctx context.Context, room *model.Room) error {
	return s.storage.SaveRoom(ctx, room)
}

// RoomIDs returns a snapshot of all registered room ids
func (s *Service) RoomIDs(ctx context.Context) ([]model.RoomID, error) {
	return s.storage.ListRoomIDs(ctx)
}

// Lock acquires the exclusive lock for one room and returns its release
// func. Unrelated rooms never contend. Lock entries outlive evicted rooms
// so a waiter and a later caller can never hold different mutexes for the
// same id.
func (s *Service) Lock(id model.RoomID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Update runs fn against a copy of the room under its lock and saves the
// result when fn reports a change
func (s *Service) Update(ctx context.Context, id model.RoomID, fn func(room *model.Room) (bool, error)) error {
	unlock := s.Lock(id)
	defer unlock()

	room, err := s.storage.GetRoom(ctx, id)
	if err != nil {
		return err
	}

	changed, err := fn(room)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.storage.SaveRoom(ctx, room)
}

// EvictIdle deletes empty rooms that have not changed for IdleRoomTTL and
// returns their ids. It does nothing when the TTL is zero.
func (s *Service) EvictIdle(ctx context.Context) ([]model.RoomID, error) {
	if s.cfg.IdleRoomTTL <= 0 {
		return nil, nil
	}

	ids, err := s.storage.ListRoomIDs(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.clock.Now().Add(-s.cfg.IdleRoomTTL)
	var evicted []model.RoomID
	for _, id := range ids {
		removed, err := s.evictIfIdle(ctx, id, cutoff)
		if err != nil {
			return evicted, err
		}
		if removed {
			evicted = append(evicted, id)
		}
	}

	if len(evicted) > 0 {
		s.logger.Info("idle rooms evicted", slog.Int("removed", len(evicted)))
	}
	return evicted, nil
}

func (s *Service) evictIfIdle(ctx context.Context, id model.RoomID, cutoff time.Time) (bool, error) {
	unlock := s.Lock(id)
	defer unlock()

	room, err := s.storage.GetRoom(ctx, id)
	if errors.Is(err, model.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !room.IsEmpty() || room.UpdatedAt.After(cutoff) {
		return false, nil
	}

	if err := s.storage.DeleteRoom(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ResetMembership clears every room's player list. Players are bound to
// live connections, so entries loaded from a durable store are stale.
func (s *Service) ResetMembership(ctx context.Context) error {
	ids, err := s.storage.ListRoomIDs(ctx)
	if err != nil {
		return err
	}

	cleared := 0
	for _, id := range ids {
		err := s.Update(ctx, id, func(room *model.Room) (bool, error) {
			if room.IsEmpty() {
				return false, nil
			}
			room.Players = []model.Player{}
			cleared++
			return true, nil
		})
		if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			return err
		}
	}

	if cleared > 0 {
		s.logger.Info("stale room membership cleared", slog.Int("rooms", cleared))
	}
	return nil
}

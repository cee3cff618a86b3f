package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/protocol"
)

// Sink queues encoded frames for one connection. Send must not block and
// reports false when the frame was dropped.
type Sink interface {
	Send(data []byte) bool
}

// Session is the server's view of one live transport connection
type Session struct {
	id     model.ConnectionID
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[model.RoomID]struct{}
}

// New creates a session for a freshly accepted connection
func New(id model.ConnectionID, sink Sink, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		sink:   sink,
		logger: logger.With(slog.String("connection_id", string(id))),
		rooms:  make(map[model.RoomID]struct{}),
	}
}

// ID returns the connection id
func (s *Session) ID() model.ConnectionID {
	return s.id
}

// Logger returns a logger tagged with the connection id
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Send encodes an event and queues it for this connection only
func (s *Session) Send(event model.EventType, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	s.SendRaw(data)
	return nil
}

// SendRaw queues an already encoded frame
func (s *Session) SendRaw(data []byte) bool {
	if s.sink.Send(data) {
		return true
	}
	// The sink refuses frames when its buffer is full or the connection is closing
	s.logger.Warn("message dropped", slog.Int("bytes", len(data)))
	return false
}

// Track records that the connection joined a room
func (s *Session) Track(id model.RoomID) {
	s.mu.Lock()
	s.rooms[id] = struct{}{}
	s.mu.Unlock()
}

// Forget removes a room from the joined set
func (s *Session) Forget(id model.RoomID) {
	s.mu.Lock()
	delete(s.rooms, id)
	s.mu.Unlock()
}

// Rooms returns the joined rooms in sorted order
func (s *Session) Rooms() []model.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.RoomID, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

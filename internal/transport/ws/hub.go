package ws

import (
	"log/slog"
	"sync"

	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/session"
)

// Hub is the broadcast group for a single room
type Hub struct {
	roomID   model.RoomID
	sessions map[*session.Session]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:   roomID,
		sessions: make(map[*session.Session]struct{}),
		logger:   logger.With(slog.String("room", string(roomID))),
	}
}

// Register adds a session to the hub
func (h *Hub) Register(sess *session.Session) {
	h.mu.Lock()
	h.sessions[sess] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()
	h.logger.Debug("ws client registered",
		slog.String("connection_id", string(sess.ID())),
		slog.Int("total_clients", count))
}

// Unregister removes a session and reports whether it was present
func (h *Hub) Unregister(sess *session.Session) bool {
	h.mu.Lock()
	_, ok := h.sessions[sess]
	delete(h.sessions, sess)
	count := len(h.sessions)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("ws client unregistered",
			slog.String("connection_id", string(sess.ID())),
			slog.Int("total_clients", count))
	}
	return ok
}

// Broadcast queues a frame for every session except the one with the given
// connection id. Pass an empty id to include everyone. Delivery runs against
// a single snapshot of the group and never blocks on a slow connection.
func (h *Hub) Broadcast(data []byte, except model.ConnectionID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent, dropped := 0, 0
	for sess := range h.sessions {
		if except != "" && sess.ID() == except {
			continue
		}
		if sess.SendRaw(data) {
			sent++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("ws broadcast partial failure",
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// ClientCount returns the number of subscribed sessions
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HubManager manages hubs for all rooms
type HubManager struct {
	hubs   map[model.RoomID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomID]*Hub),
		logger: logger.With(slog.String("component", "ws")),
	}
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// Subscribe adds a session to a room's broadcast group
func (m *HubManager) Subscribe(roomID model.RoomID, sess *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[roomID]
	if !ok {
		hub = NewHub(roomID, m.logger)
		m.hubs[roomID] = hub
	}
	hub.Register(sess)
}

// Unsubscribe removes a session from a room's broadcast group. An emptied
// group is dropped.
func (m *HubManager) Unsubscribe(roomID model.RoomID, sess *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[roomID]
	if !ok {
		return
	}
	hub.Unregister(sess)
	if hub.ClientCount() == 0 {
		delete(m.hubs, roomID)
	}
}

// Broadcast sends a frame to a room's group, skipping except when set
func (m *HubManager) Broadcast(roomID model.RoomID, data []byte, except model.ConnectionID) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Broadcast(data, except)
	}
}

// RemoveHub drops a room's group
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hubs[roomID]; ok {
		delete(m.hubs, roomID)
		m.logger.Info("ws hub removed", slog.String("room", string(roomID)))
	}
}

// HubCount returns the number of live hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

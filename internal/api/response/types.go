package response

import (
	"time"

	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/protocol"
)

// CreateRoomResponse is the response for creating a room
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomExistsResponse is the response for checking a room code
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// Room represents a room in API responses. The current word is never
// exposed.
type Room struct {
	RoomID    string            `json:"roomId"`
	Players   []protocol.Player `json:"players"`
	CreatedAt time.Time         `json:"createdAt"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	return Room{
		RoomID:    string(r.ID),
		Players:   protocol.PlayersFromModel(r.Players),
		CreatedAt: r.CreatedAt,
	}
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status string `json:"status"`
}

package storage

import (
	"context"

	"github.com/mcoot/sketchrelay/internal/model"
)

// Storage defines the interface for room persistence.
//
// Implementations hand out copies: mutating a room returned by GetRoom has
// no effect until it is passed back to SaveRoom.
type Storage interface {
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)
	ListRoomIDs(ctx context.Context) ([]model.RoomID, error)
}

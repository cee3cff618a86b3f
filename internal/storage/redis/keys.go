package redis

import (
	"fmt"

	"github.com/mcoot/sketchrelay/internal/model"
)

// Key prefix for all relay data
const keyPrefix = "sketch"

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomIndexKey returns the Redis key for the SET of known room ids
func roomIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

package model

import "time"

// RoomID is the short code clients use to reference a room
type RoomID string

// Room is an isolated game session
type Room struct {
	ID          RoomID
	Players     []Player // Join order
	CurrentWord string   // Empty until the first word is selected
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRoom creates an empty room
func NewRoom(id RoomID, now time.Time) *Room {
	return &Room{
		ID:        id,
		Players:   []Player{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	return &c
}

// PlayerByName returns the player with the given name, or nil if absent
func (r *Room) PlayerByName(name string) *Player {
	for i := range r.Players {
		if r.Players[i].Name == name {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByConnection returns the first player owned by the connection, or nil
func (r *Room) PlayerByConnection(id ConnectionID) *Player {
	for i := range r.Players {
		if r.Players[i].ConnectionID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// Drawer returns the current drawer, or nil if none is assigned
func (r *Room) Drawer() *Player {
	for i := range r.Players {
		if r.Players[i].IsDrawer {
			return &r.Players[i]
		}
	}
	return nil
}

// RemoveConnection drops every player owned by the connection and
// reports how many were removed
func (r *Room) RemoveConnection(id ConnectionID) int {
	kept := r.Players[:0]
	removed := 0
	for _, p := range r.Players {
		if p.ConnectionID == id {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	r.Players = kept
	return removed
}

// IsEmpty returns true if the room has no players
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

package model

// ConnectionID identifies one transport connection. A reconnecting client
// always gets a new one.
type ConnectionID string

// Player is a room member bound to the connection that joined it
type Player struct {
	ConnectionID ConnectionID
	Name         string // Unique within a room, case-sensitive
	IsDrawer     bool
}

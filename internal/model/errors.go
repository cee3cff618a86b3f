package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomCodeExhausted   = errors.New("could not allocate an unused room code")
	ErrPlayerAlreadyExists = errors.New("player already exists")

	// Protocol errors
	ErrInvalidMessage = errors.New("invalid message")
)

package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/sketchrelay/internal/model"
)

// Inbound is a decoded and validated client event
type Inbound interface {
	// Room is the room the event targets
	Room() model.RoomID
	validate() error
}

// JoinRoom asks to add a named player to a room
type JoinRoom struct {
	RoomID     model.RoomID `json:"roomId"`
	PlayerName string       `json:"playerName"`
}

// LeaveRoom removes the sender's players from a room
type LeaveRoom struct {
	RoomID model.RoomID `json:"roomId"`
}

// StartGame picks a new drawer
type StartGame struct {
	RoomID model.RoomID `json:"roomId"`
}

// DrawIncremental carries opaque stroke data for the other room members
type DrawIncremental struct {
	RoomID      model.RoomID    `json:"roomId"`
	DrawingData json.RawMessage `json:"drawingData"`
}

// ClearCanvas tells the other room members to wipe their canvas
type ClearCanvas struct {
	RoomID model.RoomID `json:"roomId"`
}

// Comment is a chat line attributed to SocketID
type Comment struct {
	RoomID   model.RoomID       `json:"roomId"`
	SocketID model.ConnectionID `json:"socketId"`
	Comment  string             `json:"comment"`
}

// WordSelected sets the word for the current round
type WordSelected struct {
	RoomID model.RoomID `json:"roomId"`
	Word   string       `json:"word"`
}

// RoundOver announces the winner identified by SocketID
type RoundOver struct {
	RoomID   model.RoomID       `json:"roomId"`
	SocketID model.ConnectionID `json:"socketId"`
}

func (m JoinRoom) Room() model.RoomID { return m.RoomID }
func (m LeaveRoom) Room() model.RoomID { return m.RoomID }
func (m StartGame) Room() model.RoomID { return m.RoomID }
func (m DrawIncremental) Room() model.RoomID { return m.RoomID }
func (m ClearCanvas) Room() model.RoomID { return m.RoomID }
func (m Comment) Room() model.RoomID { return m.RoomID }
func (m WordSelected) Room() model.RoomID { return m.RoomID }
func (m RoundOver) Room() model.RoomID { return m.RoomID }

func (m JoinRoom) validate() error {
	if err := requireRoom(m.RoomID); err != nil {
		return err
	}
	if m.PlayerName == "" {
		return fmt.Errorf("%w: playerName is required", model.ErrInvalidMessage)
	}
	return nil
}

func (m LeaveRoom) validate() error { return requireRoom(m.RoomID) }
func (m StartGame) validate() error { return requireRoom(m.RoomID) }

// drawingData is opaque; null or absent data is relayed as null
func (m DrawIncremental) validate() error { return requireRoom(m.RoomID) }

func (m ClearCanvas) validate() error { return requireRoom(m.RoomID) }
func (m Comment) validate() error { return requireRoom(m.RoomID) }
func (m WordSelected) validate() error { return requireRoom(m.RoomID) }
func (m RoundOver) validate() error { return requireRoom(m.RoomID) }

func requireRoom(id model.RoomID) error {
	if id == "" {
		return fmt.Errorf("%w: roomId is required", model.ErrInvalidMessage)
	}
	return nil
}

// Decode parses one inbound frame into its typed event. Errors wrap
// model.ErrInvalidMessage.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidMessage, err)
	}

	var msg Inbound
	switch env.Event {
	case model.EventJoinRoom:
		msg = &JoinRoom{}
	case model.EventLeaveRoom:
		msg = &LeaveRoom{}
	case model.EventStartGame:
		msg = &StartGame{}
	case model.EventDrawIncremental:
		msg = &DrawIncremental{}
	case model.EventClearCanvas:
		msg = &ClearCanvas{}
	case model.EventComment:
		msg = &Comment{}
	case model.EventWordSelected:
		msg = &WordSelected{}
	case model.EventRoundOver:
		msg = &RoundOver{}
	default:
		return nil, fmt.Errorf("%w: unknown event %q", model.ErrInvalidMessage, env.Event)
	}

	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no data", model.ErrInvalidMessage, env.Event)
	}
	if err := json.Unmarshal(env.Data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrInvalidMessage, env.Event, err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}

	return deref(msg), nil
}

// deref returns the value form so callers can type-switch on plain structs
func deref(msg Inbound) Inbound {
	switch m := msg.(type) {
	case *JoinRoom:
		return *m
	case *LeaveRoom:
		return *m
	case *StartGame:
		return *m
	case *DrawIncremental:
		return *m
	case *ClearCanvas:
		return *m
	case *Comment:
		return *m
	case *WordSelected:
		return *m
	case *RoundOver:
		return *m
	}
	return msg
}

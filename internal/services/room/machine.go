package room

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/sketchrelay/internal/dependencies/clock"
	"github.com/mcoot/sketchrelay/internal/dependencies/random"
	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/protocol"
)

// Audience selects which connections receive a message
type Audience int

const (
	// AudienceRoom is every subscriber of the room, sender included
	AudienceRoom Audience = iota
	// AudienceOthers is every subscriber of the room except the sender
	AudienceOthers
	// AudienceSender is only the connection that sent the event
	AudienceSender
)

// Message is one outbound event produced by a transition
type Message struct {
	Audience Audience
	Event    model.EventType
	Payload  any
}

// Result describes the effects of a transition. The machine never touches
// the transport; callers apply Result after persisting the room.
type Result struct {
	Messages []Message
	// Changed is true when the room must be saved
	Changed bool
	// Subscribe adds the sender to the room's broadcast group
	Subscribe bool
	// Unsubscribe removes the sender from the room's broadcast group
	Unsubscribe bool
}

func (r *Result) add(audience Audience, event model.EventType, payload any) {
	r.Messages = append(r.Messages, Message{Audience: audience, Event: event, Payload: payload})
}

// Machine applies game events to a room. It holds no room state itself;
// every method mutates the room it is given, which the caller owns under
// the room's lock.
type Machine struct {
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
}

// NewMachine creates a new room state machine
func NewMachine(clock clock.Clock, random random.Random, logger *slog.Logger) *Machine {
	return &Machine{
		clock:  clock,
		random: random,
		logger: logger.With(slog.String("component", "room")),
	}
}

// Join adds a named player owned by conn. Names are unique per room.
func (m *Machine) Join(room *model.Room, name string, conn model.ConnectionID) (Result, error) {
	if room.PlayerByName(name) != nil {
		return Result{}, model.ErrPlayerAlreadyExists
	}

	room.Players = append(room.Players, model.Player{
		ConnectionID: conn,
		Name:         name,
		IsDrawer:     false,
	})
	m.touch(room)

	m.logger.Info("player joined",
		slog.String("room", string(room.ID)),
		slog.String("connection_id", string(conn)),
		slog.Int("players", len(room.Players)))

	res := Result{Changed: true, Subscribe: true}
	res.add(AudienceRoom, model.EventUpdatePlayers, protocol.PlayersFromModel(room.Players))
	return res, nil
}

// StartGame clears every drawer flag and then picks one player uniformly at
// random as the new drawer. An empty room gets no drawer.
func (m *Machine) StartGame(room *model.Room) Result {
	for i := range room.Players {
		room.Players[i].IsDrawer = false
	}

	var drawer *model.Player
	if len(room.Players) > 0 {
		drawer = &room.Players[m.random.Intn(len(room.Players))]
		drawer.IsDrawer = true
	}
	m.touch(room)

	if drawer != nil {
		m.logger.Info("game started",
			slog.String("room", string(room.ID)),
			slog.String("drawer", string(drawer.ConnectionID)))
	} else {
		m.logger.Info("game started without players", slog.String("room", string(room.ID)))
	}

	res := Result{Changed: true}
	res.add(AudienceRoom, model.EventStartGame, protocol.OptionalPlayer(drawer))
	res.add(AudienceRoom, model.EventUpdatePlayers, protocol.PlayersFromModel(room.Players))
	return res
}

// SelectWord records the round's word and announces it to the whole room
func (m *Machine) SelectWord(room *model.Room, word string) Result {
	room.CurrentWord = word
	m.touch(room)

	res := Result{Changed: true}
	res.add(AudienceRoom, model.EventWordSelected, word)
	return res
}

// RoundOver announces the winner, or null when the winner is not in the room
func (m *Machine) RoundOver(room *model.Room, winner model.ConnectionID) Result {
	var res Result
	res.add(AudienceRoom, model.EventRoundOver, protocol.OptionalPlayer(room.PlayerByConnection(winner)))
	return res
}

// Leave removes every player owned by conn. Only a room that actually lost
// a player broadcasts the new list.
func (m *Machine) Leave(room *model.Room, conn model.ConnectionID) Result {
	res := Result{Unsubscribe: true}
	if room.RemoveConnection(conn) == 0 {
		return res
	}
	m.touch(room)

	m.logger.Info("player left",
		slog.String("room", string(room.ID)),
		slog.String("connection_id", string(conn)),
		slog.Int("players", len(room.Players)))

	res.Changed = true
	res.add(AudienceRoom, model.EventUpdatePlayers, protocol.PlayersFromModel(room.Players))
	return res
}

// Draw relays stroke data to everyone but the sender
func (m *Machine) Draw(room *model.Room, data json.RawMessage) Result {
	var res Result
	res.add(AudienceOthers, model.EventDrawIncremental, data)
	return res
}

// ClearCanvas relays a clear signal to everyone but the sender
func (m *Machine) ClearCanvas(room *model.Room) Result {
	var res Result
	res.add(AudienceOthers, model.EventClearCanvas, nil)
	return res
}

// Comment broadcasts a chat line. An unknown author is sent as null.
func (m *Machine) Comment(room *model.Room, author model.ConnectionID, text string) Result {
	var res Result
	res.add(AudienceRoom, model.EventComment, protocol.CommentPayload{
		Author:  protocol.OptionalPlayer(room.PlayerByConnection(author)),
		Comment: text,
	})
	return res
}

func (m *Machine) touch(room *model.Room) {
	room.UpdatedAt = m.clock.Now()
}

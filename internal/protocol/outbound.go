package protocol

import (
	"encoding/json"

	"github.com/mcoot/sketchrelay/internal/model"
)

// Envelope is the frame format in both directions
type Envelope struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Player is the wire form of a room member
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsDrawer bool   `json:"isDrawer"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:       string(p.ConnectionID),
		Name:     p.Name,
		IsDrawer: p.IsDrawer,
	}
}

// OptionalPlayer converts a possibly absent player; nil encodes as JSON null
func OptionalPlayer(p *model.Player) *Player {
	if p == nil {
		return nil
	}
	v := PlayerFromModel(*p)
	return &v
}

// PlayersFromModel converts a player list. The result is never nil so an
// empty room encodes as [].
func PlayersFromModel(players []model.Player) []Player {
	result := make([]Player, len(players))
	for i, p := range players {
		result[i] = PlayerFromModel(p)
	}
	return result
}

// ConnectedPayload greets a new connection with its id
type ConnectedPayload struct {
	SocketID string `json:"socketId"`
}

// CommentPayload is a chat line; Author is null when the sender is unknown
type CommentPayload struct {
	Author  *Player `json:"author"`
	Comment string  `json:"comment"`
}

// Encode builds an outbound frame. A nil payload omits the data field.
func Encode(event model.EventType, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

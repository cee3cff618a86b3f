package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/protocol"
	"github.com/mcoot/sketchrelay/internal/services/registry"
	"github.com/mcoot/sketchrelay/internal/services/room"
	"github.com/mcoot/sketchrelay/internal/session"
)

// Error texts sent to clients in error_message events
const (
	MsgRoomNotFound  = "Room not found."
	MsgPlayerExists  = "Player already exists."
	MsgInvalid       = "Invalid message."
	MsgInternalError = "Internal error."
)

// Broadcaster maintains per-room broadcast groups
type Broadcaster interface {
	Subscribe(roomID model.RoomID, sess *session.Session)
	Unsubscribe(roomID model.RoomID, sess *session.Session)
	Broadcast(roomID model.RoomID, data []byte, except model.ConnectionID)
	RemoveHub(roomID model.RoomID)
}

// Router turns inbound frames into room transitions and fans the results
// out to connections
type Router struct {
	registry *registry.Service
	machine  *room.Machine
	hubs     Broadcaster
	logger   *slog.Logger
}

// New creates a new Router
func New(reg *registry.Service, machine *room.Machine, hubs Broadcaster, logger *slog.Logger) *Router {
	return &Router{
		registry: reg,
		machine:  machine,
		hubs:     hubs,
		logger:   logger.With(slog.String("component", "router")),
	}
}

// Connect greets a new connection with its id
func (r *Router) Connect(sess *session.Session) {
	r.logger.Debug("connection opened", slog.String("connection_id", string(sess.ID())))
	if err := sess.Send(model.EventConnected, protocol.ConnectedPayload{SocketID: string(sess.ID())}); err != nil {
		r.logger.Error("failed to greet connection", slog.Any("error", err))
	}
}

// Dispatch handles one inbound frame from sess. Failures are reported to
// the sender only.
func (r *Router) Dispatch(ctx context.Context, sess *session.Session, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		sess.Logger().Debug("rejected inbound frame", slog.Any("error", err))
		r.sendError(sess, err)
		return
	}

	err = r.apply(ctx, sess, msg.Room(), func(rm *model.Room) (room.Result, error) {
		switch m := msg.(type) {
		case protocol.JoinRoom:
			return r.machine.Join(rm, m.PlayerName, sess.ID())
		case protocol.LeaveRoom:
			return r.machine.Leave(rm, sess.ID()), nil
		case protocol.StartGame:
			return r.machine.StartGame(rm), nil
		case protocol.DrawIncremental:
			return r.machine.Draw(rm, m.DrawingData), nil
		case protocol.ClearCanvas:
			return r.machine.ClearCanvas(rm), nil
		case protocol.Comment:
			return r.machine.Comment(rm, m.SocketID, m.Comment), nil
		case protocol.WordSelected:
			return r.machine.SelectWord(rm, m.Word), nil
		case protocol.RoundOver:
			return r.machine.RoundOver(rm, m.SocketID), nil
		}
		return room.Result{}, model.ErrInvalidMessage
	})
	if err != nil {
		r.sendError(sess, err)
	}
}

// Disconnect drops sess from every broadcast group and removes its players
// from every room. Only rooms that lost a player broadcast.
func (r *Router) Disconnect(ctx context.Context, sess *session.Session) {
	joined := sess.Rooms()
	for _, id := range joined {
		r.hubs.Unsubscribe(id, sess)
		sess.Forget(id)
	}

	ids, err := r.registry.RoomIDs(ctx)
	if err != nil {
		sess.Logger().Error("failed to list rooms for disconnect", slog.Any("error", err))
		return
	}

	affected := 0
	for _, id := range ids {
		err := r.apply(ctx, sess, id, func(rm *model.Room) (room.Result, error) {
			res := r.machine.Leave(rm, sess.ID())
			if res.Changed {
				affected++
			}
			return res, nil
		})
		if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			sess.Logger().Error("failed to remove player on disconnect",
				slog.String("room", string(id)),
				slog.Any("error", err))
		}
	}

	sess.Logger().Info("connection closed",
		slog.Int("rooms_joined", len(joined)),
		slog.Int("rooms_left", affected))
}

// SweepIdleRooms evicts idle rooms and drops their broadcast groups
func (r *Router) SweepIdleRooms(ctx context.Context) ([]model.RoomID, error) {
	evicted, err := r.registry.EvictIdle(ctx)
	for _, id := range evicted {
		r.hubs.RemoveHub(id)
	}
	return evicted, err
}

// apply runs fn against the room under its lock, persists the result and
// delivers its messages before the lock is released
func (r *Router) apply(ctx context.Context, sess *session.Session, id model.RoomID, fn func(*model.Room) (room.Result, error)) error {
	unlock := r.registry.Lock(id)
	defer unlock()

	rm, err := r.registry.GetRoom(ctx, id)
	if err != nil {
		return err
	}

	res, err := fn(rm)
	if err != nil {
		return err
	}

	if res.Changed {
		if err := r.registry.SaveRoom(ctx, rm); err != nil {
			return err
		}
	}
	if res.Subscribe {
		r.hubs.Subscribe(id, sess)
		sess.Track(id)
	}
	if res.Unsubscribe {
		r.hubs.Unsubscribe(id, sess)
		sess.Forget(id)
	}

	r.deliver(sess, id, res.Messages)
	return nil
}

func (r *Router) deliver(sess *session.Session, id model.RoomID, messages []room.Message) {
	for _, msg := range messages {
		data, err := protocol.Encode(msg.Event, msg.Payload)
		if err != nil {
			r.logger.Error("failed to encode outbound event",
				slog.String("room", string(id)),
				slog.String("event", string(msg.Event)),
				slog.Any("error", err))
			continue
		}

		switch msg.Audience {
		case room.AudienceRoom:
			r.hubs.Broadcast(id, data, "")
		case room.AudienceOthers:
			r.hubs.Broadcast(id, data, sess.ID())
		case room.AudienceSender:
			sess.SendRaw(data)
		}
	}
}

func (r *Router) sendError(sess *session.Session, err error) {
	text := errorText(err)
	if text == MsgInternalError {
		sess.Logger().Error("event failed", slog.Any("error", err))
	}
	if sendErr := sess.Send(model.EventErrorMessage, text); sendErr != nil {
		sess.Logger().Error("failed to send error", slog.Any("error", sendErr))
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return MsgRoomNotFound
	case errors.Is(err, model.ErrPlayerAlreadyExists):
		return MsgPlayerExists
	case errors.Is(err, model.ErrInvalidMessage):
		return MsgInvalid
	default:
		return MsgInternalError
	}
}

package model

// EventType names a message on the realtime channel
type EventType string

// Inbound events sent by game clients
const (
	EventJoinRoom        EventType = "join_room"
	EventLeaveRoom       EventType = "leave_room"
	EventStartGame       EventType = "start_game"
	EventDrawIncremental EventType = "draw_incremental"
	EventClearCanvas     EventType = "clear_canvas"
	EventComment         EventType = "comment"
	EventWordSelected    EventType = "word_selected"
	EventRoundOver       EventType = "round_over"
)

// Outbound-only events. start_game, draw_incremental, clear_canvas,
// comment, word_selected and round_over reuse the inbound names.
const (
	EventConnected     EventType = "connected"
	EventErrorMessage  EventType = "error_message"
	EventUpdatePlayers EventType = "update_players"
)

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case CreateRoomResult:
		fmt.Fprintf(o.w, "Room created: %s\n", v.RoomID)
	case ExistsResult:
		o.printExists(v)
	case Room:
		o.printRoom(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches the wire format)
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsDrawer bool   `json:"isDrawer"`
}

// CreateRoomResult response type
type CreateRoomResult struct {
	RoomID string `json:"roomId"`
}

// ExistsResult response type, annotated with the room that was checked
type ExistsResult struct {
	RoomID string `json:"roomId"`
	Exists bool   `json:"exists"`
}

// Room response type
type Room struct {
	RoomID    string    `json:"roomId"`
	Players   []Player  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printExists(e ExistsResult) {
	if e.Exists {
		fmt.Fprintf(o.w, "Room %s exists\n", e.RoomID)
	} else {
		fmt.Fprintf(o.w, "Room %s does not exist\n", e.RoomID)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.RoomID)
	fmt.Fprintf(o.w, "Created: %s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		drawerStr := ""
		if p.IsDrawer {
			drawerStr = " [drawer]"
		}
		fmt.Fprintf(o.w, "  - %s (%s)%s\n", p.Name, p.ID, drawerStr)
	}
}

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var opts streamOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream realtime events from the server",
		Long: `Open the websocket channel and print every event the server sends.

With --room and --name the connection joins that room as a player. With
--chat every line read from stdin is sent to the room as a comment.

Events include:
  - connected: The server assigned this connection its socket id
  - update_players: A room's player list changed
  - start_game: A new drawer was picked
  - word_selected: The round's word was chosen
  - draw_incremental / clear_canvas: Canvas updates from another player
  - comment: A chat line
  - round_over: The round ended
  - error_message: A request from this connection failed

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Chat && (opts.RoomID == "" || opts.Name == "") {
				return errors.New("--chat requires --room and --name")
			}
			wsURL, err := cfg.WebSocketURL()
			if err != nil {
				return err
			}
			if opts.Chat {
				opts.Input = cmd.InOrStdin()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), wsURL, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RoomID, "room", "", "Room to join")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Player name to join with")
	cmd.Flags().BoolVar(&opts.Chat, "chat", false, "Send stdin lines as comments")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output events as JSON lines")

	return cmd
}

type streamOptions struct {
	RoomID string
	Name   string
	Chat   bool
	JSON   bool
	Input  io.Reader
}

// StreamEvent is one printed event
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// eventStream serializes writes on one websocket connection
type eventStream struct {
	conn *websocket.Conn
	out  io.Writer
	opts streamOptions

	mu       sync.Mutex
	socketID string

	outMu sync.Mutex
}

func streamEvents(ctx context.Context, out io.Writer, wsURL string, opts streamOptions) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s := &eventStream{conn: conn, out: out, opts: opts}

	done := make(chan error, 1)
	go func() { done <- s.readLoop() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.mu.Unlock()
		if !opts.JSON {
			s.outMu.Lock()
			fmt.Fprintln(out, "Disconnected")
			s.outMu.Unlock()
		}
		return nil
	}
}

func (s *eventStream) readLoop() error {
	for {
		var env envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		s.print(env)

		if env.Event == "connected" {
			if err := s.onConnected(env.Data); err != nil {
				return err
			}
		}
	}
}

func (s *eventStream) onConnected(data json.RawMessage) error {
	var greeting struct {
		SocketID string `json:"socketId"`
	}
	if err := json.Unmarshal(data, &greeting); err != nil {
		return fmt.Errorf("invalid greeting: %w", err)
	}

	s.mu.Lock()
	s.socketID = greeting.SocketID
	s.mu.Unlock()

	if s.opts.RoomID == "" || s.opts.Name == "" {
		return nil
	}
	if err := s.send("join_room", map[string]string{"roomId": s.opts.RoomID, "playerName": s.opts.Name}); err != nil {
		return err
	}
	if s.opts.Chat && s.opts.Input != nil {
		go s.chatLoop()
	}
	return nil
}

func (s *eventStream) chatLoop() {
	scanner := bufio.NewScanner(s.opts.Input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.mu.Lock()
		socketID := s.socketID
		s.mu.Unlock()
		err := s.send("comment", map[string]string{
			"roomId":   s.opts.RoomID,
			"socketId": socketID,
			"comment":  line,
		})
		if err != nil {
			return
		}
	}
}

func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(envelope{Event: event, Data: payload})
}

func (s *eventStream) print(env envelope) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	now := time.Now()

	if s.opts.JSON {
		jsonData, _ := json.Marshal(StreamEvent{Time: now, Event: env.Event, Data: env.Data})
		fmt.Fprintln(s.out, string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(env.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Fprintf(s.out, "[%s] %s: %s\n", timestamp, env.Event, displayData)
}

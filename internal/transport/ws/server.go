package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/session"
)

// ThrottledMessage is sent to a connection whose frames exceed the rate limit
const ThrottledMessage = "Too many messages."

// Handler receives the lifecycle of every connection
type Handler interface {
	Connect(sess *session.Session)
	Dispatch(ctx context.Context, sess *session.Session, raw []byte)
	Disconnect(ctx context.Context, sess *session.Session)
}

// Server upgrades HTTP requests to websocket connections and pumps frames
// between them and a Handler
type Server struct {
	handler  Handler
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewServer creates a new websocket Server
func NewServer(handler Handler, cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[*Client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.originAllowed(r.Header.Get("Origin"))
		},
	}
	return s
}

// ServeHTTP runs one connection to completion
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Warn("ws upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		return
	}

	id := model.ConnectionID(uuid.NewString())
	logger := s.logger.With(slog.String("connection_id", string(id)))
	client := newClient(conn, s.cfg, logger)
	sess := session.New(id, client, s.logger)

	s.track(client)
	defer s.untrack(client)

	start := time.Now()
	logger.Info("ws client connected", slog.String("remote_addr", r.RemoteAddr))
	go client.writePump()

	ctx := r.Context()
	s.handler.Connect(sess)
	client.readPump(
		func(raw []byte) { s.handler.Dispatch(ctx, sess, raw) },
		func() {
			logger.Warn("ws frame throttled")
			_ = sess.Send(model.EventErrorMessage, ThrottledMessage)
		},
	)

	s.handler.Disconnect(context.WithoutCancel(ctx), sess)
	client.close()
	logger.Info("ws client disconnected", slog.Duration("connection_duration", time.Since(start)))
}

// Shutdown closes every live connection. Each connection's read pump then
// fails and runs the normal disconnect path.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		_ = client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.cfg.WriteWait))
		_ = client.conn.Close()
	}
	s.logger.Info("ws connections closed", slog.Int("count", len(s.clients)))
}

// ConnectionCount returns the number of live connections
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) track(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.InboundRate <= 0 {
		return nil
	}
	return rate.NewLimiter(cfg.InboundRate, cfg.InboundBurst)
}

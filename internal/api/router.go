package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mcoot/sketchrelay/internal/api/handler"
	"github.com/mcoot/sketchrelay/internal/api/middleware"
	"github.com/mcoot/sketchrelay/internal/api/response"
	basemiddleware "github.com/mcoot/sketchrelay/internal/middleware"
	"github.com/mcoot/sketchrelay/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *registry.Service
	// WebSocket serves the realtime channel on /ws. Nil leaves it unrouted.
	WebSocket http.Handler
	// AllowedOrigins lists origins granted cross-origin access. Empty or
	// "*" grants every origin.
	AllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Registry, cfg.Logger)

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(basemiddleware.Logging(cfg.Logger))
	r.Use(handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	))

	r.HandleFunc("/", onlineHandler).Methods(http.MethodGet)
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	// Endpoints used by the game client
	r.HandleFunc("/api/create-room", roomHandler.Create).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/room-exists", roomHandler.Exists).Methods(http.MethodPost, http.MethodOptions)

	// Operator endpoints
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	v1.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods(http.MethodGet)

	return r
}

func onlineHandler(w http.ResponseWriter, _ *http.Request) {
	response.Text(w, http.StatusOK, "Server is online")
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}

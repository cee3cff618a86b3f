package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/sketchrelay/internal/api/request"
	"github.com/mcoot/sketchrelay/internal/api/response"
	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/services/registry"
)

// RoomHandler handles room lookup and creation endpoints
type RoomHandler struct {
	registry *registry.Service
	logger   *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(reg *registry.Service, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		registry: reg,
		logger:   logger.With(slog.String("component", "room-handler")),
	}
}

// Create handles POST /api/create-room
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.CreateRoom(r.Context())
	if err != nil {
		h.logger.Error("failed to create room", slog.Any("error", err))
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateRoomResponse{RoomID: string(room.ID)})
}

// Exists handles POST /api/room-exists
func (h *RoomHandler) Exists(w http.ResponseWriter, r *http.Request) {
	var req request.RoomExistsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	exists := false
	if req.RoomID != "" {
		var err error
		exists, err = h.registry.RoomExists(r.Context(), model.RoomID(req.RoomID))
		if err != nil {
			h.logger.Error("failed to look up room", slog.Any("error", err))
			WriteError(w, err)
			return
		}
	}

	response.JSON(w, http.StatusOK, response.RoomExistsResponse{Exists: exists})
}

// Get handles GET /api/v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["roomId"])

	room, err := h.registry.GetRoom(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

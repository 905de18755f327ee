package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/observer/sfu-core/internal/room"
)

// RoomHandler serves the room-management routes over the shared
// Registry: list, create by id, delete.
type RoomHandler struct {
	registry *room.Registry
}

// NewRoomHandler constructs a RoomHandler over registry.
func NewRoomHandler(registry *room.Registry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

type roomSummary struct {
	ID              string   `json:"id"`
	UserIDs         []string `json:"user_ids"`
	AvailableTracks int      `json:"available_track_count"`
}

// List handles GET /rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.List()
	summaries := make([]roomSummary, 0, len(ids))
	for _, id := range ids {
		rm, ok := h.registry.Get(id)
		if !ok {
			continue
		}
		summaries = append(summaries, roomSummary{
			ID:              id,
			UserIDs:         rm.GetUserIDs(),
			AvailableTracks: len(rm.GetAvailableTracks()),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get handles GET /rooms/{id}.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rm, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "RoomNotFound", "no such room: "+id)
		return
	}
	writeJSON(w, http.StatusOK, roomSummary{
		ID:              id,
		UserIDs:         rm.GetUserIDs(),
		AvailableTracks: len(rm.GetAvailableTracks()),
	})
}

// Create handles POST /rooms/{id}, replying 409 on conflict.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "InvalidRoomID", "room id must not be empty")
		return
	}

	if _, err := h.registry.Create(id); err != nil {
		if errors.Is(err, room.ErrRoomExists) {
			writeError(w, http.StatusConflict, "RoomExists", "room already exists: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "InternalError", "")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Delete handles DELETE /rooms/{id}.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.registry.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

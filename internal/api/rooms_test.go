package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/observer/sfu-core/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(h *RoomHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms", h.List)
	mux.HandleFunc("GET /rooms/{id}", h.Get)
	mux.HandleFunc("POST /rooms/{id}", h.Create)
	mux.HandleFunc("DELETE /rooms/{id}", h.Delete)
	return mux
}

func TestCreateRoomConflict(t *testing.T) {
	reg := room.NewRegistry()
	mux := newTestMux(NewRoomHandler(reg))

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/rooms/r1", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	reg := room.NewRegistry()
	mux := newTestMux(NewRoomHandler(reg))

	req := httptest.NewRequest(http.MethodGet, "/rooms/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRoomsReflectsRegistryState(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("r1")
	_, err := r.JoinUser("u1")
	require.NoError(t, err)

	mux := newTestMux(NewRoomHandler(reg))

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r1"`)
	assert.Contains(t, rec.Body.String(), `"user_ids":["u1"]`)
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	reg := room.NewRegistry()
	if _, err := reg.Create("r1"); err != nil {
		t.Fatal(err)
	}
	mux := newTestMux(NewRoomHandler(reg))

	req := httptest.NewRequest(http.MethodDelete, "/rooms/r1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/rooms/r1", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

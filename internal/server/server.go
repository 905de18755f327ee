// Package server assembles the HTTP surface: the WebSocket signaling
// upgrade and the Management API, behind shared request-id/logging/
// recovery middleware.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/observer/sfu-core/internal/api"
	"github.com/observer/sfu-core/internal/middleware"
)

// Dependencies holds everything the HTTP server needs to wire routes.
type Dependencies struct {
	Signaling   http.Handler
	RoomHandler *api.RoomHandler
	ManageToken string
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
}

// New creates an HTTP server with the signaling and management routes
// configured, wrapped in the ambient middleware stack.
func New(addr string, deps *Dependencies) *http.Server {
	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	handler := chainMiddleware(mux,
		requestIDMiddleware,
		loggingMiddleware(deps.Logger),
		recoverMiddleware(deps.Logger),
	)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // signaling connections are long-lived; no write deadline at the server level
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Signaling duplex channel. Authentication happens inside the
	// Dispatcher itself, not at this layer — the WebSocket handshake
	// completes before any Connect packet is read.
	mux.Handle("GET /ws", deps.Signaling)

	// Management API: gated by the shared admin token and rate
	// limited by remote address, never by the per-room user identity the
	// signaling path uses.
	admin := func(h http.HandlerFunc) http.Handler {
		return deps.RateLimiter.Middleware(api.RequireAdminToken(deps.ManageToken, h))
	}
	mux.Handle("GET /rooms", admin(deps.RoomHandler.List))
	mux.Handle("GET /rooms/{id}", admin(deps.RoomHandler.Get))
	mux.Handle("POST /rooms/{id}", admin(deps.RoomHandler.Create))
	mux.Handle("DELETE /rooms/{id}", admin(deps.RoomHandler.Delete))
}

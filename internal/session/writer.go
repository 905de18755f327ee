package session

import (
	"sync"

	"github.com/gorilla/websocket"
)

// frameSender is the narrow send surface liveSession depends on, so
// tests can exercise dispatch/event-translation logic against a fake
// that records frames instead of a live WebSocket connection.
type frameSender interface {
	send(data []byte) error
}

// writer serializes outbound frames behind a mutex so the inbound
// worker, the event worker, and negotiation callbacks firing from the
// media engine's own goroutines can all send concurrently.
type writer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWriter(conn *websocket.Conn) *writer {
	return &writer{conn: conn}
}

var _ frameSender = (*writer)(nil)

func (w *writer) send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

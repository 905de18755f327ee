// Package session implements the per-connection Session Dispatcher:
// authentication handshake, Peer/Room wiring, and the two concurrent
// workers that pump inbound commands and outbound room events until
// the connection ends.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/observer/sfu-core/internal/auth"
	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/peer"
	"github.com/observer/sfu-core/internal/protocol"
	"github.com/observer/sfu-core/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// errNeverAuthenticated marks a connection whose stream ended before a
// Connect packet ever succeeded: the session is fatal, but no room or
// Peer was ever constructed.
var errNeverAuthenticated = errors.New("session: stream ended before authentication")

// Dispatcher upgrades signaling connections and runs each one through
// its full authenticate/negotiate/teardown lifecycle.
type Dispatcher struct {
	registry *room.Registry
	engine   *media.Engine
	authFn   auth.Fn
	logger   *slog.Logger
}

// NewDispatcher wires a Dispatcher against a shared registry, media
// engine, and authentication callback.
func NewDispatcher(registry *room.Registry, engine *media.Engine, authFn auth.Fn, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, engine: engine, authFn: authFn, logger: logger}
}

// ServeHTTP upgrades the request and blocks until the session ends.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	d.run(conn)
}

func (d *Dispatcher) run(conn *websocket.Conn) {
	out := newWriter(conn)

	info, roomID, err := d.authenticate(conn, out)
	if err != nil {
		d.logger.Info("session ended before authentication", "error", err)
		return
	}

	r := d.registry.GetOrCreate(roomID)
	logger := d.logger.With("user_id", info.ID, "room_id", roomID)

	mediaConn, err := d.engine.NewConnection()
	if err != nil {
		logger.Error("create media connection", "error", err)
		return
	}

	p, err := peer.New(info.ID, r, mediaConn, func(n protocol.Negotiation) {
		data, err := protocol.EncodeNegotiation(n)
		if err != nil {
			logger.Error("encode negotiation", "error", err)
			return
		}
		_ = out.send(data)
	}, logger)
	if err != nil {
		logger.Error("construct peer", "error", err)
		_ = mediaConn.Close()
		return
	}

	defer func() {
		r.RemoveUser(info.ID)
		_ = p.Close()
		d.registry.GCIfEmpty(roomID)
	}()

	accept, err := protocol.EncodeAccept(protocol.AcceptPacket{
		AvailableTracks: r.GetAvailableTracks(),
		UserIDs:         r.GetUserIDs(),
	})
	if err != nil {
		logger.Error("encode accept", "error", err)
		return
	}
	if err := out.send(accept); err != nil {
		return
	}

	sess := &liveSession{
		userID: info.ID,
		room:   r,
		peer:   p,
		out:    out,
		logger: logger,
	}
	sess.pump(conn)
}

// authenticate loops reading frames until a Connect packet authenticates
// successfully. Any other packet received pre-auth is silently ignored
// (the stream isn't authenticated yet, so there's no session to reply
// on behalf of) and does not end the loop; the stream ending without
// ever authenticating sends FailedToAuthenticate before the caller
// tears down, since no room or Peer was ever constructed for it.
func (d *Dispatcher) authenticate(conn *websocket.Conn, out *writer) (auth.UserInformation, string, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			d.sendError(out, protocol.ErrFailedToAuthenticate)
			return auth.UserInformation{}, "", errNeverAuthenticated
		}

		typ, pkt, err := protocol.DecodeC2S(data)
		if err != nil {
			continue
		}

		connectPkt, ok := pkt.(protocol.ConnectPacket)
		if typ != protocol.TypeConnect || !ok {
			continue
		}

		info, err := d.authFn(context.Background(), connectPkt.RoomID, connectPkt.Token)
		if err != nil {
			d.sendError(out, protocol.ErrFailedToAuthenticate)
			return auth.UserInformation{}, "", protocol.ErrFailedToAuthenticate
		}

		return info, connectPkt.RoomID, nil
	}
}

func (d *Dispatcher) sendError(out *writer, code protocol.ServerError) {
	data, err := protocol.EncodeError(protocol.ErrorPacket{Error: string(code)})
	if err != nil {
		return
	}
	_ = out.send(data)
}

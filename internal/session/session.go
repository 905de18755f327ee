package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/observer/sfu-core/internal/peer"
	"github.com/observer/sfu-core/internal/protocol"
	"github.com/observer/sfu-core/internal/room"
)

// liveSession runs the inbound and event workers for one authenticated
// connection. Guaranteed cleanup happens via the defer in
// Dispatcher.run, which outlives pump.
type liveSession struct {
	userID string
	room   *room.Room
	peer   *peer.Peer
	out    frameSender
	logger *slog.Logger
}

// pump runs the inbound and event workers until the first of them ends,
// then tears down the other. Cleanup of room membership and the peer
// connection happens in the caller (Dispatcher.run), not here, so it
// runs on every exit path including a panic unwinding through pump.
func (s *liveSession) pump(conn *websocket.Conn) {
	sub := s.room.Subscribe()
	defer sub.Unsubscribe()

	done := make(chan struct{})
	results := make(chan error, 2)

	go func() { results <- s.inboundWorker(conn) }()
	go func() { results <- s.eventWorker(sub, done) }()

	first := <-results
	close(done)
	_ = conn.Close()
	<-results

	if first != nil {
		s.logger.Info("session ended", "error", first)
	}
}

// inboundWorker reads and dispatches PacketC2S frames. A read error ends
// the worker (the other side closed the connection or it failed); a
// parse or dispatch error is treated as session-fatal.
func (s *liveSession) inboundWorker(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		typ, pkt, err := protocol.DecodeC2S(data)
		if err != nil {
			return fmt.Errorf("parse inbound frame: %w", err)
		}

		if err := s.dispatch(typ, pkt); err != nil {
			return err
		}
	}
}

func (s *liveSession) dispatch(typ string, pkt interface{}) error {
	switch typ {
	case protocol.TypeConnect:
		s.sendError(protocol.ErrAlreadyConnected)
		return nil
	case protocol.TypeRequestTrack:
		return s.handleRequestTrack(pkt.(protocol.RequestTrackPacket))
	case protocol.TypeContinue:
		return s.handleContinue(pkt.(protocol.ContinuePacket))
	case protocol.TypeRemove:
		return s.handleRemove(pkt.(protocol.RemovePacket))
	case protocol.TypeNegotiation:
		return s.handleNegotiation(pkt.(protocol.Negotiation))
	default:
		return fmt.Errorf("session: unhandled packet type %q", typ)
	}
}

// handleRequestTrack handles a RequestTrack packet: each present
// media-type option registers a proposed track id; the first
// MediaTypeSatisfied conflict replies with that error instead of
// Continue, leaving the session open.
func (s *liveSession) handleRequestTrack(p protocol.RequestTrackPacket) error {
	type slot struct {
		id        string
		mediaType protocol.MediaType
	}
	var slots []slot
	if p.Audio != nil {
		slots = append(slots, slot{*p.Audio, protocol.MediaAudio})
	}
	if p.Video != nil {
		slots = append(slots, slot{*p.Video, protocol.MediaVideo})
	}
	if p.ScreenAudio != nil {
		slots = append(slots, slot{*p.ScreenAudio, protocol.MediaScreenAudio})
	}
	if p.ScreenVideo != nil {
		slots = append(slots, slot{*p.ScreenVideo, protocol.MediaScreenVideo})
	}

	ids := make([]string, 0, len(slots))
	for _, sl := range slots {
		if err := s.peer.RegisterTrack(sl.id, sl.mediaType); err != nil {
			s.sendProtocolError(err)
			return nil
		}
		ids = append(ids, sl.id)
	}

	data, err := protocol.EncodeContinue(protocol.ContinuePacket{Tracks: ids})
	if err != nil {
		return fmt.Errorf("encode continue: %w", err)
	}
	return s.out.send(data)
}

// handleContinue implements the Continue row: attach a Forwarder for
// each id the client says it's now ready to receive.
func (s *liveSession) handleContinue(p protocol.ContinuePacket) error {
	for _, id := range p.Tracks {
		if err := s.peer.AddTrack(id); err != nil {
			s.sendProtocolError(err)
		}
	}
	return nil
}

// handleRemove implements the Remove row: free the Peer's media-type
// slot for each id, then tear down the room-level track. Unregistering
// first matters for a track that was only ever RequestTrack-reserved
// and never published — room.RemoveTrack is a no-op for an id with no
// room-level owner, so skipping UnregisterTrack would leave that
// media-type slot permanently occupied.
func (s *liveSession) handleRemove(p protocol.RemovePacket) error {
	for _, id := range p.RemovedTracks {
		s.peer.UnregisterTrack(id)
		s.peer.RemoveTrack(id)
		s.room.RemoveTrack(id)
	}
	return nil
}

// handleNegotiation handles both Negotiation payload shapes. A
// ConsumeSDP/ConsumeICE error is a media-engine failure and is treated
// as session-fatal.
func (s *liveSession) handleNegotiation(n protocol.Negotiation) error {
	if n.Description != nil {
		if len(n.MediaTypeBuffer) > 0 {
			s.peer.ExtendMediaTypeBuffer(n.MediaTypeBuffer)
		}
		if err := s.peer.ConsumeSDP(*n.Description); err != nil {
			return fmt.Errorf("consume sdp: %w", err)
		}
		return nil
	}
	if n.Candidate != nil {
		if err := s.peer.ConsumeICE(*n.Candidate); err != nil {
			return fmt.Errorf("consume ice: %w", err)
		}
	}
	return nil
}

func (s *liveSession) sendError(code protocol.ServerError) {
	data, err := protocol.EncodeError(protocol.ErrorPacket{Error: string(code)})
	if err != nil {
		return
	}
	_ = s.out.send(data)
}

// sendProtocolError surfaces a recoverable protocol error to the client
// without ending the session.
func (s *liveSession) sendProtocolError(err error) {
	var code protocol.ServerError
	if !errors.As(err, &code) {
		s.logger.Warn("non-protocol error surfaced to client, dropping reply", "error", err)
		return
	}
	s.sendError(code)
}

// eventWorker translates RoomEvents into outbound packets until done
// fires or the subscription channel closes.
func (s *liveSession) eventWorker(sub *room.Subscription, done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		case ev, ok := <-sub.Events:
			if !ok {
				return errors.New("session: event subscription closed")
			}
			if err := s.handleEvent(ev); err != nil {
				return err
			}
		}
	}
}

// handleEvent translates a single room event into its outbound packet.
func (s *liveSession) handleEvent(ev room.Event) error {
	switch ev.Kind {
	case room.EventCreateTrack:
		if ev.Track.UserID == s.userID {
			return nil
		}
		data, err := protocol.EncodeAnnounce(protocol.AnnouncePacket{Track: ev.Track})
		if err != nil {
			return fmt.Errorf("encode announce: %w", err)
		}
		return s.out.send(data)
	case room.EventRemoveTrack:
		for _, id := range ev.RemovedTracks {
			s.peer.RemoveTrack(id)
		}
		data, err := protocol.EncodeRemove(protocol.RemovePacket{RemovedTracks: ev.RemovedTracks})
		if err != nil {
			return fmt.Errorf("encode remove: %w", err)
		}
		return s.out.send(data)
	case room.EventUserJoin:
		data, err := protocol.EncodeUserJoin(protocol.UserJoinPacket{UserID: ev.UserID})
		if err != nil {
			return fmt.Errorf("encode user join: %w", err)
		}
		return s.out.send(data)
	case room.EventUserLeft:
		data, err := protocol.EncodeUserLeft(protocol.UserLeftPacket{UserID: ev.UserID})
		if err != nil {
			return fmt.Errorf("encode user left: %w", err)
		}
		return s.out.send(data)
	default:
		return fmt.Errorf("session: unhandled room event kind %v", ev.Kind)
	}
}

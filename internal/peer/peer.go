// Package peer implements the per-client Peer and its Forwarders:
// negotiation state, the media-type track map, and the RTP
// ingestion/keyframe-request loops for tracks this peer publishes.
package peer

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/protocol"
	"github.com/observer/sfu-core/internal/room"
	"github.com/pion/rtcp"
)

// SignalOut sends a Negotiation message out to this peer's client. It is
// supplied by the Session Dispatcher at construction time.
type SignalOut func(protocol.Negotiation)

// Peer owns one client's media connection, its negotiation state, the
// media-type track map it shares with the Room, and the set of outbound
// Forwarders carrying other users' tracks to this client.
type Peer struct {
	userID string
	room   *room.Room
	conn   media.Conn

	trackMap *room.TrackMap

	signalOut SignalOut
	logger    *slog.Logger

	mu                         sync.Mutex
	forwarders                 map[string]*Forwarder
	makingOffer                bool
	ignoreOffer                bool
	settingRemoteAnswerPending bool
	mediaTypeBuffer            []protocol.MediaType
	closed                     bool
}

// New constructs a Peer: joins userID into the room, wires the media
// engine callbacks, and returns the Peer ready for negotiation.
func New(userID string, r *room.Room, conn media.Conn, signalOut SignalOut, logger *slog.Logger) (*Peer, error) {
	trackMap, err := r.JoinUser(userID)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		userID:     userID,
		room:       r,
		conn:       conn,
		trackMap:   trackMap,
		signalOut:  signalOut,
		logger:     logger.With("user_id", userID, "room_id", r.ID()),
		forwarders: make(map[string]*Forwarder),
	}

	conn.OnNegotiationNeeded(p.Renegotiate)
	conn.OnICECandidate(func(c media.ICECandidateInit) {
		var sdpMid, usernameFragment string
		var mlineIndex uint16
		if c.SDPMid != nil {
			sdpMid = *c.SDPMid
		}
		if c.UsernameFragment != nil {
			usernameFragment = *c.UsernameFragment
		}
		if c.SDPMLineIndex != nil {
			mlineIndex = *c.SDPMLineIndex
		}
		p.signalOut(protocol.Negotiation{Candidate: &protocol.ICECandidate{
			Candidate:        c.Candidate,
			SDPMid:           sdpMid,
			SDPMLineIndex:    mlineIndex,
			UsernameFragment: usernameFragment,
		}})
	})
	conn.OnTrack(func(remote *media.RemoteTrack) {
		go p.handleIncomingTrack(remote)
	})

	return p, nil
}

// ExtendMediaTypeBuffer appends pending media types supplied alongside an
// SDP negotiation packet. The buffer is guarded by the Peer's own mutex;
// the track map it is resolved alongside has a separate lock of its own.
func (p *Peer) ExtendMediaTypeBuffer(types []protocol.MediaType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaTypeBuffer = append(p.mediaTypeBuffer, types...)
}

func (p *Peer) popMediaTypeBuffer() (protocol.MediaType, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.mediaTypeBuffer) == 0 {
		return "", false
	}
	mt := p.mediaTypeBuffer[0]
	p.mediaTypeBuffer = p.mediaTypeBuffer[1:]
	return mt, true
}

// RegisterTrack reserves a media-type slot for a track id: idempotent
// only when the id already occupying the slot matches exactly.
func (p *Peer) RegisterTrack(id string, mediaType protocol.MediaType) error {
	if existing, ok := p.trackMap.Get(mediaType); ok && existing != id {
		return protocol.ErrMediaTypeSatisfied
	}
	p.trackMap.Set(mediaType, id)
	return nil
}

// UnregisterTrack frees the media-type slot occupied by id, whichever
// slot that is, mirroring events.rs's track_map.retain(|_, item| item
// != id). This is the publisher-side counterpart to RegisterTrack: it
// frees the slot regardless of whether the track was ever actually
// published, so a reserved-but-never-published id doesn't permanently
// block that media type.
func (p *Peer) UnregisterTrack(id string) {
	p.trackMap.DeleteByID(id)
}

// AddTrack subscribes this peer's connection to a room-level local
// track by id.
func (p *Peer) AddTrack(id string) error {
	localTrack, ok := p.room.GetTrack(id)
	if !ok {
		return protocol.ErrTrackNotFound
	}

	fwd, err := newForwarder(p.conn, localTrack)
	if err != nil {
		return fmt.Errorf("attach forwarder for track %s: %w", id, err)
	}

	p.mu.Lock()
	p.forwarders[id] = fwd
	p.mu.Unlock()
	return nil
}

// RemoveTrack tears down the forwarder for id: idempotent, a no-op if
// no forwarder exists for id.
func (p *Peer) RemoveTrack(id string) {
	p.mu.Lock()
	fwd, ok := p.forwarders[id]
	if ok {
		delete(p.forwarders, id)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	sender := fwd.close()
	if err := p.conn.RemoveTrack(sender); err != nil {
		p.logger.Debug("remove track: detach sender", "track_id", id, "error", err)
	}
}

// handleIncomingTrack is the on-track callback: resolves the media
// type, creates the shared local track, publishes it to the room,
// optionally starts the PLI loop, and forwards RTP until the remote
// track ends.
func (p *Peer) handleIncomingTrack(remote *media.RemoteTrack) {
	id := remote.ID()

	mediaType, ok := p.reverseLookupMediaType(id)
	if !ok {
		mt, popped := p.popMediaTypeBuffer()
		if !popped {
			p.logger.Warn("incoming track with no registered or buffered media type", "track_id", id)
			return
		}
		mediaType = mt
		p.trackMap.Set(mediaType, id)
	}

	streamName := fmt.Sprintf("%s:%s:%s", p.userID, mediaType, id)
	localTrack, err := media.NewLocalTrack(remote.Codec().RTPCodecCapability, id, streamName)
	if err != nil {
		p.logger.Error("create local track", "track_id", id, "error", err)
		return
	}

	if err := p.room.AddTrack(p.userID, mediaType, id, localTrack); err != nil {
		p.logger.Error("publish track to room", "track_id", id, "error", err)
		return
	}

	done := make(chan struct{})
	if mediaType == protocol.MediaVideo || mediaType == protocol.MediaScreenVideo {
		go p.pliLoop(remote, done)
	}

	p.forwardRTP(remote, localTrack, done)
}

func (p *Peer) reverseLookupMediaType(id string) (protocol.MediaType, bool) {
	for _, mt := range []protocol.MediaType{
		protocol.MediaAudio, protocol.MediaVideo, protocol.MediaScreenAudio, protocol.MediaScreenVideo,
	} {
		if existing, ok := p.trackMap.Get(mt); ok && existing == id {
			return mt, true
		}
	}
	return "", false
}

// pliLoop requests a keyframe once a second until the RTP forwarding
// loop signals done, or the write itself starts failing.
func (p *Peer) pliLoop(remote *media.RemoteTrack, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ssrc := remote.SSRC()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := p.conn.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{
				SenderSSRC: 0,
				MediaSSRC:  ssrc,
			}})
			if err != nil {
				return
			}
		}
	}
}

// forwardRTP reads RTP from the remote track and writes it to localTrack
// until the remote read ends: a write failure due to ErrClosedPipe is
// logged and forwarding continues; any other write error, or any read
// error, ends the loop.
func (p *Peer) forwardRTP(remote *media.RemoteTrack, localTrack *media.LocalTrack, done chan struct{}) {
	defer close(done)
	for {
		pkt, err := remote.ReadRTP()
		if err != nil {
			p.logger.Debug("remote track read ended", "track_id", remote.ID(), "error", err)
			return
		}

		if err := localTrack.WriteRTP(pkt); err != nil {
			if err == io.ErrClosedPipe {
				p.logger.Debug("write to closed local track, continuing", "track_id", remote.ID())
				continue
			}
			p.logger.Debug("write rtp failed, stopping forward loop", "track_id", remote.ID(), "error", err)
			return
		}
	}
}

// Close tears down the peer's connection. Forwarder read loops exit on
// their own once their senders close. Idempotent.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.conn.Close()
}

package media

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// Conn is the narrow surface a Peer needs from a peer connection. Peer
// depends on this interface rather than *Connection directly so the
// negotiation state machine can be exercised against a fake in tests
// without standing up real ICE/DTLS transport.
type Conn interface {
	SignalingState() SignalingState
	CreateAnswer() (SessionDescription, error)
	CreateOffer() (SessionDescription, error)
	SetLocalDescription(SessionDescription) error
	SetRemoteDescription(SessionDescription) error
	AddICECandidate(ICECandidateInit) error
	AddTrack(*LocalTrack) (*Sender, error)
	RemoveTrack(*Sender) error
	WriteRTCP(packets []rtcp.Packet) error
	Close() error
	OnTrack(func(*RemoteTrack))
	OnICECandidate(func(ICECandidateInit))
	OnNegotiationNeeded(func())
	OnConnectionStateChange(func(webrtc.PeerConnectionState))
}

// Connection is the pion-backed implementation of Conn.
type Connection struct {
	pc *webrtc.PeerConnection
}

var _ Conn = (*Connection)(nil)

// SDPType mirrors the two directions a SessionDescription can take.
type SDPType = webrtc.SDPType

const (
	SDPTypeOffer  = webrtc.SDPTypeOffer
	SDPTypeAnswer = webrtc.SDPTypeAnswer
)

// SessionDescription is re-exported so callers need not import pion/webrtc for it.
type SessionDescription = webrtc.SessionDescription

// ICECandidateInit is re-exported for the same reason.
type ICECandidateInit = webrtc.ICECandidateInit

// SignalingState is re-exported so the negotiation state machine can
// compare against webrtc.SignalingStateStable without importing pion.
type SignalingState = webrtc.SignalingState

const SignalingStateStable = webrtc.SignalingStateStable

func (c *Connection) SignalingState() SignalingState { return c.pc.SignalingState() }

// CreateAnswer generates an SDP answer for the currently set remote offer.
func (c *Connection) CreateAnswer() (SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

// CreateOffer generates a fresh SDP offer.
func (c *Connection) CreateOffer() (SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Connection) SetLocalDescription(desc SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *Connection) SetRemoteDescription(desc SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *Connection) AddICECandidate(candidate ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

// AddTrack attaches a LocalTrack and returns the Sender draining its RTCP.
func (c *Connection) AddTrack(track *LocalTrack) (*Sender, error) {
	rtpSender, err := c.pc.AddTrack(track.inner)
	if err != nil {
		return nil, err
	}
	return &Sender{sender: rtpSender}, nil
}

// RemoveTrack detaches a Sender previously returned by AddTrack.
func (c *Connection) RemoveTrack(sender *Sender) error {
	return c.pc.RemoveTrack(sender.sender)
}

// WriteRTCP sends an RTCP packet on the connection, used for the PLI
// keyframe-request loop.
func (c *Connection) WriteRTCP(packets []rtcp.Packet) error {
	return c.pc.WriteRTCP(packets)
}

func (c *Connection) Close() error { return c.pc.Close() }

// OnTrack registers the callback invoked when a remote track is ingested.
func (c *Connection) OnTrack(f func(*RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		f(&RemoteTrack{inner: track})
	})
}

// OnICECandidate registers the callback invoked for each locally gathered
// ICE candidate. A nil candidate (end-of-candidates) is filtered out.
func (c *Connection) OnICECandidate(f func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		f(candidate.ToJSON())
	})
}

// OnNegotiationNeeded registers the renegotiation trigger.
func (c *Connection) OnNegotiationNeeded(f func()) {
	c.pc.OnNegotiationNeeded(f)
}

// OnConnectionStateChange registers a callback for peer-connection
// lifecycle changes (for example a connection that has failed or closed).
func (c *Connection) OnConnectionStateChange(f func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(f)
}

// LocalTrack is a server-owned object that accepts RTP writes and can be
// attached to many connections as a sender.
type LocalTrack struct {
	inner *webrtc.TrackLocalStaticRTP
}

// NewLocalTrack creates a LocalTrack mirroring a remote track's codec, id,
// and stream id. Callers supply the stream-name convention via streamID;
// it is not hardcoded here.
func NewLocalTrack(capability webrtc.RTPCodecCapability, id, streamID string) (*LocalTrack, error) {
	t, err := webrtc.NewTrackLocalStaticRTP(capability, id, streamID)
	if err != nil {
		return nil, err
	}
	return &LocalTrack{inner: t}, nil
}

func (t *LocalTrack) ID() string { return t.inner.ID() }

func (t *LocalTrack) WriteRTP(pkt *rtp.Packet) error { return t.inner.WriteRTP(pkt) }

// RemoteTrack is an ingested track read from a client's publish side.
type RemoteTrack struct {
	inner *webrtc.TrackRemote
}

func (t *RemoteTrack) ID() string                         { return t.inner.ID() }
func (t *RemoteTrack) SSRC() uint32                        { return uint32(t.inner.SSRC()) }
func (t *RemoteTrack) Kind() webrtc.RTPCodecType           { return t.inner.Kind() }
func (t *RemoteTrack) Codec() webrtc.RTPCodecParameters    { return t.inner.Codec() }
func (t *RemoteTrack) StreamID() string                    { return t.inner.StreamID() }
func (t *RemoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := t.inner.ReadRTP()
	return pkt, err
}

// Sender drains RTCP for an outbound track so the library's interceptors
// (NACK etc.) process incoming feedback.
type Sender struct {
	sender *webrtc.RTPSender
}

// Read blocks until an RTCP packet is available or the sender closes.
func (s *Sender) Read(buf []byte) (int, error) {
	n, _, err := s.sender.Read(buf)
	return n, err
}

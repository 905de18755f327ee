package peer

import (
	"errors"
	"sync"

	"github.com/observer/sfu-core/internal/media"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
)

// fakeConn is a minimal media.Conn double for exercising the negotiation
// state machine without real ICE/DTLS transport.
type fakeConn struct {
	mu sync.Mutex

	signalingState media.SignalingState
	setRemoteErr   error
	addICEErr      error

	remoteDescriptions []media.SessionDescription
	localDescriptions  []media.SessionDescription
	addICECalls        int
	rtcpWrites         []rtcp.Packet

	onTrack              func(*media.RemoteTrack)
	onICECandidate       func(media.ICECandidateInit)
	onNegotiationNeeded  func()
	onConnectionStateChg func(webrtc.PeerConnectionState)
}

var _ media.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{signalingState: media.SignalingStateStable}
}

func (f *fakeConn) SignalingState() media.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signalingState
}

func (f *fakeConn) CreateAnswer() (media.SessionDescription, error) {
	return media.SessionDescription{Type: media.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (f *fakeConn) CreateOffer() (media.SessionDescription, error) {
	return media.SessionDescription{Type: media.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (f *fakeConn) SetLocalDescription(d media.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localDescriptions = append(f.localDescriptions, d)
	return nil
}

func (f *fakeConn) SetRemoteDescription(d media.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRemoteErr != nil {
		return f.setRemoteErr
	}
	f.remoteDescriptions = append(f.remoteDescriptions, d)
	return nil
}

func (f *fakeConn) AddICECandidate(media.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addICECalls++
	return f.addICEErr
}

func (f *fakeConn) AddTrack(*media.LocalTrack) (*media.Sender, error) {
	return nil, errors.New("fakeConn: AddTrack not supported")
}

func (f *fakeConn) RemoveTrack(*media.Sender) error { return nil }

func (f *fakeConn) WriteRTCP(packets []rtcp.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rtcpWrites = append(f.rtcpWrites, packets...)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) OnTrack(cb func(*media.RemoteTrack))            { f.onTrack = cb }
func (f *fakeConn) OnICECandidate(cb func(media.ICECandidateInit)) { f.onICECandidate = cb }
func (f *fakeConn) OnNegotiationNeeded(cb func())                  { f.onNegotiationNeeded = cb }
func (f *fakeConn) OnConnectionStateChange(cb func(webrtc.PeerConnectionState)) {
	f.onConnectionStateChg = cb
}

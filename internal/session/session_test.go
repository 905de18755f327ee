package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/peer"
	"github.com/observer/sfu-core/internal/protocol"
	"github.com/observer/sfu-core/internal/room"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records every frame passed to send, letting tests assert on
// the wire packets a session emits without a live WebSocket.
type fakeSender struct {
	frames []map[string]interface{}
}

func (f *fakeSender) send(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.frames = append(f.frames, m)
	return nil
}

// fakeConn is a minimal, configurable media.Conn good enough to
// construct a Peer; the session-dispatch tests never exercise real
// negotiation transport, only the error-propagation paths around it.
type fakeConn struct {
	setRemoteErr error
}

var _ media.Conn = (*fakeConn)(nil)

func (*fakeConn) SignalingState() media.SignalingState            { return media.SignalingStateStable }
func (*fakeConn) CreateAnswer() (media.SessionDescription, error) { return media.SessionDescription{}, nil }
func (*fakeConn) CreateOffer() (media.SessionDescription, error)  { return media.SessionDescription{}, nil }
func (*fakeConn) SetLocalDescription(media.SessionDescription) error { return nil }
func (f *fakeConn) SetRemoteDescription(media.SessionDescription) error {
	return f.setRemoteErr
}
func (*fakeConn) AddICECandidate(media.ICECandidateInit) error      { return nil }
func (*fakeConn) AddTrack(*media.LocalTrack) (*media.Sender, error) { return nil, errTrackUnsupported }
func (*fakeConn) RemoveTrack(*media.Sender) error                   { return nil }
func (*fakeConn) WriteRTCP([]rtcp.Packet) error                      { return nil }
func (*fakeConn) Close() error                                       { return nil }
func (*fakeConn) OnTrack(func(*media.RemoteTrack))                   {}
func (*fakeConn) OnICECandidate(func(media.ICECandidateInit))        {}
func (*fakeConn) OnNegotiationNeeded(func())                         {}
func (*fakeConn) OnConnectionStateChange(func(webrtc.PeerConnectionState)) {}

var errTrackUnsupported = &trackUnsupportedError{}

type trackUnsupportedError struct{}

func (*trackUnsupportedError) Error() string { return "fakeConn: AddTrack not supported" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionConn(t *testing.T, userID string, r *room.Room, conn *fakeConn) (*liveSession, *fakeSender) {
	t.Helper()
	p, err := peer.New(userID, r, conn, func(protocol.Negotiation) {}, testLogger())
	require.NoError(t, err)

	sender := &fakeSender{}
	return &liveSession{
		userID: userID,
		room:   r,
		peer:   p,
		out:    sender,
		logger: testLogger(),
	}, sender
}

func newTestSession(t *testing.T, userID string, r *room.Room) (*liveSession, *fakeSender) {
	t.Helper()
	return newTestSessionConn(t, userID, r, &fakeConn{})
}

func strPtr(s string) *string { return &s }

func TestHandleRequestTrackRepliesContinue(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	err := sess.handleRequestTrack(protocol.RequestTrackPacket{Audio: strPtr("a-1")})
	require.NoError(t, err)

	require.Len(t, sender.frames, 1)
	assert.Equal(t, "Continue", sender.frames[0]["type"])
	assert.Equal(t, []interface{}{"a-1"}, sender.frames[0]["tracks"])
}

func TestHandleRequestTrackConflictRepliesError(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	require.NoError(t, sess.handleRequestTrack(protocol.RequestTrackPacket{Audio: strPtr("a-1")}))
	require.NoError(t, sess.handleRequestTrack(protocol.RequestTrackPacket{Audio: strPtr("a-2")}))

	require.Len(t, sender.frames, 2)
	assert.Equal(t, "Error", sender.frames[1]["type"])
	assert.Equal(t, string(protocol.ErrMediaTypeSatisfied), sender.frames[1]["error"])
}

func TestHandleRemoveTearsDownRoomTrack(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, _ := newTestSession(t, "u1", r)

	localTrack, err := media.NewLocalTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "a-1", "u1:Audio:a-1")
	require.NoError(t, err)
	require.NoError(t, r.AddTrack("u1", protocol.MediaAudio, "a-1", localTrack))

	require.NoError(t, sess.handleRemove(protocol.RemovePacket{RemovedTracks: []string{"a-1"}}))

	_, ok := r.GetTrack("a-1")
	assert.False(t, ok, "track must be gone from the room after Remove")
}

func TestHandleRemoveFreesSlotForUnpublishedTrack(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	require.NoError(t, sess.handleRequestTrack(protocol.RequestTrackPacket{Audio: strPtr("a-1")}))
	require.NoError(t, sess.handleRemove(protocol.RemovePacket{RemovedTracks: []string{"a-1"}}))
	require.NoError(t, sess.handleRequestTrack(protocol.RequestTrackPacket{Audio: strPtr("a-2")}))

	require.Len(t, sender.frames, 2)
	assert.Equal(t, "Continue", sender.frames[1]["type"],
		"the audio slot must be free again after Remove, even though a-1 was never published")
}

func TestHandleEventCreateTrackSkipsSelf(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	err := sess.handleEvent(room.Event{
		Kind:  room.EventCreateTrack,
		Track: protocol.RemoteTrack{ID: "a-1", UserID: "u1", MediaType: protocol.MediaAudio},
	})
	require.NoError(t, err)
	assert.Empty(t, sender.frames, "a track announce from the session's own user must be skipped")
}

func TestHandleEventCreateTrackAnnouncesOtherUsers(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	err := sess.handleEvent(room.Event{
		Kind:  room.EventCreateTrack,
		Track: protocol.RemoteTrack{ID: "a-1", UserID: "u2", MediaType: protocol.MediaAudio},
	})
	require.NoError(t, err)
	require.Len(t, sender.frames, 1)
	assert.Equal(t, "Announce", sender.frames[0]["type"])
}

func TestHandleEventUserJoinIncludesSelf(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	sess, sender := newTestSession(t, "u1", r)

	err := sess.handleEvent(room.Event{Kind: room.EventUserJoin, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, sender.frames, 1)
	assert.Equal(t, "UserJoin", sender.frames[0]["type"])
	assert.Equal(t, "u1", sender.frames[0]["user_id"])
}

func TestHandleNegotiationSDPErrorIsSessionFatal(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	conn := &fakeConn{setRemoteErr: errSetRemoteFailed}
	sess, sender := newTestSessionConn(t, "u1", r, conn)

	err := sess.handleNegotiation(protocol.Negotiation{
		Description: &protocol.SessionDescription{Type: protocol.SDPOffer, SDP: "bad-offer"},
	})

	assert.Error(t, err, "a media-engine failure while consuming SDP must be session-fatal, not a client-facing reply")
	assert.Empty(t, sender.frames)
}

var errSetRemoteFailed = &setRemoteError{}

type setRemoteError struct{}

func (*setRemoteError) Error() string { return "set remote description failed" }

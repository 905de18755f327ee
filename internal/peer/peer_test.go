package peer

import (
	"testing"

	"github.com/observer/sfu-core/internal/protocol"
	"github.com/observer/sfu-core/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTrackRejectsDifferingIDOnOccupiedSlot(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	p, _ := newTestPeer(t, r, newFakeConn())

	require.NoError(t, p.RegisterTrack("a-1", protocol.MediaAudio))
	err := p.RegisterTrack("a-2", protocol.MediaAudio)
	assert.ErrorIs(t, err, protocol.ErrMediaTypeSatisfied)
}

func TestRegisterTrackIdempotentOnSameID(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	p, _ := newTestPeer(t, r, newFakeConn())

	require.NoError(t, p.RegisterTrack("a-1", protocol.MediaAudio))
	assert.NoError(t, p.RegisterTrack("a-1", protocol.MediaAudio))
}

func TestUnregisterTrackFreesSlotForUnpublishedTrack(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	p, _ := newTestPeer(t, r, newFakeConn())

	require.NoError(t, p.RegisterTrack("a-1", protocol.MediaAudio))
	p.UnregisterTrack("a-1")

	// a-1 was never published to the room (no room.AddTrack call), so the
	// only observable trace of it is the occupied media-type slot;
	// UnregisterTrack must free that slot regardless.
	assert.NoError(t, p.RegisterTrack("a-2", protocol.MediaAudio),
		"slot must be free after UnregisterTrack even though the track was never published")
}

func TestUnregisterTrackOfUnknownIDIsNoop(t *testing.T) {
	reg := room.NewRegistry()
	r := reg.GetOrCreate("room-1")
	p, _ := newTestPeer(t, r, newFakeConn())

	require.NoError(t, p.RegisterTrack("a-1", protocol.MediaAudio))
	p.UnregisterTrack("not-a-1")

	assert.ErrorIs(t, p.RegisterTrack("a-2", protocol.MediaAudio), protocol.ErrMediaTypeSatisfied,
		"unregistering an unrelated id must not free a-1's slot")
}

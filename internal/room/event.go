package room

import "github.com/observer/sfu-core/internal/protocol"

// EventKind discriminates the RoomEvent tagged variants.
type EventKind int

const (
	EventCreateTrack EventKind = iota
	EventRemoveTrack
	EventUserJoin
	EventUserLeft
)

// Event is the broadcast unit published to every subscriber of a Room.
type Event struct {
	Kind          EventKind
	Track         protocol.RemoteTrack // EventCreateTrack
	RemovedTracks []string             // EventRemoveTrack
	UserID        string               // EventUserJoin / EventUserLeft
}

// Package room implements the process-wide room registry: a keyed
// directory of rooms, each holding its users' track maps, the room-level
// track table, and a bounded broadcast event bus.
package room

import (
	"errors"
	"sync"

	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/protocol"
)

// ErrUserAlreadyInRoom is an internal invariant violation: the auth layer
// is responsible for handing out unique user ids per room.
var ErrUserAlreadyInRoom = errors.New("room: user already present")

const eventBacklog = 32

type trackOwner struct {
	userID    string
	mediaType protocol.MediaType
}

// Room is one named membership/track directory plus its event bus.
type Room struct {
	id string

	mu          sync.RWMutex
	users       map[string]*TrackMap
	tracks      map[string]*media.LocalTrack
	trackOwners map[string]trackOwner
	everJoined  bool

	subMu     sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

func newRoom(id string) *Room {
	return &Room{
		id:          id,
		users:       make(map[string]*TrackMap),
		tracks:      make(map[string]*media.LocalTrack),
		trackOwners: make(map[string]trackOwner),
		subs:        make(map[int]chan Event),
	}
}

func (r *Room) ID() string { return r.id }

// JoinUser inserts a new user and publishes UserJoin. The returned TrackMap
// is the same object the Room holds internally — Peer gets a non-owning
// handle to it.
func (r *Room) JoinUser(userID string) (*TrackMap, error) {
	r.mu.Lock()
	if _, exists := r.users[userID]; exists {
		r.mu.Unlock()
		return nil, ErrUserAlreadyInRoom
	}
	tm := newTrackMap()
	r.users[userID] = tm
	r.everJoined = true
	r.mu.Unlock()

	r.publish(Event{Kind: EventUserJoin, UserID: userID})
	return tm, nil
}

// RemoveUser removes a user, tears down every track they own, and
// publishes RemoveTrack followed by UserLeft — idempotent: calling this
// twice for the same user is a no-op the second time.
func (r *Room) RemoveUser(userID string) {
	r.mu.Lock()
	if _, exists := r.users[userID]; !exists {
		r.mu.Unlock()
		return
	}
	delete(r.users, userID)

	var removed []string
	for id, owner := range r.trackOwners {
		if owner.userID == userID {
			removed = append(removed, id)
			delete(r.tracks, id)
			delete(r.trackOwners, id)
		}
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		r.publish(Event{Kind: EventRemoveTrack, RemovedTracks: removed})
	}
	r.publish(Event{Kind: EventUserLeft, UserID: userID})
}

// AddTrack records a newly published track under its owner's media-type
// slot and the room-level track table, then publishes CreateTrack.
func (r *Room) AddTrack(userID string, mediaType protocol.MediaType, id string, track *media.LocalTrack) error {
	r.mu.Lock()
	tm, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return errors.New("room: add track for user not in room")
	}
	tm.Set(mediaType, id)
	r.tracks[id] = track
	r.trackOwners[id] = trackOwner{userID: userID, mediaType: mediaType}
	r.mu.Unlock()

	r.publish(Event{Kind: EventCreateTrack, Track: protocol.RemoteTrack{
		ID:        id,
		UserID:    userID,
		MediaType: mediaType,
	}})
	return nil
}

// GetTrack returns the local track handle for a track id.
func (r *Room) GetTrack(id string) (*media.LocalTrack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracks[id]
	return t, ok
}

// RemoveTrack tears down a single track and publishes RemoveTrack{[id]}.
// Idempotent: a second call for an already-removed id is a no-op.
func (r *Room) RemoveTrack(id string) {
	r.mu.Lock()
	owner, ok := r.trackOwners[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.tracks, id)
	delete(r.trackOwners, id)
	if tm, ok := r.users[owner.userID]; ok {
		tm.DeleteIfEqual(owner.mediaType, id)
	}
	r.mu.Unlock()

	r.publish(Event{Kind: EventRemoveTrack, RemovedTracks: []string{id}})
}

// GetAvailableTracks returns a snapshot of every currently published track.
func (r *Room) GetAvailableTracks() []protocol.RemoteTrack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.RemoteTrack, 0, len(r.trackOwners))
	for id, owner := range r.trackOwners {
		out = append(out, protocol.RemoteTrack{ID: id, UserID: owner.userID, MediaType: owner.mediaType})
	}
	return out
}

// GetUserIDs returns every user currently joined to the room.
func (r *Room) GetUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out
}

// IsEmpty reports whether the room currently has no users.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users) == 0
}

// everEmptied reports whether the room has had at least one user join and
// then fully emptied — used by the registry's GC-on-empty policy to spare
// admin-precreated rooms that haven't hosted anyone yet.
func (r *Room) everEmptied() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.everJoined && len(r.users) == 0
}

// Subscription is a live handle to a Room's event stream.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Unsubscribe stops delivery and releases the subscriber slot.
func (s *Subscription) Unsubscribe() { s.cancel() }

// Subscribe registers a new listener with a bounded (eventBacklog),
// lossy buffer: a slow consumer silently drops its oldest queued event
// rather than blocking the publisher.
func (r *Room) Subscribe() *Subscription {
	ch := make(chan Event, eventBacklog)

	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = ch
	r.subMu.Unlock()

	return &Subscription{
		Events: ch,
		cancel: func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			if existing, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(existing)
			}
		},
	}
}

func (r *Room) publish(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		trySend(ch, ev)
	}
}

// trySend is a best-effort, drop-oldest-on-overflow send: if the channel
// is full it discards one queued event to make room rather than dropping
// the newest event.
func trySend(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

package room

import (
	"sync"

	"github.com/observer/sfu-core/internal/protocol"
)

// TrackMap is the per-user media-type → track-id slot table. It is owned
// by the Room (created in JoinUser) and handed to the Peer as a
// non-owning pointer, so both sides mutate the same structure without
// either one owning the other's lifetime.
type TrackMap struct {
	mu sync.RWMutex
	m  map[protocol.MediaType]string
}

func newTrackMap() *TrackMap {
	return &TrackMap{m: make(map[protocol.MediaType]string)}
}

// Get returns the track id occupying a media-type slot, if any.
func (t *TrackMap) Get(mt protocol.MediaType) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.m[mt]
	return id, ok
}

// Set occupies a media-type slot with a track id, overwriting any
// existing occupant. Callers that must reject a differing id on an
// occupied slot check Get first.
func (t *TrackMap) Set(mt protocol.MediaType, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[mt] = id
}

// DeleteIfEqual clears a slot only if it currently holds the given id,
// so removing a stale track can't clobber a newer one in the same slot.
func (t *TrackMap) DeleteIfEqual(mt protocol.MediaType, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m[mt] == id {
		delete(t.m, mt)
	}
}

// DeleteByID clears whichever slot currently holds id, regardless of
// media type — the retain-by-id discipline events.rs applies to its own
// track_map when a track is unregistered.
func (t *TrackMap) DeleteByID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for mt, existing := range t.m {
		if existing == id {
			delete(t.m, mt)
		}
	}
}

// Snapshot returns a copy of the current slot table.
func (t *TrackMap) Snapshot() map[protocol.MediaType]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[protocol.MediaType]string, len(t.m))
	for k, v := range t.m {
		out[k] = v
	}
	return out
}

package peer

import "github.com/observer/sfu-core/internal/media"

// Forwarder is a per (source-track, destination-peer) pipe: once
// constructed it owns a Sender and drains its RTCP so the library's
// interceptors (NACK etc.) can process feedback. Besides the Sender it
// holds only a done channel, closed when the drain loop exits — the
// interesting control flow lives in the Peer's AddTrack / RemoveTrack.
type Forwarder struct {
	sender *media.Sender
	done   chan struct{}
}

// newForwarder attaches localTrack to conn and spawns the RTCP drain
// loop: attach the track, then read RTCP in a loop until it errors.
func newForwarder(conn media.Conn, localTrack *media.LocalTrack) (*Forwarder, error) {
	sender, err := conn.AddTrack(localTrack)
	if err != nil {
		return nil, err
	}

	f := &Forwarder{sender: sender, done: make(chan struct{})}
	go f.drainRTCP()
	return f, nil
}

func (f *Forwarder) drainRTCP() {
	buf := make([]byte, 1500)
	for {
		if _, err := f.sender.Read(buf); err != nil {
			close(f.done)
			return
		}
	}
}

// close returns the underlying Sender so the caller can remove the
// track from the connection; it does not itself stop the drain loop,
// which exits on its own once the sender's reads start failing.
func (f *Forwarder) close() *media.Sender {
	return f.sender
}

// Package protocol defines the JSON wire types exchanged between a client
// and the session dispatcher over the duplex signaling channel.
package protocol

// MediaType is one of the four media slots a user can occupy per room.
type MediaType string

const (
	MediaAudio       MediaType = "Audio"
	MediaVideo       MediaType = "Video"
	MediaScreenAudio MediaType = "ScreenAudio"
	MediaScreenVideo MediaType = "ScreenVideo"
)

// RemoteTrack is the protocol projection of a published track.
type RemoteTrack struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MediaType MediaType `json:"media_type"`
}

// ICECandidate mirrors the browser-facing RTCIceCandidateInit shape.
// Unlike the rest of the protocol this is camelCase on the wire.
type ICECandidate struct {
	Candidate        string `json:"candidate"`
	SDPMid           string `json:"sdpMid,omitempty"`
	SDPMLineIndex    uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment string `json:"usernameFragment,omitempty"`
}

// SDPType distinguishes an offer from an answer in a Negotiation packet.
type SDPType string

const (
	SDPOffer  SDPType = "offer"
	SDPAnswer SDPType = "answer"
)

// SessionDescription is the minimal SDP envelope this protocol needs.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// Negotiation is the untagged C2S/S2C variant carrying either an SDP
// description or an ICE candidate. Exactly one of Description/Candidate
// is set; the `omitempty` struct tags give the untagged-union wire shape
// directly, with no custom MarshalJSON/UnmarshalJSON needed.
type Negotiation struct {
	Description     *SessionDescription `json:"description,omitempty"`
	MediaTypeBuffer []MediaType         `json:"media_type_buffer,omitempty"`
	Candidate       *ICECandidate       `json:"candidate,omitempty"`
}

// ServerError enumerates the stable string keys sent back to clients.
type ServerError string

const (
	ErrRoomNotFound         ServerError = "RoomNotFound"
	ErrTrackNotFound        ServerError = "TrackNotFound"
	ErrFailedToAuthenticate ServerError = "FailedToAuthenticate"
	ErrAlreadyConnected     ServerError = "AlreadyConnected"
	ErrNotConnected         ServerError = "NotConnected"
	ErrMediaTypeSatisfied   ServerError = "MediaTypeSatisfied"
)

func (e ServerError) Error() string { return string(e) }

// --- C2S packets ---

type ConnectPacket struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token"`
}

type RequestTrackPacket struct {
	Audio       *string `json:"audio,omitempty"`
	Video       *string `json:"video,omitempty"`
	ScreenAudio *string `json:"screen_audio,omitempty"`
	ScreenVideo *string `json:"screen_video,omitempty"`
}

type ContinuePacket struct {
	Tracks []string `json:"tracks"`
}

type RemovePacket struct {
	RemovedTracks []string `json:"removed_tracks"`
}

// --- S2C packets ---

type AcceptPacket struct {
	AvailableTracks []RemoteTrack `json:"available_tracks"`
	UserIDs         []string      `json:"user_ids"`
}

type AnnouncePacket struct {
	Track RemoteTrack `json:"track"`
}

type UserJoinPacket struct {
	UserID string `json:"user_id"`
}

type UserLeftPacket struct {
	UserID string `json:"user_id"`
}

type ErrorPacket struct {
	Error string `json:"error"`
}

// packetTypes are the `type` discriminator strings used on the wire.
const (
	TypeConnect      = "Connect"
	TypeRequestTrack = "RequestTrack"
	TypeContinue     = "Continue"
	TypeRemove       = "Remove"
	TypeNegotiation  = "Negotiation"
	TypeAccept       = "Accept"
	TypeAnnounce     = "Announce"
	TypeUserJoin     = "UserJoin"
	TypeUserLeft     = "UserLeft"
	TypeError        = "Error"
)

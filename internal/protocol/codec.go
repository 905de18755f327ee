package protocol

import (
	"encoding/json"
	"fmt"
)

// typeOnly peeks at the discriminator field without touching the rest of
// the payload.
type typeOnly struct {
	Type string `json:"type"`
}

// DecodeC2S parses one inbound text frame into its concrete packet type.
// The second return value is the `type` discriminator for switch dispatch.
func DecodeC2S(data []byte) (string, interface{}, error) {
	var head typeOnly
	if err := json.Unmarshal(data, &head); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch head.Type {
	case TypeConnect:
		var p ConnectPacket
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("decode Connect: %w", err)
		}
		return TypeConnect, p, nil
	case TypeRequestTrack:
		var p RequestTrackPacket
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("decode RequestTrack: %w", err)
		}
		return TypeRequestTrack, p, nil
	case TypeContinue:
		var p ContinuePacket
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("decode Continue: %w", err)
		}
		return TypeContinue, p, nil
	case TypeRemove:
		var p RemovePacket
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("decode Remove: %w", err)
		}
		return TypeRemove, p, nil
	case TypeNegotiation:
		var p Negotiation
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("decode Negotiation: %w", err)
		}
		return TypeNegotiation, p, nil
	default:
		return "", nil, fmt.Errorf("unknown packet type %q", head.Type)
	}
}

// encodeTagged flattens a typed field set alongside the `type` tag on
// encode, mirroring the source's serde(tag = "type") representation.
func encodeTagged(typ string, fields interface{}) ([]byte, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = json.RawMessage(fmt.Sprintf("%q", typ))
	return json.Marshal(m)
}

func EncodeAccept(p AcceptPacket) ([]byte, error)   { return encodeTagged(TypeAccept, p) }
func EncodeAnnounce(p AnnouncePacket) ([]byte, error) { return encodeTagged(TypeAnnounce, p) }
func EncodeContinue(p ContinuePacket) ([]byte, error) { return encodeTagged(TypeContinue, p) }
func EncodeRemove(p RemovePacket) ([]byte, error)     { return encodeTagged(TypeRemove, p) }
func EncodeUserJoin(p UserJoinPacket) ([]byte, error) { return encodeTagged(TypeUserJoin, p) }
func EncodeUserLeft(p UserLeftPacket) ([]byte, error) { return encodeTagged(TypeUserLeft, p) }
func EncodeError(p ErrorPacket) ([]byte, error)       { return encodeTagged(TypeError, p) }
func EncodeNegotiation(p Negotiation) ([]byte, error) { return encodeTagged(TypeNegotiation, p) }

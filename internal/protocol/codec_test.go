package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeC2SRequestTrackOptionalFields(t *testing.T) {
	raw := []byte(`{"type":"RequestTrack","audio":"a-1"}`)
	typ, packet, err := DecodeC2S(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != TypeRequestTrack {
		t.Fatalf("expected type RequestTrack, got %s", typ)
	}
	rt := packet.(RequestTrackPacket)
	if rt.Audio == nil || *rt.Audio != "a-1" {
		t.Errorf("expected audio a-1, got %+v", rt)
	}
	if rt.Video != nil {
		t.Errorf("expected video unset, got %v", *rt.Video)
	}
}

func TestDecodeC2SNegotiationUntagged(t *testing.T) {
	sdp := []byte(`{"type":"Negotiation","description":{"type":"offer","sdp":"v=0"}}`)
	typ, packet, err := DecodeC2S(sdp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != TypeNegotiation {
		t.Fatalf("expected Negotiation, got %s", typ)
	}
	neg := packet.(Negotiation)
	if neg.Description == nil || neg.Description.Type != SDPOffer {
		t.Errorf("expected offer description, got %+v", neg)
	}
	if neg.Candidate != nil {
		t.Errorf("expected no candidate, got %+v", neg.Candidate)
	}

	ice := []byte(`{"type":"Negotiation","candidate":{"candidate":"candidate:1 1 UDP 1 1.1.1.1 1 typ host","sdpMid":"0","sdpMLineIndex":0}}`)
	typ, packet, err = DecodeC2S(ice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	neg = packet.(Negotiation)
	if neg.Candidate == nil || neg.Description != nil {
		t.Errorf("expected candidate-only negotiation, got %+v", neg)
	}
	if typ != TypeNegotiation {
		t.Fatalf("expected Negotiation, got %s", typ)
	}
}

func TestDecodeC2SUnknownType(t *testing.T) {
	_, _, err := DecodeC2S([]byte(`{"type":"Bogus"}`))
	if err == nil {
		t.Fatal("expected error for unknown packet type")
	}
}

func TestEncodeAcceptIncludesType(t *testing.T) {
	out, err := EncodeAccept(AcceptPacket{
		AvailableTracks: []RemoteTrack{{ID: "a-1", UserID: "u1", MediaType: MediaAudio}},
		UserIDs:         []string{"u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	typ, packet, err := decodeForTest(out)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if typ != TypeAccept {
		t.Errorf("expected Accept type tag, got %s", typ)
	}
	_ = packet
}

func decodeForTest(data []byte) (string, map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, err
	}
	typ, _ := m["type"].(string)
	return typ, m, nil
}

package peer

import (
	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/protocol"
)

// Renegotiate fires on the negotiation-needed callback. The library
// doesn't expose an "implicit" SetLocalDescription like the browser API
// does, so we pick CreateOffer/CreateAnswer based on
// the current signaling state — Stable means we're starting a fresh
// offer, anything else means we're completing an answer already in flight.
func (p *Peer) Renegotiate() {
	p.mu.Lock()
	p.makingOffer = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.makingOffer = false
		p.mu.Unlock()
	}()

	var (
		desc media.SessionDescription
		err  error
	)
	if p.conn.SignalingState() == media.SignalingStateStable {
		desc, err = p.conn.CreateOffer()
	} else {
		desc, err = p.conn.CreateAnswer()
	}
	if err != nil {
		p.logger.Error("renegotiate: create local description", "error", err)
		return
	}

	if err := p.conn.SetLocalDescription(desc); err != nil {
		p.logger.Error("renegotiate: set local description", "error", err)
		return
	}

	p.signalOut(protocol.Negotiation{Description: sessionDescriptionToWire(desc)})
}

// ConsumeSDP applies an incoming SDP description: the impolite side of
// perfect negotiation. An incoming offer is discarded rather than
// rolled back when we're not ready for one.
func (p *Peer) ConsumeSDP(description protocol.SessionDescription) error {
	p.mu.Lock()
	readyForOffer := !p.makingOffer &&
		(p.conn.SignalingState() == media.SignalingStateStable || p.settingRemoteAnswerPending)
	offerCollision := description.Type == protocol.SDPOffer && !readyForOffer
	p.ignoreOffer = offerCollision
	if offerCollision {
		p.mu.Unlock()
		return nil
	}
	p.settingRemoteAnswerPending = description.Type == protocol.SDPAnswer
	p.mu.Unlock()

	err := p.conn.SetRemoteDescription(sessionDescriptionFromWire(description))

	p.mu.Lock()
	p.settingRemoteAnswerPending = false
	p.mu.Unlock()

	if err != nil {
		return err
	}

	if description.Type == protocol.SDPOffer {
		answer, err := p.conn.CreateAnswer()
		if err != nil {
			return err
		}
		if err := p.conn.SetLocalDescription(answer); err != nil {
			return err
		}
		p.signalOut(protocol.Negotiation{Description: sessionDescriptionToWire(answer)})
	}

	return nil
}

// ConsumeICE applies an incoming ICE candidate: a failure is swallowed
// when the most recent ConsumeSDP set ignoreOffer, since the candidate
// belongs to the offer we just discarded.
func (p *Peer) ConsumeICE(candidate protocol.ICECandidate) error {
	err := p.conn.AddICECandidate(media.ICECandidateInit{
		Candidate:        candidate.Candidate,
		SDPMid:           strPtr(candidate.SDPMid),
		SDPMLineIndex:    uint16Ptr(candidate.SDPMLineIndex),
		UsernameFragment: strPtr(candidate.UsernameFragment),
	})
	if err != nil {
		p.mu.Lock()
		ignore := p.ignoreOffer
		p.mu.Unlock()
		if ignore {
			return nil
		}
		return err
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uint16Ptr(v uint16) *uint16 { return &v }

func sessionDescriptionToWire(d media.SessionDescription) *protocol.SessionDescription {
	t := protocol.SDPOffer
	if d.Type == media.SDPTypeAnswer {
		t = protocol.SDPAnswer
	}
	return &protocol.SessionDescription{Type: t, SDP: d.SDP}
}

func sessionDescriptionFromWire(d protocol.SessionDescription) media.SessionDescription {
	t := media.SDPTypeOffer
	if d.Type == protocol.SDPAnswer {
		t = media.SDPTypeAnswer
	}
	return media.SessionDescription{Type: t, SDP: d.SDP}
}

// Package media wraps pion/webrtc behind the narrow surface the signaling
// core needs, so nothing above this package touches ICE/DTLS/SRTP or SDP
// parsing directly.
package media

import (
	"log/slog"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v3"
)

// Engine builds Connections with a shared ICE server list, port range, and
// codec/interceptor registry preconfigured.
type Engine struct {
	iceServers []webrtc.ICEServer
	settings   webrtc.SettingEngine
	api        *webrtc.API
	logger     *slog.Logger
}

// Config configures an Engine from the environment.
type Config struct {
	ICEServers []webrtc.ICEServer
	MinPort    uint16
	MaxPort    uint16
	// NAT1To1IPs is the announced-ip side of RTC_IPS pairs whose listen ip
	// is a private/any address.
	NAT1To1IPs []string
}

// NewEngine constructs an Engine with a MediaEngine, interceptor registry
// (NACK/RTCP-report generation, required for the Forwarder's RTCP drain to
// do anything useful), and a SettingEngine carrying the RTC_IPS/port-range
// configuration.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}

	settings := webrtc.SettingEngine{}
	settings.LoggerFactory = &slogLoggerFactory{logger: logger}
	if cfg.MinPort != 0 && cfg.MaxPort != 0 {
		if err := settings.SetEphemeralUDPPortRange(cfg.MinPort, cfg.MaxPort); err != nil {
			return nil, err
		}
	}
	if len(cfg.NAT1To1IPs) > 0 {
		settings.SetNAT1To1IPs(cfg.NAT1To1IPs, webrtc.ICECandidateTypeHost)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(settings),
	)

	return &Engine{
		iceServers: cfg.ICEServers,
		settings:   settings,
		api:        api,
		logger:     logger.With("component", "media"),
	}, nil
}

// NewConnection creates a fresh peer connection with this Engine's ICE
// servers and codec/interceptor configuration.
func (e *Engine) NewConnection() (*Connection, error) {
	pc, err := e.api.NewPeerConnection(webrtc.Configuration{ICEServers: e.iceServers})
	if err != nil {
		return nil, err
	}
	return &Connection{pc: pc}, nil
}

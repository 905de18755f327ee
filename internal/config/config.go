package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// RTCIPPair is one listen/announced IP pair parsed out of RTC_IPS.
type RTCIPPair struct {
	ListenIP   string
	AnnouncedIP string
}

// Config holds all application configuration.
// We use a struct (not globals) so it's testable and explicit.
type Config struct {
	HTTPHost     string
	WSURL        string
	ManageToken  string
	RTCIPs       []RTCIPPair
	RTCMinPort   uint16
	RTCMaxPort   uint16
	DisableRTP   bool
}

// Load reads configuration from environment variables and runs preflight
// checks, failing fast the same way the source's variables.rs does.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPHost: getEnvOrDefault("HTTP_HOST", "0.0.0.0:8080"),
	}

	if _, _, err := net.SplitHostPort(cfg.HTTPHost); err != nil {
		return nil, fmt.Errorf("HTTP_HOST environment variable is not a valid host:port: %w", err)
	}

	var missing []string

	cfg.WSURL = os.Getenv("WS_URL")
	if cfg.WSURL == "" {
		missing = append(missing, "WS_URL")
	}

	cfg.ManageToken = os.Getenv("MANAGE_TOKEN")
	if cfg.ManageToken == "" {
		missing = append(missing, "MANAGE_TOKEN")
	}

	rtcIPs := os.Getenv("RTC_IPS")
	if rtcIPs == "" {
		missing = append(missing, "RTC_IPS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	pairs, err := parseRTCIPs(rtcIPs)
	if err != nil {
		return nil, err
	}
	cfg.RTCIPs = pairs

	minPort, err := parsePort(getEnvOrDefault("RTC_MIN_PORT", "10000"))
	if err != nil {
		return nil, fmt.Errorf("RTC_MIN_PORT: %w", err)
	}
	maxPort, err := parsePort(getEnvOrDefault("RTC_MAX_PORT", "11000"))
	if err != nil {
		return nil, fmt.Errorf("RTC_MAX_PORT: %w", err)
	}
	cfg.RTCMinPort = minPort
	cfg.RTCMaxPort = maxPort

	cfg.DisableRTP = os.Getenv("DISABLE_RTP") == "1"

	return cfg, nil
}

// parseRTCIPs parses the semicolon-separated listen_ip[,announced_ip] pairs.
// A listen IP of 0.0.0.0 requires an announced IP.
func parseRTCIPs(raw string) ([]RTCIPPair, error) {
	var pairs []RTCIPPair
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ",", 2)
		listen := strings.TrimSpace(parts[0])
		var announced string
		if len(parts) == 2 {
			announced = strings.TrimSpace(parts[1])
		}
		if listen == "0.0.0.0" && announced == "" {
			return nil, fmt.Errorf("RTC_IPS: listen ip 0.0.0.0 requires an announced ip (got %q)", entry)
		}
		pairs = append(pairs, RTCIPPair{ListenIP: listen, AnnouncedIP: announced})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("RTC_IPS must contain at least one listen_ip[,announced_ip] pair")
	}
	return pairs, nil
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HTTP_HOST", "WS_URL", "MANAGE_TOKEN", "RTC_IPS", "RTC_MIN_PORT", "RTC_MAX_PORT", "DISABLE_RTP"} {
		os.Unsetenv(key)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when required env vars are missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("WS_URL", "ws://localhost:8080/ws")
	os.Setenv("MANAGE_TOKEN", "secret")
	os.Setenv("RTC_IPS", "127.0.0.1")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPHost != "0.0.0.0:8080" {
		t.Errorf("expected default HTTP_HOST, got %s", cfg.HTTPHost)
	}
	if cfg.RTCMinPort != 10000 || cfg.RTCMaxPort != 11000 {
		t.Errorf("expected default port range, got %d-%d", cfg.RTCMinPort, cfg.RTCMaxPort)
	}
	if cfg.DisableRTP {
		t.Error("expected DISABLE_RTP to default to false")
	}
}

func TestParseRTCIPs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    []RTCIPPair
	}{
		{
			name: "single listen ip",
			raw:  "192.168.1.1",
			want: []RTCIPPair{{ListenIP: "192.168.1.1"}},
		},
		{
			name: "listen and announced",
			raw:  "10.0.0.1,203.0.113.5",
			want: []RTCIPPair{{ListenIP: "10.0.0.1", AnnouncedIP: "203.0.113.5"}},
		},
		{
			name: "multiple pairs",
			raw:  "10.0.0.1,203.0.113.5;10.0.0.2,203.0.113.6",
			want: []RTCIPPair{
				{ListenIP: "10.0.0.1", AnnouncedIP: "203.0.113.5"},
				{ListenIP: "10.0.0.2", AnnouncedIP: "203.0.113.6"},
			},
		},
		{
			name:    "0.0.0.0 requires announced ip",
			raw:     "0.0.0.0",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRTCIPs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d pairs, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pair %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestLoadInvalidHTTPHost(t *testing.T) {
	clearEnv(t)
	os.Setenv("HTTP_HOST", "not-a-valid-host-port")
	os.Setenv("WS_URL", "ws://localhost:8080/ws")
	os.Setenv("MANAGE_TOKEN", "secret")
	os.Setenv("RTC_IPS", "127.0.0.1")
	defer clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid HTTP_HOST")
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/observer/sfu-core/internal/api"
	"github.com/observer/sfu-core/internal/auth"
	"github.com/observer/sfu-core/internal/config"
	"github.com/observer/sfu-core/internal/media"
	"github.com/observer/sfu-core/internal/middleware"
	"github.com/observer/sfu-core/internal/room"
	"github.com/observer/sfu-core/internal/server"
	"github.com/observer/sfu-core/internal/session"
	"github.com/pion/webrtc/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	jwtKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtKey == "" {
		jwtKey = "dev-signing-key-do-not-use-in-production!!"
		slog.Warn("JWT_SIGNING_KEY not set, using a development default - do not use in production")
	}
	authenticator, err := auth.NewJWTAuth(jwtKey)
	if err != nil {
		slog.Error("failed to construct JWT auth", "error", err)
		os.Exit(1)
	}

	engine, err := media.NewEngine(buildMediaConfig(cfg), logger)
	if err != nil {
		slog.Error("failed to construct media engine", "error", err)
		os.Exit(1)
	}

	registry := room.NewRegistry()
	dispatcher := session.NewDispatcher(registry, engine, authenticator.Authenticate, logger)

	roomHandler := api.NewRoomHandler(registry)
	limiter := middleware.NewRateLimiter(120)

	srv := server.New(cfg.HTTPHost, &server.Dependencies{
		Signaling:   dispatcher,
		RoomHandler: roomHandler,
		ManageToken: cfg.ManageToken,
		RateLimiter: limiter,
		Logger:      logger,
	})

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.HTTPHost)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down gracefully...")

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeoutCancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// buildMediaConfig translates the RTC_IPS/RTC_MIN_PORT/RTC_MAX_PORT
// environment configuration into the media engine's SettingEngine
// inputs.
func buildMediaConfig(cfg *config.Config) media.Config {
	iceServers := []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}

	if cfg.DisableRTP {
		// DISABLE_RTP exempts the engine from the announced-ip/port-range
		// constraints so it can run against a loopback-only test harness
		// with no real UDP connectivity.
		slog.Warn("DISABLE_RTP set: media engine running without port range or NAT1To1IP constraints")
		return media.Config{ICEServers: iceServers}
	}

	var announced []string
	for _, pair := range cfg.RTCIPs {
		if pair.AnnouncedIP != "" {
			announced = append(announced, pair.AnnouncedIP)
		}
	}

	return media.Config{
		ICEServers: iceServers,
		MinPort:    cfg.RTCMinPort,
		MaxPort:    cfg.RTCMaxPort,
		NAT1To1IPs: announced,
	}
}

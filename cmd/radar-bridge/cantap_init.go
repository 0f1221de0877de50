package main

import (
	"context"
	"log/slog"

	"github.com/kstaniek/radar-bridge/internal/can"
	"github.com/kstaniek/radar-bridge/internal/cantap"
	"github.com/kstaniek/radar-bridge/internal/cantap/hub"
	"github.com/kstaniek/radar-bridge/internal/cantap/transport"
	"github.com/kstaniek/radar-bridge/internal/metrics"
)

// initCantap wraps bus in a TapBus when the diagnostic tap is enabled,
// giving external tools read-only visibility into every frame the engine
// reads plus an injection path for test frames. When disabled, bus is
// returned unwrapped and the returned *cantap.TapBus is nil.
func initCantap(ctx context.Context, cfg *appConfig, bus can.Bus, l *slog.Logger) (can.Bus, *cantap.TapBus) {
	if !cfg.cantapEnable {
		return bus, nil
	}
	h := hub.New()
	h.OutBufSize = cfg.cantapHubBuffer
	switch cfg.cantapHubPolicy {
	case "kick":
		h.Policy = hub.PolicyKick
	default:
		h.Policy = hub.PolicyDrop
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError("cantap_inject_write")
			l.Warn("cantap_inject_error", "error", err)
		},
		OnDrop: func() error {
			metrics.IncError("cantap_inject_overflow")
			return cantap.ErrTapInjectOverflow
		},
	}
	tap := cantap.NewTapBus(ctx, bus, h, txQueueSize, hooks)
	l.Info("cantap_enabled", "hub_buffer", cfg.cantapHubBuffer, "hub_policy", cfg.cantapHubPolicy)
	return tap, tap
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/radar-bridge/internal/can"
)

// openBus opens the configured backend and returns it as a can.Bus the
// protocol engine owns exclusively, plus a cleanup to release it.
func openBus(cfg *appConfig, l *slog.Logger) (can.Bus, func(), error) {
	switch cfg.backend {
	case "serial":
		return openSerialBus(cfg, l)
	case "socketcan":
		return openSocketCANBus(cfg, l)
	default:
		return nil, func() {}, fmt.Errorf("unknown backend %q (use serial|socketcan)", cfg.backend)
	}
}

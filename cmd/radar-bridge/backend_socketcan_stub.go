//go:build !linux

package main

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/radar-bridge/internal/can"
)

// Placeholder so non-linux builds compile; socketcan not supported.
func openSocketCANBus(cfg *appConfig, l *slog.Logger) (can.Bus, func(), error) {
	return nil, func() {}, fmt.Errorf("socketcan backend unsupported on this platform")
}

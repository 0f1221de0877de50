//go:build linux

package main

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/radar-bridge/internal/can"
	"github.com/kstaniek/radar-bridge/internal/socketcan"
)

// openSocketCANDevice is a hook for tests (overridden in unit tests).
var openSocketCANDevice = func(iface string) (socketcan.Dev, error) { return socketcan.Open(iface) }

// openSocketCANBus opens the configured SocketCAN interface and returns it
// directly as a can.Bus: *socketcan.Device already satisfies the interface,
// so the protocol engine reads and writes it synchronously with no
// intervening RX loop.
func openSocketCANBus(cfg *appConfig, l *slog.Logger) (can.Bus, func(), error) {
	dev, err := openSocketCANDevice(cfg.canIf)
	if err != nil {
		return nil, func() {}, fmt.Errorf("socketcan open %s: %w", cfg.canIf, err)
	}
	l.Info("socketcan_open", "if", cfg.canIf)
	return dev, func() { _ = dev.Close() }, nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/radar-bridge/internal/can"
	"github.com/kstaniek/radar-bridge/internal/serial"
)

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// openSerialBus opens the configured serial port and wraps it as a
// synchronous can.Bus: the protocol engine drives it with request/response
// exchanges and target-frame reads, so there is no background RX loop here.
func openSerialBus(cfg *appConfig, l *slog.Logger) (can.Bus, func(), error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)
	bus := serial.NewBus(sp)
	return bus, func() { _ = sp.Close() }, nil
}

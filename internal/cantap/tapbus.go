// Package cantap adapts the teacher's Cannelloni TCP relay stack (cnl
// codec, hub, server, async-tx writer) into an optional diagnostic tap on
// the radar's CAN bus: every frame the protocol engine reads is mirrored to
// connected tap clients, and clients may inject frames back onto the bus.
package cantap

import (
	"context"
	"errors"

	"github.com/kstaniek/radar-bridge/internal/can"
	"github.com/kstaniek/radar-bridge/internal/cantap/hub"
	"github.com/kstaniek/radar-bridge/internal/cantap/transport"
)

// ErrTapInjectOverflow is returned by Inject when the injection queue is full.
var ErrTapInjectOverflow = errors.New("cantap: injection queue full")

// TapBus wraps a real can.Bus so the engine's normal synchronous traffic is
// unaffected while every read is also broadcast to tap clients. Frames
// injected by tap clients go through a single AsyncTx fan-in writer so
// concurrent clients never race each other on the wire; the engine's own
// writes bypass it entirely, preserving its exclusive-ownership contract.
type TapBus struct {
	inner can.Bus
	hub   *hub.Hub
	tx    *transport.AsyncTx
}

// NewTapBus wires inner to hub for read observation and to an AsyncTx for
// client-injected writes. Hooks customize the AsyncTx's error/success
// reporting the same way the serial and SocketCAN backends do.
func NewTapBus(ctx context.Context, inner can.Bus, h *hub.Hub, txBuf int, hooks transport.Hooks) *TapBus {
	tx := transport.NewAsyncTx(ctx, txBuf, inner.WriteFrame, hooks)
	return &TapBus{inner: inner, hub: h, tx: tx}
}

// ReadFrame reads the next frame from the underlying bus and mirrors it to
// every connected tap client.
func (t *TapBus) ReadFrame(fr *can.Frame) error {
	if err := t.inner.ReadFrame(fr); err != nil {
		return err
	}
	t.hub.Broadcast(*fr)
	return nil
}

// WriteFrame writes directly to the underlying bus, bypassing the tap's
// AsyncTx: this is the engine's own synchronous write path and must not be
// reordered or dropped by tap congestion.
func (t *TapBus) WriteFrame(fr can.Frame) error {
	return t.inner.WriteFrame(fr)
}

// Inject queues fr for asynchronous transmission on behalf of a tap client.
// Returns the AsyncTx's drop error if the injection queue is full.
func (t *TapBus) Inject(fr can.Frame) error {
	return t.tx.SendFrame(fr)
}

// Close stops the injection writer. The underlying bus is closed by its
// owner, not by TapBus.
func (t *TapBus) Close() { t.tx.Close() }

// Hub returns the hub tap clients attach to.
func (t *TapBus) Hub() *hub.Hub { return t.hub }

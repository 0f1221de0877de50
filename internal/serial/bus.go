package serial

import (
	"bytes"
	"fmt"

	"github.com/kstaniek/radar-bridge/internal/can"
)

// Bus adapts a Port plus Codec into the synchronous can.Bus contract the
// protocol engine needs. DecodeStream may produce more than one frame from
// a single underlying Read; extras are queued for subsequent ReadFrame
// calls rather than discarded.
type Bus struct {
	port    Port
	codec   Codec
	buf     bytes.Buffer
	queue   []can.Frame
	scratch [256]byte
}

// NewBus wraps an open serial Port as a can.Bus.
func NewBus(port Port) *Bus {
	return &Bus{port: port}
}

// ReadFrame returns the next decoded CAN frame, reading and decoding more
// bytes from the underlying port as needed.
func (b *Bus) ReadFrame(fr *can.Frame) error {
	for len(b.queue) == 0 {
		n, err := b.port.Read(b.scratch[:])
		if err != nil {
			return fmt.Errorf("serial bus read: %w", err)
		}
		if n == 0 {
			continue
		}
		b.buf.Write(b.scratch[:n])
		if err := b.codec.DecodeStream(&b.buf, func(f can.Frame) {
			b.queue = append(b.queue, f)
		}); err != nil {
			return fmt.Errorf("serial bus decode: %w", err)
		}
	}
	*fr = b.queue[0]
	b.queue = b.queue[1:]
	return nil
}

// WriteFrame encodes and writes one CAN frame to the underlying port.
func (b *Bus) WriteFrame(fr can.Frame) error {
	_, err := b.port.Write(b.codec.Encode(fr))
	return err
}

package udpingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kstaniek/radar-bridge/internal/metrics"
)

// pollInterval bounds how long a single ReadFromUDP call blocks before Run
// re-checks ctx: short enough that cancellation is prompt, long enough that
// a quiet socket doesn't busy-loop.
const pollInterval = 200 * time.Millisecond

// maxPacketSize comfortably covers one SMS cube-data UDP datagram
// (transport + debug + port + cube headers plus one payload chunk).
const maxPacketSize = 1458

// minReceiveBuffer is the best-effort SO_RCVBUF floor: below this the
// kernel socket buffer can't absorb a burst of back-to-back cube frames
// without drops under load.
const minReceiveBuffer = 2 * 1024 * 1024

// defaultQueueCapacity bounds the receiver's packet queue. Once full, the
// oldest queued packet is dropped to make room for the newest one: a stale
// cube chunk is worse than a missing one (the reassembler already handles
// gaps), but an unbounded queue would let a slow consumer exhaust memory.
const defaultQueueCapacity = 128

// Receiver reads datagrams from one UDP socket into a bounded queue a
// single consumer goroutine drains with Packets.
type Receiver struct {
	socket Socket
	logger *slog.Logger
	out    chan []byte
	dropped uint64
}

// Open binds a UDP socket on addr via factory and wraps it in a Receiver.
// Enlarging the receive buffer is best-effort: failure is logged, never
// fatal, mirroring the teacher's CAN_RAW_FD_FRAMES sockopt probe.
func Open(factory SocketFactory, addr *net.UDPAddr, logger *slog.Logger) (*Receiver, error) {
	sock, err := factory.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udpingress: listen %s: %w", addr, err)
	}
	if err := sock.SetReadBuffer(minReceiveBuffer); err != nil {
		logger.Warn("udpingress: could not enlarge receive buffer", "addr", addr, "err", err)
	}
	return NewReceiver(sock, logger), nil
}

// NewReceiver wraps an already-open Socket.
func NewReceiver(sock Socket, logger *slog.Logger) *Receiver {
	return &Receiver{
		socket: sock,
		logger: logger,
		out:    make(chan []byte, defaultQueueCapacity),
	}
}

// Packets returns the channel Run publishes received datagrams on.
func (r *Receiver) Packets() <-chan []byte { return r.out }

// Dropped returns the count of packets dropped so far because Packets'
// consumer fell behind.
func (r *Receiver) Dropped() uint64 { return r.dropped }

// Close releases the underlying socket.
func (r *Receiver) Close() error { return r.socket.Close() }

// Run reads datagrams until ctx is cancelled or the socket errors, pushing
// each one onto the bounded out channel and dropping the oldest queued
// packet when it is full.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.socket.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return fmt.Errorf("udpingress: set read deadline: %w", err)
		}

		buf := make([]byte, maxPacketSize)
		n, _, err := r.socket.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("udpingress: read: %w", err)
		}
		if n == 0 {
			continue
		}
		pkt := buf[:n]

		select {
		case r.out <- pkt:
		default:
			select {
			case <-r.out:
				r.dropped++
				metrics.IncIngressDropped(r.socket.LocalAddr().String())
			default:
			}
			select {
			case r.out <- pkt:
			default:
				r.dropped++
				metrics.IncIngressDropped(r.socket.LocalAddr().String())
			}
		}
	}
}

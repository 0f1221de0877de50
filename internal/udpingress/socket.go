// Package udpingress is the dual-port UDP receiver for the SMS cube
// transport: one socket per configured port, each feeding a bounded,
// drop-oldest packet queue a single consumer goroutine drains.
package udpingress

import (
	"net"
	"time"
)

// Socket is the subset of UDP socket operations the receiver needs,
// abstracted so tests can drive it without a real network stack.
type Socket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// SocketFactory creates a Socket bound to an address.
type SocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (Socket, error)
}

// RealSocket wraps *net.UDPConn to implement Socket.
type RealSocket struct {
	conn *net.UDPConn
}

// NewRealSocket wraps an already-open *net.UDPConn.
func NewRealSocket(conn *net.UDPConn) *RealSocket {
	return &RealSocket{conn: conn}
}

func (r *RealSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) { return r.conn.ReadFromUDP(b) }
func (r *RealSocket) SetReadBuffer(bytes int) error                   { return r.conn.SetReadBuffer(bytes) }
func (r *RealSocket) SetReadDeadline(t time.Time) error               { return r.conn.SetReadDeadline(t) }
func (r *RealSocket) Close() error                                    { return r.conn.Close() }
func (r *RealSocket) LocalAddr() net.Addr                             { return r.conn.LocalAddr() }

// RealSocketFactory implements SocketFactory using net.ListenUDP.
type RealSocketFactory struct{}

// ListenUDP opens a real UDP socket.
func (RealSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (Socket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return NewRealSocket(conn), nil
}

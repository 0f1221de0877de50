package udpingress

import (
	"net"
	"time"
)

// MockPacket is one packet a MockSocket replays from ReadFromUDP.
type MockPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

// MockSocket implements Socket over a fixed packet list, for tests that
// exercise Receiver without a real network stack.
type MockSocket struct {
	Packets        []MockPacket
	ReadIndex      int
	Closed         bool
	ReadBufferSize int
	ReadError      error
}

// NewMockSocket returns a MockSocket that replays packets in order.
func NewMockSocket(packets []MockPacket) *MockSocket {
	return &MockSocket{Packets: packets}
}

func (m *MockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Packets) {
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: &timeoutError{}}
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	n := copy(b, pkt.Data)
	return n, pkt.Addr, nil
}

func (m *MockSocket) SetReadBuffer(bytes int) error {
	m.ReadBufferSize = bytes
	return nil
}

func (m *MockSocket) SetReadDeadline(time.Time) error { return nil }

func (m *MockSocket) Close() error {
	m.Closed = true
	return nil
}

func (m *MockSocket) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}
}

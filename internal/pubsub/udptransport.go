package pubsub

import (
	"context"
	"fmt"
	"net"
)

// UDPTransport is the default Transport: it sends every payload as a single
// UDP datagram to one fixed destination, prefixed with a length-delimited
// topic name so one socket can carry every topic this process publishes.
// Nothing in the retrieval pack ships a pub/sub client, and the choice of
// wire transport is explicitly out of scope; this exists only so Session has
// somewhere to send bytes in the reference binary.
type UDPTransport struct {
	conn *net.UDPConn
}

// maxTopicLen keeps the length-prefixed topic name inside one byte's worth
// of addressing headroom; no configured topic name comes close.
const maxTopicLen = 255

// DialUDPTransport opens a UDP socket connected to addr (host:port, may be a
// multicast group) and returns a Transport that writes every Send there.
func DialUDPTransport(addr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("pubsub: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("pubsub: dial %q: %w", addr, err)
	}
	return &UDPTransport{conn: conn}, nil
}

// Send writes one datagram: a 1-byte topic length, the topic bytes, then
// payload. ctx is accepted to satisfy Transport but UDP writes never block
// long enough to need cancellation.
func (t *UDPTransport) Send(_ context.Context, topic string, payload []byte) error {
	if len(topic) > maxTopicLen {
		return fmt.Errorf("pubsub: topic %q exceeds %d bytes", topic, maxTopicLen)
	}
	buf := make([]byte, 1+len(topic)+len(payload))
	buf[0] = byte(len(topic))
	copy(buf[1:], topic)
	copy(buf[1+len(topic):], payload)
	_, err := t.conn.Write(buf)
	return err
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// DecodeUDPEnvelope splits a datagram produced by UDPTransport.Send back
// into its topic and payload. It is the receiving counterpart used by
// tooling that consumes this process's UDP stream directly.
func DecodeUDPEnvelope(pkt []byte) (topic string, payload []byte, err error) {
	if len(pkt) < 1 {
		return "", nil, fmt.Errorf("pubsub: empty envelope")
	}
	n := int(pkt[0])
	if len(pkt) < 1+n {
		return "", nil, fmt.Errorf("pubsub: truncated topic (want %d bytes)", n)
	}
	return string(pkt[1 : 1+n]), pkt[1+n:], nil
}

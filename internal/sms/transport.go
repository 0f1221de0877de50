package sms

import (
	"encoding/binary"
)

const startPattern byte = 0x7E

// Transport header optional-field presence bits, taken from the low byte of
// the flags word.
const (
	FlagMessageCounter uint32 = 0x01
	FlagClientID       uint32 = 0x08
	FlagDataID         uint32 = 0x20
	FlagSegmentation   uint32 = 0x40
)

// TransportHeader is the variable-length (12-22 byte) header that fronts
// every SMS UDP packet. Optional fields are valid only when the
// corresponding Flag bit is set in Flags.
type TransportHeader struct {
	ProtocolVersion     uint8
	HeaderLength        uint8
	PayloadLength       uint16
	ApplicationProtocol uint8
	Flags               uint32

	MessageCounter  uint16
	ClientID        uint32
	DataID          uint16
	Segmentation    uint16

	CRC uint16
}

var (
	ErrBadStartPattern = errorString("sms: transport header start_pattern != 0x7E")
	ErrBadHeaderLength = errorString("sms: transport header header_length does not match decoded length")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// DecodeTransportHeader parses the variable-length transport header fronting
// b. It returns the header and the number of bytes it occupies (including
// the trailing CRC), so callers can slice the remainder of the packet as the
// application payload.
func DecodeTransportHeader(b []byte) (TransportHeader, int, error) {
	const fixedLen = 1 + 1 + 1 + 2 + 1 + 4 // start+version+hlen+plen+appproto+flags
	if len(b) < fixedLen+2 {
		return TransportHeader{}, 0, ErrUndersized
	}
	if b[0] != startPattern {
		return TransportHeader{}, 0, ErrBadStartPattern
	}
	h := TransportHeader{
		ProtocolVersion:     b[1],
		HeaderLength:        b[2],
		PayloadLength:       binary.BigEndian.Uint16(b[3:5]),
		ApplicationProtocol: b[5],
		Flags:               binary.BigEndian.Uint32(b[6:10]),
	}

	off := fixedLen
	if h.Flags&FlagMessageCounter != 0 {
		if len(b) < off+2 {
			return TransportHeader{}, 0, ErrUndersized
		}
		h.MessageCounter = binary.BigEndian.Uint16(b[off : off+2])
		off += 2
	}
	if h.Flags&FlagClientID != 0 {
		if len(b) < off+4 {
			return TransportHeader{}, 0, ErrUndersized
		}
		h.ClientID = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}
	if h.Flags&FlagDataID != 0 {
		if len(b) < off+2 {
			return TransportHeader{}, 0, ErrUndersized
		}
		h.DataID = binary.BigEndian.Uint16(b[off : off+2])
		off += 2
	}
	if h.Flags&FlagSegmentation != 0 {
		if len(b) < off+2 {
			return TransportHeader{}, 0, ErrUndersized
		}
		h.Segmentation = binary.BigEndian.Uint16(b[off : off+2])
		off += 2
	}

	if len(b) < off+2 {
		return TransportHeader{}, 0, ErrUndersized
	}
	h.CRC = binary.BigEndian.Uint16(b[off : off+2])
	off += 2

	if int(h.HeaderLength) != off {
		return h, off, ErrBadHeaderLength
	}
	if int(h.HeaderLength)+int(h.PayloadLength) > len(b) {
		return h, off, ErrUndersized
	}
	return h, off, nil
}

// EncodeTransportHeader is the inverse of DecodeTransportHeader, used by
// loopback test harnesses. CRC is written verbatim from h.CRC; callers that
// need a self-consistent checksum must compute it themselves over the
// encoded bytes with the CRC field excluded.
func EncodeTransportHeader(h TransportHeader) []byte {
	buf := make([]byte, 0, 22)
	buf = append(buf, startPattern, h.ProtocolVersion, h.HeaderLength)
	var plen, flags [4]byte
	binary.BigEndian.PutUint16(plen[:2], h.PayloadLength)
	buf = append(buf, plen[:2]...)
	buf = append(buf, h.ApplicationProtocol)
	binary.BigEndian.PutUint32(flags[:], h.Flags)
	buf = append(buf, flags[:]...)

	if h.Flags&FlagMessageCounter != 0 {
		var f [2]byte
		binary.BigEndian.PutUint16(f[:], h.MessageCounter)
		buf = append(buf, f[:]...)
	}
	if h.Flags&FlagClientID != 0 {
		var f [4]byte
		binary.BigEndian.PutUint32(f[:], h.ClientID)
		buf = append(buf, f[:]...)
	}
	if h.Flags&FlagDataID != 0 {
		var f [2]byte
		binary.BigEndian.PutUint16(f[:], h.DataID)
		buf = append(buf, f[:]...)
	}
	if h.Flags&FlagSegmentation != 0 {
		var f [2]byte
		binary.BigEndian.PutUint16(f[:], h.Segmentation)
		buf = append(buf, f[:]...)
	}

	var crc [2]byte
	binary.BigEndian.PutUint16(crc[:], h.CRC)
	buf = append(buf, crc[:]...)
	return buf
}

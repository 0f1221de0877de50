package uat

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Standard CAN IDs used by the UATv4 protocol (see external interfaces).
const (
	IDInstruction uint32 = 0x3FB // outbound instruction triplet
	IDResponse    uint32 = 0x700 // inbound response quadruplet
)

// UAT_ID values observed on the sensor.
const (
	UATIDCommand        uint16 = 1000
	UATIDParameterReadWrite uint16 = 2010
	UATIDStatusRead      uint16 = 2012
)

const requiredProtocolVersion uint8 = 5

var (
	// ErrUndersized is returned by any Decode function given fewer than 8 bytes.
	ErrUndersized = errors.New("uat: frame payload shorter than 8 bytes")
)

// InstructionHeader is frame 0 of the outbound instruction triplet.
type InstructionHeader struct {
	UATID           uint16
	MessageIndex    uint8
	ProtocolVersion uint8
	DeviceID        uint8
	Instructions    uint8
	CRC             uint16
}

// Message1 is frame 1 of the outbound instruction triplet.
type Message1 struct {
	UATID        uint16
	MessageIndex uint8
	MessageType  uint8
	Parnum       uint16
	Dim0         uint8
	Dim1         uint8
}

// Message2 is frame 2 of the outbound instruction triplet.
type Message2 struct {
	UATID        uint16
	MessageIndex uint8
	Format       uint8
	Value        uint32
}

// EncodeHeader serializes an InstructionHeader into 8 little-endian bytes,
// with the CRC field as given (callers compute CRC via CRC16 first).
func EncodeHeader(h InstructionHeader) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint16(b[0:2], h.UATID)
	b[2] = h.MessageIndex
	b[3] = h.ProtocolVersion
	b[4] = h.DeviceID
	b[5] = h.Instructions
	binary.LittleEndian.PutUint16(b[6:8], h.CRC)
	return b
}

// DecodeHeader parses an 8-byte frame into an InstructionHeader.
func DecodeHeader(b []byte) (InstructionHeader, error) {
	if len(b) < 8 {
		return InstructionHeader{}, ErrUndersized
	}
	return InstructionHeader{
		UATID:           binary.LittleEndian.Uint16(b[0:2]),
		MessageIndex:    b[2],
		ProtocolVersion: b[3],
		DeviceID:        b[4],
		Instructions:    b[5],
		CRC:             binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// EncodeMessage1 serializes Message1 into 8 little-endian bytes.
func EncodeMessage1(m Message1) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint16(b[0:2], m.UATID)
	b[2] = m.MessageIndex
	b[3] = m.MessageType
	binary.LittleEndian.PutUint16(b[4:6], m.Parnum)
	b[6] = m.Dim0
	b[7] = m.Dim1
	return b
}

// DecodeMessage1 parses an 8-byte frame into Message1.
func DecodeMessage1(b []byte) (Message1, error) {
	if len(b) < 8 {
		return Message1{}, ErrUndersized
	}
	return Message1{
		UATID:        binary.LittleEndian.Uint16(b[0:2]),
		MessageIndex: b[2],
		MessageType:  b[3],
		Parnum:       binary.LittleEndian.Uint16(b[4:6]),
		Dim0:         b[6],
		Dim1:         b[7],
	}, nil
}

// EncodeMessage2 serializes Message2 into 8 little-endian bytes.
func EncodeMessage2(m Message2) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint16(b[0:2], m.UATID)
	b[2] = m.MessageIndex
	b[3] = m.Format
	binary.LittleEndian.PutUint32(b[4:8], m.Value)
	return b
}

// DecodeMessage2 parses an 8-byte frame into Message2.
func DecodeMessage2(b []byte) (Message2, error) {
	if len(b) < 8 {
		return Message2{}, ErrUndersized
	}
	return Message2{
		UATID:        binary.LittleEndian.Uint16(b[0:2]),
		MessageIndex: b[2],
		Format:       b[3],
		Value:        binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// ComputeCRC computes the instruction triplet's CRC-16/CCITT-FALSE over the
// 22-byte concatenation header[..6] ‖ frame1[..8] ‖ frame2[..8], with the
// header's CRC field treated as zero during calculation.
func ComputeCRC(h InstructionHeader, m1 Message1, m2 Message2) uint16 {
	var buf [22]byte
	hb := EncodeHeader(h)
	copy(buf[0:6], hb[0:6])
	m1b := EncodeMessage1(m1)
	copy(buf[6:14], m1b[:])
	m2b := EncodeMessage2(m2)
	copy(buf[14:22], m2b[:])
	return CRC16(buf[:])
}

// EncodeTriplet builds the three 8-byte CAN payloads for an instruction,
// computing and filling in the header's CRC field.
func EncodeTriplet(h InstructionHeader, m1 Message1, m2 Message2) (f0, f1, f2 [8]byte) {
	h.CRC = ComputeCRC(h, m1, m2)
	return EncodeHeader(h), EncodeMessage1(m1), EncodeMessage2(m2)
}

// Response is the decoded form of a UATv4 response quadruplet. The wire
// layout mirrors the instruction triplet's header and message1 frames for
// frames 0-1 (so a response can be matched to its originating instruction by
// MessageIndex/Parnum), with frame 2 carrying the result code and frame 3
// carrying the (possibly wider) returned value. This split is not pinned by
// any on-wire documentation recovered for this sensor generation; it is
// chosen so Result and Value decode independently of each other.
type Response struct {
	Header   InstructionHeader
	Message1 Message1
	Result   uint8
	Value    uint32
}

// ResponseFrame2 is the third frame of a response quadruplet.
type ResponseFrame2 struct {
	UATID        uint16
	MessageIndex uint8
	Format       uint8
	Result       uint8
}

// ResponseFrame3 is the fourth frame of a response quadruplet.
type ResponseFrame3 struct {
	UATID        uint16
	MessageIndex uint8
	Value        uint32
}

// DecodeResponseFrame2 parses the third response frame.
func DecodeResponseFrame2(b []byte) (ResponseFrame2, error) {
	if len(b) < 8 {
		return ResponseFrame2{}, ErrUndersized
	}
	return ResponseFrame2{
		UATID:        binary.LittleEndian.Uint16(b[0:2]),
		MessageIndex: b[2],
		Format:       b[3],
		Result:       b[4],
	}, nil
}

// DecodeResponseFrame3 parses the fourth response frame.
func DecodeResponseFrame3(b []byte) (ResponseFrame3, error) {
	if len(b) < 8 {
		return ResponseFrame3{}, ErrUndersized
	}
	return ResponseFrame3{
		UATID:        binary.LittleEndian.Uint16(b[0:2]),
		MessageIndex: b[2],
		Value:        binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// DecodeResponseQuadruplet assembles the four consecutive 0x700 frames of
// one response into a Response, validating the header's protocol_version
// and surfacing a non-zero result byte as *UATError.
func DecodeResponseQuadruplet(f0, f1, f2, f3 []byte) (Response, error) {
	h, err := DecodeHeader(f0)
	if err != nil {
		return Response{}, err
	}
	if err := ValidateProtocolVersion(h.ProtocolVersion); err != nil {
		return Response{}, err
	}
	m1, err := DecodeMessage1(f1)
	if err != nil {
		return Response{}, err
	}
	rf2, err := DecodeResponseFrame2(f2)
	if err != nil {
		return Response{}, err
	}
	rf3, err := DecodeResponseFrame3(f3)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Header: h, Message1: m1, Result: rf2.Result, Value: rf3.Value}
	if rf2.Result != 0 {
		return resp, &UATError{Result: rf2.Result}
	}
	return resp, nil
}

// Errors surfaced while assembling/validating a response quadruplet.
var (
	ErrUATCRCError           = errors.New("uat: peer reported CRC error (protocol_version 2)")
	ErrUATProtocolUnsupported = errors.New("uat: unsupported protocol_version")
)

// UATProtocolUnsupportedError carries the offending version.
type UATProtocolUnsupportedError struct{ Version uint8 }

func (e *UATProtocolUnsupportedError) Error() string {
	return fmt.Sprintf("uat: unsupported protocol_version %d", e.Version)
}
func (e *UATProtocolUnsupportedError) Is(target error) bool {
	return target == ErrUATProtocolUnsupported
}

// UATError wraps a non-zero result byte from a response frame 2.
type UATError struct{ Result uint8 }

func (e *UATError) Error() string { return fmt.Sprintf("uat: device reported error result=%d", e.Result) }

// ValidateProtocolVersion implements the version disposition table from the
// CAN protocol engine design: ==5 is required, ==2 is a CRC error, anything
// else is unsupported.
func ValidateProtocolVersion(v uint8) error {
	switch v {
	case requiredProtocolVersion:
		return nil
	case 2:
		return ErrUATCRCError
	default:
		return &UATProtocolUnsupportedError{Version: v}
	}
}

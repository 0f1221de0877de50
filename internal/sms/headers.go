// Package sms decodes the Smart Micro Sensor (SMS) UDP wire headers: the
// variable-length transport header, the fixed debug/port/cube headers, and
// the bin-properties trailer. All multi-byte integers are big-endian.
package sms

import (
	"encoding/binary"
	"errors"
	"math"
)

// Debug header flag values (application_protocol 5, "debug port").
const (
	FlagFrameData    uint8 = 0
	FlagStartOfFrame uint8 = 1
	FlagEndOfData    uint8 = 2
	FlagFrameFooter  uint8 = 3
)

// Application protocol codes carried in the transport header.
const (
	AppProtocolDebugPort  uint8 = 5 // debug header precedes the port header
	AppProtocolDirectPort uint8 = 8 // no debug header
)

var (
	ErrUndersized          = errors.New("sms: payload too short for fixed header")
	ErrInvalidDebugFlags   = errors.New("sms: debug header flags not in {0,1,2,3}")
)

// DebugHeader is the 8-byte debug header (precedes the port header when
// application_protocol == AppProtocolDebugPort).
type DebugHeader struct {
	FrameCounter uint32
	Flags        uint8
	FrameDelay   uint8
}

const DebugHeaderLen = 8

// DecodeDebugHeader parses the fixed 8-byte debug header.
func DecodeDebugHeader(b []byte) (DebugHeader, error) {
	if len(b) < DebugHeaderLen {
		return DebugHeader{}, ErrUndersized
	}
	h := DebugHeader{
		FrameCounter: binary.BigEndian.Uint32(b[0:4]),
		Flags:        b[4],
		FrameDelay:   b[5],
	}
	switch h.Flags {
	case FlagFrameData, FlagStartOfFrame, FlagEndOfData, FlagFrameFooter:
	default:
		return h, ErrInvalidDebugFlags
	}
	return h, nil
}

// PortHeader is the 24-byte port header.
type PortHeader struct {
	ID             uint32
	IfVerMajor     uint16
	IfVerMinor     uint16
	Timestamp      uint64
	Size           uint32
	Endianess      uint8
	Index          uint8
	HeaderVerMajor uint8
	HeaderVerMinor uint8
}

const PortHeaderLen = 24

// DecodePortHeader parses the fixed 24-byte port header.
func DecodePortHeader(b []byte) (PortHeader, error) {
	if len(b) < PortHeaderLen {
		return PortHeader{}, ErrUndersized
	}
	return PortHeader{
		ID:             binary.BigEndian.Uint32(b[0:4]),
		IfVerMajor:     binary.BigEndian.Uint16(b[4:6]),
		IfVerMinor:     binary.BigEndian.Uint16(b[6:8]),
		Timestamp:      binary.BigEndian.Uint64(b[8:16]),
		Size:           binary.BigEndian.Uint32(b[16:20]),
		Endianess:      b[20],
		Index:          b[21],
		HeaderVerMajor: b[22],
		HeaderVerMinor: b[23],
	}, nil
}

// CubeHeader is the 40-byte (+ optional padding, START_OF_FRAME only) cube
// sub-header describing the shape of the in-flight radar cube. The six
// leading 4-byte fields are vendor-internal buffer offsets, parsed but
// otherwise unused by the reassembler.
type CubeHeader struct {
	Offsets       [6]uint32
	RangeGates    uint16
	FirstRangeGate uint16
	DopplerBins   uint16
	RxChannels    uint8
	ChirpTypes    uint8
	ElementSize   uint8
	ElementType   uint8
	PaddingBytes  uint8
}

const CubeHeaderLen = 40

// DecodeCubeHeader parses the fixed 40-byte cube header.
func DecodeCubeHeader(b []byte) (CubeHeader, error) {
	if len(b) < CubeHeaderLen {
		return CubeHeader{}, ErrUndersized
	}
	var h CubeHeader
	for i := 0; i < 6; i++ {
		h.Offsets[i] = binary.BigEndian.Uint32(b[i*4 : i*4+4])
	}
	h.RangeGates = binary.BigEndian.Uint16(b[24:26])
	h.FirstRangeGate = binary.BigEndian.Uint16(b[26:28])
	h.DopplerBins = binary.BigEndian.Uint16(b[28:30])
	h.RxChannels = b[30]
	h.ChirpTypes = b[31]
	h.ElementSize = b[32]
	h.ElementType = b[33]
	h.PaddingBytes = b[39]
	return h, nil
}

// BinProperties is the 12-byte frame-footer trailer.
type BinProperties struct {
	SpeedPerBin float32
	RangePerBin float32
	BinPerSpeed float32
}

const BinPropertiesLen = 12

// DecodeBinProperties parses the fixed 12-byte bin-properties body.
func DecodeBinProperties(b []byte) (BinProperties, error) {
	if len(b) < BinPropertiesLen {
		return BinProperties{}, ErrUndersized
	}
	return BinProperties{
		SpeedPerBin: decodeBEFloat32(b[0:4]),
		RangePerBin: decodeBEFloat32(b[4:8]),
		BinPerSpeed: decodeBEFloat32(b[8:12]),
	}, nil
}

func decodeBEFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func encodeBEFloat32(v float32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	return b
}

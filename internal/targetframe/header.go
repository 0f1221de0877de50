// Package targetframe decodes the CAN target-channel bit streams: the
// little-endian u64 cycle header (ID 0x400) and the two-packet-per-target
// polar detection records (IDs 0x401..0x401+n).
package targetframe

import (
	"encoding/binary"
	"errors"
)

// ErrUndersized is returned when a payload is shorter than the fixed 8 bytes
// every CAN target-channel frame carries.
var ErrUndersized = errors.New("targetframe: frame payload shorter than 8 bytes")

// HeaderTag selects which of the three sub-headers a 0x400 frame carries.
type HeaderTag uint8

const (
	HeaderTagCycle    HeaderTag = 0
	HeaderTagReserved1 HeaderTag = 1
	HeaderTagReserved2 HeaderTag = 2
)

// Header is the decoded form of sub-header 0: the per-cycle metadata that
// precedes a target list.
type Header struct {
	CycleDuration    float64 // seconds
	CycleCounter     uint32
	NTargets         uint8
	TxAntenna        uint8
	FrequencySweep   uint8
	CenterFrequency  uint8
}

func bitsLE(u uint64, start, n uint) uint64 {
	return (u >> start) & ((uint64(1) << n) - 1)
}

// DecodeHeaderTag reads only the top 2 bits of the little-endian u64 to
// select which sub-header a 0x400 frame carries, without fully decoding it.
func DecodeHeaderTag(b []byte) (HeaderTag, error) {
	if len(b) < 8 {
		return 0, ErrUndersized
	}
	u := binary.LittleEndian.Uint64(b)
	return HeaderTag(bitsLE(u, 62, 2)), nil
}

// DecodeHeader decodes sub-header 0 (the cycle header). Callers must check
// DecodeHeaderTag == HeaderTagCycle first; this function does not itself
// validate the tag.
//
// Bit layout of the little-endian u64 (bit 0 = LSB):
//
//	0-11   cycle_duration, x0.064s
//	15-46  cycle_counter
//	47-54  n_targets
//	55     reserved
//	56-57  tx_antenna
//	58-59  frequency_sweep
//	60-61  center_frequency
//	62-63  sub-header tag
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < 8 {
		return Header{}, ErrUndersized
	}
	u := binary.LittleEndian.Uint64(b)
	return Header{
		CycleDuration:   float64(bitsLE(u, 0, 12)) * 0.064,
		CycleCounter:    uint32(bitsLE(u, 15, 32)),
		NTargets:        uint8(bitsLE(u, 47, 8)),
		TxAntenna:       uint8(bitsLE(u, 56, 2)),
		FrequencySweep:  uint8(bitsLE(u, 58, 2)),
		CenterFrequency: uint8(bitsLE(u, 60, 2)),
	}, nil
}

// MaxTargets is the capacity invariant on a TargetFrame's target list.
const MaxTargets = 256

// TargetFrame is one complete decoded target cycle: the cycle header, the
// two reserved pass-through sub-headers, and the detected targets.
type TargetFrame struct {
	Header    Header
	Reserved1 [8]byte // sub-header tag 1, parsed but pass-through in this version
	Reserved2 [8]byte // sub-header tag 2, parsed but pass-through in this version
	Targets   []Target
}

// EncodeHeader is the inverse of DecodeHeader, used by loopback test
// harnesses and the cantap frame-injection path. CycleDuration is quantized
// to 64 ms units (its wire resolution) by the caller; this function truncates
// toward zero.
func EncodeHeader(h Header) [8]byte {
	var u uint64
	cd := uint64(h.CycleDuration / 0.064)
	u |= cd & 0xFFF
	u |= (uint64(h.CycleCounter) & 0xFFFFFFFF) << 15
	u |= (uint64(h.NTargets) & 0xFF) << 47
	u |= (uint64(h.TxAntenna) & 0x3) << 56
	u |= (uint64(h.FrequencySweep) & 0x3) << 58
	u |= (uint64(h.CenterFrequency) & 0x3) << 60
	u |= uint64(HeaderTagCycle) << 62
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return b
}

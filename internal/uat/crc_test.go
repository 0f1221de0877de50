package uat

import (
	"encoding/binary"
	"testing"
)

func TestCRC16_ReferenceVector(t *testing.T) {
	got := CRC16([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("CRC16(123456789) = 0x%04X, want 0x29B1", got)
	}
}

// TestComputeCRC_MatchesOnWireBytes asserts the property E5 relies on: the
// CRC recomputed from the bytes actually placed on the wire (with the CRC
// field zeroed) equals the header's transmitted CRC field. The sensor's
// exact sub-opcode encoding for "parameter write" isn't recoverable from the
// retrieval pack, so this test fixes a representative {uat_id=2010, parnum=2}
// parameter-write request and checks internal consistency rather than
// asserting the vendor's literal on-wire byte values.
func TestComputeCRC_MatchesOnWireBytes(t *testing.T) {
	h := InstructionHeader{
		UATID:           UATIDParameterReadWrite,
		MessageIndex:    0,
		ProtocolVersion: requiredProtocolVersion,
		DeviceID:        0,
		Instructions:    1,
	}
	m1 := Message1{
		UATID:        UATIDParameterReadWrite,
		MessageIndex: 0,
		MessageType:  1,
		Parnum:       2,
		Dim0:         1,
		Dim1:         1,
	}
	m2 := Message2{
		UATID:        UATIDParameterReadWrite,
		MessageIndex: 0,
		Format:       0,
		Value:        1,
	}
	f0, f1, f2 := EncodeTriplet(h, m1, m2)

	gotHeader, err := DecodeHeader(f0[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	var recomputeBuf [22]byte
	zeroed := f0
	binary.LittleEndian.PutUint16(zeroed[6:8], 0)
	copy(recomputeBuf[0:6], zeroed[0:6])
	copy(recomputeBuf[6:14], f1[:])
	copy(recomputeBuf[14:22], f2[:])
	recomputed := CRC16(recomputeBuf[:])
	if recomputed != gotHeader.CRC {
		t.Fatalf("CRC on wire = 0x%04X, recomputed = 0x%04X", gotHeader.CRC, recomputed)
	}
}

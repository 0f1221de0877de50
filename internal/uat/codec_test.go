package uat

import (
	"errors"
	"testing"
)

func TestTriplet_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		h    InstructionHeader
		m1   Message1
		m2   Message2
	}{
		{
			name: "status_read",
			h:    InstructionHeader{UATID: UATIDStatusRead, MessageIndex: 3, ProtocolVersion: 5, DeviceID: 1, Instructions: 0},
			m1:   Message1{UATID: UATIDStatusRead, MessageIndex: 3, MessageType: 0, Parnum: 0, Dim0: 0, Dim1: 0},
			m2:   Message2{UATID: UATIDStatusRead, MessageIndex: 3, Format: 0, Value: 0},
		},
		{
			name: "parameter_write",
			h:    InstructionHeader{UATID: UATIDParameterReadWrite, MessageIndex: 255, ProtocolVersion: 5, DeviceID: 2, Instructions: 1},
			m1:   Message1{UATID: UATIDParameterReadWrite, MessageIndex: 255, MessageType: 1, Parnum: 4, Dim0: 1, Dim1: 1},
			m2:   Message2{UATID: UATIDParameterReadWrite, MessageIndex: 255, Format: 2, Value: 0xDEADBEEF},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f0, f1, f2 := EncodeTriplet(tc.h, tc.m1, tc.m2)
			wantHeader := tc.h
			wantHeader.CRC = ComputeCRC(tc.h, tc.m1, tc.m2)

			gotHeader, err := DecodeHeader(f0[:])
			if err != nil {
				t.Fatalf("DecodeHeader: %v", err)
			}
			if gotHeader != wantHeader {
				t.Fatalf("header round-trip mismatch: got %+v want %+v", gotHeader, wantHeader)
			}
			gotM1, err := DecodeMessage1(f1[:])
			if err != nil {
				t.Fatalf("DecodeMessage1: %v", err)
			}
			if gotM1 != tc.m1 {
				t.Fatalf("message1 round-trip mismatch: got %+v want %+v", gotM1, tc.m1)
			}
			gotM2, err := DecodeMessage2(f2[:])
			if err != nil {
				t.Fatalf("DecodeMessage2: %v", err)
			}
			if gotM2 != tc.m2 {
				t.Fatalf("message2 round-trip mismatch: got %+v want %+v", gotM2, tc.m2)
			}
		})
	}
}

func TestDecode_Undersized(t *testing.T) {
	short := []byte{1, 2, 3}
	if _, err := DecodeHeader(short); !errors.Is(err, ErrUndersized) {
		t.Fatalf("DecodeHeader(short) err = %v, want ErrUndersized", err)
	}
	if _, err := DecodeMessage1(short); !errors.Is(err, ErrUndersized) {
		t.Fatalf("DecodeMessage1(short) err = %v, want ErrUndersized", err)
	}
	if _, err := DecodeMessage2(short); !errors.Is(err, ErrUndersized) {
		t.Fatalf("DecodeMessage2(short) err = %v, want ErrUndersized", err)
	}
}

func TestValidateProtocolVersion(t *testing.T) {
	if err := ValidateProtocolVersion(5); err != nil {
		t.Fatalf("version 5 should be valid, got %v", err)
	}
	if err := ValidateProtocolVersion(2); !errors.Is(err, ErrUATCRCError) {
		t.Fatalf("version 2 should surface ErrUATCRCError, got %v", err)
	}
	var unsupported *UATProtocolUnsupportedError
	if err := ValidateProtocolVersion(9); !errors.As(err, &unsupported) || unsupported.Version != 9 {
		t.Fatalf("version 9 should surface UATProtocolUnsupportedError{9}, got %v", err)
	}
}

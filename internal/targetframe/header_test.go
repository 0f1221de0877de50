package targetframe

import "testing"

func TestDecodeHeader_ReferenceVector(t *testing.T) {
	b := []byte{0x5b, 0x83, 0x82, 0x32, 0x3b, 0x80, 0x88, 0x0c}
	tag, err := DecodeHeaderTag(b)
	if err != nil {
		t.Fatalf("DecodeHeaderTag: %v", err)
	}
	if tag != HeaderTagCycle {
		t.Fatalf("tag = %v, want HeaderTagCycle", tag)
	}
	h, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if !almostEqual(h.CycleDuration, 54.976) {
		t.Errorf("CycleDuration = %v, want 54.976", h.CycleDuration)
	}
	if h.CycleCounter != 7759109 {
		t.Errorf("CycleCounter = %d, want 7759109", h.CycleCounter)
	}
	if h.NTargets != 17 {
		t.Errorf("NTargets = %d, want 17", h.NTargets)
	}
	if h.TxAntenna != 0 {
		t.Errorf("TxAntenna = %d, want 0", h.TxAntenna)
	}
	if h.FrequencySweep != 3 {
		t.Errorf("FrequencySweep = %d, want 3", h.FrequencySweep)
	}
	if h.CenterFrequency != 0 {
		t.Errorf("CenterFrequency = %d, want 0", h.CenterFrequency)
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	want := Header{CycleDuration: 12.8, CycleCounter: 42, NTargets: 9, TxAntenna: 2, FrequencySweep: 1, CenterFrequency: 3}
	b := EncodeHeader(want)
	tag, err := DecodeHeaderTag(b[:])
	if err != nil || tag != HeaderTagCycle {
		t.Fatalf("DecodeHeaderTag = %v, %v", tag, err)
	}
	got, err := DecodeHeader(b[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if !almostEqual(got.CycleDuration, want.CycleDuration) || got.CycleCounter != want.CycleCounter ||
		got.NTargets != want.NTargets || got.TxAntenna != want.TxAntenna ||
		got.FrequencySweep != want.FrequencySweep || got.CenterFrequency != want.CenterFrequency {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

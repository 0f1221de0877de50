package pubsub

import "testing"

func TestEncodeRadarInfo_FieldOrder(t *testing.T) {
	info := RadarInfo{
		CenterFrequency:      "77GHz",
		FrequencySweep:       "fast",
		RangeToggle:          "long",
		DetectionSensitivity: "high",
		Cube:                 true,
	}
	out := EncodeRadarInfo(Header{FrameID: "radar"}, info)

	r := newCDRReader(out)
	r.u32() // sec
	r.u32() // nanosec
	r.str() // frame_id
	if got := r.str(); got != info.CenterFrequency {
		t.Fatalf("center_frequency = %q", got)
	}
	if got := r.str(); got != info.FrequencySweep {
		t.Fatalf("frequency_sweep = %q", got)
	}
	if got := r.str(); got != info.RangeToggle {
		t.Fatalf("range_toggle = %q", got)
	}
	if got := r.str(); got != info.DetectionSensitivity {
		t.Fatalf("detection_sensitivity = %q", got)
	}
	if !r.boolean() {
		t.Fatalf("cube = false, want true")
	}
}

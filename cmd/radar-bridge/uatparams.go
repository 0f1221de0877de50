package main

// UATv4 parameter numbers for the four operator-facing radar settings
// written once at startup. Vendor-specific and not documented anywhere in
// the distilled spec; taken from the original Rust implementation's
// Parameter enum.
const (
	parnumCenterFrequency     uint16 = 1
	parnumFrequencySweep      uint16 = 2
	parnumRangeToggle         uint16 = 5
	parnumDetectionSensitivity uint16 = 13
)

// UATv4 status codes read at startup to log the device's identity.
const (
	statusMajorVersion  uint16 = 3
	statusMinorVersion  uint16 = 4
	statusPatchVersion  uint16 = 5
	statusSerialNumber  uint16 = 9
)

// centerFrequencyLevels, frequencySweepLevels, rangeToggleLevels, and
// detectionSensitivityLevels mirror the original CLI's named enum values,
// each mapped to the u32 the device expects on the wire.
var centerFrequencyLevels = map[string]uint32{
	"low": 0, "medium": 1, "high": 2,
}

var frequencySweepLevels = map[string]uint32{
	"long": 0, "medium": 1, "short": 2, "ultra_short": 3,
}

var rangeToggleLevels = map[string]uint32{
	"off": 0, "short_medium": 1, "short_long": 2, "medium_long": 3,
	"long_ultra_short": 4, "medium_ultra_short": 5, "short_ultra_short": 6,
}

var detectionSensitivityLevels = map[string]uint32{
	"low": 0, "medium": 1, "high": 2,
}

func lookupLevel(levels map[string]uint32, name string) (uint32, bool) {
	v, ok := levels[name]
	return v, ok
}

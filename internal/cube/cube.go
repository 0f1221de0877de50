// Package cube reassembles the radar's UDP-streamed complex sample cube
// from SMS debug/port/cube sub-headers and raw payload fragments, and
// applies the doppler-centering and range-inversion views the consumer
// expects.
package cube

import (
	"encoding/binary"

	"github.com/kstaniek/radar-bridge/internal/sms"
)

// Shape is the cube's 4-D extent: [sequence(chirp type), range, rx, doppler].
type Shape struct {
	ChirpTypes  int
	RangeGates  int
	RxChannels  int
	DopplerBins int
}

// Volume returns the total element count of a cube with this shape.
func (s Shape) Volume() int {
	return s.ChirpTypes * s.RangeGates * s.RxChannels * s.DopplerBins
}

func (s Shape) index(seq, rng, rx, dop int) int {
	return ((seq*s.RangeGates+rng)*s.RxChannels+rx)*s.DopplerBins + dop
}

// Sample is one complex radar return, decoded from a 4-byte (i16, i16)
// element.
type Sample struct {
	Re int16
	Im int16
}

// sentinelElement is the fill value for cube positions never written by a
// real payload: (32767, 32767).
var sentinelElement = [4]byte{0x7F, 0xFF, 0x7F, 0xFF}

// RadarCube is one fully- or partially-reassembled sample volume, along with
// the bookkeeping the reassembler accumulated while filling it.
type RadarCube struct {
	FrameCounter    uint32
	Shape           Shape
	PacketsCaptured int
	PacketsSkipped  int
	MissingData     int
	BinProperties   sms.BinProperties

	// Elements holds Shape.Volume()*4 bytes, one big-endian (re, im) i16
	// pair per cube position, already reshaped: doppler axis halves
	// swapped and range axis inverted.
	Elements []byte
}

// Sample decodes the complex sample at [seq, rng, rx, dop].
func (c *RadarCube) Sample(seq, rng, rx, dop int) Sample {
	i := c.Shape.index(seq, rng, rx, dop) * 4
	b := c.Elements[i : i+4]
	return Sample{
		Re: int16(binary.BigEndian.Uint16(b[0:2])),
		Im: int16(binary.BigEndian.Uint16(b[2:4])),
	}
}

// reshape applies the two view rules spec'd for a freshly completed cube:
// swap the doppler axis's two halves so zero-doppler sits centered, and
// invert the range axis so minimum range is at the bottom.
func reshape(elements []byte, shape Shape) []byte {
	out := make([]byte, len(elements))
	d := shape.DopplerBins
	half := d / 2
	for seq := 0; seq < shape.ChirpTypes; seq++ {
		for r := 0; r < shape.RangeGates; r++ {
			srcR := shape.RangeGates - 1 - r
			for rx := 0; rx < shape.RxChannels; rx++ {
				for dp := 0; dp < d; dp++ {
					srcD := (dp + half) % d
					srcIdx := shape.index(seq, srcR, rx, srcD) * 4
					dstIdx := shape.index(seq, r, rx, dp) * 4
					copy(out[dstIdx:dstIdx+4], elements[srcIdx:srcIdx+4])
				}
			}
		}
	}
	return out
}

package cube

import (
	"errors"
	"fmt"

	"github.com/kstaniek/radar-bridge/internal/sms"
)

// ErrFrameCounterError is latched when a frame's debug header frame_counter
// disagrees with the one recorded at START_OF_FRAME, or when two
// interleaved frames are observed before either one's footer arrives.
var ErrFrameCounterError = errors.New("cube: frame_counter mismatch mid-frame")

// MissingDataError reports that a FRAME_FOOTER arrived before the buffer
// was fully written.
type MissingDataError struct {
	Written  int
	Expected int
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("cube: missing cube data: wrote %d of %d elements", e.Written, e.Expected)
}

type reassemblerState int

const (
	stateIdle reassemblerState = iota
	stateFilling
)

// Reassembler is a single-threaded state machine that turns a stream of SMS
// debug-port-cube fragments, one UDP payload at a time, into complete
// RadarCube values. Exactly one cube is ever in flight; any error resets the
// machine to Idle so the next START_OF_FRAME starts clean.
type Reassembler struct {
	state reassemblerState

	shape        Shape
	frameCounter uint32

	haveLastMessage bool
	lastMessage     uint16

	writeIndex     int // next element slot, advances across gaps too
	writtenElements int // elements actually copied from real payloads
	packetsCaptured int
	packetsSkipped  int
	latchedErr      error

	elements []byte
}

// New returns a Reassembler in the Idle state.
func New() *Reassembler {
	return &Reassembler{state: stateIdle}
}

// Feed advances the reassembler by one UDP payload. messageCounter is the
// transport header's message_counter field for this datagram. It returns a
// non-nil RadarCube only when this payload carried a FRAME_FOOTER that
// closed out a cube; the returned error, when non-nil, always corresponds
// to that same footer (the reassembler resets to Idle regardless).
func (r *Reassembler) Feed(messageCounter uint16, debug sms.DebugHeader, port sms.PortHeader, cubeHdr sms.CubeHeader, bin *sms.BinProperties, payload []byte) (*RadarCube, error) {
	switch r.state {
	case stateIdle:
		if debug.Flags == sms.FlagStartOfFrame {
			r.start(messageCounter, debug, cubeHdr, payload)
		}
		return nil, nil
	case stateFilling:
		if debug.Flags == sms.FlagFrameFooter {
			return r.footer(debug, bin)
		}
		r.data(messageCounter, debug, payload)
		return nil, nil
	default:
		return nil, nil
	}
}

func (r *Reassembler) start(messageCounter uint16, debug sms.DebugHeader, cubeHdr sms.CubeHeader, payload []byte) {
	r.shape = Shape{
		ChirpTypes:  int(cubeHdr.ChirpTypes),
		RangeGates:  int(cubeHdr.RangeGates),
		RxChannels:  int(cubeHdr.RxChannels),
		DopplerBins: int(cubeHdr.DopplerBins),
	}
	r.frameCounter = debug.FrameCounter
	r.haveLastMessage = true
	r.lastMessage = messageCounter
	r.writeIndex = 0
	r.writtenElements = 0
	r.packetsCaptured = 0
	r.packetsSkipped = 0
	r.latchedErr = nil

	volume := r.shape.Volume()
	r.elements = make([]byte, volume*4)
	for i := 0; i < len(r.elements); i += 4 {
		copy(r.elements[i:i+4], sentinelElement[:])
	}

	r.store(payload)
	r.state = stateFilling
}

func (r *Reassembler) data(messageCounter uint16, debug sms.DebugHeader, payload []byte) {
	if debug.FrameCounter != r.frameCounter {
		r.latchedErr = ErrFrameCounterError
		r.writeIndex = r.shape.Volume()
		return
	}

	if r.haveLastMessage {
		expected := r.lastMessage + 1
		gap := messageCounter - expected // uint16 wraparound: 0 when consecutive
		if gap != 0 {
			elementsPerPacket := len(payload) / 4
			r.writeIndex += int(gap) * elementsPerPacket
			r.packetsSkipped += int(gap)
		}
	}
	r.lastMessage = messageCounter
	r.haveLastMessage = true

	if r.writeIndex < r.shape.Volume() {
		r.store(payload)
	}
}

// store copies as many 4-byte elements as fit from payload into the buffer
// at the current write index, silently discarding any trailing payload past
// the cube's extent.
func (r *Reassembler) store(payload []byte) {
	volume := r.shape.Volume()
	available := volume - r.writeIndex
	if available <= 0 {
		return
	}
	n := len(payload) / 4
	if n > available {
		n = available
	}
	if n <= 0 {
		return
	}
	dst := r.writeIndex * 4
	copy(r.elements[dst:dst+n*4], payload[:n*4])
	r.writeIndex += n
	r.writtenElements += n
	r.packetsCaptured++
}

func (r *Reassembler) footer(debug sms.DebugHeader, bin *sms.BinProperties) (*RadarCube, error) {
	volume := r.shape.Volume()

	var err error
	switch {
	case r.latchedErr != nil:
		err = r.latchedErr
	case debug.FrameCounter != r.frameCounter:
		err = ErrFrameCounterError
	case r.writeIndex < volume:
		err = &MissingDataError{Written: r.writeIndex, Expected: volume}
	}

	var out *RadarCube
	if err == nil {
		out = &RadarCube{
			FrameCounter:    r.frameCounter,
			Shape:           r.shape,
			PacketsCaptured: r.packetsCaptured,
			PacketsSkipped:  r.packetsSkipped,
			MissingData:     volume - r.writtenElements,
			Elements:        reshape(r.elements, r.shape),
		}
		if bin != nil {
			out.BinProperties = *bin
		}
	}

	r.reset()
	return out, err
}

func (r *Reassembler) reset() {
	*r = Reassembler{state: stateIdle}
}

// Package canengine implements the UATv4 request/response state machine and
// the target-frame streaming reader over a classic CAN bus. The engine owns
// its bus exclusively: requests and the target-frame reader are strictly
// serialized on the same socket, tolerating interleaved broadcast traffic
// the sensor never stops sending.
package canengine

import (
	"errors"
	"fmt"

	"github.com/kstaniek/radar-bridge/internal/can"
	"github.com/kstaniek/radar-bridge/internal/targetframe"
	"github.com/kstaniek/radar-bridge/internal/uat"
)

// Failure taxonomy. All are recoverable; none terminate the process.
var (
	ErrIo                = errors.New("canengine: i/o error")
	ErrInvalidHeader     = errors.New("canengine: invalid header")
	ErrOutOfSequence     = errors.New("canengine: target packet out of sequence")
	ErrNoSocket          = errors.New("canengine: no bus attached")
	ErrInvalidResponseId = errors.New("canengine: non-0x700 frame observed mid-response")
)

// maxResponseFrames bounds the retry loop reading response frames: up to
// this many frames are read (and discarded if not ID 0x700) before the
// exchange gives up.
const maxResponseFrames = 100

const (
	targetHeaderID    uint32 = 0x400
	targetPacketBase  uint32 = 0x401
)

// Request-side instruction/message-type opcodes are this engine's own
// choice: no on-wire documentation for this sensor generation's write path
// was recoverable from the retrieval pack (the same gap that ruled out
// pinning a literal CRC test vector for a parameter write in the uat
// package). They are internally consistent and stable across a process,
// but unverified against a real device.
const (
	instructionRead  uint8 = 0
	instructionWrite uint8 = 1
	messageTypeRead  uint8 = 0
	messageTypeWrite uint8 = 1
)

// Engine wraps a can.Bus and exposes the four UATv4 request operations plus
// the target-frame streaming reader.
type Engine struct {
	bus      can.Bus
	msgIndex uint8
}

// New returns an Engine driving requests and target-frame reads over bus.
// A nil bus is accepted so a zero-value Engine fails closed with
// ErrNoSocket rather than panicking.
func New(bus can.Bus) *Engine {
	return &Engine{bus: bus}
}

func (e *Engine) nextMessageIndex() uint8 {
	e.msgIndex++
	return e.msgIndex
}

func (e *Engine) readFrame(fr *can.Frame) error {
	if e.bus == nil {
		return ErrNoSocket
	}
	if err := e.bus.ReadFrame(fr); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func (e *Engine) writeFrame(canID uint32, payload [8]byte) error {
	if e.bus == nil {
		return ErrNoSocket
	}
	var fr can.Frame
	fr.CANID = canID | can.CAN_EFF_FLAG
	fr.Len = 8
	copy(fr.Data[:8], payload[:])
	if err := e.bus.WriteFrame(fr); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// exchange sends one instruction triplet and reads the matching response
// quadruplet, discarding interleaved broadcast traffic until the response
// starts, then demanding the next three frames continue it.
func (e *Engine) exchange(h uat.InstructionHeader, m1 uat.Message1, m2 uat.Message2) (uat.Response, error) {
	f0, f1, f2 := uat.EncodeTriplet(h, m1, m2)
	if err := e.writeFrame(uat.IDInstruction, f0); err != nil {
		return uat.Response{}, err
	}
	if err := e.writeFrame(uat.IDInstruction, f1); err != nil {
		return uat.Response{}, err
	}
	if err := e.writeFrame(uat.IDInstruction, f2); err != nil {
		return uat.Response{}, err
	}
	return e.readResponse()
}

func (e *Engine) readResponse() (uat.Response, error) {
	var frames [][8]byte
	for i := 0; i < maxResponseFrames; i++ {
		var fr can.Frame
		if err := e.readFrame(&fr); err != nil {
			return uat.Response{}, err
		}
		if (fr.CANID & can.CAN_EFF_MASK) != uat.IDResponse {
			if len(frames) > 0 {
				return uat.Response{}, ErrInvalidResponseId
			}
			continue
		}
		var f [8]byte
		copy(f[:], fr.Data[:8])
		frames = append(frames, f)
		if len(frames) == 4 {
			return uat.DecodeResponseQuadruplet(frames[0][:], frames[1][:], frames[2][:], frames[3][:])
		}
	}
	return uat.Response{}, fmt.Errorf("%w: no response within %d frames", ErrIo, maxResponseFrames)
}

// ReadStatus issues a UAT_ID 2012 status read of parnum.
func (e *Engine) ReadStatus(parnum uint16) (uint32, error) {
	idx := e.nextMessageIndex()
	h := uat.InstructionHeader{UATID: uat.UATIDStatusRead, MessageIndex: idx, ProtocolVersion: 5, Instructions: instructionRead}
	m1 := uat.Message1{UATID: uat.UATIDStatusRead, MessageIndex: idx, MessageType: messageTypeRead, Parnum: parnum}
	m2 := uat.Message2{UATID: uat.UATIDStatusRead, MessageIndex: idx}
	resp, err := e.exchange(h, m1, m2)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// ReadParameter issues a UAT_ID 2010 parameter read of parnum.
func (e *Engine) ReadParameter(parnum uint16) (uint32, error) {
	idx := e.nextMessageIndex()
	h := uat.InstructionHeader{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx, ProtocolVersion: 5, Instructions: instructionRead}
	m1 := uat.Message1{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx, MessageType: messageTypeRead, Parnum: parnum}
	m2 := uat.Message2{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx}
	resp, err := e.exchange(h, m1, m2)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// WriteParameter issues a UAT_ID 2010 parameter write of value to parnum and
// confirms the device echoed it back with a zero result.
func (e *Engine) WriteParameter(parnum uint16, value uint32) error {
	idx := e.nextMessageIndex()
	h := uat.InstructionHeader{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx, ProtocolVersion: 5, Instructions: instructionWrite}
	m1 := uat.Message1{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx, MessageType: messageTypeWrite, Parnum: parnum}
	m2 := uat.Message2{UATID: uat.UATIDParameterReadWrite, MessageIndex: idx, Value: value}
	_, err := e.exchange(h, m1, m2)
	return err
}

// SendCommand issues a UAT_ID 1000 command.
func (e *Engine) SendCommand(cmd uint16) error {
	idx := e.nextMessageIndex()
	h := uat.InstructionHeader{UATID: uat.UATIDCommand, MessageIndex: idx, ProtocolVersion: 5, Instructions: instructionWrite}
	m1 := uat.Message1{UATID: uat.UATIDCommand, MessageIndex: idx, MessageType: messageTypeWrite, Parnum: cmd}
	m2 := uat.Message2{UATID: uat.UATIDCommand, MessageIndex: idx}
	_, err := e.exchange(h, m1, m2)
	return err
}

// ReadTargetFrame drops frames until it observes a cycle header (sub-header
// tag 0) on ID 0x400, then requires sub-headers 1 and 2 in order, followed
// by exactly 2*n_targets target packets on consecutive IDs
// 0x401..0x401+n_targets-1. Any packet arriving on the wrong ID, or out of
// packet0/packet1 order, abandons the frame with ErrOutOfSequence; the next
// call resumes the search for 0x400.
func (e *Engine) ReadTargetFrame() (*targetframe.TargetFrame, error) {
	for {
		var fr can.Frame
		if err := e.readFrame(&fr); err != nil {
			return nil, err
		}
		if (fr.CANID & can.CAN_EFF_MASK) != targetHeaderID {
			continue
		}
		tag, err := targetframe.DecodeHeaderTag(fr.Data[:8])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if tag != targetframe.HeaderTagCycle {
			continue
		}
		header, err := targetframe.DecodeHeader(fr.Data[:8])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if int(header.NTargets) > targetframe.MaxTargets {
			return nil, ErrInvalidHeader
		}

		reserved1, err := e.readSubheader(targetframe.HeaderTagReserved1)
		if err != nil {
			return nil, err
		}
		reserved2, err := e.readSubheader(targetframe.HeaderTagReserved2)
		if err != nil {
			return nil, err
		}

		targets := make([]targetframe.Target, header.NTargets)
		if err := e.readTargets(targets); err != nil {
			return nil, err
		}

		return &targetframe.TargetFrame{
			Header:    header,
			Reserved1: reserved1,
			Reserved2: reserved2,
			Targets:   targets,
		}, nil
	}
}

func (e *Engine) readSubheader(want targetframe.HeaderTag) ([8]byte, error) {
	var fr can.Frame
	if err := e.readFrame(&fr); err != nil {
		return [8]byte{}, err
	}
	if (fr.CANID & can.CAN_EFF_MASK) != targetHeaderID {
		return [8]byte{}, ErrOutOfSequence
	}
	tag, err := targetframe.DecodeHeaderTag(fr.Data[:8])
	if err != nil || tag != want {
		return [8]byte{}, ErrOutOfSequence
	}
	var b [8]byte
	copy(b[:], fr.Data[:8])
	return b, nil
}

func (e *Engine) readTargets(targets []targetframe.Target) error {
	for i := range targets {
		expectedID := targetPacketBase + uint32(i)

		var p0 can.Frame
		if err := e.readFrame(&p0); err != nil {
			return err
		}
		if (p0.CANID&can.CAN_EFF_MASK) != expectedID || targetframe.IsPacket1(p0.Data[:8]) {
			return ErrOutOfSequence
		}
		if err := targetframe.DecodePacket0(p0.Data[:8], &targets[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}

		var p1 can.Frame
		if err := e.readFrame(&p1); err != nil {
			return err
		}
		if (p1.CANID&can.CAN_EFF_MASK) != expectedID || !targetframe.IsPacket1(p1.Data[:8]) {
			return ErrOutOfSequence
		}
		if err := targetframe.DecodePacket1(p1.Data[:8], &targets[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
	}
	return nil
}

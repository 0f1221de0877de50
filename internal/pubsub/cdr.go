// Package pubsub serializes radar frames, clusters, cube volumes, and the
// static bridge metadata onto their publish topics. There is no ROS2/CDR
// client library anywhere in the retrieval pack this module was built
// against, so the wire encoding is hand-rolled: little-endian explicit
// field writers in the style of the teacher's cnl.Codec.EncodeTo, not a
// generalized reflection-based marshaller.
package pubsub

import (
	"bytes"
	"encoding/binary"
	"math"
)

// cdrEncapsulation is the 4-byte representation-id header every CDR
// payload is prefixed with: 0x00,0x01 selects plain CDR, little-endian.
var cdrEncapsulation = [4]byte{0x00, 0x01, 0x00, 0x00}

// cdrWriter accumulates one CDR little-endian payload. Stateless per call,
// safe for concurrent use the same way Codec is: each publish builds its
// own writer.
type cdrWriter struct {
	buf bytes.Buffer
}

func newCDRWriter() *cdrWriter {
	w := &cdrWriter{}
	w.buf.Write(cdrEncapsulation[:])
	return w
}

// payloadLen excludes the encapsulation header: CDR alignment is relative
// to the start of the encoded data, not the start of the wire buffer.
func (w *cdrWriter) payloadLen() int { return w.buf.Len() - len(cdrEncapsulation) }

func (w *cdrWriter) align(n int) {
	if rem := w.payloadLen() % n; rem != 0 {
		w.buf.Write(make([]byte, n-rem))
	}
}

func (w *cdrWriter) u8(v uint8) { w.buf.WriteByte(v) }

func (w *cdrWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *cdrWriter) u16(v uint16) {
	w.align(2)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *cdrWriter) u32(v uint32) {
	w.align(4)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *cdrWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *cdrWriter) u64(v uint64) {
	w.align(8)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *cdrWriter) i16(v int16) { w.u16(uint16(v)) }

func (w *cdrWriter) f32(v float32) { w.u32(math.Float32bits(v)) }

// str writes a CDR string: a uint32 length (including the trailing NUL)
// followed by the bytes and the NUL. No alignment after the NUL.
func (w *cdrWriter) str(s string) {
	w.u32(uint32(len(s) + 1))
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// octets writes a CDR sequence<uint8>: a uint32 length followed by the raw
// bytes. Octets have 1-byte alignment, so no padding is needed between
// elements.
func (w *cdrWriter) octets(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

// i16Seq writes a CDR sequence<int16>.
func (w *cdrWriter) i16Seq(v []int16) {
	w.u32(uint32(len(v)))
	for _, x := range v {
		w.i16(x)
	}
}

// f32Seq writes a CDR sequence<float32>.
func (w *cdrWriter) f32Seq(v []float32) {
	w.u32(uint32(len(v)))
	for _, x := range v {
		w.f32(x)
	}
}

func (w *cdrWriter) bytes() []byte { return w.buf.Bytes() }

// Time is builtin_interfaces/Time: seconds since epoch plus the remaining
// nanoseconds, matching spec's {seconds:i32, nanoseconds:u32} wire pair.
type Time struct {
	Sec    int32
	Nanosec uint32
}

func (w *cdrWriter) time(t Time) {
	w.i32(t.Sec)
	w.u32(t.Nanosec)
}

// Header is std_msgs/Header: a stamp and a frame_id.
type Header struct {
	Stamp   Time
	FrameID string
}

func (w *cdrWriter) header(h Header) {
	w.time(h.Stamp)
	w.str(h.FrameID)
}

package pubsub

import (
	"encoding/binary"
	"math"
)

// PointFieldFloat32 is sensor_msgs/PointField's datatype code for a 4-byte
// IEEE float, the only datatype this module's PointCloud2 publishers use.
const PointFieldFloat32 = 7

// pointField is sensor_msgs/PointField.
type pointField struct {
	Name     string
	Offset   uint32
	Datatype uint8
	Count    uint32
}

func (w *cdrWriter) pointField(f pointField) {
	w.str(f.Name)
	w.u32(f.Offset)
	w.u8(f.Datatype)
	w.u32(f.Count)
}

// targetPointStep/clusterPointStep are the fixed per-point byte strides
// spec.md §6 pins for the two PointCloud2 topics.
const (
	targetPointStep  = 24
	clusterPointStep = 28
)

var targetFields = []pointField{
	{Name: "x", Offset: 0, Datatype: PointFieldFloat32, Count: 1},
	{Name: "y", Offset: 4, Datatype: PointFieldFloat32, Count: 1},
	{Name: "z", Offset: 8, Datatype: PointFieldFloat32, Count: 1},
	{Name: "speed", Offset: 12, Datatype: PointFieldFloat32, Count: 1},
	{Name: "power", Offset: 16, Datatype: PointFieldFloat32, Count: 1},
	{Name: "rcs", Offset: 20, Datatype: PointFieldFloat32, Count: 1},
}

var clusterFields = append(append([]pointField{}, targetFields...),
	pointField{Name: "cluster_id", Offset: 24, Datatype: PointFieldFloat32, Count: 1})

// TargetPoint is one radar return's (x, y, z, speed, power, rcs) tuple, the
// row layout shared by the targets and clusters topics.
type TargetPoint struct {
	X, Y, Z, Speed, Power, RCS float32
}

func encodePointCloud2(stamp Header, fields []pointField, pointStep uint32, data []byte, width uint32) []byte {
	w := newCDRWriter()
	w.header(stamp)
	w.u32(1) // height: radar returns are always one row tall
	w.u32(width)
	w.u32(uint32(len(fields)))
	for _, f := range fields {
		w.pointField(f)
	}
	w.boolean(false) // is_bigendian: false, all field writes above are little-endian
	w.u32(pointStep)
	w.u32(pointStep * width)
	w.octets(data)
	w.boolean(true) // is_dense: radar targets never carry invalid/NaN entries
	return w.bytes()
}

// EncodeTargets serializes rt/radar/targets: a PointCloud2 with no
// cluster_id field, point_step=24.
func EncodeTargets(stamp Header, points []TargetPoint) []byte {
	data := make([]byte, targetPointStep*len(points))
	for i, p := range points {
		row := data[i*targetPointStep:]
		packF32(row[0:4], p.X)
		packF32(row[4:8], p.Y)
		packF32(row[8:12], p.Z)
		packF32(row[12:16], p.Speed)
		packF32(row[16:20], p.Power)
		packF32(row[20:24], p.RCS)
	}
	return encodePointCloud2(stamp, targetFields, targetPointStep, data, uint32(len(points)))
}

// EncodeClusters serializes rt/radar/clusters: the same row layout as
// EncodeTargets plus a trailing cluster_id field, point_step=28. clusterIDs
// must be the same length as points; a clusterID of 0 marks noise.
func EncodeClusters(stamp Header, points []TargetPoint, clusterIDs []int) []byte {
	data := make([]byte, clusterPointStep*len(points))
	for i, p := range points {
		row := data[i*clusterPointStep:]
		packF32(row[0:4], p.X)
		packF32(row[4:8], p.Y)
		packF32(row[8:12], p.Z)
		packF32(row[12:16], p.Speed)
		packF32(row[16:20], p.Power)
		packF32(row[20:24], p.RCS)
		var id float32
		if i < len(clusterIDs) {
			id = float32(clusterIDs[i])
		}
		packF32(row[24:28], id)
	}
	return encodePointCloud2(stamp, clusterFields, clusterPointStep, data, uint32(len(points)))
}

func packF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

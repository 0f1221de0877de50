package pubsub

import "math"

// Vec3 is geometry_msgs/Vector3, used here for the static translation.
type Vec3 struct {
	X, Y, Z float64
}

// Quaternion is geometry_msgs/Quaternion, used here for the static rotation.
type Quaternion struct {
	X, Y, Z, W float64
}

func (w *cdrWriter) f64(v float64) {
	w.u64(math.Float64bits(v))
}

// EncodeTransformStatic serializes rt/tf_static: geometry_msgs/TransformStamped
// carrying the radar's fixed pose relative to the base frame, republished
// once per second.
func EncodeTransformStatic(stamp Header, childFrameID string, translation Vec3, rotation Quaternion) []byte {
	w := newCDRWriter()
	w.header(stamp)
	w.str(childFrameID)
	w.f64(translation.X)
	w.f64(translation.Y)
	w.f64(translation.Z)
	w.f64(rotation.X)
	w.f64(rotation.Y)
	w.f64(rotation.Z)
	w.f64(rotation.W)
	return w.bytes()
}

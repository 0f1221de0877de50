// Package pipeline wires the CAN target-frame reader, the UDP cube
// ingestion path, and the sliding-window clusterer/tracker together and
// drives the periodic publications the runtime owns for its lifetime.
package pipeline

import (
	"github.com/kstaniek/radar-bridge/internal/cluster"
	"github.com/kstaniek/radar-bridge/internal/geometry"
	"github.com/kstaniek/radar-bridge/internal/pubsub"
	"github.com/kstaniek/radar-bridge/internal/targetframe"
)

// windowPoint is one target's Cartesian projection alongside the raw wire
// fields the targets/clusters topics publish.
type windowPoint struct {
	Point cluster.Point4
	TP    pubsub.TargetPoint
}

// projectTargets converts one decoded TargetFrame's polar detections into
// Cartesian window points, applying the configured mirror.
func projectTargets(frame *targetframe.TargetFrame, mirror bool) []windowPoint {
	out := make([]windowPoint, len(frame.Targets))
	for i, t := range frame.Targets {
		x, y, z := geometry.TransformXYZ(t.Range, t.Azimuth, t.Elevation, mirror)
		out[i] = windowPoint{
			Point: cluster.Point4{X: x, Y: y, Z: z, Speed: t.Speed},
			TP: pubsub.TargetPoint{
				X:     float32(x),
				Y:     float32(y),
				Z:     float32(z),
				Speed: float32(t.Speed),
				Power: float32(t.Power),
				RCS:   float32(t.RCS),
			},
		}
	}
	return out
}

// scale applies a component-wise weight vector to a point before DBSCAN.
// A zero weight removes that axis from the distance metric entirely.
func scale(p cluster.Point4, w [4]float64) cluster.Point4 {
	return cluster.Point4{X: p.X * w[0], Y: p.Y * w[1], Z: p.Z * w[2], Speed: p.Speed * w[3]}
}

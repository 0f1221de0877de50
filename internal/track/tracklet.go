package track

import (
	"github.com/google/uuid"

	"github.com/kstaniek/radar-bridge/internal/cluster"
	"github.com/kstaniek/radar-bridge/internal/kalman"
)

const epsilon = 0.00001

// Tracklet is an identity-carrying cluster across frames: a stable UUID, a
// Kalman filter over its x/y/aspect/height box, and the bookkeeping needed
// to expire it when it goes unobserved too long.
type Tracklet struct {
	ID      uuid.UUID
	Box     cluster.Box
	Filter  *kalman.Filter8
	Expiry  int64 // monotonic ns
	Count   int
	Created int64 // monotonic ns
}

func boxToXYAH(b cluster.Box) [4]float64 {
	x := (b.XMax + b.XMin) / 2
	y := (b.YMax + b.YMin) / 2
	w := b.XMax - b.XMin
	if w < epsilon {
		w = epsilon
	}
	h := b.YMax - b.YMin
	if h < epsilon {
		h = epsilon
	}
	return [4]float64{x, y, w / h, h}
}

func xyahToBox(xyah [4]float64, label cluster.Label) cluster.Box {
	x, y, a, h := xyah[0], xyah[1], xyah[2], xyah[3]
	w := h * a
	return cluster.Box{
		XMin: x - w/2, XMax: x + w/2,
		YMin: y - h/2, YMax: y + h/2,
		Label: label,
	}
}

// predictedBox returns the tracklet's current Kalman-filter estimate as a
// box carrying the tracklet's last observed label.
func (t *Tracklet) predictedBox() cluster.Box {
	mean := t.Filter.Mean
	return xyahToBox([4]float64{mean.AtVec(0), mean.AtVec(1), mean.AtVec(2), mean.AtVec(3)}, t.Box.Label)
}

func (t *Tracklet) update(observed cluster.Box, settings Settings, nowNs int64) {
	t.Count++
	t.Expiry = nowNs + int64(settings.ExtraLifespanSeconds*1e9)
	t.Box = observed
	t.Filter.Update(boxToXYAH(observed))
}

func iou(a, b cluster.Box) float64 {
	ix := min(a.XMax, b.XMax) - max(a.XMin, b.XMin)
	if ix < 0 {
		ix = 0
	}
	iy := min(a.YMax, b.YMax) - max(a.YMin, b.YMin)
	if iy < 0 {
		iy = 0
	}
	intersection := ix * iy
	if intersection <= epsilon {
		return 0
	}
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := areaA + areaB - intersection
	if union <= epsilon {
		return 0
	}
	return intersection / union
}

// newFilterFromBox initializes a Kalman filter for a freshly created
// tracklet from its first observed box.
func newFilterFromBox(b cluster.Box, updateFactor float64) *kalman.Filter8 {
	xyah := boxToXYAH(b)
	return kalman.NewFilter8(xyah, updateFactor)
}

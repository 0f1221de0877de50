// Package track implements cross-frame cluster association: a two-pass
// ByteTrack-style assigner built on internal/kalman.Filter8 and an adapted
// Kuhn-Munkres solver, plus the UUID<->small-int cluster-ID bijection with
// its LIFO free list.
package track

import (
	"github.com/google/uuid"

	"github.com/kstaniek/radar-bridge/internal/cluster"
)

// invalidMatch marks a forbidden assignment in the cost matrix: a gated-out
// score, an out-of-threshold IoU, or a dummy padding row/column.
const invalidMatch = 1000000.0

// detectionScore is every DBSCAN-derived box's confidence: clusters carry no
// model score of their own, so every box the clusterer hands the tracker is
// maximal confidence, matching the upstream clusterer's constant score=1.0.
const detectionScore = 1.0

// Settings configures the two-pass assigner and tracklet lifetime.
type Settings struct {
	ExtraLifespanSeconds float64 // seconds a track survives without a match
	HighConfThreshold    float64 // pass-1 score gate
	IOUThreshold         float64 // both passes' IoU gate
	UpdateFactor         float64 // Kalman innovation weight, 0..1
}

// MatchInfo is the stable identity a tracklet contributes to its matched or
// newly created detection.
type MatchInfo struct {
	UUID    uuid.UUID
	Count   int
	Created int64
}

// Assigner runs the two-pass ByteTrack association loop over its held
// tracklets.
type Assigner struct {
	Tracklets []*Tracklet
}

// NewAssigner returns an empty Assigner.
func NewAssigner() *Assigner {
	return &Assigner{}
}

func boxCost(t *Tracklet, newBox cluster.Box, scoreThreshold, iouThreshold float64) float64 {
	if detectionScore < scoreThreshold {
		return invalidMatch
	}
	expected := t.predictedBox()
	v := iou(expected, newBox)
	if v < iouThreshold {
		return invalidMatch
	}
	return (1.5 - detectionScore) + (1.5 - v)
}

// computeCosts builds the dim x dim padded cost matrix for boxes against
// a.Tracklets, forcing rows/cols named by boxFilter/trackFilter (already
// matched this frame) to invalidMatch so the solver leaves them alone.
func (a *Assigner) computeCosts(boxes []cluster.Box, scoreThreshold, iouThreshold float64, boxFilter, trackFilter []bool) [][]float64 {
	dim := len(boxes)
	if len(a.Tracklets) > dim {
		dim = len(a.Tracklets)
	}
	cost := make([][]float64, dim)
	for x := 0; x < dim; x++ {
		cost[x] = make([]float64, dim)
		for y := 0; y < dim; y++ {
			switch {
			case x < len(boxes) && y < len(a.Tracklets):
				if boxFilter[x] || trackFilter[y] {
					cost[x][y] = invalidMatch
				} else {
					cost[x][y] = boxCost(a.Tracklets[y], boxes[x], scoreThreshold, iouThreshold)
				}
			default:
				cost[x][y] = 0
			}
		}
	}
	return cost
}

// Update advances every held tracklet one step, associates it against
// boxes in two passes (high-confidence detections first, then a looser
// pass over whatever is left), expires tracklets past nowNs, and starts a
// new tracklet for every unmatched high-confidence box. It returns match
// info parallel to boxes: nil for an entry that matched nothing (should not
// happen for DBSCAN-derived boxes, whose score is always above the
// high-confidence gate).
func (a *Assigner) Update(settings Settings, boxes []cluster.Box, nowNs int64) []*MatchInfo {
	matched := make([]bool, len(boxes))
	tracked := make([]bool, len(a.Tracklets))
	info := make([]*MatchInfo, len(boxes))

	if len(a.Tracklets) > 0 {
		for _, t := range a.Tracklets {
			t.Filter.Predict()
		}
		a.assignPass(settings, boxes, settings.HighConfThreshold, settings.IOUThreshold, matched, tracked, info, nowNs)
	}

	if len(a.Tracklets) > 0 {
		a.assignPass(settings, boxes, 0, settings.IOUThreshold, matched, tracked, info, nowNs)
	}

	live := a.Tracklets[:0]
	for _, t := range a.Tracklets {
		if t.Expiry < nowNs {
			continue
		}
		live = append(live, t)
	}
	a.Tracklets = live

	for i, b := range boxes {
		if matched[i] || detectionScore < settings.HighConfThreshold {
			continue
		}
		id := uuid.New()
		nt := &Tracklet{
			ID:      id,
			Box:     b,
			Filter:  newFilterFromBox(b, settings.UpdateFactor),
			Expiry:  nowNs + int64(settings.ExtraLifespanSeconds*1e9),
			Count:   1,
			Created: nowNs,
		}
		a.Tracklets = append(a.Tracklets, nt)
		info[i] = &MatchInfo{UUID: id, Count: 1, Created: nowNs}
	}

	return info
}

func (a *Assigner) assignPass(settings Settings, boxes []cluster.Box, scoreThreshold, iouThreshold float64, matched, tracked []bool, info []*MatchInfo, nowNs int64) {
	costs := a.computeCosts(boxes, scoreThreshold, iouThreshold, matched, tracked)
	assignment := hungarianAssign(costs)
	for i, x := range assignment {
		if i >= len(boxes) || x < 0 || x >= len(a.Tracklets) {
			continue
		}
		if matched[i] || tracked[x] || costs[i][x] >= invalidMatch {
			continue
		}
		matched[i] = true
		tracked[x] = true
		t := a.Tracklets[x]
		info[i] = &MatchInfo{UUID: t.ID, Count: t.Count, Created: t.Created}
		t.update(boxes[i], settings, nowNs)
	}
}

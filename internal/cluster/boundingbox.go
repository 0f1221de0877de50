package cluster

import "sort"

// Box is the axis-aligned x/y bounding box of one non-noise cluster, with
// its DBSCAN label carried through as the ByteTrack detection label.
type Box struct {
	XMin, YMin, XMax, YMax float64
	Label                  Label
}

// BoundingBoxes computes one Box per non-noise label in points/labels,
// clamping each side to a minimum length of 2*eps by expanding symmetrically
// about the box's own center. Boxes are returned ordered by ascending label
// for deterministic downstream assignment.
func BoundingBoxes(points []Point4, labels []Label, eps float64) []Box {
	byLabel := make(map[Label][]int)
	for i, l := range labels {
		if l == noise {
			continue
		}
		byLabel[l] = append(byLabel[l], i)
	}

	ids := make([]Label, 0, len(byLabel))
	for l := range byLabel {
		ids = append(ids, l)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	boxes := make([]Box, 0, len(ids))
	for _, l := range ids {
		idxs := byLabel[l]
		p0 := points[idxs[0]]
		xmin, xmax := p0.X, p0.X
		ymin, ymax := p0.Y, p0.Y
		for _, i := range idxs[1:] {
			p := points[i]
			if p.X < xmin {
				xmin = p.X
			}
			if p.X > xmax {
				xmax = p.X
			}
			if p.Y < ymin {
				ymin = p.Y
			}
			if p.Y > ymax {
				ymax = p.Y
			}
		}
		if xmax-xmin < 2*eps {
			cx := (xmax + xmin) / 2
			xmin = cx - eps
			xmax = cx + eps
		}
		if ymax-ymin < 2*eps {
			cy := (ymax + ymin) / 2
			ymin = cy - eps
			ymax = cy + eps
		}
		boxes = append(boxes, Box{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax, Label: l})
	}
	return boxes
}

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kstaniek/radar-bridge/internal/cluster"
	"github.com/kstaniek/radar-bridge/internal/metrics"
	"github.com/kstaniek/radar-bridge/internal/pubsub"
	"github.com/kstaniek/radar-bridge/internal/track"
)

// runClusterWorker consumes projected target frames from clusterCh,
// maintains the sliding window, and runs DBSCAN + ByteTrack association on
// every new frame, publishing the clusters topic once per frame received.
func (p *Pipeline) runClusterWorker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.clusterCh:
			p.appendWindow(frame)
			p.clusterAndPublish()
		}
	}
}

// appendWindow pushes frame onto the sliding window, evicting the oldest
// frame once the window exceeds the configured size.
func (p *Pipeline) appendWindow(frame []windowPoint) {
	p.window = append(p.window, frame)
	if len(p.window) > p.cfg.WindowSize {
		p.window = p.window[len(p.window)-p.cfg.WindowSize:]
	}
}

// clusterAndPublish flattens the current window, runs DBSCAN and ByteTrack
// association over the scaled feature space, and publishes a PointCloud2
// carrying every windowed point's raw (x, y, z, speed, power, rcs) plus its
// stable cluster ID.
func (p *Pipeline) clusterAndPublish() {
	flat := make([]windowPoint, 0)
	for _, frame := range p.window {
		flat = append(flat, frame...)
	}
	if len(flat) > p.cfg.PointLimit {
		flat = flat[len(flat)-p.cfg.PointLimit:]
	}
	if len(flat) == 0 {
		return
	}

	scaled := make([]cluster.Point4, len(flat))
	for i, wp := range flat {
		scaled[i] = scale(wp.Point, p.cfg.ParamScale)
	}

	labels := cluster.DBSCAN(scaled, p.cfg.Eps, p.cfg.MinPts)
	boxes := cluster.BoundingBoxes(scaled, labels, p.cfg.Eps)

	nowNs := time.Now().UnixNano()
	oldToNew := p.manager.Update(boxes, p.cfg.TrackSettings, nowNs)
	ids := track.Remap(labels, oldToNew)

	metrics.SetClusterCount(len(boxes))
	metrics.SetTrackCount(len(p.manager.Assigner.Tracklets))

	tp := make([]pubsub.TargetPoint, len(flat))
	for i, wp := range flat {
		tp[i] = wp.TP
	}

	stamp := stampHeader(p.cfg.RadarFrameID)
	p.publish(p.cfg.ClustersTopic, pubsub.EncodeClusters(stamp, tp, ids))
}

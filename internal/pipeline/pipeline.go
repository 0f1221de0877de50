package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/radar-bridge/internal/canengine"
	"github.com/kstaniek/radar-bridge/internal/metrics"
	"github.com/kstaniek/radar-bridge/internal/pubsub"
	"github.com/kstaniek/radar-bridge/internal/track"
)

// Config holds every operator-facing knob the pipeline needs once the CAN
// engine and pub/sub session are already open.
type Config struct {
	Mirror bool

	ClusteringEnable bool
	WindowSize       int
	Eps              float64
	MinPts           int
	ParamScale       [4]float64 // x, y, z, speed feature weights
	PointLimit       int
	TrackSettings    track.Settings

	TargetsTopic  string
	ClustersTopic string

	BaseFrameID      string
	RadarFrameID     string
	RadarTranslation pubsub.Vec3
	RadarRotation    pubsub.Quaternion

	RadarInfo pubsub.RadarInfo
}

// clusterQueueCapacity bounds the channel feeding the clustering worker; the
// main loop never blocks on it, matching the spec's drop-on-congestion rule.
const clusterQueueCapacity = 4

// Pipeline drives the CAN target-frame loop, the optional clustering
// worker, and the periodic TF-static/RadarInfo publishers. It does not own
// the CAN bus or the pub/sub transport -- those are opened by the caller and
// passed in, so Pipeline itself never touches hardware or the network
// directly.
type Pipeline struct {
	engine  *canengine.Engine
	session *pubsub.Session
	logger  *slog.Logger
	cfg     Config

	clusterCh chan []windowPoint
	manager   *track.Manager
	window    [][]windowPoint
}

// New wires a Pipeline over an already-open engine and session.
func New(engine *canengine.Engine, session *pubsub.Session, logger *slog.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		engine:  engine,
		session: session,
		logger:  logger,
		cfg:     cfg,
		manager: track.NewManager(),
	}
}

// Run starts every periodic publisher and, if clustering is enabled, the
// clustering worker, then blocks running the main CAN target-frame loop
// until ctx is cancelled. It returns once every spawned task has exited.
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go p.runTFStatic(ctx, &wg)

	wg.Add(1)
	go p.runRadarInfo(ctx, &wg)

	if p.cfg.ClusteringEnable {
		p.clusterCh = make(chan []windowPoint, clusterQueueCapacity)
		wg.Add(1)
		go p.runClusterWorker(ctx, &wg)
	}

	p.runMainLoop(ctx)
	wg.Wait()
}

// runMainLoop reads target frames from the CAN engine in strict
// acquisition order, publishes them immediately on the targets topic, and
// forwards a copy to the clustering worker without ever blocking on it.
func (p *Pipeline) runMainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := p.engine.ReadTargetFrame()
		if err != nil {
			metrics.IncError("can_target_read")
			p.logger.Warn("target_read_error", "error", err)
			continue
		}

		points := projectTargets(frame, p.cfg.Mirror)
		tp := make([]pubsub.TargetPoint, len(points))
		for i, wp := range points {
			tp[i] = wp.TP
		}

		stamp := stampHeader(p.cfg.RadarFrameID)
		payload := pubsub.EncodeTargets(stamp, tp)
		p.publish(p.cfg.TargetsTopic, payload)

		if p.cfg.ClusteringEnable {
			select {
			case p.clusterCh <- points:
			default:
				metrics.IncError("cluster_queue_drop")
			}
		}
	}
}

// runTFStatic republishes the radar's fixed pose relative to the base frame
// once per second.
func (p *Pipeline) runTFStatic(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stamp := stampHeader(p.cfg.BaseFrameID)
			payload := pubsub.EncodeTransformStatic(stamp, p.cfg.RadarFrameID, p.cfg.RadarTranslation, p.cfg.RadarRotation)
			p.publish("rt/tf_static", payload)
		}
	}
}

// runRadarInfo republishes the radar's current operating mode once per
// second.
func (p *Pipeline) runRadarInfo(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stamp := stampHeader(p.cfg.RadarFrameID)
			payload := pubsub.EncodeRadarInfo(stamp, p.cfg.RadarInfo)
			p.publish("rt/radar/info", payload)
		}
	}
}

// publish hands payload to the session, which already accounts for success,
// failure, and drop in metrics and never blocks the caller.
func (p *Pipeline) publish(topic string, payload []byte) {
	p.session.Publish(topic, payload)
}

func stampHeader(frameID string) pubsub.Header {
	now := time.Now()
	return pubsub.Header{
		Stamp:   pubsub.Time{Sec: int32(now.Unix()), Nanosec: uint32(now.Nanosecond())},
		FrameID: frameID,
	}
}

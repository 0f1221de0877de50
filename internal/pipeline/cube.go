package pipeline

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/kstaniek/radar-bridge/internal/cube"
	"github.com/kstaniek/radar-bridge/internal/metrics"
	"github.com/kstaniek/radar-bridge/internal/pubsub"
	"github.com/kstaniek/radar-bridge/internal/sms"
	"github.com/kstaniek/radar-bridge/internal/udpingress"
)

// CubeConfig configures the optional cube UDP ingestion/publishing path.
type CubeConfig struct {
	Enable    bool
	CubeAddr  *net.UDPAddr // port 50005 by convention
	BinAddr   *net.UDPAddr // port 50063 by convention
	FrameID   string
	Topic     string
}

// CubeIngress owns the two UDP receivers and the reassembler feeding the
// cube topic. It runs on its own goroutines, independent of the CAN target
// loop and the clustering worker.
type CubeIngress struct {
	cfg     CubeConfig
	session *pubsub.Session
	logger  *slog.Logger

	cubeRx *udpingress.Receiver
	binRx  *udpingress.Receiver
	reasm  *cube.Reassembler

	// cachedCubeHdr holds the CubeHeader decoded at the last START_OF_FRAME
	// packet: it is only present on the wire there, so every later Feed
	// call in the same in-flight frame must reuse this cached value.
	cachedCubeHdr sms.CubeHeader
}

// OpenCubeIngress binds both cube UDP ports.
func OpenCubeIngress(cfg CubeConfig, session *pubsub.Session, logger *slog.Logger) (*CubeIngress, error) {
	cubeRx, err := udpingress.Open(udpingress.RealSocketFactory{}, cfg.CubeAddr, logger)
	if err != nil {
		return nil, err
	}
	binRx, err := udpingress.Open(udpingress.RealSocketFactory{}, cfg.BinAddr, logger)
	if err != nil {
		_ = cubeRx.Close()
		return nil, err
	}
	return &CubeIngress{
		cfg:     cfg,
		session: session,
		logger:  logger,
		cubeRx:  cubeRx,
		binRx:   binRx,
		reasm:   cube.New(),
	}, nil
}

// Close releases both UDP sockets.
func (ci *CubeIngress) Close() {
	_ = ci.cubeRx.Close()
	_ = ci.binRx.Close()
}

// Run starts both receivers and drains their packet queues until ctx is
// cancelled.
func (ci *CubeIngress) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := ci.cubeRx.Run(ctx); err != nil && ctx.Err() == nil {
			ci.logger.Warn("cube_ingress_error", "port", "cube", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := ci.binRx.Run(ctx); err != nil && ctx.Err() == nil {
			ci.logger.Warn("cube_ingress_error", "port", "bin", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		ci.drain(ctx)
	}()
	wg.Wait()
}

// drain merges both ports' packet streams into the reassembler in arrival
// order. Both ports carry fragments of the same logical frame stream, so a
// single consumer goroutine is enough; there is no cross-port ordering
// guarantee to enforce beyond what the reassembler's frame_counter check
// already provides.
func (ci *CubeIngress) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-ci.cubeRx.Packets():
			if !ok {
				return
			}
			ci.feed(pkt)
		case pkt, ok := <-ci.binRx.Packets():
			if !ok {
				return
			}
			ci.feed(pkt)
		}
	}
}

// feed decodes one SMS datagram's headers and forwards the payload to the
// reassembler, publishing a completed cube when Feed returns one.
func (ci *CubeIngress) feed(pkt []byte) {
	th, off, err := sms.DecodeTransportHeader(pkt)
	if err != nil {
		// Non-SMS traffic on these ports is expected; ignore silently.
		return
	}
	rest := pkt[off:]

	var debug sms.DebugHeader
	if th.ApplicationProtocol != sms.AppProtocolDirectPort {
		debug, err = sms.DecodeDebugHeader(rest)
		if err != nil {
			return
		}
		rest = rest[8:]
	}

	port, err := sms.DecodePortHeader(rest)
	if err != nil {
		return
	}
	rest = rest[24:]

	var bin *sms.BinProperties
	switch debug.Flags {
	case sms.FlagStartOfFrame:
		hdr, err := sms.DecodeCubeHeader(rest)
		if err != nil {
			return
		}
		ci.cachedCubeHdr = hdr
		rest = rest[sms.CubeHeaderLen:]
	case sms.FlagFrameFooter:
		b, err := sms.DecodeBinProperties(rest)
		if err != nil {
			return
		}
		bin = &b
	}

	result, err := ci.reasm.Feed(th.MessageCounter, debug, port, ci.cachedCubeHdr, bin, rest)
	if err != nil {
		ci.logger.Warn("cube_reassemble_error", "error", err)
		return
	}
	if result == nil {
		return
	}
	if result.MissingData > 0 {
		metrics.AddCubeMissingData(result.MissingData)
		ci.logger.Warn("cube_dropped_missing_data", "missing_elements", result.MissingData)
		return
	}

	stamp := stampHeader(ci.cfg.FrameID)
	shape := pubsub.CubeShape{
		ChirpTypes:  result.Shape.ChirpTypes,
		RangeGates:  result.Shape.RangeGates,
		RxChannels:  result.Shape.RxChannels,
		DopplerBins: result.Shape.DopplerBins,
	}
	scales := pubsub.Scales{
		SpeedPerBin: result.BinProperties.SpeedPerBin,
		RangePerBin: result.BinProperties.RangePerBin,
		BinPerSpeed: result.BinProperties.BinPerSpeed,
	}
	payload := pubsub.EncodeCube(stamp, port.Timestamp, shape, scales, result.Elements)
	ci.session.Publish(ci.cfg.Topic, payload)
}

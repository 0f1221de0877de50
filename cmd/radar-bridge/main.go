package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/kstaniek/radar-bridge/internal/canengine"
	"github.com/kstaniek/radar-bridge/internal/cantap/cnl"
	"github.com/kstaniek/radar-bridge/internal/cantap/server"
	"github.com/kstaniek/radar-bridge/internal/metrics"
	"github.com/kstaniek/radar-bridge/internal/pipeline"
	"github.com/kstaniek/radar-bridge/internal/pubsub"
	"github.com/kstaniek/radar-bridge/internal/track"
)

// Helper implementations live in dedicated files: version.go, config.go,
// uatparams.go, logger.go, cantap_init.go, metrics_logger.go, backend.go,
// backend_serial.go, backend_socketcan.go, mdns.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("radar-bridge %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	bus, cleanupBus, err := openBus(cfg, l)
	if err != nil {
		l.Error("bus_open_error", "error", err)
		return
	}
	defer cleanupBus()

	engineBus, tap := initCantap(ctx, cfg, bus, l)
	engine := canengine.New(engineBus)

	logDeviceIdentity(engine, l)
	if err := configureRadar(cfg, engine, l); err != nil {
		l.Error("radar_configure_error", "error", err)
		return
	}

	transport, err := pubsub.DialUDPTransport(cfg.pubsubAddr)
	if err != nil {
		l.Error("pubsub_transport_error", "error", err)
		return
	}
	defer transport.Close()
	session := pubsub.NewSession(transport, l)

	vec, _ := parseFloatCSV(cfg.radarTFVec, 3)
	quat, _ := parseFloatCSV(cfg.radarTFQuat, 4)
	paramScale, _ := parseFloatCSV(cfg.clusteringParamScale, 4)

	pcfg := pipeline.Config{
		Mirror:           cfg.mirror,
		ClusteringEnable: cfg.clusteringEnable,
		WindowSize:       cfg.windowSize,
		Eps:              cfg.clusteringEps,
		MinPts:           cfg.clusteringMinPts,
		ParamScale:       [4]float64{paramScale[0], paramScale[1], paramScale[2], paramScale[3]},
		PointLimit:       cfg.clusteringPointLimit,
		TrackSettings: track.Settings{
			ExtraLifespanSeconds: 1.0,
			HighConfThreshold:    0.6,
			IOUThreshold:         0.1,
			UpdateFactor:         0.5,
		},
		TargetsTopic:     cfg.targetsTopic,
		ClustersTopic:    cfg.clustersTopic,
		BaseFrameID:      cfg.baseFrameID,
		RadarFrameID:     cfg.radarFrameID,
		RadarTranslation: pubsub.Vec3{X: vec[0], Y: vec[1], Z: vec[2]},
		RadarRotation:    pubsub.Quaternion{X: quat[0], Y: quat[1], Z: quat[2], W: quat[3]},
		RadarInfo: pubsub.RadarInfo{
			CenterFrequency:      cfg.centerFrequency,
			FrequencySweep:       cfg.frequencySweep,
			RangeToggle:          cfg.rangeToggle,
			DetectionSensitivity: cfg.detectionSensitivity,
			Cube:                 cfg.cubeEnable,
		},
	}
	p := pipeline.New(engine, session, l, pcfg)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	if cfg.cubeEnable {
		ci, err := pipeline.OpenCubeIngress(pipeline.CubeConfig{
			Enable:   true,
			CubeAddr: &net.UDPAddr{IP: net.IPv4zero, Port: cfg.cubePort},
			BinAddr:  &net.UDPAddr{IP: net.IPv4zero, Port: cfg.binPort},
			FrameID:  cfg.radarFrameID,
			Topic:    cfg.cubeTopic,
		}, session, l)
		if err != nil {
			l.Error("cube_ingress_open_error", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer ci.Close()
				ci.Run(ctx)
			}()
		}
	}

	var srv *server.Server
	if cfg.cantapEnable && tap != nil {
		srv = server.NewServer(
			server.WithHub(tap.Hub()),
			server.WithCodec(&cnl.Codec{}),
			server.WithSend(tap.Inject),
			server.WithLogger(l),
			server.WithMaxClients(cfg.maxClients),
			server.WithHandshakeTimeout(cfg.handshakeTO),
			server.WithReadDeadline(cfg.clientReadTO),
		)
		srv.SetListenAddr(cfg.cantapListen)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				l.Error("cantap_server_error", "error", err)
			}
		}()
		go advertiseMDNS(ctx, cfg, srv, l)
	}

	metrics.SetReadinessFunc(func() bool {
		if srv != nil {
			select {
			case <-srv.Ready():
			default:
				return false
			}
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = metricsSrv.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	if tap != nil {
		tap.Close()
	}
	wg.Wait()
}

// logDeviceIdentity reads the sensor's version and serial number and logs
// them; failures are non-fatal since they only affect diagnostics.
func logDeviceIdentity(e *canengine.Engine, l *slog.Logger) {
	major, err := e.ReadStatus(statusMajorVersion)
	if err != nil {
		l.Warn("read_status_error", "field", "major_version", "error", err)
		return
	}
	minor, err := e.ReadStatus(statusMinorVersion)
	if err != nil {
		l.Warn("read_status_error", "field", "minor_version", "error", err)
		return
	}
	patch, err := e.ReadStatus(statusPatchVersion)
	if err != nil {
		l.Warn("read_status_error", "field", "patch_version", "error", err)
		return
	}
	serial, err := e.ReadStatus(statusSerialNumber)
	if err != nil {
		l.Warn("read_status_error", "field", "serial_number", "error", err)
		return
	}
	l.Info("device_identity", "version", fmt.Sprintf("%d.%d.%d", major, minor, patch), "serial", serial)
}

// configureRadar writes the four operator-facing UATv4 parameters and reads
// each back to confirm the device accepted it.
func configureRadar(cfg *appConfig, e *canengine.Engine, l *slog.Logger) error {
	settings := []struct {
		name   string
		parnum uint16
		value  uint32
	}{
		{"center_frequency", parnumCenterFrequency, mustLevel(centerFrequencyLevels, cfg.centerFrequency)},
		{"frequency_sweep", parnumFrequencySweep, mustLevel(frequencySweepLevels, cfg.frequencySweep)},
		{"range_toggle", parnumRangeToggle, mustLevel(rangeToggleLevels, cfg.rangeToggle)},
		{"detection_sensitivity", parnumDetectionSensitivity, mustLevel(detectionSensitivityLevels, cfg.detectionSensitivity)},
	}
	for _, s := range settings {
		if err := e.WriteParameter(s.parnum, s.value); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
		got, err := e.ReadParameter(s.parnum)
		if err != nil {
			return fmt.Errorf("verify %s: %w", s.name, err)
		}
		if got != s.value {
			return fmt.Errorf("verify %s: device reports %d, wrote %d", s.name, got, s.value)
		}
		l.Info("radar_parameter_set", "name", s.name, "value", s.value)
	}
	return nil
}

func mustLevel(levels map[string]uint32, name string) uint32 {
	v, _ := lookupLevel(levels, name)
	return v
}

// advertiseMDNS waits for the diagnostic tap's TCP listener to come up and
// registers it under the radar-bridge service type.
func advertiseMDNS(ctx context.Context, cfg *appConfig, srv *server.Server, l *slog.Logger) {
	if !cfg.mdnsEnable {
		return
	}
	select {
	case <-srv.Ready():
	case <-ctx.Done():
		return
	}
	addr := srv.Addr()
	var portNum int
	if _, p, err := net.SplitHostPort(addr); err == nil {
		if pn, perr := strconv.Atoi(p); perr == nil {
			portNum = pn
		}
	}
	cleanup, err := startMDNS(ctx, cfg, portNum)
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
		return
	}
	l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
	<-ctx.Done()
	cleanup()
}

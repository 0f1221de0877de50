package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	// CAN transport
	serialDev    string
	baud         int
	serialReadTO time.Duration
	backend      string
	canIf        string

	// Diagnostic tap (optional TCP relay of bus frames, teacher's Cannelloni stack)
	cantapEnable    bool
	cantapListen    string
	cantapHubBuffer int
	cantapHubPolicy string
	maxClients      int
	handshakeTO     time.Duration
	clientReadTO    time.Duration

	// Radar operator parameters (UATv4 config, written once at startup).
	// Values are the device's named levels, not physical units -- the
	// sensor only understands the small enumerations uatparams.go maps to
	// parameter values.
	centerFrequency      string
	frequencySweep       string
	rangeToggle          string
	detectionSensitivity string

	// Cube streaming
	cubeEnable   bool
	cubePort     int
	binPort      int

	// Clustering/tracking
	clusteringEnable     bool
	windowSize           int
	clusteringEps        float64
	clusteringMinPts     int
	clusteringParamScale string
	clusteringPointLimit int
	mirror               bool

	// Pose / frames
	radarTFVec   string
	radarTFQuat  string
	baseFrameID  string
	radarFrameID string

	// pub/sub topics
	targetsTopic string
	clustersTopic string
	cubeTopic    string

	// pub/sub transport: the wire transport itself is out of scope, so this
	// is just where the reference UDPTransport sends datagrams.
	pubsubAddr string

	// Ambient stack
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}

	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	backend := flag.String("can", "socketcan", "CAN backend: serial|socketcan")
	canIf := flag.String("can-if", "can0", "SocketCAN interface (when --can=socketcan)")

	cantapEnable := flag.Bool("cantap-enable", false, "Enable diagnostic CAN tap TCP relay")
	cantapListen := flag.String("cantap-listen", ":20000", "Diagnostic CAN tap TCP listen address")
	cantapHubBuf := flag.Int("cantap-hub-buffer", 512, "Per-client tap hub buffer (frames)")
	cantapHubPolicy := flag.String("cantap-hub-policy", "drop", "Tap backpressure policy: drop|kick")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous tap TCP clients (0 = unlimited)")
	handshakeTO := flag.Duration("handshake-timeout", 3*time.Second, "Tap client handshake timeout")
	clientReadTO := flag.Duration("client-read-timeout", 60*time.Second, "Tap per-connection read deadline")

	centerFrequency := flag.String("center_frequency", "medium", "Radar center frequency: low|medium|high")
	frequencySweep := flag.String("frequency_sweep", "short", "Radar frequency sweep: long|medium|short|ultra_short")
	rangeToggle := flag.String("range_toggle", "off", "Radar range toggle mode: off|short_medium|short_long|medium_long|long_ultra_short|medium_ultra_short|short_ultra_short")
	detectionSensitivity := flag.String("detection_sensitivity", "medium", "Radar detection sensitivity: low|medium|high")

	cubeEnable := flag.Bool("cube", false, "Enable radar cube UDP ingestion and publishing")
	cubePort := flag.Int("cube-port", 50005, "UDP port for cube payload stream")
	binPort := flag.Int("bin-port", 50063, "UDP port for bin-properties companion stream")

	clusteringEnable := flag.Bool("clustering", false, "Enable sliding-window clustering/tracking")
	windowSize := flag.Int("window_size", 6, "Sliding window size (frames) for clustering")
	clusteringEps := flag.Float64("clustering_eps", 1.0, "DBSCAN neighborhood radius")
	clusteringMinPts := flag.Int("clustering_min_pts", 3, "DBSCAN minimum core-point density")
	clusteringParamScale := flag.String("clustering_param_scale", "1,1,1,0", "Comma-separated x,y,z,speed feature weights")
	clusteringPointLimit := flag.Int("clustering_point_limit", 2000, "Maximum points considered per clustering pass")
	mirror := flag.Bool("mirror", false, "Mirror the y-axis of projected targets")

	radarTFVec := flag.String("radar_tf_vec", "0,0,0", "Radar translation relative to base frame, comma-separated x,y,z (meters)")
	radarTFQuat := flag.String("radar_tf_quat", "0,0,0,1", "Radar rotation relative to base frame, comma-separated x,y,z,w quaternion")
	baseFrameID := flag.String("base_frame_id", "base_link", "TF base frame id")
	radarFrameID := flag.String("radar_frame_id", "radar", "TF radar frame id")

	targetsTopic := flag.String("targets_topic", "rt/radar/targets", "Publish topic for decoded targets")
	clustersTopic := flag.String("clusters_topic", "rt/radar/clusters", "Publish topic for cluster/track output")
	cubeTopic := flag.String("cube_topic", "rt/radar/cube", "Publish topic for radar cube frames")

	pubsubAddr := flag.String("pubsub-addr", "127.0.0.1:9870", "UDP destination address for published topics")

	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement of the diagnostic tap")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default radar-bridge-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.backend = *backend
	cfg.canIf = *canIf

	cfg.cantapEnable = *cantapEnable
	cfg.cantapListen = *cantapListen
	cfg.cantapHubBuffer = *cantapHubBuf
	cfg.cantapHubPolicy = *cantapHubPolicy
	cfg.maxClients = *maxClients
	cfg.handshakeTO = *handshakeTO
	cfg.clientReadTO = *clientReadTO

	cfg.centerFrequency = *centerFrequency
	cfg.frequencySweep = *frequencySweep
	cfg.rangeToggle = *rangeToggle
	cfg.detectionSensitivity = *detectionSensitivity

	cfg.cubeEnable = *cubeEnable
	cfg.cubePort = *cubePort
	cfg.binPort = *binPort

	cfg.clusteringEnable = *clusteringEnable
	cfg.windowSize = *windowSize
	cfg.clusteringEps = *clusteringEps
	cfg.clusteringMinPts = *clusteringMinPts
	cfg.clusteringParamScale = *clusteringParamScale
	cfg.clusteringPointLimit = *clusteringPointLimit
	cfg.mirror = *mirror

	cfg.radarTFVec = *radarTFVec
	cfg.radarTFQuat = *radarTFQuat
	cfg.baseFrameID = *baseFrameID
	cfg.radarFrameID = *radarFrameID

	cfg.targetsTopic = *targetsTopic
	cfg.clustersTopic = *clustersTopic
	cfg.cubeTopic = *cubeTopic
	cfg.pubsubAddr = *pubsubAddr

	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners — only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.backend {
	case "serial", "socketcan":
	default:
		return fmt.Errorf("invalid can backend: %s", c.backend)
	}
	switch c.cantapHubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid cantap-hub-policy: %s", c.cantapHubPolicy)
	}
	if c.cantapHubBuffer <= 0 {
		return fmt.Errorf("cantap-hub-buffer must be > 0 (got %d)", c.cantapHubBuffer)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.handshakeTO <= 0 {
		return fmt.Errorf("handshake-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if _, ok := lookupLevel(centerFrequencyLevels, c.centerFrequency); !ok {
		return fmt.Errorf("invalid center_frequency: %s", c.centerFrequency)
	}
	if _, ok := lookupLevel(frequencySweepLevels, c.frequencySweep); !ok {
		return fmt.Errorf("invalid frequency_sweep: %s", c.frequencySweep)
	}
	if _, ok := lookupLevel(rangeToggleLevels, c.rangeToggle); !ok {
		return fmt.Errorf("invalid range_toggle: %s", c.rangeToggle)
	}
	if _, ok := lookupLevel(detectionSensitivityLevels, c.detectionSensitivity); !ok {
		return fmt.Errorf("invalid detection_sensitivity: %s", c.detectionSensitivity)
	}
	if c.cubeEnable {
		if c.cubePort <= 0 || c.cubePort > 65535 {
			return fmt.Errorf("cube-port out of range: %d", c.cubePort)
		}
		if c.binPort <= 0 || c.binPort > 65535 {
			return fmt.Errorf("bin-port out of range: %d", c.binPort)
		}
	}
	if c.clusteringEnable {
		if c.windowSize <= 0 {
			return fmt.Errorf("window_size must be > 0 (got %d)", c.windowSize)
		}
		if c.clusteringEps <= 0 {
			return fmt.Errorf("clustering_eps must be > 0")
		}
		if c.clusteringMinPts <= 0 {
			return fmt.Errorf("clustering_min_pts must be > 0")
		}
		if _, err := parseFloatCSV(c.clusteringParamScale, 4); err != nil {
			return fmt.Errorf("invalid clustering_param_scale: %w", err)
		}
		if c.clusteringPointLimit <= 0 {
			return fmt.Errorf("clustering_point_limit must be > 0")
		}
	}
	if _, err := parseFloatCSV(c.radarTFVec, 3); err != nil {
		return fmt.Errorf("invalid radar_tf_vec: %w", err)
	}
	if _, err := parseFloatCSV(c.radarTFQuat, 4); err != nil {
		return fmt.Errorf("invalid radar_tf_quat: %w", err)
	}
	if c.baseFrameID == "" || c.radarFrameID == "" {
		return fmt.Errorf("base_frame_id and radar_frame_id must be non-empty")
	}
	if c.targetsTopic == "" || c.clustersTopic == "" || c.cubeTopic == "" {
		return fmt.Errorf("topic names must be non-empty")
	}
	if c.pubsubAddr == "" {
		return fmt.Errorf("pubsub-addr must be non-empty")
	}
	return nil
}

// parseFloatCSV parses a comma-separated list of floats, requiring exactly n values.
func parseFloatCSV(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i, p, err)
		}
		out[i] = v
	}
	return out, nil
}

// applyEnvOverrides maps RADAR_BRIDGE_* environment variables to config fields
// unless a corresponding flag was explicitly set. Boolean & numeric parsing is
// lax: empty values ignored. Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	setErr := func(name, env string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid %s: %w", env, err)
		}
	}

	strVar := func(flagName, env string, dst *string) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	intVar := func(flagName, env string, dst *int, allowZero bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				setErr(flagName, env, err)
				return
			}
			if n > 0 || (allowZero && n >= 0) {
				*dst = n
			}
		}
	}
	floatVar := func(flagName, env string, dst *float64) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				setErr(flagName, env, err)
				return
			}
			*dst = n
		}
	}
	durVar := func(flagName, env string, dst *time.Duration) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				setErr(flagName, env, err)
				return
			}
			*dst = d
		}
	}
	boolVar := func(flagName, env string, dst *bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	strVar("serial", "RADAR_BRIDGE_SERIAL", &c.serialDev)
	intVar("baud", "RADAR_BRIDGE_BAUD", &c.baud, false)
	durVar("serial-read-timeout", "RADAR_BRIDGE_SERIAL_READ_TIMEOUT", &c.serialReadTO)
	strVar("can", "RADAR_BRIDGE_CAN", &c.backend)
	strVar("can-if", "RADAR_BRIDGE_CAN_IF", &c.canIf)

	boolVar("cantap-enable", "RADAR_BRIDGE_CANTAP_ENABLE", &c.cantapEnable)
	strVar("cantap-listen", "RADAR_BRIDGE_CANTAP_LISTEN", &c.cantapListen)
	intVar("cantap-hub-buffer", "RADAR_BRIDGE_CANTAP_HUB_BUFFER", &c.cantapHubBuffer, false)
	strVar("cantap-hub-policy", "RADAR_BRIDGE_CANTAP_HUB_POLICY", &c.cantapHubPolicy)
	intVar("max-clients", "RADAR_BRIDGE_MAX_CLIENTS", &c.maxClients, true)
	durVar("handshake-timeout", "RADAR_BRIDGE_HANDSHAKE_TIMEOUT", &c.handshakeTO)
	durVar("client-read-timeout", "RADAR_BRIDGE_CLIENT_READ_TIMEOUT", &c.clientReadTO)

	strVar("center_frequency", "RADAR_BRIDGE_CENTER_FREQUENCY", &c.centerFrequency)
	strVar("frequency_sweep", "RADAR_BRIDGE_FREQUENCY_SWEEP", &c.frequencySweep)
	strVar("range_toggle", "RADAR_BRIDGE_RANGE_TOGGLE", &c.rangeToggle)
	strVar("detection_sensitivity", "RADAR_BRIDGE_DETECTION_SENSITIVITY", &c.detectionSensitivity)

	boolVar("cube", "RADAR_BRIDGE_CUBE", &c.cubeEnable)
	intVar("cube-port", "RADAR_BRIDGE_CUBE_PORT", &c.cubePort, false)
	intVar("bin-port", "RADAR_BRIDGE_BIN_PORT", &c.binPort, false)

	boolVar("clustering", "RADAR_BRIDGE_CLUSTERING", &c.clusteringEnable)
	intVar("window_size", "RADAR_BRIDGE_WINDOW_SIZE", &c.windowSize, false)
	floatVar("clustering_eps", "RADAR_BRIDGE_CLUSTERING_EPS", &c.clusteringEps)
	intVar("clustering_min_pts", "RADAR_BRIDGE_CLUSTERING_MIN_PTS", &c.clusteringMinPts, false)
	strVar("clustering_param_scale", "RADAR_BRIDGE_CLUSTERING_PARAM_SCALE", &c.clusteringParamScale)
	intVar("clustering_point_limit", "RADAR_BRIDGE_CLUSTERING_POINT_LIMIT", &c.clusteringPointLimit, false)
	boolVar("mirror", "RADAR_BRIDGE_MIRROR", &c.mirror)

	strVar("radar_tf_vec", "RADAR_BRIDGE_RADAR_TF_VEC", &c.radarTFVec)
	strVar("radar_tf_quat", "RADAR_BRIDGE_RADAR_TF_QUAT", &c.radarTFQuat)
	strVar("base_frame_id", "RADAR_BRIDGE_BASE_FRAME_ID", &c.baseFrameID)
	strVar("radar_frame_id", "RADAR_BRIDGE_RADAR_FRAME_ID", &c.radarFrameID)

	strVar("targets_topic", "RADAR_BRIDGE_TARGETS_TOPIC", &c.targetsTopic)
	strVar("clusters_topic", "RADAR_BRIDGE_CLUSTERS_TOPIC", &c.clustersTopic)
	strVar("cube_topic", "RADAR_BRIDGE_CUBE_TOPIC", &c.cubeTopic)
	strVar("pubsub-addr", "RADAR_BRIDGE_PUBSUB_ADDR", &c.pubsubAddr)

	strVar("log-format", "RADAR_BRIDGE_LOG_FORMAT", &c.logFormat)
	strVar("log-level", "RADAR_BRIDGE_LOG_LEVEL", &c.logLevel)
	strVar("metrics-addr", "RADAR_BRIDGE_METRICS", &c.metricsAddr)
	durVar("log-metrics-interval", "RADAR_BRIDGE_LOG_METRICS_INTERVAL", &c.logMetricsEvery)
	boolVar("mdns-enable", "RADAR_BRIDGE_MDNS_ENABLE", &c.mdnsEnable)
	strVar("mdns-name", "RADAR_BRIDGE_MDNS_NAME", &c.mdnsName)

	return firstErr
}

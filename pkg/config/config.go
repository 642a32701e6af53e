package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Server defaults
const (
	DefaultPort        = "8080"
	DefaultDataDir     = "./data/aircast"
	DefaultMaxMemoryMB = 48
)

// Region is fixed for this deployment: one metropolitan bounding box.
const (
	RegionID = "berlin"

	// Bounding box in minLon,minLat,maxLon,maxLat order, as the upstream
	// API expects it.
	RegionBBox = "13.088,52.338,13.761,52.675"

	Pollutant = "pm25"
)

// Ingestion pipeline
const (
	IngestInterval = 1 * time.Hour

	// MaxSensors bounds per-cycle fan-out to the upstream API.
	MaxSensors = 25

	// PrimaryLookback covers upstream reporting lag on the hourly endpoint.
	PrimaryLookback = 30 * time.Hour

	// FallbackLookback for the raw-measurement query.
	FallbackLookback = 6 * time.Hour
)

// Series retention and consumer windows. The retention cap is deliberately
// much larger than the snapshot window: old hours stay on disk, invisible
// to readers, so the window can be widened later without re-ingesting.
const (
	DefaultRetentionCap = 1440 // hourly slots, ~60 days
	SnapshotWindow      = 72   // hours served to timeseries/nowcast consumers
	NowcastWindow       = 24   // hours used for the nowcast band
)

// Alerting defaults
const (
	DefaultThreshold = 90.0 // absolute PM2.5 alert bound, µg/m³
	SpikeFloor       = 10.0 // minimum jump above baseline before the spike rule fires
	SpikeWindow      = 5    // readings in the spike baseline
)

// HTTP timeouts and caching
const (
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second
	ShutdownTimeout    = 30 * time.Second
	UpstreamTimeout    = 10 * time.Second
	ResponseCacheTTL   = 60 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
)

// Config holds server configuration loaded from the environment.
type Config struct {
	Port         string
	DataDir      string
	MaxMemoryMB  int64
	RetentionCap int

	UpstreamBaseURL string
	UpstreamAPIKey  string

	// Notifier credentials. Both must be set or the notifier no-ops.
	NotifyURL   string
	NotifyToken string

	Threshold float64

	// RulesFile is an optional YAML file overriding alert settings at
	// runtime (watched for changes).
	RulesFile string
}

// Load reads configuration from AIRCAST_* environment variables.
func Load() Config {
	return Config{
		Port:            getEnv("AIRCAST_PORT", DefaultPort),
		DataDir:         getEnv("AIRCAST_DATA_DIR", DefaultDataDir),
		MaxMemoryMB:     getEnvInt64("AIRCAST_MAX_MEMORY_MB", DefaultMaxMemoryMB),
		RetentionCap:    int(getEnvInt64("AIRCAST_RETENTION_HOURS", DefaultRetentionCap)),
		UpstreamBaseURL: getEnv("AIRCAST_UPSTREAM_URL", "https://api.openaq.org/v3"),
		UpstreamAPIKey:  os.Getenv("AIRCAST_UPSTREAM_API_KEY"),
		NotifyURL:       os.Getenv("AIRCAST_NOTIFY_URL"),
		NotifyToken:     os.Getenv("AIRCAST_NOTIFY_TOKEN"),
		Threshold:       getEnvFloat("AIRCAST_ALERT_THRESHOLD", DefaultThreshold),
		RulesFile:       os.Getenv("AIRCAST_RULES_FILE"),
	}
}

// getEnv gets a string from an environment variable or returns the default
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from an environment variable or returns the default
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

// getEnvFloat gets a float64 from an environment variable or returns the default
func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %g", key, val, defaultValue)
	}
	return defaultValue
}

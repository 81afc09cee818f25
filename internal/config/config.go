package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rfcampos/sitewatch/internal/models"
)

const (
	DefaultIntervalSeconds  = 5
	DefaultOfflineThreshold = 3 * time.Minute
	DefaultRollbackAfter    = 3
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CollectorConfig struct {
	ServerAddr       string
	DatabasePath     string
	OfflineThreshold time.Duration
	IntervalSeconds  int
	AdminUsername    string
	AdminPassword    string

	// Agent package offered for self-update. Empty path disables the
	// version/download endpoints.
	AgentPackagePath    string
	AgentPackageVersion string

	// Whether a rejected agent_id may re-enter the pending queue by
	// registering again.
	AllowRejectedReregister bool

	Redis *RedisConfig
}

type AgentConfig struct {
	Server          string
	Site            string
	Token           string
	IntervalSeconds int
	Loop            bool
	Cameras         []models.Camera

	StateFile      string
	RequestTimeout time.Duration

	// Self-update behaviour
	UpdateCheckInterval time.Duration
	RollbackAfter       int

	// Uplink probe targets
	UplinkTargets []string
	DNSProbeHost  string
	HTTPProbeURL  string

	// Collector-backed bandwidth test
	SpeedtestEnabled   bool
	SpeedtestInterval  time.Duration
	SpeedDownloadBytes int64
	SpeedUploadBytes   int64

	// Registration retry configuration
	RegistrationMaxRetries        int
	RegistrationInitialBackoff    time.Duration
	RegistrationMaxBackoff        time.Duration
	RegistrationBackoffMultiplier float64
}

func (c *AgentConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return DefaultIntervalSeconds * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// LoadCollectorConfig reads collector config from environment or returns defaults
func LoadCollectorConfig() (*CollectorConfig, error) {
	offline := DefaultOfflineThreshold
	if v := os.Getenv("OFFLINE_THRESHOLD_SEC"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			offline = time.Duration(i) * time.Second
		}
	}

	interval := DefaultIntervalSeconds
	if v := os.Getenv("REPORT_INTERVAL_SEC"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			interval = i
		}
	}

	cfg := &CollectorConfig{
		ServerAddr:              envOrDefault("COLLECTOR_ADDR", ":9000"),
		DatabasePath:            envOrDefault("DATABASE_PATH", "./data/sitewatch.db"),
		OfflineThreshold:        offline,
		IntervalSeconds:         interval,
		AdminUsername:           envOrDefault("ADMIN_USER", "admin"),
		AdminPassword:           envOrDefault("ADMIN_PASSWORD", "password"),
		AgentPackagePath:        os.Getenv("AGENT_PACKAGE_PATH"),
		AgentPackageVersion:     os.Getenv("AGENT_PACKAGE_VERSION"),
		AllowRejectedReregister: envBool("ALLOW_REJECTED_REREGISTER", false),
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := 6379
		if v := os.Getenv("REDIS_PORT"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				port = i
			}
		}
		db := 0
		if v := os.Getenv("REDIS_DB"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				db = i
			}
		}
		cfg.Redis = &RedisConfig{
			Host:     host,
			Port:     port,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		}
	}

	return cfg, nil
}

// agentFileConfig mirrors the structure of agent.json.
type agentFileConfig struct {
	Site                 string          `json:"site"`
	Server               string          `json:"server"`
	Token                string          `json:"token"`
	IntervalSeconds      int             `json:"interval_sec"`
	Loop                 bool            `json:"loop"`
	Cameras              []models.Camera `json:"cameras"`
	Speedtest            *bool           `json:"speedtest"`
	SpeedtestIntervalSec int             `json:"speedtest_interval_sec"`
	SpeedDownloadBytes   int64           `json:"speed_download_bytes"`
	SpeedUploadBytes     int64           `json:"speed_upload_bytes"`
}

// LoadAgentConfig reads agent.json (path from AGENT_CONFIG, default
// ./agent.json) and applies environment overrides. Environment wins over
// the file for every field it names; the camera list only ever comes from
// the file (or later from the collector).
func LoadAgentConfig() (*AgentConfig, error) {
	path := envOrDefault("AGENT_CONFIG", "./agent.json")

	var file agentFileConfig
	raw, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &file); jsonErr != nil {
			return nil, fmt.Errorf("invalid agent config file %s: %w", path, jsonErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read agent config file %s: %w", path, err)
	}

	cfg := &AgentConfig{
		Server:          envOrDefault("AGENT_SERVER", defaultString(file.Server, "http://localhost:9000")),
		Site:            envOrDefault("AGENT_SITE", file.Site),
		Token:           envOrDefault("AGENT_TOKEN", file.Token),
		IntervalSeconds: envInt("AGENT_INTERVAL_SEC", defaultInt(file.IntervalSeconds, DefaultIntervalSeconds)),
		Loop:            envBool("AGENT_LOOP", file.Loop),
		Cameras:         file.Cameras,

		StateFile:      envOrDefault("AGENT_STATE_FILE", "./agent_state.json"),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT", 10)) * time.Second,

		UpdateCheckInterval: time.Duration(envInt("AGENT_UPDATE_CHECK_INTERVAL_SEC", 300)) * time.Second,
		RollbackAfter:       envInt("AGENT_UPDATE_ROLLBACK_AFTER", DefaultRollbackAfter),

		UplinkTargets: []string{"1.1.1.1", "8.8.8.8"},
		DNSProbeHost:  envOrDefault("AGENT_DNS_PROBE_HOST", "google.com"),
		HTTPProbeURL:  envOrDefault("AGENT_HTTP_PROBE_URL", "https://www.google.com"),

		SpeedtestEnabled:   envBool("AGENT_SPEEDTEST", file.Speedtest == nil || *file.Speedtest),
		SpeedtestInterval:  time.Duration(envInt("AGENT_SPEEDTEST_INTERVAL_SEC", defaultInt(file.SpeedtestIntervalSec, 60))) * time.Second,
		SpeedDownloadBytes: envInt64("AGENT_SPEEDTEST_DOWNLOAD_BYTES", defaultInt64(file.SpeedDownloadBytes, 1024*1024)),
		SpeedUploadBytes:   envInt64("AGENT_SPEEDTEST_UPLOAD_BYTES", defaultInt64(file.SpeedUploadBytes, 512*1024)),

		RegistrationMaxRetries:        envInt("REGISTRATION_MAX_RETRIES", 5),
		RegistrationInitialBackoff:    time.Duration(envInt("REGISTRATION_INITIAL_BACKOFF", 1)) * time.Second,
		RegistrationMaxBackoff:        time.Duration(envInt("REGISTRATION_MAX_BACKOFF", 30)) * time.Second,
		RegistrationBackoffMultiplier: 2.0,
	}

	if v := os.Getenv("REGISTRATION_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RegistrationBackoffMultiplier = f
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES":
		return true
	default:
		return false
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAgentConfigDefaults(t *testing.T) {
	t.Setenv("AGENT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadAgentConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "http://localhost:9000" {
		t.Fatalf("unexpected default server %q", cfg.Server)
	}
	if cfg.IntervalSeconds != DefaultIntervalSeconds {
		t.Fatalf("unexpected default interval %d", cfg.IntervalSeconds)
	}
	if cfg.Loop {
		t.Fatalf("loop must default to single pass")
	}
	if !cfg.SpeedtestEnabled {
		t.Fatalf("speedtest must default to enabled")
	}
	if cfg.SpeedtestInterval != time.Minute {
		t.Fatalf("unexpected default speedtest interval %v", cfg.SpeedtestInterval)
	}
	if cfg.RollbackAfter != DefaultRollbackAfter {
		t.Fatalf("unexpected rollback threshold %d", cfg.RollbackAfter)
	}
}

func TestLoadAgentConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	content := `{
		"site": "loja-centro",
		"server": "http://collector:9000",
		"interval_sec": 30,
		"loop": true,
		"cameras": [{"id": "cam1", "ip": "192.168.1.10"}],
		"speedtest": false
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENT_CONFIG", path)

	cfg, err := LoadAgentConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Site != "loja-centro" || cfg.Server != "http://collector:9000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.IntervalSeconds != 30 || !cfg.Loop {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.Cameras) != 1 || cfg.Cameras[0].IP != "192.168.1.10" {
		t.Fatalf("camera list not loaded: %+v", cfg.Cameras)
	}
	if cfg.SpeedtestEnabled {
		t.Fatalf("speedtest disabled in file must stick")
	}
}

func TestLoadAgentConfigEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	if err := os.WriteFile(path, []byte(`{"site": "file-site", "interval_sec": 30}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENT_CONFIG", path)
	t.Setenv("AGENT_SITE", "env-site")
	t.Setenv("AGENT_INTERVAL_SEC", "60")

	cfg, err := LoadAgentConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Site != "env-site" {
		t.Fatalf("expected env override, got %q", cfg.Site)
	}
	if cfg.IntervalSeconds != 60 {
		t.Fatalf("expected env interval, got %d", cfg.IntervalSeconds)
	}
}

func TestLoadAgentConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENT_CONFIG", path)

	if _, err := LoadAgentConfig(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

func TestAgentInterval(t *testing.T) {
	cfg := &AgentConfig{IntervalSeconds: 0}
	if cfg.Interval() != DefaultIntervalSeconds*time.Second {
		t.Fatalf("expected default interval, got %v", cfg.Interval())
	}
	cfg.IntervalSeconds = 42
	if cfg.Interval() != 42*time.Second {
		t.Fatalf("expected 42s, got %v", cfg.Interval())
	}
}

func TestLoadCollectorConfigDefaults(t *testing.T) {
	cfg, err := LoadCollectorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerAddr != ":9000" {
		t.Fatalf("unexpected default addr %q", cfg.ServerAddr)
	}
	if cfg.OfflineThreshold != DefaultOfflineThreshold {
		t.Fatalf("unexpected offline threshold %v", cfg.OfflineThreshold)
	}
	if cfg.Redis != nil {
		t.Fatalf("redis must be disabled without REDIS_HOST")
	}
}

func TestLoadCollectorConfigRedis(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadCollectorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis == nil {
		t.Fatalf("expected redis config")
	}
	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadCollectorConfigOfflineThreshold(t *testing.T) {
	t.Setenv("OFFLINE_THRESHOLD_SEC", "600")

	cfg, err := LoadCollectorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OfflineThreshold != 10*time.Minute {
		t.Fatalf("expected 10m threshold, got %v", cfg.OfflineThreshold)
	}
}

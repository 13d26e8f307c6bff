package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cloud.BaseURL != "https://app.catlinks.cn/api" {
		t.Errorf("BaseURL: got %q", cfg.Cloud.BaseURL)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "feeder-monitor" {
		t.Errorf("ClientID: got %q", cfg.MQTT.ClientID)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Poll.IntervalSeconds != 5 {
		t.Errorf("IntervalSeconds: got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Detection.StableDurationSeconds != 60 {
		t.Errorf("StableDurationSeconds: got %d", cfg.Detection.StableDurationSeconds)
	}
	if cfg.Detection.MinEatingAmount != 2 {
		t.Errorf("MinEatingAmount: got %d", cfg.Detection.MinEatingAmount)
	}
	if cfg.Schedule.RolloverCron != "0 0 * * *" {
		t.Errorf("RolloverCron: got %q", cfg.Schedule.RolloverCron)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
cloud:
  base_url: https://example.test/api
  token: abc123
mqtt:
  broker: tcp://broker.local:1883
poll:
  interval_seconds: 10
detection:
  stable_duration_seconds: 90
  min_eating_amount: 5
devices:
  - id: AB12
    name: Kitchen Feeder
  - id: CD34
    name: Hallway Feeder
    detection:
      spike_threshold: 200
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cloud.Token != "abc123" {
		t.Errorf("Token: got %q", cfg.Cloud.Token)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.Poll.IntervalSeconds != 10 {
		t.Errorf("IntervalSeconds: got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Detection.StableDurationSeconds != 90 {
		t.Errorf("StableDurationSeconds: got %d", cfg.Detection.StableDurationSeconds)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(cfg.Devices))
	}
	if cfg.Devices[0].Name != "Kitchen Feeder" {
		t.Errorf("device name: got %q", cfg.Devices[0].Name)
	}
	if cfg.Devices[1].Detection.SpikeThreshold != 200 {
		t.Errorf("device spike threshold: got %d", cfg.Devices[1].Detection.SpikeThreshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
cloud:
  token: from-file
mqtt:
  broker: tcp://file.local:1883
`)

	t.Setenv("CATLINK_TOKEN", "from-env")
	t.Setenv("MQTT_BROKER", "tcp://env.local:1883")
	t.Setenv("POLL_INTERVAL_SECONDS", "30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cloud.Token != "from-env" {
		t.Errorf("Token: got %q, want from-env", cfg.Cloud.Token)
	}
	if cfg.MQTT.Broker != "tcp://env.local:1883" {
		t.Errorf("Broker: got %q, want env override", cfg.MQTT.Broker)
	}
	if cfg.Poll.IntervalSeconds != 30 {
		t.Errorf("IntervalSeconds: got %d, want 30", cfg.Poll.IntervalSeconds)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "cloud: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDetectionFor(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Detection.StableDurationSeconds = 90

	dev := Device{ID: "AB12", Detection: Detection{MinEatingAmount: 5}}
	lc := cfg.DetectionFor(dev)

	if lc.StableDuration != 90*time.Second {
		t.Errorf("StableDuration: got %v, want 90s", lc.StableDuration)
	}
	if lc.SampleInterval != 5*time.Second {
		t.Errorf("SampleInterval: got %v, want 5s", lc.SampleInterval)
	}
	if lc.MinEatingAmount != 5 {
		t.Errorf("MinEatingAmount: got %d, want device override 5", lc.MinEatingAmount)
	}
	if lc.SpikeThreshold != 100 {
		t.Errorf("SpikeThreshold: got %d, want default 100", lc.SpikeThreshold)
	}
}

func TestValidate(t *testing.T) {
	newValid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		cfg.Cloud.Token = "abc123"
		cfg.Devices = []Device{{ID: "AB12", Name: "Kitchen Feeder"}}
		return cfg
	}

	if err := newValid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := newValid()
	cfg.Cloud.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing token")
	}

	cfg = newValid()
	cfg.Poll.IntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero poll interval")
	}

	cfg = newValid()
	cfg.Detection.StableDurationSeconds = 5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for stable duration below 10s")
	}

	cfg = newValid()
	cfg.Detection.StableDurationSeconds = 301
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for stable duration above 300s")
	}

	cfg = newValid()
	cfg.Detection.MinEatingAmount = 51
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for min eating amount above 50")
	}

	cfg = newValid()
	cfg.Detection.SpikeThreshold = 40
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for spike threshold below 50")
	}

	cfg = newValid()
	cfg.Devices = append(cfg.Devices, Device{ID: "AB12"})
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate device id")
	}

	cfg = newValid()
	cfg.Devices = []Device{{Name: "no id"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for device without id")
	}

	cfg = newValid()
	cfg.Devices[0].Detection.SpikeThreshold = 10
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range device override")
	}
}

// Package config loads daemon configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// Detection holds the eating detector tuning for one feeder. Zero values
// fall back to the daemon-wide defaults.
type Detection struct {
	StableDurationSeconds int `yaml:"stable_duration_seconds"`
	SampleIntervalSeconds int `yaml:"sample_interval_seconds"`
	MinEatingAmount       int `yaml:"min_eating_amount"`
	SpikeThreshold        int `yaml:"spike_threshold"`
}

// Device names one feeder to monitor.
type Device struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Detection Detection `yaml:"detection"`
}

// Config holds all daemon configuration.
type Config struct {
	Cloud struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"cloud"`
	MQTT struct {
		Broker   string `yaml:"broker"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Poll struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"poll"`
	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RolloverCron string `yaml:"rollover_cron"`
	} `yaml:"schedule"`
	Detection Detection `yaml:"detection"`
	Devices   []Device  `yaml:"devices"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("CATLINK_BASE_URL"); v != "" {
		cfg.Cloud.BaseURL = v
	}
	if v := os.Getenv("CATLINK_TOKEN"); v != "" {
		cfg.Cloud.Token = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poll.IntervalSeconds = n
		}
	}
	if v := os.Getenv("STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Cloud.BaseURL == "" {
		cfg.Cloud.BaseURL = "https://app.catlinks.cn/api"
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "feeder-monitor"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Poll.IntervalSeconds == 0 {
		cfg.Poll.IntervalSeconds = 5
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "data"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/feeder_monitor.db"
	}
	if cfg.Schedule.RolloverCron == "" {
		cfg.Schedule.RolloverCron = "0 0 * * *" // midnight
	}
	applyDetectionDefaults(&cfg.Detection)

	return cfg, nil
}

func applyDetectionDefaults(d *Detection) {
	if d.StableDurationSeconds == 0 {
		d.StableDurationSeconds = int(logic.DefaultStableDuration / time.Second)
	}
	if d.SampleIntervalSeconds == 0 {
		d.SampleIntervalSeconds = int(logic.DefaultSampleInterval / time.Second)
	}
	if d.MinEatingAmount == 0 {
		d.MinEatingAmount = logic.DefaultMinEatingAmount
	}
	if d.SpikeThreshold == 0 {
		d.SpikeThreshold = logic.DefaultSpikeThreshold
	}
}

// DetectionFor resolves the detector config for one device, applying the
// daemon-wide values where the device has none.
func (c *Config) DetectionFor(dev Device) logic.Config {
	d := dev.Detection
	if d.StableDurationSeconds == 0 {
		d.StableDurationSeconds = c.Detection.StableDurationSeconds
	}
	if d.SampleIntervalSeconds == 0 {
		d.SampleIntervalSeconds = c.Detection.SampleIntervalSeconds
	}
	if d.MinEatingAmount == 0 {
		d.MinEatingAmount = c.Detection.MinEatingAmount
	}
	if d.SpikeThreshold == 0 {
		d.SpikeThreshold = c.Detection.SpikeThreshold
	}
	return logic.Config{
		StableDuration:  time.Duration(d.StableDurationSeconds) * time.Second,
		SampleInterval:  time.Duration(d.SampleIntervalSeconds) * time.Second,
		MinEatingAmount: d.MinEatingAmount,
		SpikeThreshold:  d.SpikeThreshold,
	}
}

// Validate checks that all required fields are set and within bounds.
func (c *Config) Validate() error {
	if c.Cloud.Token == "" {
		return fmt.Errorf("cloud.token is required")
	}
	if c.Poll.IntervalSeconds < 1 {
		return fmt.Errorf("poll.interval_seconds must be positive")
	}
	if err := validateDetection(c.Detection); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	seen := make(map[string]bool)
	for _, dev := range c.Devices {
		if dev.ID == "" {
			return fmt.Errorf("devices: id is required")
		}
		if seen[dev.ID] {
			return fmt.Errorf("devices: duplicate id %q", dev.ID)
		}
		seen[dev.ID] = true

		// Only validate values the device actually overrides.
		d := dev.Detection
		if d.StableDurationSeconds != 0 || d.MinEatingAmount != 0 || d.SpikeThreshold != 0 {
			full := c.detectionValues(d)
			if err := validateDetection(full); err != nil {
				return fmt.Errorf("devices[%s].detection: %w", dev.ID, err)
			}
		}
	}
	return nil
}

func (c *Config) detectionValues(d Detection) Detection {
	if d.StableDurationSeconds == 0 {
		d.StableDurationSeconds = c.Detection.StableDurationSeconds
	}
	if d.SampleIntervalSeconds == 0 {
		d.SampleIntervalSeconds = c.Detection.SampleIntervalSeconds
	}
	if d.MinEatingAmount == 0 {
		d.MinEatingAmount = c.Detection.MinEatingAmount
	}
	if d.SpikeThreshold == 0 {
		d.SpikeThreshold = c.Detection.SpikeThreshold
	}
	return d
}

func validateDetection(d Detection) error {
	if d.StableDurationSeconds < 10 || d.StableDurationSeconds > 300 {
		return fmt.Errorf("stable_duration_seconds must be 10-300, got %d", d.StableDurationSeconds)
	}
	if d.SampleIntervalSeconds < 1 || d.SampleIntervalSeconds >= d.StableDurationSeconds {
		return fmt.Errorf("sample_interval_seconds must be 1-%d, got %d", d.StableDurationSeconds-1, d.SampleIntervalSeconds)
	}
	if d.MinEatingAmount < 1 || d.MinEatingAmount > 50 {
		return fmt.Errorf("min_eating_amount must be 1-50, got %d", d.MinEatingAmount)
	}
	if d.SpikeThreshold < 50 || d.SpikeThreshold > 500 {
		return fmt.Errorf("spike_threshold must be 50-500, got %d", d.SpikeThreshold)
	}
	return nil
}

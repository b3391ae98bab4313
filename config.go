package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAdapter     = "hci0"
	defaultPollEvery   = time.Second
	defaultLockTimeout = 5 // seconds
)

// timeoutChoices are the confirmation timeouts the operator may pick from.
var timeoutChoices = []int{3, 5, 15}

// Config is the daemon's startup configuration. The confirmation timeout can
// be changed at runtime over IPC but is never written back here.
type Config struct {
	Adapter      string `yaml:"adapter"`       // BlueZ adapter, e.g. "hci0"
	Device       string `yaml:"device"`        // optional MAC address to select at startup
	PollInterval string `yaml:"poll_interval"` // scheduler tick interval, a duration string like "1s"
	LockTimeout  int    `yaml:"lock_timeout"`  // confirmation timeout in seconds: 3, 5 or 15
	Debug        bool   `yaml:"debug"`

	PollEvery time.Duration `yaml:"-"` // parsed PollInterval
}

func defaultConfig() Config {
	return Config{
		Adapter:     defaultAdapter,
		PollEvery:   defaultPollEvery,
		LockTimeout: defaultLockTimeout,
	}
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "proxlock", "config.yaml")
}

// loadConfig reads the yaml config, falling back to defaults when the file
// does not exist. Unset fields also fall back per-field.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Adapter == "" {
		cfg.Adapter = defaultAdapter
	}
	if cfg.PollInterval != "" {
		d, err := time.ParseDuration(cfg.PollInterval)
		if err != nil {
			return cfg, fmt.Errorf("config: parse poll_interval: %w", err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("config: poll_interval must be positive, got %s", d)
		}
		cfg.PollEvery = d
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultPollEvery
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if err := validateTimeout(cfg.LockTimeout); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func validateTimeout(seconds int) error {
	for _, c := range timeoutChoices {
		if seconds == c {
			return nil
		}
	}
	return fmt.Errorf("lock timeout must be one of %v seconds, got %d", timeoutChoices, seconds)
}

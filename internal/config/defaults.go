package config

import (
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with every field set to its default, as
// if loaded with no config file and no environment overrides present.
func DefaultConfig() *Config {
	cfg := &Config{BaseDir: "/var/lib/sharenode"}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields with defaults, after a
// config file or environment variables have been applied. Explicit
// values are left untouched.
func ApplyDefaults(cfg *Config) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "/var/lib/sharenode"
	}
	applyLoggingDefaults(&cfg.Logging)
	applyLeaseDBDefaults(&cfg.LeaseDB, cfg.BaseDir)
	applyCrawlerDefaults(&cfg.Crawler, cfg.BaseDir)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdminAPIDefaults(&cfg.AdminAPI)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyLeaseDBDefaults(cfg *LeaseDBConfig, baseDir string) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(baseDir, "leasedb.sqlite")
	}
}

func applyCrawlerDefaults(cfg *CrawlerConfig, baseDir string) {
	if cfg.SlowStart == 0 {
		cfg.SlowStart = 7 * time.Minute
	}
	if cfg.MinimumCycleTime == 0 {
		cfg.MinimumCycleTime = 12 * time.Hour
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(baseDir, "crawler-state.json")
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAdminAPIDefaults(cfg *AdminAPIConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:9091"
	}
}

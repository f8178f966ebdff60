// Package config loads the accounting core's static configuration:
// storage layout, crawler pacing, lease database backend, and the
// ambient logging/metrics/admin-API surfaces. Configuration sources, in
// order of precedence:
//
//  1. Environment variables (SHARENODE_*), for keys the config file sets
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// No CLI flag overrides a configuration value; the commands' --config
// flag only selects the file. Without a config file, environment
// variables are not read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the accounting core's top-level static configuration.
type Config struct {
	BaseDir  string         `mapstructure:"base_dir" validate:"required" yaml:"base_dir"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	LeaseDB  LeaseDBConfig  `mapstructure:"leasedb" yaml:"leasedb"`
	Crawler  CrawlerConfig  `mapstructure:"crawler" yaml:"crawler"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	AdminAPI AdminAPIConfig `mapstructure:"admin_api" yaml:"admin_api"`
}

// LoggingConfig controls the process-wide logger (internal/logger).
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// LeaseDBConfig configures pkg/leasedb's backing store.
type LeaseDBConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`
	DSN    string `mapstructure:"dsn" validate:"required" yaml:"dsn"`
}

// CrawlerConfig configures pkg/crawler's pacing and lease-expiration
// policy.
type CrawlerConfig struct {
	SlowStart              time.Duration `mapstructure:"slow_start" yaml:"slow_start"`
	MinimumCycleTime       time.Duration `mapstructure:"minimum_cycle_time" yaml:"minimum_cycle_time"`
	AllowedCPUPercentage   float64       `mapstructure:"allowed_cpu_percentage" validate:"omitempty,gte=0,lte=1" yaml:"allowed_cpu_percentage"`
	StatePath              string        `mapstructure:"state_path" validate:"required" yaml:"state_path"`
	LeaseExpirationEnabled bool          `mapstructure:"lease_expiration_enabled" yaml:"lease_expiration_enabled"`
}

// MetricsConfig holds Prometheus metrics settings. sharenoded does not
// read Enabled or Port; metrics are served at the admin API's /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminAPIConfig configures internal/adminapi's read-only HTTP surface.
type AdminAPIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" validate:"omitempty,hostname_port" yaml:"address"`
}

// Load reads configuration from configPath (if non-empty and it
// exists) with environment variable overrides for the keys that file
// sets, fills the remaining fields with defaults, then validates the
// result. When no config file is found, the result is the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg to path in YAML form.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SHARENODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sharenode")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

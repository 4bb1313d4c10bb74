// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads graphd settings.
//
// Precedence, lowest first: DefaultConfig, the YAML file, GRAPHD_*
// environment variables, command-line flags (applied by cmd/graphd).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the full graphd configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the line-protocol listener.
type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address" validate:"required,hostname_port"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" validate:"gte=0"` // 0 disables
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=0"` // 0 = unbounded
	ReuseAddress  bool          `yaml:"reuse_address"`
}

// AdminConfig controls the HTTP admin surface.
type AdminConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ListenAddress     string `yaml:"listen_address" validate:"omitempty,hostname_port"`
	WebsocketSessions bool   `yaml:"websocket_sessions"`
}

// LoggingConfig controls pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON   bool   `yaml:"json"`
	LogDir string `yaml:"log_dir"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none otlp stdout"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none prometheus stdout"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddress: ":50000",
			IdleTimeout:   30 * time.Second,
			MaxSessions:   0,
			ReuseAddress:  true,
		},
		Admin: AdminConfig{
			Enabled:           true,
			ListenAddress:     ":9090",
			WebsocketSessions: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
	}
}

// Load builds the effective configuration.
//
// Description:
//
//	Starts from DefaultConfig, overlays the YAML file at path (skipped when
//	path is empty), then GRAPHD_* environment variables, and validates the
//	result. Keys missing from the file keep their defaults.
//
// Errors:
//
//	ErrInvalidConfig - the file does not parse or a value is out of range
//	Read errors for an unreadable file are returned as-is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Admin.Enabled && c.Admin.ListenAddress == "" {
		return fmt.Errorf("%w: admin.listen_address is required when admin is enabled", ErrInvalidConfig)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := DefaultConfig().Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays GRAPHD_* environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err)
		}
		*dst = b
		return nil
	}

	str("GRAPHD_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	str("GRAPHD_ADMIN_ADDRESS", &cfg.Admin.ListenAddress)
	str("GRAPHD_LOG_LEVEL", &cfg.Logging.Level)
	str("GRAPHD_LOG_DIR", &cfg.Logging.LogDir)
	str("GRAPHD_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	str("GRAPHD_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	str("GRAPHD_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	if v, ok := lookup("GRAPHD_IDLE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: GRAPHD_IDLE_TIMEOUT=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Server.IdleTimeout = d
	}
	if v, ok := lookup("GRAPHD_MAX_SESSIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GRAPHD_MAX_SESSIONS=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Server.MaxSessions = n
	}

	for key, dst := range map[string]*bool{
		"GRAPHD_ADMIN_ENABLED": &cfg.Admin.Enabled,
		"GRAPHD_LOG_JSON":      &cfg.Logging.JSON,
		"GRAPHD_OTLP_INSECURE": &cfg.Telemetry.OTLPInsecure,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}

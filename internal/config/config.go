// Package config handles router configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"firestige.xyz/router/internal/core"
)

// Config represents the top-level router configuration.
// Maps to the `router:` root key in YAML.
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Capture    CaptureConfig    `mapstructure:"capture" yaml:"capture"`
	Forwarding ForwardingConfig `mapstructure:"forwarding" yaml:"forwarding"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level" yaml:"level"`   // trace / debug / info / warn / error
	Format     string           `mapstructure:"format" yaml:"format"` // text / json / pattern / prefixed
	Pattern    string           `mapstructure:"pattern" yaml:"pattern"`
	TimeFormat string           `mapstructure:"time_format" yaml:"time_format"`
	File       FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures rotating file log output.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Capture ───

// CaptureConfig configures the raw frame transport opened on each interface.
type CaptureConfig struct {
	Type         string `mapstructure:"type" yaml:"type"` // afpacket | pcap
	SnapLen      int    `mapstructure:"snap_len" yaml:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	BPFFilter    string `mapstructure:"bpf_filter" yaml:"bpf_filter"`
	Promiscuous  bool   `mapstructure:"promiscuous" yaml:"promiscuous"`
}

// ─── Forwarding ───

// ForwardingConfig tunes the forwarding engines.
// ARP retry settings are fixed in code.
type ForwardingConfig struct {
	// DropMalformed counts and drops undecodable frames instead of stopping the router.
	DropMalformed bool `mapstructure:"drop_malformed" yaml:"drop_malformed"`
}

var (
	validLevels       = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validFormats      = map[string]bool{"text": true, "json": true, "pattern": true, "prefixed": true}
	validCaptureTypes = map[string]bool{"afpacket": true, "pcap": true}
)

// ValidateAndApplyDefaults validates configuration and normalises enum fields.
func (cfg *Config) ValidateAndApplyDefaults() error {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if !validFormats[cfg.Log.Format] {
		return fmt.Errorf("%w: invalid log format: %s (must be text/json/pattern/prefixed)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Format == "pattern" && cfg.Log.Pattern == "" {
		return fmt.Errorf("%w: log.pattern is required when log.format=pattern", core.ErrConfigInvalid)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	cfg.Capture.Type = strings.ToLower(strings.TrimSpace(cfg.Capture.Type))
	if cfg.Capture.Type == "af_packet" || cfg.Capture.Type == "af-packet" {
		cfg.Capture.Type = "afpacket"
	}
	if !validCaptureTypes[cfg.Capture.Type] {
		return fmt.Errorf("%w: unsupported capture.type: %s (must be afpacket/pcap)", core.ErrConfigInvalid, cfg.Capture.Type)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.SnapLen)
	}
	if cfg.Capture.BufferSizeMB <= 0 {
		return fmt.Errorf("%w: capture.buffer_size_mb must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.BufferSizeMB)
	}
	if cfg.Capture.TimeoutMs <= 0 {
		return fmt.Errorf("%w: capture.timeout_ms must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.TimeoutMs)
	}

	return nil
}

package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const rootKey = "router"

// configRoot is the top-level wrapper matching the YAML structure `router: ...`.
type configRoot struct {
	Router Config `mapstructure:"router"`
}

// Loader reads configuration from an optional file plus ROUTER_* environment overrides.
type Loader struct {
	v    *viper.Viper
	path string

	mu       sync.Mutex
	watching bool
}

// NewLoader creates a loader. An empty path loads defaults and environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	// No explicit env prefix: the `router.` key prefix maps to `ROUTER_`
	// through the key replacer (e.g., "router.log.level" → "ROUTER_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v, path: path}
}

// Load loads configuration from file.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Load reads, unmarshals and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var root configRoot
	if err := l.v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Router

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Watch calls onChange with the re-validated configuration every time the
// config file is written. Invalid revisions are reported through onError and
// skipped. Watch is a no-op without a config file.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watching {
		return
	}
	l.watching = true

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// setDefaults sets default values for configuration.
// All keys use the "router." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	key := func(k string) string { return rootKey + "." + k }

	// Log defaults
	v.SetDefault(key("log.level"), "info")
	v.SetDefault(key("log.format"), "text")
	v.SetDefault(key("log.pattern"), "%time [%level] %caller %msg %field\n")
	v.SetDefault(key("log.time_format"), "2006-01-02 15:04:05.000")
	v.SetDefault(key("log.file.enabled"), false)
	v.SetDefault(key("log.file.path"), "/var/log/router/router.log")
	v.SetDefault(key("log.file.max_size_mb"), 100)
	v.SetDefault(key("log.file.max_age_days"), 30)
	v.SetDefault(key("log.file.max_backups"), 5)
	v.SetDefault(key("log.file.compress"), true)

	// Metrics defaults
	v.SetDefault(key("metrics.enabled"), false)
	v.SetDefault(key("metrics.listen"), ":9091")
	v.SetDefault(key("metrics.path"), "/metrics")

	// Capture defaults
	v.SetDefault(key("capture.type"), "afpacket")
	v.SetDefault(key("capture.snap_len"), 65536)
	v.SetDefault(key("capture.buffer_size_mb"), 8)
	v.SetDefault(key("capture.timeout_ms"), 100)
	v.SetDefault(key("capture.bpf_filter"), "")
	v.SetDefault(key("capture.promiscuous"), true)

	// Forwarding defaults
	v.SetDefault(key("forwarding.drop_malformed"), false)
}

// Package daemon implements the router process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"firestige.xyz/router/internal/arptable"
	"firestige.xyz/router/internal/config"
	"firestige.xyz/router/internal/log"
	"firestige.xyz/router/internal/metrics"
	"firestige.xyz/router/internal/router"
	"firestige.xyz/router/internal/transport"
)

// Daemon owns everything the router process runs: logging, the config
// watcher, the optional metrics server, both ports and the router.
type Daemon struct {
	// Configuration
	config     *config.Config
	loader     *config.Loader
	configPath string
	interfaces [2]string
	pidFile    string

	mu       sync.Mutex
	logLevel string // current level, changed by hot reload

	// Core components
	ports         [2]*router.Port
	router        *router.Router
	metricsServer *metrics.Server // nil if metrics disabled

	// Replaced in tests to run without real interfaces.
	lookup func(name string) (*transport.Interface, error)
	open   func(opts transport.Options) (transport.Transport, error)
}

// New loads the configuration and prepares a daemon forwarding between
// the two named interfaces. An empty configPath uses built-in defaults.
func New(configPath string, interfaces [2]string, pidFile string) (*Daemon, error) {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &Daemon{
		config:     cfg,
		loader:     loader,
		configPath: configPath,
		interfaces: interfaces,
		pidFile:    pidFile,
		logLevel:   cfg.Log.Level,
		lookup:     transport.Lookup,
		open:       transport.Open,
	}, nil
}

// Config returns the configuration loaded at startup.
func (d *Daemon) Config() *config.Config {
	return d.config
}

// Start initializes logging and metrics, opens both ports and builds the
// router. On error everything opened so far is released.
func (d *Daemon) Start(ctx context.Context) (err error) {
	// 1. Initialize logging system
	if err := log.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"config":     d.configPath,
		"interfaces": fmt.Sprintf("%s,%s", d.interfaces[0], d.interfaces[1]),
		"capture":    d.config.Capture.Type,
	}).Info("starting router")

	defer func() {
		if err != nil {
			d.Stop()
		}
	}()

	// 2. Hot reload of the log level
	d.loader.Watch(d.onConfigChange, func(err error) {
		log.GetLogger().WithError(err).Warn("ignored invalid config change")
	})

	// 3. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 4. Start metrics server
	if err := d.startMetrics(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 5. Open both ports
	for i, name := range d.interfaces {
		port, err := d.openPort(name)
		if err != nil {
			return err
		}
		d.ports[i] = port
	}

	// 6. Wire the router
	table := arptable.New(arptable.WithSizeObserver(func(n int) {
		metrics.ARPTableEntries.Set(float64(n))
	}))
	r, err := router.New(d.ports[0], d.ports[1], table,
		router.WithDropMalformed(d.config.Forwarding.DropMalformed))
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}
	d.router = r
	return nil
}

// Run forwards until ctx is cancelled or an engine fails, then stops the
// remaining components. Cancellation returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	if d.router == nil {
		return fmt.Errorf("daemon not started")
	}
	err := d.router.Run(ctx)
	// Router.Run closed the transports.
	d.ports = [2]*router.Port{}
	d.Stop()
	return err
}

// Stop releases the metrics server, open ports and the PID file. Safe to
// call more than once.
func (d *Daemon) Stop() {
	for i, p := range d.ports {
		if p == nil {
			continue
		}
		if err := p.Transport.Close(); err != nil {
			log.GetLogger().WithError(err).Errorf("error closing %s", p.Name)
		}
		d.ports[i] = nil
	}

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			log.GetLogger().WithError(err).Error("error stopping metrics server")
		}
		d.metricsServer = nil
	}

	if err := d.removePIDFile(); err != nil {
		log.GetLogger().WithError(err).Error("error removing PID file")
	}
}

// onConfigChange applies the hot-reloadable part of a new configuration.
// Only the log level is hot-reloadable; the rest needs a restart.
func (d *Daemon) onConfigChange(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Log.Level == d.logLevel {
		return
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		log.GetLogger().WithError(err).Error("failed to apply log level")
		return
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"old": d.logLevel,
		"new": cfg.Log.Level,
	}).Info("log level reloaded")
	d.logLevel = cfg.Log.Level
}

// LogLevel returns the log level currently in effect.
func (d *Daemon) LogLevel() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logLevel
}

func (d *Daemon) openPort(name string) (*router.Port, error) {
	iface, err := d.lookup(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interface %s: %w", name, err)
	}

	opts, err := transport.OptionsFromConfig(iface, d.config.Capture)
	if err != nil {
		return nil, err
	}
	t, err := d.open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"interface": iface.Name,
		"index":     iface.Index,
		"hw_addr":   iface.HardwareAddr.String(),
		"ipv4":      iface.IPv4.String(),
		"type":      string(opts.Type),
	}).Info("port opened")
	return router.NewPort(iface, t), nil
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics(ctx context.Context) error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Debug("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(ctx); err != nil {
		d.metricsServer = nil
		return err
	}
	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	log.GetLogger().WithFields(map[string]interface{}{"path": d.pidFile, "pid": pid}).Debug("PID file written")
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}

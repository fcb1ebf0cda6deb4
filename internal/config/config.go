// Package config loads tasknest settings from config.yaml in the vault
// root, with TASKNEST_-prefixed environment overrides. The tunables the
// sync machinery exposes (burst threshold, self-write grace, scheduler
// cadence) live here rather than as constants, since their right values
// are a deployment decision.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file expected in the vault root.
const FileName = "config.yaml"

// Config is the loaded configuration.
type Config struct {
	// BurstThreshold is the per-source new-file count above which a sync
	// pass reports a rate-limited batch instead of individual creations.
	BurstThreshold int `mapstructure:"burst_threshold"`

	// SelfWriteGrace is how long a pending self-write registration stays
	// valid before it is swept.
	SelfWriteGrace time.Duration `mapstructure:"self_write_grace"`

	// SelfWriteTolerance is the allowed gap between a registered and an
	// observed modification time.
	SelfWriteTolerance time.Duration `mapstructure:"self_write_tolerance"`

	// BaseInterval is the scheduler's steady-state delay between passes.
	BaseInterval time.Duration `mapstructure:"base_interval"`

	// FastPathDelay is the scheduler delay after a local change.
	FastPathDelay time.Duration `mapstructure:"fast_path_delay"`

	// Backoff is the scheduler's ladder of delays under repeated failure.
	Backoff []time.Duration `mapstructure:"backoff"`

	// DebounceInterval batches rapid watcher notifications into one
	// fast-sync trigger.
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`

	// IndexPath locates the SQLite mirror, relative to the vault root
	// unless absolute.
	IndexPath string `mapstructure:"index_path"`

	// FreshnessTTL bounds how long an index row is trusted without being
	// reconciled by a pass.
	FreshnessTTL time.Duration `mapstructure:"freshness_ttl"`

	// LogFile receives daemon logs (rotated). Empty means stderr.
	LogFile string `mapstructure:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BurstThreshold:     25,
		SelfWriteGrace:     10 * time.Second,
		SelfWriteTolerance: 2 * time.Second,
		BaseInterval:       30 * time.Second,
		FastPathDelay:      500 * time.Millisecond,
		Backoff: []time.Duration{
			5 * time.Second,
			15 * time.Second,
			time.Minute,
			5 * time.Minute,
		},
		DebounceInterval: 200 * time.Millisecond,
		IndexPath:        filepath.Join(".tasknest", "index.db"),
		FreshnessTTL:     24 * time.Hour,
	}
}

// Load reads config.yaml from the vault root. A missing file yields the
// defaults; environment variables prefixed TASKNEST_ override either way
// (e.g. TASKNEST_BURST_THRESHOLD=50).
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	v.SetEnvPrefix("TASKNEST")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("burst_threshold", def.BurstThreshold)
	v.SetDefault("self_write_grace", def.SelfWriteGrace)
	v.SetDefault("self_write_tolerance", def.SelfWriteTolerance)
	v.SetDefault("base_interval", def.BaseInterval)
	v.SetDefault("fast_path_delay", def.FastPathDelay)
	v.SetDefault("backoff", def.Backoff)
	v.SetDefault("debounce_interval", def.DebounceInterval)
	v.SetDefault("index_path", def.IndexPath)
	v.SetDefault("freshness_ttl", def.FreshnessTTL)
	v.SetDefault("log_file", def.LogFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BaseInterval <= 0 {
		return fmt.Errorf("base_interval must be positive")
	}
	if c.FastPathDelay <= 0 {
		return fmt.Errorf("fast_path_delay must be positive")
	}
	if c.SelfWriteGrace <= 0 || c.SelfWriteTolerance <= 0 {
		return fmt.Errorf("self-write grace and tolerance must be positive")
	}
	if c.IndexPath == "" {
		return fmt.Errorf("index_path cannot be empty")
	}
	return nil
}

// ResolveIndexPath returns the index location anchored at the vault root.
func (c *Config) ResolveIndexPath(root string) string {
	if filepath.IsAbs(c.IndexPath) {
		return c.IndexPath
	}
	return filepath.Join(root, c.IndexPath)
}

// skeleton is written into new vaults so the tunables are discoverable.
const skeleton = `# tasknest configuration. All values shown are the defaults;
# uncomment to change. Environment variables prefixed TASKNEST_
# override this file (e.g. TASKNEST_BURST_THRESHOLD=50).

# New files from one source per sync pass before they are reported
# as a rate-limited batch.
#burst_threshold: 25

# How long the system remembers its own writes, and how far an
# observed modification time may drift from the registered one.
#self_write_grace: 10s
#self_write_tolerance: 2s

# Sync cadence: steady-state interval, post-edit fast path, and the
# delays used after consecutive failures.
#base_interval: 30s
#fast_path_delay: 500ms
#backoff: [5s, 15s, 1m, 5m]

# Quiet period for batching file-watcher notifications.
#debounce_interval: 200ms

# SQLite mirror location, relative to the vault root.
#index_path: .tasknest/index.db

# How long index rows are trusted without reconciliation.
#freshness_ttl: 24h

# Daemon log file (rotated). Empty logs to stderr.
#log_file: ""
`

// WriteSkeleton writes a commented config.yaml into root, refusing to
// clobber an existing one.
func WriteSkeleton(root string) error {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(skeleton), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", FileName, err)
	}
	return nil
}

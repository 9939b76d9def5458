package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Proxherd configuration
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StoreConfig controls where proxy records are persisted
type StoreConfig struct {
	// Dir is the directory holding one <id>.json record per proxy.
	// If empty, defaults to "proxies" under the data directory.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
}

// SupervisorConfig controls spawn and readiness-polling behavior
type SupervisorConfig struct {
	// InitialDelayMs is the wait before the first readiness poll (in milliseconds).
	// Windows defaults higher to absorb process-creation overhead.
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
	// PollIntervalMs is the spacing between readiness polls (in milliseconds)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// MaxAttempts is the number of readiness polls before giving up
	MaxAttempts int `mapstructure:"max_attempts"`
	// DialTimeoutMs is the per-attempt TCP connect timeout (in milliseconds)
	DialTimeoutMs int `mapstructure:"dial_timeout_ms"`
	// StopGraceMs is the wait between the termination signal and record
	// deletion (in milliseconds)
	StopGraceMs int `mapstructure:"stop_grace_ms"`
	// LogDir is the directory for per-proxy worker log files.
	// If empty, the platform temp directory is used.
	LogDir string `mapstructure:"log_dir"`
}

// WorkerConfig controls the spawned worker process
type WorkerConfig struct {
	// UpstreamDialTimeoutMs is the connect timeout when relaying an
	// accepted connection to the upstream (in milliseconds)
	UpstreamDialTimeoutMs int `mapstructure:"upstream_dial_timeout_ms"`
}

// DaemonConfig controls the background reconcile loop
type DaemonConfig struct {
	// ReconcileIntervalSec is how often the daemon sweeps the store for
	// records whose process died (in seconds)
	ReconcileIntervalSec int `mapstructure:"reconcile_interval_sec"`
	// CleanStale controls whether stale records are deleted (true) or
	// only logged (false)
	CleanStale bool `mapstructure:"clean_stale"`
}

// LoggingConfig controls supervisor-side debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the supervisor log file.
	// If empty, defaults to the data directory. Supports ~ expansion.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated backups (default: false)
	Compress bool `mapstructure:"compress"`
}

// ResolveDir returns the resolved store directory path.
// If Dir is empty, it returns the default "proxies" directory under the
// data directory. If Dir starts with ~, it expands to the user's home
// directory.
func (s *StoreConfig) ResolveDir() string {
	if s.Dir == "" {
		return filepath.Join(DataDir(), "proxies")
	}
	return expandHome(s.Dir)
}

// ResolveDir returns the resolved log directory path, or empty when
// logging is disabled (callers fall back to stderr-only logging).
func (l *LoggingConfig) ResolveDir() string {
	if !l.Enabled {
		return ""
	}
	if l.Dir == "" {
		return DataDir()
	}
	return expandHome(l.Dir)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
	}
	return path
}

// Default returns a Config with sensible default values.
// Poller timings differ per platform: Windows process creation is slow
// enough (console host setup, anti-malware scanning) that the first poll
// fires later and the attempt budget is larger.
func Default() *Config {
	initialDelayMs := 100
	maxAttempts := 80
	if runtime.GOOS == "windows" {
		initialDelayMs = 500
		maxAttempts = 150
	}

	return &Config{
		Store: StoreConfig{
			Dir: "", // Empty means use default: <data dir>/proxies
		},
		Supervisor: SupervisorConfig{
			InitialDelayMs: initialDelayMs,
			PollIntervalMs: 100,
			MaxAttempts:    maxAttempts,
			DialTimeoutMs:  200,
			StopGraceMs:    500,
			LogDir:         "", // Empty means use the platform temp directory
		},
		Worker: WorkerConfig{
			UpstreamDialTimeoutMs: 5000,
		},
		Daemon: DaemonConfig{
			ReconcileIntervalSec: 30,
			CleanStale:           true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "", // Empty means use the data directory
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// InitialDelay returns the pre-poll delay as a time.Duration
func (c *SupervisorConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMs) * time.Millisecond
}

// PollInterval returns the poll spacing as a time.Duration
func (c *SupervisorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DialTimeout returns the per-attempt connect timeout as a time.Duration
func (c *SupervisorConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// StopGrace returns the post-signal grace period as a time.Duration
func (c *SupervisorConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMs) * time.Millisecond
}

// UpstreamDialTimeout returns the relay connect timeout as a time.Duration
func (c *WorkerConfig) UpstreamDialTimeout() time.Duration {
	return time.Duration(c.UpstreamDialTimeoutMs) * time.Millisecond
}

// ReconcileInterval returns the sweep spacing as a time.Duration
func (c *DaemonConfig) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSec) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Store defaults
	viper.SetDefault("store.dir", defaults.Store.Dir)

	// Supervisor defaults
	viper.SetDefault("supervisor.initial_delay_ms", defaults.Supervisor.InitialDelayMs)
	viper.SetDefault("supervisor.poll_interval_ms", defaults.Supervisor.PollIntervalMs)
	viper.SetDefault("supervisor.max_attempts", defaults.Supervisor.MaxAttempts)
	viper.SetDefault("supervisor.dial_timeout_ms", defaults.Supervisor.DialTimeoutMs)
	viper.SetDefault("supervisor.stop_grace_ms", defaults.Supervisor.StopGraceMs)
	viper.SetDefault("supervisor.log_dir", defaults.Supervisor.LogDir)

	// Worker defaults
	viper.SetDefault("worker.upstream_dial_timeout_ms", defaults.Worker.UpstreamDialTimeoutMs)

	// Daemon defaults
	viper.SetDefault("daemon.reconcile_interval_sec", defaults.Daemon.ReconcileIntervalSec)
	viper.SetDefault("daemon.clean_stale", defaults.Daemon.CleanStale)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "proxherd")
	}
	// Fall back to ~/.config/proxherd
	home, err := os.UserHomeDir()
	if err != nil {
		return ".proxherd"
	}
	return filepath.Join(home, ".config", "proxherd")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the path to the user's data directory
func DataDir() string {
	// Check XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "proxherd")
	}
	// Fall back to ~/.local/share/proxherd
	home, err := os.UserHomeDir()
	if err != nil {
		return ".proxherd"
	}
	return filepath.Join(home, ".local", "share", "proxherd")
}

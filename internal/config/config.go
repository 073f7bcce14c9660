// Package config loads daybook configuration from file and environment.
//
// Lookup order: built-in defaults, then daybook.yaml in ~/.daybook and the
// working directory (the project file wins), then DAYBOOK_* environment
// variables on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daybook configuration tree.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite", "file", or "memory".
	Driver string `mapstructure:"driver"`

	// Path is the database file (sqlite) or data directory (file).
	Path string `mapstructure:"path"`
}

// SyncConfig tunes the scheduler and gateway.
type SyncConfig struct {
	QuiescenceMS    int `mapstructure:"quiescence_ms"`
	DisplayWindowMS int `mapstructure:"display_window_ms"`
	LatencyMS       int `mapstructure:"latency_ms"`
}

// EngineConfig tunes workspace behavior.
type EngineConfig struct {
	RehomeOnComplete bool `mapstructure:"rehome_on_complete"`
}

// SummaryConfig configures the summary provider.
type SummaryConfig struct {
	// APIKey may be empty; the provider then reads ANTHROPIC_API_KEY.
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DashboardConfig configures the observer WebSocket server.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures optional rotating-file logging.
type LogConfig struct {
	// File is the log path. Empty logs to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   defaultStorePath(),
		},
		Sync: SyncConfig{
			QuiescenceMS:    1500,
			DisplayWindowMS: 1200,
			LatencyMS:       0,
		},
		Engine: EngineConfig{
			RehomeOnComplete: true,
		},
		Summary: SummaryConfig{},
		Dashboard: DashboardConfig{
			Port: 8422,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// Load reads configuration from the standard locations and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("daybook")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".daybook"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("DAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults; a broken one does not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from an explicit path, for --config.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	v.SetEnvPrefix("DAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the components cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Sync.QuiescenceMS <= 0 {
		return fmt.Errorf("sync.quiescence_ms must be positive, got %d", c.Sync.QuiescenceMS)
	}
	if c.Sync.DisplayWindowMS < 0 || c.Sync.LatencyMS < 0 {
		return fmt.Errorf("sync windows must be non-negative")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	return nil
}

// Quiescence returns the scheduler quiescence window.
func (c *Config) Quiescence() time.Duration {
	return time.Duration(c.Sync.QuiescenceMS) * time.Millisecond
}

// DisplayWindow returns the scheduler display window.
func (c *Config) DisplayWindow() time.Duration {
	return time.Duration(c.Sync.DisplayWindowMS) * time.Millisecond
}

// Latency returns the gateway's artificial latency bound.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Sync.LatencyMS) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("sync.quiescence_ms", def.Sync.QuiescenceMS)
	v.SetDefault("sync.display_window_ms", def.Sync.DisplayWindowMS)
	v.SetDefault("sync.latency_ms", def.Sync.LatencyMS)
	v.SetDefault("engine.rehome_on_complete", def.Engine.RehomeOnComplete)
	v.SetDefault("summary.api_key", def.Summary.APIKey)
	v.SetDefault("summary.model", def.Summary.Model)
	v.SetDefault("dashboard.port", def.Dashboard.Port)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "daybook.db"
	}
	return filepath.Join(home, ".daybook", "daybook.db")
}

// Package config provides configuration management for the discovery service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/proc-discovery/pkg/model"
)

// Config holds all configuration for the application.
type Config struct {
	Miner     MinerConfig     `mapstructure:"miner"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Sources   []SourceConfig  `mapstructure:"sources"`
}

// SourceConfig describes one event source to mine from. The service
// converts these into source-package configurations and builds the
// sources through its registry.
type SourceConfig struct {
	// Type is the registered source type (stream, xes, http).
	Type string `mapstructure:"type"`

	// Name is the unique name for this source instance.
	Name string `mapstructure:"name"`

	// Stream is the stream name the source's events are tagged with.
	Stream string `mapstructure:"stream"`

	// Enabled indicates whether this source is enabled.
	Enabled bool `mapstructure:"enabled"`

	// Options holds source-specific configuration options.
	Options map[string]interface{} `mapstructure:"options"`
}

// MinerConfig holds the discovery parameters and artifact output settings.
type MinerConfig struct {
	ErrorEpsilon    float64 `mapstructure:"error_epsilon"`
	DependThreshold float64 `mapstructure:"depend_threshold"`
	XorThreshold    float64 `mapstructure:"xor_threshold"`
	RebuildEvery    int     `mapstructure:"rebuild_every"`
	WindowSize      int     `mapstructure:"window_size"`
	DataDir         string  `mapstructure:"data_dir"`
}

// Params converts the miner section into per-instance parameters.
func (c MinerConfig) Params() model.MinerParams {
	return model.MinerParams{
		ErrorEpsilon:    c.ErrorEpsilon,
		DependThreshold: c.DependThreshold,
		XorThreshold:    c.XorThreshold,
		RebuildEvery:    c.RebuildEvery,
		WindowSize:      c.WindowSize,
	}
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	WorkerCount   int `mapstructure:"worker_count"`
	BufferSize    int `mapstructure:"buffer_size"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/proc-discovery")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
		} else if os.IsNotExist(err) {
			// File specified but doesn't exist, use defaults
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PROC_DISCOVERY")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Miner defaults
	v.SetDefault("miner.error_epsilon", 0.001)
	v.SetDefault("miner.depend_threshold", 0.9)
	v.SetDefault("miner.xor_threshold", 0.8)
	v.SetDefault("miner.rebuild_every", 5000)
	v.SetDefault("miner.window_size", 0)
	v.SetDefault("miner.data_dir", "./data")

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "proc_discovery")
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Scheduler defaults
	v.SetDefault("scheduler.worker_count", 4)
	v.SetDefault("scheduler.buffer_size", 1024)
	v.SetDefault("scheduler.task_batch_size", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.service_name", "proc-discovery")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.insecure", true)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidateParams(c.Miner.Params()); err != nil {
		return err
	}

	switch c.Database.Type {
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			return fmt.Errorf("unsupported telemetry protocol: %s", c.Telemetry.Protocol)
		}
	}

	for i, src := range c.Sources {
		if !src.Enabled {
			continue
		}
		if src.Type == "" {
			return fmt.Errorf("source %d has no type", i)
		}
		if src.Name == "" {
			return fmt.Errorf("source %d (%s) has no name", i, src.Type)
		}
	}

	return nil
}

// ValidateParams checks the discovery parameters against their domains.
func ValidateParams(p model.MinerParams) error {
	if p.ErrorEpsilon <= 0 || p.ErrorEpsilon > 1 {
		return fmt.Errorf("error_epsilon must be in (0, 1], got %v", p.ErrorEpsilon)
	}
	if p.DependThreshold < 0 || p.DependThreshold > 1 {
		return fmt.Errorf("depend_threshold must be in [0, 1], got %v", p.DependThreshold)
	}
	if p.XorThreshold < 0 || p.XorThreshold > 1 {
		return fmt.Errorf("xor_threshold must be in [0, 1], got %v", p.XorThreshold)
	}
	if p.RebuildEvery < 0 {
		return fmt.Errorf("rebuild_every must not be negative, got %d", p.RebuildEvery)
	}
	if p.WindowSize < 0 {
		return fmt.Errorf("window_size must not be negative, got %d", p.WindowSize)
	}
	return nil
}

// EnsureDataDir creates the artifact directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Miner.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Miner.DataDir, 0755)
}

// StreamDir returns the artifact directory for one stream.
func (c *Config) StreamDir(stream string) string {
	return filepath.Join(c.Miner.DataDir, stream)
}

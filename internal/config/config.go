// Package config provides configuration management for dsvision using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultMaxSources            = 30
	defaultCircuitBreakerThresh  = 3
	defaultCircuitBreakerTimeout = 30 * time.Second
	defaultBackoffBase           = 500 * time.Millisecond
	defaultMaxRetries            = 5
	defaultResourcePollInterval  = 5 * time.Second
	defaultMaxCPUPercent         = 80.0
	defaultMaxRSS                = ByteSize(2 * 1024 * 1024 * 1024) // 2GiB
	defaultMaxConcurrentStreams  = 16
	defaultPipelinePoolSize      = 8
	defaultProcessingIntervalMin = 16 * time.Millisecond
	defaultProcessingIntervalMax = 100 * time.Millisecond
	defaultBridgeCapacity        = 30
	defaultBridgeMaxLatency      = 100 * time.Millisecond
	defaultStatsInterval         = "@every 1m"
	defaultMaxDisappeared        = 30
	defaultMaxTrackDistance      = 50.0
	defaultConfThreshold         = 0.25
	defaultNMSThreshold          = 0.45
)

// Config holds all configuration for the application.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Platform    PlatformConfig    `mapstructure:"platform"`
	Resources   ResourceConfig    `mapstructure:"resources"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Detection   DetectionConfig   `mapstructure:"detection"`
	Bridge      BridgeConfig      `mapstructure:"bridge"`
	FaultTol    FaultToleranceCfg `mapstructure:"fault_tolerance"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// PlatformConfig controls backend selection for the element abstraction.
type PlatformConfig struct {
	// ForceBackend overrides probe-order selection. One of "deepstream", "standard", "mock", or "" (auto).
	// Mirrors the FORCE_BACKEND environment variable.
	ForceBackend string `mapstructure:"force_backend"`
	MaxSources   int    `mapstructure:"max_sources"`
}

// ResourceConfig governs the resource manager.
type ResourceConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	MaxCPUPercent        float64       `mapstructure:"max_cpu_percent"`
	MaxRSS               ByteSize      `mapstructure:"max_rss"`
	MaxConcurrentStreams int           `mapstructure:"max_concurrent_streams"`
	EWMAAlpha            float64       `mapstructure:"ewma_alpha"`
}

// SchedulerConfig governs the stream scheduler and pipeline pool.
type SchedulerConfig struct {
	PipelinePoolSize      int           `mapstructure:"pipeline_pool_size"`
	ProcessingIntervalMin time.Duration `mapstructure:"processing_interval_min"`
	ProcessingIntervalMax time.Duration `mapstructure:"processing_interval_max"`
	// StatsCron is a cron expression driving the periodic stats-reporter
	// job. See internal/stats.
	StatsCron string `mapstructure:"stats_cron"`
}

// DetectionConfig governs the detection engine and tracker defaults.
type DetectionConfig struct {
	ModelPath        string  `mapstructure:"model_path"`
	LabelFile        string  `mapstructure:"label_file"`
	InputWidth       int     `mapstructure:"input_width"`
	InputHeight      int     `mapstructure:"input_height"`
	ConfThreshold    float64 `mapstructure:"conf_threshold"`
	NMSThreshold     float64 `mapstructure:"nms_threshold"`
	NumThreads       int     `mapstructure:"num_threads"`
	YoloVersion      string  `mapstructure:"yolo_version"` // auto, v5, v8
	MaxDisappeared   int     `mapstructure:"max_disappeared"`
	MaxTrackDistance float64 `mapstructure:"max_track_distance"`
}

// BridgeConfig governs the metadata bridge.
type BridgeConfig struct {
	Capacity   int           `mapstructure:"capacity"`
	MaxLatency time.Duration `mapstructure:"max_latency"`
}

// FaultToleranceCfg governs the fault-tolerant controller.
type FaultToleranceCfg struct {
	MaxRetries              int           `mapstructure:"max_retries"`
	BackoffBase              time.Duration `mapstructure:"backoff_base"`
	CircuitBreakerThreshold  int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout    time.Duration `mapstructure:"circuit_breaker_timeout"`
}

// DiagnosticsConfig governs the read-only HTTP diagnostics surface.
// This is deliberately not a control API: a full HTTP control surface is
// out of scope for this package.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with DSVISION_ and use underscores for nesting.
// Example: DSVISION_RESOURCES_MAX_CPU_PERCENT=90.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dsvision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dsvision")
		v.AddConfigPath("$HOME/.dsvision")
	}

	v.SetEnvPrefix("DSVISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// FORCE_BACKEND is bound verbatim, without the DSVISION_ prefix.
	if err := v.BindEnv("platform.force_backend", "FORCE_BACKEND"); err != nil {
		return nil, fmt.Errorf("binding FORCE_BACKEND: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("platform.force_backend", "")
	v.SetDefault("platform.max_sources", defaultMaxSources)

	v.SetDefault("resources.poll_interval", defaultResourcePollInterval)
	v.SetDefault("resources.max_cpu_percent", defaultMaxCPUPercent)
	v.SetDefault("resources.max_rss", int64(defaultMaxRSS))
	v.SetDefault("resources.max_concurrent_streams", defaultMaxConcurrentStreams)
	v.SetDefault("resources.ewma_alpha", 0.3)

	v.SetDefault("scheduler.pipeline_pool_size", defaultPipelinePoolSize)
	v.SetDefault("scheduler.processing_interval_min", defaultProcessingIntervalMin)
	v.SetDefault("scheduler.processing_interval_max", defaultProcessingIntervalMax)
	v.SetDefault("scheduler.stats_cron", defaultStatsInterval)

	v.SetDefault("detection.input_width", 640)
	v.SetDefault("detection.input_height", 640)
	v.SetDefault("detection.conf_threshold", defaultConfThreshold)
	v.SetDefault("detection.nms_threshold", defaultNMSThreshold)
	v.SetDefault("detection.num_threads", 4)
	v.SetDefault("detection.yolo_version", "auto")
	v.SetDefault("detection.max_disappeared", defaultMaxDisappeared)
	v.SetDefault("detection.max_track_distance", defaultMaxTrackDistance)

	v.SetDefault("bridge.capacity", defaultBridgeCapacity)
	v.SetDefault("bridge.max_latency", defaultBridgeMaxLatency)

	v.SetDefault("fault_tolerance.max_retries", defaultMaxRetries)
	v.SetDefault("fault_tolerance.backoff_base", defaultBackoffBase)
	v.SetDefault("fault_tolerance.circuit_breaker_threshold", defaultCircuitBreakerThresh)
	v.SetDefault("fault_tolerance.circuit_breaker_timeout", defaultCircuitBreakerTimeout)

	v.SetDefault("diagnostics.enabled", true)
	v.SetDefault("diagnostics.host", "127.0.0.1")
	v.SetDefault("diagnostics.port", 8099)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Platform.MaxSources < 1 {
		return fmt.Errorf("platform.max_sources must be at least 1")
	}
	validBackends := map[string]bool{"": true, "deepstream": true, "standard": true, "mock": true}
	if !validBackends[c.Platform.ForceBackend] {
		return fmt.Errorf("platform.force_backend must be one of: deepstream, standard, mock")
	}

	if c.Resources.MaxCPUPercent <= 0 || c.Resources.MaxCPUPercent > 100 {
		return fmt.Errorf("resources.max_cpu_percent must be in (0, 100]")
	}

	if c.Scheduler.ProcessingIntervalMin > c.Scheduler.ProcessingIntervalMax {
		return fmt.Errorf("scheduler.processing_interval_min must be <= processing_interval_max")
	}

	if c.Detection.ConfThreshold < 0 || c.Detection.ConfThreshold > 1 {
		return fmt.Errorf("detection.conf_threshold must be in [0,1]")
	}
	if c.Detection.NMSThreshold < 0 || c.Detection.NMSThreshold > 1 {
		return fmt.Errorf("detection.nms_threshold must be in [0,1]")
	}

	if c.Bridge.Capacity < 1 {
		return fmt.Errorf("bridge.capacity must be at least 1")
	}

	return nil
}

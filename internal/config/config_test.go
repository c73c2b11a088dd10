package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	prev, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(prev) }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, defaultMaxSources, cfg.Platform.MaxSources)
	assert.Equal(t, defaultPipelinePoolSize, cfg.Scheduler.PipelinePoolSize)
	assert.Equal(t, defaultConfThreshold, cfg.Detection.ConfThreshold)
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform:\n  max_sources: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Platform.MaxSources)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: nonsense\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := &Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Platform:  PlatformConfig{MaxSources: 1, ForceBackend: "nonsense"},
		Resources: ResourceConfig{MaxCPUPercent: 50},
		Bridge:    BridgeConfig{Capacity: 1},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedProcessingInterval(t *testing.T) {
	cfg := &Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Platform:  PlatformConfig{MaxSources: 1},
		Resources: ResourceConfig{MaxCPUPercent: 50},
		Scheduler: SchedulerConfig{ProcessingIntervalMin: 100, ProcessingIntervalMax: 10},
		Bridge:    BridgeConfig{Capacity: 1},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	v := defaultConfigForTest(t)
	assert.NoError(t, v.Validate())
}

func defaultConfigForTest(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	prev, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

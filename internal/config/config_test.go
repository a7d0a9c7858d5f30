package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.RunTimeout)
	assert.Equal(t, "config/tables.yml", cfg.Paths.RegistryFile)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yml")
	content := `
logging:
  level: debug
pipeline:
  workers: 2
  run_timeout: 1m
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)

	// envconfig defaults are applied before the merge, so the file only
	// backfills fields the environment left empty.
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TRADESTAT_PIPELINE_WORKERS", "8")
	t.Setenv("TRADESTAT_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Setenv("TRADESTAT_PIPELINE_WORKERS", "0")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidOutput(t *testing.T) {
	t.Setenv("TRADESTAT_LOGGING_OUTPUT", "syslog")

	_, err := Load("")
	assert.Error(t, err)
}

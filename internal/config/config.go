package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete runtime configuration. Values load from the
// environment (TRADESTAT_ prefix) and may be overridden by a YAML file.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains filesystem locations.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	OutDir       string `yaml:"out_dir" envconfig:"OUT_DIR" default:"data/processed"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	RegistryFile string `yaml:"registry_file" envconfig:"REGISTRY_FILE" default:"config/tables.yml"`
}

// PipelineConfig controls orchestrator behavior.
type PipelineConfig struct {
	Workers    int           `yaml:"workers" envconfig:"WORKERS" default:"4"`
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"10m"`
}

// TelemetryConfig controls OpenTelemetry instrumentation.
type TelemetryConfig struct {
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"false"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	Environment   string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// Load loads configuration from environment variables and, when the file
// exists, a YAML config file. File values fill in fields the environment
// left at their defaults only when the file sets them explicitly, so the
// environment keeps precedence.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TRADESTAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = merge(*fileCfg, cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays env config on top of file config; env wins where set.
func merge(fileCfg, envCfg Config) Config {
	out := envCfg
	if out.Logging.Level == "" {
		out.Logging.Level = fileCfg.Logging.Level
	}
	if out.Logging.Output == "" {
		out.Logging.Output = fileCfg.Logging.Output
	}
	if out.Paths.DataDir == "" {
		out.Paths.DataDir = fileCfg.Paths.DataDir
	}
	if out.Paths.OutDir == "" {
		out.Paths.OutDir = fileCfg.Paths.OutDir
	}
	if out.Paths.RegistryFile == "" {
		out.Paths.RegistryFile = fileCfg.Paths.RegistryFile
	}
	if out.Pipeline.Workers == 0 {
		out.Pipeline.Workers = fileCfg.Pipeline.Workers
	}
	if out.Pipeline.RunTimeout == 0 {
		out.Pipeline.RunTimeout = fileCfg.Pipeline.RunTimeout
	}
	return out
}

func (c *Config) validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.RunTimeout < 0 {
		return fmt.Errorf("pipeline run timeout must not be negative")
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("unknown logging output %q", c.Logging.Output)
	}
	return nil
}

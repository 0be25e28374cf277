// Package config handles configuration loading and management for ParaMind.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for ParaMind.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Models    ModelsConfig    `mapstructure:"models"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Server    ServerConfig    `mapstructure:"server"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
}

// ModelsConfig holds model selection settings.
type ModelsConfig struct {
	// Planner is the high-capability model used to generate plans.
	Planner string `mapstructure:"planner"`
	// Synthesis is the fast model used to combine responses.
	Synthesis string `mapstructure:"synthesis"`
	// Workers is the pool of models offered to the planner.
	Workers []string `mapstructure:"workers"`
}

// ExecutionConfig holds executor settings.
type ExecutionConfig struct {
	// MaxConcurrent bounds simultaneously in-flight agent calls.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// TaskTimeout bounds each individual agent call.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// RetryAttempts is the total tries per call, including the first.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// QualityMinChars is the minimum acceptable response length.
	QualityMinChars int `mapstructure:"quality_min_chars"`
	// QualityRefinements bounds refinement retries per task.
	QualityRefinements int `mapstructure:"quality_refinements"`
}

// CacheConfig holds memo cache settings.
type CacheConfig struct {
	// Dir is the cache directory. Empty uses the XDG data path.
	Dir string `mapstructure:"dir"`
	// MaxEntries bounds the number of stored entries (0 = unbounded).
	MaxEntries int `mapstructure:"max_entries"`
	// Disabled turns the memo cache off entirely.
	Disabled bool `mapstructure:"disabled"`
}

// MetricsConfig holds run-record store settings.
type MetricsConfig struct {
	// DBPath is the SQLite database path. Empty uses the XDG data path.
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig holds HTTP boundary settings.
type ServerConfig struct {
	// Addr is the listen address for the serve command.
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.paramind.yaml in current directory or parent)
// 3. User config (~/.config/paramind/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	applyPathDefaults(cfg)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	applyPathDefaults(cfg)

	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{
		Models: ModelsConfig{
			Planner:   "claude-haiku-4-5-20251001",
			Synthesis: "claude-haiku-4-5-20251001",
			Workers: []string{
				"claude-sonnet-4-5-20250929",
				"claude-haiku-4-5-20251001",
			},
		},
		Execution: ExecutionConfig{
			MaxConcurrent:      3,
			TaskTimeout:        60 * time.Second,
			RetryAttempts:      3,
			QualityMinChars:    50,
			QualityRefinements: 2,
		},
		Cache: CacheConfig{
			MaxEntries: 5000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
	applyPathDefaults(cfg)
	return cfg
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("models.planner", "claude-haiku-4-5-20251001")
	v.SetDefault("models.synthesis", "claude-haiku-4-5-20251001")
	v.SetDefault("models.workers", []string{
		"claude-sonnet-4-5-20250929",
		"claude-haiku-4-5-20251001",
	})

	v.SetDefault("execution.max_concurrent", 3)
	v.SetDefault("execution.task_timeout", "60s")
	v.SetDefault("execution.retry_attempts", 3)
	v.SetDefault("execution.quality_min_chars", 50)
	v.SetDefault("execution.quality_refinements", 2)

	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_entries", 5000)
	v.SetDefault("cache.disabled", false)

	v.SetDefault("metrics.db_path", "")

	v.SetDefault("server.addr", ":8080")
}

// applyPathDefaults fills in the XDG data paths for fields left empty.
func applyPathDefaults(cfg *Config) {
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(getUserDataDir(), "cache")
	}
	if cfg.Metrics.DBPath == "" {
		cfg.Metrics.DBPath = filepath.Join(getUserDataDir(), "metrics.db")
	}
}

// getUserConfigDir returns the XDG config directory for ParaMind.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "paramind")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "paramind")
	}
	return filepath.Join(home, ".config", "paramind")
}

// getUserDataDir returns the XDG data directory for ParaMind.
func getUserDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "paramind")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "paramind")
	}
	return filepath.Join(home, ".local", "share", "paramind")
}

// findProjectConfig searches for .paramind.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".paramind.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

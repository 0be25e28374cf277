package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for writing template files.
// Durations are rendered as strings so the file stays hand-editable.
type fileConfig struct {
	Anthropic struct {
		APIKey        string `yaml:"api_key"`
		UseAWSBedrock bool   `yaml:"use_aws_bedrock"`
		AWSRegion     string `yaml:"aws_region,omitempty"`
		AWSProfile    string `yaml:"aws_profile,omitempty"`
	} `yaml:"anthropic"`
	Models struct {
		Planner   string   `yaml:"planner"`
		Synthesis string   `yaml:"synthesis"`
		Workers   []string `yaml:"workers"`
	} `yaml:"models"`
	Execution struct {
		MaxConcurrent      int    `yaml:"max_concurrent"`
		TaskTimeout        string `yaml:"task_timeout"`
		RetryAttempts      int    `yaml:"retry_attempts"`
		QualityMinChars    int    `yaml:"quality_min_chars"`
		QualityRefinements int    `yaml:"quality_refinements"`
	} `yaml:"execution"`
	Cache struct {
		Dir        string `yaml:"dir,omitempty"`
		MaxEntries int    `yaml:"max_entries"`
		Disabled   bool   `yaml:"disabled"`
	} `yaml:"cache"`
	Metrics struct {
		DBPath string `yaml:"db_path,omitempty"`
	} `yaml:"metrics"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// WriteDefault writes the built-in defaults as a YAML config file at
// path, creating parent directories. Refuses to overwrite an existing
// file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	def := Default()

	var fc fileConfig
	fc.Anthropic.APIKey = "${ANTHROPIC_API_KEY}"
	fc.Models.Planner = def.Models.Planner
	fc.Models.Synthesis = def.Models.Synthesis
	fc.Models.Workers = def.Models.Workers
	fc.Execution.MaxConcurrent = def.Execution.MaxConcurrent
	fc.Execution.TaskTimeout = def.Execution.TaskTimeout.String()
	fc.Execution.RetryAttempts = def.Execution.RetryAttempts
	fc.Execution.QualityMinChars = def.Execution.QualityMinChars
	fc.Execution.QualityRefinements = def.Execution.QualityRefinements
	fc.Cache.MaxEntries = def.Cache.MaxEntries
	fc.Server.Addr = def.Server.Addr

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

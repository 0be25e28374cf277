package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Models.Workers) == 0 {
		t.Error("default worker pool is empty")
	}
	if cfg.Models.Planner == "" {
		t.Error("default planner model is empty")
	}
	if cfg.Execution.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Execution.MaxConcurrent)
	}
	if cfg.Execution.TaskTimeout != 60*time.Second {
		t.Errorf("TaskTimeout = %v, want 60s", cfg.Execution.TaskTimeout)
	}
	if cfg.Cache.Dir == "" {
		t.Error("cache dir default not applied")
	}
	if cfg.Metrics.DBPath == "" {
		t.Error("metrics db path default not applied")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
models:
  planner: custom-planner
  workers:
    - w1
    - w2
    - w3
execution:
  max_concurrent: 7
  task_timeout: 90s
cache:
  disabled: true
server:
  addr: ":9999"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Models.Planner != "custom-planner" {
		t.Errorf("Planner = %q", cfg.Models.Planner)
	}
	if len(cfg.Models.Workers) != 3 {
		t.Errorf("Workers = %v", cfg.Models.Workers)
	}
	if cfg.Execution.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want 7", cfg.Execution.MaxConcurrent)
	}
	if cfg.Execution.TaskTimeout != 90*time.Second {
		t.Errorf("TaskTimeout = %v, want 90s", cfg.Execution.TaskTimeout)
	}
	if !cfg.Cache.Disabled {
		t.Error("Cache.Disabled not read")
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}

	// Unset fields keep their defaults.
	if cfg.Models.Synthesis == "" {
		t.Error("Synthesis default lost when loading partial config")
	}
	if cfg.Execution.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want default 3", cfg.Execution.RetryAttempts)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("TEST_PARAMIND_KEY", "sk-test-value")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${TEST_PARAMIND_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-test-value" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromPath() on missing file succeeded, want error")
	}
}

func TestLoadReadsUserConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	confDir := filepath.Join(xdg, "paramind")
	if err := os.MkdirAll(confDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "execution:\n  max_concurrent: 9\n"
	if err := os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Keep project config discovery away from the repo tree.
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Execution.MaxConcurrent != 9 {
		t.Errorf("MaxConcurrent = %d, want 9 from user config", cfg.Execution.MaxConcurrent)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Execution.MaxConcurrent != Default().Execution.MaxConcurrent {
		t.Errorf("written config drifted from defaults: %+v", cfg.Execution)
	}

	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault() overwrote an existing file")
	}
}

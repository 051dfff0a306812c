package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Margin.Policy != PolicyBinary {
		t.Errorf("Margin.Policy = %s, want %s", cfg.Margin.Policy, PolicyBinary)
	}
	if cfg.Margin.BaseMargin != 1.0 {
		t.Errorf("Margin.BaseMargin = %f, want 1.0", cfg.Margin.BaseMargin)
	}
	if !cfg.Eval.NormalizeDist {
		t.Error("Eval.NormalizeDist should default to true")
	}
	if cfg.WordVec.Dim != 300 {
		t.Errorf("WordVec.Dim = %d, want 300", cfg.WordVec.Dim)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("COVER_BASE_MARGIN", "0.5")
	os.Setenv("COVER_MARGIN_POLICY", "continuous")
	os.Setenv("COVER_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("COVER_BASE_MARGIN")
		os.Unsetenv("COVER_MARGIN_POLICY")
		os.Unsetenv("COVER_LOG_LEVEL")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Margin.BaseMargin != 0.5 {
		t.Errorf("Margin.BaseMargin = %f, want 0.5", cfg.Margin.BaseMargin)
	}
	if cfg.Margin.Policy != PolicyContinuous {
		t.Errorf("Margin.Policy = %s, want continuous", cfg.Margin.Policy)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
eval:
  dataset_root: "/data/benchmarks"
  top_k: 100
  normalize_dist: false
margin:
  base_margin: 0.3
  policy: continuous
wordvec:
  vectors_path: "/data/vectors.txt"
  dim: 50
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Eval.DatasetRoot != "/data/benchmarks" {
		t.Errorf("Eval.DatasetRoot = %s, want /data/benchmarks", cfg.Eval.DatasetRoot)
	}
	if cfg.Eval.TopK != 100 {
		t.Errorf("Eval.TopK = %d, want 100", cfg.Eval.TopK)
	}
	if cfg.Eval.NormalizeDist {
		t.Error("Eval.NormalizeDist should be false")
	}
	if cfg.Margin.BaseMargin != 0.3 {
		t.Errorf("Margin.BaseMargin = %f, want 0.3", cfg.Margin.BaseMargin)
	}
	if cfg.WordVec.Dim != 50 {
		t.Errorf("WordVec.Dim = %d, want 50", cfg.WordVec.Dim)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() with missing file should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"continuous policy valid", func(c *Config) { c.Margin.Policy = PolicyContinuous }, false},
		{"unknown policy", func(c *Config) { c.Margin.Policy = "adaptive" }, true},
		{"zero wordvec dim", func(c *Config) { c.WordVec.Dim = 0 }, true},
		{"zero embedding size", func(c *Config) { c.Producer.EmbeddingSize = 0 }, true},
		{"zero workers", func(c *Config) { c.Eval.EmbedWorkers = 0 }, true},
		{"negative top-k", func(c *Config) { c.Eval.TopK = -1 }, true},
		{"unknown bus type", func(c *Config) { c.Bus.Type = "nats" }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

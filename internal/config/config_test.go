// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies YAML overlay, environment variable parsing and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/redliner/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %s, want openai", cfg.Provider)
	}
	if cfg.CharmDBName != "redliner" {
		t.Errorf("CharmDBName = %s, want redliner", cfg.CharmDBName)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.VectorBackend != BackendSQLite {
		t.Errorf("VectorBackend = %s, want sqlite", cfg.VectorBackend)
	}
	if cfg.VectorDimension != 1536 {
		t.Errorf("VectorDimension = %d, want 1536", cfg.VectorDimension)
	}

	p := cfg.PipelineConfig()
	if p.TopK != 5 || p.UnknownRisk != 0.5 || p.Retry.Attempts != 3 {
		t.Errorf("PipelineConfig() = %+v", p)
	}
	if p.Thresholds != models.DefaultThresholds() {
		t.Errorf("Thresholds = %+v, want defaults", p.Thresholds)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("REDLINER_PROVIDER", "ollama")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("REDLINER_CHAT_MODEL", "llama3.2")
	t.Setenv("REDLINER_TIMEOUT", "60s")
	t.Setenv("REDLINER_TOP_K", "8")
	t.Setenv("REDLINER_LABEL_THRESHOLD", "0.7")
	t.Setenv("REDLINER_RETRY_ATTEMPTS", "5")
	t.Setenv("REDLINER_RETRY_DELAY", "1s")
	t.Setenv("REDLINER_HEURISTIC_FLOOR", "true")
	t.Setenv("CHARM_AUTO_SYNC", "false")
	t.Setenv("VECTOR_DIMENSION", "768")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderOllama {
		t.Errorf("Provider = %s, want ollama", cfg.Provider)
	}
	if cfg.OpenAIKey != "test-key" {
		t.Errorf("OpenAIKey = %s, want test-key", cfg.OpenAIKey)
	}
	if cfg.ChatModel != "llama3.2" {
		t.Errorf("ChatModel = %s, want llama3.2", cfg.ChatModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.AutoSync {
		t.Error("AutoSync = true, want false")
	}

	p := cfg.PipelineConfig()
	if p.TopK != 8 || p.LabelThreshold != 0.7 || !p.HeuristicFloor {
		t.Errorf("PipelineConfig() = %+v", p)
	}
	if p.Retry.Attempts != 5 || p.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v, want 5 attempts at 1s", p.Retry)
	}
	if p.Dimension != 768 {
		t.Errorf("Dimension = %d, want 768", p.Dimension)
	}
}

func TestLoadFile_YAMLOverlay(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "redliner.yaml")
	data := `
provider: openai
chat_model: gpt-4o
timeout: 45s
pipeline:
  top_k: 3
  unknown_risk: 0.6
  thresholds:
    medium: 0.3
    high: 0.6
    critical: 0.9
  category_weights:
    Indemnity: 1.5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	// env wins over the file
	t.Setenv("REDLINER_TOP_K", "4")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.ChatModel != "gpt-4o" || cfg.Timeout != 45*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want default kept", cfg.EmbeddingModel)
	}

	p := cfg.PipelineConfig()
	if p.TopK != 4 {
		t.Errorf("TopK = %d, want env override 4", p.TopK)
	}
	if p.UnknownRisk != 0.6 {
		t.Errorf("UnknownRisk = %v, want 0.6", p.UnknownRisk)
	}
	if p.Thresholds.High != 0.6 {
		t.Errorf("Thresholds = %+v", p.Thresholds)
	}
	if p.CategoryWeight(models.CategoryIndemnity) != 1.5 {
		t.Errorf("Indemnity weight = %v, want 1.5", p.CategoryWeight(models.CategoryIndemnity))
	}
}

func TestLoadFile_Missing(t *testing.T) {
	os.Clearenv()
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should use defaults, got %v", err)
	}
	if cfg.Pipeline.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Pipeline.TopK)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }},
		{"unknown backend", func(c *Config) { c.VectorBackend = "redis" }},
		{"pgvector without dsn", func(c *Config) { c.VectorBackend = BackendPgvector }},
		{"retries too high", func(c *Config) { c.Pipeline.RetryAttempts = 15 }},
		{"no attempts", func(c *Config) { c.Pipeline.RetryAttempts = 0 }},
		{"threshold above one", func(c *Config) { c.Pipeline.LabelThreshold = 1.5 }},
		{"unknown category weight", func(c *Config) { c.Pipeline.CategoryWeights = map[string]float64{"Parking": 2} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}

	cfg := Default()
	cfg.VectorBackend = BackendPgvector
	cfg.PostgresDSN = "postgres://localhost/redliner"
	if err := cfg.Validate(); err != nil {
		t.Errorf("pgvector with dsn should validate: %v", err)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				t.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvFloat_IgnoresGarbage(t *testing.T) {
	t.Setenv("TEST_FLOAT", "not-a-number")
	if got := getEnvFloat("TEST_FLOAT", 0.25); got != 0.25 {
		t.Errorf("getEnvFloat() = %v, want default 0.25", got)
	}
}

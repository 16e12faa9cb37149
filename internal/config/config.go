// ABOUTME: Centralized configuration for the redliner CLI and MCP server
// ABOUTME: Loads defaults, an optional YAML file, then environment overrides, with validation
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/util"
	"gopkg.in/yaml.v3"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Vector backends
const (
	BackendSQLite   = "sqlite"
	BackendPgvector = "pgvector"
)

// Config holds all configuration for the redliner system
type Config struct {
	// Model settings
	Provider       string        `yaml:"provider"`
	OpenAIKey      string        `yaml:"-"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	OllamaHost     string        `yaml:"ollama_host"`
	Timeout        time.Duration `yaml:"timeout"`
	UseModelLabels bool          `yaml:"use_model_labels"`

	// Storage settings
	VectorBackend   string `yaml:"vector_backend"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	DBPath          string `yaml:"db_path"`
	VectorDimension int    `yaml:"vector_dimension"`

	// Charm archive settings
	ArchiveReports bool   `yaml:"archive_reports"`
	CharmHost      string `yaml:"charm_host"`
	CharmDBName    string `yaml:"charm_db"`
	AutoSync       bool   `yaml:"auto_sync"`

	Pipeline PipelineSettings `yaml:"pipeline"`
}

// PipelineSettings is the file and env form of core.Config
type PipelineSettings struct {
	TopK                int                `yaml:"top_k"`
	LabelThreshold      float64            `yaml:"label_threshold"`
	ModelLabelThreshold float64            `yaml:"model_label_threshold"`
	UnknownRisk         float64            `yaml:"unknown_risk"`
	RankWeightFirst     float64            `yaml:"rank_weight_first"`
	RankWeightSecond    float64            `yaml:"rank_weight_second"`
	Thresholds          models.Thresholds  `yaml:"thresholds"`
	CategoryWeights     map[string]float64 `yaml:"category_weights"`
	HeuristicFloor      bool               `yaml:"heuristic_floor"`
	RedlineMaxLength    int                `yaml:"redline_max_length"`
	RetryAttempts       int                `yaml:"retry_attempts"`
	RetryDelay          time.Duration      `yaml:"retry_delay"`
	RetryMaxDelay       time.Duration      `yaml:"retry_max_delay"`
	Concurrency         int                `yaml:"concurrency"`
	SegmentWindow       int                `yaml:"segment_window"`
	MaxEmbedChars       int                `yaml:"max_embed_chars"`
	TopRisks            int                `yaml:"top_risks"`
}

// Default returns the built-in configuration
func Default() *Config {
	p := core.DefaultConfig()
	return &Config{
		Provider:        ProviderOpenAI,
		ChatModel:       "gpt-4o-mini",
		EmbeddingModel:  "text-embedding-3-small",
		OllamaHost:      "http://localhost:11434",
		Timeout:         30 * time.Second,
		VectorBackend:   BackendSQLite,
		VectorDimension: p.Dimension,
		CharmHost:       "cloud.charm.sh",
		CharmDBName:     "redliner",
		AutoSync:        true,
		Pipeline: PipelineSettings{
			TopK:                p.TopK,
			LabelThreshold:      p.LabelThreshold,
			ModelLabelThreshold: p.ModelLabelThreshold,
			UnknownRisk:         p.UnknownRisk,
			RankWeightFirst:     p.RankWeights.First,
			RankWeightSecond:    p.RankWeights.Second,
			Thresholds:          p.Thresholds,
			RedlineMaxLength:    p.RedlineMaxLength,
			RetryAttempts:       p.Retry.Attempts,
			RetryDelay:          p.Retry.BaseDelay,
			RetryMaxDelay:       p.Retry.MaxDelay,
			Concurrency:         p.Concurrency,
			SegmentWindow:       p.SegmentWindow,
			MaxEmbedChars:       p.MaxEmbedChars,
			TopRisks:            p.TopRisks,
		},
	}
}

// Load reads configuration from REDLINER_CONFIG (if set) and environment variables
func Load() (*Config, error) {
	return LoadFile(os.Getenv("REDLINER_CONFIG"))
}

// LoadFile applies the YAML file at path over the defaults, then environment
// overrides. An empty path or a missing file leaves the defaults in place.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(path), err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Provider = getEnv("REDLINER_PROVIDER", c.Provider)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.ChatModel = getEnv("REDLINER_CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = getEnv("REDLINER_EMBEDDING_MODEL", c.EmbeddingModel)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.Timeout = getEnvDuration("REDLINER_TIMEOUT", c.Timeout)
	c.UseModelLabels = getEnvBool("REDLINER_MODEL_LABELS", c.UseModelLabels)

	c.VectorBackend = getEnv("REDLINER_VECTOR_BACKEND", c.VectorBackend)
	c.PostgresDSN = getEnv("REDLINER_POSTGRES_DSN", getEnv("DATABASE_URL", c.PostgresDSN))
	c.DBPath = getEnv("REDLINER_DB_PATH", c.DBPath)
	c.VectorDimension = getEnvInt("VECTOR_DIMENSION", c.VectorDimension)

	c.ArchiveReports = getEnvBool("REDLINER_ARCHIVE", c.ArchiveReports)
	c.CharmHost = getEnv("CHARM_HOST", c.CharmHost)
	c.CharmDBName = getEnv("CHARM_DB", c.CharmDBName)
	c.AutoSync = getEnvBool("CHARM_AUTO_SYNC", c.AutoSync)

	p := &c.Pipeline
	p.TopK = getEnvInt("REDLINER_TOP_K", p.TopK)
	p.LabelThreshold = getEnvFloat("REDLINER_LABEL_THRESHOLD", p.LabelThreshold)
	p.ModelLabelThreshold = getEnvFloat("REDLINER_MODEL_LABEL_THRESHOLD", p.ModelLabelThreshold)
	p.UnknownRisk = getEnvFloat("REDLINER_UNKNOWN_RISK", p.UnknownRisk)
	p.HeuristicFloor = getEnvBool("REDLINER_HEURISTIC_FLOOR", p.HeuristicFloor)
	p.RedlineMaxLength = getEnvInt("REDLINER_REDLINE_MAX_LENGTH", p.RedlineMaxLength)
	p.RetryAttempts = getEnvInt("REDLINER_RETRY_ATTEMPTS", p.RetryAttempts)
	p.RetryDelay = getEnvDuration("REDLINER_RETRY_DELAY", p.RetryDelay)
	p.RetryMaxDelay = getEnvDuration("REDLINER_RETRY_MAX_DELAY", p.RetryMaxDelay)
	p.Concurrency = getEnvInt("REDLINER_CONCURRENCY", p.Concurrency)
	p.SegmentWindow = getEnvInt("REDLINER_SEGMENT_WINDOW", p.SegmentWindow)
	p.MaxEmbedChars = getEnvInt("REDLINER_MAX_EMBED_CHARS", p.MaxEmbedChars)
}

// Validate checks provider and backend names and the pipeline policy
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("REDLINER_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.Provider)
	}
	switch c.VectorBackend {
	case BackendSQLite:
	case BackendPgvector:
		if c.PostgresDSN == "" {
			return errors.New("REDLINER_POSTGRES_DSN is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("REDLINER_VECTOR_BACKEND must be %q or %q, got %q", BackendSQLite, BackendPgvector, c.VectorBackend)
	}
	if c.Pipeline.RetryAttempts < 1 || c.Pipeline.RetryAttempts > 10 {
		return fmt.Errorf("REDLINER_RETRY_ATTEMPTS must be 1-10, got %d", c.Pipeline.RetryAttempts)
	}
	for name := range c.Pipeline.CategoryWeights {
		if _, ok := models.ParseCategory(name); !ok {
			return fmt.Errorf("unknown category %q in category_weights", name)
		}
	}
	return c.PipelineConfig().Validate()
}

// PipelineConfig converts the settings into the immutable orchestrator policy
func (c *Config) PipelineConfig() core.Config {
	p := c.Pipeline
	cfg := core.DefaultConfig()
	cfg.TopK = p.TopK
	cfg.LabelThreshold = p.LabelThreshold
	cfg.ModelLabelThreshold = p.ModelLabelThreshold
	cfg.UnknownRisk = p.UnknownRisk
	cfg.RankWeights = core.RankWeights{First: p.RankWeightFirst, Second: p.RankWeightSecond}
	cfg.Thresholds = p.Thresholds
	cfg.HeuristicFloor = p.HeuristicFloor
	cfg.RedlineMaxLength = p.RedlineMaxLength
	cfg.Retry = util.Policy{Attempts: p.RetryAttempts, BaseDelay: p.RetryDelay, MaxDelay: p.RetryMaxDelay}
	cfg.Concurrency = p.Concurrency
	cfg.SegmentWindow = p.SegmentWindow
	cfg.MaxEmbedChars = p.MaxEmbedChars
	cfg.Dimension = c.VectorDimension
	if p.TopRisks > 0 {
		cfg.TopRisks = p.TopRisks
	}
	if len(p.CategoryWeights) > 0 {
		cfg.CategoryWeights = make(map[models.Category]float64, len(p.CategoryWeights))
		for name, w := range p.CategoryWeights {
			if cat, ok := models.ParseCategory(name); ok {
				cfg.CategoryWeights[cat] = w
			}
		}
	}
	return cfg
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

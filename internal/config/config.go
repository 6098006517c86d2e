package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider        string  `toml:"provider"`
	Model           string  `toml:"model"`
	EmbeddingModel  string  `toml:"embedding_model"`
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	TimeoutSeconds  int     `toml:"llm_timeout_s"`
	MaxRetries      int     `toml:"max_retries"`
	TokensPerSecond float64 `toml:"tokens_per_second"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type VectorConfig struct {
	// Backend selects "memory" or "pgvector".
	Backend   string `toml:"backend"`
	PGDSN     string `toml:"pg_dsn"`
	Dimension int    `toml:"dimension"`
}

type AnalysisConfig struct {
	RateLimitDelay        float64   `toml:"rate_limit_delay"`
	TopNDefault           int       `toml:"topn_default"`
	HybridWeights         []float64 `toml:"hybrid_weights"`
	SessionTimeoutSeconds int       `toml:"session_timeout_s"`
	PartTimeoutSeconds    int       `toml:"part_timeout_s"`
	DataDir               string    `toml:"data_dir"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Graph    GraphConfig    `toml:"graph"`
	Vector   VectorConfig   `toml:"vector"`
	Analysis AnalysisConfig `toml:"analysis"`
}

// Default returns the documented defaults; Load layers the TOML file and
// environment overrides on top.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			TimeoutSeconds:  60,
			MaxRetries:      5,
			TokensPerSecond: 5000,
		},
		Graph: GraphConfig{
			URI:      "neo4j://127.0.0.1:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Vector: VectorConfig{
			Backend:   "memory",
			Dimension: 1536,
		},
		Analysis: AnalysisConfig{
			RateLimitDelay:        2.0,
			TopNDefault:           15,
			HybridWeights:         []float64{0.3, 0.25, 0.15, 0.3},
			SessionTimeoutSeconds: 1800,
			PartTimeoutSeconds:    300,
			DataDir:               "data",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if len(cfg.Analysis.HybridWeights) != 4 {
		return nil, fmt.Errorf("hybrid_weights must have exactly 4 entries, got %d", len(cfg.Analysis.HybridWeights))
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.Graph.URI, "GRAPH_URI")
	setString(&cfg.Graph.User, "GRAPH_USER")
	setString(&cfg.Graph.Password, "GRAPH_PASSWORD")
	setString(&cfg.Graph.Database, "GRAPH_DATABASE")
	setString(&cfg.Vector.Backend, "VECTOR_BACKEND")
	setString(&cfg.Vector.PGDSN, "VECTOR_PG_DSN")
	setString(&cfg.Analysis.DataDir, "DATA_DIR")
	setFloat(&cfg.Analysis.RateLimitDelay, "RATE_LIMIT_DELAY")
	setInt(&cfg.Analysis.TopNDefault, "TOPN_DEFAULT")
	setInt(&cfg.LLM.TimeoutSeconds, "LLM_TIMEOUT_S")
	setInt(&cfg.LLM.MaxRetries, "MAX_RETRIES")
	setInt(&cfg.Analysis.SessionTimeoutSeconds, "SESSION_TIMEOUT_S")
	setInt(&cfg.Analysis.PartTimeoutSeconds, "PART_TIMEOUT_S")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

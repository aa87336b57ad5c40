// Package config holds all runtime configuration: a YAML file with
// defaults, environment overrides on top, and startup validation that
// rejects anything malformed before the pipeline comes up.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all search service configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Search pipeline configuration
	Search SearchConfig `yaml:"search"`

	// Storage configuration
	Store StoreConfig `yaml:"store"`

	// HTTP surface configuration
	Server ServerConfig `yaml:"server"`
}

// LLMConfig configures the model used for extraction and planning.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIModel     string `yaml:"genai_model"`
}

// SearchConfig bounds pipeline behavior per request.
type SearchConfig struct {
	DeadlineMS      int     `yaml:"deadline_ms"`
	ScoreThreshold  float64 `yaml:"score_threshold"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	EnableCache     bool    `yaml:"enable_cache"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	SchemaPath      string  `yaml:"schema_path"`
}

// StoreConfig locates the local database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig configures the outward surface.
type ServerConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns a configuration that works out of the box against
// a local Ollama server and an on-disk database.
func DefaultConfig() *Config {
	return &Config{
		Name:    "codiesvibe-search",
		Version: "0.1.0",
		LLM: LLMConfig{
			Model:     "gemini-2.5-flash",
			TimeoutMS: 10000,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		Search: SearchConfig{
			DeadlineMS:      30000,
			ScoreThreshold:  0.5,
			ConfidenceFloor: 0.3,
			EnableCache:     false,
			CacheTTLSeconds: 300,
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".codiesvibe", "search.db"),
		},
	}
}

// Load reads a YAML config file, falls back to defaults when path is empty
// or missing, applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		c.Embedding.Provider = provider
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}
	if path := os.Getenv("SEARCH_DB_PATH"); path != "" {
		c.Store.DatabasePath = path
	}
	if path := os.Getenv("SCHEMA_PATH"); path != "" {
		c.Search.SchemaPath = path
	}

	if ms := os.Getenv("DEADLINE_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			c.Search.DeadlineMS = v
		}
	}
	if threshold := os.Getenv("SCORE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			c.Search.ScoreThreshold = v
		}
	}
	if enable := os.Getenv("ENABLE_CACHE"); enable != "" {
		c.Search.EnableCache = enable == "true" || enable == "1"
	}
	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if v, err := strconv.Atoi(ttl); err == nil && v > 0 {
			c.Search.CacheTTLSeconds = v
		}
	}

	// ALLOWED_ORIGINS wins over CORS_ORIGINS when both are set.
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitOrigins(origins)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitOrigins(origins)
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Validate rejects configurations that must never reach the pipeline. A
// malformed origin is a startup failure, not a warning.
func (c *Config) Validate() error {
	for _, origin := range c.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid origin %q: must be a URL with scheme and host", origin)
		}
	}
	if c.Search.DeadlineMS <= 0 {
		return fmt.Errorf("deadline_ms must be positive, got %d", c.Search.DeadlineMS)
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold %.3f outside [0,1]", c.Search.ScoreThreshold)
	}
	if c.Search.ConfidenceFloor < 0 || c.Search.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor %.3f outside [0,1]", c.Search.ConfidenceFloor)
	}
	if c.Search.EnableCache && c.Search.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache_ttl_seconds must be positive when caching is enabled")
	}
	switch c.Embedding.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}

// Deadline returns the per-request budget as a duration.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.Search.DeadlineMS) * time.Millisecond
}

// CacheTTL returns the response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

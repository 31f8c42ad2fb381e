// Package config loads the process-wide configuration for a codememory project.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete, merged configuration for one project.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// PathsConfig configures which paths to include and exclude from the directory walk.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures hybrid-search fusion and doc chunking.
type SearchConfig struct {
	// RRFConstant is the reciprocal-rank-fusion smoothing parameter K. Default 60.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// MaxChunkSize is the maximum character length of a doc chunk. Default 1000.
	MaxChunkSize int `yaml:"max_chunk_size" json:"max_chunk_size"`
	// ChunkOverlap is the overlap, in characters, between adjacent doc chunks. Default 100.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// MinChunkSize discards doc sub-chunks shorter than this. Default 50.
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size"`
	// DefaultTopK is the default result count for search_docs when unspecified. Default 10.
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
}

// EmbeddingsConfig configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider selects the embedding backend. Only "static" is built in.
	Provider string `yaml:"provider" json:"provider"`
	// Model is an opaque model identifier recorded in index metadata.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the vector width; 0 lets the provider pick its native dimension.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize is the number of texts encoded per Embedder.EncodeBatch call. Default 64.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// CacheSize bounds the LRU cache of already-encoded (task_type, text) pairs. Default 4096.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexConfig configures the index orchestrator's parse-phase worker pool.
type IndexConfig struct {
	// Workers is the size of the parse-phase worker pool. Default 4.
	Workers int `yaml:"workers" json:"workers"`
}

// LogConfig configures ambient structured logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.egg-info/**",
	"**/package-lock.json",
	"**/go.sum",
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{},
			Exclude: append([]string(nil), defaultExcludePatterns...),
		},
		Search: SearchConfig{
			RRFConstant:  60,
			MaxChunkSize: 1000,
			ChunkOverlap: 100,
			MinChunkSize: 50,
			DefaultTopK:  10,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "codememory-static-v1",
			Dimensions: 0,
			BatchSize:  64,
			CacheSize:  4096,
		},
		Index: IndexConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads <dir>/.codememory/config.yaml if present, merges it over defaults, applies
// CODEMEMORY_* environment overrides, and validates the result. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := New()

	path := filepath.Join(dir, ".codememory", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.mergeWith(&parsed)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeWith(other *Config) {
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxChunkSize != 0 {
		c.Search.MaxChunkSize = other.Search.MaxChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MinChunkSize != 0 {
		c.Search.MinChunkSize = other.Search.MinChunkSize
	}
	if other.Search.DefaultTopK != 0 {
		c.Search.DefaultTopK = other.Search.DefaultTopK
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODEMEMORY_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("CODEMEMORY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CODEMEMORY_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CODEMEMORY_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Workers = n
		}
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MaxChunkSize <= 0 {
		return fmt.Errorf("search.max_chunk_size must be positive, got %d", c.Search.MaxChunkSize)
	}
	if c.Search.MinChunkSize < 0 || c.Search.MinChunkSize > c.Search.MaxChunkSize {
		return fmt.Errorf("search.min_chunk_size must be within [0, max_chunk_size], got %d", c.Search.MinChunkSize)
	}
	if c.Search.ChunkOverlap < 0 || c.Search.ChunkOverlap >= c.Search.MaxChunkSize {
		return fmt.Errorf("search.chunk_overlap must be within [0, max_chunk_size), got %d", c.Search.ChunkOverlap)
	}
	if c.Search.DefaultTopK <= 0 || c.Search.DefaultTopK > 100 {
		return fmt.Errorf("search.default_top_k must be within [1, 100], got %d", c.Search.DefaultTopK)
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %s", c.Log.Level)
	}
	return nil
}

// WriteYAML serializes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

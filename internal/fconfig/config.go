// Package fconfig loads and validates Forest's configuration, layering
// hardcoded defaults, a user-global YAML file, a per-vault YAML file, and
// environment variable overrides (highest precedence).
package fconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete Forest configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Scoring    ScoringConfig    `yaml:"scoring" json:"scoring"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Linking    LinkingConfig    `yaml:"linking" json:"linking"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// StorageConfig configures where and how the vault is persisted.
type StorageConfig struct {
	// DataDir is the directory holding the SQLite database and vector index.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// SQLiteCacheMB is the SQLite page cache size in MB.
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// ScoringConfig configures the thresholds recognized by the scoring
// kernel and linking engine.
type ScoringConfig struct {
	// SemThreshold is the minimum semantic score to accept an edge alone.
	SemThreshold float64 `yaml:"sem_threshold" json:"sem_threshold"`
	// TagThreshold is the minimum tag score to accept an edge alone.
	TagThreshold float64 `yaml:"tag_threshold" json:"tag_threshold"`
	// ProjectFloor is the minimum fused score to accept an edge whose
	// shared tags include a project:* tag.
	ProjectFloor float64 `yaml:"project_floor" json:"project_floor"`
	// ANNCandidates is the top-k neighbors returned by approximate
	// semantic candidate generation during bulk link.
	ANNCandidates int `yaml:"ann_candidates" json:"ann_candidates"`
	// MaxAutoTags bounds how many auto-extracted tags a node may carry.
	MaxAutoTags int `yaml:"max_auto_tags" json:"max_auto_tags"`
}

// EmbeddingsConfig configures the embedding gateway.
type EmbeddingsConfig struct {
	// Provider selects local | remote | mock | none.
	Provider string `yaml:"provider" json:"provider"`
	// Model is the provider-specific model identifier.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the expected embedding dimension (0 = the provider's
	// default).
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize bounds EmbedBatch call sizes.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// RequestTimeout bounds a single embedding call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// LocalHost is the local embedding server endpoint (e.g. Ollama-style).
	LocalHost string `yaml:"local_host" json:"local_host"`
	// RemoteAPIKey authenticates the hosted embedding provider.
	RemoteAPIKey string `yaml:"remote_api_key" json:"remote_api_key"`
	// RemoteBaseURL overrides the hosted provider's endpoint.
	RemoteBaseURL string `yaml:"remote_base_url" json:"remote_base_url"`

	// CacheQueries enables the LRU query-embedding cache.
	CacheQueries bool `yaml:"cache_queries" json:"cache_queries"`
	// CacheSize bounds the query-embedding cache entry count.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LinkingConfig configures the linking engine's operational behavior.
type LinkingConfig struct {
	// BulkStrategy selects "brute-force" or "optimized" candidate
	// generation for bulk link.
	BulkStrategy string `yaml:"bulk_strategy" json:"bulk_strategy"`
	// MaxHistoryEvents bounds how many edge-events undo can replay.
	MaxHistoryEvents int `yaml:"max_history_events" json:"max_history_events"`
}

// ServerConfig configures the MCP/CLI front ends.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns Config populated with the documented defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			SQLiteCacheMB: 64,
		},
		Scoring: ScoringConfig{
			SemThreshold:  0.50,
			TagThreshold:  0.30,
			ProjectFloor:  0.25,
			ANNCandidates: 100,
			MaxAutoTags:   8,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "local",
			Model:          "",
			Dimensions:     0,
			BatchSize:      32,
			RequestTimeout: 60 * time.Second,
			LocalHost:      "http://localhost:11434",
			CacheQueries:   true,
			CacheSize:      512,
		},
		Linking: LinkingConfig{
			BulkStrategy:     "optimized",
			MaxHistoryEvents: 1000,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".forest")
	}
	return filepath.Join(home, ".forest")
}

// GetUserConfigPath follows the XDG Base Directory spec:
// $XDG_CONFIG_HOME/forest/config.yaml, falling back to ~/.config/forest/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "forest", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "forest", "config.yaml")
	}
	return filepath.Join(home, ".config", "forest", "config.yaml")
}

// Load layers configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/forest/config.yaml)
//  3. Vault config (.forest.yaml in the vault directory)
//  4. Environment variables (FOREST_*)
func Load(vaultDir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		var parsed Config
		if err := loadYAML(userPath, &parsed); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.mergeWith(&parsed)
	}

	vaultPath := filepath.Join(vaultDir, ".forest.yaml")
	if fileExists(vaultPath) {
		var parsed Config
		if err := loadYAML(vaultPath, &parsed); err != nil {
			return nil, fmt.Errorf("failed to load vault config %s: %w", vaultPath, err)
		}
		cfg.mergeWith(&parsed)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.SQLiteCacheMB != 0 {
		c.Storage.SQLiteCacheMB = other.Storage.SQLiteCacheMB
	}

	if other.Scoring.SemThreshold != 0 {
		c.Scoring.SemThreshold = other.Scoring.SemThreshold
	}
	if other.Scoring.TagThreshold != 0 {
		c.Scoring.TagThreshold = other.Scoring.TagThreshold
	}
	if other.Scoring.ProjectFloor != 0 {
		c.Scoring.ProjectFloor = other.Scoring.ProjectFloor
	}
	if other.Scoring.ANNCandidates != 0 {
		c.Scoring.ANNCandidates = other.Scoring.ANNCandidates
	}
	if other.Scoring.MaxAutoTags != 0 {
		c.Scoring.MaxAutoTags = other.Scoring.MaxAutoTags
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
	if other.Embeddings.RequestTimeout != 0 {
		c.Embeddings.RequestTimeout = other.Embeddings.RequestTimeout
	}
	if other.Embeddings.LocalHost != "" {
		c.Embeddings.LocalHost = other.Embeddings.LocalHost
	}
	if other.Embeddings.RemoteAPIKey != "" {
		c.Embeddings.RemoteAPIKey = other.Embeddings.RemoteAPIKey
	}
	if other.Embeddings.RemoteBaseURL != "" {
		c.Embeddings.RemoteBaseURL = other.Embeddings.RemoteBaseURL
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Linking.BulkStrategy != "" {
		c.Linking.BulkStrategy = other.Linking.BulkStrategy
	}
	if other.Linking.MaxHistoryEvents != 0 {
		c.Linking.MaxHistoryEvents = other.Linking.MaxHistoryEvents
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies FOREST_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FOREST_SEM_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scoring.SemThreshold = f
		}
	}
	if v := os.Getenv("FOREST_TAG_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scoring.TagThreshold = f
		}
	}
	if v := os.Getenv("FOREST_PROJECT_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scoring.ProjectFloor = f
		}
	}
	if v := os.Getenv("FOREST_ANN_CANDIDATES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scoring.ANNCandidates = n
		}
	}
	if v := os.Getenv("FOREST_EMBEDDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("FOREST_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("FOREST_LOCAL_HOST"); v != "" {
		c.Embeddings.LocalHost = v
	}
	if v := os.Getenv("FOREST_REMOTE_API_KEY"); v != "" {
		c.Embeddings.RemoteAPIKey = v
	}
	if v := os.Getenv("FOREST_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("FOREST_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Scoring.SemThreshold < 0 || c.Scoring.SemThreshold > 1 {
		return fmt.Errorf("scoring.sem_threshold must be in [0,1], got %v", c.Scoring.SemThreshold)
	}
	if c.Scoring.TagThreshold < 0 || c.Scoring.TagThreshold > 1 {
		return fmt.Errorf("scoring.tag_threshold must be in [0,1], got %v", c.Scoring.TagThreshold)
	}
	if c.Scoring.ProjectFloor < 0 || c.Scoring.ProjectFloor > 1 {
		return fmt.Errorf("scoring.project_floor must be in [0,1], got %v", c.Scoring.ProjectFloor)
	}
	if c.Scoring.ANNCandidates <= 0 {
		return fmt.Errorf("scoring.ann_candidates must be positive, got %d", c.Scoring.ANNCandidates)
	}
	switch c.Embeddings.Provider {
	case "local", "remote", "mock", "none":
	default:
		return fmt.Errorf("embeddings.provider must be one of local|remote|mock|none, got %q", c.Embeddings.Provider)
	}
	switch c.Linking.BulkStrategy {
	case "brute-force", "optimized":
	default:
		return fmt.Errorf("linking.bulk_strategy must be brute-force|optimized, got %q", c.Linking.BulkStrategy)
	}
	if c.Embeddings.Provider == "remote" && c.Embeddings.RemoteAPIKey == "" {
		return fmt.Errorf("embeddings.remote_api_key is required when provider=remote")
	}
	return nil
}

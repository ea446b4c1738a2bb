// Package config provides configuration loading and structs for the askdoc server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Provider  ProviderConfig  `yaml:"provider"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document registry, vector collections, and raw uploads.
type StorageConfig struct {
	RegistryPath    string `yaml:"registry_path"`
	CollectionsPath string `yaml:"collections_path"`
	UploadsPath     string `yaml:"uploads_path"`
}

// ProviderConfig holds embedding/completion provider settings.
// The API key is read from the environment variable named by APIKeyEnv,
// never from the config file.
type ProviderConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	VisionModel    string  `yaml:"vision_model"`
	MaxRetries     int     `yaml:"max_retries"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
}

// Timeout returns the provider request timeout as a duration.
func (p *ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// APIKey reads the provider API key from the configured environment variable.
func (p *ProviderConfig) APIKey() string {
	return os.Getenv(p.APIKeyEnv)
}

// IngestConfig holds chunking and extraction settings.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MaxTextBytes int `yaml:"max_text_bytes"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK    int `yaml:"top_k"`
	MaxTopK int `yaml:"max_top_k"`
}

// WatchConfig holds inbox directory watch settings. Files dropped into a
// watched directory are ingested automatically.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, applies defaults, expands
// storage paths relative to the config directory, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.RegistryPath = expandPath(cfg.Storage.RegistryPath, configDir)
	cfg.Storage.CollectionsPath = expandPath(cfg.Storage.CollectionsPath, configDir)
	cfg.Storage.UploadsPath = expandPath(cfg.Storage.UploadsPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that must hold before the server starts.
// A violated chunking configuration is fatal here, never per-request.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk config: chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("invalid chunk config: require 0 <= chunk_overlap < chunk_size, got overlap %d size %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval config: top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MaxTopK < c.Retrieval.TopK {
		return fmt.Errorf("invalid retrieval config: max_top_k %d below top_k %d",
			c.Retrieval.MaxTopK, c.Retrieval.TopK)
	}
	if c.Provider.EmbeddingModel == "" {
		return fmt.Errorf("provider embedding_model cannot be empty")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

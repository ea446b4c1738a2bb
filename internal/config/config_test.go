package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_appliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug not parsed")
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Provider.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("embedding model = %q", cfg.Provider.EmbeddingModel)
	}
	if cfg.Provider.ChatModel != "gpt-4o-mini" || cfg.Provider.VisionModel != "gpt-4o" {
		t.Errorf("chat models = %q / %q", cfg.Provider.ChatModel, cfg.Provider.VisionModel)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunk defaults = %d / %d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.MaxTopK != 20 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
}

func TestLoad_overridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
provider:
  embedding_model: custom-embed
  timeout_seconds: 15
ingest:
  chunk_size: 400
  chunk_overlap: 80
retrieval:
  top_k: 3
  max_top_k: 10
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Provider.EmbeddingModel != "custom-embed" {
		t.Errorf("embedding model = %q", cfg.Provider.EmbeddingModel)
	}
	if cfg.Provider.Timeout() != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Provider.Timeout())
	}
	if cfg.Ingest.ChunkSize != 400 || cfg.Ingest.ChunkOverlap != 80 {
		t.Errorf("chunking = %d / %d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.MaxTopK != 10 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
}

func TestLoad_rejectsInvalidChunking(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"overlap equals size", "ingest:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"overlap exceeds size", "ingest:\n  chunk_size: 100\n  chunk_overlap: 150\n"},
		{"negative overlap", "ingest:\n  chunk_size: 100\n  chunk_overlap: -5\n"},
		{"negative size", "ingest:\n  chunk_size: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "chunk") {
				t.Errorf("error does not mention chunking: %v", err)
			}
		})
	}
}

func TestLoad_rejectsInvalidRetrieval(t *testing.T) {
	_, err := Load(writeConfig(t, "retrieval:\n  top_k: 10\n  max_top_k: 5\n"))
	if err == nil {
		t.Fatal("expected validation error for max_top_k below top_k")
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_expandsRelativePaths(t *testing.T) {
	path := writeConfig(t, "storage:\n  registry_path: ./state/registry.db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "state/registry.db")
	if cfg.Storage.RegistryPath != want {
		t.Errorf("registry path = %q, want %q", cfg.Storage.RegistryPath, want)
	}
}

func TestProviderConfig_apiKeyFromEnv(t *testing.T) {
	p := ProviderConfig{APIKeyEnv: "ASKDOC_TEST_KEY"}
	t.Setenv("ASKDOC_TEST_KEY", "sk-test")
	if got := p.APIKey(); got != "sk-test" {
		t.Errorf("APIKey() = %q", got)
	}
}

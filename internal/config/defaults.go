package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.RegistryPath == "" {
		cfg.Storage.RegistryPath = "./data/registry.db"
	}
	if cfg.Storage.CollectionsPath == "" {
		cfg.Storage.CollectionsPath = "./data/collections"
	}
	if cfg.Storage.UploadsPath == "" {
		cfg.Storage.UploadsPath = "./data/uploads"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Provider.ChatModel == "" {
		cfg.Provider.ChatModel = "gpt-4o-mini"
	}
	if cfg.Provider.VisionModel == "" {
		cfg.Provider.VisionModel = "gpt-4o"
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 5
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 60
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 1000
	}
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = 0.1
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.MaxTextBytes == 0 {
		cfg.Ingest.MaxTextBytes = 5 * 1024 * 1024
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 20
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".csv", ".xlsx", ".png", ".jpg", ".jpeg", ".db"}
	}
}

// Package main is the askdoc CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/answer"
	"github.com/lumenworks/askdoc/internal/chunker"
	"github.com/lumenworks/askdoc/internal/completion"
	"github.com/lumenworks/askdoc/internal/config"
	"github.com/lumenworks/askdoc/internal/embedding"
	"github.com/lumenworks/askdoc/internal/extract"
	"github.com/lumenworks/askdoc/internal/ingest"
	"github.com/lumenworks/askdoc/internal/models"
	"github.com/lumenworks/askdoc/internal/provider"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/server"
	"github.com/lumenworks/askdoc/internal/vectorstore"
	"github.com/lumenworks/askdoc/internal/watcher"
	"github.com/lumenworks/askdoc/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/askdoc/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys commonly live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "query":
		runQuery()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("askdoc version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: askdoc <command> [flags]

Commands:
  server    Run the HTTP API server
  upload    Upload a document for ingestion
  query     Ask a question against an ingested document
  list      List ingested documents
  delete    Delete a document and its vectors
  status    Show server status
  version   Print version

Run 'askdoc <command> -h' for command flags.
`)
}

// components holds the wired pipeline for the server command.
type components struct {
	Registry *registry.Registry
	Store    *vectorstore.Manager
	Ingest   *ingest.Service
	Engine   *answer.Engine
	Pinger   func(ctx context.Context) bool
}

func (c *components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	client := provider.NewClient(cfg.Provider.APIKey(), cfg.Provider.BaseURL, cfg.Provider.Timeout())
	embedder := embedding.NewOpenAIEmbedder(client, cfg.Provider.EmbeddingModel, cfg.Provider.MaxRetries)
	completer := completion.NewOpenAICompleter(client, completion.Config{
		ChatModel:   cfg.Provider.ChatModel,
		VisionModel: cfg.Provider.VisionModel,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		MaxRetries:  cfg.Provider.MaxRetries,
	})

	reg, err := registry.Open(cfg.Storage.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	store, err := vectorstore.Open(cfg.Storage.CollectionsPath, cfg.Provider.EmbeddingModel, logger)
	if err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	extractor := extract.NewExtractor(cfg.Ingest.MaxTextBytes)
	ch, err := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}

	return &components{
		Registry: reg,
		Store:    store,
		Ingest: ingest.NewService(
			reg, store, embedder, extractor, ch, cfg.Storage.UploadsPath, logger,
		),
		Engine: answer.NewEngine(reg, store, embedder, completer, logger),
		Pinger: func(ctx context.Context) bool { return provider.Ping(ctx, client) },
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)
	if cfg.Provider.APIKey() == "" {
		logger.Warn("provider API key is empty; ingestion and queries will fail",
			zap.String("api_key_env", cfg.Provider.APIKeyEnv),
		)
	}
	if !extract.OCRSupported() {
		logger.Warn("OCR support not compiled in; image uploads will be ingested without text (build with -tags=ocr to enable)")
	}

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var inbox *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		inbox = watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, comps.Ingest, logger)
		if err := inbox.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		inbox.SyncExisting(watchCtx)
	}

	srv := server.NewServer(
		comps.Ingest, comps.Engine, comps.Registry, comps.Store,
		comps.Pinger, cfg, logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if inbox != nil {
		inbox.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: askdoc upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	doc, err := uploadViaHTTP(*serverURL, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s  %s  %s  chunks=%d\n", doc.ID, doc.Status, doc.Filename, doc.ChunkCount)
	if doc.Status == models.StatusFailed {
		fmt.Printf("  reason: %s\n", doc.FailureReason)
		os.Exit(1)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	docID := fs.String("doc", "", "document id to query")
	imagePath := fs.String("image", "", "optional image file to include in the question")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	if *docID == "" || fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: askdoc query -doc <id> [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	req := models.QueryRequest{
		DocumentID: *docID,
		Question:   question,
		TopK:       *topK,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
			os.Exit(1)
		}
		req.ImageBase64 = encodeImage(data)
	}

	ans, err := queryViaHTTP(*serverURL, &req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ans)
		return
	}
	fmt.Println(ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range ans.Sources {
			fmt.Printf("  [%s] (%.3f) %s\n", src.Locator, src.Score, src.Snippet)
		}
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	var docs []*models.Document
	if err := getJSON(*serverURL+"/api/v1/documents", &docs); err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return
	}
	for _, doc := range docs {
		fmt.Printf("%s  %-10s  chunks=%-4d  %s\n", doc.ID, doc.Status, doc.ChunkCount, doc.Filename)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: askdoc delete [flags] <document-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+id, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed: server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Deleted %s\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func uploadViaHTTP(serverURL, path string) (*models.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var doc models.Document
	if resp.StatusCode != http.StatusCreated {
		// A failed ingestion still returns the document record.
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil || doc.ID == "" {
			return nil, fmt.Errorf("server returned %d", resp.StatusCode)
		}
		return &doc, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &doc, nil
}

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.Answer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var ans models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ans, nil
}

func encodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

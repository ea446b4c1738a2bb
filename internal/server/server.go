// Package server provides the HTTP API for askdoc.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/answer"
	"github.com/lumenworks/askdoc/internal/config"
	"github.com/lumenworks/askdoc/internal/ingest"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/vectorstore"
)

// maxUploadBytes bounds multipart upload size before extraction's own
// text ceiling applies.
const maxUploadBytes = 64 << 20

// Server is the HTTP server for the askdoc API.
type Server struct {
	ingest   *ingest.Service
	engine   *answer.Engine
	registry *registry.Registry
	store    *vectorstore.Manager
	pinger   func(ctx context.Context) bool
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. pinger reports
// provider reachability for the health surface; it may be nil.
func NewServer(
	ing *ingest.Service,
	engine *answer.Engine,
	reg *registry.Registry,
	store *vectorstore.Manager,
	pinger func(ctx context.Context) bool,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest:   ing,
		engine:   engine,
		registry: reg,
		store:    store,
		pinger:   pinger,
		config:   cfg,
		logger:   logger,
	}
}

// router builds the chi router with all API routes and middleware.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/v1/documents", s.handleUpload)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := s.router()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

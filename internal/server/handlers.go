package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/completion"
	"github.com/lumenworks/askdoc/internal/embedding"
	"github.com/lumenworks/askdoc/internal/extract"
	"github.com/lumenworks/askdoc/internal/models"
	"github.com/lumenworks/askdoc/internal/registry"
	"github.com/lumenworks/askdoc/internal/vectorstore"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(content)),
	)

	doc, err := s.ingest.Ingest(r.Context(), header.Filename, content)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("filename", header.Filename), zap.Error(err))
		if doc != nil {
			// Registered but failed: report the document so the caller
			// can inspect or delete it.
			s.respondJSON(w, statusForError(err), doc)
			return
		}
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request",
		zap.String("document_id", req.DocumentID),
		zap.Int("top_k", req.TopK),
		zap.Bool("with_image", req.ImageBase64 != ""),
	)
	ans, err := s.engine.Answer(r.Context(), &req)
	if err != nil {
		s.logger.Error("query failed", zap.String("document_id", req.DocumentID), zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.registry.List(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("document_id", id))
	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.String("document_id", id), zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"document_id": id,
		"status":      string(models.StatusDeleted),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	reachable := false
	if s.pinger != nil {
		reachable = s.pinger(r.Context())
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"collection_count":   stats.Collections,
		"total_vector_count": stats.TotalVectors,
		"provider_reachable": reachable,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.registry.Count(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	findings, err := s.ingest.CheckIntegrity(ctx)
	if err != nil {
		s.logger.Error("status: integrity check failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if findings == nil {
		findings = []string{}
	}
	stats := s.store.Stats()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":          docCount,
		"collection_count":   stats.Collections,
		"total_vector_count": stats.TotalVectors,
		"integrity_findings": findings,
		"config": map[string]interface{}{
			"embedding_model": s.config.Provider.EmbeddingModel,
			"chat_model":      s.config.Provider.ChatModel,
			"vision_model":    s.config.Provider.VisionModel,
			"chunk_size":      s.config.Ingest.ChunkSize,
			"chunk_overlap":   s.config.Ingest.ChunkOverlap,
			"top_k":           s.config.Retrieval.TopK,
			"max_top_k":       s.config.Retrieval.MaxTopK,
		},
	})
}

// statusForError maps pipeline errors to HTTP status codes: missing
// documents are 404, not-ready and model-mismatch conflicts are 409,
// unsupported uploads are 400, provider failures are 502.
func statusForError(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, vectorstore.ErrModelMismatch):
		return http.StatusConflict
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, embedding.ErrProvider), errors.Is(err, completion.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/extract"
	"github.com/docstack/docqa/internal/logging"
	"github.com/docstack/docqa/internal/query"
	"github.com/docstack/docqa/internal/querylog"
)

// handleUpload handles POST /api/documents/upload. The file is stored on
// disk and a pending metadata row is created; embedding proceeds in the
// background and the response returns immediately.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	fileType, err := extract.DetectFileType(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	documentID := uuid.NewString()
	path, size, err := s.saveUpload(documentID, header.Filename, file)
	if err != nil {
		log.Error("upload: failed to store file", slog.Any("error", err))
		s.metrics.uploadsTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}

	doc := &docstore.Document{
		ID:          documentID,
		FileName:    header.Filename,
		FileType:    fileType,
		FileSize:    size,
		ContentType: header.Header.Get("Content-Type"),
		FilePath:    path,
		UploadedAt:  time.Now().UTC(),
		Status:      docstore.StatusPending,
	}
	if err := s.docs.Insert(r.Context(), doc); err != nil {
		log.Error("upload: failed to record document", slog.Any("error", err))
		s.metrics.uploadsTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusInternalServerError, "failed to record document")
		return
	}

	// Embed in the background; the pipeline records success or failure on
	// the document row.
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.ingest.Process(context.Background(), documentID); err != nil {
			s.log.Error("upload: background processing failed",
				slog.String("document_id", documentID), slog.Any("error", err))
		}
	}()

	s.metrics.uploadsTotal.WithLabelValues(outcomeOK).Inc()
	writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: documentID,
		FileName:   header.Filename,
		FileType:   fileType,
		Status:     string(docstore.StatusPending),
	})
}

// saveUpload streams the uploaded file to the upload directory under a name
// derived from the document id, returning the path and the byte count.
func (s *Server) saveUpload(documentID, fileName string, src io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(s.cfg.UploadDir, documentID+filepath.Ext(fileName))

	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// handleListDocuments handles GET /api/documents with limit/skip pagination.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	skip := queryInt(r, "skip", 0)

	docs, total, err := s.docs.List(r.Context(), limit, skip)
	if err != nil {
		logging.FromContext(r.Context()).Error("documents: list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	resp := documentListResponse{
		Documents: make([]documentResponse, 0, len(docs)),
		Total:     total,
		Limit:     limit,
		Skip:      skip,
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, toDocumentResponse(&d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetDocument handles GET /api/documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("documents: get failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleDeleteDocument handles DELETE /api/documents/{id}: the vector
// collection, the stored file, and the metadata row all go.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.ingest.Delete(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("documents: delete failed",
			slog.String("document_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "deleted"})
}

// handleQuery handles POST /api/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	res, err := s.queries.Perform(r.Context(), query.Request{
		QueryText:           req.QueryText,
		DocumentIDs:         req.DocumentIDs,
		ModelName:           req.ModelName,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
	})
	if err != nil {
		// Validation failures: blank query text or a bad threshold.
		s.metrics.queriesTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := outcomeOK
	if res.Status == querylog.StatusError {
		outcome = outcomeError
	}
	s.metrics.queriesTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, res)
}

// handleListQueries handles GET /api/queries with limit/skip pagination.
func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	skip := queryInt(r, "skip", 0)

	entries, total, err := s.queries.List(r.Context(), limit, skip)
	if err != nil {
		logging.FromContext(r.Context()).Error("queries: list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list queries")
		return
	}

	resp := queryListResponse{
		Queries: make([]queryEntryResponse, 0, len(entries)),
		Total:   total,
		Limit:   limit,
		Skip:    skip,
	}
	for _, e := range entries {
		resp.Queries = append(resp.Queries, toQueryEntryResponse(&e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetQuery handles GET /api/queries/{id}.
func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	entry, err := s.queries.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, querylog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "query not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("queries: get failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load query")
		return
	}
	writeJSON(w, http.StatusOK, toQueryEntryResponse(entry))
}

// handleMetricsSummary handles GET /api/metrics/summary.
func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	topN := queryInt(r, "top", 10)

	summary, err := s.reporter.Summary(r.Context(), days, topN)
	if err != nil {
		logging.FromContext(r.Context()).Error("metrics: summary failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// queryInt reads an integer query parameter, returning fallback for absent
// or malformed values.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// toDocumentResponse converts a stored document to its API shape.
func toDocumentResponse(d *docstore.Document) documentResponse {
	return documentResponse{
		DocumentID:   d.ID,
		FileName:     d.FileName,
		FileType:     d.FileType,
		FileSize:     d.FileSize,
		UploadedAt:   d.UploadedAt.UTC().Format(time.RFC3339),
		Status:       string(d.Status),
		ChunkCount:   d.ChunkCount,
		ErrorMessage: d.ErrorMessage,
	}
}

// toQueryEntryResponse converts a log entry to its API shape.
func toQueryEntryResponse(e *querylog.Entry) queryEntryResponse {
	return queryEntryResponse{
		QueryID:      e.ID,
		QueryText:    e.QueryText,
		Answer:       e.Answer,
		Sources:      e.Sources,
		DocumentIDs:  e.DocumentIDs,
		Model:        e.Model,
		Latency:      e.Latency,
		Status:       e.Status,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

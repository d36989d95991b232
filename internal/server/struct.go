package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/metrics"
	"github.com/docstack/docqa/internal/query"
	"github.com/docstack/docqa/internal/querylog"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// UploadDir is the directory uploaded files are written to.
	UploadDir string
	// MaxUploadSize is the maximum accepted upload size in bytes.
	// Defaults to 50 MiB if zero.
	MaxUploadSize int64
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used. Tests inject a fresh registry to stay hermetic.
	Registry *prometheus.Registry
}

// querier is the interface the query handlers call.
// *query.Orchestrator satisfies it; tests inject a fake.
type querier interface {
	Perform(ctx context.Context, req query.Request) (*query.Result, error)
	Get(ctx context.Context, queryID string) (*querylog.Entry, error)
	List(ctx context.Context, limit, skip int) ([]querylog.Entry, int, error)
}

// ingestor is the interface the document handlers call for processing and
// deletion. *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	Process(ctx context.Context, documentID string) error
	Delete(ctx context.Context, documentID string) error
}

// Server is the HTTP server exposing the document QA API.
type Server struct {
	// docs is the document metadata store.
	docs *docstore.Store
	// ingest processes and deletes documents.
	ingest ingestor
	// queries answers and lists queries.
	queries querier
	// reporter computes usage metrics.
	reporter *metrics.Reporter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// background tracks in-flight ingestion goroutines so shutdown can drain them.
	background sync.WaitGroup
}

// uploadResponse is the JSON response for POST /api/documents/upload.
type uploadResponse struct {
	// DocumentID is the id assigned to the uploaded document.
	DocumentID string `json:"document_id"`
	// FileName is the original uploaded file name.
	FileName string `json:"file_name"`
	// FileType is the detected document type.
	FileType string `json:"file_type"`
	// Status is the initial embedding status (always "pending").
	Status string `json:"status"`
}

// documentResponse is the JSON shape of one document in API responses.
type documentResponse struct {
	DocumentID   string `json:"document_id"`
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	UploadedAt   string `json:"uploaded_at"`
	Status       string `json:"status"`
	ChunkCount   int    `json:"chunk_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// documentListResponse is the JSON response for GET /api/documents.
type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Skip      int                `json:"skip"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// QueryText is the user's question. Required.
	QueryText string `json:"query_text"`
	// DocumentIDs restricts the query to these documents. Optional.
	DocumentIDs []string `json:"document_ids,omitempty"`
	// ModelName selects the chat model. Optional.
	ModelName string `json:"model_name,omitempty"`
	// TopK overrides the retrieval depth. Optional.
	TopK int `json:"top_k,omitempty"`
	// SimilarityThreshold is the advisory minimum similarity. Optional.
	SimilarityThreshold float32 `json:"similarity_threshold,omitempty"`
}

// queryListResponse is the JSON response for GET /api/queries.
type queryListResponse struct {
	Queries []queryEntryResponse `json:"queries"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Skip    int                  `json:"skip"`
}

// queryEntryResponse is the JSON shape of one logged query.
type queryEntryResponse struct {
	QueryID     string            `json:"query_id"`
	QueryText   string            `json:"query_text"`
	Answer      string            `json:"answer"`
	Sources     []querylog.Source `json:"sources"`
	DocumentIDs []string          `json:"document_ids"`
	Model       string            `json:"model"`
	Latency     float64           `json:"latency"`
	Status      string            `json:"status"`
	// ErrorMessage carries the failure detail for error entries.
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// errorResponse is the JSON error body for all handler failures.
type errorResponse struct {
	Error string `json:"error"`
}

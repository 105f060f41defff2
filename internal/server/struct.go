package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragline/ragline/internal/engine"
	"github.com/ragline/ragline/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
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
	// MetricsRegistry receives all Prometheus metric registrations. If nil a
	// fresh registry is created; tests inject their own to stay hermetic.
	MetricsRegistry *prometheus.Registry
}

// answerer is the interface handleQuery and handleFeedback call into.
// *engine.Engine satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, query string) (engine.Result, error)
	SubmitFeedback(ctx context.Context, interactionID, signal string) (engine.FeedbackResult, error)
}

// ingestor is the interface the document handlers call into.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	AddDocuments(ctx context.Context, texts []string, ids []uint64, metadata []map[string]string) error
	IngestText(ctx context.Context, source, text string) (int, error)
	Seed(ctx context.Context) (int, error)
}

// collectionAdmin is the narrow index surface used by the DELETE handlers.
type collectionAdmin interface {
	ClearDocuments(ctx context.Context) error
	ClearLearned(ctx context.Context) error
}

// historySource is the optional journal surface behind GET /api/history.
type historySource interface {
	RecentInteractions(ctx context.Context, n int) ([]store.Interaction, error)
}

// Server is the HTTP server exposing the retrieval service's REST API.
type Server struct {
	// engine answers queries and processes feedback.
	engine answerer
	// pipeline ingests documents.
	pipeline ingestor
	// admin clears the index collections.
	admin collectionAdmin
	// history serves past interactions; nil when the journal is disabled.
	history historySource
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
}

// feedbackRequest is the JSON body for POST /api/feedback.
type feedbackRequest struct {
	// InteractionID is the id returned by a previous /api/query response.
	InteractionID string `json:"interaction_id"`
	// Feedback is the signal value; "like", "positive", and "1" promote.
	Feedback string `json:"feedback"`
}

// documentPayload is one document in a POST /api/documents batch.
type documentPayload struct {
	// ID is the caller-assigned numeric identifier.
	ID uint64 `json:"id"`
	// Text is the chunk text to embed and store.
	Text string `json:"text"`
	// Metadata holds optional key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// documentsRequest is the JSON body for POST /api/documents.
type documentsRequest struct {
	// Documents is the batch to upsert.
	Documents []documentPayload `json:"documents"`
}

// countResponse is the JSON response for ingestion endpoints.
type countResponse struct {
	// Status is "success" on completion.
	Status string `json:"status"`
	// Count is the number of documents or chunks stored.
	Count int `json:"count"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Status is "success" on completion.
	Status string `json:"status"`
	// Filename is the uploaded file's name, used as the chunk ID source.
	Filename string `json:"filename"`
	// Chunks is the number of chunks stored.
	Chunks int `json:"chunks"`
}

// statusResponse is the JSON response for the DELETE endpoints.
type statusResponse struct {
	// Status is "success" on completion.
	Status string `json:"status"`
	// Message describes what was cleared.
	Message string `json:"message,omitempty"`
}

// historyEntry is one interaction in the GET /api/history response.
type historyEntry struct {
	// ID is the interaction identifier.
	ID string `json:"interaction_id"`
	// Query is the question text.
	Query string `json:"query"`
	// Answer is the answer text.
	Answer string `json:"answer"`
	// CreatedAt is the RFC 3339 timestamp of the interaction.
	CreatedAt string `json:"created_at"`
}

// historyResponse is the JSON response for GET /api/history.
type historyResponse struct {
	// Interactions is ordered newest-first.
	Interactions []historyEntry `json:"interactions"`
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/ragline/ragline/internal/logging"
)

// maxUploadBytes bounds POST /api/upload request bodies.
const maxUploadBytes = 10 << 20 // 10 MiB

// defaultHistoryLimit is the number of interactions returned by
// GET /api/history when no limit parameter is given.
const defaultHistoryLimit = 50

// handleQuery handles POST /api/query: the full retrieve-and-generate flow.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.engine.Answer(r.Context(), req.Query)
	if err != nil {
		log.Error("query failed", slog.Any("error", err))
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		http.Error(w, "query processing failed", http.StatusInternalServerError)
		return
	}
	s.metrics.queryRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.queryDurationSeconds.Observe(time.Since(start).Seconds())
	if res.LearnedHit {
		s.metrics.queryLearnedHitsTotal.Inc()
	}

	writeJSON(w, http.StatusOK, res)
}

// handleFeedback handles POST /api/feedback. Unknown interaction ids and
// non-positive signals are acknowledged as success without side effects.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InteractionID == "" {
		http.Error(w, "interaction_id is required", http.StatusBadRequest)
		return
	}

	res, err := s.engine.SubmitFeedback(r.Context(), req.InteractionID, req.Feedback)
	if err != nil {
		log.Error("feedback failed", slog.Any("error", err))
		http.Error(w, "feedback processing failed", http.StatusInternalServerError)
		return
	}
	if res.Promoted {
		s.metrics.feedbackPromotionsTotal.Inc()
	}

	writeJSON(w, http.StatusOK, res)
}

// handleDocuments handles POST /api/documents: a batch upsert of pre-chunked
// documents with caller-assigned IDs.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req documentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		http.Error(w, "documents is required", http.StatusBadRequest)
		return
	}
	for i, d := range req.Documents {
		if d.Text == "" {
			http.Error(w, "document "+strconv.Itoa(i)+" has empty text", http.StatusBadRequest)
			return
		}
	}

	texts := make([]string, len(req.Documents))
	ids := make([]uint64, len(req.Documents))
	metadata := make([]map[string]string, len(req.Documents))
	for i, d := range req.Documents {
		texts[i] = d.Text
		ids[i] = d.ID
		metadata[i] = d.Metadata
	}

	if err := s.pipeline.AddDocuments(r.Context(), texts, ids, metadata); err != nil {
		log.Error("document upsert failed", slog.Any("error", err))
		http.Error(w, "document storage failed", http.StatusInternalServerError)
		return
	}
	s.metrics.documentsStoredTotal.Add(float64(len(texts)))

	writeJSON(w, http.StatusOK, countResponse{Status: "success", Count: len(texts)})
}

// handleUpload handles POST /api/upload: a multipart file whose content is
// chunked and ingested under IDs derived from the filename. Only plain-text
// files are supported — there is no format extraction, so binary formats
// (PDF, Office documents) are rejected rather than ingested as raw bytes.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	if !looksLikeText(content) {
		http.Error(w, "only plain-text files are supported", http.StatusBadRequest)
		return
	}

	chunks, err := s.pipeline.IngestText(r.Context(), header.Filename, string(content))
	if err != nil {
		log.Error("upload ingestion failed",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		http.Error(w, "document storage failed", http.StatusInternalServerError)
		return
	}
	s.metrics.documentsStoredTotal.Add(float64(chunks))

	writeJSON(w, http.StatusOK, uploadResponse{
		Status:   "success",
		Filename: header.Filename,
		Chunks:   chunks,
	})
}

// handleSeed handles POST /api/seed: installs the built-in demo corpus.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	n, err := s.pipeline.Seed(r.Context())
	if err != nil {
		log.Error("seed failed", slog.Any("error", err))
		http.Error(w, "seeding failed", http.StatusInternalServerError)
		return
	}
	s.metrics.documentsStoredTotal.Add(float64(n))

	writeJSON(w, http.StatusOK, countResponse{Status: "success", Count: n})
}

// handleClearDocuments handles DELETE /api/documents. The learned-answer
// collection is untouched.
func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := s.admin.ClearDocuments(r.Context()); err != nil {
		log.Error("clear documents failed", slog.Any("error", err))
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "document collection cleared"})
}

// handleClearLearned handles DELETE /api/learned. The document collection is
// untouched.
func (s *Server) handleClearLearned(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := s.admin.ClearLearned(r.Context()); err != nil {
		log.Error("clear learned answers failed", slog.Any("error", err))
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "learned answer collection cleared"})
}

// handleHistory handles GET /api/history?limit=N against the journal.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.history == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := s.history.RecentInteractions(r.Context(), limit)
	if err != nil {
		log.Error("history lookup failed", slog.Any("error", err))
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}

	resp := historyResponse{Interactions: make([]historyEntry, 0, len(items))}
	for _, it := range items {
		resp.Interactions = append(resp.Interactions, historyEntry{
			ID:        it.ID,
			Query:     it.Query,
			Answer:    it.Answer,
			CreatedAt: it.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// looksLikeText reports whether content is plausibly plain text: valid UTF-8
// with no NUL bytes and not a known binary container signature.
func looksLikeText(content []byte) bool {
	if bytes.HasPrefix(content, []byte("%PDF-")) {
		return false
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return false
	}
	return utf8.Valid(content)
}

// writeJSON encodes v with the given status. Encoding failures after the
// header is written can only be logged, not reported to the client.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

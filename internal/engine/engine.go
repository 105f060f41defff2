// Package engine implements the retrieval-and-learning core: the policy that
// answers a query by combining the learned-answer cache with the document
// index, and the feedback loop that promotes a generated answer into the
// learned-answer collection.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ragline/ragline/internal/budget"
	"github.com/ragline/ragline/internal/logging"
	"github.com/ragline/ragline/internal/provider"
	"github.com/ragline/ragline/internal/rag"
)

// Reference retrieval policy defaults. Both thresholds are empirical tuning
// constants exposed through configuration; these are only the fallbacks.
const (
	// defaultDocumentThreshold is the minimum similarity for a document
	// chunk to enter the context block.
	defaultDocumentThreshold = 0.5

	// defaultLearnedThreshold is the minimum similarity for a past query to
	// count as a near-duplicate. Much stricter than document relevance.
	defaultLearnedThreshold = 0.75

	// defaultSearchLimit is the number of document chunks retrieved per query.
	defaultSearchLimit = 3
)

// SentinelInteractionID is returned instead of a fresh UUID when no
// generation credential is configured. Feedback against it is acknowledged
// but never promotes anything — the id is deliberately absent from the cache.
const SentinelInteractionID = "error"

// missingCredentialAnswer is the fixed instructive answer returned without
// any network call when the generation provider has no credential.
const missingCredentialAnswer = "No generation credential is configured. " +
	"Set the API key for your MODEL_PROVIDER (e.g. GOOGLE_API_KEY) in the environment or .env file and restart the service."

// Result is the outcome of answering one query.
type Result struct {
	// Answer is the generated (or synthetic) answer text.
	Answer string `json:"answer"`
	// InteractionID keys this answer in the interaction cache for feedback.
	InteractionID string `json:"interaction_id"`
	// LearnedHit reports whether a previously learned answer informed the
	// prompt. Not part of the wire response.
	LearnedHit bool `json:"-"`
}

// FeedbackResult is the structured acknowledgement of a feedback submission.
type FeedbackResult struct {
	// Status is always "success" for processed submissions — unknown ids and
	// negative signals are no-ops, not errors.
	Status string `json:"status"`
	// Message distinguishes a plain acknowledgement from a promotion.
	Message string `json:"message"`
	// Promoted reports whether this submission stored a learned answer.
	Promoted bool `json:"promoted"`
}

// Journal records interactions and feedback outcomes for offline inspection.
// Journal failures are never fatal to a request.
type Journal interface {
	// RecordInteraction persists one answered query.
	RecordInteraction(ctx context.Context, id, query, answer string) error
	// RecordFeedback persists one feedback submission and whether it promoted.
	RecordFeedback(ctx context.Context, interactionID, signal string, promoted bool) error
}

// Config holds the dependencies and policy knobs for constructing an Engine.
type Config struct {
	// Encoder provides the asymmetric document/query encodings.
	Encoder *rag.Encoder

	// Index is the two-collection vector index.
	Index rag.Index

	// Generator is the generation provider with fallback policy. May be nil
	// when no credential is configured — the engine then answers with the
	// sentinel instead of attempting network calls.
	Generator provider.Generator

	// Journal is the optional interaction/feedback journal.
	Journal Journal

	// DocumentThreshold is the minimum similarity for document retrieval.
	// Exactly zero means unset and selects the default of 0.5; pass a
	// negative value (cosine scores reach -1) to disable filtering.
	DocumentThreshold float32

	// LearnedThreshold is the minimum similarity for a learned-answer hit.
	// Exactly zero means unset and selects the default of 0.75; pass a
	// negative value to disable filtering.
	LearnedThreshold float32

	// SearchLimit is the number of document chunks retrieved per query.
	// Defaults to 3 if zero.
	SearchLimit int

	// CacheCapacity bounds the interaction cache. Defaults to 100 if zero.
	CacheCapacity int

	// MaxContextTokens is the estimated token budget for the context block.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Engine is the retrieval orchestrator and feedback processor. A single
// Engine instance is constructed at startup and shared by all requests.
type Engine struct {
	encoder   *rag.Encoder
	index     rag.Index
	generator provider.Generator
	journal   Journal
	cache     *InteractionCache

	documentThreshold float32
	learnedThreshold  float32
	searchLimit       int
	maxContextTokens  int
}

// New constructs an Engine from the provided Config.
func New(cfg *Config) (*Engine, error) {
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("engine: encoder must not be nil")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("engine: index must not be nil")
	}

	docThreshold := cfg.DocumentThreshold
	if docThreshold == 0 {
		docThreshold = defaultDocumentThreshold
	}
	learnedThreshold := cfg.LearnedThreshold
	if learnedThreshold == 0 {
		learnedThreshold = defaultLearnedThreshold
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Engine{
		encoder:           cfg.Encoder,
		index:             cfg.Index,
		generator:         cfg.Generator,
		journal:           cfg.Journal,
		cache:             NewInteractionCache(cfg.CacheCapacity),
		documentThreshold: docThreshold,
		learnedThreshold:  learnedThreshold,
		searchLimit:       limit,
		maxContextTokens:  maxCtx,
	}, nil
}

// Cache exposes the interaction cache for diagnostics and tests.
func (e *Engine) Cache() *InteractionCache { return e.cache }

// Answer runs the full retrieval-and-generation policy for one query:
// learned-answer lookup, document lookup, prompt assembly, generation with
// primary/fallback degradation, and the interaction-cache write that arms
// the feedback loop. Index failures are fatal to the request (error return);
// generation failures are degraded to a synthetic answer, never an error.
func (e *Engine) Answer(ctx context.Context, query string) (Result, error) {
	log := logging.FromContext(ctx)

	queryVec, err := e.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("engine: %w", err)
	}

	hint, err := e.index.SearchLearned(ctx, queryVec, e.learnedThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("engine: learned lookup failed: %w", err)
	}
	if hint != nil {
		log.Debug("learned answer hit",
			slog.String("learned_id", hint.ID),
			slog.Float64("score", float64(hint.Score)),
		)
	}

	docs, err := e.index.SearchDocuments(ctx, queryVec, e.searchLimit, e.documentThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("engine: document lookup failed: %w", err)
	}

	contextBlock := buildContext(docs, e.maxContextTokens)
	prompt := buildPrompt(hint, contextBlock, query)

	// Credential-missing short-circuit: no network call, sentinel id, and no
	// cache entry so later feedback against the sentinel stays a no-op.
	if e.generator == nil {
		return Result{Answer: missingCredentialAnswer, InteractionID: SentinelInteractionID, LearnedHit: hint != nil}, nil
	}

	answer, genErr := e.generator.Generate(ctx, prompt)
	if genErr != nil {
		// Both models failed. Degrade to a synthetic answer — generation
		// failure is never fatal to the request.
		log.Warn("generation failed on primary and fallback", slog.Any("error", genErr))
		answer = fmt.Sprintf("Error generating response: %v", genErr)
	}

	// All blocking I/O is done; only now is the cache lock taken.
	id := uuid.NewString()
	e.cache.Put(id, query, answer)

	if e.journal != nil {
		if err := e.journal.RecordInteraction(ctx, id, query, answer); err != nil {
			log.Warn("journal: failed to record interaction", slog.Any("error", err))
		}
	}

	return Result{Answer: answer, InteractionID: id, LearnedHit: hint != nil}, nil
}

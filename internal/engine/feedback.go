package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ragline/ragline/internal/logging"
	"github.com/ragline/ragline/internal/rag"
)

// positiveSignals are the feedback values that trigger promotion into the
// learned-answer collection. Matching is case-insensitive.
var positiveSignals = map[string]bool{
	"like":     true,
	"positive": true,
	"1":        true,
}

// SubmitFeedback processes one feedback submission against a cached
// interaction. A positive signal promotes the cached query/answer pair into
// the learned-answer collection; anything else is acknowledged without side
// effects. Unknown interaction ids (expired, evicted, or the sentinel) are
// also acknowledged as success — the caller cannot distinguish "never
// existed" from "already evicted", so neither is an error.
//
// Promotion is additive: submitting positive feedback twice for the same
// interaction stores two learned records. Duplicates cost only storage, and
// search returns the single best match regardless.
func (e *Engine) SubmitFeedback(ctx context.Context, interactionID, signal string) (FeedbackResult, error) {
	log := logging.FromContext(ctx)

	entry, ok := e.cache.Get(interactionID)
	if !ok {
		log.Debug("feedback for unknown interaction", slog.String("interaction_id", interactionID))
		e.journalFeedback(ctx, interactionID, signal, false)
		return FeedbackResult{Status: "success", Message: "Feedback received"}, nil
	}

	if !positiveSignals[strings.ToLower(signal)] {
		e.journalFeedback(ctx, interactionID, signal, false)
		return FeedbackResult{Status: "success", Message: "Feedback received"}, nil
	}

	// The learned record embeds the QUERY but stores the ANSWER: future
	// similar questions match on the question, not the answer text.
	queryVec, err := e.encoder.EncodeQuery(ctx, entry.Query)
	if err != nil {
		return FeedbackResult{}, fmt.Errorf("engine: %w", err)
	}

	rec := rag.LearnedAnswer{
		ID:     uuid.NewString(),
		Query:  entry.Query,
		Answer: entry.Answer,
	}
	if err := e.index.UpsertLearned(ctx, rec, queryVec); err != nil {
		return FeedbackResult{}, fmt.Errorf("engine: failed to store learned answer: %w", err)
	}

	log.Info("promoted answer to learned collection",
		slog.String("interaction_id", interactionID),
		slog.String("learned_id", rec.ID),
	)
	e.journalFeedback(ctx, interactionID, signal, true)

	return FeedbackResult{Status: "success", Message: "Answer saved for future queries", Promoted: true}, nil
}

func (e *Engine) journalFeedback(ctx context.Context, interactionID, signal string, promoted bool) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordFeedback(ctx, interactionID, signal, promoted); err != nil {
		logging.FromContext(ctx).Warn("journal: failed to record feedback", slog.Any("error", err))
	}
}

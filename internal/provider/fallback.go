package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ragline/ragline/internal/logging"
)

// defaultTimeout bounds each individual model call when no explicit timeout
// is configured. Generation is the slowest hop in the request path; without
// a bound a stuck provider would hang the request indefinitely.
const defaultTimeout = 60 * time.Second

// FallbackGenerator implements Generator with the primary/fallback policy:
// try the primary model; on any failure (network, quota, API error, timeout)
// retry once against the fallback model. Only when both fail does Generate
// return an error — callers degrade that to a synthetic answer, never a
// fault across the service boundary.
type FallbackGenerator struct {
	// primary is the first model tried on every call.
	primary model.BaseChatModel
	// fallback is tried when primary fails. Nil disables the retry.
	fallback model.BaseChatModel

	// primaryName and fallbackName label log entries and errors.
	primaryName  string
	fallbackName string

	// timeout bounds each individual model call.
	timeout time.Duration
}

// NewFallbackGenerator constructs a FallbackGenerator. fallback may be nil.
func NewFallbackGenerator(primary, fallback model.BaseChatModel, primaryName, fallbackName string, timeout time.Duration) (*FallbackGenerator, error) {
	if primary == nil {
		return nil, fmt.Errorf("provider: primary model must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FallbackGenerator{
		primary:      primary,
		fallback:     fallback,
		primaryName:  primaryName,
		fallbackName: fallbackName,
		timeout:      timeout,
	}, nil
}

// Generate returns the completion for prompt, applying the primary/fallback
// policy. A timeout on either model is treated identically to any other
// provider failure.
func (g *FallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msgs := []*schema.Message{schema.UserMessage(prompt)}

	text, primaryErr := g.generate(ctx, g.primary, msgs)
	if primaryErr == nil {
		return text, nil
	}

	logging.FromContext(ctx).Warn("provider: primary model failed, trying fallback",
		slog.String("primary", g.primaryName),
		slog.String("fallback", g.fallbackName),
		slog.Any("error", primaryErr),
	)

	if g.fallback == nil {
		return "", fmt.Errorf("provider: %s failed and no fallback is configured: %w", g.primaryName, primaryErr)
	}

	text, fallbackErr := g.generate(ctx, g.fallback, msgs)
	if fallbackErr == nil {
		return text, nil
	}

	return "", fmt.Errorf("provider: primary %s failed (%v); fallback %s failed: %w",
		g.primaryName, primaryErr, g.fallbackName, fallbackErr)
}

// generate runs a single bounded model call.
func (g *FallbackGenerator) generate(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := m.Generate(callCtx, msgs)
	if err != nil {
		return "", err //nolint:wrapcheck // wrapped by the caller with model names
	}
	if resp == nil {
		return "", fmt.Errorf("model returned nil response")
	}
	return resp.Content, nil
}

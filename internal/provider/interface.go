// Package provider defines the Generator interface and factory for selecting
// and constructing LLM backend implementations at runtime, including the
// primary/fallback model policy used on every generation call.
// Supported backends: Ollama, OpenAI, Azure OpenAI, AWS Bedrock, Google Gemini.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoCredential is returned by the factory when the selected backend
// requires an API key and none is configured. Callers treat this as a
// degraded mode rather than a startup failure: the engine answers with a
// fixed instructive message instead of attempting network calls.
var ErrNoCredential = errors.New("provider: generation credential not configured")

// Generator produces a text completion for an assembled prompt.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the completion text for prompt, or an error when all
	// configured models fail. Implementations bound each model call with a
	// timeout so a request is never left hung.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds Ollama backend settings.
type ProviderOllama struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string
	// Model is the primary model name.
	Model string
	// FallbackModel is tried when the primary fails. Empty disables fallback.
	FallbackModel string
}

// ProviderOpenAI holds OpenAI backend settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the primary model name.
	Model string
	// FallbackModel is tried when the primary fails. Empty disables fallback.
	FallbackModel string
}

// ProviderAzureOpenAI holds Azure OpenAI backend settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure OpenAI API key.
	APIKey string
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string
	// Deployment is the primary deployment name.
	Deployment string
	// FallbackDeployment is tried when the primary fails. Empty disables fallback.
	FallbackDeployment string
	// APIVersion is the Azure OpenAI REST API version.
	APIVersion string
}

// ProviderBedrock holds AWS Bedrock backend settings.
type ProviderBedrock struct {
	// APIKey is the runtime API key for the Bedrock-compatible endpoint.
	APIKey string
	// BaseURL is the Bedrock-compatible endpoint URL.
	BaseURL string
	// ModelID is the primary Bedrock model identifier.
	ModelID string
	// FallbackModelID is tried when the primary fails. Empty disables fallback.
	FallbackModelID string
}

// ProviderGemini holds Google Gemini backend settings.
type ProviderGemini struct {
	// APIKey is the Google API key.
	APIKey string
	// Model is the primary model name.
	Model string
	// FallbackModel is tried when the primary fails. Empty disables fallback.
	FallbackModel string
}

// SharedTuning holds generation parameters shared across backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
	// Timeout bounds each individual model call.
	Timeout time.Duration
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Ollama holds Ollama-specific settings.
	Ollama ProviderOllama
	// OpenAI holds OpenAI-specific settings.
	OpenAI ProviderOpenAI
	// AzureOpenAI holds Azure OpenAI-specific settings.
	AzureOpenAI ProviderAzureOpenAI
	// Bedrock holds AWS Bedrock-specific settings.
	Bedrock ProviderBedrock
	// Gemini holds Google Gemini-specific settings.
	Gemini ProviderGemini

	// Tuning holds shared generation parameters.
	Tuning SharedTuning
}

// Validate checks backend-specific required fields. A missing credential is
// reported as ErrNoCredential so callers can distinguish "unconfigured" from
// "misconfigured".
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrNoCredential)
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return fmt.Errorf("%w: set AZURE_OPENAI_API_KEY", ErrNoCredential)
		}
		if c.AzureOpenAI.Endpoint == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureOpenAI.Deployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendBedrock:
		if c.Bedrock.APIKey == "" {
			return fmt.Errorf("%w: set BEDROCK_API_KEY", ErrNoCredential)
		}
		if c.Bedrock.ModelID == "" {
			return fmt.Errorf("provider: BEDROCK_MODEL_ID is required for bedrock backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GOOGLE_API_KEY", ErrNoCredential)
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, bedrock, gemini", c.Backend)
	}
	return nil
}

// ModelNames returns the primary and fallback model names for the selected
// backend. The fallback name may be empty.
func (c *Config) ModelNames() (primary, fallback string) {
	switch c.Backend {
	case BackendOllama:
		return c.Ollama.Model, c.Ollama.FallbackModel
	case BackendOpenAI:
		return c.OpenAI.Model, c.OpenAI.FallbackModel
	case BackendAzure:
		return c.AzureOpenAI.Deployment, c.AzureOpenAI.FallbackDeployment
	case BackendBedrock:
		return c.Bedrock.ModelID, c.Bedrock.FallbackModelID
	case BackendGemini:
		return c.Gemini.Model, c.Gemini.FallbackModel
	}
	return "", ""
}

package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigFromEnv resolves provider configuration from environment variables.
// MODEL_PROVIDER selects the backend; each provider uses its own native
// credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER     = ollama | openai | azure | bedrock | gemini (default: gemini)
//
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3),
//	         OLLAMA_FALLBACK_MODEL
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o), OPENAI_FALLBACK_MODEL (default: gpt-4o-mini)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_FALLBACK_DEPLOYMENT, AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Bedrock: BEDROCK_API_KEY, BEDROCK_BASE_URL, BEDROCK_MODEL_ID, BEDROCK_FALLBACK_MODEL_ID
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-2.5-flash-preview-09-2025),
//	         GEMINI_FALLBACK_MODEL (default: gemini-1.5-flash)
//
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2),
//	         GENERATION_TIMEOUT_SECONDS (default: 60)
func ConfigFromEnv() *Config {
	return &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendGemini))),
		Ollama: ProviderOllama{
			Host:          getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model:         getEnvOrDefault("OLLAMA_MODEL", "llama3"),
			FallbackModel: os.Getenv("OLLAMA_FALLBACK_MODEL"),
		},
		OpenAI: ProviderOpenAI{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Model:         getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
			FallbackModel: getEnvOrDefault("OPENAI_FALLBACK_MODEL", "gpt-4o-mini"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:             os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:           os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment:         os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			FallbackDeployment: os.Getenv("AZURE_OPENAI_FALLBACK_DEPLOYMENT"),
			APIVersion:         getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Bedrock: ProviderBedrock{
			APIKey:          os.Getenv("BEDROCK_API_KEY"),
			BaseURL:         os.Getenv("BEDROCK_BASE_URL"),
			ModelID:         os.Getenv("BEDROCK_MODEL_ID"),
			FallbackModelID: os.Getenv("BEDROCK_FALLBACK_MODEL_ID"),
		},
		Gemini: ProviderGemini{
			APIKey:        os.Getenv("GOOGLE_API_KEY"),
			Model:         getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash-preview-09-2025"),
			FallbackModel: getEnvOrDefault("GEMINI_FALLBACK_MODEL", "gemini-1.5-flash"),
		},
		Tuning: SharedTuning{
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
			Timeout:     time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 60)) * time.Second,
		},
	}
}

// New constructs a FallbackGenerator from an explicit Config: it validates
// the config, builds the primary chat model, and builds the fallback model
// when one is named. A missing credential surfaces as ErrNoCredential so
// callers can run in degraded (sentinel-answer) mode instead of crashing.
func New(ctx context.Context, cfg *Config) (*FallbackGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	primaryName, fallbackName := cfg.ModelNames()

	primary, err := newChatModel(ctx, cfg, primaryName)
	if err != nil {
		return nil, fmt.Errorf("provider: failed to build primary model %q: %w", primaryName, err)
	}

	gen := &FallbackGenerator{
		primary:     primary,
		primaryName: primaryName,
		timeout:     cfg.Tuning.Timeout,
	}
	if gen.timeout <= 0 {
		gen.timeout = defaultTimeout
	}

	if fallbackName != "" {
		fb, err := newChatModel(ctx, cfg, fallbackName)
		if err != nil {
			return nil, fmt.Errorf("provider: failed to build fallback model %q: %w", fallbackName, err)
		}
		gen.fallback = fb
		gen.fallbackName = fallbackName
	}

	return gen, nil
}

// NewFromEnv constructs a FallbackGenerator from environment variables.
func NewFromEnv(ctx context.Context) (*FallbackGenerator, error) {
	return New(ctx, ConfigFromEnv())
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

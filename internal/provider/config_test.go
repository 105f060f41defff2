package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          Config
		wantErr      string
		noCredential bool
	}{
		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o"},
			},
		},
		{
			name:         "openai/missing api key",
			cfg:          Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o"}},
			wantErr:      "OPENAI_API_KEY",
			noCredential: true,
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
					APIVersion: "2024-02-01",
				},
			},
		},
		{
			name: "azure/missing api key",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
				},
			},
			wantErr:      "AZURE_OPENAI_API_KEY",
			noCredential: true,
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Deployment: "gpt-4o",
				},
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:   "key",
					Endpoint: "https://my.openai.azure.com",
				},
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Bedrock ───────────────────────────────────────────────────────────
		{
			name: "bedrock/valid",
			cfg: Config{
				Backend: BackendBedrock,
				Bedrock: ProviderBedrock{APIKey: "key", ModelID: "anthropic.claude-3"},
			},
		},
		{
			name:         "bedrock/missing api key",
			cfg:          Config{Backend: BackendBedrock, Bedrock: ProviderBedrock{ModelID: "anthropic.claude-3"}},
			wantErr:      "BEDROCK_API_KEY",
			noCredential: true,
		},
		{
			name:    "bedrock/missing model id",
			cfg:     Config{Backend: BackendBedrock, Bedrock: ProviderBedrock{APIKey: "key"}},
			wantErr: "BEDROCK_MODEL_ID",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg: Config{
				Backend: BackendGemini,
				Gemini:  ProviderGemini{APIKey: "AIza-test", Model: "gemini-1.5-pro"},
			},
		},
		{
			name:         "gemini/missing api key",
			cfg:          Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-pro"}},
			wantErr:      "GOOGLE_API_KEY",
			noCredential: true,
		},

		// ── Unknown backend ───────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "unknown"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
			if got := errors.Is(err, ErrNoCredential); got != tc.noCredential {
				t.Errorf("errors.Is(err, ErrNoCredential) = %v, want %v", got, tc.noCredential)
			}
		})
	}
}

func TestConfigModelNames(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Backend: BackendGemini,
		Gemini: ProviderGemini{
			Model:         "gemini-2.5-flash-preview-09-2025",
			FallbackModel: "gemini-1.5-flash",
		},
	}
	primary, fallback := cfg.ModelNames()
	if primary != "gemini-2.5-flash-preview-09-2025" || fallback != "gemini-1.5-flash" {
		t.Errorf("ModelNames() = (%q, %q)", primary, fallback)
	}

	cfg = Config{Backend: BackendOllama, Ollama: ProviderOllama{Model: "llama3"}}
	primary, fallback = cfg.ModelNames()
	if primary != "llama3" || fallback != "" {
		t.Errorf("ModelNames() = (%q, %q)", primary, fallback)
	}
}

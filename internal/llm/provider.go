package llm

import (
	"context"

	"github.com/avashisht/veridoc/internal/model"
)

// Provider defines the interface for language-model services. The pipeline
// treats every provider as an unreliable black box: calls carry timeouts and
// may return non-JSON text.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw completion text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// VisionProvider is implemented by providers that can additionally reason
// over an image, used by the forensics deep-opinion stage.
type VisionProvider interface {
	Provider

	// CompleteVision sends a prompt plus a base64-encoded image
	CompleteVision(ctx context.Context, prompt string, imageB64 string, mediaType string) (*CompletionResponse, error)
}

// CompletionRequest contains the input for one completion call.
type CompletionRequest struct {
	// Prompt is the full instruction text
	Prompt string

	// System is an optional system message
	System string

	// Model is the specific model to use (empty uses the configured default)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature; extraction wants low values for stable field output
	Temperature float32
}

// CompletionResponse contains the raw model output.
type CompletionResponse struct {
	// Text is the completion, possibly still wrapped in markdown fencing
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 500,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
}

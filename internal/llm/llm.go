// Package llm wraps the chat-completion APIs the research stages prompt.
package llm

import (
	"context"
	"fmt"
)

// Model completes a single user prompt.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config selects and parameterizes one model.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// New builds a Model for cfg.Provider.
func New(cfg Config) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderAnthropic, "claude", "":
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (valid: %s, %s)", cfg.Provider, ProviderAnthropic, ProviderOpenAI)
	}
}

// Package search provides the web search collaborators used by the research pipeline.
//
// Available providers:
//
//   - Mock: fixed results, no API key required
//   - SerpAPI: Google results through serpapi.com, requires an API key
package search

import (
	"context"
	"fmt"

	"github.com/DeafMist/deep-research/internal/models"
)

// Provider executes a query and returns at most maxResults hits in rank order.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

const (
	ModeMock    = "mock"
	ModeSerpAPI = "serpapi"
)

// New selects a provider by mode.
func New(mode, apiKey, baseURL string) (Provider, error) {
	switch mode {
	case ModeMock, "":
		return NewMock(), nil
	case ModeSerpAPI:
		if apiKey == "" {
			return nil, fmt.Errorf("serpapi: API key is missing")
		}
		return NewSerpAPI(apiKey, baseURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown search mode %q (valid: %s, %s)", mode, ModeMock, ModeSerpAPI)
	}
}

package search

import (
	"context"
	"fmt"

	"github.com/DeafMist/deep-research/internal/models"
)

// Mock returns the same five sources for every query. Useful for local runs
// without a search API key.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Search(_ context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	results := []models.SearchResult{
		{
			Title:   fmt.Sprintf("Article about %s - Wikipedia", query),
			URL:     "https://en.wikipedia.org/wiki/Artificial_intelligence",
			Snippet: fmt.Sprintf("Comprehensive information about %s including history, applications, and future developments.", query),
		},
		{
			Title:   fmt.Sprintf("%s: Complete Guide (2024)", query),
			URL:     "https://www.ibm.com/topics/artificial-intelligence",
			Snippet: fmt.Sprintf("Learn everything about %s with our detailed guide covering fundamentals and advanced concepts.", query),
		},
		{
			Title:   fmt.Sprintf("Latest Research on %s", query),
			URL:     "https://arxiv.org/list/cs.AI/recent",
			Snippet: fmt.Sprintf("Recent scientific papers and research findings about %s from leading institutions.", query),
		},
		{
			Title:   fmt.Sprintf("%s Applications and Use Cases", query),
			URL:     "https://www.mckinsey.com/capabilities/quantumblack/our-insights",
			Snippet: fmt.Sprintf("Real-world applications of %s in business, healthcare, and technology sectors.", query),
		},
		{
			Title:   fmt.Sprintf("Future of %s - Expert Analysis", query),
			URL:     "https://www.wired.com/tag/artificial-intelligence/",
			Snippet: fmt.Sprintf("Expert perspectives on the future trends and developments in %s technology.", query),
		},
	}

	if maxResults >= 0 && maxResults < len(results) {
		results = results[:maxResults]
	}
	return results, nil
}

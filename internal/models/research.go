package models

import "time"

// SearchResult is one ranked hit returned by a search provider.
type SearchResult struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// SourceSummary is a search result that was summarized (or served from cache).
type SourceSummary struct {
	Title   string   `json:"title" yaml:"title"`
	URL     string   `json:"url" yaml:"url"`
	Snippet string   `json:"snippet" yaml:"snippet"`
	Summary []string `json:"summary" yaml:"summary"`
}

// ResearchResult is the output of a single pipeline run.
type ResearchResult struct {
	Query         string          `json:"query" yaml:"query"`
	SearchResults []SearchResult  `json:"search_results" yaml:"search_results"`
	Sources       []SourceSummary `json:"sources" yaml:"sources"`
	Report        string          `json:"report" yaml:"report"`
}

// ReportDocument is the archived form of a ResearchResult stored in Elasticsearch.
type ReportDocument struct {
	ID          string          `json:"id"`
	Query       string          `json:"query"`
	Report      string          `json:"report"`
	Sources     []SourceSummary `json:"sources"`
	SourceCount int             `json:"source_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ResearchJob is a queued research request.
type ResearchJob struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

// JobResult is published once a queued job has run.
type JobResult struct {
	ID     string          `json:"id"`
	Result *ResearchResult `json:"result"`
}

// Package research runs the search, extract, summarize and report pipeline.
//
// A run is strictly sequential: search once, walk the results in rank order
// (serving cached summaries where possible), then synthesize one report.
// Failures inside a stage degrade to data instead of aborting the run:
//
//   - search error or no results: the run ends with NoResultsReport
//   - extraction error or empty page: the source is dropped
//   - summarization error: the source gets a single placeholder bullet
//   - synthesis error: the report is a diagnostic string
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DeafMist/deep-research/internal/cache"
	"github.com/DeafMist/deep-research/internal/extract"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/metrics"
	"github.com/DeafMist/deep-research/internal/models"
	"github.com/DeafMist/deep-research/internal/search"
)

const (
	DefaultMaxSources = 5
	MinQueryLength    = 3
	NoResultsReport   = "No search results found."
)

// SummaryCache is the subset of *cache.Cache the agent uses.
type SummaryCache interface {
	Get(url string) (cache.Entry, bool)
	Set(url string, summary []string, title string) error
	Clear() error
}

// Deps are the collaborators of an Agent. Log and Metrics may be nil.
type Deps struct {
	Search     search.Provider
	Reader     extract.Reader
	Cache      SummaryCache
	Summarizer *Summarizer
	Reporter   *Reporter
	MaxSources int
	Log        *slog.Logger
	Metrics    *metrics.Metrics
}

// Agent is built once at startup and shared by every request handler.
type Agent struct {
	search     search.Provider
	reader     extract.Reader
	cache      SummaryCache
	summarizer *Summarizer
	reporter   *Reporter
	maxSources int
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func New(d Deps) *Agent {
	maxSources := d.MaxSources
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}
	return &Agent{
		search:     d.Search,
		reader:     d.Reader,
		cache:      d.Cache,
		summarizer: d.Summarizer,
		reporter:   d.Reporter,
		maxSources: maxSources,
		log:        logger.OrDiscard(d.Log),
		metrics:    d.Metrics,
	}
}

// ValidateQuery trims query and rejects it when it is too short.
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return "", ErrInvalidQuery
	}
	return query, nil
}

// Research runs the pipeline once for query. It returns ErrInvalidQuery for a
// short query and an error if ctx is canceled mid-run; every other failure is
// folded into the result.
func (a *Agent) Research(ctx context.Context, query string) (*models.ResearchResult, error) {
	query, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := a.log.With(slog.String("query", query))
	log.Info("research started")

	results, err := a.search.Search(ctx, query, a.maxSources)
	if err != nil && ctx.Err() != nil {
		a.metrics.ObserveRun("canceled", time.Since(start))
		return nil, fmt.Errorf("research canceled: %w", ctx.Err())
	}
	if err != nil {
		a.degrade(log, stageError(KindSearch, "", err))
		results = nil
	}
	if len(results) > a.maxSources {
		results = results[:a.maxSources]
	}

	if len(results) == 0 {
		log.Info("no search results")
		a.metrics.ObserveRun("no_results", time.Since(start))
		return &models.ResearchResult{
			Query:         query,
			SearchResults: []models.SearchResult{},
			Sources:       []models.SourceSummary{},
			Report:        NoResultsReport,
		}, nil
	}

	log.Info("processing sources", slog.Int("count", len(results)))
	sources := make([]models.SourceSummary, 0, len(results))
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			a.metrics.ObserveRun("canceled", time.Since(start))
			return nil, fmt.Errorf("research canceled: %w", err)
		}

		srcLog := log.With(slog.Int("index", i+1), slog.String("url", r.URL))
		if src, ok := a.processSource(ctx, srcLog, r); ok {
			sources = append(sources, src)
		}
	}

	log.Info("generating report", slog.Int("sources", len(sources)))
	report, err := a.reporter.Generate(ctx, query, sources)
	if err != nil && ctx.Err() != nil {
		a.metrics.ObserveRun("canceled", time.Since(start))
		return nil, fmt.Errorf("research canceled: %w", ctx.Err())
	}
	if err != nil {
		a.degrade(log, stageError(KindReport, "", err))
		report = ReportDiagnostic(err)
	}

	a.metrics.ObserveRun("ok", time.Since(start))
	log.Info("research complete", slog.Duration("elapsed", time.Since(start)))

	return &models.ResearchResult{
		Query:         query,
		SearchResults: results,
		Sources:       sources,
		Report:        report,
	}, nil
}

// processSource serves r from cache or extracts, summarizes and caches it.
// ok is false when the source has to be dropped.
func (a *Agent) processSource(ctx context.Context, log *slog.Logger, r models.SearchResult) (models.SourceSummary, bool) {
	if entry, hit := a.cache.Get(r.URL); hit {
		a.metrics.CacheHit()
		title := entry.Title
		if title == "" {
			title = r.Title
		}
		log.Info("using cached summary")
		return models.SourceSummary{
			Title:   title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Summary: nonNil(entry.Summary),
		}, true
	}
	a.metrics.CacheMiss()

	content, err := a.reader.Read(ctx, r.URL)
	if err == nil && strings.TrimSpace(content) == "" {
		err = extract.ErrEmptyContent
	}
	if err != nil {
		a.degrade(log, stageError(KindExtraction, r.URL, err))
		return models.SourceSummary{}, false
	}

	summary, err := a.summarizer.Summarize(ctx, r.Title, content)
	if err != nil && ctx.Err() != nil {
		// canceled runs must not cache a placeholder
		log.Info("summarization interrupted", slog.Any("err", err))
		return models.SourceSummary{}, false
	}
	if err != nil {
		a.degrade(log, stageError(KindSummarization, r.URL, err))
		summary = SummaryPlaceholder(err)
	}
	summary = nonNil(summary)

	if err := a.cache.Set(r.URL, summary, r.Title); err != nil {
		log.Warn("cache write failed", slog.Any("err", err))
	}

	log.Info("summarized source", slog.Int("bullets", len(summary)))
	return models.SourceSummary{
		Title:   r.Title,
		URL:     r.URL,
		Snippet: r.Snippet,
		Summary: summary,
	}, true
}

func (a *Agent) degrade(log *slog.Logger, err *StageError) {
	a.metrics.StageFailure(string(err.Kind))
	log.Warn("stage degraded", slog.String("kind", string(err.Kind)), slog.Any("err", err.Err))
}

// ClearCache drops every cached summary.
func (a *Agent) ClearCache() error {
	if err := a.cache.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	a.log.Info("cache cleared")
	return nil
}

// IsValidationError reports whether err means the caller sent a bad query.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

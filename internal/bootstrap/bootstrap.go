// Package bootstrap wires configuration into a ready research.Agent. Each
// binary calls it once at startup and passes the result to its handlers.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/DeafMist/deep-research/internal/cache"
	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/elasticsearch"
	"github.com/DeafMist/deep-research/internal/extract"
	"github.com/DeafMist/deep-research/internal/llm"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/metrics"
	"github.com/DeafMist/deep-research/internal/research"
	"github.com/DeafMist/deep-research/internal/search"
)

// Runtime is everything a binary needs to serve research requests.
type Runtime struct {
	Agent   *research.Agent
	Cache   *cache.Cache
	Archive *elasticsearch.Client // nil when archiving is disabled
	closers []io.Closer
}

// Close releases the cache store and anything else opened by Build.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build constructs the collaborators described by cfg. m may be nil.
func Build(cfg *config.Pipeline, log *slog.Logger, m *metrics.Metrics) (*Runtime, error) {
	log = logger.OrDiscard(log)
	rt := &Runtime{}

	store, err := OpenStore(cfg, log, m)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}
	rt.Cache = cache.Open(store, log.With(slog.String("component", "cache")), m)

	provider, err := search.New(cfg.SearchMode, cfg.SerpAPIKey, cfg.SerpAPIBaseURL)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init search: %w", err)
	}

	summaryModel, err := llm.New(llm.Config{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		Model:     cfg.SummaryModel,
		MaxTokens: cfg.SummaryMaxTokens,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init summary model: %w", err)
	}

	reportModel, err := llm.New(llm.Config{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		Model:     cfg.ReportModel,
		MaxTokens: cfg.ReportMaxTokens,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init report model: %w", err)
	}

	if cfg.Archive.Enabled() {
		rt.Archive, err = elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
	}

	rt.Agent = research.New(research.Deps{
		Search:     provider,
		Reader:     extract.NewJina(cfg.JinaBaseURL, cfg.ExtractTimeout, cfg.ExtractMaxChars),
		Cache:      rt.Cache,
		Summarizer: research.NewSummarizer(summaryModel),
		Reporter:   research.NewReporter(reportModel),
		MaxSources: cfg.MaxSources,
		Log:        log.With(slog.String("component", "agent")),
		Metrics:    m,
	})

	log.Info("research runtime ready",
		slog.String("search", cfg.SearchMode),
		slog.String("llm", cfg.LLMProvider),
		slog.String("cache_backend", cfg.CacheBackend),
		slog.String("cache_path", cfg.CachePath),
		slog.Bool("archive", rt.Archive != nil),
	)
	return rt, nil
}

// OpenStore opens the cache backend selected by cfg.CacheBackend. A damaged
// sqlite file is replaced rather than returned as an error; log and m may be nil.
func OpenStore(cfg *config.Pipeline, log *slog.Logger, m *metrics.Metrics) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "sqlite":
		s, err := cache.OpenSQLiteOrReset(cfg.CachePath, log, m)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return s, nil
	case "json", "":
		return cache.NewJSONFile(cfg.CachePath), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

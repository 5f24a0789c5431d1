package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Archive holds the optional Elasticsearch report archive settings.
type Archive struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Enabled reports whether an archive address is configured.
func (a Archive) Enabled() bool {
	return a.ElasticsearchAddr != ""
}

// Pipeline configures the research pipeline and its collaborators. It is
// shared by every binary that runs research.
type Pipeline struct {
	Archive
	SearchMode       string
	SerpAPIKey       string
	SerpAPIBaseURL   string
	LLMProvider      string
	LLMAPIKey        string
	LLMBaseURL       string
	SummaryModel     string
	ReportModel      string
	SummaryMaxTokens int
	ReportMaxTokens  int
	JinaBaseURL      string
	ExtractTimeout   time.Duration
	ExtractMaxChars  int
	MaxSources       int
	CacheBackend     string
	CachePath        string
}

// API describes HTTP-layer configuration.
type API struct {
	Pipeline
	BindAddr          string
	KafkaBrokers      []string
	KafkaRequestTopic string
	DefaultPage       int
	MaxPage           int
}

// QueueEnabled reports whether async jobs can be enqueued.
func (a *API) QueueEnabled() bool {
	return len(a.KafkaBrokers) > 0
}

// Worker holds configuration for the Kafka research worker.
type Worker struct {
	Pipeline
	KafkaBrokers      []string
	KafkaRequestTopic string
	KafkaResultTopic  string
	KafkaConsumer     string
	DedupeCapacity    int
	DedupeTTL         time.Duration
	BatchSize         int
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Archive
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

var defaultModels = map[string][2]string{
	"anthropic": {"claude-3-5-haiku-20241022", "claude-3-5-sonnet-20241022"},
	"openai":    {"gpt-4o-mini", "gpt-4o"},
}

var apiKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// LoadPipeline builds the pipeline config from environment variables. Missing
// credentials are an error: the process must not start without them.
func LoadPipeline() (*Pipeline, error) {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", "anthropic"))
	models, ok := defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("LLM_PROVIDER must be one of anthropic, openai (got %q)", provider)
	}

	c := &Pipeline{
		Archive:          loadArchive(),
		SearchMode:       strings.ToLower(getEnv("SEARCH_MODE", "mock")),
		SerpAPIKey:       getEnv("SERP_API_KEY", ""),
		SerpAPIBaseURL:   getEnv("SERPAPI_BASE_URL", "https://serpapi.com"),
		LLMProvider:      provider,
		LLMAPIKey:        getEnv(apiKeyEnv[provider], ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", ""),
		SummaryModel:     getEnv("SUMMARY_MODEL", models[0]),
		ReportModel:      getEnv("REPORT_MODEL", models[1]),
		SummaryMaxTokens: getInt("SUMMARY_MAX_TOKENS", 500),
		ReportMaxTokens:  getInt("REPORT_MAX_TOKENS", 2000),
		JinaBaseURL:      getEnv("JINA_BASE_URL", "https://r.jina.ai"),
		ExtractTimeout:   getDuration("EXTRACT_TIMEOUT", "30s"),
		ExtractMaxChars:  getInt("EXTRACT_MAX_CHARS", 5000),
		MaxSources:       getInt("RESEARCH_MAX_SOURCES", 5),
	}
	c.CacheBackend, c.CachePath = CacheLocation()

	switch c.SearchMode {
	case "mock":
	case "serpapi":
		if c.SerpAPIKey == "" {
			return nil, fmt.Errorf("SERP_API_KEY is required when SEARCH_MODE=serpapi")
		}
	default:
		return nil, fmt.Errorf("SEARCH_MODE must be one of mock, serpapi (got %q)", c.SearchMode)
	}

	if c.LLMAPIKey == "" {
		return nil, fmt.Errorf("%s is required for LLM_PROVIDER=%s", apiKeyEnv[provider], provider)
	}
	if c.CacheBackend != "json" && c.CacheBackend != "sqlite" {
		return nil, fmt.Errorf("CACHE_BACKEND must be one of json, sqlite (got %q)", c.CacheBackend)
	}
	if c.MaxSources <= 0 {
		return nil, fmt.Errorf("RESEARCH_MAX_SOURCES must be positive")
	}
	if c.ExtractMaxChars <= 0 {
		return nil, fmt.Errorf("EXTRACT_MAX_CHARS must be positive")
	}
	if c.ExtractTimeout <= 0 {
		return nil, fmt.Errorf("EXTRACT_TIMEOUT must be positive")
	}
	if c.SummaryMaxTokens <= 0 || c.ReportMaxTokens <= 0 {
		return nil, fmt.Errorf("SUMMARY_MAX_TOKENS and REPORT_MAX_TOKENS must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	p, err := LoadPipeline()
	if err != nil {
		return nil, err
	}

	c := &API{
		Pipeline:          *p,
		BindAddr:          getEnv("API_BIND_ADDR", "0.0.0.0:8000"),
		KafkaBrokers:      splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaRequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "research_requests"),
		DefaultPage:       getInt("API_PAGE_SIZE", 20),
		MaxPage:           getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	p, err := LoadPipeline()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Pipeline:          *p,
		KafkaBrokers:      splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaRequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "research_requests"),
		KafkaResultTopic:  getEnv("KAFKA_RESULT_TOPIC", "research_results"),
		KafkaConsumer:     getEnv("KAFKA_CONSUMER_GROUP", "research-worker"),
		DedupeCapacity:    getInt("WORKER_DEDUPE_CAPACITY", 10000),
		DedupeTTL:         getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:         getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Archive:   loadArchive(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if !c.Enabled() {
		return nil, fmt.Errorf("ELASTICSEARCH_ADDR is required for retention")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// CacheLocation returns the cache backend and path without requiring the rest
// of the pipeline settings.
func CacheLocation() (backend, path string) {
	return strings.ToLower(getEnv("CACHE_BACKEND", "json")), getEnv("CACHE_PATH", "context7_cache.json")
}

func loadArchive() Archive {
	return Archive{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", ""),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "research_reports"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package config_test

import (
	"testing"
	"time"

	"github.com/DeafMist/deep-research/internal/config"
	"github.com/stretchr/testify/require"
)

var pipelineEnv = []string{
	"SEARCH_MODE", "SERP_API_KEY", "SERPAPI_BASE_URL", "LLM_PROVIDER", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	"LLM_BASE_URL", "SUMMARY_MODEL", "REPORT_MODEL", "SUMMARY_MAX_TOKENS", "REPORT_MAX_TOKENS", "JINA_BASE_URL",
	"EXTRACT_TIMEOUT", "EXTRACT_MAX_CHARS", "RESEARCH_MAX_SOURCES", "CACHE_BACKEND", "CACHE_PATH",
	"ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "KAFKA_BROKERS", "KAFKA_REQUEST_TOPIC", "KAFKA_RESULT_TOPIC",
	"KAFKA_CONSUMER_GROUP", "API_BIND_ADDR", "API_PAGE_SIZE", "API_MAX_PAGE_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range pipelineEnv {
		t.Setenv(key, "")
	}
}

func TestLoadPipelineDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := config.LoadPipeline()
	require.NoError(t, err)

	require.Equal(t, "mock", cfg.SearchMode)
	require.Equal(t, "anthropic", cfg.LLMProvider)
	require.Equal(t, "sk-ant", cfg.LLMAPIKey)
	require.Equal(t, "claude-3-5-haiku-20241022", cfg.SummaryModel)
	require.Equal(t, "claude-3-5-sonnet-20241022", cfg.ReportModel)
	require.Equal(t, 500, cfg.SummaryMaxTokens)
	require.Equal(t, 2000, cfg.ReportMaxTokens)
	require.Equal(t, "https://r.jina.ai", cfg.JinaBaseURL)
	require.Equal(t, 30*time.Second, cfg.ExtractTimeout)
	require.Equal(t, 5000, cfg.ExtractMaxChars)
	require.Equal(t, 5, cfg.MaxSources)
	require.Equal(t, "json", cfg.CacheBackend)
	require.Equal(t, "context7_cache.json", cfg.CachePath)
	require.False(t, cfg.Archive.Enabled())
	require.Equal(t, "research_reports", cfg.ElasticsearchIndex)
}

func TestLoadPipelineOpenAI(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-oa")
	t.Setenv("SEARCH_MODE", "serpapi")
	t.Setenv("SERP_API_KEY", "serp")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_PATH", "/var/lib/research/cache.db")
	t.Setenv("ELASTICSEARCH_ADDR", "http://es:9200")

	cfg, err := config.LoadPipeline()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.LLMProvider)
	require.Equal(t, "sk-oa", cfg.LLMAPIKey)
	require.Equal(t, "gpt-4o-mini", cfg.SummaryModel)
	require.Equal(t, "gpt-4o", cfg.ReportModel)
	require.Equal(t, "serpapi", cfg.SearchMode)
	require.Equal(t, "sqlite", cfg.CacheBackend)
	require.True(t, cfg.Archive.Enabled())
}

func TestLoadPipelineRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing llm key", env: map[string]string{}},
		{name: "serpapi without key", env: map[string]string{"ANTHROPIC_API_KEY": "k", "SEARCH_MODE": "serpapi"}},
		{name: "unknown search mode", env: map[string]string{"ANTHROPIC_API_KEY": "k", "SEARCH_MODE": "bing"}},
		{name: "unknown provider", env: map[string]string{"ANTHROPIC_API_KEY": "k", "LLM_PROVIDER": "gemini"}},
		{name: "unknown cache backend", env: map[string]string{"ANTHROPIC_API_KEY": "k", "CACHE_BACKEND": "redis"}},
		{name: "zero sources", env: map[string]string{"ANTHROPIC_API_KEY": "k", "RESEARCH_MAX_SOURCES": "0"}},
		{name: "wrong provider key", env: map[string]string{"OPENAI_API_KEY": "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadPipeline()
			require.Error(t, err)
		})
	}
}

func TestLoadAPI(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.True(t, cfg.QueueEnabled())
	require.Equal(t, "research_requests", cfg.KafkaRequestTopic)
	require.Equal(t, 20, cfg.DefaultPage)
	require.Equal(t, 100, cfg.MaxPage)
}

func TestLoadAPIDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8000", cfg.BindAddr)
	require.False(t, cfg.QueueEnabled())
}

func TestLoadAPIRejectsPageSizes(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("API_PAGE_SIZE", "50")
	t.Setenv("API_MAX_PAGE_SIZE", "10")

	_, err := config.LoadAPI()
	require.Error(t, err)
}

func TestLoadWorker(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("KAFKA_RESULT_TOPIC", "done")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "research_requests", cfg.KafkaRequestTopic)
	require.Equal(t, "done", cfg.KafkaResultTopic)
	require.Equal(t, "research-worker", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestLoadRetentionRequiresArchive(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	_, err := config.LoadRetention()
	require.Error(t, err)
}

func TestCacheLocation(t *testing.T) {
	clearEnv(t)
	backend, path := config.CacheLocation()
	require.Equal(t, "json", backend)
	require.Equal(t, "context7_cache.json", path)

	t.Setenv("CACHE_BACKEND", "SQLite")
	t.Setenv("CACHE_PATH", " /var/lib/research/cache.db ")
	backend, path = config.CacheLocation()
	require.Equal(t, "sqlite", backend)
	require.Equal(t, "/var/lib/research/cache.db", path)
}

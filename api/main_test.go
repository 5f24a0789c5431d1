package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/elasticsearch"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/models"
	"github.com/DeafMist/deep-research/internal/research"
)

type stubAgent struct {
	result   *models.ResearchResult
	err      error
	clearErr error
	queries  []string
	cleared  int
}

func (a *stubAgent) Research(_ context.Context, query string) (*models.ResearchResult, error) {
	a.queries = append(a.queries, query)
	if _, err := research.ValidateQuery(query); err != nil {
		return nil, err
	}
	return a.result, a.err
}

func (a *stubAgent) ClearCache() error {
	a.cleared++
	return a.clearErr
}

type stubArchive struct {
	indexed   []models.ReportDocument
	indexErr  error
	healthErr error
	params    elasticsearch.SearchParams
	result    *elasticsearch.SearchResult
}

func (s *stubArchive) IndexReport(_ context.Context, doc models.ReportDocument) error {
	s.indexed = append(s.indexed, doc)
	return s.indexErr
}

func (s *stubArchive) SearchReports(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = params
	return s.result, nil
}

func (s *stubArchive) Health(context.Context) error { return s.healthErr }

type stubPublisher struct {
	keys []string
	jobs []models.ResearchJob
	err  error
}

func (p *stubPublisher) PublishJSON(_ context.Context, key string, v any, _ ...kafka.Header) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.jobs = append(p.jobs, v.(models.ResearchJob))
	return nil
}

func sampleResult() *models.ResearchResult {
	return &models.ResearchResult{
		Query:         "quantum computing",
		SearchResults: []models.SearchResult{{Title: "A", URL: "https://a.example", Snippet: "s"}},
		Sources:       []models.SourceSummary{{Title: "A", URL: "https://a.example", Snippet: "s", Summary: []string{"- one"}}},
		Report:        "# Report",
	}
}

func newTestServer(agent *stubAgent) *server {
	return &server{
		log:   logger.Discard(),
		cfg:   &config.API{DefaultPage: 20, MaxPage: 100},
		agent: agent,
		now:   func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func do(t *testing.T, s *server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.routes(nil).ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRoot(t *testing.T) {
	rec := do(t, newTestServer(&stubAgent{}), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{
		"service": "Deep Research Agent",
		"status":  "running",
		"version": "1.0.0",
	}, decode[map[string]string](t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(&stubAgent{})
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)

	s.archive = &stubArchive{healthErr: errors.New("cluster red")}
	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "cluster red", decode[errorResponse](t, rec).Error)
}

func TestResearchSuccessArchivesReport(t *testing.T) {
	agent := &stubAgent{result: sampleResult()}
	archive := &stubArchive{}
	s := newTestServer(agent)
	s.archive = archive

	rec := do(t, s, http.MethodPost, "/research", `{"query":"quantum computing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[models.ResearchResult](t, rec)
	require.Equal(t, "quantum computing", got.Query)
	require.Len(t, got.Sources, 1)
	require.Equal(t, "# Report", got.Report)

	require.Len(t, archive.indexed, 1)
	require.Equal(t, "quantum computing", archive.indexed[0].Query)
	require.Equal(t, 1, archive.indexed[0].SourceCount)
}

func TestResearchArchiveFailureIsNotFatal(t *testing.T) {
	s := newTestServer(&stubAgent{result: sampleResult()})
	s.archive = &stubArchive{indexErr: errors.New("index closed")}

	rec := do(t, s, http.MethodPost, "/research", `{"query":"quantum computing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestResearchShortQuery(t *testing.T) {
	agent := &stubAgent{result: sampleResult()}
	rec := do(t, newTestServer(agent), http.MethodPost, "/research", `{"query":"  ab "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Query must be at least 3 characters", decode[errorResponse](t, rec).Error)
}

func TestResearchBadBody(t *testing.T) {
	rec := do(t, newTestServer(&stubAgent{}), http.MethodPost, "/research", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResearchInternalError(t *testing.T) {
	agent := &stubAgent{err: errors.New("research canceled: context canceled")}
	rec := do(t, newTestServer(agent), http.MethodPost, "/research", `{"query":"quantum computing"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Research failed: research canceled: context canceled", decode[errorResponse](t, rec).Error)
}

func TestClearCacheRoutes(t *testing.T) {
	agent := &stubAgent{}
	s := newTestServer(agent)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/cache/clear"},
		{http.MethodDelete, "/cache"},
	} {
		rec := do(t, s, tc.method, tc.path, "")
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		require.Equal(t, statusResponse{Status: "success", Message: "Cache cleared"}, decode[statusResponse](t, rec))
	}
	require.Equal(t, 2, agent.cleared)

	agent.clearErr = errors.New("disk full")
	rec := do(t, s, http.MethodDelete, "/cache", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEnqueueJob(t *testing.T) {
	pub := &stubPublisher{}
	s := newTestServer(&stubAgent{})
	s.jobs = pub

	rec := do(t, s, http.MethodPost, "/research/jobs", `{"query":"  rust async  "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := decode[jobResponse](t, rec)
	require.Equal(t, "queued", resp.Status)
	require.NotEmpty(t, resp.ID)

	require.Len(t, pub.jobs, 1)
	require.Equal(t, resp.ID, pub.keys[0])
	require.Equal(t, models.ResearchJob{ID: resp.ID, Query: "rust async"}, pub.jobs[0])
}

func TestEnqueueJobValidation(t *testing.T) {
	s := newTestServer(&stubAgent{})
	require.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodPost, "/research/jobs", `{"query":"rust"}`).Code)

	pub := &stubPublisher{}
	s.jobs = pub
	require.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/research/jobs", `{"query":"go"}`).Code)
	require.Empty(t, pub.jobs)

	pub.err = errors.New("no brokers")
	require.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodPost, "/research/jobs", `{"query":"rust"}`).Code)
}

func TestReports(t *testing.T) {
	s := newTestServer(&stubAgent{})
	require.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/reports", "").Code)

	archive := &stubArchive{result: &elasticsearch.SearchResult{
		Total: 1,
		Items: []models.ReportDocument{{ID: "r1", Query: "quantum computing"}},
	}}
	s.archive = archive

	rec := do(t, s, http.MethodGet, "/reports?q=quantum&from=10&size=500&start=2024-01-01T00:00:00Z&end=bogus", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[elasticsearch.SearchResult](t, rec)
	require.EqualValues(t, 1, got.Total)
	require.Equal(t, "r1", got.Items[0].ID)

	require.Equal(t, "quantum", archive.params.Query)
	require.Equal(t, 10, archive.params.From)
	require.Equal(t, 100, archive.params.Size)
	require.NotNil(t, archive.params.Start)
	require.Nil(t, archive.params.End)
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 20, clampInt("", 20, 100))
	require.Equal(t, 20, clampInt("abc", 20, 100))
	require.Equal(t, 20, clampInt("-5", 20, 100))
	require.Equal(t, 50, clampInt("50", 20, 100))
	require.Equal(t, 100, clampInt("500", 20, 100))
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/deep-research/internal/bootstrap"
	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/elasticsearch"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/metrics"
	"github.com/DeafMist/deep-research/internal/models"
	"github.com/DeafMist/deep-research/internal/queue"
	"github.com/DeafMist/deep-research/internal/research"
)

const (
	serviceName    = "Deep Research Agent"
	serviceVersion = "1.0.0"
)

type researcher interface {
	Research(ctx context.Context, query string) (*models.ResearchResult, error)
	ClearCache() error
}

type reportArchive interface {
	IndexReport(ctx context.Context, doc models.ReportDocument) error
	SearchReports(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type jobPublisher interface {
	PublishJSON(ctx context.Context, key string, v any, headers ...kafka.Header) error
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rt, err := bootstrap.Build(&cfg.Pipeline, log, m)
	if err != nil {
		log.Error("init research runtime", slog.Any("err", err))
		os.Exit(1)
	}
	defer rt.Close()

	srv := &server{
		log:   log,
		cfg:   cfg,
		agent: rt.Agent,
		now:   time.Now,
	}
	if rt.Archive != nil {
		srv.archive = rt.Archive
	}
	if cfg.QueueEnabled() {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaRequestTopic)
		defer producer.Close()
		srv.jobs = producer
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a research run makes several sequential model calls
		WriteTimeout: 5 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.Bool("queue", srv.jobs != nil),
			slog.Bool("archive", srv.archive != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	agent   researcher
	archive reportArchive // nil when ELASTICSEARCH_ADDR is unset
	jobs    jobPublisher  // nil when KAFKA_BROKERS is unset
	now     func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *server) routes(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/research", s.handleResearch)
	r.Post("/research/jobs", s.handleEnqueue)
	r.Get("/cache/clear", s.handleClearCache)
	r.Delete("/cache", s.handleClearCache)
	r.Get("/reports", s.handleReports)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	return r
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"status":  "running",
		"version": serviceVersion,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.archive.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	result, err := s.agent.Research(r.Context(), req.Query)
	if err != nil {
		if research.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query must be at least 3 characters"})
			return
		}
		s.log.Error("research failed", slog.String("query", req.Query), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Research failed: " + err.Error()})
		return
	}

	s.archiveResult(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

// archiveResult stores a finished report. Failures never reach the client.
func (s *server) archiveResult(ctx context.Context, result *models.ResearchResult) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	doc := elasticsearch.NewReportDocument(result, s.now().UTC())
	if err := s.archive.IndexReport(ctx, doc); err != nil {
		s.log.Warn("archive report", slog.String("id", doc.ID), slog.Any("err", err))
	}
}

func (s *server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Job queue is not configured"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	query, err := research.ValidateQuery(req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query must be at least 3 characters"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job := models.ResearchJob{ID: uuid.NewString(), Query: query}
	if err := s.jobs.PublishJSON(ctx, job.ID, job); err != nil {
		s.log.Error("enqueue job", slog.String("id", job.ID), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to enqueue job: " + err.Error()})
		return
	}

	s.log.Info("job queued", slog.String("id", job.ID), slog.String("query", job.Query))
	writeJSON(w, http.StatusAccepted, jobResponse{ID: job.ID, Status: "queued"})
}

func (s *server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	if err := s.agent.ClearCache(); err != nil {
		s.log.Error("clear cache", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to clear cache: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Cache cleared"})
}

func (s *server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Report archive is not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query: strings.TrimSpace(q.Get("q")),
		From:  clampInt(q.Get("from"), 0, 10_000),
		Size:  clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Start: parseTime(q.Get("start")),
		End:   parseTime(q.Get("end")),
	}

	result, err := s.archive.SearchReports(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sprint-metrics/batch"
	"sprint-metrics/config"
	"sprint-metrics/metrics"
	"sprint-metrics/pullrequest"
	"sprint-metrics/report"
	"sprint-metrics/sprint"
	"sprint-metrics/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

// Server handles HTTP requests
type Server struct {
	Router      *chi.Mux
	config      config.Config
	sprints     []sprint.Sprint
	fetcher     batch.Fetcher
	coordinator *batch.Coordinator
	telemetry   *telemetry.Collector
	decoder     *schema.Decoder
	logger      *zap.Logger
}

type metricsQuery struct {
	Refresh bool `schema:"refresh"`
}

// NewServer creates a new web server over a fixed sprint list
func NewServer(cfg config.Config, sprints []sprint.Sprint, fetcher batch.Fetcher, t *telemetry.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		config:      cfg,
		sprints:     sprints,
		fetcher:     fetcher,
		coordinator: batch.NewCoordinator(fetcher, logger, t),
		telemetry:   t,
		decoder:     decoder,
		logger:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", s.telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/sprints", s.getSprints)
		r.Get("/sprints/{id}/pull_requests", s.getSprintPullRequests)
		r.Get("/metrics", s.getMetrics)
		r.Get("/metrics/csv", s.getMetricsCSV)
	})

	s.Router = r
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "sprint-metrics-api",
	})
}

func (s *Server) getSprints(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   s.sprints,
	})
}

// getSprintPullRequests lists one sprint's pull requests for the detail view
func (s *Server) getSprintPullRequests(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid sprint id")
		return
	}

	var target *sprint.Sprint
	for i := range s.sprints {
		if s.sprints[i].ID == id {
			target = &s.sprints[i]
			break
		}
	}
	if target == nil {
		s.respondWithError(w, http.StatusNotFound, "sprint not found")
		return
	}

	prs, warnings, err := batch.FetchSprint(r.Context(), s.fetcher, *target)
	if err != nil {
		s.logger.Error("error fetching sprint pull requests", zap.Int("sprint_id", id), zap.Error(err))
		s.respondWithError(w, statusFor(err), err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"sprint":        target,
			"pull_requests": prs,
		},
		"stats": map[string]int{
			"pull_requests": len(prs),
			"dropped":       len(warnings),
		},
	})
}

// getMetrics returns the per-sprint series and chart datasets
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	buckets, _ := snap.Data()
	series := metrics.BuildSeries(s.sprints, buckets)

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"state":  snap.State,
		"data": map[string]interface{}{
			"series": series,
			"charts": metrics.BuildCharts(series),
		},
		"stats": map[string]int{
			"sprints": len(buckets),
			"dropped": len(snap.Warnings()),
		},
		"timestamp": time.Now().UTC(),
	})
}

// getMetricsCSV downloads the series as CSV
func (s *Server) getMetricsCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	buckets, _ := snap.Data()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="metrics.csv"`)
	if err := report.WriteCSV(w, metrics.BuildSeries(s.sprints, buckets)); err != nil {
		s.logger.Error("failed to write CSV", zap.Error(err))
	}
}

// load runs the batch fetch for the configured sprints. It writes the error
// response itself and returns false unless the data is ready.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (batch.Snapshot, bool) {
	var q metricsQuery
	if err := s.decoder.Decode(&q, r.URL.Query()); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid query parameters")
		return batch.Snapshot{}, false
	}
	if q.Refresh {
		s.coordinator.Reset()
	}

	// the result is shared by later requests, so a client disconnect must
	// not cancel it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.config.Timeout())
	defer cancel()

	snap := s.coordinator.Load(ctx, s.sprints)
	switch snap.State {
	case batch.Ready:
		return snap, true
	case batch.Failed:
		s.respondWithError(w, http.StatusBadGateway, snap.Err)
	default:
		s.respondWithError(w, http.StatusServiceUnavailable, "metrics are still loading")
	}
	return snap, false
}

func statusFor(err error) int {
	var (
		httpErr    *pullrequest.HTTPError
		formatErr  *pullrequest.FormatError
		networkErr *pullrequest.NetworkError
	)
	if errors.As(err, &httpErr) || errors.As(err, &formatErr) || errors.As(err, &networkErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode JSON for response", zap.Error(err))
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]interface{}{
		"status": "error",
		"error":  message,
	})
}

// Start starts the web server in the background
func (s *Server) Start(port string) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("starting sprint metrics API server", zap.String("port", port))
	s.logger.Info("available endpoints", zap.Strings("routes", []string{
		"GET /health",
		"GET /metrics",
		"GET /api/sprints",
		"GET /api/sprints/{id}/pull_requests",
		"GET /api/metrics",
		"GET /api/metrics/csv",
	}))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
	return srv
}

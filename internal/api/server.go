// Package api exposes the crawl service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/jobs"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
	"github.com/kidsparis/activity-crawler/internal/store"
)

// Server wires the job manager into an HTTP API.
type Server struct {
	manager    *jobs.Manager
	rejections store.RejectionStore
	logger     *zap.Logger
	http       *http.Server
}

// Config controls the HTTP listener.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
}

func NewServer(cfg Config, manager *jobs.Manager, rejections store.RejectionStore, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		manager:    manager,
		rejections: rejections,
		logger:     logging.OrNop(logger),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the context is canceled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{job_id}/status", s.handleJobStatus)
		r.Post("/rejections", s.handleAddRejection)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createJobRequest struct {
	Zones    []string `json:"zones"`
	Zone     string   `json:"zone,omitempty"` // single-zone shorthand
	Strategy string   `json:"strategy,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	zones := req.Zones
	if len(zones) == 0 && req.Zone != "" {
		zones = []string{req.Zone}
	}
	if len(zones) == 0 {
		writeError(w, http.StatusBadRequest, "at least one zone is required")
		return
	}
	for _, zone := range zones {
		if _, ok := activity.ZoneByName(zone); !ok {
			writeError(w, http.StatusBadRequest, "unknown zone")
			return
		}
	}

	job, err := s.manager.StartJob(jobs.Options{
		Zones:    zones,
		Strategy: req.Strategy,
	})
	if err != nil {
		s.logger.Error("start job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start job")
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

type rejectionRequest struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// handleAddRejection records a reviewer's refusal so later runs skip
// the entity.
func (s *Server) handleAddRejection(w http.ResponseWriter, r *http.Request) {
	if s.rejections == nil {
		writeError(w, http.StatusNotImplemented, "rejection storage is not configured")
		return
	}
	var req rejectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" && req.Website == "" {
		writeError(w, http.StatusBadRequest, "a name or website is required")
		return
	}
	if err := s.rejections.AddRejection(r.Context(), req.Name, req.Website); err != nil {
		s.logger.Error("add rejection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store rejection")
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.manager.List()})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Get(chi.URLParam(r, "job_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

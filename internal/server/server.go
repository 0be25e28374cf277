// Package server exposes the orchestration core over HTTP: a planning
// route, an execution route, and a read-only metrics query.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/paramind/paramind/internal/aggregator"
	"github.com/paramind/paramind/internal/controller"
	"github.com/paramind/paramind/internal/executor"
	"github.com/paramind/paramind/internal/metrics"
	"github.com/paramind/paramind/pkg/models"
)

// Server wires the core components behind the HTTP boundary.
type Server struct {
	controller  *controller.Controller
	executor    *executor.Executor
	aggregator  *aggregator.Aggregator
	store       *metrics.Store
	concurrency int
}

// New creates a Server. The metrics store may be nil, in which case runs
// are not recorded and the metrics query reports an empty summary.
func New(ctrl *controller.Controller, exec *executor.Executor, agg *aggregator.Aggregator, store *metrics.Store, concurrency int) *Server {
	return &Server{
		controller:  ctrl,
		executor:    exec,
		aggregator:  agg,
		store:       store,
		concurrency: concurrency,
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/execute", s.handleExecute)
	r.Get("/metrics", s.handleMetrics)

	return r
}

// analyzeRequest is the planning request shape.
type analyzeRequest struct {
	Prompt             string `json:"prompt"`
	ModelOverride      string `json:"model_override,omitempty"`
	AgentCountOverride int    `json:"agent_count_override,omitempty"`
}

// executeRequest is the execution request shape. The plan may have been
// edited by a human after /analyze; it is re-validated before running.
type executeRequest struct {
	Mode   models.Mode  `json:"mode"`
	Plan   *models.Plan `json:"plan"`
	Prompt string       `json:"prompt"`
	// Aggregation selects how the final answer is produced: "synthesize"
	// (default) merges the responses, "best_of" keeps the strongest one.
	Aggregation string `json:"aggregation,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"system": "paramind",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	plan, err := s.controller.BuildPlan(r.Context(), req.Prompt, controller.Overrides{
		Model:      req.ModelOverride,
		AgentCount: req.AgentCountOverride,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Plan == nil {
		writeError(w, http.StatusBadRequest, "plan is required")
		return
	}
	if req.Mode != "" && req.Mode != req.Plan.Mode {
		writeError(w, http.StatusBadRequest, "mode does not match plan")
		return
	}
	switch req.Aggregation {
	case "", "synthesize", "best_of":
	default:
		writeError(w, http.StatusBadRequest, "unknown aggregation: "+req.Aggregation)
		return
	}

	// Submitted plans may carry human edits; they go through the same
	// invariant checks as freshly generated ones.
	if err := s.controller.Revalidate(req.Plan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan: "+err.Error())
		return
	}

	results, err := s.executor.Run(r.Context(), req.Plan, req.Prompt, s.concurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var agg *models.AggregatedResult
	if req.Aggregation == "best_of" {
		agg = s.aggregator.BestOf(r.Context(), req.Plan, req.Prompt, results)
	} else {
		agg = s.aggregator.Synthesize(r.Context(), req.Plan, results)
	}
	s.recordRun(req.Prompt, req.Plan, agg)

	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, metrics.Summary{})
		return
	}

	summary, err := s.store.Summarize()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recent, err := s.store.Recent(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"recent":  recent,
	})
}

// recordRun persists one completed run for the metrics query.
func (s *Server) recordRun(prompt string, plan *models.Plan, agg *models.AggregatedResult) {
	if s.store == nil {
		return
	}

	failed := 0
	for i := range agg.PerTask {
		if agg.PerTask[i].Failed() {
			failed++
		}
	}

	err := s.store.Record(metrics.Record{
		Prompt:            prompt,
		Mode:              plan.Mode,
		AgentCount:        plan.AgentCount(),
		FailedCount:       failed,
		SequentialSeconds: agg.Metrics.SequentialBaselineSeconds,
		ParallelSeconds:   agg.Metrics.ParallelSeconds,
		Speedup:           agg.Metrics.Speedup,
	})
	if err != nil {
		log.Printf("[server] failed to record run: %v", err)
	}
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/anchor"
	"github.com/liamashdown/polyquant/internal/artifacts"
	"github.com/liamashdown/polyquant/internal/catalog"
	"github.com/liamashdown/polyquant/internal/engine"
	"github.com/liamashdown/polyquant/internal/metrics"
)

// RunStore records completed runs and answers readiness probes
type RunStore interface {
	InsertRun(ctx context.Context, run *catalog.Run) error
	GetRun(ctx context.Context, runID string) (*catalog.Run, error)
	Ping(ctx context.Context) error
}

// Server serves the recommendation API
type Server struct {
	engine      *engine.Engine
	store       RunStore
	writer      artifacts.Writer
	artifactDir string
	log         *logrus.Logger
}

// New creates an API server
func New(eng *engine.Engine, store RunStore, writer artifacts.Writer, artifactDir string, log *logrus.Logger) *Server {
	return &Server{
		engine:      eng,
		store:       store,
		writer:      writer,
		artifactDir: artifactDir,
		log:         log,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/recommendations", s.handleRecommend).Methods("POST")
	r.HandleFunc("/api/search", s.handleSearch).Methods("POST")
	r.HandleFunc("/api/runs/{id}", s.handleGetRun).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ready", s.handleReady).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

type recommendRequest struct {
	Thesis string `json:"thesis"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Thesis == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "thesis is required")
		return
	}

	start := time.Now()
	rec, err := s.engine.RunRecommendation(r.Context(), req.Thesis)
	if err != nil {
		switch {
		case errors.Is(err, anchor.ErrNoAnchorFound):
			writeError(w, http.StatusUnprocessableEntity, "no_anchor_found",
				"no market matched the thesis after proxy retries")
		case errors.Is(err, engine.ErrInsufficientData):
			writeError(w, http.StatusUnprocessableEntity, "insufficient_data",
				"anchor market has too little price history")
		default:
			s.log.WithError(err).Error("Recommendation failed")
			writeError(w, http.StatusInternalServerError, "internal", "recommendation failed")
		}
		s.recordRun(r.Context(), req.Thesis, nil, err, time.Since(start))
		return
	}

	if s.writer != nil {
		if err := s.writer.Write(r.Context(), rec); err != nil {
			s.log.WithError(err).WithField("run_id", rec.RunID).Warn("Artifact write failed")
		}
	}
	s.recordRun(r.Context(), req.Thesis, rec, nil, time.Since(start))

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	res, err := s.engine.RunSmartSearch(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.log.WithError(err).Error("Search failed")
		writeError(w, http.StatusInternalServerError, "internal", "search failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.log.WithError(err).Error("Run lookup failed")
		writeError(w, http.StatusInternalServerError, "internal", "run lookup failed")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "not_found", "run not found")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		metrics.RecordHealthCheck(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		return
	}
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) recordRun(ctx context.Context, thesis string, rec *engine.Recommendation, runErr error, elapsed time.Duration) {
	run := &catalog.Run{
		Thesis:      thesis,
		Status:      "success",
		DurationSec: elapsed.Seconds(),
		CreatedTS:   time.Now().Unix(),
	}

	if runErr != nil {
		run.RunID = fmt.Sprintf("failed-%d", time.Now().UnixNano())
		run.Status = "error"
		if errors.Is(runErr, anchor.ErrNoAnchorFound) {
			run.Status = "no_anchor"
		}
	} else {
		run.RunID = rec.RunID
		run.PositionCnt = len(rec.Portfolio)
		run.ArtifactPath = filepath.Join(s.artifactDir, rec.RunID+".json")
		if rec.Anchor != nil {
			run.AnchorToken = rec.Anchor.TokenID
		}
	}

	if err := s.store.InsertRun(ctx, run); err != nil {
		s.log.WithError(err).Warn("Failed to record run")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

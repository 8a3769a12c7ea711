// Package webui serves the latest discovered models and miner statistics
// over HTTP.
package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/internal/render"
	"github.com/proc-discovery/internal/repository"
	"github.com/proc-discovery/internal/stats"
	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/utils"
)

// Server exposes discovery results over HTTP:
//
//	GET /healthz                  liveness probe
//	GET /api/streams              streams with stored results
//	GET /api/stats                per-miner runtime statistics
//	GET /api/model/{stream}       latest model as JSON node records
//	GET /api/model/{stream}/dot   latest model rendered as Graphviz DOT
type Server struct {
	addr     string
	repos    *repository.Repositories
	registry *stats.Registry
	logger   utils.Logger
	server   *http.Server
}

// NewServer creates a status server. The repository may be nil, in which
// case model endpoints report 404.
func NewServer(addr string, repos *repository.Repositories, registry *stats.Registry, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Server{
		addr:     addr,
		repos:    repos,
		registry: registry,
		logger:   logger,
	}
}

// Start begins listening in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/streams", s.handleStreams)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/model/", s.handleModel)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("web server failed: %v", err)
		}
	}()

	s.logger.Info("web server listening on %s", s.addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("web server shutdown: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	if s.repos == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	streams, err := s.repos.Result.Streams(r.Context())
	if err != nil {
		s.logger.Error("listing streams: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": errors.GetErrorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

// handleModel serves /api/model/{stream} and /api/model/{stream}/dot.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/model/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	wantDot := false
	stream := rest
	if strings.HasSuffix(rest, "/dot") {
		wantDot = true
		stream = strings.TrimSuffix(rest, "/dot")
	}
	if stream == "" || strings.Contains(stream, "/") {
		http.NotFound(w, r)
		return
	}

	if s.repos == nil {
		http.NotFound(w, r)
		return
	}

	result, err := s.repos.Result.Latest(r.Context(), stream)
	if err != nil {
		if errors.GetErrorCode(err) == errors.CodeNotFound {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("loading model for stream %s: %v", stream, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": errors.GetErrorMessage(err)})
		return
	}

	if !wantDot {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(result.NetJSON))
		return
	}

	net, err := petri.ParseJSON(result.NetJSON)
	if err != nil {
		s.logger.Error("stored model for stream %s is unreadable: %v", stream, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stored model is unreadable"})
		return
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.GenerateDotCode(net)))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

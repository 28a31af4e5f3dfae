package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/infra/storage"
)

// HealthChecker reports backend reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the operational HTTP surface: health, run status, metrics
// and a manual sync trigger.
type Server struct {
	runner     *Runner
	applicants storage.ApplicantRepository
	db         HealthChecker
	log        *slog.Logger
	server     *http.Server
}

func NewServer(
	runner *Runner,
	applicants storage.ApplicantRepository,
	db HealthChecker,
	port int,
	log *slog.Logger,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		runner:     runner,
		applicants: applicants,
		db:         db,
		log:        log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sync", s.handleSync)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := s.db.Health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusResponse struct {
	LastRun       *RunResult           `json:"last_run"`
	Notifications []string             `json:"notifications,omitempty"`
	Storage       *domain.StorageStats `json:"storage,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		LastRun:       s.runner.LastRun(),
		Notifications: s.runner.Notifications(),
	}

	stats, err := s.applicants.Stats(r.Context())
	if err != nil {
		s.log.Warn("failed to collect storage stats", "error", err)
	} else {
		resp.Storage = stats
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.runner.TriggerSync()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "sync scheduled"})
}

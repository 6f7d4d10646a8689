// Package server implements the pathminer HTTP API.
//
// Runs are submitted as a network plus solve options, executed on a shared
// [pipeline.Runner] and recorded in a [store.Store]:
//
//	POST   /v1/runs        submit a run (add "wait": true to block until done)
//	GET    /v1/runs        list runs, newest first (?limit=N)
//	GET    /v1/runs/{id}   fetch one run
//	DELETE /v1/runs/{id}   cancel a running run, or delete a finished one
//	GET    /healthz        liveness
//	GET    /metrics        Prometheus metrics, when enabled
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pathminer/pkg/pipeline"
	"github.com/matzehuels/pathminer/pkg/store"
)

// Server serves the run API.
type Server struct {
	Runner *pipeline.Runner
	Store  store.Store
	Logger *log.Logger

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// New creates a server. A nil logger logs to the default logger.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		Runner:  runner,
		Store:   st,
		Logger:  logger,
		base:    base,
		cancel:  cancel,
		running: make(map[string]context.CancelFunc),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.Logger))

	r.Get("/healthz", s.health)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/", s.listRuns)
		r.Get("/{runID}", s.getRun)
		r.Delete("/{runID}", s.deleteRun)
	})
	return r
}

// Shutdown cancels every running solve and waits until their runs are
// recorded or ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()
}

// stop cancels the run with id and reports whether it was running.
func (s *Server) stop(id string) bool {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

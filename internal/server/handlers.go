package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pathminer/pkg/cache"
	"github.com/matzehuels/pathminer/pkg/errors"
	pmio "github.com/matzehuels/pathminer/pkg/io"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/pipeline"
	"github.com/matzehuels/pathminer/pkg/search"
	"github.com/matzehuels/pathminer/pkg/store"
)

const (
	maxBodyBytes     = 32 << 20
	defaultListLimit = 50
	saveTimeout      = 10 * time.Second
)

// createRunRequest is the body of POST /v1/runs. Config fields left at zero
// take their defaults.
type createRunRequest struct {
	Network   json.RawMessage `json:"network"`
	Strategy  string          `json:"strategy"`
	Algorithm string          `json:"algorithm,omitempty"`
	Config    *search.Config  `json:"config,omitempty"`
	NoCache   bool            `json:"no_cache,omitempty"`
	Wait      bool            `json:"wait,omitempty"`
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createRun handles POST /v1/runs.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if len(req.Network) == 0 {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput, "network is required"))
		return
	}
	g, err := pmio.ReadJSON(bytes.NewReader(req.Network))
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidGraph, err, "network"))
		return
	}

	opts := pipeline.Options{
		Strategy:  pipeline.Strategy(req.Strategy),
		Algorithm: pipeline.Strategy(req.Algorithm),
		Config:    search.Defaults(),
		NoCache:   req.NoCache,
	}
	if req.Config != nil {
		opts.Config = *req.Config
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.respondError(w, err)
		return
	}

	data, err := pmio.Marshal(g)
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidGraph, err, "encode network"))
		return
	}
	run := store.NewRun(string(opts.Strategy), string(opts.Algorithm), cache.Hash(data), opts.Config)
	if err := s.Store.Save(r.Context(), run); err != nil {
		s.respondError(w, err)
		return
	}
	accepted := *run

	ctx, cancel := context.WithCancel(s.base)
	s.track(run.ID, cancel)
	s.wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.execute(ctx, cancel, run, g, opts)
	}()
	s.Logger.Info("run submitted", "id", run.ID, "strategy", opts.Label(), "vertices", g.VertexCount())

	if !req.Wait {
		respondJSON(w, http.StatusAccepted, &accepted)
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
		return
	}
	finished, err := s.Store.Get(r.Context(), run.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, finished)
}

// execute solves and records the outcome of run.
func (s *Server) execute(ctx context.Context, cancel context.CancelFunc, run *store.Run, g *network.Graph, opts pipeline.Options) {
	defer s.untrack(run.ID)
	defer cancel()

	out, err := s.Runner.Solve(ctx, g, opts)
	switch {
	case errors.Is(err, errors.ErrCodeCancelled):
		run.Finish(nil, true, nil)
	case err != nil:
		run.Finish(nil, false, err)
	default:
		run.Finish(out.Results, out.Cancelled, out.Failed)
		run.Cached = out.Cached
		if out.FormulaErr != nil {
			run.Error = errors.UserMessage(out.FormulaErr)
		}
	}

	saveCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer stop()
	if err := s.Store.Save(saveCtx, run); err != nil {
		s.Logger.Error("save run", "id", run.ID, "err", err)
		return
	}
	s.Logger.Info("run finished", "id", run.ID, "status", run.Status, "best", run.Best(), "duration", run.Duration())
}

// listRuns handles GET /v1/runs.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	runs, err := s.Store.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// getRun handles GET /v1/runs/{runID}.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if err := errors.ValidateRunID(id); err != nil {
		s.respondError(w, err)
		return
	}
	run, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// deleteRun handles DELETE /v1/runs/{runID}. A running run is cancelled and
// keeps its record with status "cancelled"; a finished run is removed.
func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if err := errors.ValidateRunID(id); err != nil {
		s.respondError(w, err)
		return
	}
	if s.stop(id) {
		s.Logger.Info("run cancelled", "id", id)
		respondJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
		return
	}
	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	respondJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormula,
		errors.ErrCodeInvalidGraph, errors.ErrCodeInvalidStrategy, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

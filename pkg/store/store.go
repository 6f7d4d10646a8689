// Package store persists solve runs.
//
// A [Run] records what was searched (strategy and configuration), when, and
// what came out. The HTTP API keeps runs in a [MemoryStore]; deployments
// that need runs to survive restarts use [MongoStore].
package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/search"
)

// ErrNotFound is wrapped by every lookup of an unknown run id.
var ErrNotFound = stderrors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Finished reports whether the run has stopped.
func (s Status) Finished() bool { return s != StatusRunning }

// Run is one solve request and its outcome.
type Run struct {
	ID          string          `json:"id" bson:"_id"`
	Strategy    string          `json:"strategy" bson:"strategy"`
	Algorithm   string          `json:"algorithm,omitempty" bson:"algorithm,omitempty"`
	NetworkHash string          `json:"network_hash" bson:"network_hash"`
	Config      search.Config   `json:"config" bson:"config"`
	Status      Status          `json:"status" bson:"status"`
	Error       string          `json:"error,omitempty" bson:"error,omitempty"`
	Cached      bool            `json:"cached" bson:"cached"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	FinishedAt  time.Time       `json:"finished_at,omitzero" bson:"finished_at,omitempty"`
	Results     []search.Result `json:"results" bson:"results"`
}

// NewRun creates a running run with a fresh id.
func NewRun(strategy, algorithm, networkHash string, cfg search.Config) *Run {
	return &Run{
		ID:          uuid.NewString(),
		Strategy:    strategy,
		Algorithm:   algorithm,
		NetworkHash: networkHash,
		Config:      cfg,
		Status:      StatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
}

// Finish records the outcome of the run.
func (r *Run) Finish(results []search.Result, cancelled bool, err error) {
	r.FinishedAt = time.Now().UTC()
	r.Results = results
	switch {
	case err != nil:
		r.Status = StatusFailed
		r.Error = errors.UserMessage(err)
	case cancelled:
		r.Status = StatusCancelled
	default:
		r.Status = StatusDone
	}
}

// Duration is the wall time of a finished run, or the time since creation
// for a running one.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.CreatedAt)
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

// Best returns the fitness of the top result, or 0.
func (r *Run) Best() int {
	if len(r.Results) == 0 {
		return 0
	}
	return r.Results[0].Fitness
}

// Store saves and loads runs.
type Store interface {
	// Save inserts or replaces run.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with id, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run, or returns an error wrapping ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases the backend.
	Close(ctx context.Context) error
}

func notFound(id string) error {
	return errors.Wrap(errors.ErrCodeNotFound, ErrNotFound, "run %q", id)
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pathminer/pkg/cache"
	"github.com/matzehuels/pathminer/pkg/errors"
	pmio "github.com/matzehuels/pathminer/pkg/io"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/observability"
	"github.com/matzehuels/pathminer/pkg/search"
	"github.com/matzehuels/pathminer/pkg/search/contract"
)

const cacheKeyType = "results"

// Runner executes solves with caching. Solves are serialized: the network
// model carries per-solve state (validity, pheromones), so at most one
// solver is active at a time and Cancel always reaches it.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	slot chan struct{}

	mu     sync.Mutex
	active *activeSolve
}

// activeSolve is what Cancel needs to stop the running solve: the token the
// solvers poll and the context formula evaluation watches.
type activeSolve struct {
	tok    *search.Token
	cancel context.CancelFunc
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		slot:   make(chan struct{}, 1),
	}
}

// Solve runs the strategy in opts over g.
//
// The returned error is non-nil only for invalid input (options, budgets
// naming unknown datasets, a network without datasets) or when ctx ends
// before the solve could start. Cancellation during the solve is reported
// through Outcome.Cancelled, and a solver panic through Outcome.Failed.
func (r *Runner) Solve(ctx context.Context, g *network.Graph, opts Options) (*Outcome, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	select {
	case r.slot <- struct{}{}:
		defer func() { <-r.slot }()
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "waiting for the active solve")
	}

	start := time.Now()
	label := opts.Label()
	out := &Outcome{}

	netData, err := pmio.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "encode network")
	}
	out.NetworkHash = cache.Hash(netData)
	out.ConfigHash = configHash(opts.Config)
	key := r.Keyer.ResultKey(out.NetworkHash, cache.ResultKeyOpts{
		Strategy:   string(opts.Strategy),
		Algorithm:  string(opts.Algorithm),
		ConfigHash: out.ConfigHash,
	})

	hooks := observability.Solve()
	hooks.OnSolveStart(ctx, label, g.VertexCount())

	if !opts.NoCache && !opts.Refresh {
		if results, ok := r.lookup(ctx, key); ok {
			out.Results, out.Cached = results, true
			out.Duration = time.Since(start)
			r.Logger.Info("results from cache", "strategy", label, "results", len(results))
			hooks.OnSolveComplete(ctx, label, len(results), best(results), out.Duration, nil)
			return out, nil
		}
	}

	solveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	tok, stop := search.WithContext(solveCtx)
	defer stop()
	r.setActive(&activeSolve{tok: tok, cancel: cancel})
	defer r.setActive(nil)

	results, err := r.run(solveCtx, g, opts, tok, out)
	if err != nil {
		hooks.OnSolveComplete(ctx, label, 0, 0, time.Since(start), err)
		return nil, err
	}
	out.Results = results
	out.Cancelled = tok.Cancelled()
	out.Duration = time.Since(start)

	switch {
	case out.Failed != nil:
		r.Logger.Error("solve failed", "strategy", label, "err", out.Failed)
		hooks.OnSolveComplete(ctx, label, 0, 0, out.Duration, out.Failed)
		return out, nil
	case out.Cancelled:
		r.Logger.Warn("solve cancelled", "strategy", label, "results", len(results), "duration", out.Duration)
		hooks.OnSolveCancelled(ctx, label)
	default:
		r.Logger.Info("solve finished",
			"strategy", label,
			"results", len(results),
			"best", best(results),
			"duration", out.Duration)
	}
	hooks.OnSolveComplete(ctx, label, len(results), best(results), out.Duration, nil)

	if !opts.NoCache && !out.Cancelled {
		r.store(ctx, key, results, opts.CacheTTL)
	}
	return out, nil
}

// run prepares the constraints and dispatches to the solver. A panic inside
// the solver is recovered into out.Failed.
func (r *Runner) run(ctx context.Context, g *network.Graph, opts Options, tok *search.Token, out *Outcome) (results []search.Result, err error) {
	c, err := search.PrepareContext(ctx, g, opts.Config)
	if err != nil {
		return nil, err
	}
	if ferr := c.FormulaErr(); ferr != nil {
		out.FormulaErr = ferr
		r.Logger.Warn("combine formula is never satisfied", "formula", opts.Config.Formula, "err", ferr)
	}

	defer func() {
		if v := recover(); v != nil {
			observability.Solve().OnSolvePanic(context.Background(), opts.Label(), v)
			out.Failed = errors.FromPanic(v)
			results, err = nil, nil
		}
	}()

	sopts := search.Options{Config: opts.Config, Token: tok, Logger: r.Logger}
	r.Logger.Debug("solve started",
		"strategy", opts.Label(),
		"vertices", g.VertexCount(),
		"edges", g.EdgeCount(),
		"valid", g.ValidCount(),
		"k", opts.Config.K)

	switch opts.Strategy {
	case StrategyGreedy:
		return search.NewGreedy(c, sopts).Solve(), nil
	case StrategyOptimal:
		return search.NewOptimal(c, sopts).Solve(), nil
	case StrategyACO:
		return search.NewColony(c, sopts).Solve(), nil
	case StrategyContracted:
		cg, err := contract.Contract(g)
		if err != nil {
			return nil, err
		}
		valid, exceptions := cg.Counts()
		r.Logger.Debug("contracted network", "clusters", cg.Len(), "valid", valid, "exceptions", exceptions)
		switch opts.Algorithm {
		case StrategyOptimal:
			return contract.NewOptimal(cg, sopts).Solve(), nil
		case StrategyACO:
			return contract.NewColony(cg, sopts).Solve(), nil
		default:
			return contract.NewGreedy(cg, sopts).Solve(), nil
		}
	}
	panic(fmt.Sprintf("pipeline: unhandled strategy %q", opts.Strategy))
}

// Cancel stops the active solve, if any. Solve then returns the best
// results known so far.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.tok.Cancel()
		r.active.cancel()
	}
}

// Busy reports whether a solve is running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Runner) setActive(a *activeSolve) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = a
}

func (r *Runner) lookup(ctx context.Context, key string) ([]search.Result, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if !hit {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	var results []search.Result
	if err := json.Unmarshal(data, &results); err != nil {
		r.Logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		_ = r.Cache.Delete(ctx, key)
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	hooks.OnCacheHit(ctx, cacheKeyType)
	return results, true
}

func (r *Runner) store(ctx context.Context, key string, results []search.Result, ttl time.Duration) {
	data, err := json.Marshal(results)
	if err != nil {
		r.Logger.Warn("encode results for cache", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// configHash hashes the parts of cfg that influence results. Worker count
// does not: solves are deterministic for a fixed seed at any pool size.
func configHash(cfg search.Config) string {
	cfg.Workers = 0
	data, _ := json.Marshal(cfg)
	return cache.Hash(data)
}

func best(results []search.Result) int {
	if len(results) == 0 {
		return 0
	}
	return results[0].Fitness
}

// Package pipeline dispatches solve requests to the search strategies.
//
// The [Runner] is the single entry point used by the CLI and the HTTP API.
// It picks a strategy per request, owns the active solver so that [Runner.Cancel]
// reaches it, caches result sets, and guarantees that a failing solver
// degrades to an empty result set instead of taking the caller down.
//
// # Strategies
//
//   - greedy: one greedy candidate per seed vertex, refined by local search
//   - optimal: branch and bound seeded with the greedy best
//   - aco: ant colony optimisation from elite seeds
//   - contracted: one of the above on the cluster-contracted network
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	out, err := runner.Solve(ctx, g, pipeline.Options{
//	    Strategy: pipeline.StrategyOptimal,
//	    Config:   cfg,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, r := range out.Results {
//	    fmt.Println(r.Fitness, r.Vertices)
//	}
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/pathminer/pkg/cache"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/search"
)

// Strategy names a search strategy.
type Strategy string

const (
	StrategyGreedy     Strategy = "greedy"
	StrategyOptimal    Strategy = "optimal"
	StrategyACO        Strategy = "aco"
	StrategyContracted Strategy = "contracted"
)

// DefaultStrategy is used when Options.Strategy is empty.
const DefaultStrategy = StrategyGreedy

// DefaultAlgorithm is the contracted algorithm used when none is given.
const DefaultAlgorithm = StrategyGreedy

// Strategies lists every strategy in display order.
var Strategies = []Strategy{StrategyGreedy, StrategyOptimal, StrategyACO, StrategyContracted}

// ParseStrategy parses a strategy name case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Strategies {
		if st == known {
			return st, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidStrategy,
		"unknown strategy %q (must be one of: greedy, optimal, aco, contracted)", s)
}

// ValidateAlgorithm checks a contracted algorithm name.
func ValidateAlgorithm(a Strategy) error {
	switch a {
	case StrategyGreedy, StrategyOptimal, StrategyACO:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidStrategy,
		"unknown contracted algorithm %q (must be one of: greedy, optimal, aco)", a)
}

// Options selects what to run.
type Options struct {
	Strategy Strategy `json:"strategy"`
	// Algorithm is the solver run on the contracted network. Only used with
	// StrategyContracted.
	Algorithm Strategy      `json:"algorithm,omitempty"`
	Config    search.Config `json:"config"`

	// NoCache bypasses the cache for both lookup and store.
	NoCache bool `json:"no_cache,omitempty"`
	// Refresh skips the lookup but stores the fresh result.
	Refresh bool `json:"refresh,omitempty"`
	// CacheTTL overrides cache.DefaultTTL.
	CacheTTL time.Duration `json:"-"`
}

// ValidateAndSetDefaults applies defaults and checks the options.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	st, err := ParseStrategy(string(o.Strategy))
	if err != nil {
		return err
	}
	o.Strategy = st
	if o.Strategy == StrategyContracted {
		if o.Algorithm == "" {
			o.Algorithm = DefaultAlgorithm
		}
		if err := ValidateAlgorithm(o.Algorithm); err != nil {
			return err
		}
	} else {
		o.Algorithm = ""
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	o.Config.SetDefaults()
	return o.Config.Validate()
}

// Label is the strategy as reported in logs and metrics, for example
// "contracted/optimal".
func (o Options) Label() string {
	if o.Strategy == StrategyContracted {
		return fmt.Sprintf("%s/%s", o.Strategy, o.Algorithm)
	}
	return string(o.Strategy)
}

// Outcome is what a solve produced.
type Outcome struct {
	Results []search.Result

	// Cancelled is set when the solve stopped on request; Results then hold
	// the best candidates known at that point.
	Cancelled bool
	// Cached is set when Results came from the cache.
	Cached bool
	// Failed holds the recovered failure when the solver panicked. Results
	// are empty in that case.
	Failed error
	// FormulaErr is set when the CUSTOM formula could not be compiled and no
	// vertex could satisfy it.
	FormulaErr error

	NetworkHash string
	ConfigHash  string
	Duration    time.Duration
}

// Best returns the top result, or false if there is none.
func (o *Outcome) Best() (search.Result, bool) {
	if len(o.Results) == 0 {
		return search.Result{}, false
	}
	return o.Results[0], true
}

package search

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/network"
)

// =============================================================================
// Enumerations
// =============================================================================

// LocalSearchMode selects how a finished candidate is refined.
type LocalSearchMode int

const (
	// LocalSearchOff disables refinement.
	LocalSearchOff LocalSearchMode = iota
	// LocalSearchGreedy1 re-grows with single-vertex lookahead.
	LocalSearchGreedy1
	// LocalSearchGreedy2 re-grows with vertex-pair lookahead.
	LocalSearchGreedy2
	// LocalSearchOptimal re-grows with branch and bound.
	LocalSearchOptimal
)

var localSearchNames = []string{"OFF", "GREEDY1", "GREEDY2", "OPTIMAL"}

func (m LocalSearchMode) String() string { return enumName(localSearchNames, int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m LocalSearchMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *LocalSearchMode) UnmarshalText(b []byte) error {
	return parseEnum(localSearchNames, "local search mode", b, (*int)(m))
}

// BoundKind selects the upper bound used to prune branch and bound.
type BoundKind int

const (
	// BoundNone never prunes; optimal mode is an exhaustive search.
	BoundNone BoundKind = iota
	// BoundReachable bounds a branch by its size plus every vertex still
	// reachable through non-excluded vertices.
	BoundReachable
)

var boundNames = []string{"NONE", "REACHABLE"}

func (b BoundKind) String() string { return enumName(boundNames, int(b)) }

// MarshalText implements encoding.TextMarshaler.
func (b BoundKind) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BoundKind) UnmarshalText(text []byte) error {
	return parseEnum(boundNames, "bound", text, (*int)(b))
}

// Tradeoff selects how pheromone and desirability are combined into a
// selection weight.
type Tradeoff int

const (
	// Multiplicative weighs a candidate by tau^alpha * eta^beta.
	Multiplicative Tradeoff = iota
	// Additive weighs a candidate by alpha*tau + beta*eta.
	Additive
)

var tradeoffNames = []string{"MULTIPLICATIVE", "ADDITIVE"}

func (t Tradeoff) String() string { return enumName(tradeoffNames, int(t)) }

// MarshalText implements encoding.TextMarshaler.
func (t Tradeoff) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tradeoff) UnmarshalText(b []byte) error {
	return parseEnum(tradeoffNames, "tradeoff", b, (*int)(t))
}

// RhoDecay is the schedule applied to the evaporation rate over iterations.
type RhoDecay int

const (
	// RhoConstant keeps rho fixed.
	RhoConstant RhoDecay = iota
	// RhoLinear shrinks rho linearly towards zero at MaxIterations.
	RhoLinear
	// RhoExponential shrinks rho by exp(-t/MaxIterations).
	RhoExponential
)

var rhoDecayNames = []string{"CONSTANT", "LINEAR", "EXPONENTIAL"}

func (r RhoDecay) String() string { return enumName(rhoDecayNames, int(r)) }

// MarshalText implements encoding.TextMarshaler.
func (r RhoDecay) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RhoDecay) UnmarshalText(b []byte) error {
	return parseEnum(rhoDecayNames, "rho decay", b, (*int)(r))
}

func enumName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%d", i)
}

func parseEnum(names []string, what string, b []byte, dst *int) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range names {
		if n == s {
			*dst = i
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidConfig, "unknown %s %q (must be one of: %s)",
		what, string(b), strings.Join(names, ", "))
}

// =============================================================================
// Config
// =============================================================================

// ACOConfig holds the ant colony hyper-parameters.
type ACOConfig struct {
	Alpha    float64  `json:"alpha"`
	Beta     float64  `json:"beta"`
	Rho      float64  `json:"rho"`
	RhoDecay RhoDecay `json:"rho_decay"`
	TauMin   float64  `json:"tau_min"`
	Tradeoff Tradeoff `json:"tradeoff"`

	// StartNodes is the number of elite seeds a colony is started from.
	StartNodes int `json:"start_nodes"`
	// MaxIterations caps the number of iterations per seed.
	MaxIterations int `json:"max_iterations"`
	// MaxStagnation stops a seed after this many iterations without
	// improvement.
	MaxStagnation int `json:"max_stagnation"`
	// SolutionsPerIteration is the batch size in iteration-best mode.
	SolutionsPerIteration int `json:"solutions_per_iteration"`
	// IterationBest reinforces each iteration's best solution (parallel
	// batches). When false, the global best is reinforced after every
	// single construction.
	IterationBest bool `json:"iteration_best"`
}

// Config is the engine configuration shared by every strategy.
type Config struct {
	// Budgets maps dataset names to their case-exception budget (L).
	// Datasets without an entry use DefaultBudget.
	Budgets       map[string]int `json:"budgets,omitempty"`
	DefaultBudget int            `json:"default_budget"`
	// K is the number of exception vertices exempt from all budgets.
	K int `json:"k"`

	Combine   combine.Rule      `json:"combine"`
	Formula   string            `json:"formula,omitempty"`
	Heuristic network.Heuristic `json:"heuristic"`

	LocalSearch LocalSearchMode `json:"local_search"`
	Bound       BoundKind       `json:"bound"`
	ACO         ACOConfig       `json:"aco"`

	Workers    int    `json:"workers"`
	Seed       uint64 `json:"seed"`
	MaxResults int    `json:"max_results"`
}

// Default configuration values.
const (
	DefaultAlpha                 = 1.0
	DefaultBeta                  = 1.0
	DefaultRho                   = 0.1
	DefaultTauMin                = 0.01
	DefaultStartNodes            = 5
	DefaultMaxIterations         = 200
	DefaultMaxStagnation         = 50
	DefaultSolutionsPerIteration = 10
	DefaultMaxResults            = 20
)

// DefaultWorkers returns the pool size used when Workers is unset: the
// number of processors Go is configured to use.
func DefaultWorkers() int { return runtime.GOMAXPROCS(0) }

// Defaults returns a Config with every field set to its default.
func Defaults() Config {
	var c Config
	c.ACO.Alpha = DefaultAlpha
	c.ACO.Beta = DefaultBeta
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued numeric fields with defaults. Enumerations
// default to their zero value (OR, AVERAGE, OFF, NONE, MULTIPLICATIVE,
// CONSTANT). Alpha and Beta are left alone: zero is a meaningful weight, so
// their defaults come only from [Defaults].
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers()
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	a := &c.ACO
	if a.Rho == 0 {
		a.Rho = DefaultRho
	}
	if a.TauMin == 0 {
		a.TauMin = DefaultTauMin
	}
	if a.StartNodes == 0 {
		a.StartNodes = DefaultStartNodes
	}
	if a.MaxIterations == 0 {
		a.MaxIterations = DefaultMaxIterations
	}
	if a.MaxStagnation == 0 {
		a.MaxStagnation = DefaultMaxStagnation
	}
	if a.SolutionsPerIteration == 0 {
		a.SolutionsPerIteration = DefaultSolutionsPerIteration
	}
}

// Validate checks ranges. It does not check budgets against a graph; that
// happens in [Prepare].
func (c Config) Validate() error {
	switch {
	case c.K < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "k must be >= 0, got %d", c.K)
	case c.DefaultBudget < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "default budget must be >= 0, got %d", c.DefaultBudget)
	case c.Workers < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be >= 1, got %d", c.Workers)
	case c.MaxResults < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max results must be >= 1, got %d", c.MaxResults)
	}
	for name, l := range c.Budgets {
		if l < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "budget for %s must be >= 0, got %d", name, l)
		}
	}
	return c.ACO.validate()
}

func (a ACOConfig) validate() error {
	switch {
	case a.Alpha < 0 || a.Beta < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "alpha and beta must be >= 0")
	case !(a.Rho > 0 && a.Rho < 1):
		return errors.New(errors.ErrCodeInvalidConfig, "rho must be in (0, 1), got %g", a.Rho)
	case !(a.TauMin > 0 && a.TauMin < 0.5):
		return errors.New(errors.ErrCodeInvalidConfig, "tau min must be in (0, 0.5), got %g", a.TauMin)
	case a.StartNodes < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "start nodes must be >= 1")
	case a.MaxIterations < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max iterations must be >= 1")
	case a.MaxStagnation < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max stagnation must be >= 1")
	case a.SolutionsPerIteration < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "solutions per iteration must be >= 1")
	}
	return nil
}

// Weight combines an effective pheromone tau with a desirability eta using
// the configured tradeoff.
func (a ACOConfig) Weight(tau, eta float64) float64 {
	if a.Tradeoff == Additive {
		return a.Alpha*tau + a.Beta*eta
	}
	return math.Pow(tau, a.Alpha) * math.Pow(eta, a.Beta)
}

// RhoAt returns the evaporation rate for iteration t (1-based).
func (a ACOConfig) RhoAt(t int) float64 {
	switch a.RhoDecay {
	case RhoLinear:
		return a.Rho * (1 - float64(t)/float64(a.MaxIterations+1))
	case RhoExponential:
		return a.Rho * math.Exp(-float64(t)/float64(a.MaxIterations))
	default:
		return a.Rho
	}
}

// Options carries what every solver needs besides the problem itself.
type Options struct {
	Config Config
	Token  *Token
	Logger *log.Logger
}

// SetDefaults fills the config defaults and provides a fresh token and a
// discard logger when none are set.
func (o *Options) SetDefaults() {
	o.Config.SetDefaults()
	if o.Token == nil {
		o.Token = NewToken()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

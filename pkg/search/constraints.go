package search

import (
	"context"
	"sort"
	"strings"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/network"
)

// Constraints is the immutable problem every candidate of one solve is
// checked against: the refreshed graph, the compiled combine predicate, the
// per-dataset budgets and the exception cap K.
type Constraints struct {
	g       *network.Graph
	pred    *combine.Predicate
	budgets []int
	k       int

	// rank orders vertices by penalty desc, then id asc; lower is more
	// expensive.
	rank []int

	formulaErr error
}

// Prepare is PrepareContext with a background context.
func Prepare(g *network.Graph, cfg Config) (*Constraints, error) {
	return PrepareContext(context.Background(), g, cfg)
}

// PrepareContext compiles the combine rule for g's datasets, refreshes g and
// returns the resulting constraints. ctx bounds the evaluation of a CUSTOM
// formula.
//
// A CUSTOM formula that cannot be compiled does not fail Prepare: the
// predicate is never satisfied and the problem is reported by
// [Constraints.FormulaErr]. Budgets naming unknown datasets, an invalid
// configuration or a graph without datasets are errors.
func PrepareContext(ctx context.Context, g *network.Graph, cfg Config) (*Constraints, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	names := g.DatasetNames()
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph has no expression datasets")
	}

	budgets := make([]int, len(names))
	for i := range budgets {
		budgets[i] = cfg.DefaultBudget
	}
	var unknown []string
	for name, l := range cfg.Budgets {
		i := sort.SearchStrings(names, name)
		if i == len(names) || names[i] != name {
			unknown = append(unknown, name)
			continue
		}
		budgets[i] = l
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.New(errors.ErrCodeInvalidConfig, "budgets reference unknown datasets: %s",
			strings.Join(unknown, ", "))
	}

	pred, formulaErr := combine.CompileContext(ctx, cfg.Combine, cfg.Formula, names)
	if formulaErr != nil && !errors.Is(formulaErr, errors.ErrCodeInvalidFormula) {
		return nil, formulaErr
	}
	if err := g.Refresh(network.RefreshOptions{Predicate: pred, Heuristic: cfg.Heuristic}); err != nil {
		return nil, err
	}
	return NewConstraints(g, pred, budgets, cfg.K, formulaErr), nil
}

// NewConstraints builds constraints over an already refreshed graph.
// budgets is indexed like g.DatasetNames().
func NewConstraints(g *network.Graph, pred *combine.Predicate, budgets []int, k int, formulaErr error) *Constraints {
	n := g.VertexCount()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		va, vb := order[a], order[b]
		pa, pb := g.Penalty(va), g.Penalty(vb)
		if pa != pb {
			return pa > pb
		}
		return g.ID(va) < g.ID(vb)
	})
	rank := make([]int, n)
	for r, v := range order {
		rank[v] = r
	}
	return &Constraints{
		g:          g,
		pred:       pred,
		budgets:    budgets,
		k:          k,
		rank:       rank,
		formulaErr: formulaErr,
	}
}

// Graph returns the underlying network.
func (c *Constraints) Graph() *network.Graph { return c.g }

// K returns the exception cap.
func (c *Constraints) K() int { return c.k }

// Budget returns the case-exception budget of dataset d.
func (c *Constraints) Budget(d int) int { return c.budgets[d] }

// Predicate returns the compiled combine predicate.
func (c *Constraints) Predicate() *combine.Predicate { return c.pred }

// FormulaErr returns the CUSTOM formula compilation error, if any.
func (c *Constraints) FormulaErr() error { return c.formulaErr }

// Outranks reports whether u is more expensive than v in the exemption
// order.
func (c *Constraints) Outranks(u, v int) bool { return c.rank[u] < c.rank[v] }

// SeedFeasible reports whether v alone is admissible with no exemptions,
// i.e. whether v may start a candidate.
func (c *Constraints) SeedFeasible(v int) bool {
	var mask uint64
	for d, miss := range c.g.NonDERow(v) {
		if miss <= c.budgets[d] {
			mask |= 1 << d
		}
	}
	return c.pred.Eval(mask)
}

// Seeds returns every seed-feasible vertex in index order.
func (c *Constraints) Seeds() []int {
	var seeds []int
	for v := range c.g.VertexCount() {
		if c.SeedFeasible(v) {
			seeds = append(seeds, v)
		}
	}
	return seeds
}

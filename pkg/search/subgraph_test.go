package search

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubgraphPathExemption(t *testing.T) {
	c := pathFixture().prepare(t, Config{K: 1, DefaultBudget: 1})
	s := NewSubgraph(c)

	for _, v := range []int{0, 1, 2, 3, 4} {
		require.True(t, s.CanAdd(v), "vertex %d", v)
		s.Add(v)
	}
	assert.Equal(t, []int{2}, s.Exempt(), "most expensive admitted vertex is exempt")
	assert.Equal(t, 1, s.Usage(0))
	assert.Equal(t, []int{2}, s.Exceptions())

	// 5 would take 2's exemption and charge 2's case, exceeding the budget.
	assert.False(t, s.CanAdd(5))
	assert.Panics(t, func() { s.Add(5) })
	assert.False(t, s.CanAdd(3), "members cannot be re-added")
}

func TestSubgraphFrontier(t *testing.T) {
	c := pathFixture().prepare(t, Config{K: 1, DefaultBudget: 1})
	s := NewSubgraph(c)
	s.Add(2)
	assert.Equal(t, []int{1, 3}, s.Frontier())
	s.Add(3)
	assert.Equal(t, []int{1, 4}, s.Frontier())
}

func TestSubgraphWithout(t *testing.T) {
	c := pathFixture().prepare(t, Config{K: 1, DefaultBudget: 1})
	s := NewSubgraph(c)
	for _, v := range []int{1, 2, 3, 4} {
		s.Add(v)
	}

	r := s.Without(2)
	assert.Equal(t, []int{1, 3, 4}, r.Order())
	assert.False(t, r.Connected())
	assert.Equal(t, []int{3}, r.Exempt(), "exemption moves to the next most expensive vertex")
	assert.Equal(t, 0, r.Usage(0))

	r = s.Without(4)
	assert.True(t, r.Connected())
	assert.Equal(t, 3, r.Fitness())
	assert.Equal(t, 4, s.Fitness(), "original is untouched")
}

func TestSubgraphEqualOverlaps(t *testing.T) {
	c := pathFixture().prepare(t, Config{K: 1, DefaultBudget: 1})
	a, b := NewSubgraph(c), NewSubgraph(c)
	a.Add(0)
	a.Add(1)
	b.Add(1)
	b.Add(0)
	assert.True(t, a.Equal(b), "equality ignores admission order")
	assert.True(t, a.Overlaps(b))

	d := NewSubgraph(c)
	d.Add(4)
	assert.False(t, a.Equal(d))
	assert.False(t, a.Overlaps(d))

	cl := a.Clone()
	cl.Add(2)
	assert.Equal(t, 2, a.Fitness())
	assert.Equal(t, 3, cl.Fitness())
}

func TestSubgraphBudgetInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, rule := range rules {
		for trial := range 30 {
			f := randomFixture(rng, 14, 3, 0.2, 3)
			cfg := Config{
				K:             rng.IntN(3),
				DefaultBudget: rng.IntN(5),
				Combine:       rule.rule,
				Formula:       rule.formula,
			}
			c := f.prepare(t, cfg)

			for _, seed := range c.Seeds() {
				s := NewSubgraph(c)
				s.Add(seed)
				for {
					var cands []int
					for _, u := range s.Frontier() {
						if s.CanAdd(u) {
							cands = append(cands, u)
						}
					}
					if len(cands) == 0 {
						break
					}
					s.Add(cands[rng.IntN(len(cands))])

					members := slices.Clone(s.Order())
					exempt := topK(c, members)
					require.True(t, slices.Equal(exempt, s.Exempt()),
						"%s trial %d: exempt %v, want %v", rule.name, trial, s.Exempt(), exempt)

					var mask uint64
					for d := range c.Graph().DatasetCount() {
						used := 0
						for _, v := range members {
							if !slices.Contains(exempt, v) {
								used += c.Graph().NonDE(v, d)
							}
						}
						require.Equal(t, used, s.Usage(d))
						if used <= c.Budget(d) {
							mask |= 1 << d
						}
					}
					require.True(t, c.Predicate().Eval(mask),
						"%s trial %d: predicate violated over within-budget datasets", rule.name, trial)
					require.True(t, connected(c.Graph(), members))
				}
			}
		}
	}
}

func TestPrepareErrors(t *testing.T) {
	g := pathFixture().build(t)

	_, err := Prepare(g, Config{Budgets: map[string]int{"nope": 1}, Workers: 1, MaxResults: 1, ACO: validACO()})
	assert.Error(t, err)

	_, err = Prepare(g, Config{K: -1})
	assert.Error(t, err)
}

func TestPrepareBrokenFormulaIsNeverSatisfied(t *testing.T) {
	cfg := Defaults()
	cfg.Combine = rules[2].rule
	cfg.Formula = "d0 &&"
	c, err := Prepare(pathFixture().build(t), cfg)
	require.NoError(t, err)
	require.Error(t, c.FormulaErr())
	assert.Empty(t, c.Seeds())
	assert.Equal(t, 0, c.Graph().ValidCount())
}

func validACO() ACOConfig {
	var c Config
	c.SetDefaults()
	return c.ACO
}

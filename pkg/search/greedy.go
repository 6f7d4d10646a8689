package search

import (
	"math/rand/v2"
	"time"
)

// Greedy builds one candidate per seed vertex by always admitting the
// cheapest admissible frontier vertex, then refines it with local search.
type Greedy struct {
	c    *Constraints
	opts Options
	ls   *LocalSearch
}

// NewGreedy creates a greedy builder.
func NewGreedy(c *Constraints, opts Options) *Greedy {
	opts.SetDefaults()
	gr := &Greedy{c: c, opts: opts}
	gr.ls = newLocalSearch(c, opts, gr)
	return gr
}

// BuildFrom grows a candidate from seed. It returns nil if seed cannot start
// a candidate.
func (gr *Greedy) BuildFrom(seed int, rng *rand.Rand) *Subgraph {
	if !gr.c.SeedFeasible(seed) {
		return nil
	}
	s := NewSubgraph(gr.c)
	s.Add(seed)
	gr.grow(s, rng, nil)
	return s
}

// grow admits cheapest frontier vertices until none is admissible. Vertices
// in excluded are never admitted. Ties are broken uniformly at random.
func (gr *Greedy) grow(s *Subgraph, rng *rand.Rand, excluded Bitset) {
	for !gr.opts.Token.Cancelled() {
		if !gr.step(s, rng, excluded) {
			return
		}
	}
}

// step admits one cheapest admissible frontier vertex and reports whether
// one was found.
func (gr *Greedy) step(s *Subgraph, rng *rand.Rand, excluded Bitset) bool {
	best, ties, pick := 0, 0, -1
	for _, u := range s.Frontier() {
		if excluded != nil && excluded.Has(u) {
			continue
		}
		if !s.CanAdd(u) {
			continue
		}
		p := gr.c.g.Penalty(u)
		switch {
		case pick < 0 || p < best:
			best, ties, pick = p, 1, u
		case p == best:
			ties++
			if rng.IntN(ties) == 0 {
				pick = u
			}
		}
	}
	if pick < 0 {
		return false
	}
	s.Add(pick)
	return true
}

// solve builds and refines one candidate per seed on the worker pool.
// The slice is indexed like seeds; entries are nil for skipped seeds.
func (gr *Greedy) solve(seeds []int) []*Subgraph {
	out := make([]*Subgraph, len(seeds))
	cfg := gr.opts.Config
	ForEach(gr.opts.Token, cfg.Workers, len(seeds), func(i int) {
		rng := NewRand(cfg.Seed, uint64(seeds[i]))
		s := gr.BuildFrom(seeds[i], rng)
		if s == nil {
			return
		}
		out[i] = gr.ls.Improve(s, rng)
	})
	return out
}

// best returns the fittest candidate over every seed, or nil.
func (gr *Greedy) best() *Subgraph {
	var best *Subgraph
	for _, s := range gr.solve(gr.c.Seeds()) {
		if s != nil && (best == nil || s.Fitness() > best.Fitness()) {
			best = s
		}
	}
	return best
}

// Solve builds one refined candidate per seed-feasible vertex and returns
// them ranked. On cancellation the candidates finished so far are returned.
func (gr *Greedy) Solve() []Result {
	start := time.Now()
	seeds := gr.c.Seeds()
	gr.opts.Logger.Debug("greedy started", "seeds", len(seeds), "workers", gr.opts.Config.Workers)

	var results []Result
	for _, s := range gr.solve(seeds) {
		if s != nil {
			results = append(results, s.Result())
		}
	}
	gr.opts.Logger.Debug("greedy finished",
		"results", len(results),
		"cancelled", gr.opts.Token.Cancelled(),
		"duration", time.Since(start))
	return Rank(results, gr.opts.Config.MaxResults)
}

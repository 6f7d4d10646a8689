package search

import "math/rand/v2"

// LocalSearch refines a finished candidate: for every admitted vertex n it
// rebuilds the candidate without n, skips the attempt if the remainder is
// disconnected, re-grows the remainder (never re-admitting n) and keeps the
// fittest outcome. The input is returned unchanged unless a strictly fitter
// candidate is found.
type LocalSearch struct {
	c    *Constraints
	opts Options
	gr   *Greedy
}

func newLocalSearch(c *Constraints, opts Options, gr *Greedy) *LocalSearch {
	return &LocalSearch{c: c, opts: opts, gr: gr}
}

// NewLocalSearch creates a local search engine using opts.Config.LocalSearch
// as its mode.
func NewLocalSearch(c *Constraints, opts Options) *LocalSearch {
	return NewGreedy(c, opts).ls
}

// Mode returns the configured mode.
func (ls *LocalSearch) Mode() LocalSearchMode { return ls.opts.Config.LocalSearch }

// Improve returns the fittest candidate reachable by one remove-and-regrow
// step from s, or s itself.
func (ls *LocalSearch) Improve(s *Subgraph, rng *rand.Rand) *Subgraph {
	mode := ls.opts.Config.LocalSearch
	if mode == LocalSearchOff || s.Len() <= 1 {
		return s
	}
	best := s
	excluded := NewBitset(ls.c.g.VertexCount())
	for _, n := range s.Order() {
		if ls.opts.Token.Cancelled() {
			break
		}
		r := s.Without(n)
		if r.Len() == 0 || !r.Connected() {
			continue
		}
		excluded.Set(n)
		r = ls.regrow(mode, r, rng, excluded)
		excluded.Clear(n)
		if r.Fitness() > best.Fitness() {
			best = r
		}
	}
	return best
}

func (ls *LocalSearch) regrow(mode LocalSearchMode, r *Subgraph, rng *rand.Rand, excluded Bitset) *Subgraph {
	switch mode {
	case LocalSearchGreedy2:
		ls.growPairs(r, rng, excluded)
		return r
	case LocalSearchOptimal:
		return extend(ls.c, ls.opts, r, excluded)
	default:
		ls.gr.grow(r, rng, excluded)
		return r
	}
}

// growPairs admits, at every step, the admissible frontier vertex u together
// with its cheapest admissible unclaimed neighbor w, choosing the pair with
// the lowest joint penalty. When no admissible pair exists the cheapest
// single vertex is admitted instead.
func (ls *LocalSearch) growPairs(s *Subgraph, rng *rand.Rand, excluded Bitset) {
	g := ls.c.g
	for !ls.opts.Token.Cancelled() {
		bestCost, ties := 0, 0
		var pick *Subgraph
		for _, u := range s.Frontier() {
			if excluded.Has(u) || !s.CanAdd(u) {
				continue
			}
			t := s.Clone()
			t.Add(u)
			w, wp := -1, 0
			for _, x := range g.Neighbors(u) {
				if t.Contains(x) || excluded.Has(x) || !t.CanAdd(x) {
					continue
				}
				if p := g.Penalty(x); w < 0 || p < wp {
					w, wp = x, p
				}
			}
			if w < 0 {
				continue
			}
			t.Add(w)
			cost := g.Penalty(u) + wp
			switch {
			case pick == nil || cost < bestCost:
				bestCost, ties, pick = cost, 1, t
			case cost == bestCost:
				ties++
				if rng.IntN(ties) == 0 {
					pick = t
				}
			}
		}
		if pick == nil {
			if !ls.gr.step(s, rng, excluded) {
				return
			}
			continue
		}
		*s = *pick
	}
}

package search

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"
)

// Colony is the ant colony optimiser.
//
// For each elite seed the graph pheromones are reset and candidates are
// built by weighted roulette over the admissible frontier. In global-best
// mode one candidate is built per iteration and the best candidate so far is
// reinforced after each one. In iteration-best mode a batch of candidates is
// built on the worker pool, the batch is awaited, and only its best
// candidate is refined and reinforced.
type Colony struct {
	c    *Constraints
	opts Options
	ls   *LocalSearch
}

// NewColony creates an ant colony optimiser.
func NewColony(c *Constraints, opts Options) *Colony {
	opts.SetDefaults()
	return &Colony{c: c, opts: opts, ls: NewLocalSearch(c, opts)}
}

// EliteSeeds returns the seed-feasible vertices with the highest mean
// neighbor desirability 1/(penalty+1), best first, at most StartNodes.
func (a *Colony) EliteSeeds() []int {
	g := a.c.g
	seeds := a.c.Seeds()
	score := make(map[int]float64, len(seeds))
	for _, v := range seeds {
		nb := g.Neighbors(v)
		if len(nb) == 0 {
			continue
		}
		var sum float64
		for _, u := range nb {
			sum += desirability(g.Penalty(u))
		}
		score[v] = sum / float64(len(nb))
	}
	slices.SortStableFunc(seeds, func(x, y int) int {
		return cmp.Compare(score[y], score[x])
	})
	return seeds[:min(len(seeds), a.opts.Config.ACO.StartNodes)]
}

func desirability(penalty int) float64 { return 1 / float64(penalty+1) }

// Solve runs the colony from every elite seed and returns the best
// candidate per seed, ranked.
func (a *Colony) Solve() []Result {
	start := time.Now()
	var results []Result
	for _, seed := range a.EliteSeeds() {
		if a.opts.Token.Cancelled() {
			break
		}
		a.c.g.ResetPheromones(0)
		var best *Subgraph
		if a.opts.Config.ACO.IterationBest {
			best = a.iterationBest(seed)
		} else {
			best = a.globalBest(seed)
		}
		if best != nil {
			a.opts.Logger.Debug("colony seed finished", "seed", a.c.g.ID(seed), "fitness", best.Fitness())
			results = append(results, best.Result())
		}
	}
	a.opts.Logger.Debug("colony finished",
		"results", len(results),
		"cancelled", a.opts.Token.Cancelled(),
		"duration", time.Since(start))
	return Rank(results, a.opts.Config.MaxResults)
}

func (a *Colony) globalBest(seed int) *Subgraph {
	cfg := a.opts.Config
	ph := newPheromones(a.c.g, cfg.ACO)
	var best *Subgraph
	stagnant := 0
	for t := 1; t <= cfg.ACO.MaxIterations && stagnant < cfg.ACO.MaxStagnation; t++ {
		if a.opts.Token.Cancelled() {
			break
		}
		ph.setIteration(t)
		rng := NewRand(cfg.Seed, uint64(seed), uint64(t), 0)
		s := a.ls.Improve(a.construct(ph, seed, rng, t), rng)
		if best == nil || s.Fitness() > best.Fitness() {
			best, stagnant = s, 0
		} else {
			stagnant++
		}
		ph.reinforce(best, ph.rho, t)
	}
	return best
}

func (a *Colony) iterationBest(seed int) *Subgraph {
	cfg := a.opts.Config
	n := cfg.ACO.SolutionsPerIteration
	ph := newPheromones(a.c.g, cfg.ACO)
	batch := make([]*Subgraph, n)
	var best *Subgraph
	stagnant := 0
	for t := 1; t <= cfg.ACO.MaxIterations && stagnant < cfg.ACO.MaxStagnation; t++ {
		if a.opts.Token.Cancelled() {
			break
		}
		ph.setIteration(t)
		clear(batch)
		ForEach(a.opts.Token, cfg.Workers, n, func(i int) {
			batch[i] = a.construct(ph, seed, NewRand(cfg.Seed, uint64(seed), uint64(t), uint64(i)), t)
		})

		var it *Subgraph
		for _, s := range batch {
			if s != nil && (it == nil || s.Fitness() > it.Fitness()) {
				it = s
			}
		}
		if it == nil {
			break
		}
		it = a.ls.Improve(it, NewRand(cfg.Seed, uint64(seed), uint64(t), uint64(n)))
		if best == nil || it.Fitness() > best.Fitness() {
			best, stagnant = it, 0
		} else {
			stagnant++
		}
		ph.reinforce(it, 1-1/float64(it.Fitness()), t)
	}
	return best
}

// construct builds one candidate from seed by weighted roulette over the
// admissible frontier until no candidate carries positive weight.
func (a *Colony) construct(ph *pheromones, seed int, rng *rand.Rand, t int) *Subgraph {
	g := a.c.g
	aco := a.opts.Config.ACO
	s := NewSubgraph(a.c)
	s.Add(seed)

	var cands []int
	var weights []float64
	for !a.opts.Token.Cancelled() {
		cands, weights = cands[:0], weights[:0]
		var total float64
		for _, u := range s.Frontier() {
			if !s.CanAdd(u) {
				continue
			}
			w := aco.Weight(ph.effective(u, t), desirability(g.Penalty(u)))
			if w > 0 {
				cands = append(cands, u)
				weights = append(weights, w)
				total += w
			}
		}
		if total <= 0 {
			break
		}
		s.Add(cands[roulette(rng, weights, total)])
	}
	return s
}

// roulette draws an index with probability proportional to its weight.
func roulette(rng *rand.Rand, weights []float64, total float64) int {
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

package contract

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/matzehuels/pathminer/pkg/search"
)

// =============================================================================
// Greedy
// =============================================================================

// Greedy grows one candidate per cluster, always admitting the frontier
// exception cluster with the highest gain.
type Greedy struct {
	cg   *Graph
	opts search.Options
}

// NewGreedy creates a greedy solver on a contracted graph. The exception cap
// is opts.Config.K.
func NewGreedy(cg *Graph, opts search.Options) *Greedy {
	opts.SetDefaults()
	return &Greedy{cg: cg, opts: opts}
}

// build grows a candidate from cluster seed, or returns nil if seed
// cannot start one.
func (gr *Greedy) build(seed int, rng *rand.Rand) *state {
	s := newState(gr.cg, gr.opts.Config.K)
	if !s.canSeed(seed) {
		return nil
	}
	s.seed(seed)
	for !gr.opts.Token.Cancelled() {
		pick, best, ties := -1, 0, 0
		for _, e := range s.frontier(nil) {
			switch g := s.gain[e]; {
			case pick < 0 || g > best:
				pick, best, ties = e, g, 1
			case g == best:
				ties++
				if rng.IntN(ties) == 0 {
					pick = e
				}
			}
		}
		if pick < 0 {
			break
		}
		s.admit(pick)
	}
	return s
}

func (gr *Greedy) solve() []snapshot {
	cfg := gr.opts.Config
	out := make([]snapshot, gr.cg.Len())
	search.ForEach(gr.opts.Token, cfg.Workers, gr.cg.Len(), func(i int) {
		if s := gr.build(i, search.NewRand(cfg.Seed, uint64(i))); s != nil {
			out[i] = s.snapshot()
		}
	})
	return out
}

// Solve returns one candidate per seedable cluster, expanded and ranked.
func (gr *Greedy) Solve() []search.Result {
	start := time.Now()
	var results []search.Result
	for _, snap := range gr.solve() {
		if snap.fitness > 0 {
			results = append(results, gr.cg.result(snap.clusters))
		}
	}
	gr.opts.Logger.Debug("contracted greedy finished",
		"clusters", gr.cg.Len(),
		"results", len(results),
		"duration", time.Since(start))
	return search.Rank(results, gr.opts.Config.MaxResults)
}

// =============================================================================
// Branch and bound
// =============================================================================

// Optimal is branch and bound over exception-cluster admissions. A single
// mutable state is walked depth first; each branch admits one cluster and
// reverts it when the branch returns.
type Optimal struct {
	cg   *Graph
	opts search.Options

	st       *state
	best     snapshot
	excluded search.Bitset
	stack    []int
}

// NewOptimal creates a branch-and-bound solver on a contracted graph.
func NewOptimal(cg *Graph, opts search.Options) *Optimal {
	opts.SetDefaults()
	return &Optimal{cg: cg, opts: opts}
}

// Solve returns the best candidate found as a single result.
func (o *Optimal) Solve() []search.Result {
	start := time.Now()
	for _, snap := range NewGreedy(o.cg, o.opts).solve() {
		if snap.fitness > o.best.fitness {
			o.best = snap
		}
	}
	o.excluded = search.NewBitset(o.cg.Len())

	for id := range o.cg.Len() {
		if o.opts.Token.Cancelled() {
			break
		}
		o.st = newState(o.cg, o.opts.Config.K)
		if !o.st.canSeed(id) {
			continue
		}
		o.st.seed(id)
		o.explore()
		o.excluded.Set(id)
	}

	o.opts.Logger.Debug("contracted branch and bound finished",
		"fitness", o.best.fitness,
		"cancelled", o.opts.Token.Cancelled(),
		"duration", time.Since(start))
	if o.best.fitness == 0 {
		return nil
	}
	return []search.Result{o.cg.result(o.best.clusters)}
}

func (o *Optimal) explore() {
	if o.opts.Token.Cancelled() {
		return
	}
	if o.st.fitness > o.best.fitness {
		o.best = o.st.snapshot()
	}
	if o.upper() <= o.best.fitness {
		return
	}

	cands := o.st.frontier(o.excluded)
	mark := len(o.stack)
	defer o.release(mark)
	for _, e := range cands {
		if o.opts.Token.Cancelled() {
			return
		}
		o.branch(e, o.explore)
		o.stack = append(o.stack, e)
		o.excluded.Set(e)
	}
}

// branch admits e, runs fn and reverts the admission.
func (o *Optimal) branch(e int, fn func()) {
	a := o.st.admit(e)
	defer o.st.revert(a)
	fn()
}

func (o *Optimal) release(mark int) {
	for _, e := range o.stack[mark:] {
		o.excluded.Clear(e)
	}
	o.stack = o.stack[:mark]
}

// upper bounds the fitness of any extension of the current state.
func (o *Optimal) upper() int {
	if o.opts.Config.Bound != search.BoundReachable {
		return math.MaxInt
	}
	seen := o.st.members.Clone()
	stack := append([]int(nil), o.st.order...)
	n := o.st.fitness
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range o.cg.clusters[id].Neighbors {
			if seen.Has(nb) || o.excluded.Has(nb) {
				continue
			}
			seen.Set(nb)
			n += len(o.cg.clusters[nb].Members)
			stack = append(stack, nb)
		}
	}
	return n
}

// =============================================================================
// Ant colony
// =============================================================================

// Colony is ant colony optimisation over exception clusters. Pheromone lives
// on exception clusters only and evaporates on all of them every iteration.
// Selection weighs cluster pheromone against the cluster's current gain.
type Colony struct {
	cg   *Graph
	opts search.Options
	tau  []float64
}

// NewColony creates an ant colony solver on a contracted graph.
func NewColony(cg *Graph, opts search.Options) *Colony {
	opts.SetDefaults()
	return &Colony{cg: cg, opts: opts, tau: make([]float64, cg.Len())}
}

// EliteSeeds returns the seedable clusters with the largest weight, at most
// StartNodes of them.
func (a *Colony) EliteSeeds() []int {
	seedable := newState(a.cg, a.opts.Config.K)
	var seeds []int
	for id := range a.cg.Len() {
		if seedable.canSeed(id) {
			seeds = append(seeds, id)
		}
	}
	slices.SortStableFunc(seeds, func(x, y int) int {
		return cmp.Compare(a.cg.clusters[y].Weight, a.cg.clusters[x].Weight)
	})
	return seeds[:min(len(seeds), a.opts.Config.ACO.StartNodes)]
}

// Solve runs the colony from every elite seed.
func (a *Colony) Solve() []search.Result {
	start := time.Now()
	var results []search.Result
	for _, seed := range a.EliteSeeds() {
		if a.opts.Token.Cancelled() {
			break
		}
		if best := a.run(seed); best.fitness > 0 {
			results = append(results, a.cg.result(best.clusters))
		}
	}
	a.opts.Logger.Debug("contracted colony finished",
		"results", len(results),
		"duration", time.Since(start))
	return search.Rank(results, a.opts.Config.MaxResults)
}

func (a *Colony) run(seed int) snapshot {
	cfg := a.opts.Config
	aco := cfg.ACO
	for i := range a.tau {
		a.tau[i] = 0.5
	}

	batchSize := 1
	if aco.IterationBest {
		batchSize = aco.SolutionsPerIteration
	}
	batch := make([]snapshot, batchSize)

	var best snapshot
	stagnant := 0
	for t := 1; t <= aco.MaxIterations && stagnant < aco.MaxStagnation; t++ {
		if a.opts.Token.Cancelled() {
			break
		}
		clear(batch)
		search.ForEach(a.opts.Token, cfg.Workers, batchSize, func(i int) {
			batch[i] = a.construct(seed, search.NewRand(cfg.Seed, uint64(seed), uint64(t), uint64(i)))
		})
		it := batch[0]
		for _, s := range batch[1:] {
			if s.fitness > it.fitness {
				it = s
			}
		}
		if it.fitness > best.fitness {
			best, stagnant = it, 0
		} else {
			stagnant++
		}

		rho := aco.RhoAt(t)
		target, amount := best, rho
		if aco.IterationBest {
			target, amount = it, 1-1/float64(max(it.fitness, 1))
		}
		a.update(target, rho, amount)
	}
	return best
}

// update evaporates every exception cluster and reinforces those of snap.
func (a *Colony) update(snap snapshot, rho, amount float64) {
	lo, hi := a.opts.Config.ACO.TauMin, 1-a.opts.Config.ACO.TauMin
	for id, cl := range a.cg.clusters {
		if !cl.Valid {
			a.tau[id] = math.Max(lo, a.tau[id]*(1-rho))
		}
	}
	for _, id := range snap.clusters {
		if !a.cg.clusters[id].Valid {
			a.tau[id] = math.Min(hi, a.tau[id]+amount)
		}
	}
}

func (a *Colony) construct(seed int, rng *rand.Rand) snapshot {
	aco := a.opts.Config.ACO
	s := newState(a.cg, a.opts.Config.K)
	s.seed(seed)
	var weights []float64
	for !a.opts.Token.Cancelled() {
		cands := s.frontier(nil)
		weights = weights[:0]
		var total float64
		for _, e := range cands {
			w := aco.Weight(a.tau[e], float64(s.gain[e]))
			weights = append(weights, w)
			total += w
		}
		if total <= 0 {
			break
		}
		r := rng.Float64() * total
		pick := cands[len(cands)-1]
		for i, w := range weights {
			if r < w {
				pick = cands[i]
				break
			}
			r -= w
		}
		s.admit(pick)
	}
	return s.snapshot()
}

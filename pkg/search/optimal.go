package search

import (
	"math"
	"time"
)

// Optimal is the exact branch-and-bound solver.
//
// Starting from the greedy best as a lower bound, it enumerates every
// connected admissible extension of every start vertex. Start vertices are
// consumed in index order: once all extensions of a start vertex have been
// explored it is excluded from later branches, so each connected candidate
// is visited once. Within a branch, siblings explored earlier are excluded
// from later siblings for the same reason.
//
// With [BoundNone] no branch is ever pruned and the search is exhaustive.
type Optimal struct {
	c    *Constraints
	opts Options
}

// NewOptimal creates a branch-and-bound solver.
func NewOptimal(c *Constraints, opts Options) *Optimal {
	opts.SetDefaults()
	return &Optimal{c: c, opts: opts}
}

// Solve returns the best candidate found, as a single result. On
// cancellation the best candidate known at that point is returned.
func (o *Optimal) Solve() []Result {
	start := time.Now()
	lower := NewGreedy(o.c, o.opts).best()
	if lower == nil {
		lower = NewSubgraph(o.c)
	}
	o.opts.Logger.Debug("branch and bound started", "lower_bound", lower.Fitness(), "bound", o.opts.Config.Bound)

	b := newBnB(o.c, o.opts, lower)
	empty := NewSubgraph(o.c)
	for v := range o.c.g.VertexCount() {
		if o.opts.Token.Cancelled() {
			break
		}
		if !empty.CanAdd(v) {
			continue
		}
		s := NewSubgraph(o.c)
		s.Add(v)
		b.explore(s)
		b.ex.push(v)
	}

	o.opts.Logger.Debug("branch and bound finished",
		"fitness", b.best.Fitness(),
		"branches", b.branches,
		"cancelled", o.opts.Token.Cancelled(),
		"duration", time.Since(start))
	if b.best.Len() == 0 {
		return nil
	}
	return []Result{b.best.Result()}
}

// extend returns the fittest connected admissible superset of s that avoids
// excluded, or s itself.
func extend(c *Constraints, opts Options, s *Subgraph, excluded Bitset) *Subgraph {
	b := newBnB(c, opts, s)
	b.ex.set = excluded.Clone()
	b.explore(s)
	return b.best
}

// bnb holds the state of one branch-and-bound run.
type bnb struct {
	c        *Constraints
	tok      *Token
	bound    BoundKind
	best     *Subgraph
	ex       exclusions
	branches int
}

func newBnB(c *Constraints, opts Options, lower *Subgraph) *bnb {
	return &bnb{
		c:     c,
		tok:   opts.Token,
		bound: opts.Config.Bound,
		best:  lower,
		ex:    exclusions{set: NewBitset(c.g.VertexCount())},
	}
}

func (b *bnb) explore(s *Subgraph) {
	if b.tok.Cancelled() {
		return
	}
	if s.Fitness() > b.best.Fitness() {
		b.best = s
	}
	if b.upper(s) <= b.best.Fitness() {
		return
	}

	var cands []int
	for _, u := range s.Frontier() {
		if !b.ex.set.Has(u) && s.CanAdd(u) {
			cands = append(cands, u)
		}
	}

	mark := b.ex.mark()
	defer b.ex.release(mark)
	for _, u := range cands {
		if b.tok.Cancelled() {
			return
		}
		b.branch(s, u, b.explore)
		b.ex.push(u)
	}
}

// branch explores s extended by u. s itself is left untouched, so there is
// nothing to revert when fn returns.
func (b *bnb) branch(s *Subgraph, u int, fn func(*Subgraph)) {
	b.branches++
	t := s.Clone()
	t.Add(u)
	fn(t)
}

// upper bounds the fitness of any extension of s.
func (b *bnb) upper(s *Subgraph) int {
	if b.bound != BoundReachable {
		return math.MaxInt
	}
	g := b.c.g
	seen := s.members.Clone()
	stack := append([]int(nil), s.Order()...)
	n := s.Len()
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range g.Neighbors(v) {
			if seen.Has(u) || b.ex.set.Has(u) {
				continue
			}
			seen.Set(u)
			n++
			stack = append(stack, u)
		}
	}
	return n
}

// exclusions is a set of vertices with stack discipline: everything pushed
// after a mark is removed again by release.
type exclusions struct {
	set   Bitset
	stack []int
}

func (e *exclusions) push(v int) {
	if e.set.Has(v) {
		return
	}
	e.set.Set(v)
	e.stack = append(e.stack, v)
}

func (e *exclusions) mark() int { return len(e.stack) }

func (e *exclusions) release(mark int) {
	for _, v := range e.stack[mark:] {
		e.set.Clear(v)
	}
	e.stack = e.stack[:mark]
}

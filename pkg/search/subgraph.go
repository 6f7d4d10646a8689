package search

import (
	"fmt"
	"slices"
)

// Subgraph is a candidate solution grown one vertex at a time.
//
// It keeps the admitted vertices in insertion order and, separately, the
// exempt vertices: the K most expensive admitted vertices by penalty (then
// id). Exempt vertices are not charged against any dataset budget. Usage per
// dataset is the summed non-DE case count of the remaining admitted vertices,
// and the combine predicate must hold over the datasets whose usage is within
// budget after every admission.
//
// Vertices are never removed in place. [Subgraph.Without] builds a shrunk
// copy by replaying the admission sequence.
type Subgraph struct {
	c       *Constraints
	order   []int
	members Bitset
	usage   []int
	exempt  []int // sorted most expensive first, len <= K

	border   []int // admissible-by-adjacency vertices, insertion order
	inBorder Bitset
}

// NewSubgraph returns an empty candidate.
func NewSubgraph(c *Constraints) *Subgraph {
	n := c.g.VertexCount()
	return &Subgraph{
		c:        c,
		members:  NewBitset(n),
		usage:    make([]int, c.g.DatasetCount()),
		inBorder: NewBitset(n),
	}
}

// Clone returns an independent copy.
func (s *Subgraph) Clone() *Subgraph {
	return &Subgraph{
		c:        s.c,
		order:    slices.Clone(s.order),
		members:  s.members.Clone(),
		usage:    slices.Clone(s.usage),
		exempt:   slices.Clone(s.exempt),
		border:   slices.Clone(s.border),
		inBorder: s.inBorder.Clone(),
	}
}

// charged returns the vertex whose non-DE counts are added to usage when v
// is admitted, or -1 when v only fills a free exemption slot.
func (s *Subgraph) charged(v int) int {
	k := s.c.k
	if len(s.exempt) < k {
		return -1
	}
	if k > 0 {
		if b := s.exempt[k-1]; s.c.Outranks(v, b) {
			return b
		}
	}
	return v
}

// CanAdd reports whether v may be admitted.
func (s *Subgraph) CanAdd(v int) bool {
	if s.members.Has(v) {
		return false
	}
	ch := s.charged(v)
	var mask uint64
	for d, used := range s.usage {
		if ch >= 0 {
			used += s.c.g.NonDE(ch, d)
		}
		if used <= s.c.budgets[d] {
			mask |= 1 << d
		}
	}
	return s.c.pred.Eval(mask)
}

// Add admits v. It panics if v is not admissible; callers must check
// [Subgraph.CanAdd] first.
func (s *Subgraph) Add(v int) {
	if !s.CanAdd(v) {
		panic(fmt.Sprintf("search: vertex %s is not admissible", s.c.g.ID(v)))
	}
	ch := s.charged(v)
	if ch >= 0 {
		for d := range s.usage {
			s.usage[d] += s.c.g.NonDE(ch, d)
		}
	}
	if ch != v {
		if ch >= 0 {
			s.exempt = s.exempt[:len(s.exempt)-1]
		}
		i, _ := slices.BinarySearchFunc(s.exempt, v, func(e, t int) int {
			return s.c.rank[e] - s.c.rank[t]
		})
		s.exempt = slices.Insert(s.exempt, i, v)
	}

	s.order = append(s.order, v)
	s.members.Set(v)
	if s.inBorder.Has(v) {
		s.inBorder.Clear(v)
		s.border = slices.DeleteFunc(s.border, func(u int) bool { return u == v })
	}
	for _, u := range s.c.g.Neighbors(v) {
		if !s.members.Has(u) && !s.inBorder.Has(u) {
			s.inBorder.Set(u)
			s.border = append(s.border, u)
		}
	}
}

// Frontier returns the non-member neighbors of the candidate in discovery
// order. The slice must not be modified and is invalidated by Add.
func (s *Subgraph) Frontier() []int { return s.border }

// Fitness is the number of admitted vertices.
func (s *Subgraph) Fitness() int { return len(s.order) }

// Len is an alias of Fitness.
func (s *Subgraph) Len() int { return len(s.order) }

// Order returns the admitted vertices in insertion order. The slice must not
// be modified.
func (s *Subgraph) Order() []int { return s.order }

// Contains reports whether v is admitted.
func (s *Subgraph) Contains(v int) bool { return s.members.Has(v) }

// Usage returns the charged non-DE case count for dataset d.
func (s *Subgraph) Usage(d int) int { return s.usage[d] }

// Exempt returns the exempt vertices, most expensive first.
func (s *Subgraph) Exempt() []int { return s.exempt }

// Exceptions returns the exempt vertices that are not valid on their own,
// most expensive first.
func (s *Subgraph) Exceptions() []int {
	var out []int
	for _, v := range s.exempt {
		if !s.c.g.Valid(v) {
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether both candidates admit the same vertices.
func (s *Subgraph) Equal(o *Subgraph) bool {
	return len(s.order) == len(o.order) && slices.Equal(s.members, o.members)
}

// Overlaps reports whether the candidates share a vertex.
func (s *Subgraph) Overlaps(o *Subgraph) bool { return s.members.Intersects(o.members) }

// Without returns a new candidate built by replaying the admission sequence
// minus n. Vertices that are no longer admissible during the replay are
// skipped; with OR and AND rules that never happens.
func (s *Subgraph) Without(n int) *Subgraph {
	r := NewSubgraph(s.c)
	for _, v := range s.order {
		if v != n && r.CanAdd(v) {
			r.Add(v)
		}
	}
	return r
}

// Connected reports whether the admitted vertices induce a connected
// subgraph. The empty candidate is connected.
func (s *Subgraph) Connected() bool {
	if len(s.order) <= 1 {
		return true
	}
	seen := NewBitset(s.c.g.VertexCount())
	stack := []int{s.order[0]}
	seen.Set(s.order[0])
	reached := 1
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range s.c.g.Neighbors(v) {
			if s.members.Has(u) && !seen.Has(u) {
				seen.Set(u)
				reached++
				stack = append(stack, u)
			}
		}
	}
	return reached == len(s.order)
}

// Result converts the candidate into the strategy-independent result type.
func (s *Subgraph) Result() Result {
	seed := -1
	if len(s.order) > 0 {
		seed = s.order[0]
	}
	return NewResult(s.c.g, s.order, s.Exceptions(), seed)
}

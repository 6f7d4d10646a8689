package contract

import (
	"fmt"

	"github.com/matzehuels/pathminer/pkg/search"
)

// state is one candidate on the cluster graph together with its own fitness
// table. gain[e] is what admitting exception cluster e would add to the
// candidate: one plus the weights of its adjacent valid clusters that are
// not folded in yet. The table belongs to a single search and is never
// shared between concurrent constructions.
type state struct {
	cg         *Graph
	k          int
	gain       []int
	members    search.Bitset
	order      []int
	exceptions int
	fitness    int
}

func newState(cg *Graph, k int) *state {
	gain := make([]int, cg.Len())
	for _, cl := range cg.clusters {
		if !cl.Valid {
			gain[cl.ID] = cl.Weight
		}
	}
	return &state{cg: cg, k: k, gain: gain, members: search.NewBitset(cg.Len())}
}

// canSeed reports whether cluster id may start a candidate.
func (s *state) canSeed(id int) bool {
	return s.cg.clusters[id].Valid || s.k > 0
}

// seed starts the candidate from cluster id.
func (s *state) seed(id int) {
	if s.cg.clusters[id].Valid {
		s.fold(id)
		return
	}
	s.admit(id)
}

// canAdmit reports whether exception cluster e may be admitted.
func (s *state) canAdmit(e int) bool {
	return !s.members.Has(e) && !s.cg.clusters[e].Valid && s.exceptions < s.k
}

// admission records what admit changed so it can be reverted.
type admission struct {
	cluster  int
	orderLen int
	folded   []int
}

// admit adds exception cluster e and folds in its adjacent valid clusters.
// It panics if e is not admissible.
func (s *state) admit(e int) admission {
	if !s.canAdmit(e) {
		panic(fmt.Sprintf("contract: cluster %d is not admissible", e))
	}
	a := admission{cluster: e, orderLen: len(s.order)}
	s.members.Set(e)
	s.order = append(s.order, e)
	s.exceptions++
	s.fitness++
	for _, nb := range s.cg.clusters[e].Neighbors {
		if s.cg.clusters[nb].Valid && !s.members.Has(nb) {
			s.fold(nb)
			a.folded = append(a.folded, nb)
		}
	}
	return a
}

// revert undoes an admission. Admissions must be reverted in reverse order.
func (s *state) revert(a admission) {
	for i := len(a.folded) - 1; i >= 0; i-- {
		s.unfold(a.folded[i])
	}
	s.members.Clear(a.cluster)
	s.exceptions--
	s.fitness--
	s.order = s.order[:a.orderLen]
}

// fold adds valid cluster c and lowers the gain of every exception cluster
// next to it by c's weight.
func (s *state) fold(c int) {
	cl := s.cg.clusters[c]
	s.members.Set(c)
	s.order = append(s.order, c)
	s.fitness += cl.Weight
	for _, e := range cl.Neighbors {
		s.gain[e] -= cl.Weight
	}
}

func (s *state) unfold(c int) {
	cl := s.cg.clusters[c]
	s.members.Clear(c)
	s.fitness -= cl.Weight
	for _, e := range cl.Neighbors {
		s.gain[e] += cl.Weight
	}
}

// frontier returns the admissible exception clusters next to the candidate,
// in discovery order, skipping clusters in excluded.
func (s *state) frontier(excluded search.Bitset) []int {
	seen := search.NewBitset(s.cg.Len())
	var out []int
	for _, id := range s.order {
		for _, nb := range s.cg.clusters[id].Neighbors {
			if seen.Has(nb) {
				continue
			}
			seen.Set(nb)
			if excluded != nil && excluded.Has(nb) {
				continue
			}
			if s.canAdmit(nb) {
				out = append(out, nb)
			}
		}
	}
	return out
}

// snapshot is an immutable copy of a candidate.
type snapshot struct {
	clusters []int
	fitness  int
}

func (s *state) snapshot() snapshot {
	return snapshot{clusters: append([]int(nil), s.order...), fitness: s.fitness}
}

// result expands clusters to original vertices.
func (cg *Graph) result(clusters []int) search.Result {
	var exceptions []int
	for _, id := range clusters {
		if !cg.clusters[id].Valid {
			exceptions = append(exceptions, cg.clusters[id].Members...)
		}
	}
	seed := -1
	if len(clusters) > 0 {
		seed = cg.clusters[clusters[0]].Members[0]
	}
	return search.NewResult(cg.net, cg.Expand(clusters), exceptions, seed)
}

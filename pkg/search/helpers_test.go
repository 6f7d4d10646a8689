package search

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/network"
)

// fixture describes a test network: vertices "0".."n-1", undirected edges,
// and per dataset the non-DE case count of every vertex.
type fixture struct {
	n     int
	edges [][2]int
	costs [][]int // costs[d][v]
}

// build turns the fixture into a network. Dataset d is named "d<d>" and has
// one more case than its largest cost, so every vertex has a DE case.
func (f fixture) build(t testing.TB) *network.Graph {
	t.Helper()
	g := network.New()
	for v := range f.n {
		_, err := g.AddVertex(strconv.Itoa(v))
		require.NoError(t, err)
	}
	for _, e := range f.edges {
		require.NoError(t, g.AddEdge(strconv.Itoa(e[0]), strconv.Itoa(e[1])))
	}
	for d, row := range f.costs {
		cases := slices.Max(row) + 1
		expr := make(map[string][]int, f.n)
		for v, c := range row {
			calls := make([]int, cases)
			for i := c; i < cases; i++ {
				calls[i] = 1
			}
			expr[strconv.Itoa(v)] = calls
		}
		require.NoError(t, g.AddDataset(network.Dataset{Name: fmt.Sprintf("d%d", d), Cases: cases, Expression: expr}))
	}
	return g
}

// prepare builds the fixture and compiles constraints for cfg.
func (f fixture) prepare(t testing.TB, cfg Config) *Constraints {
	t.Helper()
	cfg.SetDefaults()
	cfg.Heuristic = network.HeuristicTotal
	c, err := Prepare(f.build(t), cfg)
	require.NoError(t, err)
	return c
}

// pathFixture is the six-vertex path 0-1-2-3-4-5 where 2 and 3 cost one case
// each and 5 costs two. With K=1 and L=1 one of 2 and 3 is exempt and the
// other uses the budget, so the optimum is {0..4} at fitness 5. If 5 were
// valid the whole path would fit (see TestPlainPathExample), so 5 is made
// too expensive to join.
func pathFixture() fixture {
	return fixture{
		n:     6,
		edges: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}},
		costs: [][]int{{0, 0, 1, 1, 0, 2}},
	}
}

// randomFixture returns a connected random graph with datasets random costs.
func randomFixture(rng *rand.Rand, n, datasets int, density float64, maxCost int) fixture {
	f := fixture{n: n}
	for v := 1; v < n; v++ {
		f.edges = append(f.edges, [2]int{rng.IntN(v), v})
	}
	for u := range n {
		for v := u + 1; v < n; v++ {
			if rng.Float64() < density {
				f.edges = append(f.edges, [2]int{u, v})
			}
		}
	}
	for range datasets {
		row := make([]int, n)
		for v := range row {
			if rng.IntN(3) > 0 {
				row[v] = rng.IntN(maxCost + 1)
			}
		}
		f.costs = append(f.costs, row)
	}
	return f
}

// topK returns the K most expensive members of set by the exemption order.
func topK(c *Constraints, set []int) []int {
	sorted := slices.Clone(set)
	slices.SortFunc(sorted, func(a, b int) int { return c.rank[a] - c.rank[b] })
	return sorted[:min(len(sorted), c.K())]
}

// feasible recomputes admissibility of a vertex set from scratch.
func feasible(c *Constraints, set []int) bool {
	exempt := topK(c, set)
	var mask uint64
	for d := range c.Graph().DatasetCount() {
		used := 0
		for _, v := range set {
			if !slices.Contains(exempt, v) {
				used += c.Graph().NonDE(v, d)
			}
		}
		if used <= c.Budget(d) {
			mask |= 1 << d
		}
	}
	return c.Predicate().Eval(mask)
}

// connected reports whether set induces a connected subgraph of g.
func connected(g *network.Graph, set []int) bool {
	if len(set) <= 1 {
		return true
	}
	in := make(map[int]bool, len(set))
	for _, v := range set {
		in[v] = true
	}
	seen := map[int]bool{set[0]: true}
	stack := []int{set[0]}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range g.Neighbors(v) {
			if in[u] && !seen[u] {
				seen[u] = true
				stack = append(stack, u)
			}
		}
	}
	return len(seen) == len(set)
}

// bruteForce returns the size of the largest connected admissible vertex set.
func bruteForce(c *Constraints) int {
	n := c.Graph().VertexCount()
	best := 0
	for mask := 1; mask < 1<<n; mask++ {
		var set []int
		for v := range n {
			if mask&(1<<v) != 0 {
				set = append(set, v)
			}
		}
		if len(set) > best && connected(c.Graph(), set) && feasible(c, set) {
			best = len(set)
		}
	}
	return best
}

var rules = []struct {
	name    string
	rule    combine.Rule
	formula string
}{
	{"OR", combine.OR, ""},
	{"AND", combine.AND, ""},
	{"CUSTOM", combine.CUSTOM, "d0 && (d1 || d2)"},
}

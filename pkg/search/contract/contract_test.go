package contract

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/search"
)

// buildNetwork creates vertices "0".."n-1" with one dataset in which the
// vertices of invalid are not expressed in one of two cases.
func buildNetwork(t *testing.T, n int, edges [][2]int, invalid []int) *network.Graph {
	t.Helper()
	g := network.New()
	for v := range n {
		_, err := g.AddVertex(strconv.Itoa(v))
		require.NoError(t, err)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(strconv.Itoa(e[0]), strconv.Itoa(e[1])))
	}
	expr := make(map[string][]int, n)
	for v := range n {
		expr[strconv.Itoa(v)] = []int{1, 1}
	}
	for _, v := range invalid {
		expr[strconv.Itoa(v)] = []int{1, 0}
	}
	require.NoError(t, g.AddDataset(network.Dataset{Name: "d0", Cases: 2, Expression: expr}))
	pred, err := combine.Compile(combine.OR, "", g.DatasetNames())
	require.NoError(t, err)
	require.NoError(t, g.Refresh(network.RefreshOptions{Predicate: pred, Heuristic: network.HeuristicTotal}))
	return g
}

func randomNetwork(t *testing.T, rng *rand.Rand, n int) *network.Graph {
	t.Helper()
	var edges [][2]int
	for v := 1; v < n; v++ {
		edges = append(edges, [2]int{rng.IntN(v), v})
	}
	for u := range n {
		for v := u + 1; v < n; v++ {
			if rng.Float64() < 0.1 {
				edges = append(edges, [2]int{u, v})
			}
		}
	}
	var invalid []int
	for v := range n {
		if rng.IntN(3) == 0 {
			invalid = append(invalid, v)
		}
	}
	return buildNetwork(t, n, edges, invalid)
}

// pathNetwork is 0-1-2-3-4-5-6 with 2 and 5 invalid:
// clusters {0,1} {2} {3,4} {5} {6}.
func pathNetwork(t *testing.T) *network.Graph {
	return buildNetwork(t, 7, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 6}}, []int{2, 5})
}

func TestContractRequiresRefresh(t *testing.T) {
	g := network.New()
	require.NoError(t, g.AddEdge("a", "b"))
	_, err := Contract(g)
	assert.ErrorIs(t, err, network.ErrNotRefreshed)
}

func TestContractPath(t *testing.T) {
	cg, err := Contract(pathNetwork(t))
	require.NoError(t, err)
	require.Equal(t, 5, cg.Len())

	valid, exceptions := cg.Counts()
	assert.Equal(t, 3, valid)
	assert.Equal(t, 2, exceptions)

	byMembers := func(members ...int) *Cluster {
		cl := cg.Cluster(cg.ClusterOf(members[0]))
		require.Equal(t, members, cl.Members)
		return cl
	}
	left := byMembers(0, 1)
	e2 := byMembers(2)
	mid := byMembers(3, 4)
	e5 := byMembers(5)
	right := byMembers(6)

	assert.True(t, left.Valid)
	assert.False(t, e2.Valid)
	assert.Equal(t, 2, left.Weight)
	assert.Equal(t, 1+2+2, e2.Weight)
	assert.Equal(t, 1+2+1, e5.Weight)
	assert.Equal(t, 1, right.Weight)
	assert.Equal(t, []int{e2.ID, e5.ID}, mid.Neighbors)
}

func TestContractPartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for trial := range 20 {
		g := randomNetwork(t, rng, 30)
		cg, err := Contract(g)
		require.NoError(t, err)

		owner := make([]int, g.VertexCount())
		for i := range owner {
			owner[i] = -1
		}
		for _, cl := range cg.Clusters() {
			require.NotEmpty(t, cl.Members)
			for _, v := range cl.Members {
				require.Equal(t, -1, owner[v], "trial %d: vertex %d in two clusters", trial, v)
				owner[v] = cl.ID
				require.Equal(t, cl.ID, cg.ClusterOf(v))
				require.Equal(t, cl.Valid, g.Valid(v))
			}
			if !cl.Valid {
				require.Len(t, cl.Members, 1)
			}
			for _, nb := range cl.Neighbors {
				require.False(t, cl.Valid && cg.Cluster(nb).Valid, "trial %d: valid clusters are maximal", trial)
			}
		}
		assert.NotContains(t, owner, -1, "trial %d: every vertex has a cluster", trial)
	}
}

func connected(g *network.Graph, ids []string) bool {
	vs, err := g.Indices(ids)
	if err != nil || len(vs) == 0 {
		return false
	}
	in := make(map[int]bool, len(vs))
	for _, v := range vs {
		in[v] = true
	}
	seen := map[int]bool{vs[0]: true}
	stack := []int{vs[0]}
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
	return len(seen) == len(vs)
}

func TestSolutionsExpandToConnectedSubgraphs(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	for trial := range 10 {
		g := randomNetwork(t, rng, 18)
		cg, err := Contract(g)
		require.NoError(t, err)

		cfg := search.Defaults()
		cfg.K = 1 + rng.IntN(2)
		cfg.ACO.MaxIterations = 20
		opts := search.Options{Config: cfg}

		greedy := NewGreedy(cg, opts).Solve()
		optimal := NewOptimal(cg, opts).Solve()
		colony := NewColony(cg, opts).Solve()

		for name, results := range map[string][]search.Result{"greedy": greedy, "optimal": optimal, "colony": colony} {
			for _, r := range results {
				label := fmt.Sprintf("trial %d %s", trial, name)
				assert.True(t, connected(g, r.Vertices), label)
				assert.Equal(t, len(r.Vertices), r.Fitness, label)
				assert.LessOrEqual(t, len(r.Exceptions), cfg.K, label)
				for _, id := range r.Exceptions {
					v, _ := g.Index(id)
					assert.False(t, g.Valid(v), label)
				}
			}
		}
		if len(greedy) > 0 {
			require.NotEmpty(t, optimal)
			assert.GreaterOrEqual(t, optimal[0].Fitness, greedy[0].Fitness, "trial %d", trial)
		}
		if len(colony) > 0 && len(optimal) > 0 {
			assert.LessOrEqual(t, colony[0].Fitness, optimal[0].Fitness, "trial %d", trial)
		}
	}
}

// bruteForce returns the best fitness on cg with at most k exception
// clusters. A candidate is a set E of exception clusters together with every
// valid cluster next to one of them, and it must be connected; with E empty
// it is a single valid cluster.
func bruteForce(cg *Graph, k int) int {
	var exceptions []int
	best := 0
	for _, cl := range cg.Clusters() {
		if cl.Valid {
			best = max(best, cl.Weight)
		} else {
			exceptions = append(exceptions, cl.ID)
		}
	}
	for mask := 1; mask < 1<<len(exceptions); mask++ {
		in := make(map[int]bool)
		chosen := 0
		for i, id := range exceptions {
			if mask&(1<<i) == 0 {
				continue
			}
			chosen++
			in[id] = true
			for _, nb := range cg.Cluster(id).Neighbors {
				if cg.Cluster(nb).Valid {
					in[nb] = true
				}
			}
		}
		if chosen > k || !clustersConnected(cg, in) {
			continue
		}
		fitness := 0
		for id := range in {
			fitness += len(cg.Cluster(id).Members)
		}
		best = max(best, fitness)
	}
	return best
}

func clustersConnected(cg *Graph, in map[int]bool) bool {
	var start int
	for id := range in {
		start = id
		break
	}
	seen := map[int]bool{start: true}
	stack := []int{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range cg.Cluster(id).Neighbors {
			if in[nb] && !seen[nb] {
				seen[nb] = true
				stack = append(stack, nb)
			}
		}
	}
	return len(seen) == len(in)
}

func TestOptimalMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for trial := range 40 {
		n := 4 + rng.IntN(9)
		g := randomNetwork(t, rng, n)
		cg, err := Contract(g)
		require.NoError(t, err)

		for k := range 4 {
			want := bruteForce(cg, k)
			for _, bound := range []search.BoundKind{search.BoundNone, search.BoundReachable} {
				cfg := search.Defaults()
				cfg.K = k
				cfg.Bound = bound
				cfg.Workers = 1
				results := NewOptimal(cg, search.Options{Config: cfg}).Solve()

				label := fmt.Sprintf("trial %d n=%d k=%d bound %s", trial, n, k, bound)
				if want == 0 {
					assert.Empty(t, results, label)
					continue
				}
				require.Len(t, results, 1, label)
				assert.Equal(t, want, results[0].Fitness, label)
				assert.True(t, connected(g, results[0].Vertices), label)
			}
		}
	}
}

func TestPathSolvers(t *testing.T) {
	cg, err := Contract(pathNetwork(t))
	require.NoError(t, err)

	cfg := search.Defaults()
	cfg.K = 1
	opts := search.Options{Config: cfg}

	// One exception covers at most {0,1,2,3,4}.
	for name, results := range map[string][]search.Result{
		"greedy":  NewGreedy(cg, opts).Solve(),
		"optimal": NewOptimal(cg, opts).Solve(),
		"colony":  NewColony(cg, opts).Solve(),
	} {
		require.NotEmpty(t, results, name)
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, results[0].Vertices, name)
		assert.Equal(t, []string{"2"}, results[0].Exceptions, name)
	}

	cfg.K = 2
	opts = search.Options{Config: cfg}
	results := NewOptimal(cg, opts).Solve()
	require.Len(t, results, 1)
	assert.Equal(t, 7, results[0].Fitness)

	cfg.K = 0
	opts = search.Options{Config: cfg}
	results = NewGreedy(cg, opts).Solve()
	require.NotEmpty(t, results)
	assert.Equal(t, []string{"0", "1"}, results[0].Vertices, "without exceptions only valid clusters remain")
}

func TestAdmitRevertRestoresState(t *testing.T) {
	cg, err := Contract(pathNetwork(t))
	require.NoError(t, err)
	e2 := cg.ClusterOf(2)
	e5 := cg.ClusterOf(5)

	s := newState(cg, 2)
	s.seed(cg.ClusterOf(0))
	gain := slices.Clone(s.gain)
	assert.Equal(t, 2, s.fitness)
	assert.Equal(t, 5-2, s.gain[e2], "the folded seed no longer counts for 2")

	a := s.admit(e2)
	assert.Equal(t, 5, s.fitness)
	assert.Equal(t, 4-2, s.gain[e5], "folding {3,4} lowers the gain of 5")
	assert.Equal(t, []int{e5}, s.frontier(nil))

	b := s.admit(e5)
	assert.Equal(t, 7, s.fitness)
	assert.False(t, s.canAdmit(e5))

	s.revert(b)
	s.revert(a)
	assert.Equal(t, gain, s.gain)
	assert.Equal(t, 2, s.fitness)
	assert.Equal(t, 0, s.exceptions)
	assert.Len(t, s.order, 1)
	assert.Panics(t, func() { s.admit(cg.ClusterOf(3)) }, "valid clusters are never admitted directly")
}

func TestCancelledContractedSolve(t *testing.T) {
	cg, err := Contract(pathNetwork(t))
	require.NoError(t, err)
	tok := search.NewToken()
	tok.Cancel()
	opts := search.Options{Config: search.Defaults(), Token: tok}
	assert.Empty(t, NewGreedy(cg, opts).Solve())
	assert.Empty(t, NewOptimal(cg, opts).Solve())
	assert.Empty(t, NewColony(cg, opts).Solve())
}

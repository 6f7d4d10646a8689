package network

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/matzehuels/pathminer/pkg/combine"
	pmerrors "github.com/matzehuels/pathminer/pkg/errors"
)

var (
	// ErrUnknownVertex is returned when an edge or lookup references a vertex
	// id that is not part of the graph.
	ErrUnknownVertex = errors.New("unknown vertex")

	// ErrSelfLoop is returned by [Graph.AddEdge] for an edge from a vertex to
	// itself. Interaction networks are simple graphs.
	ErrSelfLoop = errors.New("self loop")

	// ErrDuplicateDataset is returned by [Graph.AddDataset] when a dataset with
	// the same name already exists.
	ErrDuplicateDataset = errors.New("duplicate dataset")

	// ErrCaseMismatch is returned by [Graph.AddDataset] when an expression row
	// does not have exactly Cases entries.
	ErrCaseMismatch = errors.New("expression row length does not match case count")

	// ErrNotRefreshed is returned by operations that need derived vertex data
	// before [Graph.Refresh] has been called.
	ErrNotRefreshed = errors.New("graph not refreshed")
)

// Heuristic selects how the per-vertex penalty is aggregated over datasets.
type Heuristic int

const (
	// HeuristicAverage uses the rounded mean non-DE case count.
	HeuristicAverage Heuristic = iota
	// HeuristicTotal uses the summed non-DE case count.
	HeuristicTotal
)

// String returns the canonical name of the heuristic.
func (h Heuristic) String() string {
	if h == HeuristicTotal {
		return "TOTAL"
	}
	return "AVERAGE"
}

// MarshalText implements encoding.TextMarshaler.
func (h Heuristic) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Heuristic) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "AVERAGE", "":
		*h = HeuristicAverage
	case "TOTAL":
		*h = HeuristicTotal
	default:
		return pmerrors.New(pmerrors.ErrCodeInvalidConfig, "unknown heuristic %q (must be one of: AVERAGE, TOTAL)", string(b))
	}
	return nil
}

// Vertex identifies a node of the interaction network.
// Index is the dense position used by all solvers (0..VertexCount-1).
type Vertex struct {
	ID    string
	Index int
}

// Edge is an undirected interaction between two vertex indices.
// Edges are immutable once added.
type Edge struct {
	ID   int
	From int
	To   int
}

// Dataset holds per-case differential expression calls for one experiment.
// Expression maps a vertex id to Cases entries; a non-zero entry means the
// vertex is differentially expressed in that case. Vertices absent from the
// map are treated as not differentially expressed in every case.
type Dataset struct {
	Name       string           `json:"name"`
	Cases      int              `json:"cases"`
	Expression map[string][]int `json:"expression"`
}

// Graph is an undirected interaction network with expression annotations.
//
// The zero value is not usable; create graphs with [New].
type Graph struct {
	vertices []Vertex
	index    map[string]int
	edges    []Edge
	adj      [][]int
	datasets []Dataset

	// derived by Refresh
	refreshed bool
	nonDE     [][]int
	valid     []bool
	penalty   []int
	expr      []float64

	// ant colony state
	pheromone []atomic.Uint64
	updated   []atomic.Int64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddVertex adds a vertex and returns its index. Adding an existing id is a
// no-op that returns the existing index.
func (g *Graph) AddVertex(id string) (int, error) {
	if i, ok := g.index[id]; ok {
		return i, nil
	}
	if err := pmerrors.ValidateVertexID(id); err != nil {
		return -1, err
	}
	i := len(g.vertices)
	g.vertices = append(g.vertices, Vertex{ID: id, Index: i})
	g.index[id] = i
	g.adj = append(g.adj, nil)
	g.refreshed = false
	return i, nil
}

// AddEdge adds an undirected edge, creating missing endpoints.
// Duplicate edges are ignored; self loops return ErrSelfLoop.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%s: %w", from, ErrSelfLoop)
	}
	a, err := g.AddVertex(from)
	if err != nil {
		return err
	}
	b, err := g.AddVertex(to)
	if err != nil {
		return err
	}
	if _, dup := slices.BinarySearch(g.adj[a], b); dup {
		return nil
	}
	g.edges = append(g.edges, Edge{ID: len(g.edges), From: a, To: b})
	g.adj[a] = insertSorted(g.adj[a], b)
	g.adj[b] = insertSorted(g.adj[b], a)
	return nil
}

func insertSorted(s []int, v int) []int {
	i, _ := slices.BinarySearch(s, v)
	return slices.Insert(s, i, v)
}

// AddDataset registers an expression dataset. Datasets are kept sorted by
// name; that order defines the bit order seen by combine predicates.
func (g *Graph) AddDataset(d Dataset) error {
	if err := pmerrors.ValidateDatasetName(d.Name); err != nil {
		return err
	}
	for _, existing := range g.datasets {
		if existing.Name == d.Name {
			return fmt.Errorf("%s: %w", d.Name, ErrDuplicateDataset)
		}
	}
	if d.Cases <= 0 {
		return pmerrors.New(pmerrors.ErrCodeInvalidInput, "dataset %s: cases must be > 0", d.Name)
	}
	for id, row := range d.Expression {
		if len(row) != d.Cases {
			return fmt.Errorf("dataset %s, vertex %s: %w", d.Name, id, ErrCaseMismatch)
		}
	}
	if d.Expression == nil {
		d.Expression = map[string][]int{}
	}
	i, _ := slices.BinarySearchFunc(g.datasets, d.Name, func(e Dataset, name string) int {
		return strings.Compare(e.Name, name)
	})
	g.datasets = slices.Insert(g.datasets, i, d)
	g.refreshed = false
	return nil
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Vertices returns all vertices in index order. The slice must not be modified.
func (g *Graph) Vertices() []Vertex { return g.vertices }

// Edges returns all edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// Vertex returns the vertex at index i.
func (g *Graph) Vertex(i int) Vertex { return g.vertices[i] }

// ID returns the id of the vertex at index i.
func (g *Graph) ID(i int) string { return g.vertices[i].ID }

// Index returns the index of the vertex with the given id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors returns the neighbor indices of v in ascending order.
// The slice must not be modified.
func (g *Graph) Neighbors(v int) []int { return g.adj[v] }

// Degree returns the number of neighbors of v.
func (g *Graph) Degree(v int) int { return len(g.adj[v]) }

// Adjacent reports whether u and v share an edge.
func (g *Graph) Adjacent(u, v int) bool {
	_, ok := slices.BinarySearch(g.adj[u], v)
	return ok
}

// Datasets returns the registered datasets sorted by name.
func (g *Graph) Datasets() []Dataset { return g.datasets }

// DatasetNames returns dataset names in bit order.
func (g *Graph) DatasetNames() []string {
	names := make([]string, len(g.datasets))
	for i, d := range g.datasets {
		names[i] = d.Name
	}
	return names
}

// DatasetCount returns the number of datasets.
func (g *Graph) DatasetCount() int { return len(g.datasets) }

// RefreshOptions controls how derived vertex state is recomputed.
type RefreshOptions struct {
	// Predicate combines per-dataset "fully expressed" flags into validity.
	// It must range over DatasetNames in order.
	Predicate *combine.Predicate
	// Heuristic selects the penalty aggregation.
	Heuristic Heuristic
	// InitialPheromone is the value every vertex pheromone is reset to.
	// Zero selects 0.5.
	InitialPheromone float64
}

// Refresh recomputes validity, penalties and expression scores from the
// datasets, and resets pheromones and their iteration counters.
func (g *Graph) Refresh(opts RefreshOptions) error {
	if opts.Predicate == nil {
		return pmerrors.New(pmerrors.ErrCodeInvalidConfig, "refresh requires a combine predicate")
	}
	if opts.Predicate.Len() != len(g.datasets) {
		return pmerrors.New(pmerrors.ErrCodeInvalidConfig,
			"predicate covers %d datasets, graph has %d", opts.Predicate.Len(), len(g.datasets))
	}

	n := len(g.vertices)
	g.nonDE = make([][]int, n)
	g.valid = make([]bool, n)
	g.penalty = make([]int, n)
	g.expr = make([]float64, n)

	totalCases := 0
	for _, d := range g.datasets {
		totalCases += d.Cases
	}

	for v, vx := range g.vertices {
		row := make([]int, len(g.datasets))
		var mask uint64
		sum, de := 0, 0
		for di, d := range g.datasets {
			miss := d.Cases
			if calls, ok := d.Expression[vx.ID]; ok {
				miss = 0
				for _, c := range calls {
					if c == 0 {
						miss++
					}
				}
			}
			row[di] = miss
			sum += miss
			de += d.Cases - miss
			if miss == 0 {
				mask |= 1 << di
			}
		}
		g.nonDE[v] = row
		g.valid[v] = opts.Predicate.Eval(mask)
		switch {
		case opts.Heuristic == HeuristicTotal || len(row) == 0:
			g.penalty[v] = sum
		default:
			g.penalty[v] = int(math.Round(float64(sum) / float64(len(row))))
		}
		if totalCases > 0 {
			g.expr[v] = float64(de) / float64(totalCases)
		}
	}

	g.ResetPheromones(opts.InitialPheromone)
	g.refreshed = true
	return nil
}

// Refreshed reports whether derived state is current.
func (g *Graph) Refreshed() bool { return g.refreshed }

// NonDE returns the non-DE case count of v in dataset d.
func (g *Graph) NonDE(v, d int) int { return g.nonDE[v][d] }

// NonDERow returns the non-DE case counts of v for every dataset.
// The slice must not be modified.
func (g *Graph) NonDERow(v int) []int { return g.nonDE[v] }

// Valid reports whether v satisfies the combine rule without exceptions.
func (g *Graph) Valid(v int) bool { return g.valid[v] }

// Penalty returns the heuristic penalty of v.
func (g *Graph) Penalty(v int) int { return g.penalty[v] }

// Expression returns the fraction of cases (over all datasets) in which v is
// differentially expressed.
func (g *Graph) Expression(v int) float64 { return g.expr[v] }

// ResetPheromones sets every pheromone to tau (0 selects 0.5) and clears the
// last-updated iteration counters.
func (g *Graph) ResetPheromones(tau float64) {
	if tau == 0 {
		tau = 0.5
	}
	n := len(g.vertices)
	if len(g.pheromone) != n {
		g.pheromone = make([]atomic.Uint64, n)
		g.updated = make([]atomic.Int64, n)
	}
	bits := math.Float64bits(tau)
	for i := range n {
		g.pheromone[i].Store(bits)
		g.updated[i].Store(0)
	}
}

// Pheromone returns the stored (not decayed) pheromone of v.
func (g *Graph) Pheromone(v int) float64 {
	return math.Float64frombits(g.pheromone[v].Load())
}

// LastUpdated returns the iteration at which v's pheromone was last written.
func (g *Graph) LastUpdated(v int) int {
	return int(g.updated[v].Load())
}

// SetPheromone stores tau for v and records the iteration of the write.
func (g *Graph) SetPheromone(v int, tau float64, iteration int) {
	g.pheromone[v].Store(math.Float64bits(tau))
	g.updated[v].Store(int64(iteration))
}

// ValidCount returns the number of valid vertices.
func (g *Graph) ValidCount() int {
	n := 0
	for _, ok := range g.valid {
		if ok {
			n++
		}
	}
	return n
}

// Indices resolves vertex ids to indices. It fails with ErrUnknownVertex on
// the first id that is not part of the graph.
func (g *Graph) Indices(ids []string) ([]int, error) {
	out := make([]int, len(ids))
	for i, id := range ids {
		v, ok := g.index[id]
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, ErrUnknownVertex)
		}
		out[i] = v
	}
	return out, nil
}

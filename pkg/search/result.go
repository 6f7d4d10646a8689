package search

import (
	"cmp"
	"slices"

	"github.com/matzehuels/pathminer/pkg/network"
)

// Result is the output shared by every strategy.
//
// Vertices and Exceptions hold vertex ids sorted ascending. Fitness is the
// number of vertices. InfoContent is the mean differential expression
// fraction of the vertices and is used as a secondary ranking key.
type Result struct {
	Fitness     int      `json:"fitness" bson:"fitness"`
	Vertices    []string `json:"vertices" bson:"vertices"`
	Exceptions  []string `json:"exceptions" bson:"exceptions"`
	InfoContent float64  `json:"info_content" bson:"info_content"`
	Seed        string   `json:"seed,omitempty" bson:"seed,omitempty"`
}

// NewResult builds a Result from vertex indices of g. seed may be -1.
func NewResult(g *network.Graph, vertices, exceptions []int, seed int) Result {
	r := Result{
		Fitness:    len(vertices),
		Vertices:   ids(g, vertices),
		Exceptions: ids(g, exceptions),
	}
	if seed >= 0 {
		r.Seed = g.ID(seed)
	}
	if len(vertices) > 0 {
		var sum float64
		for _, v := range vertices {
			sum += g.Expression(v)
		}
		r.InfoContent = sum / float64(len(vertices))
	}
	return r
}

func ids(g *network.Graph, vs []int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = g.ID(v)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both results contain the same vertices.
func (r Result) Equal(o Result) bool { return slices.Equal(r.Vertices, o.Vertices) }

// Overlaps reports whether the results share at least one vertex.
func (r Result) Overlaps(o Result) bool {
	i, j := 0, 0
	for i < len(r.Vertices) && j < len(o.Vertices) {
		switch cmp.Compare(r.Vertices[i], o.Vertices[j]) {
		case 0:
			return true
		case -1:
			i++
		default:
			j++
		}
	}
	return false
}

// Contains reports whether id is one of the result's vertices.
func (r Result) Contains(id string) bool {
	_, ok := slices.BinarySearch(r.Vertices, id)
	return ok
}

// Compare orders results best first: higher fitness, then fewer exceptions,
// then higher information content, then vertex ids.
func Compare(a, b Result) int {
	if c := cmp.Compare(b.Fitness, a.Fitness); c != 0 {
		return c
	}
	if c := cmp.Compare(len(a.Exceptions), len(b.Exceptions)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.InfoContent, a.InfoContent); c != 0 {
		return c
	}
	return slices.Compare(a.Vertices, b.Vertices)
}

// Rank sorts results best first, drops empty results and duplicates, and
// keeps at most limit entries (limit <= 0 keeps all).
func Rank(results []Result, limit int) []Result {
	out := slices.DeleteFunc(slices.Clone(results), func(r Result) bool { return r.Fitness == 0 })
	slices.SortStableFunc(out, Compare)
	out = slices.CompactFunc(out, Result.Equal)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

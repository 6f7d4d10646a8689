// Package contract collapses an interaction network into a cluster graph and
// searches that smaller graph.
//
// Every maximal connected set of valid vertices becomes one valid cluster
// whose weight is its size. Every exception vertex becomes a singleton
// exception cluster whose weight is one plus the weights of its adjacent
// valid clusters. Two clusters are adjacent when any of their vertices are
// adjacent in the original network, so valid clusters only ever touch
// exception clusters.
//
// A candidate on the cluster graph admits exception clusters, at most K of
// them. Admitting an exception cluster folds in every adjacent valid cluster,
// so a candidate always expands to a connected vertex set of the original
// network. Per-dataset budgets play no role here: validity has already been
// fixed by the combine rule when the network was refreshed.
package contract

import (
	"fmt"
	"slices"

	"github.com/matzehuels/pathminer/pkg/network"
)

// Cluster is a node of the contracted graph.
type Cluster struct {
	ID      int
	Valid   bool
	Members []int // vertex indices, ascending
	// Weight is the member count for valid clusters and one plus the adjacent
	// valid weights for exception clusters.
	Weight    int
	Neighbors []int // cluster ids, ascending
}

// Graph is a contracted network.
type Graph struct {
	net       *network.Graph
	clusters  []*Cluster
	clusterOf []int
}

// Contract partitions the refreshed network g into clusters.
func Contract(g *network.Graph) (*Graph, error) {
	if !g.Refreshed() {
		return nil, fmt.Errorf("contract: %w", network.ErrNotRefreshed)
	}
	c := newContractor(g)
	return c.run(), nil
}

// contractor owns the state of one contraction, including the memo that
// gives every exception vertex exactly one cluster.
type contractor struct {
	g         *network.Graph
	clusters  []*Cluster
	clusterOf []int
	memo      map[int]*Cluster
}

func newContractor(g *network.Graph) *contractor {
	clusterOf := make([]int, g.VertexCount())
	for i := range clusterOf {
		clusterOf[i] = -1
	}
	return &contractor{g: g, clusterOf: clusterOf, memo: make(map[int]*Cluster)}
}

func (c *contractor) run() *Graph {
	n := c.g.VertexCount()
	for v := range n {
		if c.g.Valid(v) && c.clusterOf[v] < 0 {
			c.grow(v)
		}
	}
	for v := range n {
		if !c.g.Valid(v) {
			c.exception(v)
		}
	}

	for _, e := range c.g.Edges() {
		a, b := c.clusterOf[e.From], c.clusterOf[e.To]
		if a != b {
			c.clusters[a].Neighbors = append(c.clusters[a].Neighbors, b)
			c.clusters[b].Neighbors = append(c.clusters[b].Neighbors, a)
		}
	}
	for _, cl := range c.clusters {
		slices.Sort(cl.Neighbors)
		cl.Neighbors = slices.Compact(cl.Neighbors)
	}
	for _, cl := range c.clusters {
		if cl.Valid {
			continue
		}
		cl.Weight = 1
		for _, nb := range cl.Neighbors {
			if c.clusters[nb].Valid {
				cl.Weight += c.clusters[nb].Weight
			}
		}
	}
	return &Graph{net: c.g, clusters: c.clusters, clusterOf: c.clusterOf}
}

func (c *contractor) newCluster(valid bool) *Cluster {
	cl := &Cluster{ID: len(c.clusters), Valid: valid}
	c.clusters = append(c.clusters, cl)
	return cl
}

// grow collects the maximal valid component around root. Exception vertices
// met on the way get their singleton cluster immediately.
func (c *contractor) grow(root int) {
	cl := c.newCluster(true)
	queue := []int{root}
	c.clusterOf[root] = cl.ID
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		cl.Members = append(cl.Members, v)
		for _, u := range c.g.Neighbors(v) {
			switch {
			case !c.g.Valid(u):
				c.exception(u)
			case c.clusterOf[u] < 0:
				c.clusterOf[u] = cl.ID
				queue = append(queue, u)
			}
		}
	}
	slices.Sort(cl.Members)
	cl.Weight = len(cl.Members)
}

func (c *contractor) exception(v int) *Cluster {
	if cl, ok := c.memo[v]; ok {
		return cl
	}
	cl := c.newCluster(false)
	cl.Members = []int{v}
	c.clusterOf[v] = cl.ID
	c.memo[v] = cl
	return cl
}

// Network returns the original network.
func (g *Graph) Network() *network.Graph { return g.net }

// Len returns the number of clusters.
func (g *Graph) Len() int { return len(g.clusters) }

// Cluster returns the cluster with the given id.
func (g *Graph) Cluster(id int) *Cluster { return g.clusters[id] }

// Clusters returns every cluster in id order. The slice must not be modified.
func (g *Graph) Clusters() []*Cluster { return g.clusters }

// ClusterOf returns the id of the cluster holding vertex v.
func (g *Graph) ClusterOf(v int) int { return g.clusterOf[v] }

// Counts returns the number of valid and exception clusters.
func (g *Graph) Counts() (valid, exceptions int) {
	for _, cl := range g.clusters {
		if cl.Valid {
			valid++
		} else {
			exceptions++
		}
	}
	return valid, exceptions
}

// Expand returns the original vertices of the given clusters, ascending.
func (g *Graph) Expand(ids []int) []int {
	var out []int
	for _, id := range ids {
		out = append(out, g.clusters[id].Members...)
	}
	slices.Sort(out)
	return out
}

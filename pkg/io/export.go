package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pathminer/pkg/network"
)

type graph struct {
	Nodes    []node    `json:"nodes"`
	Edges    []edge    `json:"edges"`
	Datasets []dataset `json:"datasets,omitempty"`
}

type node struct {
	ID string `json:"id"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type dataset struct {
	Name       string           `json:"name"`
	Cases      int              `json:"cases"`
	Expression map[string][]int `json:"expression"`
}

// WriteJSON encodes a network as JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g *network.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the compact JSON encoding of g. The encoding is stable for
// a given graph, which makes it suitable as cache key input.
func Marshal(g *network.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(toGraph(g)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportJSON writes a network to a JSON file at path.
func ExportJSON(g *network.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

func toGraph(g *network.Graph) graph {
	out := graph{
		Nodes: make([]node, g.VertexCount()),
		Edges: make([]edge, g.EdgeCount()),
	}
	for i, v := range g.Vertices() {
		out.Nodes[i] = node{ID: v.ID}
	}
	for i, e := range g.Edges() {
		out.Edges[i] = edge{From: g.ID(e.From), To: g.ID(e.To)}
	}
	for _, d := range g.Datasets() {
		out.Datasets = append(out.Datasets, dataset(d))
	}
	return out
}

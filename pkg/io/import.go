package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pathminer/pkg/network"
)

// ReadJSON decodes a JSON network from r.
//
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A node id is empty or contains control characters
//   - An edge is a self loop
//   - A dataset name is not a valid identifier, is repeated, or has rows whose
//     length differs from its case count
//
// Errors are wrapped with context describing which node, edge or dataset
// caused the problem. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*network.Graph, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := network.New()
	for _, n := range data.Nodes {
		if _, err := g.AddVertex(n.ID); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("edge %s-%s: %w", e.From, e.To, err)
		}
	}
	for _, d := range data.Datasets {
		if err := g.AddDataset(network.Dataset(d)); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded network.
// It returns the same validation errors as [ReadJSON], wrapped with the path.
func ImportJSON(path string) (*network.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	g, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Package io provides JSON import and export for interaction networks with
// their expression datasets.
//
// # JSON Format
//
// The format has three top-level arrays:
//
//	{
//	  "nodes": [{"id": "TP53"}, {"id": "MDM2"}, {"id": "CDKN1A"}],
//	  "edges": [
//	    {"from": "TP53", "to": "MDM2"},
//	    {"from": "MDM2", "to": "CDKN1A"}
//	  ],
//	  "datasets": [
//	    {
//	      "name": "tcga",
//	      "cases": 3,
//	      "expression": {"TP53": [1, 1, 1], "MDM2": [1, 0, 1]}
//	    }
//	  ]
//	}
//
// Nodes may be omitted when every vertex appears in at least one edge; edge
// endpoints are created on demand. Isolated vertices must be listed in
// "nodes". Edges are undirected: "from" and "to" only name the endpoints.
//
// Each dataset lists one 0/1 entry per case for each vertex. A non-zero
// entry marks the vertex as differentially expressed in that case. Vertices
// missing from "expression" count as not expressed in every case.
//
// # Import
//
// Use [ImportJSON] to read a network from a file path, or [ReadJSON] to read
// from any io.Reader:
//
//	g, err := io.ImportJSON("network.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Export
//
// [WriteJSON] and [ExportJSON] produce the same format, so an exported
// network can be re-imported unchanged.
package io

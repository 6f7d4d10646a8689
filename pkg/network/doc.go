// Package network provides the interaction network searched for active
// subnetworks.
//
// # Overview
//
// A [Graph] is an undirected interaction network (protein–protein, gene
// regulatory, signalling) whose vertices are annotated with expression
// evidence from one or more [Dataset] values. Each dataset marks, per vertex
// and per case (patient, sample, time point), whether the vertex is
// differentially expressed.
//
// The search engine never reads raw expression values. Instead, [Graph.Refresh]
// derives the per-vertex quantities the solvers consume:
//
//   - the non-DE case count per dataset ([Graph.NonDE]), charged against the
//     per-dataset case-exception budgets
//   - the validity flag ([Graph.Valid]), the combine rule applied to
//     "no non-DE case" per dataset
//   - the heuristic penalty ([Graph.Penalty]), the total or average non-DE case
//     count depending on [Heuristic]
//   - the expression score ([Graph.Expression]), the DE fraction across all
//     cases, used for ranking
//
// Refresh also resets the per-vertex pheromone state used by ant colony
// optimisation, so a graph can be reused across successive solves.
//
// # Basic Usage
//
//	g := network.New()
//	g.AddEdge("TP53", "MDM2")
//	g.AddEdge("MDM2", "CDKN1A")
//	g.AddDataset(network.Dataset{
//	    Name:  "tcga",
//	    Cases: 3,
//	    Expression: map[string][]int{
//	        "TP53": {1, 1, 1},
//	        "MDM2": {1, 0, 1},
//	    },
//	})
//	pred, _ := combine.Compile(combine.OR, "", g.DatasetNames())
//	g.Refresh(network.RefreshOptions{Predicate: pred, Heuristic: network.HeuristicTotal})
//
// # Concurrency
//
// Structure (vertices, edges, datasets) must not change during a solve.
// Derived fields are written only by Refresh. Pheromone and last-updated
// counters are stored atomically and may be read and written by concurrent
// solution constructions; such races only influence heuristic choices, never
// feasibility.
package network

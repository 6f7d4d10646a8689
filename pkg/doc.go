// Package pkg provides the core libraries for Pathminer active subnetwork
// extraction.
//
// # Overview
//
// Pathminer searches a gene/protein interaction network for maximal
// connected subnetworks whose vertices are consistently differentially
// expressed across one or more case/control datasets. A subnetwork may
// contain up to K exception vertices, and every dataset tolerates up to L
// non-expressed cases summed over the subnetwork. The pkg directory is
// organized into three areas:
//
//  1. Domain logic ([network], [combine], [search], [search/contract])
//  2. Orchestration ([pipeline], [config], [io], [render])
//  3. Infrastructure ([cache], [store], [observability], [errors])
//
// # Architecture
//
// The typical data flow through Pathminer:
//
//	network.json (vertices, edges, expression matrices)
//	         ↓
//	    [io] package (decode and validate)
//	         ↓
//	    [search] package (derive per-vertex constraints)
//	         ↓
//	    greedy / optimal / aco, optionally on the [search/contract] graph
//	         ↓
//	    ranked results (JSON, run store, DOT/SVG/PNG diagram)
//
// # Quick Start
//
// Load a network and run a search through the pipeline:
//
//	import (
//	    "context"
//	    pmio "github.com/matzehuels/pathminer/pkg/io"
//	    "github.com/matzehuels/pathminer/pkg/pipeline"
//	    "github.com/matzehuels/pathminer/pkg/search"
//	)
//
//	g, _ := pmio.ImportJSON("network.json")
//
//	cfg := search.Defaults()
//	cfg.K, cfg.DefaultBudget = 2, 1
//	opts := pipeline.Options{Strategy: pipeline.StrategyGreedy, Config: cfg}
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	defer runner.Close()
//	out, _ := runner.Solve(context.Background(), g, opts)
//	best := out.Results[0]
//
// # Main Packages
//
// ## Domain Logic
//
// [network] - Undirected interaction graph with named datasets. Refresh
// derives per-vertex validity and penalties from the expression matrices.
//
// [combine] - Rules for combining datasets (OR, AND, or a boolean formula
// over dataset names) into one validity predicate.
//
// [search] - The greedy, exact branch-and-bound and ant colony searches over
// the full network, plus local search and result ranking.
//
// [search/contract] - Contracts connected regions of valid vertices into
// clusters and runs the same strategies on the cluster graph.
//
// ## Orchestration
//
// [pipeline] - Single-flight runner that checks the result cache, dispatches
// the chosen strategy and reports cancellation.
//
// [config] - TOML and YAML configuration files with validation.
//
// [io] - JSON import and export of networks.
//
// [render] - Graphviz node-link diagrams of one result.
//
// ## Infrastructure
//
// [cache] - Result cache backends (file, Redis, null) and cache keys.
//
// [store] - Run history in memory or MongoDB.
//
// [observability] - Hooks for HTTP and solve metrics, with a Prometheus
// implementation in observability/prom.
//
// [errors] - Error codes shared by the CLI and the HTTP API.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/search/...             # Specific package
//
// [network]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/network
// [combine]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/combine
// [search]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/search
// [search/contract]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/search/contract
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/config
// [io]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pathminer/pkg/errors
package pkg

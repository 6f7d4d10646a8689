package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/errors"
	pmio "github.com/matzehuels/pathminer/pkg/io"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/pipeline"
	"github.com/matzehuels/pathminer/pkg/render"
	"github.com/matzehuels/pathminer/pkg/search"
	"github.com/matzehuels/pathminer/pkg/store"
)

// solveFlags holds the command-line flags of the solve command. Flags that
// were set override the config file.
type solveFlags struct {
	strategy    string
	algorithm   string
	k           int
	budget      int
	budgets     map[string]int
	combine     string
	formula     string
	heuristic   string
	localSearch string
	bound       string
	workers     int
	seed        uint64
	maxResults  int
	iterations  int
	iterBest    bool

	output   string        // JSON results file, "-" for stdout
	render   string        // diagram of the best result (.dot, .svg, .png)
	detailed bool          // vertex details in the diagram
	context  bool          // draw neighbours of the subnetwork
	browse   bool          // pick the result to show and render
	save     bool          // record the run in the configured store
	noCache  bool          // bypass the result cache
	refresh  bool          // recompute but update the cache
	timeout  time.Duration // cancel the search after this long
}

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var fl solveFlags

	cmd := &cobra.Command{
		Use:   "solve [network.json]",
		Short: "Search a network for active subnetworks",
		Long: `Search a network for maximal connected subnetworks of differentially
expressed vertices.

Strategies:
  greedy      grow one candidate from every vertex (fast)
  optimal     exhaustive branch and bound (exact, slow on large networks)
  aco         ant colony optimisation
  contracted  contract valid regions into clusters and search the cluster
              graph with --algorithm greedy, optimal or aco

Press Ctrl+C to stop a long search; the best candidates found so far are
still reported.`,
		Example: `  pathminer solve network.json -k 2 -l 1
  pathminer solve network.json -s optimal --bound reachable -o results.json
  pathminer solve network.json -s contracted --algorithm aco --render best.svg
  pathminer solve network.json --combine custom --formula "tumor && (a || b)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := fl.apply(cmd, f); err != nil {
				return err
			}
			return c.runSolve(cmd.Context(), args[0], f, &fl)
		},
	}

	fl.register(cmd)
	return cmd
}

// register binds the solve flags to cmd.
func (fl *solveFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&fl.strategy, "strategy", "s", string(pipeline.DefaultStrategy), "search strategy: greedy, optimal, aco, contracted")
	flags.StringVar(&fl.algorithm, "algorithm", string(pipeline.DefaultAlgorithm), "algorithm on the contracted network: greedy, optimal, aco")
	flags.IntVarP(&fl.k, "exceptions", "k", 0, "number of exception vertices (K)")
	flags.IntVarP(&fl.budget, "budget", "l", 0, "case exceptions per dataset (L)")
	flags.StringToIntVar(&fl.budgets, "budgets", nil, "per-dataset budgets, e.g. tumor=2,cellline=0")
	flags.StringVar(&fl.combine, "combine", "", "combine rule over datasets: or, and, custom")
	flags.StringVar(&fl.formula, "formula", "", "boolean formula over dataset names (with --combine custom)")
	flags.StringVar(&fl.heuristic, "heuristic", "", "penalty heuristic: average, total")
	flags.StringVar(&fl.localSearch, "local-search", "", "local search: off, greedy1, greedy2, optimal")
	flags.StringVar(&fl.bound, "bound", "", "branch and bound pruning: none, reachable")
	flags.IntVar(&fl.workers, "workers", search.DefaultWorkers(), "worker goroutines (defaults to the processor count)")
	flags.Uint64Var(&fl.seed, "seed", 0, "random seed")
	flags.IntVarP(&fl.maxResults, "max-results", "n", search.DefaultMaxResults, "maximum number of results")
	flags.IntVar(&fl.iterations, "aco-iterations", search.DefaultMaxIterations, "ant colony iterations per start vertex")
	flags.BoolVar(&fl.iterBest, "iteration-best", false, "ant colony reinforces each iteration's best")

	flags.StringVarP(&fl.output, "output", "o", "", "write results as JSON to this file (- for stdout)")
	flags.StringVar(&fl.render, "render", "", "render the best result to a .dot, .svg or .png file")
	flags.BoolVar(&fl.detailed, "detailed", false, "show penalty and expression in the diagram")
	flags.BoolVar(&fl.context, "context", false, "draw the neighbours of the subnetwork")
	flags.BoolVar(&fl.browse, "browse", false, "pick the result to show and render interactively")
	flags.BoolVar(&fl.save, "save", false, "record the run in the configured store")
	flags.BoolVar(&fl.noCache, "no-cache", false, "disable the result cache")
	flags.BoolVar(&fl.refresh, "refresh", false, "ignore cached results but update the cache")
	flags.DurationVar(&fl.timeout, "timeout", 0, "stop the search after this duration (e.g. 30s)")
}

// apply copies every flag that was set onto f and validates the result.
func (fl *solveFlags) apply(cmd *cobra.Command, f *config.File) error {
	changed := cmd.Flags().Changed
	if changed("strategy") {
		f.Strategy = strings.ToLower(fl.strategy)
	}
	if changed("algorithm") {
		f.Algorithm = strings.ToLower(fl.algorithm)
	}
	if changed("exceptions") {
		f.K = fl.k
	}
	if changed("budget") {
		f.Budget = fl.budget
	}
	if changed("budgets") {
		if f.Budgets == nil {
			f.Budgets = make(map[string]int, len(fl.budgets))
		}
		for name, l := range fl.budgets {
			f.Budgets[name] = l
		}
	}
	if changed("combine") {
		f.Combine = fl.combine
	}
	if changed("formula") {
		f.Formula = fl.formula
	}
	if changed("heuristic") {
		f.Heuristic = fl.heuristic
	}
	if changed("local-search") {
		f.LocalSearch = fl.localSearch
	}
	if changed("bound") {
		f.Bound = fl.bound
	}
	if changed("workers") {
		f.Workers = fl.workers
	}
	if changed("seed") {
		f.Seed = fl.seed
	}
	if changed("max-results") {
		f.MaxResults = fl.maxResults
	}
	if changed("aco-iterations") {
		f.ACO.MaxIterations = fl.iterations
	}
	if changed("iteration-best") {
		f.ACO.IterationBest = fl.iterBest
	}
	if fl.render != "" {
		if _, err := renderFormat(fl.render); err != nil {
			return err
		}
	}
	return f.Validate()
}

// runSolve loads the network, runs the search and writes the outputs.
func (c *CLI) runSolve(ctx context.Context, input string, f *config.File, fl *solveFlags) error {
	logger := loggerFromContext(ctx)

	prog := newProgress(logger)
	g, err := pmio.ImportJSON(input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "load network")
	}
	prog.done("Loaded "+filepath.Base(input),
		"vertices", g.VertexCount(), "edges", g.EdgeCount(), "datasets", g.DatasetCount())

	opts, err := f.Options()
	if err != nil {
		return err
	}
	opts.NoCache = opts.NoCache || fl.noCache
	opts.Refresh = fl.refresh

	runner, err := c.newRunner(ctx, f, opts.NoCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	solveCtx := ctx
	if fl.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, fl.timeout)
		defer cancel()
	}

	spin := startSpinner(solveCtx, os.Stderr, fmt.Sprintf("Searching (%s)...", opts.Label()))
	out, err := runner.Solve(solveCtx, g, opts)
	if err != nil {
		spin.fail("Search failed")
		return err
	}
	spin.stop()

	if fl.save {
		if err := c.saveRun(ctx, f, opts, out); err != nil {
			printWarning("Run not saved: %v", err)
		}
	}

	switch {
	case out.Failed != nil:
		printError("Search aborted: %s", errors.UserMessage(out.Failed))
		return out.Failed
	case out.FormulaErr != nil:
		printWarning("Formula rejected, no vertex is valid: %s", errors.UserMessage(out.FormulaErr))
	case out.Cancelled:
		printWarning("Search stopped early; results are the best found so far")
	}

	if len(out.Results) == 0 {
		printInfo("No subnetwork found")
	} else {
		printSuccess("Found %d subnetwork(s), best fitness %d", len(out.Results), out.Results[0].Fitness)
		printResultTable(out.Results, resultTableRows)
	}
	printStats(g.VertexCount(), g.EdgeCount(), out.Duration, out.Cached)

	if fl.output != "" {
		if err := writeResults(fl.output, out.Results); err != nil {
			return err
		}
		if fl.output != "-" {
			printFile(fl.output)
		}
	}

	if len(out.Results) == 0 {
		return cancelErr(ctx, out)
	}
	best := out.Results[0]
	if fl.browse {
		picked, ok, err := browseResults(out.Results)
		if err != nil {
			return err
		}
		if !ok {
			printDetail("No selection made")
			return cancelErr(ctx, out)
		}
		best = picked
		printResultDetail(best)
	}

	if fl.render != "" {
		if err := renderResult(ctx, g, best, opts.Config, fl); err != nil {
			return err
		}
		printFile(fl.render)
	} else if fl.output == "" {
		printNewline()
		printNextStep("Render the best result", fmt.Sprintf("%s solve %s --render best.svg", appName, input))
	}
	return cancelErr(ctx, out)
}

// cancelErr reports an interrupted search as the context error so the
// process exits with the interrupt status.
func cancelErr(ctx context.Context, out *pipeline.Outcome) error {
	if out.Cancelled && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// saveRun records the outcome in the store named by the config file.
func (c *CLI) saveRun(ctx context.Context, f *config.File, opts pipeline.Options, out *pipeline.Outcome) error {
	st, err := openStore(ctx, f)
	if err != nil {
		return err
	}
	defer st.Close(context.WithoutCancel(ctx))

	run := store.NewRun(string(opts.Strategy), string(opts.Algorithm), out.NetworkHash, opts.Config)
	run.CreatedAt = run.CreatedAt.Add(-out.Duration)
	run.Finish(out.Results, out.Cancelled, out.Failed)
	run.Cached = out.Cached
	if err := st.Save(context.WithoutCancel(ctx), run); err != nil {
		return err
	}
	printInfo("Saved run %s", StyleHighlight.Render(run.ID))
	return nil
}

// writeResults writes results as indented JSON to path, or stdout for "-".
func writeResults(path string, results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// renderResult draws r over g into fl.render. Vertex details need derived
// data, so a network that was answered from the cache is refreshed first.
func renderResult(ctx context.Context, g *network.Graph, r search.Result, cfg search.Config, fl *solveFlags) error {
	logger := loggerFromContext(ctx)
	if fl.detailed && !g.Refreshed() {
		if _, err := search.Prepare(g, cfg); err != nil {
			logger.Warn("vertex details unavailable", "err", err)
		}
	}
	format, err := renderFormat(fl.render)
	if err != nil {
		return err
	}
	dot := render.ToDOT(g, r, render.Options{
		Detailed: fl.detailed,
		Context:  fl.context,
		Title:    fmt.Sprintf("fitness %d, %d exception(s)", r.Fitness, len(r.Exceptions)),
	})
	data, err := render.Render(ctx, dot, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fl.render, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fl.render, err)
	}
	logger.Debug("rendered result", "path", fl.render, "format", format, "bytes", len(data))
	return nil
}

// renderFormat derives the diagram format from the file extension.
func renderFormat(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "dot", "svg", "png":
		return ext, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "cannot render to %q (use .dot, .svg or .png)", path)
	}
}

// browseResults lets the user pick one result.
func browseResults(results []search.Result) (search.Result, bool, error) {
	final, err := tea.NewProgram(NewResultListModel(results)).Run()
	if err != nil {
		return search.Result{}, false, err
	}
	m, ok := final.(ResultListModel)
	if !ok || m.Selected == nil {
		return search.Result{}, false, nil
	}
	return *m.Selected, true, nil
}


package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/search"
)

const pathNetwork = `{
  "nodes": [{"id": "0"}, {"id": "1"}, {"id": "2"}, {"id": "3"}, {"id": "4"}, {"id": "5"}],
  "edges": [
    {"from": "0", "to": "1"}, {"from": "1", "to": "2"}, {"from": "2", "to": "3"},
    {"from": "3", "to": "4"}, {"from": "4", "to": "5"}
  ],
  "datasets": [{
    "name": "d0",
    "cases": 2,
    "expression": {"0": [1, 1], "1": [1, 1], "2": [0, 1], "3": [1, 0], "4": [1, 1], "5": [0, 0]}
  }]
}`

func writeNetwork(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.json")
	if err := os.WriteFile(path, []byte(pathNetwork), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSolveFlagsApply(t *testing.T) {
	cmd, fl := parseSolveFlags(t,
		"-s", "Optimal", "-k", "2", "-l", "1",
		"--budgets", "tumor=3",
		"--heuristic", "total",
		"--bound", "reachable",
		"--seed", "7",
		"--aco-iterations", "50",
	)

	f := config.Default()
	f.Budgets = map[string]int{"cellline": 0}
	f.Workers = 3
	if err := fl.apply(cmd, f); err != nil {
		t.Fatalf("apply() error: %v", err)
	}

	if f.Strategy != "optimal" {
		t.Errorf("Strategy = %q, want optimal", f.Strategy)
	}
	if f.K != 2 || f.Budget != 1 {
		t.Errorf("K, Budget = %d, %d, want 2, 1", f.K, f.Budget)
	}
	if f.Budgets["tumor"] != 3 || f.Budgets["cellline"] != 0 || len(f.Budgets) != 2 {
		t.Errorf("Budgets = %v, want config and flag entries merged", f.Budgets)
	}
	if f.Heuristic != "total" || f.Bound != "reachable" {
		t.Errorf("Heuristic, Bound = %q, %q", f.Heuristic, f.Bound)
	}
	if f.Seed != 7 || f.ACO.MaxIterations != 50 {
		t.Errorf("Seed, MaxIterations = %d, %d, want 7, 50", f.Seed, f.ACO.MaxIterations)
	}
	if f.Workers != 3 {
		t.Errorf("Workers = %d, unset flag must keep the config value 3", f.Workers)
	}
}

func TestSolveFlagsApplyInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"negative k", []string{"-k=-1"}, errors.ErrCodeInvalidConfig},
		{"unknown heuristic", []string{"--heuristic", "median"}, errors.ErrCodeInvalidConfig},
		{"render format", []string{"--render", "out.pdf"}, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, fl := parseSolveFlags(t, tt.args...)
			err := fl.apply(cmd, config.Default())
			if err == nil {
				t.Fatal("apply() should fail")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

// parseSolveFlags binds the solve flags to a bare command and parses args.
func parseSolveFlags(t *testing.T, args ...string) (*cobra.Command, *solveFlags) {
	t.Helper()
	var fl solveFlags
	cmd := &cobra.Command{Use: "solve"}
	fl.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	return cmd, &fl
}

func TestRenderFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"best.svg", "svg", false},
		{"out/best.PNG", "png", false},
		{"graph.dot", "dot", false},
		{"best.pdf", "", true},
		{"best", "", true},
	}
	for _, tt := range tests {
		got, err := renderFormat(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("renderFormat(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("renderFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	if err := writeResults(path, nil); err != nil {
		t.Fatalf("writeResults() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("nil results written as %q, want []", data)
	}

	want := []search.Result{{Fitness: 2, Vertices: []string{"a", "b"}, Exceptions: []string{"b"}, InfoContent: 1.5}}
	if err := writeResults(path, want); err != nil {
		t.Fatalf("writeResults() error: %v", err)
	}
	var got []search.Result
	data, _ = os.ReadFile(path)
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("results are not JSON: %v", err)
	}
	if len(got) != 1 || got[0].Fitness != 2 || got[0].Exceptions[0] != "b" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSolveCommand(t *testing.T) {
	t.Setenv(configEnv, "")
	input := writeNetwork(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "results.json")
	dot := filepath.Join(dir, "best.dot")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{
		"solve", input,
		"-s", "optimal", "-k", "1", "-l", "1",
		"--heuristic", "total", "--seed", "3",
		"--no-cache", "-o", out, "--render", dot,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("solve error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("results not written: %v", err)
	}
	var results []search.Result
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("results are not JSON: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Fitness != 5 {
		t.Errorf("best fitness = %d, want 5", results[0].Fitness)
	}

	diagram, err := os.ReadFile(dot)
	if err != nil {
		t.Fatalf("diagram not written: %v", err)
	}
	if !strings.Contains(string(diagram), "graph") {
		t.Errorf("diagram is not DOT source:\n%s", diagram)
	}
}

func TestSolveCommandMissingInput(t *testing.T) {
	t.Setenv(configEnv, "")
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"solve", filepath.Join(t.TempDir(), "missing.json"), "--no-cache"})
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("solve should fail for a missing network")
	}
	if got := errors.GetCode(err); got != errors.ErrCodeInvalidGraph {
		t.Errorf("code = %s, want %s", got, errors.ErrCodeInvalidGraph)
	}
}

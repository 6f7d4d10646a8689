package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/pipeline"
	"github.com/matzehuels/pathminer/pkg/search"
)

const tomlConfig = `
strategy = "contracted"
algorithm = "optimal"
k = 2
budget = 1
combine = "custom"
formula = "tumor && normal"
heuristic = "total"
local_search = "greedy2"
bound = "reachable"
workers = 2
seed = 99

[budgets]
tumor = 3

[aco]
rho = 0.2
rho_decay = "linear"
tradeoff = "additive"
iteration_best = true

[cache]
ttl = "24h"
redis = "redis://localhost:6379/0"
`

const yamlConfig = `
strategy: aco
k: 1
combine: and
budgets:
  tumor: 2
aco:
  max_iterations: 50
server:
  addr: ":9090"
  metrics: true
store:
  mongo_uri: mongodb://localhost:27017
`

func TestParseTOML(t *testing.T) {
	f, err := Parse([]byte(tomlConfig), ".toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts, err := f.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	cfg := opts.Config

	if opts.Strategy != pipeline.StrategyContracted || opts.Algorithm != pipeline.StrategyOptimal {
		t.Errorf("strategy = %s/%s", opts.Strategy, opts.Algorithm)
	}
	if cfg.K != 2 || cfg.DefaultBudget != 1 || cfg.Budgets["tumor"] != 3 {
		t.Errorf("budgets: k=%d default=%d map=%v", cfg.K, cfg.DefaultBudget, cfg.Budgets)
	}
	if cfg.Combine != combine.CUSTOM || cfg.Formula != "tumor && normal" {
		t.Errorf("combine = %s %q", cfg.Combine, cfg.Formula)
	}
	if cfg.Heuristic != network.HeuristicTotal {
		t.Errorf("heuristic = %s", cfg.Heuristic)
	}
	if cfg.LocalSearch != search.LocalSearchGreedy2 || cfg.Bound != search.BoundReachable {
		t.Errorf("local search = %s, bound = %s", cfg.LocalSearch, cfg.Bound)
	}
	if cfg.Workers != 2 || cfg.Seed != 99 {
		t.Errorf("workers = %d, seed = %d", cfg.Workers, cfg.Seed)
	}
	if cfg.ACO.Rho != 0.2 || cfg.ACO.RhoDecay != search.RhoLinear || cfg.ACO.Tradeoff != search.Additive || !cfg.ACO.IterationBest {
		t.Errorf("aco = %+v", cfg.ACO)
	}
	if cfg.ACO.MaxIterations != search.DefaultMaxIterations {
		t.Errorf("absent keys keep defaults, max iterations = %d", cfg.ACO.MaxIterations)
	}
	if opts.CacheTTL != 24*time.Hour {
		t.Errorf("ttl = %v", opts.CacheTTL)
	}
	if f.Cache.Redis != "redis://localhost:6379/0" {
		t.Errorf("redis = %q", f.Cache.Redis)
	}
}

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte(yamlConfig), ".yml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts, err := f.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != pipeline.StrategyACO {
		t.Errorf("strategy = %s", opts.Strategy)
	}
	if opts.Config.Combine != combine.AND || opts.Config.K != 1 {
		t.Errorf("combine = %s, k = %d", opts.Config.Combine, opts.Config.K)
	}
	if opts.Config.ACO.MaxIterations != 50 {
		t.Errorf("max iterations = %d", opts.Config.ACO.MaxIterations)
	}
	if f.Server.Addr != ":9090" || !f.Server.Metrics {
		t.Errorf("server = %+v", f.Server)
	}
	if f.Store.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("store = %+v", f.Store)
	}
}

func TestParseEmptyYAMLIsDefault(t *testing.T) {
	f, err := Parse(nil, ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts, err := f.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != pipeline.DefaultStrategy {
		t.Errorf("strategy = %s", opts.Strategy)
	}
	if f.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q", f.Server.Addr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		ext     string
		wantErr string
	}{
		{"format", "k = 1", ".ini", "unsupported"},
		{"syntax", "k = ", ".toml", "decode toml"},
		{"unknown toml key", "kk = 1", ".toml", "unknown key"},
		{"unknown yaml key", "kk: 1", ".yaml", "decode yaml"},
		{"negative k", "k = -1", ".toml", "k must be >= 0"},
		{"negative budget", "[budgets]\ntumor = -2", ".toml", "budgets[tumor] must be >= 0"},
		{"strategy", `strategy = "bnb"`, ".toml", "strategy must be one of"},
		{"rho", "[aco]\nrho = 1.5", ".toml", "aco.rho must be < 1"},
		{"enum", `heuristic = "median"`, ".toml", "median"},
		{"ttl", "[cache]\nttl = \"soon\"", ".toml", "cache ttl"},
		{"addr", "server:\n  addr: nope", ".yaml", "server.addr must be host:port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseErrorCodes(t *testing.T) {
	_, err := Parse([]byte("k = -1"), ".toml")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("code = %s", errors.GetCode(err))
	}
	_, err = Parse(nil, ".json")
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("code = %s", errors.GetCode(err))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathminer.toml")
	if err := os.WriteFile(path, []byte(tomlConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.K != 2 {
		t.Errorf("k = %d", f.K)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestDefaultMatchesSearchDefaults(t *testing.T) {
	opts, err := Default().Options()
	if err != nil {
		t.Fatal(err)
	}
	want := search.Defaults()
	if opts.Config.Workers != want.Workers || opts.Config.ACO != want.ACO || opts.Config.MaxResults != want.MaxResults {
		t.Errorf("default config = %+v, want %+v", opts.Config, want)
	}
}

func TestZeroACOWeights(t *testing.T) {
	f, err := Parse([]byte("[aco]\nalpha = 0\ntradeoff = \"additive\"\n"), ".toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts, err := f.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	a := opts.Config.ACO
	if a.Alpha != 0 || a.Beta != search.DefaultBeta {
		t.Errorf("alpha = %g, beta = %g; want 0, %g", a.Alpha, a.Beta, search.DefaultBeta)
	}
	if got := a.Weight(0.9, 0.5); got != 0.5 {
		t.Errorf("Weight(0.9, 0.5) = %g, want 0.5", got)
	}
}

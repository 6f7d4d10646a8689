// Package config loads pathminer configuration files.
//
// A file is TOML (.toml) or YAML (.yaml, .yml); the format follows the
// extension. Keys that are absent keep their defaults. Enumerations are
// written by name and matched case-insensitively:
//
//	strategy = "contracted"
//	algorithm = "optimal"
//	k = 2
//	budget = 1
//	combine = "custom"
//	formula = "tumor && (cellline1 || cellline2)"
//	heuristic = "total"
//	local_search = "greedy2"
//
//	[budgets]
//	tumor = 3
//
//	[aco]
//	rho = 0.2
//	iteration_best = true
//
//	[cache]
//	redis = "redis://localhost:6379/0"
//	ttl = "24h"
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/pathminer/pkg/errors"
	"github.com/matzehuels/pathminer/pkg/pipeline"
	"github.com/matzehuels/pathminer/pkg/search"
)

// File is the on-disk configuration.
type File struct {
	Strategy  string `toml:"strategy" yaml:"strategy" validate:"omitempty,oneof=greedy optimal aco contracted"`
	Algorithm string `toml:"algorithm" yaml:"algorithm" validate:"omitempty,oneof=greedy optimal aco"`

	K       int            `toml:"k" yaml:"k" validate:"gte=0"`
	Budget  int            `toml:"budget" yaml:"budget" validate:"gte=0"`
	Budgets map[string]int `toml:"budgets" yaml:"budgets" validate:"dive,keys,required,endkeys,gte=0"`

	Combine     string `toml:"combine" yaml:"combine"`
	Formula     string `toml:"formula" yaml:"formula"`
	Heuristic   string `toml:"heuristic" yaml:"heuristic"`
	LocalSearch string `toml:"local_search" yaml:"local_search"`
	Bound       string `toml:"bound" yaml:"bound"`

	Workers    int    `toml:"workers" yaml:"workers" validate:"gte=1,lte=1024"`
	Seed       uint64 `toml:"seed" yaml:"seed"`
	MaxResults int    `toml:"max_results" yaml:"max_results" validate:"gte=1"`

	ACO    ACO    `toml:"aco" yaml:"aco"`
	Cache  Cache  `toml:"cache" yaml:"cache"`
	Store  Store  `toml:"store" yaml:"store"`
	Server Server `toml:"server" yaml:"server"`
}

// ACO holds the ant colony section.
type ACO struct {
	Alpha                 float64 `toml:"alpha" yaml:"alpha" validate:"gte=0"`
	Beta                  float64 `toml:"beta" yaml:"beta" validate:"gte=0"`
	Rho                   float64 `toml:"rho" yaml:"rho" validate:"gt=0,lt=1"`
	RhoDecay              string  `toml:"rho_decay" yaml:"rho_decay"`
	TauMin                float64 `toml:"tau_min" yaml:"tau_min" validate:"gt=0,lt=0.5"`
	Tradeoff              string  `toml:"tradeoff" yaml:"tradeoff"`
	StartNodes            int     `toml:"start_nodes" yaml:"start_nodes" validate:"gte=1"`
	MaxIterations         int     `toml:"max_iterations" yaml:"max_iterations" validate:"gte=1"`
	MaxStagnation         int     `toml:"max_stagnation" yaml:"max_stagnation" validate:"gte=1"`
	SolutionsPerIteration int     `toml:"solutions_per_iteration" yaml:"solutions_per_iteration" validate:"gte=1"`
	IterationBest         bool    `toml:"iteration_best" yaml:"iteration_best"`
}

// Cache selects the result cache backend. Redis wins over Dir when both are
// set.
type Cache struct {
	Disabled bool   `toml:"disabled" yaml:"disabled"`
	Dir      string `toml:"dir" yaml:"dir"`
	Redis    string `toml:"redis" yaml:"redis" validate:"omitempty,url"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	TTL      string `toml:"ttl" yaml:"ttl"`
}

// Store selects where the HTTP server keeps runs. An empty MongoURI keeps
// them in memory.
type Store struct {
	MongoURI string `toml:"mongo_uri" yaml:"mongo_uri" validate:"omitempty,url"`
	Database string `toml:"database" yaml:"database"`
}

// Server configures the HTTP API.
type Server struct {
	Addr    string `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Metrics bool   `toml:"metrics" yaml:"metrics"`
}

// DefaultAddr is the HTTP listen address used when none is configured.
const DefaultAddr = "localhost:8080"

// Default returns a File carrying every default.
func Default() *File {
	cfg := search.Defaults()
	return &File{
		Strategy:    string(pipeline.DefaultStrategy),
		Algorithm:   string(pipeline.DefaultAlgorithm),
		K:           cfg.K,
		Budget:      cfg.DefaultBudget,
		Combine:     cfg.Combine.String(),
		Heuristic:   cfg.Heuristic.String(),
		LocalSearch: cfg.LocalSearch.String(),
		Bound:       cfg.Bound.String(),
		Workers:     cfg.Workers,
		Seed:        cfg.Seed,
		MaxResults:  cfg.MaxResults,
		ACO: ACO{
			Alpha:                 cfg.ACO.Alpha,
			Beta:                  cfg.ACO.Beta,
			Rho:                   cfg.ACO.Rho,
			RhoDecay:              cfg.ACO.RhoDecay.String(),
			TauMin:                cfg.ACO.TauMin,
			Tradeoff:              cfg.ACO.Tradeoff.String(),
			StartNodes:            cfg.ACO.StartNodes,
			MaxIterations:         cfg.ACO.MaxIterations,
			MaxStagnation:         cfg.ACO.MaxStagnation,
			SolutionsPerIteration: cfg.ACO.SolutionsPerIteration,
			IterationBest:         cfg.ACO.IterationBest,
		},
		Server: Server{Addr: DefaultAddr},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data in the format named by ext (".toml", ".yaml", ".yml")
// on top of the defaults and validates the result.
func Parse(data []byte, ext string) (*File, error) {
	f := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and that every enumeration parses.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return formatValidationError(err)
	}
	if _, err := f.Options(); err != nil {
		return err
	}
	return nil
}

// Options converts the file into solve options.
func (f *File) Options() (pipeline.Options, error) {
	var cfg search.Config
	cfg.K = f.K
	cfg.DefaultBudget = f.Budget
	if len(f.Budgets) > 0 {
		cfg.Budgets = make(map[string]int, len(f.Budgets))
		for name, l := range f.Budgets {
			cfg.Budgets[name] = l
		}
	}
	cfg.Formula = f.Formula
	cfg.Workers = f.Workers
	cfg.Seed = f.Seed
	cfg.MaxResults = f.MaxResults
	cfg.ACO = search.ACOConfig{
		Alpha:                 f.ACO.Alpha,
		Beta:                  f.ACO.Beta,
		Rho:                   f.ACO.Rho,
		TauMin:                f.ACO.TauMin,
		StartNodes:            f.ACO.StartNodes,
		MaxIterations:         f.ACO.MaxIterations,
		MaxStagnation:         f.ACO.MaxStagnation,
		SolutionsPerIteration: f.ACO.SolutionsPerIteration,
		IterationBest:         f.ACO.IterationBest,
	}

	enums := []struct {
		value string
		dst   interface{ UnmarshalText([]byte) error }
	}{
		{f.Combine, &cfg.Combine},
		{f.Heuristic, &cfg.Heuristic},
		{f.LocalSearch, &cfg.LocalSearch},
		{f.Bound, &cfg.Bound},
		{f.ACO.RhoDecay, &cfg.ACO.RhoDecay},
		{f.ACO.Tradeoff, &cfg.ACO.Tradeoff},
	}
	for _, e := range enums {
		if e.value == "" {
			continue
		}
		if err := e.dst.UnmarshalText([]byte(e.value)); err != nil {
			return pipeline.Options{}, err
		}
	}

	opts := pipeline.Options{
		Strategy:  pipeline.Strategy(strings.ToLower(f.Strategy)),
		Algorithm: pipeline.Strategy(strings.ToLower(f.Algorithm)),
		Config:    cfg,
		NoCache:   f.Cache.Disabled,
	}
	ttl, err := f.Cache.ParseTTL()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.CacheTTL = ttl
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// ParseTTL returns the configured TTL, or zero when unset.
func (c Cache) ParseTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "cache ttl %q must be a positive duration", c.TTL)
	}
	return d, nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "File."))
	switch e.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, e.Param())
	case "lt":
		return fmt.Sprintf("%s must be < %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a url", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

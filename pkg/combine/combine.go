// Package combine evaluates how per-dataset conditions are merged into one
// verdict.
//
// Active-subnetwork extraction works over several expression datasets at once.
// For every vertex (validity) and every candidate solution (budget usage) the
// engine derives one boolean per dataset, and a combine [Rule] decides whether
// the conjunction, the disjunction, or a user formula over those booleans
// holds.
//
// CUSTOM formulas are JavaScript-style boolean expressions over dataset
// names, e.g. "tcga && (geo1 || !geo2)". They are evaluated once per
// assignment with the otto interpreter when the [Predicate] is compiled, so
// hot loops only perform a table lookup.
package combine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robertkrimen/otto"

	"github.com/matzehuels/pathminer/pkg/errors"
)

// MaxCustomDatasets bounds the truth table built for CUSTOM formulas
// (2^MaxCustomDatasets entries).
const MaxCustomDatasets = 12

// FormulaTimeout bounds the time spent building the truth table of a CUSTOM
// formula. A formula that has not finished by then is never satisfied.
var FormulaTimeout = 2 * time.Second

// Rule selects how dataset flags are combined.
type Rule int

const (
	// OR holds when at least one dataset flag is set.
	OR Rule = iota
	// AND holds when every dataset flag is set.
	AND
	// CUSTOM evaluates a user formula over the dataset flags.
	CUSTOM
)

// String returns the canonical upper-case name of the rule.
func (r Rule) String() string {
	switch r {
	case OR:
		return "OR"
	case AND:
		return "AND"
	case CUSTOM:
		return "CUSTOM"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

// ParseRule parses a rule name case-insensitively.
func ParseRule(s string) (Rule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OR", "":
		return OR, nil
	case "AND":
		return AND, nil
	case "CUSTOM":
		return CUSTOM, nil
	}
	return OR, errors.New(errors.ErrCodeInvalidConfig, "unknown combine rule %q (must be one of: OR, AND, CUSTOM)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rule) UnmarshalText(b []byte) error {
	v, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Predicate is a compiled combine rule over a fixed, ordered list of datasets.
// Bit i of the mask passed to Eval is the flag for dataset i.
//
// A Predicate is immutable after Compile and safe for concurrent use.
type Predicate struct {
	rule  Rule
	n     int
	full  uint64
	table []bool // CUSTOM only, indexed by mask
}

// Compile builds a Predicate for datasets (in bit order). It is
// CompileContext with a background context.
func Compile(rule Rule, formula string, datasets []string) (*Predicate, error) {
	return CompileContext(context.Background(), rule, formula, datasets)
}

// CompileContext builds a Predicate for datasets (in bit order).
//
// For CUSTOM, a formula that fails to parse or references unknown identifiers
// yields a predicate that is never satisfied, together with a non-nil error
// describing the problem. Callers are expected to report the error and keep
// running: an unusable formula means "condition not satisfied", never an
// aborted solve. Evaluation of the formula stops when ctx ends or after
// FormulaTimeout, whichever comes first, and is reported the same way.
func CompileContext(ctx context.Context, rule Rule, formula string, datasets []string) (*Predicate, error) {
	n := len(datasets)
	p := &Predicate{rule: rule, n: n}
	if n >= 64 {
		return never(n), errors.New(errors.ErrCodeInvalidConfig, "too many datasets: %d", n)
	}
	p.full = (uint64(1) << n) - 1

	if rule != CUSTOM {
		return p, nil
	}
	if n > MaxCustomDatasets {
		return never(n), errors.New(errors.ErrCodeInvalidFormula,
			"CUSTOM combine supports at most %d datasets, got %d", MaxCustomDatasets, n)
	}
	if strings.TrimSpace(formula) == "" {
		return never(n), errors.New(errors.ErrCodeInvalidFormula, "CUSTOM combine requires a formula")
	}

	table, err := truthTable(ctx, formula, datasets)
	if err != nil {
		return never(n), err
	}
	p.table = table
	return p, nil
}

// never returns a CUSTOM predicate whose every entry is false.
func never(n int) *Predicate {
	size := 1
	if n <= MaxCustomDatasets {
		size = 1 << n
	}
	return &Predicate{rule: CUSTOM, n: n, table: make([]bool, size)}
}

// halt is the value otto's interrupt handler panics with.
type halt struct{ err error }

// truthTable evaluates formula for every assignment of the dataset flags.
func truthTable(ctx context.Context, formula string, datasets []string) ([]bool, error) {
	vm := otto.New()
	script, err := vm.Compile("", formula)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormula, err, "parse formula %q", formula)
	}

	ctx, cancel := context.WithTimeout(ctx, FormulaTimeout)
	defer cancel()
	vm.Interrupt = make(chan func(), 1)
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt <- func() { panic(halt{ctx.Err()}) }
	})
	defer stop()

	n := len(datasets)
	table := make([]bool, 1<<n)
	for mask := range table {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormula, err, "evaluate formula %q", formula)
		}
		for i, name := range datasets {
			if err := vm.Set(name, mask&(1<<i) != 0); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormula, err, "bind dataset %q", name)
			}
		}
		v, err := run(vm, script)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormula, err, "evaluate formula %q", formula)
		}
		b, err := v.ToBoolean()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormula, err, "formula %q is not boolean", formula)
		}
		table[mask] = b
	}
	return table, nil
}

// run executes script, turning an interrupt into an error.
func run(vm *otto.Otto, script *otto.Script) (v otto.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, ok := r.(halt)
			if !ok {
				panic(r)
			}
			err = h.err
		}
	}()
	return vm.Run(script)
}

// Rule returns the rule the predicate was compiled from.
func (p *Predicate) Rule() Rule { return p.rule }

// Len returns the number of datasets the predicate ranges over.
func (p *Predicate) Len() int { return p.n }

// Eval reports whether the rule holds for the given dataset flags.
// Bits above Len are ignored.
func (p *Predicate) Eval(mask uint64) bool {
	mask &= p.full
	switch p.rule {
	case AND:
		return mask == p.full
	case CUSTOM:
		if int(mask) >= len(p.table) {
			return false
		}
		return p.table[mask]
	default:
		return mask != 0
	}
}

// EvalFlags is a convenience wrapper around Eval for a flag slice.
func (p *Predicate) EvalFlags(flags []bool) bool {
	var mask uint64
	for i, f := range flags {
		if f && i < 64 {
			mask |= 1 << i
		}
	}
	return p.Eval(mask)
}

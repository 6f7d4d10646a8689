package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// datasetNamePattern matches names usable as identifiers inside a CUSTOM
// combine formula. Formulas reference datasets by name, so a dataset whose
// name is not an identifier could never be addressed.
var datasetNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// reservedFormulaWords cannot be used as dataset names because the formula
// evaluator would read them as literals or operators.
var reservedFormulaWords = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true,
	"var": true, "function": true, "return": true, "if": true, "else": true,
	"new": true, "this": true, "typeof": true, "in": true, "NaN": true,
}

// ValidateDatasetName checks that a dataset name can be referenced from a
// CUSTOM combine formula.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 64 characters
//   - Letters, digits, '_' and '$' only, not starting with a digit
//   - Not a reserved formula word
func ValidateDatasetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "dataset name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "dataset name too long (max 64 characters)")
	}
	if !datasetNamePattern.MatchString(name) {
		return New(ErrCodeInvalidInput, "dataset name %q must be an identifier", name)
	}
	if reservedFormulaWords[name] {
		return New(ErrCodeInvalidInput, "dataset name %q is reserved", name)
	}
	return nil
}

// ValidateVertexID validates a vertex identifier from an input network.
//
// IDs are free-form (gene symbols, Entrez ids, UniProt accessions), but must
// be non-empty, at most 256 characters, and free of control characters so they
// survive DOT rendering and JSON round trips.
func ValidateVertexID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGraph, "vertex id cannot be empty")
	}
	if len(id) > 256 {
		return New(ErrCodeInvalidGraph, "vertex id too long (max 256 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidGraph, "vertex id %q contains control characters", id)
		}
	}
	return nil
}

// ValidateRunID validates a run identifier received from an API caller.
// Run ids are UUID strings; anything with path separators is rejected early.
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "run id too long")
	}
	if strings.ContainsAny(id, "/\\.\x00") {
		return New(ErrCodeInvalidInput, "run id contains invalid characters")
	}
	return nil
}

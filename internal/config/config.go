// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package config holds the CLI surface the core solver consumes (spec.md
// §6): verbosity, force-resolve, memory limit, compare-with-reference,
// output redirection, variant selection, and data path.
package config

import (
	"github.com/c2h5oh/datasize"
)

// Solve collects the flags a single solve invocation needs.
type Solve struct {
	// Verbose is the level of detail to log; 0 is quiet.
	Verbose int
	// Force re-solves tiers even if already marked solved.
	Force bool
	// MemLimit approximately bounds the worker's frontier/reverse-graph
	// memory footprint, parsed from strings like "4GB" via datasize so
	// operators don't have to do byte arithmetic by hand.
	MemLimit datasize.ByteSize
	// Compare checks every solved record against a reference database.
	Compare bool
	// Output holds the -output path. It is only stored: solve progress
	// output is not redirected to it.
	Output string
	// Variant holds the -variant index. It is only stored: neither
	// built-in adapter takes a variant, so it selects nothing.
	Variant int
	// DataPath is the tier database's data directory.
	DataPath string
}

// ParseMemLimit parses a human memory-limit string such as "512MB" or
// "4GB" into a datasize.ByteSize, matching the -memlimit CLI flag's
// contract in spec.md §6.
func ParseMemLimit(s string) (datasize.ByteSize, error) {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return v, nil
}

// DefaultMemLimit equals the -memlimit flag's default; cmd/gmsolve spells
// that default as the string "2GB" rather than reading this variable.
var DefaultMemLimit = 2 * datasize.GB

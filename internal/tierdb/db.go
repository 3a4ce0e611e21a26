// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package tierdb defines the opaque tier database the solver core reads
// and writes through, and ships two implementations: MDBXStore (the
// production, persistent backend, grounded on the teacher's own
// github.com/erigontech/mdbx-go dependency) and MemStore (an in-memory
// backend for tests and the self-test harness).
//
// Exact byte layout is each implementation's concern; the core only
// requires that Flush followed by Load round-trips every (value,
// remoteness) pair exactly (spec.md §8 property 7).
package tierdb

import (
	"context"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// Probe is a read handle reused across many probes of the same tier, so
// implementations can amortize setup cost (e.g. a single read
// transaction) across a whole tier scan. Callers must call Close when
// done.
type Probe interface {
	Value(p tier.Position) (value.Value, error)
	Remoteness(p tier.Position) (value.Remoteness, error)
	Close() error
}

// WritableTier is the in-memory, per-position-writable record array for
// the tier currently being solved. No aliasing occurs across positions by
// construction: each position is written by exactly one goroutine (the
// one that zeroed its undecided-child counter), so implementations need
// no internal locking for SetValue/SetRemoteness themselves.
type WritableTier interface {
	SetValue(p tier.Position, v value.Value)
	SetRemoteness(p tier.Position, r value.Remoteness)
	Size() int64
}

// DB is the tier database interface the solver core consumes.
type DB interface {
	// Status reports t's solved/corrupted/missing/check-error status.
	Status(ctx context.Context, t tier.Tier) (tier.Status, error)

	// CreateSolvingTier allocates a writable record array for t sized to
	// hold size positions, all initialized to (Undecided, NoRemoteness).
	CreateSolvingTier(ctx context.Context, t tier.Tier, size int64) (WritableTier, error)

	// Flush persists w's contents for tier t to the backing store and
	// marks t solved. The in-memory copy is not freed by Flush itself;
	// callers drop their reference to w afterward.
	Flush(ctx context.Context, t tier.Tier, w WritableTier) error

	// NewProbe opens a read handle onto t's persisted records, usable
	// only after t has been flushed (or loaded). Returns an error if t's
	// status is not StatusSolved.
	NewProbe(ctx context.Context, t tier.Tier) (Probe, error)

	// Unload releases any cached in-memory state for t (e.g. a loaded
	// record array held for repeated probing); subsequent NewProbe calls
	// re-read from the backing store.
	Unload(t tier.Tier) error

	// Close releases all resources held by the database (e.g. the mdbx
	// environment).
	Close() error
}

// ReferenceDB is an optional second database consulted in compare mode
// (spec.md §8 property 8): every non-undecided record in it must match
// the corresponding record in the primary DB exactly.
type ReferenceDB interface {
	NewProbe(ctx context.Context, t tier.Tier) (Probe, error)
}

// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package adapter defines the game adapter: a capability record of
// function-valued fields the tier solver consumes. The game is never an
// interface to implement by embedding or inheritance — it is a plain
// struct of named functions, each with a documented contract, so required
// and optional capabilities are distinguished statically and the dispatch
// stays explicit and independently testable (spec.md §9 "Function-valued
// adapter instead of inheritance").
package adapter

import (
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// Move is an opaque, game-defined move identifier.
type Move int64

// Adapter is the full set of primitives the tier solver may call. The
// Required fields must be non-nil: Validate reports the first nil one, and
// manager.New returns that error; the Optional fields may be left nil, in which case the core substitutes
// the fallback documented on each field (see fallback.go).
type Adapter struct {
	// --- Required ---

	// GetInitialTier returns the initial tier of the current game variant.
	GetInitialTier func() tier.Tier

	// GetInitialPosition returns the initial position within the initial
	// tier.
	GetInitialPosition func() tier.Position

	// GetTierSize returns the number of positions in t: the database will
	// allocate a record array of this size. Returning a value smaller than
	// the true size causes an out-of-bounds write; larger wastes memory
	// but is otherwise harmless.
	GetTierSize func(t tier.Tier) int64

	// GenerateMoves returns the moves available at tp.
	GenerateMoves func(tp tier.TierPosition) []Move

	// Primitive returns the value of tp if tp is primitive, or
	// value.Undecided otherwise.
	Primitive func(tp tier.TierPosition) value.Value

	// DoMove returns the tier position reached by playing m at tp.
	DoMove func(tp tier.TierPosition, m Move) tier.TierPosition

	// IsLegalPosition returns false if tp is definitely illegal. A true
	// result does not guarantee reachability from the initial position,
	// but a false result guarantees unreachability; all other primitives
	// are well-defined when called on a legal position.
	IsLegalPosition func(tp tier.TierPosition) bool

	// GetChildTiers returns the child tiers of t: tiers containing at
	// least one position reachable by a single move from a position in t.
	GetChildTiers func(t tier.Tier) []tier.Tier

	// --- Optional: Position Symmetry Removal ---

	// GetCanonicalPosition returns the canonical (smallest-hash)
	// representative of tp's symmetry class within the same tier.
	// Enables Position Symmetry Removal; if nil, every position is its
	// own canonical representative.
	GetCanonicalPosition func(tp tier.TierPosition) tier.Position

	// --- Optional: canonical child enumeration (an optimization over
	// generate-move/do-move/canonicalize/dedupe; see fallback.go) ---

	// GetNumberOfCanonicalChildPositions returns the number of unique
	// canonical child positions of tp.
	GetNumberOfCanonicalChildPositions func(tp tier.TierPosition) int

	// GetCanonicalChildPositions returns the unique canonical child
	// positions of tp.
	GetCanonicalChildPositions func(tp tier.TierPosition) []tier.TierPosition

	// --- Optional: Retrograde Analysis ---

	// GetCanonicalParentPositions returns the unique canonical parent
	// positions of child, restricted to parentTier. If nil, the worker
	// builds and consumes a reverse graph instead (see
	// internal/reversegraph).
	GetCanonicalParentPositions func(child tier.TierPosition, parentTier tier.Tier) []tier.Position

	// --- Optional: Tier Symmetry Removal ---

	// GetPositionInSymmetricTier returns the position symmetric to tp
	// within the given symmetric tier. symmetric must share tp.Tier's
	// canonical tier.
	GetPositionInSymmetricTier func(tp tier.TierPosition, symmetric tier.Tier) tier.Position

	// GetCanonicalTier returns the canonical tier symmetric to t, or t
	// itself if already canonical. If nil, every tier is canonical.
	GetCanonicalTier func(t tier.Tier) tier.Tier

	// --- Optional: advisory ---

	// GetTierType declares whether t is immediate-transition, loop-free,
	// or loopy. If nil, every tier is treated as Loopy (the conservative
	// default — correct, possibly slower).
	GetTierType func(t tier.Tier) tier.Type

	// GetTierName converts t to the file-name-safe string used to name
	// its database file. If nil, tier.FormatName(t) is used.
	GetTierName func(t tier.Tier) (string, error)
}

// HasSymmetryRemoval reports whether Position Symmetry Removal is active
// for this adapter.
func (a *Adapter) HasSymmetryRemoval() bool {
	return a.GetCanonicalPosition != nil
}

// HasRetrogradeAnalysis reports whether the adapter supplies native parent
// enumeration, avoiding the reverse-graph fallback.
func (a *Adapter) HasRetrogradeAnalysis() bool {
	return a.GetCanonicalParentPositions != nil
}

// HasTierSymmetryRemoval reports whether Tier Symmetry Removal is active.
func (a *Adapter) HasTierSymmetryRemoval() bool {
	return a.GetPositionInSymmetricTier != nil && a.GetCanonicalTier != nil
}

// Validate checks that every required field is set, returning a
// descriptive error naming the first missing one if not.
func (a *Adapter) Validate() error {
	type req struct {
		name string
		ok   bool
	}
	reqs := []req{
		{"GetInitialTier", a.GetInitialTier != nil},
		{"GetInitialPosition", a.GetInitialPosition != nil},
		{"GetTierSize", a.GetTierSize != nil},
		{"GenerateMoves", a.GenerateMoves != nil},
		{"Primitive", a.Primitive != nil},
		{"DoMove", a.DoMove != nil},
		{"IsLegalPosition", a.IsLegalPosition != nil},
		{"GetChildTiers", a.GetChildTiers != nil},
	}
	for _, r := range reqs {
		if !r.ok {
			return missingRequiredField(r.name)
		}
	}
	return nil
}

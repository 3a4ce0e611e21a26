// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package testharness implements randomized validation of a game
// adapter's invariants (spec.md §4.6): for a sample of positions in a
// tier, it checks the tier-symmetry involution, that every canonical
// child is legal and in range, that every child lists the position back
// among its parents, and that every supplied parent tier's canonical
// parents list the position among their children.
package testharness

import (
	"math/rand"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// Options configures a single harness run.
type Options struct {
	Adapter *adapter.Adapter
	Tier    tier.Tier
	// ParentTiers are additionally checked for Parent->child matching; a
	// tier not actually a parent of Tier is harmless to include (it will
	// simply contribute no canonical-parent positions of interest, since
	// GetCanonicalParentPositions is itself restricted to it).
	ParentTiers []tier.Tier
	// Samples bounds how many positions are drawn; fewer are drawn if
	// the tier is smaller.
	Samples int64
	// Seed makes the sample deterministic across runs.
	Seed int64
}

// Run samples up to opts.Samples positions from opts.Tier and validates
// every invariant spec.md §4.6 names, stopping at the first violation.
// A nil return means every sampled position passed every check.
func Run(opts Options) *gamesmanerr.Error {
	a := opts.Adapter
	size := a.GetTierSize(opts.Tier)
	if size <= 0 {
		return nil
	}
	n := opts.Samples
	if n > size {
		n = size
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	tried := make(map[tier.Position]bool, n)
	for int64(len(tried)) < n {
		p := tier.Position(rng.Int63n(size))
		if tried[p] {
			continue
		}
		tried[p] = true

		tp := tier.TierPosition{Tier: opts.Tier, Position: p}
		if !a.IsLegalPosition(tp) {
			continue
		}
		if a.Primitive(tp) != value.Undecided {
			continue
		}

		if err := checkTierSymmetry(a, tp); err != nil {
			return err
		}
		if err := checkChildren(a, tp); err != nil {
			return err
		}
		for _, pt := range opts.ParentTiers {
			if err := checkParents(a, tp, pt); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTierSymmetry(a *adapter.Adapter, tp tier.TierPosition) *gamesmanerr.Error {
	if !a.HasTierSymmetryRemoval() {
		return nil
	}
	c := a.CanonicalTier(tp.Tier)
	if c == tp.Tier {
		// tp.Tier is already canonical: mapping to itself must be the
		// identity.
		mapped := a.PositionInSymmetricTier(tp, tp.Tier)
		if mapped != tp.Position {
			return gamesmanerr.NewTestFailure(tp.Tier, tp.Position, gamesmanerr.TestTierSymmetrySelfMappingError)
		}
		return nil
	}
	toCanon := tier.TierPosition{Tier: c, Position: a.PositionInSymmetricTier(tp, c)}
	back := a.PositionInSymmetricTier(toCanon, tp.Tier)
	if back != tp.Position {
		return gamesmanerr.NewTestFailure(tp.Tier, tp.Position, gamesmanerr.TestTierSymmetryInconsistentError)
	}
	return nil
}

func checkChildren(a *adapter.Adapter, tp tier.TierPosition) *gamesmanerr.Error {
	children := a.ChildPositions(tp)
	selfCanon := a.Canonical(tp)
	for _, child := range children {
		if !inBounds(a, child) {
			return gamesmanerr.NewTestFailure(tp.Tier, child.Position, gamesmanerr.TestIllegalChildPositionError)
		}
		if !a.IsLegalPosition(child) {
			return gamesmanerr.NewTestFailure(tp.Tier, child.Position, gamesmanerr.TestIllegalChildPositionError)
		}
		if !a.HasRetrogradeAnalysis() {
			continue
		}
		parents := a.GetCanonicalParentPositions(child, selfCanon.Tier)
		if !containsPosition(parents, selfCanon.Position) {
			return gamesmanerr.NewTestFailure(tp.Tier, tp.Position, gamesmanerr.TestChildParentMismatchError)
		}
	}
	return nil
}

func checkParents(a *adapter.Adapter, tp tier.TierPosition, parentTier tier.Tier) *gamesmanerr.Error {
	if !a.HasRetrogradeAnalysis() {
		return nil
	}
	selfCanon := a.Canonical(tp)
	parentPositions := a.GetCanonicalParentPositions(tp, parentTier)
	for _, pp := range parentPositions {
		parentTP := tier.TierPosition{Tier: parentTier, Position: pp}
		if !a.IsLegalPosition(parentTP) || a.Primitive(parentTP) != value.Undecided {
			continue
		}
		children := a.ChildPositions(a.Canonical(parentTP))
		if !containsTierPosition(children, selfCanon) {
			return gamesmanerr.NewTestFailure(parentTier, pp, gamesmanerr.TestParentChildMismatchError)
		}
	}
	return nil
}

func inBounds(a *adapter.Adapter, tp tier.TierPosition) bool {
	size := a.GetTierSize(tp.Tier)
	return int64(tp.Position) >= 0 && int64(tp.Position) < size
}

func containsPosition(ps []tier.Position, p tier.Position) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

func containsTierPosition(tps []tier.TierPosition, tp tier.TierPosition) bool {
	for _, q := range tps {
		if q == tp {
			return true
		}
	}
	return false
}

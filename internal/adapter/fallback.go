// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package adapter

import (
	"fmt"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
)

func missingRequiredField(name string) error {
	return fmt.Errorf("adapter: required field %s is nil", name)
}

// Canonical returns tp's canonical representative, falling back to tp
// itself when the adapter has no symmetry removal.
func (a *Adapter) Canonical(tp tier.TierPosition) tier.TierPosition {
	if a.GetCanonicalPosition == nil {
		return tp
	}
	return tier.TierPosition{Tier: tp.Tier, Position: a.GetCanonicalPosition(tp)}
}

// CanonicalTier returns t's canonical tier, falling back to t itself.
func (a *Adapter) CanonicalTier(t tier.Tier) tier.Tier {
	if a.GetCanonicalTier == nil {
		return t
	}
	return a.GetCanonicalTier(t)
}

// ChildPositions returns the unique canonical child positions of tp, using
// the adapter's own enumeration if supplied, or falling back to
// generate-moves -> do-move -> canonicalize -> dedupe.
func (a *Adapter) ChildPositions(tp tier.TierPosition) []tier.TierPosition {
	if a.GetCanonicalChildPositions != nil {
		return a.GetCanonicalChildPositions(tp)
	}
	return a.fallbackChildPositions(tp)
}

// NumChildPositions returns the number of unique canonical child positions
// of tp, using the adapter's own count if supplied, or deriving it from
// the fallback enumeration.
func (a *Adapter) NumChildPositions(tp tier.TierPosition) int {
	if a.GetNumberOfCanonicalChildPositions != nil {
		return a.GetNumberOfCanonicalChildPositions(tp)
	}
	return len(a.fallbackChildPositions(tp))
}

// fallbackChildPositions implements the default canonical-child-position
// enumeration: generate moves, apply each, canonicalize the result, and
// deduplicate — since distinct moves may transpose into the same
// canonical child.
func (a *Adapter) fallbackChildPositions(tp tier.TierPosition) []tier.TierPosition {
	moves := a.GenerateMoves(tp)
	seen := make(map[tier.TierPosition]struct{}, len(moves))
	out := make([]tier.TierPosition, 0, len(moves))
	for _, m := range moves {
		child := a.DoMove(tp, m)
		canon := a.Canonical(child)
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, canon)
	}
	return out
}

// TierType returns t's declared type, defaulting to tier.Loopy.
func (a *Adapter) TierType(t tier.Tier) tier.Type {
	if a.GetTierType == nil {
		return tier.Loopy
	}
	return a.GetTierType(t)
}

// TierName returns t's database file name, defaulting to
// tier.FormatName(t).
func (a *Adapter) TierName(t tier.Tier) (string, error) {
	if a.GetTierName == nil {
		return tier.FormatName(t), nil
	}
	return a.GetTierName(t)
}

// PositionInSymmetricTier maps tp into the symmetric tier, falling back to
// the identity position when Tier Symmetry Removal is unavailable (the
// caller is expected to only invoke this when symmetric == tp.Tier in that
// case).
func (a *Adapter) PositionInSymmetricTier(tp tier.TierPosition, symmetric tier.Tier) tier.Position {
	if a.GetPositionInSymmetricTier == nil {
		return tp.Position
	}
	return a.GetPositionInSymmetricTier(tp, symmetric)
}

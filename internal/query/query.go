// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package query resolves a single position's final (value, remoteness)
// from a solved tier database, handling the translations the solver core
// itself does not need: a non-canonical position's record lives under its
// canonical representative (spec.md §4.3 "resolved at read time by
// mapping through the canonical position"), and a non-canonical tier's
// records live under its canonical tier (§4.3 Step 1's tier-symmetry
// translation, run in reverse).
package query

import (
	"context"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// Result is the resolved outcome of a single position.
type Result struct {
	Value      value.Value
	Remoteness value.Remoteness
}

// Position resolves tp to its final value and remoteness by reading
// through db, canonicalizing both the tier and the position first.
func Position(ctx context.Context, db tierdb.DB, a *adapter.Adapter, tp tier.TierPosition) (Result, error) {
	canonTier := a.CanonicalTier(tp.Tier)
	pos := tp.Position
	if canonTier != tp.Tier {
		pos = a.PositionInSymmetricTier(tp, canonTier)
	}
	canon := a.Canonical(tier.TierPosition{Tier: canonTier, Position: pos})

	probe, err := db.NewProbe(ctx, canon.Tier)
	if err != nil {
		return Result{}, err
	}
	defer probe.Close()

	v, err := probe.Value(canon.Position)
	if err != nil {
		return Result{}, err
	}
	r := value.NoRemoteness
	if v.HasRemoteness() {
		r, err = probe.Remoteness(canon.Position)
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Value: v, Remoteness: r}, nil
}

// Moves resolves every legal move available at tp to the Result of the
// position it leads to, the primitive a front-end needs to present move
// choices ranked by outcome (spec.md's interactive-menu supplement).
func Moves(ctx context.Context, db tierdb.DB, a *adapter.Adapter, tp tier.TierPosition) (map[adapter.Move]Result, error) {
	out := make(map[adapter.Move]Result)
	for _, m := range a.GenerateMoves(tp) {
		child := a.DoMove(tp, m)
		res, err := Position(ctx, db, a, child)
		if err != nil {
			return nil, err
		}
		out[m] = res
	}
	return out, nil
}

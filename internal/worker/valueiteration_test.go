package worker

import (
	"context"
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// loopyTier is a single self-contained loopy tier (no cross-tier children)
// with five positions: 0 is a terminal lose, 1 wins by moving to 0, 2 is a
// primitive tie (e.g. a repetition rule), 3 ties by moving only to 2, and 4
// loops back to itself forever with no other escape, which can only ever
// resolve to draw.
func loopyTier(t tier.Tier) *adapter.Adapter {
	moves := map[tier.Position][]tier.Position{
		0: nil,
		1: {0},
		2: nil,
		3: {2},
		4: {4},
	}
	primitives := map[tier.Position]value.Value{
		0: value.Lose,
		2: value.Tie,
	}
	return &adapter.Adapter{
		GetInitialTier:     func() tier.Tier { return t },
		GetInitialPosition: func() tier.Position { return 0 },
		GetTierSize:        func(tier.Tier) int64 { return 5 },
		IsLegalPosition:    func(tier.TierPosition) bool { return true },
		GetChildTiers:      func(tier.Tier) []tier.Tier { return nil },
		Primitive: func(tp tier.TierPosition) value.Value {
			if v, ok := primitives[tp.Position]; ok {
				return v
			}
			return value.Undecided
		},
		GenerateMoves: func(tp tier.TierPosition) []adapter.Move {
			children := moves[tp.Position]
			out := make([]adapter.Move, len(children))
			for i, c := range children {
				out[i] = adapter.Move(c)
			}
			return out
		},
		DoMove: func(tp tier.TierPosition, m adapter.Move) tier.TierPosition {
			return tier.TierPosition{Tier: tp.Tier, Position: tier.Position(m)}
		},
	}
}

func TestValueIterationConverges(t *testing.T) {
	ctx := context.Background()
	db := tierdb.NewMemStore()
	const t5 = tier.Tier(5)
	a := loopyTier(t5)
	w := NewValueIteration(Options{DB: db, Adapter: a})

	if err := w.Solve(ctx, t5); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	probe, err := db.NewProbe(ctx, t5)
	if err != nil {
		t.Fatal(err)
	}
	defer probe.Close()

	cases := []struct {
		pos tier.Position
		v   value.Value
		r   value.Remoteness
	}{
		{0, value.Lose, 0},
		{1, value.Win, 1},
		{2, value.Tie, 0},
		{3, value.Tie, 1},
		{4, value.Draw, value.NoRemoteness},
	}
	for _, c := range cases {
		gv, err := probe.Value(c.pos)
		if err != nil {
			t.Fatalf("Value(%d): %v", c.pos, err)
		}
		if gv != c.v {
			t.Errorf("Value(%d) = %v, want %v", c.pos, gv, c.v)
			continue
		}
		if gv.HasRemoteness() {
			gr, err := probe.Remoteness(c.pos)
			if err != nil {
				t.Fatalf("Remoteness(%d): %v", c.pos, err)
			}
			if gr != c.r {
				t.Errorf("Remoteness(%d) = %d, want %d", c.pos, gr, c.r)
			}
		}
	}
}

// TestValueIterationMemLimitExceeded sets a MemLimit too small to hold the
// tier's own sweep state and asserts Solve fails as ResourceExhausted
// (spec.md §5) instead of proceeding.
func TestValueIterationMemLimitExceeded(t *testing.T) {
	ctx := context.Background()
	db := tierdb.NewMemStore()
	const t5 = tier.Tier(5)
	a := loopyTier(t5)
	w := NewValueIteration(Options{DB: db, Adapter: a, MemLimit: 1})

	err := w.Solve(ctx, t5)
	if err == nil {
		t.Fatal("Solve with a 1-byte MemLimit succeeded, want ResourceExhausted")
	}
	kind, ok := gamesmanerr.KindOf(err)
	if !ok || kind != gamesmanerr.ResourceExhausted {
		t.Fatalf("Solve error kind = %v (ok=%v), want ResourceExhausted", kind, ok)
	}
}

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

// subtractGame is a single-pile take-1-or-2 countdown: tier t holds a
// single position representing "t stones remain, your move." It is
// tiered one-stone-count-per-tier purely to exercise the worker's
// cross-tier frontier loading and reverse-graph fallback with a result
// simple enough to hand-verify: under optimal play, multiples of three
// are losing for the player to move.
func subtractGame() *adapter.Adapter {
	a := &adapter.Adapter{
		GetInitialTier:     func() tier.Tier { return 0 },
		GetInitialPosition: func() tier.Position { return 0 },
		GetTierSize:        func(tier.Tier) int64 { return 1 },
		IsLegalPosition:    func(tier.TierPosition) bool { return true },
		Primitive: func(tp tier.TierPosition) value.Value {
			if tp.Tier == 0 {
				return value.Lose
			}
			return value.Undecided
		},
		GenerateMoves: func(tp tier.TierPosition) []adapter.Move {
			switch {
			case tp.Tier >= 2:
				return []adapter.Move{1, 2}
			case tp.Tier == 1:
				return []adapter.Move{1}
			default:
				return nil
			}
		},
		DoMove: func(tp tier.TierPosition, m adapter.Move) tier.TierPosition {
			return tier.TierPosition{Tier: tp.Tier - tier.Tier(m), Position: 0}
		},
		GetChildTiers: func(t tier.Tier) []tier.Tier {
			switch {
			case t >= 2:
				return []tier.Tier{t - 1, t - 2}
			case t == 1:
				return []tier.Tier{0}
			default:
				return nil
			}
		},
	}
	return a
}

func TestRetrogradeSubtractGame(t *testing.T) {
	ctx := context.Background()
	db := tierdb.NewMemStore()
	a := subtractGame()
	w := NewRetrograde(Options{DB: db, Adapter: a})

	const maxTier = 7
	for tr := tier.Tier(0); tr <= maxTier; tr++ {
		if err := w.Solve(ctx, tr); err != nil {
			t.Fatalf("Solve(%d): %v", tr, err)
		}
	}

	for tr := tier.Tier(0); tr <= maxTier; tr++ {
		probe, err := db.NewProbe(ctx, tr)
		if err != nil {
			t.Fatalf("NewProbe(%d): %v", tr, err)
		}
		v, err := probe.Value(0)
		if err != nil {
			t.Fatalf("Value(%d,0): %v", tr, err)
		}
		probe.Close()

		want := value.Win
		if tr%3 == 0 {
			want = value.Lose
		}
		if v != want {
			t.Errorf("tier %d: Value = %v, want %v", tr, v, want)
		}
	}
}

func TestRetrogradeRemoteness(t *testing.T) {
	ctx := context.Background()
	db := tierdb.NewMemStore()
	a := subtractGame()
	w := NewRetrograde(Options{DB: db, Adapter: a})

	for tr := tier.Tier(0); tr <= 3; tr++ {
		if err := w.Solve(ctx, tr); err != nil {
			t.Fatalf("Solve(%d): %v", tr, err)
		}
	}

	probe, err := db.NewProbe(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer probe.Close()
	r, err := probe.Remoteness(0)
	if err != nil {
		t.Fatal(err)
	}
	// Tier 3 is lose: both children (2 and 1) are win at remoteness 1 (2
	// loses to tier 0 directly, 1 loses to tier 0 directly), so tier 3's
	// lose remoteness is 2.
	if r != 2 {
		t.Errorf("Remoteness(3,0) = %d, want 2", r)
	}
}

// TestRetrogradeMemLimitExceeded sets a MemLimit too small to hold even one
// frontier entry and asserts Solve fails the tier as ResourceExhausted
// instead of silently proceeding (spec.md §5).
func TestRetrogradeMemLimitExceeded(t *testing.T) {
	ctx := context.Background()
	db := tierdb.NewMemStore()
	a := subtractGame()
	// Tier 0 is solved without a limit: its one primitive frontier entry
	// alone already exceeds 1 byte.
	if err := NewRetrograde(Options{DB: db, Adapter: a}).Solve(ctx, 0); err != nil {
		t.Fatalf("Solve(0): %v", err)
	}
	w := NewRetrograde(Options{DB: db, Adapter: a, MemLimit: 1})
	err := w.Solve(ctx, 1)
	if err == nil {
		t.Fatal("Solve(1) with a 1-byte MemLimit succeeded, want ResourceExhausted")
	}
	kind, ok := gamesmanerr.KindOf(err)
	if !ok || kind != gamesmanerr.ResourceExhausted {
		t.Fatalf("Solve(1) error kind = %v (ok=%v), want ResourceExhausted", kind, ok)
	}
}

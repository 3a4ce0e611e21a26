package manager

import (
	"context"
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// chainGame is a tiny three-tier chain: tier 2 -> tier 1 -> tier 0, each
// with a single position, so Discover must order them [0, 1, 2] and Solve
// must leave all three marked solved.
func chainGame() *adapter.Adapter {
	primitive := func(tp tier.TierPosition) value.Value {
		if tp.Tier == 0 {
			return value.Lose
		}
		return value.Undecided
	}
	return &adapter.Adapter{
		GetInitialTier:     func() tier.Tier { return 2 },
		GetInitialPosition: func() tier.Position { return 0 },
		GetTierSize:        func(tier.Tier) int64 { return 1 },
		IsLegalPosition:    func(tier.TierPosition) bool { return true },
		Primitive:          primitive,
		GenerateMoves: func(tp tier.TierPosition) []adapter.Move {
			if tp.Tier == 0 {
				return nil
			}
			return []adapter.Move{0}
		},
		DoMove: func(tp tier.TierPosition, m adapter.Move) tier.TierPosition {
			return tier.TierPosition{Tier: tp.Tier - 1, Position: 0}
		},
		GetChildTiers: func(t tier.Tier) []tier.Tier {
			if t == 0 {
				return nil
			}
			return []tier.Tier{t - 1}
		},
		GetTierType: func(tier.Tier) tier.Type { return tier.ImmediateTransition },
	}
}

func TestDiscoverOrdersDependenciesFirst(t *testing.T) {
	plan, err := Discover(chainGame())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []tier.Tier{0, 1, 2}
	if len(plan) != len(want) {
		t.Fatalf("len(plan) = %d, want %d (%v)", len(plan), len(want), plan)
	}
	for i, tr := range want {
		if plan[i] != tr {
			t.Errorf("plan[%d] = %d, want %d (full plan %v)", i, plan[i], tr, plan)
		}
	}
}

func TestRunSolvesEveryTier(t *testing.T) {
	ctx := context.Background()
	a := chainGame()
	db := tierdb.NewMemStore()
	m, err := New(Options{DB: db, Adapter: a, Workers: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, tr := range []tier.Tier{0, 1, 2} {
		status, err := db.Status(ctx, tr)
		if err != nil {
			t.Fatalf("Status(%d): %v", tr, err)
		}
		if status != tier.StatusSolved {
			t.Errorf("tier %d status = %v, want StatusSolved", tr, status)
		}
	}
}

func TestRunSkipsAlreadySolvedUnlessForced(t *testing.T) {
	ctx := context.Background()
	a := chainGame()
	db := tierdb.NewMemStore()
	m, err := New(Options{DB: db, Adapter: a, Workers: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	forced, err := New(Options{DB: db, Adapter: a, Workers: 1, Force: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := forced.Run(ctx); err != nil {
		t.Fatalf("Run (forced): %v", err)
	}
	status, err := db.Status(ctx, tier.Tier(0))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != tier.StatusSolved {
		t.Errorf("tier 0 status = %v, want StatusSolved", status)
	}
}

func TestCompareModePassesAgainstMatchingReference(t *testing.T) {
	ctx := context.Background()
	a := chainGame()

	reference := tierdb.NewMemStore()
	refMgr, err := New(Options{DB: reference, Adapter: a, Workers: 1})
	if err != nil {
		t.Fatalf("New(reference): %v", err)
	}
	if err := refMgr.Run(ctx); err != nil {
		t.Fatalf("Run(reference): %v", err)
	}

	db := tierdb.NewMemStore()
	m, err := New(Options{DB: db, Adapter: a, Workers: 1, Reference: reference})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run with matching reference: %v", err)
	}
}

func TestCompareModeDetectsMismatch(t *testing.T) {
	ctx := context.Background()
	a := chainGame()

	reference := tierdb.NewMemStore()
	w, err := reference.CreateSolvingTier(ctx, 0, 1)
	if err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	w.SetValue(0, value.Win) // the real tier 0 position is a Lose.
	if err := reference.Flush(ctx, 0, w); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	db := tierdb.NewMemStore()
	m, err := New(Options{DB: db, Adapter: a, Workers: 1, Reference: reference})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Run(ctx)
	if err == nil {
		t.Fatal("Run with mismatching reference: want error, got nil")
	}
	gerr, ok := err.(*gamesmanerr.Error)
	if !ok {
		t.Fatalf("Run error type = %T, want *gamesmanerr.Error", err)
	}
	if gerr.Kind != gamesmanerr.TestFailure || gerr.SubCode != gamesmanerr.TestCompareMismatchError {
		t.Errorf("Run error = %+v, want Kind=TestFailure SubCode=TestCompareMismatchError", gerr)
	}
}

package tictactoe

import (
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

func TestHashUnhashRoundTrip(t *testing.T) {
	boards := [][boardSize]int8{
		{0, 0, 0, 0, 0, 0, 0, 0, 0},
		{x, 0, 0, 0, 0, 0, 0, 0, 0},
		{x, o, x, o, x, o, x, o, x},
		{o, x, o, x, o, x, o, x, blank},
	}
	for _, b := range boards {
		var xc, oc int
		for _, s := range b {
			switch s {
			case x:
				xc++
			case o:
				oc++
			}
		}
		tr := tier.Tier(xc + oc)
		p := hash(b)
		got := unhash(tr, p)
		if got != b {
			t.Errorf("unhash(hash(%v)) = %v", b, got)
		}
	}
}

func TestGetTierSizeCoversAllPositions(t *testing.T) {
	// Every hash in [0, size) for a tier must decode to a board with
	// exactly that tier's piece counts and re-hash to itself (bijection).
	for tr := tier.Tier(0); tr <= 4; tr++ {
		size := getTierSize(tr)
		seen := make(map[tier.Position]bool)
		for p := tier.Position(0); int64(p) < size; p++ {
			b := unhash(tr, p)
			if hash(b) != p {
				t.Fatalf("tier %d: hash(unhash(%d)) = %d", tr, p, hash(b))
			}
			if seen[p] {
				t.Fatalf("tier %d: position %d produced twice", tr, p)
			}
			seen[p] = true
		}
	}
}

func TestPrimitiveWin(t *testing.T) {
	// X occupies the top row; it's the position reached right after X's
	// winning move, so from the mover-to-move's (O's) perspective it's a
	// primitive loss.
	b := [boardSize]int8{x, x, x, o, o, blank, blank, blank, blank}
	tr := tier.Tier(5)
	tp := tier.TierPosition{Tier: tr, Position: hash(b)}
	if v := primitive(tp); v != value.Lose {
		t.Errorf("Primitive = %v, want Lose", v)
	}
	if !isLegalPosition(tp) {
		t.Error("expected legal position")
	}
}

func TestPrimitiveTie(t *testing.T) {
	b := [boardSize]int8{x, o, x, x, o, o, o, x, x}
	tr := tier.Tier(9)
	tp := tier.TierPosition{Tier: tr, Position: hash(b)}
	if v := primitive(tp); v != value.Tie {
		t.Errorf("Primitive = %v, want Tie", v)
	}
}

func TestIsLegalPositionRejectsWrongMover(t *testing.T) {
	// X completes the top row, but it's tier 6 (even, O should have just
	// moved) - illegal.
	b := [boardSize]int8{x, x, x, o, o, blank, o, blank, blank}
	tp := tier.TierPosition{Tier: 6, Position: hash(b)}
	if isLegalPosition(tp) {
		t.Error("expected illegal: X just won on an even tier")
	}
}

func TestDoMoveGenerateMoves(t *testing.T) {
	root := tier.TierPosition{Tier: 0, Position: 0}
	moves := generateMoves(root)
	if len(moves) != boardSize {
		t.Fatalf("len(moves) = %d, want %d", len(moves), boardSize)
	}
	child := doMove(root, moves[4])
	if child.Tier != 1 {
		t.Fatalf("child tier = %d, want 1", child.Tier)
	}
	b := unhash(child.Tier, child.Position)
	if b[4] != x {
		t.Errorf("expected X at center, got board %v", b)
	}
}

func TestGetCanonicalPositionIdentifiesRotations(t *testing.T) {
	// All four corners are equivalent under the board's rotation/reflection
	// symmetries; the center (index 4) is not equivalent to any corner.
	cornerTL := [boardSize]int8{x, 0, 0, 0, 0, 0, 0, 0, 0}
	cornerTR := [boardSize]int8{0, 0, x, 0, 0, 0, 0, 0, 0}
	center := [boardSize]int8{0, 0, 0, 0, x, 0, 0, 0, 0}

	tpTL := tier.TierPosition{Tier: 1, Position: hash(cornerTL)}
	tpTR := tier.TierPosition{Tier: 1, Position: hash(cornerTR)}
	tpCenter := tier.TierPosition{Tier: 1, Position: hash(center)}

	cTL := getCanonicalPosition(tpTL)
	cTR := getCanonicalPosition(tpTR)
	cCenter := getCanonicalPosition(tpCenter)

	if cTL != cTR {
		t.Errorf("two corners should canonicalize the same: got %d, %d", cTL, cTR)
	}
	if cTL == cCenter {
		t.Errorf("a corner and the center must not canonicalize the same: got %d for both", cTL)
	}
}

func TestGetCanonicalParentPositions(t *testing.T) {
	// Child: X just took the center on tier 1, board all-blank otherwise.
	b := [boardSize]int8{0, 0, 0, 0, x, 0, 0, 0, 0}
	child := tier.TierPosition{Tier: 1, Position: hash(b)}
	parents := getCanonicalParentPositions(child, 0)
	if len(parents) != 1 {
		t.Fatalf("len(parents) = %d, want 1 (only the empty board)", len(parents))
	}
	if parents[0] != 0 {
		t.Errorf("parent position = %d, want 0 (empty board)", parents[0])
	}
}

func TestGetCanonicalParentPositionsWrongTier(t *testing.T) {
	child := tier.TierPosition{Tier: 3, Position: 0}
	if got := getCanonicalParentPositions(child, 1); got != nil {
		t.Errorf("expected nil for non-adjacent parent tier, got %v", got)
	}
}

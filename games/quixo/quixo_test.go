package quixo

import (
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

func TestTierRoundTrip(t *testing.T) {
	cases := [][3]int{{25, 0, 0}, {24, 1, 0}, {10, 8, 7}, {0, 13, 12}}
	for _, c := range cases {
		tr := encodeTier(c[0], c[1], c[2])
		b, x2, o2 := decodeTier(tr)
		if b != c[0] || x2 != c[1] || o2 != c[2] {
			t.Errorf("decodeTier(encodeTier(%v)) = (%d,%d,%d)", c, b, x2, o2)
		}
	}
}

func TestTierEncodingAvoidsReferenceCollision(t *testing.T) {
	// Under the reference HashTier's base-25 multiplier, (blanks=0,xs=25,os=0)
	// and (blanks=1,xs=0,os=0) collide (25*25 == 1*625); our base-26
	// encoding must not.
	a := encodeTier(0, 25, 0)
	b := encodeTier(1, 0, 0)
	if a == b {
		t.Errorf("tier collision reproduced: both encode to %d", a)
	}
}

func TestBoardHashRoundTrip(t *testing.T) {
	boards := [][boardCells]int8{
		{},
		{x, o, blank, blank, blank, blank, blank, blank, blank, blank,
			blank, blank, blank, blank, blank, blank, blank, blank, blank, blank,
			blank, blank, blank, blank, blank},
	}
	for _, b := range boards {
		var counts [3]int
		for _, s := range b {
			counts[s]++
		}
		r := hashBoard(b)
		got := unhashBoard(counts, r)
		if got != b {
			t.Errorf("unhashBoard(hashBoard(%v)) = %v", b, got)
		}
	}
}

func TestGetTierSizeInitial(t *testing.T) {
	tr := encodeTier(boardCells, 0, 0)
	// Exactly one board configuration (all blank), times 2 possible turn
	// bits (only one of which is ever reachable, a harmless overcount).
	if got := getTierSize(tr); got != 2 {
		t.Errorf("GetTierSize(initial) = %d, want 2", got)
	}
}

func TestApplyMovePushesLine(t *testing.T) {
	var board [boardCells]int8
	board[0] = x // top-left corner
	applyMove(&board, 0, edgeRight, x)
	// Row 0 shifts left, mover enters at the right end (index 4).
	want := [boardCells]int8{}
	want[4] = x
	if board != want {
		t.Errorf("applyMove(edgeRight) = %v, want %v", board, want)
	}
}

func TestApplyMoveVertical(t *testing.T) {
	var board [boardCells]int8
	board[0] = x // row0, col0
	applyMove(&board, 0, edgeBottom, x)
	want := [boardCells]int8{}
	want[4*side+0] = x
	if board != want {
		t.Errorf("applyMove(edgeBottom) = %v, want %v", board, want)
	}
}

func TestGenerateMovesCornerHasTwoMoves(t *testing.T) {
	// Empty board, X to move: cell 0 (top-left corner) should offer
	// exactly edgeBottom and edgeRight.
	var board [boardCells]int8
	tp := tier.TierPosition{Tier: encodeTier(boardCells, 0, 0), Position: packPosition(board, 0)}
	moves := generateMoves(tp)
	cornerMoves := 0
	for _, m := range moves {
		if int(m)/4 == 0 {
			cornerMoves++
		}
	}
	if cornerMoves != 2 {
		t.Errorf("corner cell move count = %d, want 2", cornerMoves)
	}
}

func TestGenerateMovesEdgeHasThreeMoves(t *testing.T) {
	var board [boardCells]int8
	tp := tier.TierPosition{Tier: encodeTier(boardCells, 0, 0), Position: packPosition(board, 0)}
	moves := generateMoves(tp)
	// Cell index 2 is (row0, col2): a non-corner border cell.
	edgeMoves := 0
	for _, m := range moves {
		if int(m)/4 == 2 {
			edgeMoves++
		}
	}
	if edgeMoves != 3 {
		t.Errorf("edge cell move count = %d, want 3", edgeMoves)
	}
}

func TestPrimitiveLoseForMoverToPlay(t *testing.T) {
	// X has a completed top row; it is O's turn (turn=1), so O has lost
	// and the player to move (O) should see Lose.
	var board [boardCells]int8
	for c := 0; c < side; c++ {
		board[c] = x
	}
	tp := tier.TierPosition{Tier: encodeTier(20, 5, 0), Position: packPosition(board, 1)}
	if v := primitive(tp); v != value.Lose {
		t.Errorf("Primitive = %v, want Lose", v)
	}
}

func TestPrimitiveWinForNextMover(t *testing.T) {
	// O has a completed top row and it is O's turn (turn=1): O already
	// won before moving.
	var board [boardCells]int8
	for c := 0; c < side; c++ {
		board[c] = o
	}
	tp := tier.TierPosition{Tier: encodeTier(20, 0, 5), Position: packPosition(board, 1)}
	if v := primitive(tp); v != value.Win {
		t.Errorf("Primitive = %v, want Win", v)
	}
}

func TestGetChildTiersExcludesSameTierDeltas(t *testing.T) {
	tr := encodeTier(boardCells, 0, 0)
	children := getChildTiers(tr)
	for _, c := range children {
		if c == tr {
			t.Errorf("GetChildTiers must not include the tier itself, got %v", children)
		}
	}
	if len(children) == 0 {
		t.Error("expected at least one child tier from the initial tier")
	}
}

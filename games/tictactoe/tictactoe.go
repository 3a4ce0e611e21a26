// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package tictactoe is an example client of the core solver: tic-tac-toe
// tiered by number of pieces placed ("tic-tac-tier"), grounded on the
// reference mtttier game module. Positions within a tier are ranked by a
// small self-contained combinatorial encoding standing in for the core's
// external generic-hash collaborator (out of scope per spec.md §1 - games
// own their own position encoding).
package tictactoe

import (
	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

const boardSize = 9

const (
	blank int8 = iota
	x
	o
)

var linesToCheck = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {0, 3, 6},
	{1, 4, 7}, {2, 5, 8}, {0, 4, 8}, {2, 4, 6},
}

var symmetries = [8][9]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8},
	{2, 5, 8, 1, 4, 7, 0, 3, 6},
	{8, 7, 6, 5, 4, 3, 2, 1, 0},
	{6, 3, 0, 7, 4, 1, 8, 5, 2},
	{2, 1, 0, 5, 4, 3, 8, 7, 6},
	{0, 3, 6, 1, 4, 7, 2, 5, 8},
	{6, 7, 8, 3, 4, 5, 0, 1, 2},
	{8, 5, 2, 7, 4, 1, 6, 3, 0},
}

// Adapter returns the tic-tac-tier game adapter.
func Adapter() *adapter.Adapter {
	return &adapter.Adapter{
		GetInitialTier:               func() tier.Tier { return 0 },
		GetInitialPosition:           func() tier.Position { return 0 },
		GetTierSize:                  getTierSize,
		GenerateMoves:                generateMoves,
		Primitive:                    primitive,
		DoMove:                       doMove,
		IsLegalPosition:              isLegalPosition,
		GetChildTiers:                getChildTiers,
		GetCanonicalPosition:         getCanonicalPosition,
		GetCanonicalParentPositions:  getCanonicalParentPositions,
		GetTierType:                  func(tier.Tier) tier.Type { return tier.ImmediateTransition },
	}
}

// counts returns tier t's piece counts indexed by symbol (blank, x, o), the
// order hash and unhash use: X moves first, so on tier t exactly (t+1)/2
// X's and t/2 O's have been placed.
func counts(t tier.Tier) [3]int {
	n := int(t)
	return [3]int{boardSize - n, (n + 1) / 2, n / 2}
}

var factorial = [boardSize + 1]int64{1, 1, 2, 6, 24, 120, 720, 5040, 40320, 362880}

func multinomial(c [3]int) int64 {
	return factorial[c[0]+c[1]+c[2]] / (factorial[c[0]] * factorial[c[1]] * factorial[c[2]])
}

func getTierSize(t tier.Tier) int64 {
	return multinomial(counts(t))
}

// hash ranks board among all boards sharing board's own piece counts,
// using the standard combinatorial-number-system ranking for arrangements
// of a multiset: at each cell, count how many completions would have
// sorted before the actual symbol placed there.
func hash(board [boardSize]int8) tier.Position {
	var remaining [3]int
	for _, s := range board {
		remaining[s]++
	}
	var rank int64
	for i := 0; i < boardSize; i++ {
		s := board[i]
		for sym := int8(0); sym < s; sym++ {
			if remaining[sym] == 0 {
				continue
			}
			remaining[sym]--
			rank += multinomial(remaining)
			remaining[sym]++
		}
		remaining[s]--
	}
	return tier.Position(rank)
}

func unhash(t tier.Tier, p tier.Position) [boardSize]int8 {
	remaining := counts(t)
	pos := int64(p)
	var board [boardSize]int8
	for i := 0; i < boardSize; i++ {
		for sym := int8(0); sym < 3; sym++ {
			if remaining[sym] == 0 {
				continue
			}
			remaining[sym]--
			n := multinomial(remaining)
			if pos < n {
				board[i] = sym
				break
			}
			pos -= n
			remaining[sym]++
		}
	}
	return board
}

func threeInARow(board [boardSize]int8, line [3]int) int8 {
	a, b, c := board[line[0]], board[line[1]], board[line[2]]
	if a == b && b == c && a != blank {
		return a
	}
	return blank
}

func winners(board [boardSize]int8) (xwin, owin bool) {
	for _, line := range linesToCheck {
		switch threeInARow(board, line) {
		case x:
			xwin = true
		case o:
			owin = true
		}
	}
	return
}

func allFilled(board [boardSize]int8) bool {
	for _, s := range board {
		if s == blank {
			return false
		}
	}
	return true
}

func whoseTurn(t tier.Tier) int8 {
	// X moves on even tiers (0 pieces placed so far -> X's 1st move, 2
	// placed -> X's 2nd move, ...), matching counts()'s (t+1)/2 X-count.
	if t%2 == 0 {
		return x
	}
	return o
}

func primitive(tp tier.TierPosition) value.Value {
	board := unhash(tp.Tier, tp.Position)
	for _, line := range linesToCheck {
		if threeInARow(board, line) != blank {
			return value.Lose
		}
	}
	if allFilled(board) {
		return value.Tie
	}
	return value.Undecided
}

func generateMoves(tp tier.TierPosition) []adapter.Move {
	board := unhash(tp.Tier, tp.Position)
	var moves []adapter.Move
	for i, s := range board {
		if s == blank {
			moves = append(moves, adapter.Move(i))
		}
	}
	return moves
}

func doMove(tp tier.TierPosition, m adapter.Move) tier.TierPosition {
	board := unhash(tp.Tier, tp.Position)
	board[m] = whoseTurn(tp.Tier)
	return tier.TierPosition{Tier: tp.Tier + 1, Position: hash(board)}
}

func isLegalPosition(tp tier.TierPosition) bool {
	board := unhash(tp.Tier, tp.Position)
	xwin, owin := winners(board)
	if xwin && owin {
		return false
	}
	// On an odd tier X just moved, so only X may have just completed a
	// line; on an even tier (and tier > 0) only O may have.
	lastMoverIsX := tp.Tier%2 == 1
	if xwin && !lastMoverIsX {
		return false
	}
	if owin && lastMoverIsX {
		return false
	}
	return true
}

func getChildTiers(t tier.Tier) []tier.Tier {
	if t < boardSize {
		return []tier.Tier{t + 1}
	}
	return nil
}

func getCanonicalPosition(tp tier.TierPosition) tier.Position {
	board := unhash(tp.Tier, tp.Position)
	canonical := tp.Position
	var sym [boardSize]int8
	for _, perm := range symmetries {
		for i, src := range perm {
			sym[i] = board[src]
		}
		if p := hash(sym); p < canonical {
			canonical = p
		}
	}
	return canonical
}

func getCanonicalParentPositions(child tier.TierPosition, parentTier tier.Tier) []tier.Position {
	if parentTier != child.Tier-1 {
		return nil
	}
	board := unhash(child.Tier, child.Position)
	prevTurn := o
	if whoseTurn(child.Tier) == o {
		prevTurn = x
	}

	seen := make(map[tier.Position]struct{})
	var parents []tier.Position
	for i, s := range board {
		if s != prevTurn {
			continue
		}
		board[i] = blank
		parentTP := tier.TierPosition{Tier: child.Tier - 1, Position: hash(board)}
		board[i] = prevTurn
		if !isLegalPosition(parentTP) {
			continue
		}
		canon := getCanonicalPosition(parentTP)
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		parents = append(parents, canon)
	}
	return parents
}

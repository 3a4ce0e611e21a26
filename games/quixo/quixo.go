// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package quixo is an example client of the core solver: 5x5 Quixo, tiered
// by (blank, X, O) piece counts, grounded on the reference quixo game
// module's tier-encoding scheme. The reference implementation's solver_api
// was left unfinished (solver_api/gameplay_api both TODO), so move
// generation, primitives, and symmetry here are original work written in
// the tic-tac-tier adapter's idiom rather than ported from C.
//
// Quixo allows a player to relocate one of their own already-placed cubes
// without consuming a blank, so unlike tic-tac-tier a tier's piece counts
// do not by themselves determine whose turn it is; this adapter packs an
// explicit turn bit into the low bit of the position, alongside the board.
package quixo

import (
	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/safemath"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

const side = 5
const boardCells = side * side

const (
	blank int8 = iota
	x
	o
)

const (
	edgeTop int8 = iota
	edgeBottom
	edgeLeft
	edgeRight
)

// maxCount is one past the largest legal count of any single symbol
// (0..25 inclusive); tiers are packed in this base instead of the
// reference HashTier's base-kBoardSize, which collides (e.g. 25 X's with
// 0 blanks/O's hashes identically to 1 blank with 0 X's/O's under a
// base-25 multiplier).
const maxCount = boardCells + 1

// Adapter returns the Quixo game adapter.
func Adapter() *adapter.Adapter {
	return &adapter.Adapter{
		GetInitialTier:       func() tier.Tier { return encodeTier(boardCells, 0, 0) },
		GetInitialPosition:   func() tier.Position { return 0 },
		GetTierSize:          getTierSize,
		GenerateMoves:        generateMoves,
		Primitive:            primitive,
		DoMove:               doMove,
		IsLegalPosition:      func(tier.TierPosition) bool { return true },
		GetChildTiers:        getChildTiers,
		GetCanonicalPosition: getCanonicalPosition,
	}
}

func encodeTier(blanks, xs, os int) tier.Tier {
	return tier.Tier(blanks*maxCount*maxCount + xs*maxCount + os)
}

func decodeTier(t tier.Tier) (blanks, xs, os int) {
	n := int(t)
	os = n % maxCount
	n /= maxCount
	xs = n % maxCount
	n /= maxCount
	blanks = n
	return
}

func isValidPieceConfig(blanks, xs, os int) bool {
	if blanks < 0 || xs < 0 || os < 0 {
		return false
	}
	if blanks+xs+os != boardCells {
		return false
	}
	if blanks <= boardCells-2 && (xs == 0 || os == 0) {
		return false
	}
	if blanks == boardCells-1 && (xs != 1 || os != 0) {
		return false
	}
	if blanks == boardCells && (xs != 0 || os != 0) {
		return false
	}
	return true
}

// binomial computes n-choose-k via the standard iterative multiplicative
// formula, which keeps every intermediate product within a factor of k of
// the final (much smaller) coefficient rather than near n! - 25! alone would overflow
// int64 by six orders of magnitude. The multiplication is nonetheless
// checked with safemath.SafeMul as a guard against a future board size
// large enough to overflow even the coefficient itself.
func binomial(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	var result uint64 = 1
	for i := 0; i < k; i++ {
		product, overflow := safemath.SafeMul(result, uint64(n-i))
		if overflow {
			panic("quixo: binomial coefficient overflowed int64")
		}
		result = product / uint64(i+1)
	}
	return int64(result)
}

func multinomial(c [3]int) int64 {
	n := c[0] + c[1] + c[2]
	return binomial(n, c[0]) * binomial(n-c[0], c[1])
}

func getTierSize(t tier.Tier) int64 {
	blanks, xs, os := decodeTier(t)
	return 2 * multinomial([3]int{blanks, xs, os})
}

// hashBoard ranks board among all boards sharing its own piece counts (see
// the identical technique in games/tictactoe, generalized to 25 cells).
func hashBoard(board [boardCells]int8) int64 {
	var remaining [3]int
	for _, s := range board {
		remaining[s]++
	}
	var rank int64
	for i := 0; i < boardCells; i++ {
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
	return rank
}

func unhashBoard(counts [3]int, rank int64) [boardCells]int8 {
	remaining := counts
	pos := rank
	var board [boardCells]int8
	for i := 0; i < boardCells; i++ {
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

func packPosition(board [boardCells]int8, turn int) tier.Position {
	return tier.Position(hashBoard(board)*2 + int64(turn))
}

func unpack(tp tier.TierPosition) (board [boardCells]int8, turn int) {
	blanks, xs, os := decodeTier(tp.Tier)
	p := int64(tp.Position)
	turn = int(p % 2)
	board = unhashBoard([3]int{blanks, xs, os}, p/2)
	return
}

func symbolForTurn(turn int) int8 {
	if turn == 0 {
		return x
	}
	return o
}

func opponent(s int8) int8 {
	if s == x {
		return o
	}
	return x
}

var lines = buildLines()

func buildLines() [2*side + 2][side]int {
	var out [2*side + 2][side]int
	idx := 0
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			out[idx][c] = r*side + c
		}
		idx++
	}
	for c := 0; c < side; c++ {
		for r := 0; r < side; r++ {
			out[idx][r] = r*side + c
		}
		idx++
	}
	for i := 0; i < side; i++ {
		out[idx][i] = i*side + i
	}
	idx++
	for i := 0; i < side; i++ {
		out[idx][i] = i*side + (side - 1 - i)
	}
	return out
}

func winners(board [boardCells]int8) (xwin, owin bool) {
	for _, line := range lines {
		first := board[line[0]]
		if first == blank {
			continue
		}
		complete := true
		for _, idx := range line[1:] {
			if board[idx] != first {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		if first == x {
			xwin = true
		} else {
			owin = true
		}
	}
	return
}

func primitive(tp tier.TierPosition) value.Value {
	board, turn := unpack(tp)
	xwin, owin := winners(board)
	if !xwin && !owin {
		return value.Undecided
	}
	mover := symbolForTurn(turn)
	moverWon := (mover == x && xwin) || (mover == o && owin)
	if moverWon {
		// Either the opponent's move only completed our line (a cascade
		// through the shifted row/column), or it completed both lines at
		// once, in which case the mover who caused it loses by Quixo's
		// "suicide" rule - either way, the player to move here has
		// already won.
		return value.Win
	}
	return value.Lose
}

func isBorder(i int) bool {
	r, c := i/side, i%side
	return r == 0 || r == side-1 || c == 0 || c == side-1
}

func verticalTargets(r int) []int8 {
	switch r {
	case 0:
		return []int8{edgeBottom}
	case side - 1:
		return []int8{edgeTop}
	default:
		return []int8{edgeTop, edgeBottom}
	}
}

func horizontalTargets(c int) []int8 {
	switch c {
	case 0:
		return []int8{edgeRight}
	case side - 1:
		return []int8{edgeLeft}
	default:
		return []int8{edgeLeft, edgeRight}
	}
}

func generateMoves(tp tier.TierPosition) []adapter.Move {
	board, turn := unpack(tp)
	mover := symbolForTurn(turn)
	opp := opponent(mover)
	var moves []adapter.Move
	for i := 0; i < boardCells; i++ {
		if !isBorder(i) || board[i] == opp {
			continue
		}
		r, c := i/side, i%side
		for _, e := range verticalTargets(r) {
			moves = append(moves, adapter.Move(i*4+int(e)))
		}
		for _, e := range horizontalTargets(c) {
			moves = append(moves, adapter.Move(i*4+int(e)))
		}
	}
	return moves
}

func applyMove(board *[boardCells]int8, i int, edge int8, mover int8) {
	r, c := i/side, i%side
	switch edge {
	case edgeBottom:
		for rr := r; rr < side-1; rr++ {
			board[rr*side+c] = board[(rr+1)*side+c]
		}
		board[(side-1)*side+c] = mover
	case edgeTop:
		for rr := r; rr > 0; rr-- {
			board[rr*side+c] = board[(rr-1)*side+c]
		}
		board[c] = mover
	case edgeRight:
		for cc := c; cc < side-1; cc++ {
			board[r*side+cc] = board[r*side+cc+1]
		}
		board[r*side+side-1] = mover
	case edgeLeft:
		for cc := c; cc > 0; cc-- {
			board[r*side+cc] = board[r*side+cc-1]
		}
		board[r*side] = mover
	}
}

func doMove(tp tier.TierPosition, m adapter.Move) tier.TierPosition {
	board, turn := unpack(tp)
	i := int(m) / 4
	edge := int8(int(m) % 4)
	mover := symbolForTurn(turn)
	applyMove(&board, i, edge, mover)

	var blanks, xs, os int
	for _, s := range board {
		switch s {
		case blank:
			blanks++
		case x:
			xs++
		case o:
			os++
		}
	}
	return tier.TierPosition{
		Tier:     encodeTier(blanks, xs, os),
		Position: packPosition(board, 1-turn),
	}
}

// moverDeltas returns the possible (blanks, xs, os) deltas of a single move
// by mover that changes the tier (i.e. consumes a blank, which becomes one
// of mover's cubes); moves that only relocate mover's own cube leave the
// tier unchanged and are not reported here - they are handled inside
// the tier by DoMove/GenerateMoves, never as a declared child tier.
func moverDeltas(mover int8) [][3]int {
	if mover == x {
		return [][3]int{{-1, 1, 0}}
	}
	return [][3]int{{-1, 0, 1}}
}

func getChildTiers(t tier.Tier) []tier.Tier {
	blanks, xs, os := decodeTier(t)
	seen := make(map[tier.Tier]bool)
	var out []tier.Tier
	for _, mover := range []int8{x, o} {
		for _, d := range moverDeltas(mover) {
			nb, nx, no := blanks+d[0], xs+d[1], os+d[2]
			if !isValidPieceConfig(nb, nx, no) {
				continue
			}
			ct := encodeTier(nb, nx, no)
			if seen[ct] {
				continue
			}
			seen[ct] = true
			out = append(out, ct)
		}
	}
	return out
}

type transform func(r, c int) (int, int)

var symmetries = []transform{
	func(r, c int) (int, int) { return r, c },
	func(r, c int) (int, int) { return c, side - 1 - r },
	func(r, c int) (int, int) { return side - 1 - r, side - 1 - c },
	func(r, c int) (int, int) { return side - 1 - c, r },
	func(r, c int) (int, int) { return r, side - 1 - c },
	func(r, c int) (int, int) { return side - 1 - r, c },
	func(r, c int) (int, int) { return c, r },
	func(r, c int) (int, int) { return side - 1 - c, side - 1 - r },
}

func applySymmetry(board [boardCells]int8, tf transform) [boardCells]int8 {
	var out [boardCells]int8
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			nr, nc := tf(r, c)
			out[nr*side+nc] = board[r*side+c]
		}
	}
	return out
}

func getCanonicalPosition(tp tier.TierPosition) tier.Position {
	board, turn := unpack(tp)
	canon := int64(tp.Position)
	for _, tf := range symmetries {
		b2 := applySymmetry(board, tf)
		p2 := hashBoard(b2)*2 + int64(turn)
		if p2 < canon {
			canon = p2
		}
	}
	return tier.Position(canon)
}

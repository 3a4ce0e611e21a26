// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package worker

import (
	"math"
	"sync/atomic"
)

// undecidedCounters is the per-position undecided-child counter array
// described in spec.md §3/§4.3/§4.9. The reference implementation packs
// this into an 8-bit (widened to 16-bit) integer to save memory across
// hundreds of millions of positions; Go's atomic package offers no 8-bit
// atomic type, so this uses atomic.Uint32 uniformly. countOverflowed
// tracks whether any position's true child count exceeded math.MaxUint8,
// which in the reference implementation forces a compile-time type
// widening — here it only affects logging, since Uint32 already has
// plenty of headroom, but the check is kept so a game adapter that returns
// an absurd child count still gets flagged (see Retrograde.Solve's logging
// of overflow).
type undecidedCounters struct {
	counts   []atomic.Uint32
	overflow atomic.Bool
}

func newUndecidedCounters(size int64) *undecidedCounters {
	return &undecidedCounters{counts: make([]atomic.Uint32, size)}
}

// Set assigns a position's initial undecided-child count. Called once per
// position during Step 3 of Retrograde.Solve, before any decrement/exchange races could
// occur.
func (c *undecidedCounters) Set(i int64, n int) {
	if n > math.MaxUint8 {
		c.overflow.Store(true)
	}
	c.counts[i].Store(uint32(n))
}

// Get reads the current count, used only for diagnostics/tests; the
// solve algorithm itself only ever uses ExchangeToZero/DecrementIfNonZero.
func (c *undecidedCounters) Get(i int64) uint32 {
	return c.counts[i].Load()
}

// ExchangeToZero atomically swaps the counter at i to zero and returns the
// value it held before the swap. Used on the lose/tie propagation paths,
// where a single child proves the parent regardless of how many siblings
// remain undecided — so every remaining count must be discarded at once,
// not merely decremented.
func (c *undecidedCounters) ExchangeToZero(i int64) uint32 {
	return c.counts[i].Swap(0)
}

// DecrementIfNonZero atomically decrements the counter at i if and only if
// it is currently greater than zero, returning the value it held
// immediately before the decrement (0 if it was already zero, meaning the
// position was already solved by a racing goroutine). Used on the win
// propagation path, where a parent only becomes lose once *every* child is
// proven win.
func (c *undecidedCounters) DecrementIfNonZero(i int64) uint32 {
	for {
		cur := c.counts[i].Load()
		if cur == 0 {
			return 0
		}
		if c.counts[i].CompareAndSwap(cur, cur-1) {
			return cur
		}
	}
}

// Overflowed reports whether any Set call exceeded the reference
// implementation's 8-bit budget.
func (c *undecidedCounters) Overflowed() bool {
	return c.overflow.Load()
}

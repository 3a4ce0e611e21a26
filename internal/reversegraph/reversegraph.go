// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package reversegraph builds an on-demand child-to-parents index for the
// tier currently being solved, used when the game adapter does not expose
// a native canonical-parent-enumeration primitive (spec.md §4.2).
//
// The index only ever needs to describe positions within "this tier" and
// its child tiers, and every child's parent set is consumed exactly once
// (pop-all-parents-of), so memory is released incrementally during the
// drain instead of held for the whole solve.
package reversegraph

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
)

// key identifies a child position by its tier, since the reverse graph may
// span multiple child tiers plus the tier being solved.
type key struct {
	childTier tier.Tier
	child     tier.Position
}

// Graph is a single-writer-during-scan, single-reader-per-child-during-
// drain index. Values are Roaring bitmaps of parent positions (parents are
// always within the tier being solved, so they fit comfortably as 32-bit
// values widened to 64-bit for the roaring64 API) — compact even when a
// position has thousands of parents.
type Graph struct {
	mu   sync.Mutex
	sets map[key]*roaring64.Bitmap
}

// New creates an empty reverse graph.
func New() *Graph {
	return &Graph{sets: make(map[key]*roaring64.Bitmap)}
}

// Add records that parent is a canonical parent of the canonical position
// child within childTier. Safe for concurrent use by multiple goroutines
// scanning disjoint positions, since each position writes only its own
// outgoing edges (different keys virtually never collide, but the map
// itself is shared so writes are serialized with a mutex).
func (g *Graph) Add(childTier tier.Tier, child tier.Position, parent tier.Position) {
	k := key{childTier, child}
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.sets[k]
	if !ok {
		bm = roaring64.New()
		g.sets[k] = bm
	}
	bm.Add(uint64(parent))
}

// PopParentsOf returns and releases the full parent set recorded for
// (childTier, child). Returns nil if no parents were ever recorded (the
// child has no parents within the solving tier, or was never reached by
// Add — both are legal: a primitive position may have no parents at all).
func (g *Graph) PopParentsOf(childTier tier.Tier, child tier.Position) []tier.Position {
	k := key{childTier, child}
	g.mu.Lock()
	bm, ok := g.sets[k]
	if ok {
		delete(g.sets, k)
	}
	g.mu.Unlock()
	if !ok {
		return nil
	}
	out := make([]tier.Position, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, tier.Position(it.Next()))
	}
	return out
}

// Len reports the number of distinct children currently tracked, useful
// for the worker's memory-budget accounting.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sets)
}

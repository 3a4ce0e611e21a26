// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package frontier implements the per-remoteness bucket of solved-but-
// unpropagated positions a tier worker drains during retrograde induction.
//
// One Frontier is allocated per worker goroutine (see internal/worker); a
// drain pass concatenates the per-goroutine buckets logically using the
// prefix sums AccumulateDividers produces, so a flat parallel-for over the
// total bucket size can recover which child tier a position came from.
package frontier

import (
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

type entry struct {
	position      tier.Position
	sourceTierIdx int
}

// Frontier buckets solved positions by remoteness. dividers[r] holds, after
// AccumulateDividers, a prefix-sum array of length len(childTiers)+1: the
// positions in bucket r with sourceTierIdx < k were contributed by the
// first dividers[r][k] entries of that bucket.
type Frontier struct {
	buckets  [value.RemotenessMax + 1][]entry
	dividers [value.RemotenessMax + 1][]int
	numTiers int
}

// New allocates a Frontier able to attribute positions to numChildTiers
// distinct source tiers (the child tiers plus the tier itself, per
// spec.md §4.3 Step 0).
func New(numChildTiers int) *Frontier {
	return &Frontier{numTiers: numChildTiers}
}

// Add appends a position to the bucket for remoteness, recording which
// source tier (index into the worker's child_tiers array, where the
// current tier itself occupies the last slot) it was discovered in.
func (f *Frontier) Add(remoteness value.Remoteness, position tier.Position, sourceTierIdx int) {
	f.buckets[remoteness] = append(f.buckets[remoteness], entry{position, sourceTierIdx})
}

// Len reports how many positions are queued at remoteness.
func (f *Frontier) Len(remoteness value.Remoteness) int {
	return len(f.buckets[remoteness])
}

// TotalLen reports how many positions are queued across every remoteness
// bucket, used for the worker's memory-budget accounting (spec.md §5).
func (f *Frontier) TotalLen() int {
	n := 0
	for r := range f.buckets {
		n += len(f.buckets[r])
	}
	return n
}

// AccumulateDividers converts the per-source-tier insertion counts at every
// remoteness into prefix-sum offsets. The retrograde worker calls it once,
// after loading child tiers and before its scan and drain; entries added
// after the call are not counted in the dividers.
//
// The reference C implementation needs this to recover, from a flat
// index into a concatenated bucket, which source tier a position came
// from without storing it per-entry (memory was tight enough that every
// byte of a frontier entry mattered). A Go slice of structs has no such
// constraint, so each entry already carries its sourceTierIdx directly
// (see SourceTierIndex) and dividers are redundant for lookup; the method
// is kept so the Frontier contract still matches spec.md §4.1 exactly and
// so callers that want the divider boundaries (e.g. for chunked iteration
// per source tier) can still get them.
func (f *Frontier) AccumulateDividers() {
	for r := value.Remoteness(0); r <= value.RemotenessMax; r++ {
		counts := make([]int, f.numTiers+1)
		for _, e := range f.buckets[r] {
			counts[e.sourceTierIdx+1]++
		}
		for k := 1; k <= f.numTiers; k++ {
			counts[k] += counts[k-1]
		}
		f.dividers[r] = counts
	}
}

// Get returns the position at the given index within remoteness's bucket.
func (f *Frontier) Get(remoteness value.Remoteness, index int) tier.Position {
	return f.buckets[remoteness][index].position
}

// SourceTierIndex returns the source tier index recorded for the entry at
// index within remoteness's bucket.
func (f *Frontier) SourceTierIndex(remoteness value.Remoteness, index int) int {
	return f.buckets[remoteness][index].sourceTierIdx
}

// Free releases a bucket's backing storage after it has been fully
// drained.
func (f *Frontier) Free(remoteness value.Remoteness) {
	f.buckets[remoteness] = nil
	f.dividers[remoteness] = nil
}

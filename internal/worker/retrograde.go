// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package worker implements the tier-local solving algorithms: Retrograde,
// the frontier-based backward-induction worker for loop-free and
// immediate-transition tiers (spec.md §4.3), and the value-iteration
// fallback for loopy tiers (valueiteration.go).
package worker

import (
	"context"
	"strconv"

	"github.com/c2h5oh/datasize"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/frontier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/metrics"
	"github.com/GamesCrafters/GamesmanExperiment/internal/reversegraph"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// Options configures a Retrograde worker.
type Options struct {
	DB      tierdb.DB
	Adapter *adapter.Adapter
	Workers int
	Logger  log.Logger
	Metrics *metrics.Registry

	// MemLimit bounds the estimated in-memory footprint of the frontier
	// buckets and reverse graph built while solving a single tier
	// (spec.md §5: "The worker sizes its frontier per-thread buckets and
	// reverse graph against that limit; overflow is a fatal error for
	// the tier"). Zero means unbounded.
	MemLimit datasize.ByteSize
}

// frontierEntryBytes and reverseGraphEdgeBytes are coarse per-entry byte
// estimates used only for the memory-budget check below: a real accounting
// would have to reach into the roaring64 bitmaps' and Go slices' actual
// backing-array sizes, which spec.md §5 does not require ("overflow is a
// fatal error" - approximate, conservative sizing is sufficient to catch
// genuinely oversized tiers without tracking every allocator byte).
const (
	frontierEntryBytes    = 16 // tier.Position (int64) + sourceTierIdx (int)
	reverseGraphEdgeBytes = 8  // one parent position as stored in a roaring64 bitmap
)

// memoryFootprint estimates the current combined size of every frontier in
// sets and, if rg is non-nil, the reverse graph, in bytes.
func memoryFootprint(sets [][]*frontier.Frontier, rg *reversegraph.Graph) int64 {
	var total int64
	for _, fs := range sets {
		for _, f := range fs {
			total += int64(f.TotalLen()) * frontierEntryBytes
		}
	}
	if rg != nil {
		total += int64(rg.Len()) * reverseGraphEdgeBytes
	}
	return total
}

// checkMemoryBudget returns a ResourceExhausted error if the estimated
// footprint of sets (and rg, if non-nil) exceeds limit. A zero limit means
// unbounded.
func checkMemoryBudget(t tier.Tier, limit datasize.ByteSize, sets [][]*frontier.Frontier, rg *reversegraph.Graph) error {
	if limit == 0 {
		return nil
	}
	if footprint := memoryFootprint(sets, rg); footprint > int64(limit) {
		return gamesmanerr.Newf(gamesmanerr.ResourceExhausted, t,
			"estimated frontier/reverse-graph footprint %d bytes exceeds memory limit %d bytes",
			footprint, int64(limit))
	}
	return nil
}

// Retrograde solves a single tier by frontier-based backward induction,
// following the seven steps of the reference tier worker (Step0Initialize
// through Step7Cleanup, spec.md §4.3).
type Retrograde struct {
	opts Options
}

// NewRetrograde constructs a Retrograde worker from opts. A nil Logger
// defaults to log.Root(), matching the teacher's own convention of a
// package-level root logger when no explicit one is supplied.
func NewRetrograde(opts Options) *Retrograde {
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &Retrograde{opts: opts}
}

// Solve fully solves t: it loads already-solved child tiers, scans t for
// primitive positions, propagates values backward via the frontier, and
// flushes the result. Solve does not check t's status first: it always
// solves t, and skipping already-solved tiers is left to the manager.
func (w *Retrograde) Solve(ctx context.Context, t tier.Tier) error {
	a := w.opts.Adapter
	log := w.opts.Logger

	// --- Step 0: Initialize ---
	childTiers := append([]tier.Tier(nil), a.GetChildTiers(t)...)
	childTiers = append(childTiers, t) // this tier occupies the last slot
	thisTierIdx := len(childTiers) - 1

	useReverseGraph := !a.HasRetrogradeAnalysis()
	var rg *reversegraph.Graph
	if useReverseGraph {
		rg = reversegraph.New()
	}

	workers := numWorkers(w.opts.Workers)
	winFrontiers := make([]*frontier.Frontier, workers)
	loseFrontiers := make([]*frontier.Frontier, workers)
	tieFrontiers := make([]*frontier.Frontier, workers)
	for i := 0; i < workers; i++ {
		winFrontiers[i] = frontier.New(len(childTiers))
		loseFrontiers[i] = frontier.New(len(childTiers))
		tieFrontiers[i] = frontier.New(len(childTiers))
	}

	getParents := func(child tier.TierPosition) ([]tier.Position, error) {
		if !useReverseGraph {
			parents := a.GetCanonicalParentPositions(child, t)
			return parents, nil
		}
		return rg.PopParentsOf(child.Tier, child.Position), nil
	}

	// --- Step 1: Load already-solved child tiers into the frontier ---
	for idx, ct := range childTiers[:thisTierIdx] {
		if err := w.loadChildTier(ctx, idx, ct, workers, loseFrontiers, winFrontiers, tieFrontiers); err != nil {
			return err
		}
	}
	for i := 0; i < workers; i++ {
		loseFrontiers[i].AccumulateDividers()
		winFrontiers[i].AccumulateDividers()
		tieFrontiers[i].AccumulateDividers()
	}
	allFrontiers := [][]*frontier.Frontier{loseFrontiers, winFrontiers, tieFrontiers}
	if err := checkMemoryBudget(t, w.opts.MemLimit, allFrontiers, rg); err != nil {
		return err
	}

	// --- Step 2: Setup solver arrays ---
	size := a.GetTierSize(t)
	rec, err := w.opts.DB.CreateSolvingTier(ctx, t, size)
	if err != nil {
		return gamesmanerr.Wrap(gamesmanerr.ResourceExhausted, t, err, "create solving tier")
	}
	counters := newUndecidedCounters(size)

	// --- Step 3: Scan this tier, seed primitives and undecided counts ---
	err = parallelFor(ctx, int(size), workers, func(tid, i int) error {
		p := tier.Position(i)
		tp := tier.TierPosition{Tier: t, Position: p}
		if !a.IsLegalPosition(tp) {
			counters.Set(int64(i), 0)
			return nil
		}
		if a.HasSymmetryRemoval() {
			if canon := a.Canonical(tp); canon.Position != p {
				// Non-canonical positions consume no storage of their
				// own; queries resolve them at read time by mapping
				// through the canonical position instead.
				counters.Set(int64(i), 0)
				return nil
			}
		}

		val := a.Primitive(tp)
		if val != value.Undecided {
			rec.SetValue(p, val)
			counters.Set(int64(i), 0)
			if val == value.Draw {
				rec.SetRemoteness(p, value.NoRemoteness)
				return nil
			}
			rec.SetRemoteness(p, 0)
			bucketFor(val, loseFrontiers, winFrontiers, tieFrontiers)[tid].Add(0, p, thisTierIdx)
			return nil
		}

		if useReverseGraph {
			children := a.ChildPositions(tp)
			for _, c := range children {
				if c.Tier == tier.Illegal || c.Position == tier.IllegalPosition {
					return gamesmanerr.Newf(gamesmanerr.AdapterContract, t, "illegal child of %v", tp)
				}
				rg.Add(c.Tier, c.Position, p)
			}
			if len(children) == 0 {
				return gamesmanerr.Newf(gamesmanerr.AdapterContract, t, "non-primitive position %v has no children", tp)
			}
			counters.Set(int64(i), len(children))
			return nil
		}

		n := a.NumChildPositions(tp)
		if n <= 0 {
			return gamesmanerr.Newf(gamesmanerr.AdapterContract, t, "non-primitive position %v has no children", tp)
		}
		counters.Set(int64(i), n)
		return nil
	})
	if err != nil {
		return err
	}
	if counters.Overflowed() {
		log.Warn("tier has a position with an unexpectedly large child count", "tier", t)
	}
	if err := checkMemoryBudget(t, w.opts.MemLimit, allFrontiers, rg); err != nil {
		return err
	}

	// --- Step 4: Push frontier up ---
	// Pass A: lose and win propagate together, remoteness by remoteness,
	// since a lose at remoteness r can only produce wins at r+1 and a win
	// at r can only produce loses at r+1 - processing strictly in
	// increasing remoteness order keeps every position's final remoteness
	// minimal.
	for r := value.Remoteness(0); r <= value.RemotenessMax; r++ {
		if err := w.drainBucket(ctx, childTiers, loseFrontiers, r, workers, func(tid int, child tier.TierPosition) error {
			parents, perr := getParents(child)
			if perr != nil {
				return gamesmanerr.Wrap(gamesmanerr.AdapterContract, t, perr, "get parents")
			}
			for _, p := range parents {
				if counters.ExchangeToZero(int64(p)) == 0 {
					continue
				}
				rec.SetValue(p, value.Win)
				rec.SetRemoteness(p, r+1)
				winFrontiers[tid].Add(r+1, p, thisTierIdx)
			}
			return nil
		}); err != nil {
			return err
		}
		if err := w.drainBucket(ctx, childTiers, winFrontiers, r, workers, func(tid int, child tier.TierPosition) error {
			parents, perr := getParents(child)
			if perr != nil {
				return gamesmanerr.Wrap(gamesmanerr.AdapterContract, t, perr, "get parents")
			}
			for _, p := range parents {
				if counters.DecrementIfNonZero(int64(p)) != 1 {
					continue
				}
				rec.SetValue(p, value.Lose)
				rec.SetRemoteness(p, r+1)
				loseFrontiers[tid].Add(r+1, p, thisTierIdx)
			}
			return nil
		}); err != nil {
			return err
		}
		if err := checkMemoryBudget(t, w.opts.MemLimit, allFrontiers, rg); err != nil {
			return err
		}
	}
	// Pass B: ties propagate once lose/win has fully settled, since a
	// position only becomes tie once it is known none of its children is a
	// lose (which would make it win) and not every child is a win (which
	// would make it lose).
	for r := value.Remoteness(0); r <= value.RemotenessMax; r++ {
		if err := w.drainBucket(ctx, childTiers, tieFrontiers, r, workers, func(tid int, child tier.TierPosition) error {
			parents, perr := getParents(child)
			if perr != nil {
				return gamesmanerr.Wrap(gamesmanerr.AdapterContract, t, perr, "get parents")
			}
			for _, p := range parents {
				if counters.ExchangeToZero(int64(p)) == 0 {
					continue
				}
				rec.SetValue(p, value.Tie)
				rec.SetRemoteness(p, r+1)
				tieFrontiers[tid].Add(r+1, p, thisTierIdx)
			}
			return nil
		}); err != nil {
			return err
		}
		if err := checkMemoryBudget(t, w.opts.MemLimit, allFrontiers, rg); err != nil {
			return err
		}
	}

	// --- Step 5: Mark remaining undecided positions as draws ---
	if err := parallelFor(ctx, int(size), workers, func(tid, i int) error {
		if counters.Get(int64(i)) > 0 {
			rec.SetValue(tier.Position(i), value.Draw)
			rec.SetRemoteness(tier.Position(i), value.NoRemoteness)
		}
		return nil
	}); err != nil {
		return err
	}

	// --- Step 6: Save values ---
	if err := w.opts.DB.Flush(ctx, t, rec); err != nil {
		if w.opts.Metrics != nil {
			w.opts.Metrics.TiersCorrupted.Inc()
		}
		return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "flush tier")
	}

	// --- Step 7: Cleanup ---
	// Nothing to release explicitly: rec, counters, rg, and the per-worker
	// frontiers all go out of scope with this call. Unloading child tiers
	// that no further tier needs is the manager's decision, not the
	// worker's (the manager may have other pending tiers that still need
	// the same child loaded).
	if w.opts.Metrics != nil {
		w.opts.Metrics.TiersSolved.Inc()
		w.opts.Metrics.PositionsSolved.Add(float64(size))
	}
	return nil
}

// loadChildTier reads every non-undecided, non-draw record out of the
// already-solved child tier ct and seeds the corresponding frontier,
// translating non-canonical tier-symmetric positions back via
// GetPositionInSymmetricTier (Step1_1LoadNonCanonicalTier in the reference
// worker).
func (w *Retrograde) loadChildTier(ctx context.Context, idx int, ct tier.Tier, workers int,
	loseFrontiers, winFrontiers, tieFrontiers []*frontier.Frontier) error {
	a := w.opts.Adapter
	canonicalTier := a.CanonicalTier(ct)
	isCanonical := canonicalTier == ct

	probe, err := w.opts.DB.NewProbe(ctx, canonicalTier)
	if err != nil {
		return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "load child tier")
	}
	defer probe.Close()

	size := a.GetTierSize(canonicalTier)
	return parallelFor(ctx, int(size), workers, func(tid, i int) error {
		p := tier.Position(i)
		v, err := probe.Value(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "probe value")
		}
		if !v.HasRemoteness() {
			return nil // Undecided (impossible, tier is solved) or Draw (no parents to push)
		}
		r, err := probe.Remoteness(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "probe remoteness")
		}
		if r < 0 {
			return gamesmanerr.Newf(gamesmanerr.DatabaseIO, ct, "position %d has value %v but negative remoteness", p, v)
		}

		pos := p
		if !isCanonical {
			pos = a.PositionInSymmetricTier(tier.TierPosition{Tier: canonicalTier, Position: p}, ct)
		}

		bucketFor(v, loseFrontiers, winFrontiers, tieFrontiers)[tid].Add(r, pos, idx)
		return nil
	})
}

// drainBucket flattens the per-worker bucket at remoteness r across all
// child-tier-relative frontiers of one kind into a single pass, invokes fn
// on every entry in parallel, and frees the drained buckets. Flattening is
// done single-threaded; it is cheap relative to fn's per-entry work (parent
// lookup plus a counter CAS).
func (w *Retrograde) drainBucket(ctx context.Context, childTiers []tier.Tier, frontiers []*frontier.Frontier,
	r value.Remoteness, workers int, fn func(tid int, child tier.TierPosition) error) error {
	var flat []tier.TierPosition
	for _, f := range frontiers {
		n := f.Len(r)
		for i := 0; i < n; i++ {
			idx := f.SourceTierIndex(r, i)
			pos := f.Get(r, i)
			flat = append(flat, tier.TierPosition{Tier: childTiers[idx], Position: pos})
		}
	}
	if w.opts.Metrics != nil {
		w.opts.Metrics.FrontierSize.WithLabelValues("drain", strconv.Itoa(int(r))).Set(float64(len(flat)))
	}
	err := parallelFor(ctx, len(flat), workers, func(tid, i int) error {
		return fn(tid, flat[i])
	})
	for _, f := range frontiers {
		f.Free(r)
	}
	return err
}

func bucketFor(v value.Value, lose, win, tie []*frontier.Frontier) []*frontier.Frontier {
	switch v {
	case value.Lose:
		return lose
	case value.Win:
		return win
	default:
		return tie
	}
}

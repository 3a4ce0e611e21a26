// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package worker

import (
	"context"
	"sync/atomic"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// ValueIteration solves a single loopy tier by forward-relaxation fixed
// point (spec.md §4.4), used when retrograde propagation cannot terminate
// because a position's true value may depend on a cycle within the same
// tier. Unlike Retrograde it never relies on an undecided-child counter
// reaching zero; instead every sweep monotonically refines the value
// lattice undecided ≺ {tie ≺ win, lose} until a fixed point is reached.
type ValueIteration struct {
	opts Options
}

// NewValueIteration constructs a ValueIteration worker from opts.
func NewValueIteration(opts Options) *ValueIteration {
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &ValueIteration{opts: opts}
}

type tierRecords struct {
	values     []value.Value
	remoteness []value.Remoteness
}

// cell packs a (value, remoteness) pair into a single atomic word so
// concurrent readers of one position's sweep state, issued from other
// goroutines relaxing different positions in the same round, always
// observe a consistent pair instead of racing the two fields
// independently. Only ever written once per value (undecided -> decided
// is a one-way transition within a single Solve call), so a plain atomic
// store/load suffices; no read-modify-write is needed.
type cell struct {
	state atomic.Int64
}

func packCell(v value.Value, r value.Remoteness) int64 {
	return int64(v)<<32 | int64(uint32(r))
}

func (c *cell) set(v value.Value, r value.Remoteness) {
	c.state.Store(packCell(v, r))
}

func (c *cell) get() (value.Value, value.Remoteness) {
	s := c.state.Load()
	return value.Value(int8(s >> 32)), value.Remoteness(int32(uint32(s)))
}

// Solve fully solves t by value iteration.
func (w *ValueIteration) Solve(ctx context.Context, t tier.Tier) error {
	a := w.opts.Adapter
	workers := numWorkers(w.opts.Workers)

	// --- Step 0/1: fetch child tiers and load their full record arrays ---
	childData := make(map[tier.Tier]*tierRecords)
	var maxWinLose, maxTie value.Remoteness = -1, -1
	for _, ct := range a.GetChildTiers(t) {
		canonicalTier := a.CanonicalTier(ct)
		if _, ok := childData[canonicalTier]; ok {
			continue
		}
		data, mwl, mtie, err := w.loadFullTier(ctx, canonicalTier, workers)
		if err != nil {
			return err
		}
		childData[canonicalTier] = data
		if mwl > maxWinLose {
			maxWinLose = mwl
		}
		if mtie > maxTie {
			maxTie = mtie
		}
	}

	// --- Step 2: create the in-progress sweep state for T ---
	size := a.GetTierSize(t)
	cells := make([]cell, size)
	skip := make([]bool, size)
	for i := range cells {
		cells[i].set(value.Undecided, value.NoRemoteness)
	}
	if err := w.checkMemoryBudget(t, childData, size); err != nil {
		return err
	}

	// --- Step 3: seed primitives; mark illegal/non-canonical to skip ---
	err := parallelFor(ctx, int(size), workers, func(_, i int) error {
		p := tier.Position(i)
		tp := tier.TierPosition{Tier: t, Position: p}
		if !a.IsLegalPosition(tp) {
			skip[i] = true
			return nil
		}
		if a.HasSymmetryRemoval() {
			if canon := a.Canonical(tp); canon.Position != p {
				skip[i] = true
				return nil
			}
		}
		val := a.Primitive(tp)
		if val != value.Undecided {
			r := value.NoRemoteness
			if val.HasRemoteness() {
				r = 0
			}
			cells[i].set(val, r)
		}
		return nil
	})
	if err != nil {
		return err
	}

	valueOf := func(tp tier.TierPosition) (value.Value, value.Remoteness, error) {
		if tp.Tier == t {
			v, r := cells[tp.Position].get()
			return v, r, nil
		}
		canonicalTier := a.CanonicalTier(tp.Tier)
		pos := tp.Position
		if canonicalTier != tp.Tier {
			pos = a.PositionInSymmetricTier(tp, canonicalTier)
		}
		data, ok := childData[canonicalTier]
		if !ok {
			return value.Undecided, value.NoRemoteness, gamesmanerr.Newf(gamesmanerr.AdapterContract, t, "child position %v in tier not declared by GetChildTiers", tp)
		}
		return data.values[pos], data.remoteness[pos], nil
	}

	// --- Step 4: win/lose relaxation ---
	for r := value.Remoteness(1); ; r++ {
		updated, err := w.relaxWinLose(ctx, t, size, workers, cells, skip, a, valueOf, r)
		if err != nil {
			return err
		}
		if !updated && r > maxWinLose+1 {
			break
		}
		if r >= value.RemotenessMax {
			break
		}
	}

	// --- Step 5: tie relaxation ---
	for r := value.Remoteness(1); ; r++ {
		updated, err := w.relaxTie(ctx, t, size, workers, cells, skip, a, valueOf, r)
		if err != nil {
			return err
		}
		if !updated && r > maxTie+1 {
			break
		}
		if r >= value.RemotenessMax {
			break
		}
	}

	// --- Step 6: mark remaining undecided as draw; skipped positions
	// revert to (are left as) undecided, since they were never written. ---
	for i := int64(0); i < size; i++ {
		if skip[i] {
			continue
		}
		if v, _ := cells[i].get(); v == value.Undecided {
			cells[i].set(value.Draw, value.NoRemoteness)
		}
	}

	// --- Step 7: flush ---
	rec, err := w.opts.DB.CreateSolvingTier(ctx, t, size)
	if err != nil {
		return gamesmanerr.Wrap(gamesmanerr.ResourceExhausted, t, err, "create solving tier")
	}
	for i := int64(0); i < size; i++ {
		if skip[i] {
			continue
		}
		v, r := cells[i].get()
		if v == value.Undecided {
			continue
		}
		rec.SetValue(tier.Position(i), v)
		rec.SetRemoteness(tier.Position(i), r)
	}
	if err := w.opts.DB.Flush(ctx, t, rec); err != nil {
		if w.opts.Metrics != nil {
			w.opts.Metrics.TiersCorrupted.Inc()
		}
		return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "flush tier")
	}
	if w.opts.Metrics != nil {
		w.opts.Metrics.TiersSolved.Inc()
		w.opts.Metrics.PositionsSolved.Add(float64(size))
	}
	return nil
}

func (w *ValueIteration) relaxWinLose(ctx context.Context, t tier.Tier, size int64, workers int,
	cells []cell, skip []bool, a *adapter.Adapter,
	valueOf func(tier.TierPosition) (value.Value, value.Remoteness, error), r value.Remoteness) (bool, error) {
	var updated atomic.Bool
	err := parallelFor(ctx, int(size), workers, func(_, i int) error {
		if skip[i] {
			return nil
		}
		if v, _ := cells[i].get(); v != value.Undecided {
			return nil
		}
		p := tier.Position(i)
		children := a.ChildPositions(tier.TierPosition{Tier: t, Position: p})
		allWin := len(children) > 0
		maxWinRem := value.Remoteness(-1)
		decided := false
		for _, c := range children {
			cv, cr, err := valueOf(c)
			if err != nil {
				return err
			}
			if cv == value.Lose && cr == r-1 {
				cells[i].set(value.Win, r)
				updated.Store(true)
				decided = true
				break
			}
			if cv != value.Win {
				allWin = false
				continue
			}
			if cr > maxWinRem {
				maxWinRem = cr
			}
		}
		if !decided && allWin && maxWinRem == r-1 {
			cells[i].set(value.Lose, r)
			updated.Store(true)
		}
		return nil
	})
	return updated.Load(), err
}

func (w *ValueIteration) relaxTie(ctx context.Context, t tier.Tier, size int64, workers int,
	cells []cell, skip []bool, a *adapter.Adapter,
	valueOf func(tier.TierPosition) (value.Value, value.Remoteness, error), r value.Remoteness) (bool, error) {
	var updated atomic.Bool
	err := parallelFor(ctx, int(size), workers, func(_, i int) error {
		if skip[i] {
			return nil
		}
		if v, _ := cells[i].get(); v != value.Undecided {
			return nil
		}
		p := tier.Position(i)
		children := a.ChildPositions(tier.TierPosition{Tier: t, Position: p})
		for _, c := range children {
			cv, cr, err := valueOf(c)
			if err != nil {
				return err
			}
			if cv == value.Tie && cr == r-1 {
				cells[i].set(value.Tie, r)
				updated.Store(true)
				break
			}
		}
		return nil
	})
	return updated.Load(), err
}

// loadFullTier reads every record of the already-solved, canonical tier ct
// into memory, reporting the maximum remoteness seen among win/lose
// records and, separately, among tie records - the bounds Solve uses to
// know when relaxation has had enough rounds to reach every position.
func (w *ValueIteration) loadFullTier(ctx context.Context, ct tier.Tier, workers int) (*tierRecords, value.Remoteness, value.Remoteness, error) {
	a := w.opts.Adapter
	size := a.GetTierSize(ct)
	probe, err := w.opts.DB.NewProbe(ctx, ct)
	if err != nil {
		return nil, 0, 0, gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "load child tier")
	}
	defer probe.Close()

	data := &tierRecords{
		values:     make([]value.Value, size),
		remoteness: make([]value.Remoteness, size),
	}
	var maxWinLose, maxTie atomic.Int32
	maxWinLose.Store(-1)
	maxTie.Store(-1)

	err = parallelFor(ctx, int(size), workers, func(_, i int) error {
		p := tier.Position(i)
		v, err := probe.Value(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "probe value")
		}
		data.values[i] = v
		if !v.HasRemoteness() {
			return nil
		}
		r, err := probe.Remoteness(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, ct, err, "probe remoteness")
		}
		if r < 0 {
			return gamesmanerr.Newf(gamesmanerr.DatabaseIO, ct, "position %d has value %v but negative remoteness", p, v)
		}
		data.remoteness[i] = r
		if v == value.Tie {
			casMax(&maxTie, int32(r))
		} else {
			casMax(&maxWinLose, int32(r))
		}
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return data, value.Remoteness(maxWinLose.Load()), value.Remoteness(maxTie.Load()), nil
}

// tierRecordBytes and sweepCellBytes are coarse per-position byte estimates
// used only for the memory-budget check below, mirroring the accounting
// retrograde.go does for its frontiers and reverse graph (spec.md §5).
const (
	tierRecordBytes = 5 // value.Value (int8) + value.Remoteness (int32)
	sweepCellBytes  = 9 // cell's atomic.Int64 (8) + skip's bool (1)
)

// checkMemoryBudget returns a ResourceExhausted error if the estimated
// combined size of every loaded child tier's full record array plus the
// in-progress tier t's own sweep state exceeds w.opts.MemLimit. A zero
// limit means unbounded.
func (w *ValueIteration) checkMemoryBudget(t tier.Tier, childData map[tier.Tier]*tierRecords, size int64) error {
	if w.opts.MemLimit == 0 {
		return nil
	}
	var total int64
	for _, data := range childData {
		total += int64(len(data.values)) * tierRecordBytes
	}
	total += size * sweepCellBytes
	if total > int64(w.opts.MemLimit) {
		return gamesmanerr.Newf(gamesmanerr.ResourceExhausted, t,
			"estimated child-tier/sweep-state footprint %d bytes exceeds memory limit %d bytes",
			total, int64(w.opts.MemLimit))
	}
	return nil
}

func casMax(a *atomic.Int32, v int32) {
	for {
		cur := a.Load()
		if v <= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

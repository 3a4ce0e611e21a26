// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package manager drives a full solve: it discovers the tier dependency
// graph reachable from the game's initial tier, orders it topologically,
// and dispatches each tier to the Retrograde or ValueIteration worker in
// turn, per spec.md §4.5 ("Tier manager"). A tier already marked solved is
// skipped unless Force is set. Solved tiers a later tier still needs to
// probe (its children) are held in a bounded LRU cache so a long solve
// does not keep every tier's records resident at once.
package manager

import (
	"context"
	"fmt"

	"github.com/c2h5oh/datasize"
	lru "github.com/hashicorp/golang-lru/v2"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/coordinator"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/metrics"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
	"github.com/GamesCrafters/GamesmanExperiment/internal/worker"
)

// loadedTierCacheSize bounds how many solved tiers' records the manager
// keeps warm in the database's own cache at once; eviction just drops the
// database's in-memory copy, it never affects a tier's solved status.
const loadedTierCacheSize = 64

// Options configures a Manager.
type Options struct {
	DB      tierdb.DB
	Adapter *adapter.Adapter
	Workers int
	Force   bool
	Logger  log.Logger
	Metrics *metrics.Registry

	// MemLimit bounds each tier worker's estimated frontier/reverse-graph
	// (or, for loopy tiers, child-tier/sweep-state) footprint; see
	// worker.Options.MemLimit. Zero means unbounded.
	MemLimit datasize.ByteSize

	// Coordinator, if non-nil, is consulted for every tier before
	// falling back to solving it locally (spec.md §6.3). Nil means
	// every tier is solved in-process.
	Coordinator coordinator.Coordinator

	// Reference, if non-nil, enables compare mode (spec.md §8 property
	// 8): every position freshly solved into a tier is checked against
	// the matching record in Reference, and a mismatch is reported as a
	// TestFailure rather than left to be discovered by a later query.
	Reference tierdb.ReferenceDB
}

// Manager orchestrates a full solve across every tier reachable from the
// game's initial tier.
type Manager struct {
	opts       Options
	retrograde *worker.Retrograde
	vi         *worker.ValueIteration
	loaded     *lru.Cache[tier.Tier, struct{}]
}

// New constructs a Manager from opts. opts.Adapter must already pass
// Validate.
func New(opts Options) (*Manager, error) {
	if err := opts.Adapter.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	wopts := worker.Options{
		DB:       opts.DB,
		Adapter:  opts.Adapter,
		Workers:  opts.Workers,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		MemLimit: opts.MemLimit,
	}
	m := &Manager{
		opts:       opts,
		retrograde: worker.NewRetrograde(wopts),
		vi:         worker.NewValueIteration(wopts),
	}
	cache, err := lru.NewWithEvict[tier.Tier, struct{}](loadedTierCacheSize, func(t tier.Tier, _ struct{}) {
		if err := opts.DB.Unload(t); err != nil {
			opts.Logger.Warn("manager: unload evicted tier failed", "tier", t, "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	m.loaded = cache
	return m, nil
}

// Plan is the ordered list of canonical tiers a Solve call will visit, in
// dependency (topological) order: every tier appears after all of its
// children.
type Plan []tier.Tier

// Discover performs a BFS over the tier dependency graph starting from the
// game's initial tier, following GetChildTiers edges (canonicalized via
// Tier Symmetry Removal when available), then returns it topologically
// sorted via Kahn's algorithm so each tier precedes every tier that
// depends on it.
func Discover(a *adapter.Adapter) (Plan, error) {
	start := a.CanonicalTier(a.GetInitialTier())

	children := make(map[tier.Tier][]tier.Tier)
	visited := map[tier.Tier]bool{start: true}
	queue := []tier.Tier{start}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		var kids []tier.Tier
		seen := make(map[tier.Tier]bool)
		for _, raw := range a.GetChildTiers(t) {
			ct := a.CanonicalTier(raw)
			if ct == t {
				// Same-tier (loopy) transitions are internal to a single
				// Solve call and must never be declared as a dependency.
				continue
			}
			if seen[ct] {
				continue
			}
			seen[ct] = true
			kids = append(kids, ct)
			if !visited[ct] {
				visited[ct] = true
				queue = append(queue, ct)
			}
		}
		children[t] = kids
	}

	// Kahn's algorithm: indegree(t) counts tiers that have t as a child,
	// i.e. tiers depending on t being solved first.
	indegree := make(map[tier.Tier]int, len(visited))
	for t := range visited {
		indegree[t] = 0
	}
	for _, kids := range children {
		for _, c := range kids {
			indegree[c]++
		}
	}

	var ready []tier.Tier
	for t := range visited {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}

	var order Plan
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)
		for _, c := range children[t] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	if len(order) != len(visited) {
		return nil, fmt.Errorf("manager: tier dependency graph has a cycle (declared %d tiers, ordered %d) - GetChildTiers must never return the tier itself or a tier reachable only through it", len(visited), len(order))
	}

	// indegree(t) counts tiers depending on t, so Kahn's algorithm peels
	// off zero-indegree (no-dependents) tiers first - the initial tier and
	// other tiers with no parents - giving dependents-before-dependencies
	// order; reverse it so every tier comes after all of its children.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Solve solves every tier in plan, in order, dispatching each to the
// coordinator (if configured) or the appropriate local worker based on
// the adapter's declared tier type.
func (m *Manager) Solve(ctx context.Context, plan Plan) error {
	log := m.opts.Logger

	for _, t := range plan {
		select {
		case <-ctx.Done():
			return gamesmanerr.Wrap(gamesmanerr.Cancelled, t, ctx.Err(), "solve cancelled")
		default:
		}

		status, err := m.opts.DB.Status(ctx, t)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "check tier status")
		}
		if status == tier.StatusSolved && !m.opts.Force {
			log.Debug("manager: tier already solved, skipping", "tier", t)
			m.loaded.Add(t, struct{}{})
			continue
		}

		if m.opts.Coordinator != nil {
			rep, err := m.opts.Coordinator.Dispatch(ctx, t, m.opts.Force)
			if err != nil {
				return err
			}
			log.Info("manager: remote worker finished tier", "tier", t, "reply", rep.Code)
			m.loaded.Add(t, struct{}{})
			continue
		}

		if err := m.solveLocal(ctx, t); err != nil {
			return err
		}
		m.loaded.Add(t, struct{}{})

		if m.opts.Reference != nil {
			if err := m.compareTier(ctx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// compareTier checks every position in t's freshly-solved record against
// the matching record in Reference, per spec.md §8 property 8. A probe
// opened on Reference for an unsolved tier is expected to error rather
// than silently report Undecided for everything, so such an error is
// surfaced as-is rather than treated as a pass.
func (m *Manager) compareTier(ctx context.Context, t tier.Tier) error {
	refProbe, err := m.opts.Reference.NewProbe(ctx, t)
	if err != nil {
		return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "open reference probe for compare mode")
	}
	defer refProbe.Close()

	probe, err := m.opts.DB.NewProbe(ctx, t)
	if err != nil {
		return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "open probe for compare mode")
	}
	defer probe.Close()

	size := m.opts.Adapter.GetTierSize(t)
	for p := tier.Position(0); int64(p) < size; p++ {
		refValue, err := refProbe.Value(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "read reference value in compare mode")
		}
		if refValue == value.Undecided {
			continue
		}
		gotValue, err := probe.Value(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "read value in compare mode")
		}
		if gotValue != refValue {
			return gamesmanerr.NewTestFailure(t, p, gamesmanerr.TestCompareMismatchError)
		}
		if !refValue.HasRemoteness() {
			continue
		}
		refRemoteness, err := refProbe.Remoteness(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "read reference remoteness in compare mode")
		}
		gotRemoteness, err := probe.Remoteness(p)
		if err != nil {
			return gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "read remoteness in compare mode")
		}
		if gotRemoteness != refRemoteness {
			return gamesmanerr.NewTestFailure(t, p, gamesmanerr.TestCompareMismatchError)
		}
	}
	return nil
}

func (m *Manager) solveLocal(ctx context.Context, t tier.Tier) error {
	a := m.opts.Adapter
	switch a.TierType(t) {
	case tier.ImmediateTransition, tier.LoopFree:
		return m.retrograde.Solve(ctx, t)
	default:
		return m.vi.Solve(ctx, t)
	}
}

// Run is the usual entry point: discover the plan from scratch and solve
// it.
func (m *Manager) Run(ctx context.Context) error {
	plan, err := Discover(m.opts.Adapter)
	if err != nil {
		return err
	}
	m.opts.Logger.Info("manager: discovered tier plan", "tiers", len(plan))
	return m.Solve(ctx, plan)
}

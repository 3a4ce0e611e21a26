// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package tierdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// memWritable is the MemStore's WritableTier: two parallel slices, written
// without locking since the caller guarantees no aliasing across
// positions.
type memWritable struct {
	values     []value.Value
	remoteness []value.Remoteness
}

func newMemWritable(size int64) *memWritable {
	w := &memWritable{
		values:     make([]value.Value, size),
		remoteness: make([]value.Remoteness, size),
	}
	for i := range w.remoteness {
		w.remoteness[i] = value.NoRemoteness
	}
	return w
}

func (w *memWritable) SetValue(p tier.Position, v value.Value) { w.values[p] = v }
func (w *memWritable) SetRemoteness(p tier.Position, r value.Remoteness) {
	w.remoteness[p] = r
}
func (w *memWritable) Size() int64 { return int64(len(w.values)) }

// MemStore is an in-memory DB, used by tests so the flush/load round-trip property (spec.md §8 property 7) and the
// full solver pipeline can be exercised without mdbx.
type MemStore struct {
	mu       sync.RWMutex
	tiers    map[tier.Tier]*memWritable
	statuses map[tier.Tier]tier.Status
}

// NewMemStore returns an empty in-memory database.
func NewMemStore() *MemStore {
	return &MemStore{
		tiers:    make(map[tier.Tier]*memWritable),
		statuses: make(map[tier.Tier]tier.Status),
	}
}

func (m *MemStore) Status(_ context.Context, t tier.Tier) (tier.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.statuses[t]; ok {
		return s, nil
	}
	return tier.StatusMissing, nil
}

func (m *MemStore) CreateSolvingTier(_ context.Context, _ tier.Tier, size int64) (WritableTier, error) {
	return newMemWritable(size), nil
}

func (m *MemStore) Flush(_ context.Context, t tier.Tier, w WritableTier) error {
	mw, ok := w.(*memWritable)
	if !ok {
		return fmt.Errorf("tierdb: MemStore.Flush given foreign WritableTier")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Copy so the caller's subsequent mutation of w (there should be none
	// after Flush, but defensively) cannot corrupt persisted state.
	cp := &memWritable{
		values:     append([]value.Value(nil), mw.values...),
		remoteness: append([]value.Remoteness(nil), mw.remoteness...),
	}
	m.tiers[t] = cp
	m.statuses[t] = tier.StatusSolved
	return nil
}

func (m *MemStore) Unload(t tier.Tier) error {
	// MemStore never evicts; Unload is a no-op satisfying the interface.
	return nil
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) NewProbe(_ context.Context, t tier.Tier) (Probe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mw, ok := m.tiers[t]
	if !ok {
		return nil, fmt.Errorf("tierdb: tier %d not solved", t)
	}
	return &memProbe{mw}, nil
}

type memProbe struct{ w *memWritable }

func (p *memProbe) Value(pos tier.Position) (value.Value, error) {
	if pos < 0 || int64(pos) >= int64(len(p.w.values)) {
		return 0, fmt.Errorf("tierdb: position %d out of range", pos)
	}
	return p.w.values[pos], nil
}

func (p *memProbe) Remoteness(pos tier.Position) (value.Remoteness, error) {
	if pos < 0 || int64(pos) >= int64(len(p.w.remoteness)) {
		return 0, fmt.Errorf("tierdb: position %d out of range", pos)
	}
	return p.w.remoteness[pos], nil
}

func (p *memProbe) Close() error { return nil }

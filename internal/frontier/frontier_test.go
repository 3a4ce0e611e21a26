package frontier

import (
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
)

func TestAddAndGet(t *testing.T) {
	f := New(2)
	f.Add(0, tier.Position(5), 0)
	f.Add(0, tier.Position(6), 1)
	f.AccumulateDividers()

	if got := f.Len(0); got != 2 {
		t.Fatalf("Len(0) = %d, want 2", got)
	}
	if got := f.Get(0, 0); got != 5 {
		t.Errorf("Get(0,0) = %d, want 5", got)
	}
	if got := f.SourceTierIndex(0, 1); got != 1 {
		t.Errorf("SourceTierIndex(0,1) = %d, want 1", got)
	}
}

func TestFree(t *testing.T) {
	f := New(1)
	f.Add(3, tier.Position(1), 0)
	f.Free(3)
	if got := f.Len(3); got != 0 {
		t.Errorf("Len(3) after Free = %d, want 0", got)
	}
}

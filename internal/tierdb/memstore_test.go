package tierdb

import (
	"context"
	"testing"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := NewMemStore()

	w, err := db.CreateSolvingTier(ctx, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	w.SetValue(0, value.Lose)
	w.SetRemoteness(0, 0)
	w.SetValue(1, value.Win)
	w.SetRemoteness(1, 1)
	w.SetValue(2, value.Draw)
	w.SetValue(3, value.Tie)
	w.SetRemoteness(3, 2)

	if err := db.Flush(ctx, 1, w); err != nil {
		t.Fatal(err)
	}

	status, err := db.Status(ctx, 1)
	if err != nil || status != tier.StatusSolved {
		t.Fatalf("Status = (%v, %v), want (Solved, nil)", status, err)
	}

	probe, err := db.NewProbe(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer probe.Close()

	cases := []struct {
		pos  tier.Position
		v    value.Value
		r    value.Remoteness
	}{
		{0, value.Lose, 0},
		{1, value.Win, 1},
		{2, value.Draw, value.NoRemoteness},
		{3, value.Tie, 2},
	}
	for _, c := range cases {
		gv, err := probe.Value(c.pos)
		if err != nil || gv != c.v {
			t.Errorf("Value(%d) = (%v, %v), want (%v, nil)", c.pos, gv, err, c.v)
		}
		gr, err := probe.Remoteness(c.pos)
		if err != nil || gr != c.r {
			t.Errorf("Remoteness(%d) = (%v, %v), want (%v, nil)", c.pos, gr, err, c.r)
		}
	}
}

func TestProbeUnsolvedTier(t *testing.T) {
	db := NewMemStore()
	if _, err := db.NewProbe(context.Background(), 99); err == nil {
		t.Error("NewProbe on unsolved tier = nil error, want error")
	}
}

func TestRecordCodecRoundTrip(t *testing.T) {
	cases := []struct {
		v value.Value
		r value.Remoteness
	}{
		{value.Undecided, value.NoRemoteness},
		{value.Draw, value.NoRemoteness},
		{value.Win, 17},
		{value.Lose, 0},
		{value.Tie, 1023},
	}
	for _, c := range cases {
		buf := encodeRecord(nil, c.v, c.r)
		gv, gr, err := decodeRecord(buf)
		if err != nil {
			t.Fatalf("decodeRecord(%v,%v) error: %v", c.v, c.r, err)
		}
		if gv != c.v || gr != c.r {
			t.Errorf("round trip (%v,%v) = (%v,%v)", c.v, c.r, gv, gr)
		}
	}
}

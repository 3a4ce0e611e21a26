// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// TestParallelForSingleOwnerTid reproduces the maintainer-identified
// interleaving (workers=2, n>=3: two launches of tid 0 overlapping while a
// slower one is still running) and asserts it cannot happen: at no point may
// two goroutines be executing fn with the same tid at once. occupied[tid]
// tracks whether some goroutine is currently "inside" that tid's critical
// section; a concurrent entrant would see it already true.
func TestParallelForSingleOwnerTid(t *testing.T) {
	const workers = 2
	const n = 64

	var occupied [workers]atomic.Bool
	var seen [n]atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err := parallelFor(context.Background(), n, workers, func(tid, i int) error {
		if !occupied[tid].CompareAndSwap(false, true) {
			t.Errorf("tid %d entered while already occupied (i=%d)", tid, i)
			return nil
		}
		defer occupied[tid].Store(false)
		seen[i].Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("parallelFor: %v", err)
	}

	for i := range seen {
		if !seen[i].Load() {
			t.Errorf("index %d was never visited", i)
		}
	}
}

// TestParallelForPropagatesError confirms the errgroup-style barrier: the
// first error returned by fn aborts the remaining work and is surfaced from
// parallelFor, matching spec.md §5's "parallel-for ... implicit barrier".
func TestParallelForPropagatesError(t *testing.T) {
	sentinel := errSentinel{}
	err := parallelFor(context.Background(), 16, 4, func(tid, i int) error {
		if i == 5 {
			return sentinel
		}
		return nil
	})
	if err != sentinel {
		t.Fatalf("parallelFor error = %v, want %v", err, sentinel)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }

func TestParallelForZeroLength(t *testing.T) {
	called := false
	if err := parallelFor(context.Background(), 0, 4, func(tid, i int) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("parallelFor: %v", err)
	}
	if called {
		t.Fatal("fn called for n=0")
	}
}

// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package worker

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// numWorkers returns the configured worker-pool size, defaulting to
// GOMAXPROCS as spec.md §5 specifies ("P, default: CPU count").
func numWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.GOMAXPROCS(0)
}

// parallelFor runs fn(tid, i) over i in [0, n), spawning exactly workers
// long-lived goroutines, each owning a single tid in [0, workers) for its
// entire lifetime and pulling the next i from a shared atomic counter.
// Because a tid is never held by more than one live goroutine at a time,
// callers may safely accumulate per-tid state (e.g. a per-goroutine
// Frontier) without synchronization. It implements the parallel-for
// regions of spec.md §5: "Parallel-for constructs may block at their
// implicit barrier at the end of each parallel region" — parallelFor
// itself IS that barrier, returning only once every i has completed or the
// first error aborts the group.
func parallelFor(ctx context.Context, n, workers int, fn func(tid, i int) error) error {
	if n == 0 {
		return nil
	}
	workers = numWorkers(workers)
	if workers > n {
		workers = n
	}
	g, ctx := errgroup.WithContext(ctx)
	var next atomic.Int64

	for tid := 0; tid < workers; tid++ {
		tid := tid
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				if err := fn(tid, i); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}

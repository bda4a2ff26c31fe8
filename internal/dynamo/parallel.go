package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn for every index in [0, n) on at most workers goroutines.
// workers <= 0 selects runtime.NumCPU(). The first error returned by fn
// cancels the context handed to the remaining calls.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			return fn(gctx, idx)
		})
	}
	return g.Wait()
}

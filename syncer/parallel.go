package syncer

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// runParallelGeneric runs fn for every task with at most maxConcurrent in
// flight. No further tasks are launched once ctx is done. Errors of all
// tasks are combined.
func runParallelGeneric[T any](ctx context.Context, tasks []T, maxConcurrent int, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs error

launch:
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(task)
	}

	wg.Wait()
	return errs
}

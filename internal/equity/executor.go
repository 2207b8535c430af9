package equity

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor runs independent tasks with bounded parallelism. Results keep
// task order; the first error cancels the rest and is returned alone.
type Executor struct {
	parallelism int
}

// NewExecutor creates an executor. Parallelism of 1 or less runs tasks
// sequentially on the calling goroutine.
func NewExecutor(parallelism int) *Executor {
	return &Executor{parallelism: parallelism}
}

// Parallelism reports the configured worker bound
func (e *Executor) Parallelism() int {
	if e == nil {
		return 1
	}
	return max(e.parallelism, 1)
}

// Execute runs tasks on e and collects their results in order
func Execute[T any](ctx context.Context, e *Executor, tasks []func(context.Context) (T, error)) ([]T, error) {
	out := make([]T, len(tasks))
	if e.Parallelism() <= 1 {
		for i, task := range tasks {
			v, err := task(ctx)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Parallelism())
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(gctx)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package parallel

import "context"

import "golang.org/x/sync/errgroup"

// Map runs fn over jobs on a pool of workers that lives for this call only.
// Results keep the job order. The first error cancels the remaining jobs and
// is returned.
func Map[J, R any](ctx context.Context, jobs []J, workers int, fn func(ctx context.Context, job J) (R, error)) ([]R, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]R, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, jobs[i])
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Barrier runs every fn concurrently and waits for all of them. It returns the
// first error after all functions have finished.
func Barrier(ctx context.Context, fns ...func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			return fn(ctx)
		})
	}
	return g.Wait()
}

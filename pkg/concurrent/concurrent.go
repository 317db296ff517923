// Package concurrent runs work with bounded parallelism.
package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Map calls fn for every item with at most limit calls in flight and
// returns the results in input order. The first error cancels the context
// passed to the remaining calls and is returned. A limit below one means
// GOMAXPROCS.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]R, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Pool bounds how many blocking calls run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool of size slots. A size below one means GOMAXPROCS.
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Offload runs fn once a slot is free. It returns ctx.Err() if the context
// ends before a slot is acquired; fn itself is not interrupted.
func Offload[R any](ctx context.Context, p *Pool, fn func() (R, error)) (R, error) {
	var zero R
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer p.sem.Release(1)
	return fn()
}

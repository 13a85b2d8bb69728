package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All awaits every future and returns their values in input order.
// The first error cancels the remaining awaits and is returned.
func All[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	out := make([]T, len(futures))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range futures {
		eg.Go(func() error {
			v, err := f.Await(egCtx)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

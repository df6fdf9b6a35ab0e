package samples

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/collate/internal/batch"
)

// ReadAll reads every file in paths with at most workers files in flight
// (one per CPU when workers <= 0). The result keeps the order of paths and
// is ready to be flattened into a batch.
func ReadAll(ctx context.Context, paths []string, workers int) (batch.List, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make(batch.List, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := ReadFile(path)
			if err != nil {
				return err
			}
			out[i] = rec.Value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

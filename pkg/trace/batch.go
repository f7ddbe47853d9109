package trace

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// TraceMany traces each target from root with at most limit traces in
// flight. results[i] belongs to targets[i] and is nil only when that target
// was rejected as invalid. The returned error joins every per-target error.
func (t *Tracer) TraceMany(ctx context.Context, root string, targets []string, limit int) ([]*Result, error) {
	results := make([]*Result, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			res, err := t.Trace(ctx, root, target)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", target, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Locate traces target from each root in order and returns the first
// successful result. When no root succeeds it returns the last result and
// its error. Cancellation stops the search.
func (t *Tracer) Locate(ctx context.Context, roots []string, target string) (*Result, error) {
	if len(roots) == 0 {
		return nil, errors.New("no root devices given")
	}

	var last *Result
	var lastErr error
	for _, root := range roots {
		res, err := t.Trace(ctx, root, target)
		if res == nil {
			return nil, err
		}
		if res.Status == StatusSuccess {
			return res, nil
		}
		last, lastErr = res, err
		if res.Status == StatusCanceled {
			break
		}
	}
	return last, lastErr
}

package shrinkage

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidParallelism = errors.New("parallelism must be positive")

// RunSuite runs the experiments with at most parallelism running at once. Reports are
// returned in experiment order. A failed experiment leaves a nil report and does not stop
// the others; the failures are joined into the returned error.
func RunSuite(ctx context.Context, experiments []*Experiment, parallelism int) ([]*Report, error) {
	if parallelism <= 0 {
		return nil, ErrInvalidParallelism
	}

	reports := make([]*Report, len(experiments))
	errs := make([]error, len(experiments))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, e := range experiments {
		g.Go(func() error {
			report, err := e.Run(ctx)
			if err != nil {
				slog.Error("experiment failed", "experiment", e.Name(), "error", err)
				errs[i] = err
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	g.Wait()
	return reports, errors.Join(errs...)
}

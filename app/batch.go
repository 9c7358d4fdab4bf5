package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/monitoring"
	"github.com/kilianp07/loadshift/core/report"
	"github.com/kilianp07/loadshift/pkg/eventio"
)

// Batch runs every household with at most maxParallel runs in flight. A
// household whose file cannot be read or whose run hits a configuration
// problem is reported with its error and does not stop the others. Any
// other error cancels the batch.
func (s *Service) Batch(ctx context.Context, households []eventio.Household, maxParallel int) (report.Batch, error) {
	g, ctx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}
	log := s.log()
	out := make([]report.Household, len(households))
	for i, h := range households {
		i, h := i, h
		g.Go(func() error {
			tags := monitoring.RunTags(h.ID, s.Tariff)
			return monitoring.Guard(s.monitor(), tags, func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				tbl, err := eventio.ReadFile(h.Path)
				if err != nil {
					log.Warnf("household %s skipped: %v", h.ID, err)
					out[i] = report.Household{ID: h.ID, Tariff: s.Tariff, Err: err}
					return nil
				}
				res, err := s.Run(ctx, Input{ID: h.ID, Events: tbl})
				out[i] = res.Household
				switch {
				case err == nil:
				case model.IsConfigError(err):
					log.Warnf("%v", err)
					return nil
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					return err
				default:
					s.monitor().CaptureException(err, tags)
					return err
				}
				log.Infof("household %s: %d/%d scheduled, savings %s",
					h.ID, res.Household.Schedule.Scheduled-res.Household.Resolver.Failed,
					res.Household.Schedule.Considered, res.Household.Cost.Savings.StringFixed(2))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return report.Batch{}, err
	}
	return report.Summarize(out), nil
}

// BatchDir runs every CSV file in dir.
func (s *Service) BatchDir(ctx context.Context, dir string, maxParallel int) (report.Batch, error) {
	hs, err := eventio.ListDir(dir)
	if err != nil {
		return report.Batch{}, err
	}
	if len(hs) == 0 {
		return report.Batch{}, fmt.Errorf("no household files in %s", dir)
	}
	return s.Batch(ctx, hs, maxParallel)
}

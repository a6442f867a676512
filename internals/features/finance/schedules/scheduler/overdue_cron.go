// Package scheduler runs the nightly overdue sweep on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"feeledger_backend/internals/logger"
)

type Sweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

const sweepTimeout = 4 * time.Minute

// StartOverdueCron registers the sweep at spec (standard 5-field cron,
// evaluated in loc) and starts the runner. Stop the returned cron on shutdown.
func StartOverdueCron(spec string, loc *time.Location, sw Sweeper) (*cron.Cron, error) {
	log := logger.WithComponent("overdue_cron")
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(spec, func() { RunSweep(context.Background(), sw) }); err != nil {
		return nil, errors.Wrapf(err, "add overdue cron %q", spec)
	}
	c.Start()
	log.Info().Str("schedule", spec).Str("tz", loc.String()).Msg("overdue sweep scheduled")
	return c, nil
}

// RunSweep runs one sweep with a timeout and logs the outcome.
func RunSweep(ctx context.Context, sw Sweeper) (int64, error) {
	log := logger.WithComponent("overdue_cron")
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := sw.SweepOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("overdue sweep failed")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("items", n).Msg("items marked overdue")
	}
	return n, nil
}

// Package jobs runs the periodic maintenance work: the reconciliation sweep
// over decided matches and the purge of expired password-reset tokens.
package jobs

import (
	"context" // Job deadlines
	"time"    // Intervals

	"github.com/go-co-op/gocron/v2" // Scheduler
	"github.com/sirupsen/logrus"    // Logging

	"scorekeeper/internal/service" // Use cases
)

const purgeInterval = time.Hour // Reset tokens live for minutes, hourly is plenty

// Sweeper re-runs reconciliation for decided matches
type Sweeper interface {
	SweepDecided(ctx context.Context) (service.SweepResult, error)
}

// TokenPurger clears reset tokens past their expiry
type TokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context) (int64, error)
}

// Runner holds the job bodies so they can be called without a scheduler
type Runner struct {
	Sweeper Sweeper
	Purger  TokenPurger
	Log     logrus.FieldLogger
}

// Sweep runs one reconciliation sweep and logs its outcome
func (r *Runner) Sweep(ctx context.Context) {
	start := time.Now()
	res, err := r.Sweeper.SweepDecided(ctx)
	if err != nil {
		r.Log.WithField("error", err.Error()).Error("Reconciliation sweep failed")
		return
	}
	r.Log.WithFields(logrus.Fields{
		"matches":  res.Matches,
		"scored":   res.Scored,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"duration": time.Since(start).String(),
	}).Info("Reconciliation sweep finished")
}

// Purge clears expired reset tokens and logs how many were removed
func (r *Runner) Purge(ctx context.Context) {
	n, err := r.Purger.PurgeExpiredResetTokens(ctx)
	if err != nil {
		r.Log.WithField("error", err.Error()).Error("Reset token purge failed")
		return
	}
	if n > 0 {
		r.Log.WithField("cleared", n).Info("Expired reset tokens cleared")
	}
}

// Start schedules the sweep every sweepInterval (0 disables it) and the
// token purge hourly. Overlapping runs of the same job are skipped.
func Start(r *Runner, sweepInterval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if sweepInterval > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(func() { r.Sweep(context.Background()) }),
			gocron.WithName("reconciliation-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}
	_, err = sched.NewJob(
		gocron.DurationJob(purgeInterval),
		gocron.NewTask(func() { r.Purge(context.Background()) }),
		gocron.WithName("reset-token-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

// Package scheduler repeats pipeline runs on a fixed interval until the
// context is cancelled. Runs never overlap: the next tick waits for the
// previous run to return.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work. An error return is logged and the
// schedule continues; only context cancellation stops it.
type Job func(ctx context.Context) error

type Scheduler struct {
	interval   time.Duration
	runOnStart bool
	log        *logrus.Logger
}

func New(interval time.Duration, runOnStart bool, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{interval: interval, runOnStart: runOnStart, log: log}
}

// Start blocks, invoking job every interval, until ctx is cancelled. It
// returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context, job Job) error {
	s.log.WithFields(logrus.Fields{
		"interval":     s.interval.String(),
		"run_on_start": s.runOnStart,
	}).Info("scheduler started")

	if s.runOnStart {
		s.invoke(ctx, job)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.invoke(ctx, job)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := job(ctx); err != nil {
		s.log.WithError(err).Error("scheduled run failed")
	}
}

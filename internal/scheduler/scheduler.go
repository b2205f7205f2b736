// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger deletes expired assessments
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner
type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration
}

// New creates a scheduler. Each job run is bounded by timeout.
func New(log logrus.FieldLogger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		log:     log,
		timeout: timeout,
	}
}

// ScheduleRetention registers the retention purge on a cron spec such as "@daily" or "0 3 * * *"
func (s *Scheduler) ScheduleRetention(spec string, p Purger) error {
	if _, err := s.cron.AddFunc(spec, s.retentionJob(p)); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	s.log.Infof("Retention purge scheduled: %s", spec)
	return nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) retentionJob(p Purger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			s.log.WithError(err).Error("Retention purge failed")
			return
		}
		s.log.WithField("deleted", n).Info("Retention purge finished")
	}
}

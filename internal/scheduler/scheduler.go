// Package scheduler runs periodic maintenance jobs for the booking core.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"hotel-booking/internal/usecase"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

type Scheduler struct {
	cron     *cron.Cron
	dispatch usecase.DispatchService
	log      *zap.Logger
}

func New(dispatch usecase.DispatchService, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		dispatch: dispatch,
		log:      log.With(zap.String("component", "scheduler")),
	}
}

// Start registers the redelivery sweep on schedule and starts the cron loop.
// An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		s.log.Info("Notification redelivery disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.redeliver); err != nil {
		return fmt.Errorf("schedule redelivery %q: %w", schedule, err)
	}
	s.cron.Start()
	s.log.Info("Scheduler started", zap.String("redelivery", schedule))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) redeliver() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.dispatch.Redeliver(ctx); err != nil {
		s.log.Warn("Redelivery sweep failed", zap.Error(err))
	}
}

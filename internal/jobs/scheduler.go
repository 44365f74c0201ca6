package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = time.Minute

// LifecycleAdvancer moves bookings through confirmed, active and completed.
type LifecycleAdvancer interface {
	AdvanceStatuses(ctx context.Context, now time.Time) (activated, completed int64, err error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

var nowFn = time.Now

// NewScheduler registers the booking lifecycle job on schedule, which accepts
// standard five-field specs and descriptors such as "@every 5m".
func NewScheduler(schedule string, bookings LifecycleAdvancer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()
	s := &Scheduler{cron: c, logger: logger}

	_, err := c.AddFunc(schedule, func() {
		s.runLifecycle(bookings)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runLifecycle(bookings LifecycleAdvancer) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	activated, completed, err := bookings.AdvanceStatuses(ctx, nowFn())
	if err != nil {
		s.logger.Error("booking lifecycle job failed", zap.Error(err))
		return
	}
	s.logger.Debug("booking lifecycle job ran", zap.Int64("activated", activated), zap.Int64("completed", completed))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron jobs started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

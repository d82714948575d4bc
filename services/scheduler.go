package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const expirySweepTimeout = time.Minute

// ExpiryScheduler periodically runs the tournament retention sweep.
type ExpiryScheduler struct {
	sched  gocron.Scheduler
	logger *zap.Logger
}

func NewExpiryScheduler(tournaments TournamentService, interval time.Duration, logger *zap.Logger) (*ExpiryScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), expirySweepTimeout)
			defer cancel()
			n, err := tournaments.AutoExpire(ctx, time.Now())
			if err != nil {
				logger.Error("tournament expiry sweep failed", zap.Int("expired", n), zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("tournament expiry sweep finished", zap.Int("expired", n))
			}
		}),
		gocron.WithName("tournament-auto-expire"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	return &ExpiryScheduler{sched: sched, logger: logger}, nil
}

func (e *ExpiryScheduler) Start() {
	e.sched.Start()
	e.logger.Info("expiry scheduler started")
}

func (e *ExpiryScheduler) Shutdown() error {
	return e.sched.Shutdown()
}

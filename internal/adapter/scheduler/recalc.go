package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// Recalculator refreshes the trust score of every fundraiser with an active campaign.
type Recalculator interface {
	RecalculateActive(ctx context.Context) (int, error)
}

// RecalcScheduler runs the trust sweep on a standard five-field cron schedule.
// Overlapping runs are skipped.
type RecalcScheduler struct {
	cron    *cron.Cron
	job     Recalculator
	timeout time.Duration
	logger  *zap.Logger
}

func NewRecalcScheduler(spec string, job Recalculator, timeout time.Duration, logger *zap.Logger) (*RecalcScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RecalcScheduler{job: job, timeout: timeout, logger: logger}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("%w: trust recalculation schedule %q: %v", domain.ErrInvalidInput, spec, err)
	}
	return s, nil
}

func (s *RecalcScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Trust recalculation scheduled", zap.Time("next_run", s.Next()))
}

// Stop prevents new runs and waits for a running sweep or ctx, whichever ends first.
func (s *RecalcScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Trust recalculation still running at shutdown")
	}
}

// Next reports when the sweep fires next. It is zero before Start.
func (s *RecalcScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *RecalcScheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs one sweep immediately.
func (s *RecalcScheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.job.RecalculateActive(ctx)
	if err != nil {
		s.logger.Error("Trust recalculation failed",
			zap.Int("recalculated", n),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return n, err
	}
	s.logger.Info("Trust recalculation finished",
		zap.Int("recalculated", n),
		zap.Duration("duration", time.Since(start)))
	return n, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	sweepConcurrency  = 4
)

// TrustStore is everything the trust calculator reads and writes.
type TrustStore interface {
	ports.TrustHistoryReader
	ports.TrustResultWriter
	ports.TrustEventReader
	ports.FundraiserLister
}

// TrustService computes, persists and serves fundraiser trust scores.
type TrustService struct {
	store TrustStore
	options
}

func NewTrustService(store TrustStore, opts ...Option) *TrustService {
	return &TrustService{store: store, options: buildOptions(opts)}
}

// ComputeTrustScore recalculates a fundraiser's trust score from their full
// history, supersedes the result on the profile and appends an audit event.
func (s *TrustService) ComputeTrustScore(ctx context.Context, userID, trigger string) (*domain.TrustResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	if trigger == "" {
		trigger = domain.TriggerManual
	}
	now := s.now()

	history, err := s.loadHistory(ctx, userID, now)
	if err != nil {
		s.metrics.RecordFailure("trust", domain.ErrorKind(err))
		return nil, err
	}

	comp := domain.ComputeTrust(*history, now)
	result := domain.TrustResult{
		UserID:          userID,
		TrustScore:      comp.Score,
		TrustTier:       comp.Tier,
		Metrics:         comp.Metrics,
		Confidence:      comp.Confidence,
		Recommendations: comp.Recommendations,
		ComputedAt:      now,
	}
	event := domain.TrustScoreEvent{
		ID:              s.newID(),
		UserID:          userID,
		Trigger:         trigger,
		NewScore:        comp.Score,
		NewTier:         comp.Tier,
		Metrics:         comp.Metrics,
		Confidence:      comp.Confidence,
		Recommendations: comp.Recommendations,
		CreatedAt:       now,
	}
	if prev := history.Profile.Trust; prev != nil {
		old := prev.TrustScore
		event.OldScore = &old
		event.OldTier = prev.TrustTier
	}

	applied, err := s.store.SaveTrustResult(ctx, result, event)
	if err != nil {
		err = persistenceError(err, "save trust result")
		s.metrics.RecordFailure("trust", domain.ErrorKind(err))
		return nil, err
	}
	if !applied {
		s.logger.Warn("Newer trust result already stored, projection left unchanged",
			zap.String("user_id", userID),
			zap.Time("computed_at", now))
	}

	s.invalidateCache(ctx, userID)
	s.publish(ctx, ports.EventTrustScoreComputed, userID, event)

	elapsed := s.now().Sub(now)
	s.metrics.RecordTrustComputation(result.TrustTier, result.TrustScore, elapsed, applied)
	s.logger.Info("Trust score computed",
		zap.String("user_id", userID),
		zap.String("trigger", trigger),
		zap.Float64("score", result.TrustScore),
		zap.String("tier", string(result.TrustTier)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("applied", applied),
		zap.Duration("duration", elapsed))

	return &result, nil
}

// loadHistory reads the profile first so a missing user is reported as not
// found, then fetches the remaining history concurrently.
func (s *TrustService) loadHistory(ctx context.Context, userID string, now time.Time) (*domain.TrustHistory, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, classify(err, domain.ErrDataAccess, "load profile")
	}

	h := &domain.TrustHistory{Profile: *profile}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		h.Campaigns, err = s.store.ListCampaignsByOwner(gctx, userID)
		return classify(err, domain.ErrDataAccess, "list campaigns")
	})
	g.Go(func() (err error) {
		h.Updates, err = s.store.ListUpdatesByOwner(gctx, userID)
		return classify(err, domain.ErrDataAccess, "list updates")
	})
	g.Go(func() (err error) {
		h.Donations, err = s.store.ListDonationsByOwner(gctx, userID)
		return classify(err, domain.ErrDataAccess, "list donations")
	})
	g.Go(func() (err error) {
		h.Feedback, err = s.store.ListFeedbackByOwner(gctx, userID)
		return classify(err, domain.ErrDataAccess, "list feedback")
	})
	g.Go(func() (err error) {
		h.Events, err = s.store.ListSecurityEvents(gctx, userID, now.Add(-domain.AnomalyLookback))
		return classify(err, domain.ErrDataAccess, "list security events")
	})
	if err := g.Wait(); err != nil {
		// History reads never report a missing subject; the profile was just found.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: history changed during read: %w", domain.ErrDataAccess, err)
		}
		return nil, err
	}
	return h, nil
}

// LatestTrustResult serves the persisted result, through the cache when one is configured.
func (s *TrustService) LatestTrustResult(ctx context.Context, userID string) (*domain.TrustResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	if s.cache != nil {
		cached, err := s.cache.GetTrustResult(ctx, userID)
		if err != nil {
			s.logger.Warn("Trust cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, classify(err, domain.ErrDataAccess, "load profile")
	}
	if profile.Trust == nil {
		return nil, fmt.Errorf("%w: no trust score computed for user %s", domain.ErrNotFound, userID)
	}

	if s.cache != nil {
		if err := s.cache.SetTrustResult(ctx, *profile.Trust); err != nil {
			s.logger.Warn("Trust cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return profile.Trust, nil
}

// ListTrustEvents returns the audit trail for a user, newest first.
func (s *TrustService) ListTrustEvents(ctx context.Context, userID string, limit int) ([]domain.TrustScoreEvent, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = defaultEventLimit
	case limit > maxEventLimit:
		limit = maxEventLimit
	}
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		return nil, classify(err, domain.ErrDataAccess, "load profile")
	}
	events, err := s.store.ListTrustEvents(ctx, userID, limit)
	if err != nil {
		return nil, classify(err, domain.ErrDataAccess, "list trust events")
	}
	return events, nil
}

// RecalculateActive recomputes every fundraiser with an active campaign. Per-user
// failures are logged and counted; only a failure to enumerate users is returned.
func (s *TrustService) RecalculateActive(ctx context.Context) (int, error) {
	users, err := s.store.ListFundraisersWithStatus(ctx, domain.CampaignActive)
	if err != nil {
		return 0, classify(err, domain.ErrDataAccess, "list active fundraisers")
	}

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			if _, err := s.ComputeTrustScore(gctx, userID, domain.TriggerScheduled); err != nil {
				failed.Add(1)
				s.logger.Warn("Scheduled trust recalculation failed",
					zap.String("user_id", userID),
					zap.String("kind", domain.ErrorKind(err)),
					zap.Error(err))
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Trust recalculation sweep finished",
		zap.Int("users", len(users)),
		zap.Int64("recalculated", done.Load()),
		zap.Int64("failed", failed.Load()))
	return int(done.Load()), ctx.Err()
}

// invalidateCache drops the cached result after every save. Reads repopulate
// it from the store, so a slow run can never cache an older result over a
// newer one.
func (s *TrustService) invalidateCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTrustResult(ctx, userID); err != nil {
		s.logger.Warn("Trust cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *options) publish(ctx context.Context, eventType, key string, v any) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Failed to encode integration event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.logger.Warn("Failed to publish integration event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err))
	}
}

func persistenceError(err error, msg string) error {
	if errors.Is(err, domain.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, msg, err)
}

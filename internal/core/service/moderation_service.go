package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

// ModerationStore is everything the moderation engine reads and writes.
type ModerationStore interface {
	ports.CampaignReader
	ports.ModerationResultWriter
	ports.ModerationResultReader
}

// ModerationService screens campaign content and projects the decision onto the campaign.
type ModerationService struct {
	store ModerationStore
	options
}

func NewModerationService(store ModerationStore, opts ...Option) *ModerationService {
	return &ModerationService{store: store, options: buildOptions(opts)}
}

// ModerateCampaign screens a stored campaign, inline content, or inline content
// for a stored campaign. Inline content without a campaign id is a dry run: the
// result is returned but nothing is persisted, published or notified.
func (s *ModerationService) ModerateCampaign(ctx context.Context, req domain.ModerationRequest) (*domain.ModerationResult, error) {
	start := s.now()

	campaign, persist, err := s.resolveCampaign(ctx, req)
	if err != nil {
		s.metrics.RecordFailure("moderation", domain.ErrorKind(err))
		return nil, err
	}

	outcome := domain.Moderate(*campaign, s.rules)
	now := s.now()
	result := domain.ModerationResult{
		ID:               s.newID(),
		CampaignID:       campaign.ID,
		Scores:           outcome.Scores,
		Decision:         outcome.Decision,
		Flags:            outcome.Flags,
		Recommendations:  outcome.Recommendations,
		Details:          outcome.Details,
		ProcessingTimeMs: now.Sub(start).Milliseconds(),
		ComputedAt:       now,
	}

	if !persist {
		s.logger.Info("Campaign moderated (dry run)",
			zap.Float64("overall", result.Scores.Overall),
			zap.String("decision", string(result.Decision)))
		return &result, nil
	}

	applied, err := s.store.SaveModerationResult(ctx, result, domain.CampaignStatusFor(result.Decision))
	if err != nil {
		err = persistenceError(err, "save moderation result")
		s.metrics.RecordFailure("moderation", domain.ErrorKind(err))
		return nil, err
	}
	if !applied {
		s.logger.Warn("Newer moderation result already projected, campaign status left unchanged",
			zap.String("campaign_id", campaign.ID),
			zap.String("result_id", result.ID))
	}

	s.publish(ctx, ports.EventCampaignModerated, campaign.ID, result)
	if applied && result.Decision == domain.DecisionReview {
		s.notifyReview(ctx, *campaign, result)
	}

	elapsed := s.now().Sub(start)
	s.metrics.RecordModeration(result.Decision, result.Scores.Overall, elapsed, applied)
	s.logger.Info("Campaign moderated",
		zap.String("campaign_id", campaign.ID),
		zap.Float64("overall", result.Scores.Overall),
		zap.String("decision", string(result.Decision)),
		zap.Strings("flags", result.Flags),
		zap.Bool("applied", applied),
		zap.Duration("duration", elapsed))

	return &result, nil
}

// resolveCampaign returns the content to screen and whether the result belongs
// to a stored campaign.
func (s *ModerationService) resolveCampaign(ctx context.Context, req domain.ModerationRequest) (*domain.Campaign, bool, error) {
	id := strings.TrimSpace(req.CampaignID)
	if id == "" && req.Campaign != nil {
		id = strings.TrimSpace(req.Campaign.ID)
	}
	inline := req.Campaign != nil && req.Campaign.HasContent()

	if id == "" {
		if !inline {
			return nil, false, fmt.Errorf("%w: campaignId or campaign content is required", domain.ErrInvalidInput)
		}
		c := *req.Campaign
		return &c, false, nil
	}

	stored, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, false, classify(err, domain.ErrDataAccess, "load campaign")
	}
	if inline {
		stored = overlayContent(stored, req.Campaign)
	}
	if !stored.HasContent() {
		return nil, false, fmt.Errorf("%w: campaign %s has no content to screen", domain.ErrInvalidInput, id)
	}
	return stored, true, nil
}

// overlayContent applies submitted edits on top of the stored campaign. Identity,
// ownership and lifecycle fields always come from the store.
func overlayContent(stored *domain.Campaign, edit *domain.Campaign) *domain.Campaign {
	c := *stored
	c.Title = edit.Title
	c.Story = edit.Story
	c.Description = edit.Description
	c.Budget = edit.Budget
	if edit.NeedType != "" {
		c.NeedType = edit.NeedType
	}
	if edit.GoalAmount > 0 {
		c.GoalAmount = edit.GoalAmount
	}
	return &c
}

// notifyReview tells the owner the campaign is under review. The call runs on
// a context detached from the caller's and bounded by the notify timeout.
func (s *ModerationService) notifyReview(ctx context.Context, c domain.Campaign, result domain.ModerationResult) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.NotifyCampaignUnderReview(ctx, ports.CampaignReviewNotification{
		CampaignID:    c.ID,
		OwnerID:       c.OwnerID,
		CampaignTitle: c.Title,
		Overall:       result.Scores.Overall,
		Flags:         result.Flags,
		ResultID:      result.ID,
	})
	if err != nil {
		s.metrics.RecordNotificationFailure("campaign_review")
		s.logger.Warn("Review notification failed",
			zap.String("campaign_id", c.ID),
			zap.String("owner_id", c.OwnerID),
			zap.Error(err))
	}
}

// LatestModerationResult returns the most recent persisted result for a campaign.
func (s *ModerationService) LatestModerationResult(ctx context.Context, campaignID string) (*domain.ModerationResult, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaignId is required", domain.ErrInvalidInput)
	}
	result, err := s.store.LatestModerationResult(ctx, campaignID)
	if err != nil {
		return nil, classify(err, domain.ErrDataAccess, "load moderation result")
	}
	return result, nil
}

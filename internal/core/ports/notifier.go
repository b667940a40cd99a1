package ports

import (
	"context"
	"time"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// Notifier dispatches fire-and-forget notifications. Failures are reported to
// the caller for logging only.
type Notifier interface {
	NotifyCampaignUnderReview(ctx context.Context, n CampaignReviewNotification) error
}

type CampaignReviewNotification struct {
	CampaignID    string
	OwnerID       string
	CampaignTitle string
	Overall       float64
	Flags         []string
	ResultID      string
}

// EventPublisher emits integration events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload []byte) error
}

// Integration event types produced by the engines.
const (
	EventTrustScoreComputed = "trust.score.computed"
	EventCampaignModerated  = "campaign.moderated"
)

// ResultCache is a read-through cache of the latest trust result per user.
type ResultCache interface {
	GetTrustResult(ctx context.Context, userID string) (*domain.TrustResult, error)
	SetTrustResult(ctx context.Context, result domain.TrustResult) error
	InvalidateTrustResult(ctx context.Context, userID string) error
}

// Debouncer admits at most one holder of key per ttl.
type Debouncer interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MetricsRecorder receives engine outcomes. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordTrustComputation(tier domain.TrustTier, score float64, duration time.Duration, applied bool)
	RecordModeration(decision domain.ModerationDecision, overall float64, duration time.Duration, applied bool)
	RecordFailure(operation, kind string)
	RecordNotificationFailure(channel string)
}

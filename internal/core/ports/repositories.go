package ports

import (
	"context"
	"time"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// ProfileReader loads fundraiser profiles. Missing profiles return domain.ErrNotFound.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*domain.FundraiserProfile, error)
}

type CampaignReader interface {
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
	ListCampaignsByOwner(ctx context.Context, ownerID string) ([]domain.Campaign, error)
}

type UpdateReader interface {
	ListUpdatesByOwner(ctx context.Context, ownerID string) ([]domain.CampaignUpdate, error)
}

// DonationReader exposes donations and donor feedback received by a fundraiser's campaigns.
type DonationReader interface {
	ListDonationsByOwner(ctx context.Context, ownerID string) ([]domain.Donation, error)
	ListFeedbackByOwner(ctx context.Context, ownerID string) ([]domain.Feedback, error)
}

// EventHistoryReader is the time-windowed view over the behavioral event log.
type EventHistoryReader interface {
	ListSecurityEvents(ctx context.Context, userID string, since time.Time) ([]domain.SecurityEvent, error)
}

// TrustHistoryReader bundles every read the trust calculator needs.
type TrustHistoryReader interface {
	ProfileReader
	CampaignReader
	UpdateReader
	DonationReader
	EventHistoryReader
}

// TrustResultWriter persists a result and its audit event atomically. applied
// is false when a newer result already owns the profile; the event is still stored.
type TrustResultWriter interface {
	SaveTrustResult(ctx context.Context, result domain.TrustResult, event domain.TrustScoreEvent) (applied bool, err error)
}

type TrustEventReader interface {
	ListTrustEvents(ctx context.Context, userID string, limit int) ([]domain.TrustScoreEvent, error)
}

// ModerationResultWriter inserts a moderation result and projects status and
// score onto the campaign in one transaction. applied is false when a newer
// result already owns the projection.
type ModerationResultWriter interface {
	SaveModerationResult(ctx context.Context, result domain.ModerationResult, status domain.CampaignStatus) (applied bool, err error)
}

type ModerationResultReader interface {
	LatestModerationResult(ctx context.Context, campaignID string) (*domain.ModerationResult, error)
}

// FundraiserLister enumerates owners of campaigns in a given status, for sweeps.
type FundraiserLister interface {
	ListFundraisersWithStatus(ctx context.Context, status domain.CampaignStatus) ([]string, error)
}

// AuditReader feeds the audit export.
type AuditReader interface {
	ListTrustEventsSince(ctx context.Context, since time.Time, limit int) ([]domain.TrustScoreEvent, error)
	ListModerationResultsSince(ctx context.Context, since time.Time, limit int) ([]domain.ModerationResult, error)
}

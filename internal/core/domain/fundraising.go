package domain

import "time"

type NeedType string

const (
	NeedMedical   NeedType = "medical"
	NeedEducation NeedType = "education"
	NeedEmergency NeedType = "emergency"
	NeedCommunity NeedType = "community"
	NeedOther     NeedType = "other"
)

type CampaignStatus string

const (
	CampaignDraft         CampaignStatus = "draft"
	CampaignPendingReview CampaignStatus = "pending_review"
	CampaignUnderReview   CampaignStatus = "under_review"
	CampaignActive        CampaignStatus = "active"
	CampaignRejected      CampaignStatus = "rejected"
	CampaignPaused        CampaignStatus = "paused"
	CampaignCompleted     CampaignStatus = "completed"
)

// KYCLevel is the highest verification step a fundraiser has completed.
type KYCLevel string

const (
	KYCUnverified       KYCLevel = "unverified"
	KYCEmailVerified    KYCLevel = "email_verified"
	KYCPhoneVerified    KYCLevel = "phone_verified"
	KYCIdentityVerified KYCLevel = "identity_verified"
	KYCFullyVerified    KYCLevel = "fully_verified"
)

type UpdateType string

const (
	UpdateText      UpdateType = "text"
	UpdatePhoto     UpdateType = "photo"
	UpdateVideo     UpdateType = "video"
	UpdateMilestone UpdateType = "milestone"
	UpdateReceipt   UpdateType = "receipt"
)

// FundraiserProfile is the profile record that owns the latest TrustResult.
type FundraiserProfile struct {
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName"`
	KYCLevel    KYCLevel     `json:"kycLevel"`
	Trust       *TrustResult `json:"trust,omitempty"` // nil until the first computation
}

type BudgetItem struct {
	Item        string  `json:"item"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type Campaign struct {
	ID                 string         `json:"id"`
	OwnerID            string         `json:"ownerId"`
	Title              string         `json:"title"`
	Story              string         `json:"story"`
	Description        string         `json:"description"`
	NeedType           NeedType       `json:"needType"`
	GoalAmount         float64        `json:"goalAmount"`
	Currency           string         `json:"currency,omitempty"`
	Budget             []BudgetItem   `json:"budget,omitempty"`
	Status             CampaignStatus `json:"status,omitempty"`
	OverdueUpdateCount int            `json:"overdueUpdateCount,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// HasContent reports whether the campaign carries any text that can be screened.
func (c Campaign) HasContent() bool {
	return c.Title != "" || c.Story != "" || c.Description != "" || len(c.Budget) > 0
}

// Narrative is the long-form text donors read: the story, or the description
// when no story was written.
func (c Campaign) Narrative() string {
	if c.Story != "" {
		return c.Story
	}
	return c.Description
}

type CampaignUpdate struct {
	ID               string     `json:"id"`
	CampaignID       string     `json:"campaignId"`
	Type             UpdateType `json:"type"`
	SpendAmount      float64    `json:"spendAmount,omitempty"` // zero when the update tags no spend
	PaymentReference string     `json:"paymentReference,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type Donation struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type FeedbackSource string

const (
	// FeedbackRating values are donor star ratings on a 1-5 scale.
	FeedbackRating FeedbackSource = "rating"
	// FeedbackComment values are comment sentiment scores already normalized to 0-100.
	FeedbackComment FeedbackSource = "comment"
)

type Feedback struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaignId"`
	Source     FeedbackSource `json:"source"`
	Value      float64        `json:"value"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type SecurityEventType string

const (
	EventFundsMisuseReport SecurityEventType = "funds_misuse_report"
	EventNegativeReview    SecurityEventType = "negative_review"
	EventLateUpdateFlag    SecurityEventType = "late_update_flag"
)

// SecurityEvent is one entry of the behavioral event log used by anomaly scoring.
type SecurityEvent struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Type       SecurityEventType `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
}

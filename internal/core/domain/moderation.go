package domain

import (
	"sort"
	"time"
)

type ModerationDecision string

const (
	DecisionApproved ModerationDecision = "approved"
	DecisionReview   ModerationDecision = "review"
	DecisionRejected ModerationDecision = "rejected"
)

// Decision thresholds. Each band is closed on its lower side.
const (
	ApproveThreshold = 70.0
	ReviewThreshold  = 40.0
)

// Moderation weights. This is an additive adjustment around a neutral baseline
// of 50, not a convex combination; the weights intentionally do not sum to one.
const (
	moderationBaseline    = 50.0
	luxuryWeight          = -0.25
	inappropriateWeight   = -0.35
	fraudWeight           = -0.30
	needValidationWeight  = 0.20
	trustIndicatorWeight  = 0.20
	luxuryFlagThreshold   = 50.0
	fraudFlagThreshold    = 40.0
	needMismatchThreshold = 70.0
)

const (
	FlagManualReview         = "manual_review_required"
	FlagHighRisk             = "high_risk"
	FlagLuxuryContent        = "luxury_content"
	FlagInappropriateContent = "inappropriate_content"
	FlagFraudIndicators      = "fraud_indicators"
	FlagNeedMismatch         = "need_mismatch"
)

// ModerationSubScores are the five sub-check scores, each in [0,100].
type ModerationSubScores struct {
	Luxury         float64 `json:"luxury"`
	Inappropriate  float64 `json:"inappropriate"`
	Fraud          float64 `json:"fraud"`
	NeedValidation float64 `json:"needValidation"`
	Trust          float64 `json:"trust"`
}

type ModerationScores struct {
	ModerationSubScores
	Overall float64 `json:"overall"`
}

// ModerationDetails explains which phrases drove each sub-score.
type ModerationDetails struct {
	LuxuryMatches        []string `json:"luxuryMatches"`
	InappropriateMatches []string `json:"inappropriateMatches"`
	FraudMatches         []string `json:"fraudMatches"`
	NeedMatches          []string `json:"needMatches"`
	TrustIndicators      []string `json:"trustIndicators"`
	RulesVersion         string   `json:"rulesVersion"`
}

// ModerationResult is the persisted outcome of one moderation run.
type ModerationResult struct {
	ID               string             `json:"id"`
	CampaignID       string             `json:"campaignId"`
	Scores           ModerationScores   `json:"scores"`
	Decision         ModerationDecision `json:"decision"`
	Flags            []string           `json:"flags"`
	Recommendations  []string           `json:"recommendations"`
	Details          ModerationDetails  `json:"details"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
	ComputedAt       time.Time          `json:"computedAt"`
}

// ModerationRequest names a campaign to screen, inline content to screen, or both.
// Inline content wins when it carries screenable text.
type ModerationRequest struct {
	CampaignID string    `json:"campaignId,omitempty"`
	Campaign   *Campaign `json:"campaign,omitempty"`
}

// AggregateModeration combines sub-scores into the overall score, clamped to
// [0,100] and rounded to two decimals.
func AggregateModeration(s ModerationSubScores) float64 {
	overall := moderationBaseline +
		s.Luxury*luxuryWeight +
		s.Inappropriate*inappropriateWeight +
		s.Fraud*fraudWeight +
		s.NeedValidation*needValidationWeight +
		s.Trust*trustIndicatorWeight
	return Round2(ClampScore(overall))
}

// DecideModeration maps an overall score to a decision.
func DecideModeration(overall float64) ModerationDecision {
	switch {
	case overall >= ApproveThreshold:
		return DecisionApproved
	case overall >= ReviewThreshold:
		return DecisionReview
	default:
		return DecisionRejected
	}
}

// CampaignStatusFor is the denormalized campaign status projected from a decision.
func CampaignStatusFor(d ModerationDecision) CampaignStatus {
	switch d {
	case DecisionApproved:
		return CampaignActive
	case DecisionReview:
		return CampaignUnderReview
	default:
		return CampaignRejected
	}
}

var decisionRecommendations = map[ModerationDecision][]string{
	DecisionApproved: {
		"Campaign meets content guidelines and can go live.",
	},
	DecisionReview: {
		"Campaign requires manual review by a moderator before going live.",
		"Verify the declared need against supporting documentation.",
	},
	DecisionRejected: {
		"Campaign violates content guidelines and cannot be published.",
		"Revise the campaign to remove flagged content and resubmit.",
	},
}

// flagHints is ordered; recommendations follow this order.
var flagHints = []struct {
	flag string
	text string
}{
	{FlagLuxuryContent, "Remove luxury or non-essential items from the funding request."},
	{FlagInappropriateContent, "Remove prohibited content (scams, weapons, drugs, hate or adult material)."},
	{FlagFraudIndicators, "Provide an itemized budget and avoid off-platform payment or return promises."},
	{FlagNeedMismatch, "Explain how the funds address the declared need, with supporting documents."},
}

// ModerationOutcome is the pure result of screening one campaign.
type ModerationOutcome struct {
	Scores          ModerationScores
	Decision        ModerationDecision
	Flags           []string
	Recommendations []string
	Details         ModerationDetails
}

// Moderate runs extract, score, classify and explain over campaign content.
func Moderate(c Campaign, rules *RuleSet) ModerationOutcome {
	if rules == nil {
		rules = DefaultRules()
	}
	text := ExtractModerationText(c)

	luxury := CheckLuxury(text, c, rules)
	inappropriate := CheckInappropriate(text, rules)
	fraud := CheckFraud(text, c, rules)
	need := CheckNeedValidation(text, c, rules)
	trust, categories := CheckTrustIndicators(text, rules)

	sub := ModerationSubScores{
		Luxury:         luxury.Score,
		Inappropriate:  inappropriate.Score,
		Fraud:          fraud.Score,
		NeedValidation: need.Score,
		Trust:          trust.Score,
	}
	overall := AggregateModeration(sub)
	decision := DecideModeration(overall)
	flags := ModerationFlags(decision, sub)

	return ModerationOutcome{
		Scores:          ModerationScores{ModerationSubScores: sub, Overall: overall},
		Decision:        decision,
		Flags:           flags,
		Recommendations: ModerationRecommendations(decision, flags),
		Details: ModerationDetails{
			LuxuryMatches:        nonNil(luxury.Matches),
			InappropriateMatches: nonNil(inappropriate.Matches),
			FraudMatches:         nonNil(fraud.Matches),
			NeedMatches:          nonNil(need.Matches),
			TrustIndicators:      nonNil(categories),
			RulesVersion:         rules.Version,
		},
	}
}

// ModerationFlags returns the sorted flag set for a decision and its sub-scores.
func ModerationFlags(d ModerationDecision, s ModerationSubScores) []string {
	flags := []string{}
	switch d {
	case DecisionReview:
		flags = append(flags, FlagManualReview)
	case DecisionRejected:
		flags = append(flags, FlagHighRisk)
	}
	if s.Luxury >= luxuryFlagThreshold {
		flags = append(flags, FlagLuxuryContent)
	}
	if s.Inappropriate > 0 {
		flags = append(flags, FlagInappropriateContent)
	}
	if s.Fraud >= fraudFlagThreshold {
		flags = append(flags, FlagFraudIndicators)
	}
	if s.NeedValidation < needMismatchThreshold {
		flags = append(flags, FlagNeedMismatch)
	}
	sort.Strings(flags)
	return flags
}

// ModerationRecommendations returns the fixed branch text followed by one hint
// per raised category flag.
func ModerationRecommendations(d ModerationDecision, flags []string) []string {
	out := append([]string{}, decisionRecommendations[d]...)
	if d == DecisionApproved {
		return out
	}
	raised := make(map[string]bool, len(flags))
	for _, f := range flags {
		raised[f] = true
	}
	for _, hint := range flagHints {
		if raised[hint.flag] {
			out = append(out, hint.text)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package domain

import "time"

// TrustTier is the discrete reputation band derived from a trust score.
type TrustTier string

const (
	TierNew     TrustTier = "NEW"
	TierRising  TrustTier = "RISING"
	TierSteady  TrustTier = "STEADY"
	TierTrusted TrustTier = "TRUSTED"
	TierStar    TrustTier = "STAR"
)

// tierBands is ordered from the highest lower bound down. Each band includes its
// lower bound; the bands are contiguous and cover [0,100].
var tierBands = []struct {
	min  float64
	tier TrustTier
}{
	{90, TierStar},
	{75, TierTrusted},
	{50, TierSteady},
	{25, TierRising},
	{0, TierNew},
}

// Rank orders tiers: NEW=0 up to STAR=4. Unknown tiers rank -1.
func (t TrustTier) Rank() int {
	for i, band := range tierBands {
		if band.tier == t {
			return len(tierBands) - 1 - i
		}
	}
	return -1
}

// TierForScore maps a trust score to its tier. Out-of-range scores are clamped first.
func TierForScore(score float64) TrustTier {
	score = ClampScore(score)
	for _, band := range tierBands {
		if score >= band.min {
			return band.tier
		}
	}
	return TierNew
}

// Trust metric weights in basis points.
const (
	WeightUpdateTimelinessBP   = 4000
	WeightSpendProofAccuracyBP = 3000
	WeightDonorSentimentBP     = 1500
	WeightKYCDepthBP           = 1000
	WeightAnomalyScoreBP       = 500

	trustWeightTotalBP = WeightUpdateTimelinessBP + WeightSpendProofAccuracyBP +
		WeightDonorSentimentBP + WeightKYCDepthBP + WeightAnomalyScoreBP
)

// Either conversion overflows, failing the build, unless the weights sum to 10000.
const (
	_ = uint(trustWeightTotalBP - 10000)
	_ = uint(10000 - trustWeightTotalBP)
)

// TrustMetrics holds the five weighted sub-metrics, each in [0,100].
type TrustMetrics struct {
	UpdateTimeliness   float64 `json:"updateTimeliness"`
	SpendProofAccuracy float64 `json:"spendProofAccuracy"`
	DonorSentiment     float64 `json:"donorSentiment"`
	KYCDepth           float64 `json:"kycDepth"`
	AnomalyScore       float64 `json:"anomalyScore"`
}

// AggregateTrustScore combines the metrics with the fixed weights, clamps to
// [0,100] and rounds to two decimals.
func AggregateTrustScore(m TrustMetrics) float64 {
	weighted := m.UpdateTimeliness*WeightUpdateTimelinessBP +
		m.SpendProofAccuracy*WeightSpendProofAccuracyBP +
		m.DonorSentiment*WeightDonorSentimentBP +
		m.KYCDepth*WeightKYCDepthBP +
		m.AnomalyScore*WeightAnomalyScoreBP
	return Round2(ClampScore(weighted / trustWeightTotalBP))
}

// TrustConfidence estimates how much history backs a score. It never feeds back
// into the score or tier.
func TrustConfidence(campaigns, updates, donations int) float64 {
	confidence := 50.0
	confidence += Clamp(float64(campaigns)*10, 0, 30)
	confidence += Clamp(float64(updates)*2, 0, 20)
	confidence += Clamp(float64(donations), 0, 20)
	return ClampScore(confidence)
}

const (
	RecommendUpdateCadence  = "Post progress updates more regularly to keep donors informed."
	RecommendAttachReceipts = "Attach receipts or payment references to every spend you report."
	RecommendCompleteKYC    = "Complete identity verification to unlock higher trust tiers."
	RecommendEngageDonors   = "Respond to donor questions and feedback to improve sentiment."
	RecommendTransparency   = "Build transparency: share detailed plans, spending and outcomes."
	RecommendKeepItUp       = "Great work! Your transparency and engagement are building strong donor trust."
)

var trustRecommendationRules = []struct {
	applies func(m TrustMetrics, score float64) bool
	text    string
}{
	{func(m TrustMetrics, _ float64) bool { return m.UpdateTimeliness < 60 }, RecommendUpdateCadence},
	{func(m TrustMetrics, _ float64) bool { return m.SpendProofAccuracy < 70 }, RecommendAttachReceipts},
	{func(m TrustMetrics, _ float64) bool { return m.KYCDepth < 70 }, RecommendCompleteKYC},
	{func(m TrustMetrics, _ float64) bool { return m.DonorSentiment < 60 }, RecommendEngageDonors},
	{func(_ TrustMetrics, score float64) bool { return score < 50 }, RecommendTransparency},
}

// TrustRecommendations returns the ordered, rule-based advice for a computation.
func TrustRecommendations(m TrustMetrics, score float64) []string {
	var out []string
	for _, rule := range trustRecommendationRules {
		if rule.applies(m, score) {
			out = append(out, rule.text)
		}
	}
	if len(out) == 0 {
		out = append(out, RecommendKeepItUp)
	}
	return out
}

// TrustHistory is the read-only snapshot a trust computation works from.
type TrustHistory struct {
	Profile   FundraiserProfile
	Campaigns []Campaign
	Updates   []CampaignUpdate
	Donations []Donation
	Feedback  []Feedback
	Events    []SecurityEvent
}

// TrustComputation is the pure outcome of scoring a TrustHistory.
type TrustComputation struct {
	Metrics         TrustMetrics
	Score           float64
	Tier            TrustTier
	Confidence      float64
	Recommendations []string
}

// ComputeTrust runs extract, score, classify and explain over a history snapshot.
// It is deterministic for a given history and now.
func ComputeTrust(h TrustHistory, now time.Time) TrustComputation {
	metrics := TrustMetrics{
		UpdateTimeliness:   UpdateTimeliness(h.Campaigns, h.Updates, now),
		SpendProofAccuracy: SpendProofAccuracy(h.Updates),
		DonorSentiment:     DonorSentiment(h.Feedback),
		KYCDepth:           KYCDepth(h.Profile.KYCLevel),
		AnomalyScore:       AnomalyScore(h.Campaigns, h.Events, now),
	}
	score := AggregateTrustScore(metrics)
	return TrustComputation{
		Metrics:         metrics,
		Score:           score,
		Tier:            TierForScore(score),
		Confidence:      TrustConfidence(len(h.Campaigns), len(h.Updates), len(h.Donations)),
		Recommendations: TrustRecommendations(metrics, score),
	}
}

// TrustResult is the persisted outcome, superseded on each recalculation.
type TrustResult struct {
	UserID          string       `json:"userId"`
	TrustScore      float64      `json:"trustScore"`
	TrustTier       TrustTier    `json:"trustTier"`
	Metrics         TrustMetrics `json:"metrics"`
	Confidence      float64      `json:"confidence"`
	Recommendations []string     `json:"recommendations"`
	ComputedAt      time.Time    `json:"computedAt"`
}

// TrustScoreEvent is the append-only audit record written for every computation.
type TrustScoreEvent struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	Trigger         string       `json:"trigger"`
	OldScore        *float64     `json:"oldScore,omitempty"`
	OldTier         TrustTier    `json:"oldTier,omitempty"`
	NewScore        float64      `json:"newScore"`
	NewTier         TrustTier    `json:"newTier"`
	Metrics         TrustMetrics `json:"metrics"`
	Confidence      float64      `json:"confidence"`
	Recommendations []string     `json:"recommendations"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Trigger reasons recorded on TrustScoreEvent.
const (
	TriggerManual           = "manual_recalculation"
	TriggerScheduled        = "scheduled_recalculation"
	TriggerCampaignUpdate   = "campaign_update_posted"
	TriggerDonationReceived = "donation_received"
	TriggerFeedback         = "feedback_submitted"
	TriggerSecurityEvent    = "security_event_logged"
	TriggerCampaignChanged  = "campaign_changed"
)

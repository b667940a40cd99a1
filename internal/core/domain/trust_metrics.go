package domain

import "time"

const (
	neutralTimeliness      = 50.0
	noSpendEvidenceScore   = 30.0
	sentimentPrior         = 70.0
	timelinessFloor        = 10.0
	overdueUpdatePenalty   = 20.0
	shortfallPenalty       = 15.0
	negativeEventPenalty   = 15.0
	extraCampaignPenalty   = 10.0
	velocityAbusePenalty   = 20.0
	maxActiveCampaigns     = 3
	maxCampaignsPerWeek    = 2
	AnomalyLookback        = 30 * 24 * time.Hour
	campaignVelocityWindow = 7 * 24 * time.Hour
)

// ExpectedUpdateIntervalDays is the cadence donors expect for a need type.
func ExpectedUpdateIntervalDays(need NeedType) int {
	if need == NeedEmergency {
		return 3
	}
	return 7
}

// UpdateTimeliness scores how well a fundraiser keeps up with the expected
// update cadence across their active campaigns.
func UpdateTimeliness(campaigns []Campaign, updates []CampaignUpdate, now time.Time) float64 {
	byCampaign := make(map[string][]CampaignUpdate)
	for _, u := range updates {
		byCampaign[u.CampaignID] = append(byCampaign[u.CampaignID], u)
	}

	var scores []float64
	for _, c := range campaigns {
		if c.Status != CampaignActive {
			continue
		}
		scores = append(scores, campaignTimeliness(c, byCampaign[c.ID], now))
	}
	if len(scores) == 0 {
		return neutralTimeliness
	}
	return mean(scores)
}

func campaignTimeliness(c Campaign, updates []CampaignUpdate, now time.Time) float64 {
	interval := ExpectedUpdateIntervalDays(c.NeedType)
	expected := daysBetween(c.CreatedAt, now) / interval
	if expected < 1 {
		expected = 1
	}
	actual := len(updates)

	var score float64
	if actual >= expected {
		last := c.CreatedAt
		for _, u := range updates {
			if u.CreatedAt.After(last) {
				last = u.CreatedAt
			}
		}
		recency := now.Sub(last).Hours() / 24
		switch {
		case recency <= float64(interval):
			score = 90
		case recency <= 1.5*float64(interval):
			score = 75
		default:
			score = 60
		}
	} else {
		shortfall := float64(expected - actual)
		score = max(timelinessFloor, 50-shortfallPenalty*shortfall)
	}

	score -= overdueUpdatePenalty * float64(c.OverdueUpdateCount)
	return max(timelinessFloor, score)
}

// SpendProofAccuracy is the share of tagged spend backed by a payment reference
// or a receipt update.
func SpendProofAccuracy(updates []CampaignUpdate) float64 {
	var tagged, proven float64
	for _, u := range updates {
		if u.SpendAmount <= 0 {
			continue
		}
		tagged += u.SpendAmount
		if u.PaymentReference != "" || u.Type == UpdateReceipt {
			proven += u.SpendAmount
		}
	}
	if tagged == 0 {
		return noSpendEvidenceScore
	}
	return ClampScore(100 * proven / tagged)
}

// DonorSentiment pools star ratings (scaled 1-5 to 20-100) with comment
// sentiment scores.
func DonorSentiment(feedback []Feedback) float64 {
	var values []float64
	for _, f := range feedback {
		switch f.Source {
		case FeedbackRating:
			if f.Value <= 0 {
				continue
			}
			values = append(values, Clamp(f.Value, 1, 5)*20)
		case FeedbackComment:
			values = append(values, ClampScore(f.Value))
		}
	}
	if len(values) == 0 {
		return sentimentPrior
	}
	return mean(values)
}

var kycPoints = map[KYCLevel]float64{
	KYCUnverified:       0,
	KYCEmailVerified:    20,
	KYCPhoneVerified:    40,
	KYCIdentityVerified: 70,
	KYCFullyVerified:    100,
}

// KYCDepth maps a verification level to its fixed point value. Unknown levels score 0.
func KYCDepth(level KYCLevel) float64 {
	return kycPoints[level]
}

// IsNegativeEvent reports whether an event type counts against the anomaly score.
func IsNegativeEvent(t SecurityEventType) bool {
	switch t {
	case EventFundsMisuseReport, EventNegativeReview, EventLateUpdateFlag:
		return true
	}
	return false
}

// AnomalyScore starts at 100 and is penalized for recent negative events,
// too many simultaneous active campaigns and rapid campaign creation.
func AnomalyScore(campaigns []Campaign, events []SecurityEvent, now time.Time) float64 {
	score := 100.0

	eventCutoff := now.Add(-AnomalyLookback)
	for _, e := range events {
		if IsNegativeEvent(e.Type) && !e.OccurredAt.Before(eventCutoff) && !e.OccurredAt.After(now) {
			score -= negativeEventPenalty
		}
	}

	active, recent := 0, 0
	velocityCutoff := now.Add(-campaignVelocityWindow)
	for _, c := range campaigns {
		if c.Status == CampaignActive {
			active++
		}
		if !c.CreatedAt.Before(velocityCutoff) && !c.CreatedAt.After(now) {
			recent++
		}
	}
	score -= extraCampaignPenalty * float64(max(0, active-maxActiveCampaigns))
	if recent > maxCampaignsPerWeek {
		score -= velocityAbusePenalty
	}

	return ClampScore(score)
}

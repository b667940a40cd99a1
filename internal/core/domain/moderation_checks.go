package domain

import (
	"math"
	"unicode/utf8"
)

const (
	luxuryPhrasePoints     = 15.0
	highValueLinePoints    = 20.0
	veryHighValueLinePts   = 30.0
	largeGoalPoints        = 25.0
	veryLargeGoalPoints    = 35.0
	HighValueLineThreshold = 5_000.0
	VeryHighValueLine      = 20_000.0
	LargeGoalThreshold     = 50_000.0
	VeryLargeGoalThreshold = 100_000.0

	inappropriateMatchPoints = 25.0

	fraudMatchPoints        = 20.0
	urgencyDensityPoints    = 15.0
	shortNarrativePoints    = 10.0
	missingBudgetPoints     = 20.0
	roundBudgetPoints       = 15.0
	unitemizedGoalPoints    = 20.0
	maxDistinctUrgencyTerms = 2
	MinNarrativeLength      = 100
	MinEmergencyNarrative   = 200
	roundAmountUnit         = 100.0

	missingLegitVocabularyPenalty = 30.0
	suspiciousVocabularyPenalty   = 40.0
	shortEmergencyPenalty         = 25.0
	purchaseIntentPenalty         = 40.0

	trustBaseline      = 50.0
	transparencyPoints = 5.0
	valuesPoints       = 3.0
	localityPoints     = 4.0
)

// CheckResult is the outcome of one moderation sub-check.
type CheckResult struct {
	Score   float64
	Matches []string
}

// CheckLuxury scores luxury vocabulary, premium brands, high-value assets and
// price mentions, plus oversized budget lines and goals. Higher is worse.
func CheckLuxury(text string, c Campaign, rules *RuleSet) CheckResult {
	var matches []string
	for _, family := range rules.Luxury {
		matches = append(matches, family.Matches(text)...)
	}
	score := luxuryPhrasePoints * float64(len(matches))

	if c.NeedType != NeedMedical {
		for _, item := range c.Budget {
			switch {
			case item.Amount > VeryHighValueLine:
				score += veryHighValueLinePts
			case item.Amount > HighValueLineThreshold:
				score += highValueLinePoints
			}
		}
	}

	// goal tiers stack
	if c.GoalAmount > LargeGoalThreshold {
		score += largeGoalPoints
	}
	if c.GoalAmount > VeryLargeGoalThreshold {
		score += veryLargeGoalPoints
	}

	return CheckResult{Score: ClampScore(score), Matches: uniqueStrings(matches)}
}

// CheckInappropriate scores scam, controlled substance, weapon, hate and adult
// vocabulary. Higher is worse.
func CheckInappropriate(text string, rules *RuleSet) CheckResult {
	var matches []string
	for _, family := range rules.Inappropriate {
		matches = append(matches, family.Matches(text)...)
	}
	return CheckResult{
		Score:   ClampScore(inappropriateMatchPoints * float64(len(matches))),
		Matches: uniqueStrings(matches),
	}
}

// CheckFraud scores get-rich-quick language, off-platform payment requests,
// large bare amounts, urgency pressure and missing or suspicious budgets.
// Higher is worse.
func CheckFraud(text string, c Campaign, rules *RuleSet) CheckResult {
	var matches []string
	for _, family := range rules.Fraud {
		matches = append(matches, family.Matches(text)...)
	}
	score := fraudMatchPoints * float64(len(matches))

	if len(rules.Urgency.DistinctMatches(text)) > maxDistinctUrgencyTerms {
		score += urgencyDensityPoints
	}
	if narrativeLength(c) < MinNarrativeLength {
		score += shortNarrativePoints
	}
	if len(c.Budget) == 0 {
		score += missingBudgetPoints
		if c.GoalAmount > VeryLargeGoalThreshold {
			score += unitemizedGoalPoints
		}
	} else if len(c.Budget) > 2 && allRoundAmounts(c.Budget) {
		score += roundBudgetPoints
	}

	return CheckResult{Score: ClampScore(score), Matches: uniqueStrings(matches)}
}

// CheckNeedValidation scores how plausible the declared need is. It starts at
// 100 and higher is better.
func CheckNeedValidation(text string, c Campaign, rules *RuleSet) CheckResult {
	score := 100.0
	var matches []string

	switch c.NeedType {
	case NeedMedical:
		score -= legitSuspiciousPenalty(text, rules.MedicalLegitimate, rules.MedicalSuspicious, &matches)
	case NeedEducation:
		score -= legitSuspiciousPenalty(text, rules.EducationLegitimate, rules.EducationSuspicious, &matches)
	case NeedEmergency:
		if narrativeLength(c) < MinEmergencyNarrative {
			score -= shortEmergencyPenalty
		}
	}

	if intent := rules.PurchaseIntent.DistinctMatches(text); len(intent) > 0 {
		score -= purchaseIntentPenalty
		matches = append(matches, intent...)
	}

	return CheckResult{Score: ClampScore(score), Matches: uniqueStrings(matches)}
}

func legitSuspiciousPenalty(text string, legit, suspicious RuleFamily, matches *[]string) float64 {
	penalty := 0.0
	if !legit.Any(text) {
		penalty += missingLegitVocabularyPenalty
	}
	if found := suspicious.DistinctMatches(text); len(found) > 0 {
		penalty += suspiciousVocabularyPenalty
		*matches = append(*matches, found...)
	}
	return penalty
}

// CheckTrustIndicators rewards transparency, values affiliation and locality
// vocabulary. It starts at 50 and higher is better.
func CheckTrustIndicators(text string, rules *RuleSet) (CheckResult, []string) {
	transparency := rules.Transparency.DistinctMatches(text)
	values := rules.Values.DistinctMatches(text)
	locality := rules.Locality.DistinctMatches(text)

	score := trustBaseline +
		transparencyPoints*float64(len(transparency)) +
		valuesPoints*float64(len(values)) +
		localityPoints*float64(len(locality))

	var categories []string
	if len(transparency) > 0 {
		categories = append(categories, CategoryTransparency)
	}
	if len(values) > 0 {
		categories = append(categories, CategoryValues)
	}
	if len(locality) > 0 {
		categories = append(categories, CategoryLocality)
	}

	var matches []string
	matches = append(matches, transparency...)
	matches = append(matches, values...)
	matches = append(matches, locality...)
	return CheckResult{Score: ClampScore(score), Matches: matches}, categories
}

func narrativeLength(c Campaign) int {
	return utf8.RuneCountInString(NormalizeText(c.Narrative()))
}

func allRoundAmounts(items []BudgetItem) bool {
	for _, item := range items {
		if item.Amount <= 0 || math.Mod(item.Amount, roundAmountUnit) != 0 {
			return false
		}
	}
	return true
}

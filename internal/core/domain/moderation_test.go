package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func luxuryCampaign() Campaign {
	return Campaign{
		ID:         "camp-lux",
		OwnerID:    "u-9",
		Title:      "Help buy a new Rolex and Mercedes",
		NeedType:   NeedOther,
		GoalAmount: 200_000,
	}
}

func medicalCampaign() Campaign {
	return Campaign{
		ID:      "camp-med",
		OwnerID: "u-3",
		Title:   "Help Maria cover her kidney surgery",
		Story: "Maria was diagnosed with kidney failure in March. Her doctor at St. Luke's Hospital has " +
			"scheduled surgery for next month, followed by treatment and medication for six weeks. " +
			"The hospital invoice and the pharmacy quote are attached, and we will post receipts after " +
			"each payment so every donor can see where the money goes.",
		NeedType:   NeedMedical,
		GoalAmount: 10_685.40,
		Budget: []BudgetItem{
			{Item: "Kidney surgery", Description: "Hospital invoice #4471 attached", Amount: 8450},
			{Item: "Post-operative medication", Description: "Pharmacy quote attached, receipts to follow", Amount: 1275.40},
			{Item: "Physical therapy sessions", Amount: 960},
		},
	}
}

func TestModerate_LuxuryCampaignIsRejected(t *testing.T) {
	got := Moderate(luxuryCampaign(), DefaultRules())

	want := ModerationSubScores{Luxury: 90, Inappropriate: 0, Fraud: 50, NeedValidation: 60, Trust: 50}
	if got.Scores.ModerationSubScores != want {
		t.Errorf("sub-scores = %+v, want %+v", got.Scores.ModerationSubScores, want)
	}
	if got.Scores.Overall != 34.5 {
		t.Errorf("overall = %v, want 34.5", got.Scores.Overall)
	}
	if got.Decision != DecisionRejected {
		t.Errorf("decision = %s, want rejected", got.Decision)
	}
	wantFlags := []string{FlagFraudIndicators, FlagHighRisk, FlagLuxuryContent, FlagNeedMismatch}
	if !reflect.DeepEqual(got.Flags, wantFlags) {
		t.Errorf("flags = %v, want %v", got.Flags, wantFlags)
	}
	if !reflect.DeepEqual(got.Details.LuxuryMatches, []string{"rolex", "mercedes"}) {
		t.Errorf("luxury matches = %v", got.Details.LuxuryMatches)
	}
	if len(got.Recommendations) != 5 {
		t.Errorf("got %d recommendations, want 2 branch lines plus 3 flag hints: %v", len(got.Recommendations), got.Recommendations)
	}
	if got.Details.RulesVersion != RulesVersion {
		t.Errorf("rules version = %q, want %q", got.Details.RulesVersion, RulesVersion)
	}
}

func TestModerate_DocumentedMedicalCampaignIsApproved(t *testing.T) {
	got := Moderate(medicalCampaign(), DefaultRules())

	want := ModerationSubScores{Luxury: 0, Inappropriate: 0, Fraud: 0, NeedValidation: 100, Trust: 65}
	if got.Scores.ModerationSubScores != want {
		t.Errorf("sub-scores = %+v, want %+v", got.Scores.ModerationSubScores, want)
	}
	if got.Scores.Overall != 83 {
		t.Errorf("overall = %v, want 83", got.Scores.Overall)
	}
	if got.Decision != DecisionApproved {
		t.Errorf("decision = %s, want approved", got.Decision)
	}
	if len(got.Flags) != 0 {
		t.Errorf("flags = %v, want none", got.Flags)
	}
	if !reflect.DeepEqual(got.Details.TrustIndicators, []string{CategoryTransparency}) {
		t.Errorf("trust indicators = %v, want [transparency]", got.Details.TrustIndicators)
	}
	if len(got.Recommendations) != 1 {
		t.Errorf("recommendations = %v, want the single approval line", got.Recommendations)
	}
}

func TestModerate_IsDeterministic(t *testing.T) {
	c := luxuryCampaign()
	first := Moderate(c, DefaultRules())
	for i := 0; i < 5; i++ {
		if again := Moderate(c, DefaultRules()); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestModerate_NilRulesUsesDefaults(t *testing.T) {
	if got := Moderate(medicalCampaign(), nil); got.Decision != DecisionApproved {
		t.Errorf("decision with nil rules = %s, want approved", got.Decision)
	}
}

func TestDecideModeration_Boundaries(t *testing.T) {
	tests := []struct {
		overall float64
		want    ModerationDecision
	}{
		{100, DecisionApproved},
		{70.00, DecisionApproved},
		{69.99, DecisionReview},
		{40.00, DecisionReview},
		{39.99, DecisionRejected},
		{0, DecisionRejected},
	}
	for _, tt := range tests {
		if got := DecideModeration(tt.overall); got != tt.want {
			t.Errorf("DecideModeration(%v) = %s, want %s", tt.overall, got, tt.want)
		}
	}
}

func TestAggregateModeration_ConcernsNeverRaiseOverall(t *testing.T) {
	base := ModerationSubScores{Luxury: 10, Inappropriate: 10, Fraud: 10, NeedValidation: 80, Trust: 60}
	fields := map[string]func(*ModerationSubScores, float64){
		"luxury":        func(s *ModerationSubScores, v float64) { s.Luxury = v },
		"inappropriate": func(s *ModerationSubScores, v float64) { s.Inappropriate = v },
		"fraud":         func(s *ModerationSubScores, v float64) { s.Fraud = v },
	}
	for name, set := range fields {
		t.Run(name, func(t *testing.T) {
			prev := 101.0
			for v := 0.0; v <= 100; v += 5 {
				s := base
				set(&s, v)
				overall := AggregateModeration(s)
				if overall > prev {
					t.Fatalf("overall rose from %v to %v at %s=%v", prev, overall, name, v)
				}
				prev = overall
			}
		})
	}
}

func TestAggregateModeration_ClampsExtremes(t *testing.T) {
	worst := ModerationSubScores{Luxury: 100, Inappropriate: 100, Fraud: 100}
	if got := AggregateModeration(worst); got != 0 {
		t.Errorf("worst case overall = %v, want 0", got)
	}
	best := ModerationSubScores{NeedValidation: 100, Trust: 100}
	if got := AggregateModeration(best); got != 90 {
		t.Errorf("best case overall = %v, want 90", got)
	}
}

func TestModerationFlags(t *testing.T) {
	tests := []struct {
		name     string
		decision ModerationDecision
		scores   ModerationSubScores
		want     []string
	}{
		{"clean approval", DecisionApproved, ModerationSubScores{NeedValidation: 100, Trust: 50}, []string{}},
		{"review", DecisionReview, ModerationSubScores{NeedValidation: 90}, []string{FlagManualReview}},
		{"inappropriate any match", DecisionReview, ModerationSubScores{Inappropriate: 25, NeedValidation: 90},
			[]string{FlagInappropriateContent, FlagManualReview}},
		{"thresholds are inclusive", DecisionRejected, ModerationSubScores{Luxury: 50, Fraud: 40, NeedValidation: 69},
			[]string{FlagFraudIndicators, FlagHighRisk, FlagLuxuryContent, FlagNeedMismatch}},
		{"just under thresholds", DecisionReview, ModerationSubScores{Luxury: 49, Fraud: 39, NeedValidation: 70},
			[]string{FlagManualReview}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModerationFlags(tt.decision, tt.scores); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("flags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModerationRecommendations_HintOrder(t *testing.T) {
	flags := []string{FlagNeedMismatch, FlagManualReview, FlagLuxuryContent}
	got := ModerationRecommendations(DecisionReview, flags)
	if len(got) != 4 {
		t.Fatalf("got %v", got)
	}
	if !strings.Contains(got[2], "luxury") || !strings.Contains(got[3], "declared need") {
		t.Errorf("hints out of order: %v", got[2:])
	}
}

func TestCampaignStatusFor(t *testing.T) {
	tests := map[ModerationDecision]CampaignStatus{
		DecisionApproved: CampaignActive,
		DecisionReview:   CampaignUnderReview,
		DecisionRejected: CampaignRejected,
	}
	for d, want := range tests {
		if got := CampaignStatusFor(d); got != want {
			t.Errorf("CampaignStatusFor(%s) = %s, want %s", d, got, want)
		}
	}
}

func TestExtractModerationText(t *testing.T) {
	c := Campaign{
		Title:       "  Roof   REPAIR ",
		Story:       "Storm\ndamage",
		Description: "Tarps\tfirst",
		Budget:      []BudgetItem{{Item: "Shingles", Description: "Two PALLETS"}},
	}
	want := "roof repair storm damage tarps first shingles two pallets"
	if got := ExtractModerationText(c); got != want {
		t.Errorf("ExtractModerationText = %q, want %q", got, want)
	}
}

func TestCompileRules_Errors(t *testing.T) {
	_, err := CompileRules("test", []RuleSource{{Category: CategoryLuxury, Name: "broken", Patterns: []string{`(unclosed`}}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("invalid pattern error = %v, want ErrInvalidInput", err)
	}
	_, err = CompileRules("test", []RuleSource{{Category: "astrology", Name: "stars"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown category error = %v, want ErrInvalidInput", err)
	}
}

func TestCompileRules_CustomTable(t *testing.T) {
	rs, err := CompileRules("custom-1", []RuleSource{
		{Category: CategoryLuxury, Name: "boats", Patterns: []string{`\bcatamaran\b`}},
		{Category: CategoryTransparency, Name: "a", Patterns: []string{`\bledger\b`}},
		{Category: CategoryTransparency, Name: "b", Patterns: []string{`\baudit\b`}},
	})
	if err != nil {
		t.Fatalf("CompileRules: %v", err)
	}
	if len(rs.Luxury) != 1 || len(rs.Transparency.Patterns) != 2 {
		t.Fatalf("unexpected rule layout: %+v", rs)
	}

	c := Campaign{Title: "Catamaran fund", Story: "public ledger and yearly audit", NeedType: NeedCommunity}
	got := Moderate(c, rs)
	if got.Details.RulesVersion != "custom-1" {
		t.Errorf("rules version = %q", got.Details.RulesVersion)
	}
	if got.Scores.Luxury != 15 {
		t.Errorf("luxury = %v, want 15", got.Scores.Luxury)
	}
	if got.Scores.Trust != 60 {
		t.Errorf("trust = %v, want 60", got.Scores.Trust)
	}
}

func TestDefaultRuleSources_ReturnsCopy(t *testing.T) {
	src := DefaultRuleSources()
	src[0].Name = "mutated"
	if DefaultRuleSources()[0].Name == "mutated" {
		t.Error("DefaultRuleSources exposed the built-in table")
	}
}

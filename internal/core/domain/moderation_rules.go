package domain

import (
	"fmt"
	"regexp"
	"sync"
)

// RulesVersion identifies the built-in rule tables. It is stored with every
// moderation result so a decision can be traced to the exact vocabulary used.
const RulesVersion = "2026.10.1"

// Rule categories. Each category feeds exactly one sub-check.
const (
	CategoryLuxury              = "luxury"
	CategoryInappropriate       = "inappropriate"
	CategoryFraud               = "fraud"
	CategoryUrgency             = "urgency"
	CategoryMedicalLegitimate   = "medical_legitimate"
	CategoryMedicalSuspicious   = "medical_suspicious"
	CategoryEducationLegitimate = "education_legitimate"
	CategoryEducationSuspicious = "education_suspicious"
	CategoryPurchaseIntent      = "purchase_intent"
	CategoryTransparency        = "transparency"
	CategoryValues              = "values"
	CategoryLocality            = "locality"
)

// RuleSource is the uncompiled, data form of one rule family.
type RuleSource struct {
	Category string   `yaml:"category" json:"category"`
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// RuleFamily is a named group of compiled patterns.
type RuleFamily struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Matches returns every non-overlapping match of every pattern, in pattern order.
func (f RuleFamily) Matches(text string) []string {
	var out []string
	for _, p := range f.Patterns {
		out = append(out, p.FindAllString(text, -1)...)
	}
	return out
}

// DistinctMatches returns the unique matched phrases in first-seen order.
func (f RuleFamily) DistinctMatches(text string) []string {
	return uniqueStrings(f.Matches(text))
}

// Any reports whether at least one pattern matches.
func (f RuleFamily) Any(text string) bool {
	for _, p := range f.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// RuleSet is the compiled vocabulary the moderation sub-checks run against.
type RuleSet struct {
	Version       string
	Luxury        []RuleFamily
	Inappropriate []RuleFamily
	Fraud         []RuleFamily
	Urgency       RuleFamily

	MedicalLegitimate   RuleFamily
	MedicalSuspicious   RuleFamily
	EducationLegitimate RuleFamily
	EducationSuspicious RuleFamily
	PurchaseIntent      RuleFamily

	Transparency RuleFamily
	Values       RuleFamily
	Locality     RuleFamily
}

// CompileRules builds a RuleSet from data. Single-family categories merge all
// sources of that category into one family.
func CompileRules(version string, sources []RuleSource) (*RuleSet, error) {
	rs := &RuleSet{Version: version}
	for _, src := range sources {
		family := RuleFamily{Name: src.Name}
		for _, raw := range src.Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %s/%s: %w", ErrInvalidInput, src.Category, src.Name, err)
			}
			family.Patterns = append(family.Patterns, re)
		}

		switch src.Category {
		case CategoryLuxury:
			rs.Luxury = append(rs.Luxury, family)
		case CategoryInappropriate:
			rs.Inappropriate = append(rs.Inappropriate, family)
		case CategoryFraud:
			rs.Fraud = append(rs.Fraud, family)
		case CategoryUrgency:
			mergeFamily(&rs.Urgency, family)
		case CategoryMedicalLegitimate:
			mergeFamily(&rs.MedicalLegitimate, family)
		case CategoryMedicalSuspicious:
			mergeFamily(&rs.MedicalSuspicious, family)
		case CategoryEducationLegitimate:
			mergeFamily(&rs.EducationLegitimate, family)
		case CategoryEducationSuspicious:
			mergeFamily(&rs.EducationSuspicious, family)
		case CategoryPurchaseIntent:
			mergeFamily(&rs.PurchaseIntent, family)
		case CategoryTransparency:
			mergeFamily(&rs.Transparency, family)
		case CategoryValues:
			mergeFamily(&rs.Values, family)
		case CategoryLocality:
			mergeFamily(&rs.Locality, family)
		default:
			return nil, fmt.Errorf("%w: unknown rule category %q", ErrInvalidInput, src.Category)
		}
	}
	return rs, nil
}

func mergeFamily(dst *RuleFamily, src RuleFamily) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	dst.Patterns = append(dst.Patterns, src.Patterns...)
}

var (
	defaultRulesOnce sync.Once
	defaultRules     *RuleSet
)

// DefaultRules returns the compiled built-in rule tables.
func DefaultRules() *RuleSet {
	defaultRulesOnce.Do(func() {
		rs, err := CompileRules(RulesVersion, DefaultRuleSources())
		if err != nil {
			panic(err)
		}
		defaultRules = rs
	})
	return defaultRules
}

const (
	luxuryBrandAlternation = `rolex|cartier|patek philippe|audemars piguet|omega|tiffany|gucci|louis vuitton|prada|chanel|herm[eè]s|versace|dior|` +
		`mercedes(?:[- ]benz)?|bmw|ferrari|lamborghini|porsche|bentley|rolls[- ]royce|maserati|tesla`
	luxuryAssetAlternation = `yachts?|mansions?|penthouses?|sports cars?|supercars?|private jets?|diamonds?|jewel(?:le)?ry|designer (?:bags?|handbags?|clothes)`
)

// DefaultRuleSources returns a copy of the built-in rule tables in data form.
func DefaultRuleSources() []RuleSource {
	out := make([]RuleSource, len(builtinRuleSources))
	copy(out, builtinRuleSources)
	return out
}

var builtinRuleSources = []RuleSource{
	// luxury
	{CategoryLuxury, "luxury_vocabulary", []string{
		`\b(?:luxury|luxurious|lavish|designer|high[- ]end|first[- ]class|vip|premium|exclusive)\b`,
	}},
	{CategoryLuxury, "premium_brands", []string{
		`\b(?:` + luxuryBrandAlternation + `)\b`,
	}},
	{CategoryLuxury, "high_value_assets", []string{
		`\b(?:` + luxuryAssetAlternation + `)\b`,
	}},
	{CategoryLuxury, "price_mentions", []string{
		`\b(?:worth|priced at|retails? (?:for|at)|costs?)\s+(?:about |around |over )?\$?\d[\d,]*(?:\.\d+)?\s*(?:k|thousand|million)?\b`,
	}},

	// inappropriate
	{CategoryInappropriate, "scam_vocabulary", []string{
		`\b(?:scam|ponzi|pyramid scheme|money laundering|fake (?:ids?|documents?|passports?))\b`,
	}},
	{CategoryInappropriate, "controlled_substances_weapons", []string{
		`\b(?:cocaine|heroin|meth(?:amphetamine)?|fentanyl|marijuana|firearms?|guns?|ammunition|explosives?|rifles?)\b`,
	}},
	{CategoryInappropriate, "hate_speech", []string{
		`\b(?:hate (?:group|speech)|white power|ethnic cleansing|nazis?|racial purity)\b`,
	}},
	{CategoryInappropriate, "adult_content", []string{
		`\b(?:porn(?:ography)?|xxx|escort services?|sexual services?|onlyfans)\b`,
	}},

	// fraud
	{CategoryFraud, "quick_money", []string{
		`\b(?:get rich quick|quick money|easy money|double your money|guaranteed (?:returns?|profits?|income)|risk[- ]free investment|100% (?:returns?|profits?))\b`,
	}},
	{CategoryFraud, "wire_transfer_requests", []string{
		`\b(?:wire transfer|western union|moneygram|gift cards?|bitcoin only|crypto(?:currency)? only|send (?:cash|money) directly)\b`,
	}},
	{CategoryFraud, "large_bare_amounts", []string{
		`\$\s?\d{1,3}(?:,\d{3}){2,}(?:\.\d{2})?\b`,
		`\$\s?\d{7,}(?:\.\d{2})?\b`,
	}},

	{CategoryUrgency, "urgency_terms", []string{
		`\b(?:urgent(?:ly)?|immediately|asap|right now|today only|last chance|act now|hurry|deadline|emergency)\b`,
	}},

	{CategoryMedicalLegitimate, "medical_vocabulary", []string{
		`\b(?:hospital|surgery|surgeon|doctor|physician|diagnos(?:is|ed)|treatment|medication|prescription|therapy|chemotherapy|clinic|oncolog\w*|medical (?:bills?|records?))\b`,
	}},
	{CategoryMedicalSuspicious, "miracle_cures", []string{
		`\b(?:miracle (?:cure|healing|treatment)|secret (?:cure|remedy)|guaranteed (?:cure|recovery)|cure[- ]all|detox cleanse|energy healing)\b`,
	}},
	{CategoryEducationLegitimate, "education_vocabulary", []string{
		`\b(?:tuition|university|college|school|scholarship|enrol(?:l)?ment|semester|textbooks?|degree|courses?|curriculum)\b`,
	}},
	{CategoryEducationSuspicious, "credential_fraud", []string{
		`\b(?:buy (?:a )?degree|fake diploma|diploma mill|guaranteed admission|pay for grades|exam answers)\b`,
	}},
	{CategoryPurchaseIntent, "luxury_purchase_intent", []string{
		`\b(?:buy|buying|purchase|purchasing|afford|own)\b(?:\W+\w+){0,4}?\W+(?:` + luxuryBrandAlternation + `|` + luxuryAssetAlternation + `)\b`,
	}},

	{CategoryTransparency, "transparency_vocabulary", []string{
		`\b(?:receipts?|invoices?|quotes?|documentation|medical records|itemi[sz]ed|transparen(?:t|cy)|accountab(?:le|ility)|verif(?:y|ied|iable)|breakdown)\b`,
	}},
	{CategoryValues, "values_affiliation", []string{
		`\b(?:church|mosque|synagogue|temple|faith|volunteers?|charity|nonprofit|non-profit|congregation|parish)\b`,
	}},
	{CategoryLocality, "locality_vocabulary", []string{
		`\b(?:neighbou?rs?|neighbou?rhood|local|hometown|our town|village|community|county|district)\b`,
	}},
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := []string{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

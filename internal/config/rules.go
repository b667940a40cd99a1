package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// rulesFile is the on-disk form of a moderation rule table.
//
//	version: "2026.11.0"
//	extends_defaults: true
//	rules:
//	  - category: luxury
//	    name: yachts
//	    patterns: ['\byacht\b']
type rulesFile struct {
	Version         string              `yaml:"version"`
	ExtendsDefaults bool                `yaml:"extends_defaults"`
	Rules           []domain.RuleSource `yaml:"rules"`
}

// LoadRules compiles the rule table at path. An empty path yields the built-in
// table.
func LoadRules(path string) (*domain.RuleSet, error) {
	if path == "" {
		return domain.DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules compiles a YAML rule table.
func ParseRules(raw []byte) (*domain.RuleSet, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parse rules file: %v", domain.ErrInvalidInput, err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("%w: rules file has no version", domain.ErrInvalidInput)
	}

	sources := f.Rules
	if f.ExtendsDefaults {
		sources = append(domain.DefaultRuleSources(), f.Rules...)
	}
	return domain.CompileRules(f.Version, sources)
}

package domain

import "strings"

// ExtractModerationText flattens every screenable field of a campaign into one
// lower-cased, whitespace-normalized string. All pattern checks read only this.
func ExtractModerationText(c Campaign) string {
	parts := []string{c.Title, c.Story, c.Description}
	for _, item := range c.Budget {
		parts = append(parts, item.Item, item.Description)
	}
	return NormalizeText(strings.Join(parts, " "))
}

// NormalizeText lower-cases s and collapses runs of whitespace into single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

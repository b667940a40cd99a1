package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

// Supported feed formats.
const (
	FormatCEF  = "cef"
	FormatJSON = "json"
)

// maxRecords caps each source per export.
const maxRecords = 10000

// AuditExporter renders trust score events and moderation results as a feed
// for SIEM ingestion.
type AuditExporter struct {
	repo ports.AuditReader
	now  func() time.Time
}

func NewAuditExporter(repo ports.AuditReader) *AuditExporter {
	return &AuditExporter{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// AuditRecord is one line of the feed.
type AuditRecord struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	SubjectID  string    `json:"subjectId"`
	Outcome    string    `json:"outcome"`
	Previous   string    `json:"previous,omitempty"`
	Score      float64   `json:"score"`
	Severity   int       `json:"severity"`
	Reason     string    `json:"reason,omitempty"`
	Flags      []string  `json:"flags,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	KindTrust      = "trust_score"
	KindModeration = "campaign_moderation"
)

// Records returns audit records since the given time, oldest first. A zero
// since means the last 24 hours.
func (e *AuditExporter) Records(ctx context.Context, since time.Time) ([]AuditRecord, error) {
	if since.IsZero() {
		since = e.now().Add(-24 * time.Hour)
	}

	events, err := e.repo.ListTrustEventsSince(ctx, since, maxRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trust events: %w", err)
	}
	results, err := e.repo.ListModerationResultsSince(ctx, since, maxRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch moderation results: %w", err)
	}

	records := make([]AuditRecord, 0, len(events)+len(results))
	for _, ev := range events {
		records = append(records, trustRecord(ev))
	}
	for _, r := range results {
		records = append(records, moderationRecord(r))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurredAt.Before(records[j].OccurredAt)
	})
	return records, nil
}

// Export renders the feed in the requested format, one record per line.
func (e *AuditExporter) Export(ctx context.Context, since time.Time, format string) (string, error) {
	if format == "" {
		format = FormatCEF
	}
	if format != FormatCEF && format != FormatJSON {
		return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidInput, format)
	}

	records, err := e.Records(ctx, since)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	for _, rec := range records {
		if format == FormatJSON {
			line, err := json.Marshal(rec)
			if err != nil {
				return "", fmt.Errorf("encode audit record %s: %w", rec.ID, err)
			}
			output.Write(line)
		} else {
			output.WriteString(formatCEF(rec))
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func trustRecord(ev domain.TrustScoreEvent) AuditRecord {
	return AuditRecord{
		Kind:       KindTrust,
		ID:         ev.ID,
		SubjectID:  ev.UserID,
		Outcome:    string(ev.NewTier),
		Previous:   string(ev.OldTier),
		Score:      ev.NewScore,
		Severity:   trustSeverity(ev),
		Reason:     ev.Trigger,
		OccurredAt: ev.CreatedAt,
	}
}

func moderationRecord(r domain.ModerationResult) AuditRecord {
	return AuditRecord{
		Kind:       KindModeration,
		ID:         r.ID,
		SubjectID:  r.CampaignID,
		Outcome:    string(r.Decision),
		Score:      r.Scores.Overall,
		Severity:   moderationSeverity(r.Decision),
		Reason:     r.Details.RulesVersion,
		Flags:      r.Flags,
		OccurredAt: r.ComputedAt,
	}
}

// trustSeverity maps a trust event to CEF severity (0-10). Tier downgrades
// rank above routine recalculations.
func trustSeverity(ev domain.TrustScoreEvent) int {
	if ev.OldTier != "" && ev.OldTier.Rank() > ev.NewTier.Rank() {
		return 7
	}
	if ev.NewTier == domain.TierNew {
		return 4
	}
	return 2
}

func moderationSeverity(d domain.ModerationDecision) int {
	switch d {
	case domain.DecisionRejected:
		return 8
	case domain.DecisionReview:
		return 5
	default:
		return 2
	}
}

// formatCEF renders CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func formatCEF(rec AuditRecord) string {
	name := "Trust score computed"
	subjectLabel := "UserID"
	if rec.Kind == KindModeration {
		name = "Campaign moderated"
		subjectLabel = "CampaignID"
	}

	extensions := []string{
		fmt.Sprintf("externalId=%s", escapeField(rec.ID)),
		"cs1Label=" + subjectLabel,
		fmt.Sprintf("cs1=%s", escapeField(rec.SubjectID)),
		"cs2Label=Outcome",
		fmt.Sprintf("cs2=%s", escapeField(rec.Outcome)),
		"cfp1Label=Score",
		fmt.Sprintf("cfp1=%.2f", rec.Score),
	}
	if rec.Previous != "" {
		extensions = append(extensions, "cs3Label=PreviousOutcome", fmt.Sprintf("cs3=%s", escapeField(rec.Previous)))
	}
	if rec.Reason != "" {
		extensions = append(extensions, "cs4Label=Reason", fmt.Sprintf("cs4=%s", escapeField(rec.Reason)))
	}
	if len(rec.Flags) > 0 {
		extensions = append(extensions, "cs5Label=Flags", fmt.Sprintf("cs5=%s", escapeField(strings.Join(rec.Flags, ","))))
	}
	extensions = append(extensions, fmt.Sprintf("rt=%d", rec.OccurredAt.UnixMilli()))

	return fmt.Sprintf("CEF:0|FundRaising|RiskScoring|1.0|%s|%s|%d|%s",
		escapeHeader(rec.Kind), name, rec.Severity, strings.Join(extensions, " "))
}

// escapeHeader escapes pipe and backslash in CEF header fields.
func escapeHeader(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "|", "\\|")
}

// escapeField escapes extension values.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

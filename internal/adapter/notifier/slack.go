package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackNotifier alerts the moderation channel when a campaign is held for review.
type SlackNotifier struct {
	botToken    string
	channel     string
	mentionTeam string
	endpoint    string
	client      Doer
}

func NewSlackNotifier(botToken, channel, mentionTeam string, client Doer) *SlackNotifier {
	return &SlackNotifier{
		botToken:    botToken,
		channel:     channel,
		mentionTeam: mentionTeam,
		endpoint:    slackPostMessageURL,
		client:      client,
	}
}

func (s *SlackNotifier) NotifyCampaignUnderReview(ctx context.Context, note ports.CampaignReviewNotification) error {
	payload := SlackMessage{
		Channel: s.channel,
		Blocks:  s.buildReviewBlocks(note),
		Text:    fmt.Sprintf("Campaign %s held for manual review (score %.2f)", note.CampaignID, note.Overall),
	}
	return s.sendMessage(ctx, payload)
}

func (s *SlackNotifier) buildReviewBlocks(note ports.CampaignReviewNotification) []SlackBlock {
	title := note.CampaignTitle
	if title == "" {
		title = "(untitled)"
	}
	flags := "none"
	if len(note.Flags) > 0 {
		flags = "`" + strings.Join(note.Flags, "` `") + "`"
	}

	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{Type: "plain_text", Text: "Campaign held for manual review"},
		},
		{
			Type: "section",
			Fields: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Campaign*\n%s", title)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Campaign ID*\n`%s`", note.CampaignID)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Owner*\n`%s`", note.OwnerID)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Overall score*\n%.2f/100", note.Overall)},
			},
		},
		{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: fmt.Sprintf("*Flags*: %s", flags)},
		},
		{
			Type: "context",
			Elements: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("Moderation result `%s`", note.ResultID)},
			},
		},
	}

	if s.mentionTeam != "" {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: "cc: " + s.mentionTeam},
		})
	}
	return blocks
}

// slackResponse covers the envelope chat.postMessage returns with HTTP 200.
type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *SlackNotifier) sendMessage(ctx context.Context, msg SlackMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.botToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	var out slackResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack API error: %s", out.Error)
	}
	return nil
}

// Slack API structures

type SlackMessage struct {
	Channel string       `json:"channel"`
	Blocks  []SlackBlock `json:"blocks"`
	Text    string       `json:"text"` // Fallback text
}

type SlackBlock struct {
	Type     string      `json:"type"`
	Text     *SlackText  `json:"text,omitempty"`
	Fields   []SlackText `json:"fields,omitempty"`
	Elements []SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

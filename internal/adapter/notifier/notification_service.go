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

// Doer is satisfied by *httpclient.ResilientClient and *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotificationTypeCampaignUnderReview is the template key understood by the
// platform notification service.
const NotificationTypeCampaignUnderReview = "campaign_under_review"

// ServiceNotifier delivers owner notifications through the platform
// notification service.
type ServiceNotifier struct {
	baseURL string
	token   string
	client  Doer
}

func NewServiceNotifier(baseURL, token string, client Doer) *ServiceNotifier {
	return &ServiceNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type notificationRequest struct {
	RecipientID string            `json:"recipientId"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        notificationExtra `json:"data"`
}

type notificationExtra struct {
	CampaignID string   `json:"campaignId"`
	ResultID   string   `json:"moderationResultId"`
	Overall    float64  `json:"overallScore"`
	Flags      []string `json:"flags"`
}

func (n *ServiceNotifier) NotifyCampaignUnderReview(ctx context.Context, note ports.CampaignReviewNotification) error {
	title := note.CampaignTitle
	if title == "" {
		title = "Your campaign"
	}
	flags := note.Flags
	if flags == nil {
		flags = []string{}
	}
	body, err := json.Marshal(notificationRequest{
		RecipientID: note.OwnerID,
		Type:        NotificationTypeCampaignUnderReview,
		Title:       "Campaign under review",
		Body:        fmt.Sprintf("%s is being reviewed by our moderation team. We will let you know once the review is complete.", title),
		Data: notificationExtra{
			CampaignID: note.CampaignID,
			ResultID:   note.ResultID,
			Overall:    note.Overall,
			Flags:      flags,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", note.ResultID)
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify owner %s: %w", note.OwnerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}

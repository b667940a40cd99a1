package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/repository"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/bootstrap"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/config"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

const apiToken = "e2e-token"

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

func (c apiClient) call(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if out != nil && resp.StatusCode < 300 {
		if s, ok := out.(*string); ok {
			*s = string(raw)
		} else if err := json.Unmarshal(raw, out); err != nil {
			c.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

func startAPI(t *testing.T) (apiClient, *repository.MemoryRepository) {
	t.Helper()
	cfg := config.Config{
		ServiceName:   "scoring-e2e",
		StorageDriver: config.StorageMemory,
		RESTAuthToken: apiToken,
	}
	rt, err := bootstrap.Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(rt.Close)

	repo, ok := rt.Store.(*repository.MemoryRepository)
	if !ok {
		t.Fatalf("store = %T, want memory repository", rt.Store)
	}

	srv := httptest.NewServer(rt.Router())
	t.Cleanup(srv.Close)
	return apiClient{t: t, srv: srv}, repo
}

func seed(repo *repository.MemoryRepository) {
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-new", KYCLevel: domain.KYCUnverified})
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-med", KYCLevel: domain.KYCIdentityVerified})
	repo.PutCampaign(domain.Campaign{
		ID:       "camp-med",
		OwnerID:  "u-med",
		Title:    "Help Maria cover her kidney surgery",
		NeedType: domain.NeedMedical,
		Status:   domain.CampaignPendingReview,
		Story: "Maria was diagnosed with kidney failure in March. Her doctor at St. Luke's Hospital has " +
			"scheduled surgery for next month, followed by treatment and medication for six weeks. " +
			"The hospital invoice and the pharmacy quote are attached, and we will post receipts after " +
			"each payment so every donor can see where the money goes.",
		GoalAmount: 10_685.40,
		Budget: []domain.BudgetItem{
			{Item: "Kidney surgery", Description: "Hospital invoice #4471 attached", Amount: 8450},
			{Item: "Post-operative medication", Description: "Pharmacy quote attached, receipts to follow", Amount: 1275.40},
			{Item: "Physical therapy sessions", Amount: 960},
		},
	})
}

func TestScoringFlow_TrustScore(t *testing.T) {
	api, repo := startAPI(t)
	seed(repo)

	var computed domain.TrustResult
	status := api.call(http.MethodPost, "/api/v1/trust-score",
		map[string]string{"userId": "u-new", "trigger_event": domain.TriggerManual}, &computed)
	if status != http.StatusOK {
		t.Fatalf("compute status = %d", status)
	}
	if computed.TrustScore != 44.5 || computed.TrustTier != domain.TierRising {
		t.Errorf("new fundraiser = %v/%s, want 44.5/RISING", computed.TrustScore, computed.TrustTier)
	}

	var latest domain.TrustResult
	if status := api.call(http.MethodGet, "/api/v1/users/u-new/trust-score", nil, &latest); status != http.StatusOK {
		t.Fatalf("latest status = %d", status)
	}
	if latest.TrustScore != computed.TrustScore || !latest.ComputedAt.Equal(computed.ComputedAt) {
		t.Errorf("latest = %+v, want the computed result", latest)
	}

	var history struct {
		Count  int                      `json:"count"`
		Events []domain.TrustScoreEvent `json:"events"`
	}
	if status := api.call(http.MethodGet, "/api/v1/users/u-new/trust-events?limit=10", nil, &history); status != http.StatusOK {
		t.Fatalf("events status = %d", status)
	}
	if history.Count != 1 || len(history.Events) != 1 {
		t.Fatalf("history = %+v, want one event", history)
	}

	if status := api.call(http.MethodGet, "/api/v1/users/nobody/trust-score", nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", status)
	}
}

func TestScoringFlow_ModerationAndAudit(t *testing.T) {
	api, repo := startAPI(t)
	seed(repo)

	var result domain.ModerationResult
	status := api.call(http.MethodPost, "/api/v1/moderate-campaign",
		domain.ModerationRequest{CampaignID: "camp-med"}, &result)
	if status != http.StatusOK {
		t.Fatalf("moderate status = %d", status)
	}
	if result.Decision != domain.DecisionApproved || result.Scores.Overall != 83 {
		t.Errorf("medical campaign = %s/%v, want approved/83", result.Decision, result.Scores.Overall)
	}

	if st, _, ok := repo.CampaignProjection("camp-med"); !ok || st != domain.CampaignActive {
		t.Errorf("campaign status = %s, want active", st)
	}

	var stored domain.ModerationResult
	if status := api.call(http.MethodGet, "/api/v1/campaigns/camp-med/moderation", nil, &stored); status != http.StatusOK {
		t.Fatalf("fetch status = %d", status)
	}
	if stored.ID != result.ID {
		t.Errorf("stored result = %s, want %s", stored.ID, result.ID)
	}

	var feed string
	if status := api.call(http.MethodGet, "/api/v1/audit/feed?format=cef", nil, &feed); status != http.StatusOK {
		t.Fatalf("audit status = %d", status)
	}
	if !strings.Contains(feed, "campaign_moderation") || !strings.Contains(feed, "camp-med") {
		t.Errorf("audit feed missing the moderation record:\n%s", feed)
	}
}

func TestScoringFlow_RequiresToken(t *testing.T) {
	api, _ := startAPI(t)

	resp, err := api.srv.Client().Get(api.srv.URL + "/api/v1/users/u-new/trust-score")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	resp, err = api.srv.Client().Get(api.srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

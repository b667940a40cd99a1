package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// MemoryRepository is an in-process store with the same guard semantics as
// PostgresRepository. It backs local runs and tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	profiles   map[string]domain.FundraiserProfile
	campaigns  map[string]domain.Campaign
	moderated  map[string]time.Time
	scores     map[string]float64
	updates    []domain.CampaignUpdate
	donations  []domain.Donation
	feedback   []domain.Feedback
	events     []domain.SecurityEvent
	trustLog   []domain.TrustScoreEvent
	moderation []domain.ModerationResult
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:  make(map[string]domain.FundraiserProfile),
		campaigns: make(map[string]domain.Campaign),
		moderated: make(map[string]time.Time),
		scores:    make(map[string]float64),
	}
}

func (r *MemoryRepository) PutProfile(p domain.FundraiserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
}

func (r *MemoryRepository) PutCampaign(c domain.Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
}

func (r *MemoryRepository) AddUpdate(u domain.CampaignUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *MemoryRepository) AddDonation(d domain.Donation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.donations = append(r.donations, d)
}

func (r *MemoryRepository) AddFeedback(f domain.Feedback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, f)
}

func (r *MemoryRepository) AddSecurityEvent(e domain.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// CampaignProjection returns the denormalized moderation fields of a campaign.
func (r *MemoryRepository) CampaignProjection(campaignID string) (domain.CampaignStatus, float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return "", 0, false
	}
	return c.Status, r.scores[campaignID], true
}

func (r *MemoryRepository) GetProfile(_ context.Context, userID string) (*domain.FundraiserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", domain.ErrNotFound, userID)
	}
	if p.Trust != nil {
		t := cloneTrust(*p.Trust)
		p.Trust = &t
	}
	return &p, nil
}

func (r *MemoryRepository) GetCampaign(_ context.Context, campaignID string) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, campaignID)
	}
	c.Budget = append([]domain.BudgetItem(nil), c.Budget...)
	return &c, nil
}

func (r *MemoryRepository) ListCampaignsByOwner(_ context.Context, ownerID string) ([]domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range r.campaigns {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) ownedCampaigns(ownerID string) map[string]bool {
	owned := make(map[string]bool)
	for id, c := range r.campaigns {
		if c.OwnerID == ownerID {
			owned[id] = true
		}
	}
	return owned
}

func (r *MemoryRepository) ListUpdatesByOwner(_ context.Context, ownerID string) ([]domain.CampaignUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.ownedCampaigns(ownerID)
	var out []domain.CampaignUpdate
	for _, u := range r.updates {
		if owned[u.CampaignID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListDonationsByOwner(_ context.Context, ownerID string) ([]domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.ownedCampaigns(ownerID)
	var out []domain.Donation
	for _, d := range r.donations {
		if owned[d.CampaignID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListFeedbackByOwner(_ context.Context, ownerID string) ([]domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.ownedCampaigns(ownerID)
	var out []domain.Feedback
	for _, f := range r.feedback {
		if owned[f.CampaignID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListSecurityEvents(_ context.Context, userID string, since time.Time) ([]domain.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SecurityEvent
	for _, e := range r.events {
		if e.UserID == userID && !e.OccurredAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListFundraisersWithStatus(_ context.Context, status domain.CampaignStatus) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range r.campaigns {
		if c.Status == status && !seen[c.OwnerID] {
			seen[c.OwnerID] = true
			out = append(out, c.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) SaveTrustResult(_ context.Context, result domain.TrustResult, event domain.TrustScoreEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[result.UserID]
	if !ok {
		return false, fmt.Errorf("%w: profile %s vanished before save", domain.ErrPersistence, result.UserID)
	}

	applied := p.Trust == nil || !p.Trust.ComputedAt.After(result.ComputedAt)
	if applied {
		t := cloneTrust(result)
		p.Trust = &t
		r.profiles[result.UserID] = p
	}
	event.Recommendations = append([]string(nil), event.Recommendations...)
	r.trustLog = append(r.trustLog, event)
	return applied, nil
}

func (r *MemoryRepository) ListTrustEvents(_ context.Context, userID string, limit int) ([]domain.TrustScoreEvent, error) {
	return r.trustEvents(func(e domain.TrustScoreEvent) bool { return e.UserID == userID }, limit), nil
}

func (r *MemoryRepository) ListTrustEventsSince(_ context.Context, since time.Time, limit int) ([]domain.TrustScoreEvent, error) {
	return r.trustEvents(func(e domain.TrustScoreEvent) bool { return !e.CreatedAt.Before(since) }, limit), nil
}

// trustEvents returns matching events newest first, ties broken by insertion order.
func (r *MemoryRepository) trustEvents(match func(domain.TrustScoreEvent) bool, limit int) []domain.TrustScoreEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TrustScoreEvent
	for i := len(r.trustLog) - 1; i >= 0; i-- {
		if match(r.trustLog[i]) {
			out = append(out, r.trustLog[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MemoryRepository) SaveModerationResult(_ context.Context, result domain.ModerationResult, status domain.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[result.CampaignID]
	if !ok {
		return false, fmt.Errorf("%w: campaign %s vanished before save", domain.ErrPersistence, result.CampaignID)
	}

	r.moderation = append(r.moderation, result)

	last, seen := r.moderated[c.ID]
	if seen && last.After(result.ComputedAt) {
		return false, nil
	}
	c.Status = status
	r.campaigns[c.ID] = c
	r.scores[c.ID] = result.Scores.Overall
	r.moderated[c.ID] = result.ComputedAt
	return true, nil
}

func (r *MemoryRepository) LatestModerationResult(_ context.Context, campaignID string) (*domain.ModerationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.ModerationResult
	for i := range r.moderation {
		m := r.moderation[i]
		if m.CampaignID != campaignID {
			continue
		}
		if latest == nil || !m.ComputedAt.Before(latest.ComputedAt) {
			latest = &m
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no moderation result for campaign %s", domain.ErrNotFound, campaignID)
	}
	return latest, nil
}

func (r *MemoryRepository) ListModerationResultsSince(_ context.Context, since time.Time, limit int) ([]domain.ModerationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ModerationResult
	for i := len(r.moderation) - 1; i >= 0; i-- {
		if !r.moderation[i].ComputedAt.Before(since) {
			out = append(out, r.moderation[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ComputedAt.After(out[j].ComputedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneTrust(t domain.TrustResult) domain.TrustResult {
	t.Recommendations = append([]string(nil), t.Recommendations...)
	return t
}

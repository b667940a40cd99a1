package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/repository"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + string(rune('0'+n))
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.CampaignReviewNotification
	err  error
}

func (n *recordingNotifier) NotifyCampaignUnderReview(_ context.Context, msg ports.CampaignReviewNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+key)
	return nil
}

type mapCache struct {
	mu          sync.Mutex
	results     map[string]domain.TrustResult
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{results: make(map[string]domain.TrustResult)}
}

func (c *mapCache) GetTrustResult(_ context.Context, userID string) (*domain.TrustResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *mapCache) SetTrustResult(_ context.Context, r domain.TrustResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[r.UserID] = r
	return nil
}

func (c *mapCache) InvalidateTrustResult(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

// faultyStore fails selected operations on top of the in-memory store.
type faultyStore struct {
	*repository.MemoryRepository
	updatesErr error
	saveErr    error
}

func (s *faultyStore) ListUpdatesByOwner(ctx context.Context, ownerID string) ([]domain.CampaignUpdate, error) {
	if s.updatesErr != nil {
		return nil, s.updatesErr
	}
	return s.MemoryRepository.ListUpdatesByOwner(ctx, ownerID)
}

func (s *faultyStore) SaveTrustResult(ctx context.Context, r domain.TrustResult, e domain.TrustScoreEvent) (bool, error) {
	if s.saveErr != nil {
		return false, s.saveErr
	}
	return s.MemoryRepository.SaveTrustResult(ctx, r, e)
}

func (s *faultyStore) SaveModerationResult(ctx context.Context, r domain.ModerationResult, st domain.CampaignStatus) (bool, error) {
	if s.saveErr != nil {
		return false, s.saveErr
	}
	return s.MemoryRepository.SaveModerationResult(ctx, r, st)
}

func TestComputeTrustScore_NewUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCUnverified})
	pub := &recordingPublisher{}
	svc := NewTrustService(repo, WithClock(fixedClock(testNow)), WithPublisher(pub))

	result, err := svc.ComputeTrustScore(ctx, "u-1", "")
	if err != nil {
		t.Fatalf("ComputeTrustScore: %v", err)
	}
	if result.TrustScore != 44.5 || result.TrustTier != domain.TierRising || result.Confidence != 50 {
		t.Errorf("result = %v/%s/%v, want 44.5/RISING/50", result.TrustScore, result.TrustTier, result.Confidence)
	}
	if !result.ComputedAt.Equal(testNow) {
		t.Errorf("computedAt = %v, want %v", result.ComputedAt, testNow)
	}

	profile, err := repo.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Trust == nil || profile.Trust.TrustScore != result.TrustScore || profile.Trust.TrustTier != result.TrustTier {
		t.Errorf("persisted trust = %+v, want score and tier of %+v", profile.Trust, result)
	}

	events, _ := repo.ListTrustEvents(ctx, "u-1", 10)
	if len(events) != 1 {
		t.Fatalf("got %d audit events, want 1", len(events))
	}
	if events[0].Trigger != domain.TriggerManual || events[0].OldScore != nil {
		t.Errorf("first event = %+v, want manual trigger without old score", events[0])
	}
	if len(pub.events) != 1 || pub.events[0] != ports.EventTrustScoreComputed+":u-1" {
		t.Errorf("published = %v", pub.events)
	}
}

func TestComputeTrustScore_RecordsPreviousScore(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCUnverified})

	first := NewTrustService(repo, WithClock(fixedClock(testNow)))
	if _, err := first.ComputeTrustScore(ctx, "u-1", domain.TriggerManual); err != nil {
		t.Fatalf("first compute: %v", err)
	}

	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCFullyVerified, Trust: mustProfile(t, repo, "u-1").Trust})
	second := NewTrustService(repo, WithClock(fixedClock(testNow.Add(time.Hour))))
	result, err := second.ComputeTrustScore(ctx, "u-1", domain.TriggerSecurityEvent)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if result.TrustScore != 54.5 || result.TrustTier != domain.TierSteady {
		t.Errorf("result = %v/%s, want 54.5/STEADY", result.TrustScore, result.TrustTier)
	}

	events, _ := repo.ListTrustEvents(ctx, "u-1", 10)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	latest := events[0]
	if latest.OldScore == nil || *latest.OldScore != 44.5 || latest.OldTier != domain.TierRising {
		t.Errorf("latest event old = %v/%s, want 44.5/RISING", latest.OldScore, latest.OldTier)
	}
	if latest.Trigger != domain.TriggerSecurityEvent {
		t.Errorf("trigger = %q", latest.Trigger)
	}
}

func mustProfile(t *testing.T, repo *repository.MemoryRepository, id string) *domain.FundraiserProfile {
	t.Helper()
	p, err := repo.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile(%s): %v", id, err)
	}
	return p
}

func TestComputeTrustScore_Errors(t *testing.T) {
	ctx := context.Background()
	base := repository.NewMemoryRepository()
	base.PutProfile(domain.FundraiserProfile{UserID: "u-1"})

	tests := []struct {
		name   string
		store  *faultyStore
		userID string
		want   error
	}{
		{"blank user", &faultyStore{MemoryRepository: base}, "  ", domain.ErrInvalidInput},
		{"unknown user", &faultyStore{MemoryRepository: base}, "ghost", domain.ErrNotFound},
		{"history read fails", &faultyStore{MemoryRepository: base, updatesErr: errors.New("connection reset")}, "u-1", domain.ErrDataAccess},
		{"save fails", &faultyStore{MemoryRepository: base, saveErr: errors.New("disk full")}, "u-1", domain.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTrustService(tt.store, WithClock(fixedClock(testNow)))
			_, err := svc.ComputeTrustScore(ctx, tt.userID, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComputeTrustScore_StaleResultDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCFullyVerified})
	cache := newMapCache()

	newer := NewTrustService(repo, WithClock(fixedClock(testNow)), WithCache(cache))
	if _, err := newer.ComputeTrustScore(ctx, "u-1", ""); err != nil {
		t.Fatalf("newer compute: %v", err)
	}

	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCUnverified, Trust: mustProfile(t, repo, "u-1").Trust})
	stale := NewTrustService(repo, WithClock(fixedClock(testNow.Add(-time.Minute))), WithCache(cache))
	result, err := stale.ComputeTrustScore(ctx, "u-1", "")
	if err != nil {
		t.Fatalf("stale compute returned error: %v", err)
	}
	if result.TrustScore != 44.5 {
		t.Errorf("stale computation score = %v, want 44.5", result.TrustScore)
	}

	if got := mustProfile(t, repo, "u-1").Trust.TrustScore; got != 54.5 {
		t.Errorf("profile score = %v, want newer 54.5 kept", got)
	}
	events, _ := repo.ListTrustEvents(ctx, "u-1", 10)
	if len(events) != 2 {
		t.Errorf("got %d events, want stale event still appended", len(events))
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("cache invalidations = %v, want one per save", cache.invalidated)
	}
}

// interleavingCache runs hook once, before the first cache write it sees.
// Writes made by the hook itself pass straight through.
type interleavingCache struct {
	*mapCache
	fired bool
	hook  func()
}

func (c *interleavingCache) interleave() {
	if !c.fired {
		c.fired = true
		c.hook()
	}
}

func (c *interleavingCache) SetTrustResult(ctx context.Context, r domain.TrustResult) error {
	c.interleave()
	return c.mapCache.SetTrustResult(ctx, r)
}

func (c *interleavingCache) InvalidateTrustResult(ctx context.Context, userID string) error {
	c.interleave()
	return c.mapCache.InvalidateTrustResult(ctx, userID)
}

func TestComputeTrustScore_SlowRunDoesNotCacheOlderResult(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCUnverified})
	cache := &interleavingCache{mapCache: newMapCache()}

	older := NewTrustService(repo, WithClock(fixedClock(testNow.Add(-time.Minute))), WithCache(cache))
	newer := NewTrustService(repo, WithClock(fixedClock(testNow)), WithCache(cache))

	// the newer run completes between the older run's commit and its cache update
	cache.hook = func() {
		repo.PutProfile(domain.FundraiserProfile{UserID: "u-1", KYCLevel: domain.KYCFullyVerified, Trust: mustProfile(t, repo, "u-1").Trust})
		if _, err := newer.ComputeTrustScore(ctx, "u-1", ""); err != nil {
			t.Errorf("newer compute: %v", err)
		}
	}
	if _, err := older.ComputeTrustScore(ctx, "u-1", ""); err != nil {
		t.Fatalf("older compute: %v", err)
	}

	got, err := newer.LatestTrustResult(ctx, "u-1")
	if err != nil {
		t.Fatalf("LatestTrustResult: %v", err)
	}
	if got.TrustScore != 54.5 || !got.ComputedAt.Equal(testNow) {
		t.Errorf("latest = %v at %v, want the newer 54.5 at %v", got.TrustScore, got.ComputedAt, testNow)
	}
}

func TestLatestTrustResult(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-1"})
	cache := newMapCache()
	svc := NewTrustService(repo, WithClock(fixedClock(testNow)), WithCache(cache))

	if _, err := svc.LatestTrustResult(ctx, "u-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("before compute error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ComputeTrustScore(ctx, "u-1", ""); err != nil {
		t.Fatalf("ComputeTrustScore: %v", err)
	}

	cache.results["u-1"] = domain.TrustResult{UserID: "u-1", TrustScore: 12.34}
	got, err := svc.LatestTrustResult(ctx, "u-1")
	if err != nil {
		t.Fatalf("LatestTrustResult: %v", err)
	}
	if got.TrustScore != 12.34 {
		t.Errorf("score = %v, want the cached value", got.TrustScore)
	}

	delete(cache.results, "u-1")
	got, err = svc.LatestTrustResult(ctx, "u-1")
	if err != nil {
		t.Fatalf("LatestTrustResult after miss: %v", err)
	}
	if got.TrustScore != 44.5 {
		t.Errorf("score = %v, want stored 44.5", got.TrustScore)
	}
	if _, ok := cache.results["u-1"]; !ok {
		t.Error("cache was not filled after a miss")
	}
}

func TestListTrustEvents_UnknownUser(t *testing.T) {
	svc := NewTrustService(repository.NewMemoryRepository())
	if _, err := svc.ListTrustEvents(context.Background(), "ghost", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecalculateActive(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	for _, id := range []string{"u-1", "u-2"} {
		repo.PutProfile(domain.FundraiserProfile{UserID: id})
		repo.PutCampaign(domain.Campaign{ID: "c-" + id, OwnerID: id, Status: domain.CampaignActive, CreatedAt: testNow.Add(-48 * time.Hour)})
	}
	repo.PutCampaign(domain.Campaign{ID: "c-orphan", OwnerID: "u-missing", Status: domain.CampaignActive, CreatedAt: testNow})
	repo.PutProfile(domain.FundraiserProfile{UserID: "u-idle"})

	svc := NewTrustService(repo, WithClock(fixedClock(testNow)))
	n, err := svc.RecalculateActive(ctx)
	if err != nil {
		t.Fatalf("RecalculateActive: %v", err)
	}
	if n != 2 {
		t.Errorf("recalculated %d users, want 2", n)
	}
	if mustProfile(t, repo, "u-idle").Trust != nil {
		t.Error("idle fundraiser without active campaigns was recalculated")
	}
	events, _ := repo.ListTrustEvents(ctx, "u-1", 1)
	if len(events) != 1 || events[0].Trigger != domain.TriggerScheduled {
		t.Errorf("events = %+v, want one scheduled recalculation", events)
	}
}

func reviewCampaign() domain.Campaign {
	return domain.Campaign{
		ID:       "camp-hall",
		OwnerID:  "u-7",
		Title:    "Help repaint the hall with premium paint",
		NeedType: domain.NeedCommunity,
		Status:   domain.CampaignPendingReview,
	}
}

func approvedCampaign() domain.Campaign {
	return domain.Campaign{
		ID:       "camp-med",
		OwnerID:  "u-3",
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
	}
}

func TestModerateCampaign_ApprovedByID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(approvedCampaign())
	notifier := &recordingNotifier{}
	pub := &recordingPublisher{}
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)), WithNotifier(notifier),
		WithPublisher(pub), WithIDGenerator(sequentialIDs("mod")))

	result, err := svc.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-med"})
	if err != nil {
		t.Fatalf("ModerateCampaign: %v", err)
	}
	if result.Decision != domain.DecisionApproved || result.Scores.Overall != 83 {
		t.Errorf("result = %s/%v, want approved/83", result.Decision, result.Scores.Overall)
	}
	if result.ID != "mod-1" || result.CampaignID != "camp-med" {
		t.Errorf("ids = %s/%s", result.ID, result.CampaignID)
	}

	status, score, _ := repo.CampaignProjection("camp-med")
	if status != domain.CampaignActive || score != result.Scores.Overall {
		t.Errorf("projection = %s/%v, want active/%v", status, score, result.Scores.Overall)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("approved campaign triggered %d notifications", len(notifier.sent))
	}
	if len(pub.events) != 1 || pub.events[0] != ports.EventCampaignModerated+":camp-med" {
		t.Errorf("published = %v", pub.events)
	}

	latest, err := svc.LatestModerationResult(ctx, "camp-med")
	if err != nil || latest.ID != result.ID {
		t.Errorf("LatestModerationResult = %+v, %v", latest, err)
	}
}

func TestModerateCampaign_ReviewNotifiesOwnerOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(reviewCampaign())
	notifier := &recordingNotifier{}
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)), WithNotifier(notifier))

	result, err := svc.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-hall"})
	if err != nil {
		t.Fatalf("ModerateCampaign: %v", err)
	}
	if result.Decision != domain.DecisionReview || result.Scores.Overall != 67.25 {
		t.Errorf("result = %s/%v, want review/67.25", result.Decision, result.Scores.Overall)
	}
	if len(result.Flags) != 1 || result.Flags[0] != domain.FlagManualReview {
		t.Errorf("flags = %v", result.Flags)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(notifier.sent))
	}
	if n := notifier.sent[0]; n.OwnerID != "u-7" || n.CampaignID != "camp-hall" || n.ResultID != result.ID {
		t.Errorf("notification = %+v", n)
	}
	status, _, _ := repo.CampaignProjection("camp-hall")
	if status != domain.CampaignUnderReview {
		t.Errorf("status = %s, want under_review", status)
	}
}

func TestModerateCampaign_NotificationFailureIsNotAnError(t *testing.T) {
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(reviewCampaign())
	notifier := &recordingNotifier{err: errors.New("notification service down")}
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)), WithNotifier(notifier))

	result, err := svc.ModerateCampaign(context.Background(), domain.ModerationRequest{CampaignID: "camp-hall"})
	if err != nil {
		t.Fatalf("notification failure escalated: %v", err)
	}
	if result.Decision != domain.DecisionReview {
		t.Errorf("decision = %s", result.Decision)
	}
	if _, err := repo.LatestModerationResult(context.Background(), "camp-hall"); err != nil {
		t.Errorf("result not persisted: %v", err)
	}
}

// stallingNotifier blocks until its context ends.
type stallingNotifier struct {
	mu       sync.Mutex
	entryErr error
	deadline time.Time
}

func (n *stallingNotifier) NotifyCampaignUnderReview(ctx context.Context, _ ports.CampaignReviewNotification) error {
	n.mu.Lock()
	n.entryErr = ctx.Err()
	n.deadline, _ = ctx.Deadline()
	n.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

// ctxPublisher records whether the caller's context was still live at publish time.
type ctxPublisher struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (p *ctxPublisher) Publish(ctx context.Context, eventType, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+key)
	p.errs = append(p.errs, ctx.Err())
	return ctx.Err()
}

func TestModerateCampaign_StalledNotifierDoesNotBlockPublish(t *testing.T) {
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(reviewCampaign())
	notifier := &stallingNotifier{}
	pub := &ctxPublisher{}
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)), WithNotifier(notifier),
		WithPublisher(pub), WithNotifyTimeout(150*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	callerDeadline, _ := ctx.Deadline()

	result, err := svc.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-hall"})
	if err != nil {
		t.Fatalf("ModerateCampaign: %v", err)
	}
	if result.Decision != domain.DecisionReview {
		t.Fatalf("decision = %s, want review", result.Decision)
	}

	if len(pub.events) != 1 || pub.errs[0] != nil {
		t.Fatalf("published = %v with ctx errors %v, want one publish on a live context", pub.events, pub.errs)
	}
	if notifier.entryErr != nil {
		t.Errorf("notifier started on a dead context: %v", notifier.entryErr)
	}
	if !notifier.deadline.After(callerDeadline) {
		t.Errorf("notify deadline %v is not detached from the caller deadline %v", notifier.deadline, callerDeadline)
	}
}

func TestModerateCampaign_InlineWithoutIDIsDryRun(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	notifier := &recordingNotifier{}
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)), WithNotifier(notifier))

	inline := reviewCampaign()
	inline.ID = ""
	result, err := svc.ModerateCampaign(ctx, domain.ModerationRequest{Campaign: &inline})
	if err != nil {
		t.Fatalf("ModerateCampaign: %v", err)
	}
	if result.Decision != domain.DecisionReview {
		t.Errorf("decision = %s, want review", result.Decision)
	}
	if len(notifier.sent) != 0 {
		t.Error("dry run sent a notification")
	}
	all, _ := repo.ListModerationResultsSince(ctx, time.Time{}, 0)
	if len(all) != 0 {
		t.Errorf("dry run persisted %d results", len(all))
	}
}

func TestModerateCampaign_InlineEditsOverlayStoredCampaign(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(reviewCampaign())
	svc := NewModerationService(repo, WithClock(fixedClock(testNow)))

	edit := approvedCampaign()
	edit.OwnerID = "someone-else"
	result, err := svc.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-hall", Campaign: &edit})
	if err != nil {
		t.Fatalf("ModerateCampaign: %v", err)
	}
	if result.CampaignID != "camp-hall" || result.Decision != domain.DecisionApproved {
		t.Errorf("result = %s/%s, want camp-hall approved", result.CampaignID, result.Decision)
	}
	stored, _ := repo.GetCampaign(ctx, "camp-hall")
	if stored.OwnerID != "u-7" {
		t.Errorf("owner changed to %s", stored.OwnerID)
	}
}

func TestModerateCampaign_Errors(t *testing.T) {
	ctx := context.Background()
	base := repository.NewMemoryRepository()
	base.PutCampaign(domain.Campaign{ID: "empty", OwnerID: "u-1"})
	base.PutCampaign(reviewCampaign())

	tests := []struct {
		name  string
		store *faultyStore
		req   domain.ModerationRequest
		want  error
	}{
		{"nothing to screen", &faultyStore{MemoryRepository: base}, domain.ModerationRequest{}, domain.ErrInvalidInput},
		{"inline without content", &faultyStore{MemoryRepository: base}, domain.ModerationRequest{Campaign: &domain.Campaign{NeedType: domain.NeedOther}}, domain.ErrInvalidInput},
		{"unknown campaign", &faultyStore{MemoryRepository: base}, domain.ModerationRequest{CampaignID: "ghost"}, domain.ErrNotFound},
		{"stored campaign without content", &faultyStore{MemoryRepository: base}, domain.ModerationRequest{CampaignID: "empty"}, domain.ErrInvalidInput},
		{"save fails", &faultyStore{MemoryRepository: base, saveErr: errors.New("tx aborted")}, domain.ModerationRequest{CampaignID: "camp-hall"}, domain.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewModerationService(tt.store, WithClock(fixedClock(testNow)))
			if _, err := svc.ModerateCampaign(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestModerateCampaign_StaleRunSkipsNotification(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.PutCampaign(reviewCampaign())
	notifier := &recordingNotifier{}

	newer := NewModerationService(repo, WithClock(fixedClock(testNow)))
	if _, err := newer.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-hall"}); err != nil {
		t.Fatalf("newer run: %v", err)
	}
	stale := NewModerationService(repo, WithClock(fixedClock(testNow.Add(-time.Second))), WithNotifier(notifier))
	if _, err := stale.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: "camp-hall"}); err != nil {
		t.Fatalf("stale run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("stale run notified the owner")
	}
	all, _ := repo.ListModerationResultsSince(ctx, time.Time{}, 0)
	if len(all) != 2 {
		t.Errorf("history has %d rows, want 2", len(all))
	}
}

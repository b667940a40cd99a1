package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/metrics"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

// Inbound topics consumed by the worker.
const (
	TopicCampaignCreated     = "campaign.created"
	TopicCampaignUpdated     = "campaign.updated"
	TopicCampaignUpdatePost  = "campaign.update_posted"
	TopicDonationReceived    = "donation.received"
	TopicFeedbackSubmitted   = "feedback.submitted"
	TopicSecurityEventLogged = "security.event_logged"
)

// Topics lists every topic the Dispatcher handles.
func Topics() []string {
	return []string{
		TopicCampaignCreated,
		TopicCampaignUpdated,
		TopicCampaignUpdatePost,
		TopicDonationReceived,
		TopicFeedbackSubmitted,
		TopicSecurityEventLogged,
	}
}

var trustTriggers = map[string]string{
	TopicCampaignUpdatePost:  domain.TriggerCampaignUpdate,
	TopicDonationReceived:    domain.TriggerDonationReceived,
	TopicFeedbackSubmitted:   domain.TriggerFeedback,
	TopicSecurityEventLogged: domain.TriggerSecurityEvent,
}

// TrustComputer recalculates a fundraiser's trust score.
type TrustComputer interface {
	ComputeTrustScore(ctx context.Context, userID, trigger string) (*domain.TrustResult, error)
}

// CampaignModerator screens a stored campaign.
type CampaignModerator interface {
	ModerateCampaign(ctx context.Context, req domain.ModerationRequest) (*domain.ModerationResult, error)
}

// Poller is the source of consumed messages. Commit acknowledges messages
// once they have been handled.
type Poller interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs []Message) error
}

type eventPayload struct {
	CampaignID string `json:"campaignId"`
	UserID     string `json:"userId"`
	OwnerID    string `json:"ownerId"`
}

// Dispatcher routes consumed events to the engines. Trust recalculations are
// debounced per user when a Debouncer is configured: the first event in a
// window recalculates at once and later ones are coalesced into a single
// trailing recalculation run by FlushPending.
type Dispatcher struct {
	trust      TrustComputer
	moderation CampaignModerator
	campaigns  ports.CampaignReader
	debouncer  ports.Debouncer
	window     time.Duration
	logger     *zap.Logger

	retries uint64
	backOff func() backoff.BackOff

	mu      sync.Mutex
	pending map[string]string // user id -> latest trigger
}

// handleRetries bounds retries of data-access and persistence failures.
const handleRetries = 3

func NewDispatcher(trust TrustComputer, moderation CampaignModerator, campaigns ports.CampaignReader,
	debouncer ports.Debouncer, window time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		trust:      trust,
		moderation: moderation,
		campaigns:  campaigns,
		debouncer:  debouncer,
		window:     window,
		logger:     logger,
		retries:    handleRetries,
		backOff:    defaultBackOff,
		pending:    make(map[string]string),
	}
}

func defaultBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.Multiplier = 2.0
	exp.MaxElapsedTime = 0
	return exp
}

// Outcome values reported by Handle.
const (
	OutcomeProcessed = "processed"
	OutcomeDebounced = "debounced"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

// Handle processes one message. Malformed or unroutable messages are skipped,
// not returned as errors, so a poison message never blocks the partition.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (string, error) {
	outcome, err := d.handle(ctx, msg)
	metrics.RecordEventConsumed(msg.Topic, outcome)
	return outcome, err
}

func (d *Dispatcher) handle(ctx context.Context, msg Message) (string, error) {
	var p eventPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		d.logger.Warn("Skipping malformed event", zap.String("topic", msg.Topic), zap.Error(err))
		return OutcomeSkipped, nil
	}

	switch msg.Topic {
	case TopicCampaignCreated, TopicCampaignUpdated:
		if p.CampaignID == "" {
			d.logger.Warn("Skipping campaign event without campaignId", zap.String("topic", msg.Topic))
			return OutcomeSkipped, nil
		}
		err := d.retry(ctx, func() error {
			_, err := d.moderation.ModerateCampaign(ctx, domain.ModerationRequest{CampaignID: p.CampaignID})
			return err
		})
		if err != nil {
			return d.failed(msg, err)
		}
		return OutcomeProcessed, nil
	}

	trigger, ok := trustTriggers[msg.Topic]
	if !ok {
		d.logger.Warn("Skipping event on unknown topic", zap.String("topic", msg.Topic))
		return OutcomeSkipped, nil
	}

	var userID string
	err := d.retry(ctx, func() error {
		var err error
		userID, err = d.fundraiser(ctx, p)
		return err
	})
	if err != nil {
		return d.failed(msg, err)
	}
	if userID == "" {
		d.logger.Warn("Skipping trust event without subject", zap.String("topic", msg.Topic))
		return OutcomeSkipped, nil
	}

	if d.debouncer != nil && d.window > 0 {
		acquired, err := d.debouncer.Acquire(ctx, "trust:"+userID, d.window)
		if err != nil {
			d.logger.Warn("Debouncer unavailable, recalculating anyway", zap.String("user_id", userID), zap.Error(err))
		} else if !acquired {
			d.markPending(userID, trigger)
			return OutcomeDebounced, nil
		}
	}

	err = d.retry(ctx, func() error {
		_, err := d.trust.ComputeTrustScore(ctx, userID, trigger)
		return err
	})
	if err != nil {
		outcome, err := d.failed(msg, err)
		if outcome == OutcomeError && ctx.Err() == nil {
			// the offset is committed after the batch, so hand the user to
			// the trailing flush rather than lose the change
			d.markPending(userID, trigger)
		}
		return outcome, err
	}
	return OutcomeProcessed, nil
}

// retry runs op until it succeeds, fails with an error retrying cannot fix,
// or the bounded backoff is exhausted.
func (d *Dispatcher) retry(ctx context.Context, op func() error) error {
	attempt := func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(d.backOff(), d.retries), ctx)
	err := backoff.Retry(attempt, policy)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidInput)
}

func (d *Dispatcher) markPending(userID, trigger string) {
	d.mu.Lock()
	d.pending[userID] = trigger
	d.mu.Unlock()
}

// FlushPending runs one trailing recalculation for every user whose events
// were debounced since the last flush and returns how many were recalculated.
func (d *Dispatcher) FlushPending(ctx context.Context) int {
	d.mu.Lock()
	batch := d.pending
	d.pending = make(map[string]string)
	d.mu.Unlock()

	done := 0
	for userID, trigger := range batch {
		if ctx.Err() != nil {
			d.markPending(userID, trigger)
			continue
		}
		err := d.retry(ctx, func() error {
			_, err := d.trust.ComputeTrustScore(ctx, userID, trigger)
			return err
		})
		if err != nil {
			d.logger.Error("Trailing trust recalculation failed",
				zap.String("user_id", userID),
				zap.String("trigger", trigger),
				zap.String("kind", domain.ErrorKind(err)),
				zap.Error(err))
			continue
		}
		done++
	}
	if done > 0 {
		d.logger.Debug("Flushed debounced recalculations", zap.Int("users", done))
	}
	return done
}

// Pending reports how many users await a trailing recalculation.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// fundraiser resolves the subject of a trust event, falling back to the owner
// of the referenced campaign.
func (d *Dispatcher) fundraiser(ctx context.Context, p eventPayload) (string, error) {
	if id := strings.TrimSpace(p.UserID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(p.OwnerID); id != "" {
		return id, nil
	}
	if p.CampaignID == "" || d.campaigns == nil {
		return "", nil
	}
	c, err := d.campaigns.GetCampaign(ctx, p.CampaignID)
	if err != nil {
		return "", fmt.Errorf("resolve owner of campaign %s: %w", p.CampaignID, err)
	}
	return c.OwnerID, nil
}

// failed drops not-found and invalid-input errors, which retrying cannot fix.
func (d *Dispatcher) failed(msg Message, err error) (string, error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		d.logger.Warn("Dropping event that cannot be processed",
			zap.String("topic", msg.Topic),
			zap.String("kind", domain.ErrorKind(err)),
			zap.Error(err))
		return OutcomeSkipped, nil
	}
	return OutcomeError, err
}

// flushTimeout bounds the trailing flush run on shutdown.
const flushTimeout = 10 * time.Second

// Run polls source until ctx is cancelled. A batch is committed only after
// every message in it was handled; a batch interrupted by shutdown stays
// uncommitted and is redelivered. Debounced users are flushed once per window
// and once more on shutdown.
func (d *Dispatcher) Run(ctx context.Context, source Poller, batch int) error {
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		d.FlushPending(flushCtx)
	}()

	lastFlush := time.Now()
	for {
		msgs, err := source.Poll(ctx, batch)
		for _, msg := range msgs {
			if _, herr := d.Handle(ctx, msg); herr != nil {
				d.logger.Error("Event handling failed",
					zap.String("topic", msg.Topic),
					zap.String("key", msg.Key),
					zap.Error(herr))
			}
		}
		if len(msgs) > 0 && ctx.Err() == nil {
			if cerr := source.Commit(ctx, msgs); cerr != nil {
				d.logger.Warn("Commit failed", zap.Int("messages", len(msgs)), zap.Error(cerr))
			}
		}
		if d.window > 0 && time.Since(lastFlush) >= d.window {
			d.FlushPending(ctx)
			lastFlush = time.Now()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("Poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

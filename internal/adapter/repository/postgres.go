package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func readError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrDataAccess, what, err)
}

func writeError(err error, what string) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, what, err)
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*domain.FundraiserProfile, error) {
	query := `
		SELECT user_id, display_name, kyc_level,
		       trust_score, trust_tier, trust_metrics, trust_confidence, trust_recommendations, trust_computed_at
		FROM fundraiser_profiles
		WHERE user_id = $1
	`

	var (
		p               domain.FundraiserProfile
		score           *float64
		tier            *string
		metrics         []byte
		confidence      *float64
		recommendations []byte
		computedAt      *time.Time
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.KYCLevel,
		&score,
		&tier,
		&metrics,
		&confidence,
		&recommendations,
		&computedAt,
	)
	if err != nil {
		return nil, readError(err, "profile "+userID)
	}

	if score != nil && computedAt != nil {
		t := &domain.TrustResult{
			UserID:     p.UserID,
			TrustScore: *score,
			ComputedAt: computedAt.UTC(),
		}
		if tier != nil {
			t.TrustTier = domain.TrustTier(*tier)
		}
		if confidence != nil {
			t.Confidence = *confidence
		}
		if err := unmarshalJSON(metrics, &t.Metrics); err != nil {
			return nil, readError(err, "decode trust metrics")
		}
		if err := unmarshalJSON(recommendations, &t.Recommendations); err != nil {
			return nil, readError(err, "decode trust recommendations")
		}
		p.Trust = t
	}
	return &p, nil
}

const campaignColumns = `
	id, owner_id, title, story, description, need_type, goal_amount, currency, budget,
	status, overdue_update_count, created_at
`

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var (
		c      domain.Campaign
		budget []byte
	)
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Story,
		&c.Description,
		&c.NeedType,
		&c.GoalAmount,
		&c.Currency,
		&budget,
		&c.Status,
		&c.OverdueUpdateCount,
		&c.CreatedAt,
	)
	if err != nil {
		return c, err
	}
	if err := unmarshalJSON(budget, &c.Budget); err != nil {
		return c, fmt.Errorf("decode budget for campaign %s: %w", c.ID, err)
	}
	return c, nil
}

func (r *PostgresRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.db.QueryRow(ctx, query, campaignID))
	if err != nil {
		return nil, readError(err, "campaign "+campaignID)
	}
	return &c, nil
}

func (r *PostgresRepository) ListCampaignsByOwner(ctx context.Context, ownerID string) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, readError(err, "query campaigns")
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, readError(err, "scan campaign")
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate campaigns")
	}
	return campaigns, nil
}

func (r *PostgresRepository) ListUpdatesByOwner(ctx context.Context, ownerID string) ([]domain.CampaignUpdate, error) {
	query := `
		SELECT u.id, u.campaign_id, u.update_type, u.spend_amount, u.payment_reference, u.created_at
		FROM campaign_updates u
		JOIN campaigns c ON c.id = u.campaign_id
		WHERE c.owner_id = $1
		ORDER BY u.created_at, u.id
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, readError(err, "query campaign updates")
	}
	defer rows.Close()

	var updates []domain.CampaignUpdate
	for rows.Next() {
		var u domain.CampaignUpdate
		if err := rows.Scan(&u.ID, &u.CampaignID, &u.Type, &u.SpendAmount, &u.PaymentReference, &u.CreatedAt); err != nil {
			return nil, readError(err, "scan campaign update")
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate campaign updates")
	}
	return updates, nil
}

func (r *PostgresRepository) ListDonationsByOwner(ctx context.Context, ownerID string) ([]domain.Donation, error) {
	query := `
		SELECT d.id, d.campaign_id, d.amount, d.created_at
		FROM donations d
		JOIN campaigns c ON c.id = d.campaign_id
		WHERE c.owner_id = $1
		ORDER BY d.created_at, d.id
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, readError(err, "query donations")
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.Amount, &d.CreatedAt); err != nil {
			return nil, readError(err, "scan donation")
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate donations")
	}
	return donations, nil
}

func (r *PostgresRepository) ListFeedbackByOwner(ctx context.Context, ownerID string) ([]domain.Feedback, error) {
	query := `
		SELECT f.id, f.campaign_id, f.source, f.value, f.created_at
		FROM donor_feedback f
		JOIN campaigns c ON c.id = f.campaign_id
		WHERE c.owner_id = $1
		ORDER BY f.created_at, f.id
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, readError(err, "query feedback")
	}
	defer rows.Close()

	var feedback []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.CampaignID, &f.Source, &f.Value, &f.CreatedAt); err != nil {
			return nil, readError(err, "scan feedback")
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate feedback")
	}
	return feedback, nil
}

func (r *PostgresRepository) ListSecurityEvents(ctx context.Context, userID string, since time.Time) ([]domain.SecurityEvent, error) {
	query := `
		SELECT id, user_id, event_type, occurred_at
		FROM security_events
		WHERE user_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, id
	`

	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, readError(err, "query security events")
	}
	defer rows.Close()

	var events []domain.SecurityEvent
	for rows.Next() {
		var e domain.SecurityEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.OccurredAt); err != nil {
			return nil, readError(err, "scan security event")
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate security events")
	}
	return events, nil
}

func (r *PostgresRepository) ListFundraisersWithStatus(ctx context.Context, status domain.CampaignStatus) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT owner_id FROM campaigns WHERE status = $1 ORDER BY owner_id`, status)
	if err != nil {
		return nil, readError(err, "query fundraisers")
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, readError(err, "scan fundraiser")
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate fundraisers")
	}
	return users, nil
}

// SaveTrustResult supersedes the profile's trust fields unless a newer result
// is already stored, and always appends the audit event. Both writes share one
// transaction.
func (r *PostgresRepository) SaveTrustResult(ctx context.Context, result domain.TrustResult, event domain.TrustScoreEvent) (bool, error) {
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return false, writeError(err, "encode trust metrics")
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return false, writeError(err, "encode trust recommendations")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, writeError(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE fundraiser_profiles
		SET trust_score = $2, trust_tier = $3, trust_metrics = $4, trust_confidence = $5,
		    trust_recommendations = $6, trust_computed_at = $7
		WHERE user_id = $1 AND (trust_computed_at IS NULL OR trust_computed_at <= $7)
	`, result.UserID, result.TrustScore, string(result.TrustTier), metrics, result.Confidence, recommendations, result.ComputedAt)
	if err != nil {
		return false, writeError(err, "update profile trust")
	}
	applied := tag.RowsAffected() == 1

	var oldTier *string
	if event.OldTier != "" {
		t := string(event.OldTier)
		oldTier = &t
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO trust_score_events
			(id, user_id, trigger_reason, old_score, old_tier, new_score, new_tier, metrics, confidence, recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, event.ID, event.UserID, event.Trigger, event.OldScore, oldTier, event.NewScore, string(event.NewTier),
		metrics, event.Confidence, recommendations, event.CreatedAt)
	if err != nil {
		return false, writeError(err, "insert trust score event")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, writeError(err, "commit trust result")
	}
	return applied, nil
}

const trustEventColumns = `
	id, user_id, trigger_reason, old_score, old_tier, new_score, new_tier, metrics, confidence, recommendations, created_at
`

func scanTrustEvent(row pgx.Row) (domain.TrustScoreEvent, error) {
	var (
		e               domain.TrustScoreEvent
		oldTier         *string
		metrics         []byte
		recommendations []byte
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Trigger,
		&e.OldScore,
		&oldTier,
		&e.NewScore,
		&e.NewTier,
		&metrics,
		&e.Confidence,
		&recommendations,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}
	if oldTier != nil {
		e.OldTier = domain.TrustTier(*oldTier)
	}
	if err := unmarshalJSON(metrics, &e.Metrics); err != nil {
		return e, err
	}
	if err := unmarshalJSON(recommendations, &e.Recommendations); err != nil {
		return e, err
	}
	return e, nil
}

func (r *PostgresRepository) ListTrustEvents(ctx context.Context, userID string, limit int) ([]domain.TrustScoreEvent, error) {
	query := `SELECT ` + trustEventColumns + ` FROM trust_score_events WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.queryTrustEvents(ctx, query, userID, limit)
}

func (r *PostgresRepository) ListTrustEventsSince(ctx context.Context, since time.Time, limit int) ([]domain.TrustScoreEvent, error) {
	query := `SELECT ` + trustEventColumns + ` FROM trust_score_events WHERE created_at >= $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.queryTrustEvents(ctx, query, since, limit)
}

func (r *PostgresRepository) queryTrustEvents(ctx context.Context, query string, args ...any) ([]domain.TrustScoreEvent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, readError(err, "query trust events")
	}
	defer rows.Close()

	var events []domain.TrustScoreEvent
	for rows.Next() {
		e, err := scanTrustEvent(rows)
		if err != nil {
			return nil, readError(err, "scan trust event")
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate trust events")
	}
	return events, nil
}

// SaveModerationResult appends the result and projects status and score onto
// the campaign unless a newer result already did.
func (r *PostgresRepository) SaveModerationResult(ctx context.Context, result domain.ModerationResult, status domain.CampaignStatus) (bool, error) {
	scores, err := json.Marshal(result.Scores)
	if err != nil {
		return false, writeError(err, "encode moderation scores")
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return false, writeError(err, "encode moderation recommendations")
	}
	details, err := json.Marshal(result.Details)
	if err != nil {
		return false, writeError(err, "encode moderation details")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, writeError(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO moderation_results
			(id, campaign_id, scores, overall, decision, flags, recommendations, details, processing_time_ms, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, result.ID, result.CampaignID, scores, result.Scores.Overall, string(result.Decision), result.Flags,
		recommendations, details, result.ProcessingTimeMs, result.ComputedAt)
	if err != nil {
		return false, writeError(err, "insert moderation result")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE campaigns
		SET status = $2, moderation_score = $3, moderated_at = $4
		WHERE id = $1 AND (moderated_at IS NULL OR moderated_at <= $4)
	`, result.CampaignID, string(status), result.Scores.Overall, result.ComputedAt)
	if err != nil {
		return false, writeError(err, "project moderation onto campaign")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, writeError(err, "commit moderation result")
	}
	return tag.RowsAffected() == 1, nil
}

const moderationColumns = `
	id, campaign_id, scores, decision, flags, recommendations, details, processing_time_ms, computed_at
`

func scanModerationResult(row pgx.Row) (domain.ModerationResult, error) {
	var (
		m               domain.ModerationResult
		scores          []byte
		recommendations []byte
		details         []byte
	)
	err := row.Scan(
		&m.ID,
		&m.CampaignID,
		&scores,
		&m.Decision,
		&m.Flags,
		&recommendations,
		&details,
		&m.ProcessingTimeMs,
		&m.ComputedAt,
	)
	if err != nil {
		return m, err
	}
	if err := unmarshalJSON(scores, &m.Scores); err != nil {
		return m, err
	}
	if err := unmarshalJSON(recommendations, &m.Recommendations); err != nil {
		return m, err
	}
	if err := unmarshalJSON(details, &m.Details); err != nil {
		return m, err
	}
	return m, nil
}

func (r *PostgresRepository) LatestModerationResult(ctx context.Context, campaignID string) (*domain.ModerationResult, error) {
	query := `SELECT ` + moderationColumns + ` FROM moderation_results WHERE campaign_id = $1 ORDER BY computed_at DESC, id DESC LIMIT 1`

	m, err := scanModerationResult(r.db.QueryRow(ctx, query, campaignID))
	if err != nil {
		return nil, readError(err, "moderation result for campaign "+campaignID)
	}
	return &m, nil
}

func (r *PostgresRepository) ListModerationResultsSince(ctx context.Context, since time.Time, limit int) ([]domain.ModerationResult, error) {
	query := `SELECT ` + moderationColumns + ` FROM moderation_results WHERE computed_at >= $1 ORDER BY computed_at DESC, id DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, readError(err, "query moderation results")
	}
	defer rows.Close()

	var results []domain.ModerationResult
	for rows.Next() {
		m, err := scanModerationResult(rows)
		if err != nil {
			return nil, readError(err, "scan moderation result")
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(err, "iterate moderation results")
	}
	return results, nil
}

func unmarshalJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

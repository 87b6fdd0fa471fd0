package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadcontact/outreach/internal/models"
)

const campaignColumns = `
	id, user_id, name, contact_source, template_id, prompt_id, status,
	total_contacts, processed, sent, failed, job_run_id, error_message,
	auto_reply_enabled, auto_reply_subject, auto_reply_body,
	max_replies_per_thread, replies_count,
	created_at, started_at, completed_at, updated_at
`

func scanCampaign(row pgx.Row) (models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.ContactSource, &c.TemplateID, &c.PromptID, &c.Status,
		&c.TotalContacts, &c.Processed, &c.Sent, &c.Failed, &c.JobRunID, &c.ErrorMessage,
		&c.AutoReplyEnabled, &c.AutoReplySubject, &c.AutoReplyBody,
		&c.MaxRepliesPerThread, &c.RepliesCount,
		&c.CreatedAt, &c.StartedAt, &c.CompletedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Campaign{}, ErrNotFound
	}
	if err != nil {
		return models.Campaign{}, fmt.Errorf("failed to scan campaign: %w", err)
	}
	return c, nil
}

// CreateCampaign inserts a new campaign in the queued state with zero counters.
func (s *Store) CreateCampaign(ctx context.Context, userID uuid.UUID, name, contactSource, templateID, promptID string, totalContacts int) (models.Campaign, error) {
	query := `
		INSERT INTO campaigns (id, user_id, name, contact_source, template_id, prompt_id, status, total_contacts)
		VALUES ($1, $2, $3, $4, $5, $6, 'queued', $7)
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query,
		uuid.New(), userID, name, contactSource, templateID, promptID, totalContacts))
}

// Campaign returns one campaign by id, or ErrNotFound.
func (s *Store) Campaign(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	return scanCampaign(s.pool.QueryRow(ctx, query, id))
}

// UpdateCampaignStatus applies a status transition. The first transition to
// running stamps started_at; the first terminal status stamps completed_at.
// Both stamps are write-once so replayed webhooks leave them alone.
func (s *Store) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) (models.Campaign, error) {
	query := `
		UPDATE campaigns SET
		    status = $2,
		    error_message = CASE WHEN $3 <> '' THEN $3 ELSE error_message END,
		    started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') AND completed_at IS NULL THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query, id, status, errorMessage))
}

// UpdateCampaignProgress overwrites the cumulative counters reported by the
// bulk-send job. GREATEST keeps the counters monotonic if a stale report
// arrives after a newer one.
func (s *Store) UpdateCampaignProgress(ctx context.Context, id uuid.UUID, processed, sent, failed int) (models.Campaign, error) {
	query := `
		UPDATE campaigns SET
		    processed = GREATEST(processed, $2),
		    sent = GREATEST(sent, $3),
		    failed = GREATEST(failed, $4),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query, id, processed, sent, failed))
}

// IncrementCampaignReplies bumps the cumulative replies counter by one.
func (s *Store) IncrementCampaignReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	query := `
		UPDATE campaigns SET replies_count = replies_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query, id))
}

// SetCampaignJobRunID records the external job runner's run identifier.
func (s *Store) SetCampaignJobRunID(ctx context.Context, id uuid.UUID, runID string) (models.Campaign, error) {
	query := `
		UPDATE campaigns SET job_run_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query, id, runID))
}

// UpdateCampaignAutoReply changes the auto-reply settings. Empty subject or
// body keeps the current text.
func (s *Store) UpdateCampaignAutoReply(ctx context.Context, id uuid.UUID, enabled bool, subject, body string, maxReplies int) (models.Campaign, error) {
	query := `
		UPDATE campaigns SET
		    auto_reply_enabled = $2,
		    auto_reply_subject = CASE WHEN $3 <> '' THEN $3 ELSE auto_reply_subject END,
		    auto_reply_body = CASE WHEN $4 <> '' THEN $4 ELSE auto_reply_body END,
		    max_replies_per_thread = CASE WHEN $5 > 0 THEN $5 ELSE max_replies_per_thread END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns

	return scanCampaign(s.pool.QueryRow(ctx, query, id, enabled, subject, body, maxReplies))
}

// AutoReplyCampaigns lists every campaign with auto-reply enabled, across all
// users. The reply watcher polls the mailbox of each campaign owner.
func (s *Store) AutoReplyCampaigns(ctx context.Context) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE auto_reply_enabled AND status NOT IN ('failed', 'cancelled')
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-reply campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

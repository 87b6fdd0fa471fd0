// Package campaign aggregates the counters and state transitions fed by the
// external bulk-send job and by the reply loop.
package campaign

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
)

// Campaigns is the persistence capability behind the tracker.
type Campaigns interface {
	Campaign(ctx context.Context, id uuid.UUID) (models.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) (models.Campaign, error)
	UpdateCampaignProgress(ctx context.Context, id uuid.UUID, processed, sent, failed int) (models.Campaign, error)
	IncrementCampaignReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error)
	SetCampaignJobRunID(ctx context.Context, id uuid.UUID, runID string) (models.Campaign, error)
}

type Tracker struct {
	campaigns Campaigns
}

func NewTracker(campaigns Campaigns) *Tracker {
	return &Tracker{campaigns: campaigns}
}

var validStatuses = map[string]bool{
	models.CampaignQueued:    true,
	models.CampaignRunning:   true,
	models.CampaignCompleted: true,
	models.CampaignFailed:    true,
	models.CampaignCancelled: true,
}

// UpdateStatus drives the campaign state machine. A terminal campaign stays
// terminal; the first transition to running stamps started_at and any
// terminal transition stamps completed_at (done in the update itself).
func (t *Tracker) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) (models.Campaign, error) {
	if !validStatuses[status] {
		return models.Campaign{}, fmt.Errorf("invalid campaign status %q", status)
	}

	current, err := t.campaigns.Campaign(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if models.CampaignTerminal(current.Status) && status != current.Status {
		return models.Campaign{}, fmt.Errorf("campaign %s is already %s", id, current.Status)
	}

	return t.campaigns.UpdateCampaignStatus(ctx, id, status, errorMessage)
}

// UpdateProgress overwrites the cumulative counters reported by the bulk-send
// job. Reports are absolute totals, not deltas, so repeating the same report
// is idempotent. processed > total_contacts is logged as a sanity violation
// but not rejected.
func (t *Tracker) UpdateProgress(ctx context.Context, id uuid.UUID, processed, sent, failed int) (models.Campaign, error) {
	current, err := t.campaigns.Campaign(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if current.TotalContacts > 0 && processed > current.TotalContacts {
		log.Printf("Campaign %s progress report exceeds total contacts: processed=%d total=%d",
			id, processed, current.TotalContacts)
	}
	if sent+failed > processed {
		log.Printf("Campaign %s progress report inconsistent: sent=%d failed=%d processed=%d",
			id, sent, failed, processed)
	}

	return t.campaigns.UpdateCampaignProgress(ctx, id, processed, sent, failed)
}

// IncrementReplies bumps the cumulative replies counter by one. Called once
// per recorded inbound reply.
func (t *Tracker) IncrementReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	return t.campaigns.IncrementCampaignReplies(ctx, id)
}

// SetJobRunID records the external runner's run identifier when the job
// starts.
func (t *Tracker) SetJobRunID(ctx context.Context, id uuid.UUID, runID string) (models.Campaign, error) {
	return t.campaigns.SetCampaignJobRunID(ctx, id, runID)
}

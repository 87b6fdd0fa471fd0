package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
)

type fakeCampaigns struct {
	campaign models.Campaign

	statusCalls   int
	progressCalls int
}

func (f *fakeCampaigns) Campaign(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	return f.campaign, nil
}

func (f *fakeCampaigns) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) (models.Campaign, error) {
	f.statusCalls++
	now := time.Now()
	if status == models.CampaignRunning && f.campaign.StartedAt == nil {
		f.campaign.StartedAt = &now
	}
	if models.CampaignTerminal(status) && f.campaign.CompletedAt == nil {
		f.campaign.CompletedAt = &now
	}
	f.campaign.Status = status
	f.campaign.ErrorMessage = errorMessage
	return f.campaign, nil
}

func (f *fakeCampaigns) UpdateCampaignProgress(ctx context.Context, id uuid.UUID, processed, sent, failed int) (models.Campaign, error) {
	f.progressCalls++
	if processed > f.campaign.Processed {
		f.campaign.Processed = processed
	}
	if sent > f.campaign.Sent {
		f.campaign.Sent = sent
	}
	if failed > f.campaign.Failed {
		f.campaign.Failed = failed
	}
	return f.campaign, nil
}

func (f *fakeCampaigns) IncrementCampaignReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	f.campaign.RepliesCount++
	return f.campaign, nil
}

func (f *fakeCampaigns) SetCampaignJobRunID(ctx context.Context, id uuid.UUID, runID string) (models.Campaign, error) {
	f.campaign.JobRunID = runID
	return f.campaign, nil
}

func TestUpdateStatusTransitions(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{
		ID:     uuid.New(),
		Status: models.CampaignQueued,
	}}
	tracker := NewTracker(campaigns)
	ctx := context.Background()

	c, err := tracker.UpdateStatus(ctx, campaigns.campaign.ID, models.CampaignRunning, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != models.CampaignRunning {
		t.Errorf("expected running, got %q", c.Status)
	}
	if c.StartedAt == nil {
		t.Error("transition to running must stamp started_at")
	}

	c, err = tracker.UpdateStatus(ctx, campaigns.campaign.ID, models.CampaignCompleted, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CompletedAt == nil {
		t.Error("terminal transition must stamp completed_at")
	}
}

func TestUpdateStatusTerminalStaysTerminal(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{
		ID:     uuid.New(),
		Status: models.CampaignCompleted,
	}}
	tracker := NewTracker(campaigns)

	if _, err := tracker.UpdateStatus(context.Background(), campaigns.campaign.ID, models.CampaignRunning, ""); err == nil {
		t.Fatal("expected error reopening a completed campaign")
	}
	if campaigns.statusCalls != 0 {
		t.Errorf("terminal campaign must not be written, got %d status updates", campaigns.statusCalls)
	}
}

// Repeating a terminal report is accepted without complaint; the state is
// already what the report says and the completion stamp is write-once.
func TestUpdateStatusTerminalRepeat(t *testing.T) {
	completed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	campaigns := &fakeCampaigns{campaign: models.Campaign{
		ID:          uuid.New(),
		Status:      models.CampaignFailed,
		CompletedAt: &completed,
	}}
	tracker := NewTracker(campaigns)

	c, err := tracker.UpdateStatus(context.Background(), campaigns.campaign.ID, models.CampaignFailed, "smtp timeout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != models.CampaignFailed {
		t.Errorf("expected failed, got %q", c.Status)
	}
	if c.CompletedAt == nil || !c.CompletedAt.Equal(completed) {
		t.Errorf("replayed terminal report moved completed_at: %v", c.CompletedAt)
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{ID: uuid.New(), Status: models.CampaignQueued}}
	tracker := NewTracker(campaigns)

	if _, err := tracker.UpdateStatus(context.Background(), campaigns.campaign.ID, "exploded", ""); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if campaigns.statusCalls != 0 {
		t.Errorf("invalid status must not reach the store, got %d updates", campaigns.statusCalls)
	}
}

// Progress reports are absolute totals: replaying the same report leaves the
// counters unchanged, and a stale lower report never moves them backwards.
func TestUpdateProgressIdempotent(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{
		ID:            uuid.New(),
		Status:        models.CampaignRunning,
		TotalContacts: 100,
	}}
	tracker := NewTracker(campaigns)
	ctx := context.Background()

	c, err := tracker.UpdateProgress(ctx, campaigns.campaign.ID, 50, 48, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Processed != 50 || c.Sent != 48 || c.Failed != 2 {
		t.Fatalf("unexpected counters: processed=%d sent=%d failed=%d", c.Processed, c.Sent, c.Failed)
	}

	// Same report redelivered.
	c, err = tracker.UpdateProgress(ctx, campaigns.campaign.ID, 50, 48, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Processed != 50 || c.Sent != 48 || c.Failed != 2 {
		t.Errorf("replayed report changed counters: processed=%d sent=%d failed=%d", c.Processed, c.Sent, c.Failed)
	}

	// Stale out-of-order report.
	c, err = tracker.UpdateProgress(ctx, campaigns.campaign.ID, 30, 29, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Processed != 50 || c.Sent != 48 || c.Failed != 2 {
		t.Errorf("stale report moved counters backwards: processed=%d sent=%d failed=%d", c.Processed, c.Sent, c.Failed)
	}
}

// Reports that fail the sanity checks are logged but still applied.
func TestUpdateProgressToleratesInconsistentReport(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{
		ID:            uuid.New(),
		Status:        models.CampaignRunning,
		TotalContacts: 10,
	}}
	tracker := NewTracker(campaigns)

	c, err := tracker.UpdateProgress(context.Background(), campaigns.campaign.ID, 15, 12, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Processed != 15 {
		t.Errorf("inconsistent report should still apply, processed=%d", c.Processed)
	}
}

func TestIncrementReplies(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{ID: uuid.New(), Status: models.CampaignRunning}}
	tracker := NewTracker(campaigns)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		c, err := tracker.IncrementReplies(ctx, campaigns.campaign.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.RepliesCount != i {
			t.Errorf("after %d increments expected %d, got %d", i, i, c.RepliesCount)
		}
	}
}

func TestSetJobRunID(t *testing.T) {
	campaigns := &fakeCampaigns{campaign: models.Campaign{ID: uuid.New(), Status: models.CampaignQueued}}
	tracker := NewTracker(campaigns)

	c, err := tracker.SetJobRunID(context.Background(), campaigns.campaign.ID, "run-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.JobRunID != "run-42" {
		t.Errorf("expected run-42, got %q", c.JobRunID)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign lifecycle states. Counters only move forward; a terminal status
// stamps CompletedAt and is never left again.
const (
	CampaignQueued    = "queued"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
	CampaignCancelled = "cancelled"
)

// CampaignTerminal reports whether status ends the campaign state machine.
func CampaignTerminal(status string) bool {
	switch status {
	case CampaignCompleted, CampaignFailed, CampaignCancelled:
		return true
	}
	return false
}

// Campaign is one bulk email-send operation over a contact list.
type Campaign struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	ContactSource string    `json:"contact_source" db:"contact_source"`
	TemplateID    string    `json:"template_id" db:"template_id"`
	PromptID      string    `json:"prompt_id,omitempty" db:"prompt_id"`
	Status        string    `json:"status" db:"status"`

	TotalContacts int `json:"total_contacts" db:"total_contacts"`
	Processed     int `json:"processed" db:"processed"`
	Sent          int `json:"sent" db:"sent"`
	Failed        int `json:"failed" db:"failed"`

	JobRunID     string `json:"job_run_id,omitempty" db:"job_run_id"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	// Auto-reply configuration. Subject and body are the fallback text used
	// when AI generation is unavailable.
	AutoReplyEnabled    bool   `json:"auto_reply_enabled" db:"auto_reply_enabled"`
	AutoReplySubject    string `json:"auto_reply_subject" db:"auto_reply_subject"`
	AutoReplyBody       string `json:"auto_reply_body" db:"auto_reply_body"`
	MaxRepliesPerThread int    `json:"max_replies_per_thread" db:"max_replies_per_thread"`
	RepliesCount        int    `json:"replies_count" db:"replies_count"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Prompt is a reusable AI-generation instruction a campaign can reference.
// Prompts are soft-deleted: deactivation flips IsActive instead of removing
// the row, so campaigns that still reference the prompt keep resolving it.
type Prompt struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Text      string    `json:"text" db:"text"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

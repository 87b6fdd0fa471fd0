package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account owner who connects mail providers and runs campaigns.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserProfile is the identity returned by a provider's profile endpoint.
type UserProfile struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	ProviderID string `json:"provider_id,omitempty"`
}

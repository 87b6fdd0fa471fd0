package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderToken is an OAuth credential pair scoped to one (user, provider).
// The access token and expiry are replaced on every refresh; the refresh token
// is replaced only when the provider issues a new one. Rows are removed only by
// an explicit disconnect, never automatically.
type ProviderToken struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Provider     string    `json:"provider" db:"provider"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	Expiry       time.Time `json:"expiry" db:"expiry"`
	Scope        []string  `json:"scope" db:"scope"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TokenResponse is what a provider's token endpoint returns on exchange or
// refresh. RefreshToken may be empty on refresh; callers keep the old one.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        []string `json:"scope,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
}

// ExpiryFrom converts the relative expires_in into an absolute expiry.
func (r TokenResponse) ExpiryFrom(now time.Time) time.Time {
	expiresIn := r.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}

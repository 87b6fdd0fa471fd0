// Package mock is an in-memory stand-in for the Google OAuth and Gmail
// endpoints, used to run the reply service locally without real credentials.
package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
)

var (
	tokensMutex   sync.Mutex
	issuedTokens  = map[string]string{} // access token -> email it was issued for
	refreshTokens = map[string]string{} // refresh token -> email

	inboxMutex sync.Mutex
	inbox      []models.ProviderMessage

	sentMutex sync.Mutex
	sent      []models.ProviderMessage
)

// IssueTokens mints an access/refresh token pair for an email identity.
func IssueTokens(email string) models.TokenResponse {
	tokensMutex.Lock()
	defer tokensMutex.Unlock()

	access := "mock-access-" + uuid.NewString()
	refresh := "mock-refresh-" + uuid.NewString()
	issuedTokens[access] = email
	refreshTokens[refresh] = email

	return models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    3600,
		Scope:        []string{"https://www.googleapis.com/auth/gmail.send"},
		TokenType:    "Bearer",
	}
}

// RefreshTokens exchanges a refresh token for a new access token, keeping the
// same refresh token the way Google does.
func RefreshTokens(refreshToken string) (models.TokenResponse, error) {
	tokensMutex.Lock()
	defer tokensMutex.Unlock()

	email, ok := refreshTokens[refreshToken]
	if !ok {
		return models.TokenResponse{}, fmt.Errorf("invalid_grant")
	}

	access := "mock-access-" + uuid.NewString()
	issuedTokens[access] = email

	return models.TokenResponse{
		AccessToken: access,
		ExpiresIn:   3600,
		TokenType:   "Bearer",
	}, nil
}

// EmailFor resolves the identity behind an access token.
func EmailFor(accessToken string) (string, bool) {
	tokensMutex.Lock()
	defer tokensMutex.Unlock()
	email, ok := issuedTokens[accessToken]
	return email, ok
}

// RecordSend stores an outbound message and assigns provider identifiers.
// The raw payload is opaque here, so every recorded send starts its own
// thread; inbound replies on a specific thread are seeded through
// SeedInbound instead.
func RecordSend(from, to, subject, body string) models.ProviderMessage {
	msg := models.ProviderMessage{
		MessageID:  "msg-" + uuid.NewString(),
		ThreadID:   "thread-" + uuid.NewString(),
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}

	sentMutex.Lock()
	sent = append(sent, msg)
	sentMutex.Unlock()

	return msg
}

// SeedInbound injects an inbound message, simulating a contact replying on a
// thread. Used by the admin endpoint in testing.
func SeedInbound(threadID, from, to, subject, body string) models.ProviderMessage {
	msg := models.ProviderMessage{
		MessageID:  "msg-" + uuid.NewString(),
		ThreadID:   threadID,
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}

	inboxMutex.Lock()
	inbox = append(inbox, msg)
	inboxMutex.Unlock()

	return msg
}

// ListInbound returns inbound messages received after the given time.
func ListInbound(after time.Time) []models.ProviderMessage {
	inboxMutex.Lock()
	defer inboxMutex.Unlock()

	var out []models.ProviderMessage
	for _, msg := range inbox {
		if msg.ReceivedAt.After(after) {
			out = append(out, msg)
		}
	}
	return out
}

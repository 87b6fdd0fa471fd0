// Package token decides whether a stored OAuth credential is usable right now
// and, if not, whether it can be made usable by a refresh.
package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
	"github.com/leadcontact/outreach/internal/store"
)

var (
	// ErrNotConnected means no token row exists: the user never connected
	// this provider.
	ErrNotConnected = errors.New("provider not connected")
	// ErrRefreshUnavailable means the stored token is expired and carries no
	// refresh token, so it can never be silently renewed. The user must
	// reconnect.
	ErrRefreshUnavailable = errors.New("token expired and no refresh token available")
	// ErrRefreshFailed wraps a provider error from the token endpoint. Stored
	// state is left untouched when this is returned.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// RefreshBuffer is how long before expiry a token is treated as already
// invalid, so a token about to expire mid-operation is refreshed up front
// instead of failing inside a downstream call.
const RefreshBuffer = 5 * time.Minute

// TokenStore is the persistence capability the lifecycle needs.
type TokenStore interface {
	Token(ctx context.Context, userID uuid.UUID, provider string) (models.ProviderToken, error)
	UpdateToken(ctx context.Context, tokenID uuid.UUID, accessToken, refreshToken string, expiry time.Time) (models.ProviderToken, error)
}

// Refresher is the provider's token endpoint.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error)
}

type Lifecycle struct {
	tokens TokenStore
	buffer time.Duration
}

func NewLifecycle(tokens TokenStore) *Lifecycle {
	return &Lifecycle{tokens: tokens, buffer: RefreshBuffer}
}

// IsValid reports whether tok is usable at now, with the refresh buffer
// applied.
func (l *Lifecycle) IsValid(tok models.ProviderToken, now time.Time) bool {
	return tok.Expiry.After(now.Add(l.buffer))
}

// EnsureValid returns a usable access token for (user, provider), refreshing
// through the provider's token endpoint when needed. Outcomes:
//
//   - ErrNotConnected when no token row exists
//   - the stored access token, with no network call, when still valid
//   - ErrRefreshUnavailable when expired with no refresh token
//   - the refreshed access token after persisting it
//   - ErrRefreshFailed (wrapping the provider error) with stored state
//     untouched when the refresh call fails
//
// Safe to call concurrently for the same (user, provider): racing refreshes
// both persist legitimately issued tokens and the later write wins.
func (l *Lifecycle) EnsureValid(ctx context.Context, userID uuid.UUID, provider string, refresher Refresher) (string, error) {
	tok, err := l.tokens.Token(ctx, userID, provider)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: user %s, provider %s", ErrNotConnected, userID, provider)
	}
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if l.IsValid(tok, now) {
		return tok.AccessToken, nil
	}

	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: user %s, provider %s", ErrRefreshUnavailable, userID, provider)
	}

	log.Printf("Refreshing %s token for user %s", provider, userID)

	resp, err := refresher.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	updated, err := l.tokens.UpdateToken(ctx, tok.ID, resp.AccessToken, resp.RefreshToken, resp.ExpiryFrom(now))
	if err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return updated.AccessToken, nil
}

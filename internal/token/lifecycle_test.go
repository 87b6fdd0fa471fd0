package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
	"github.com/leadcontact/outreach/internal/store"
)

type fakeTokenStore struct {
	token   models.ProviderToken
	missing bool

	updatedAccess  string
	updatedRefresh string
	updatedExpiry  time.Time
	updateCalls    int
	updateErr      error
}

func (f *fakeTokenStore) Token(ctx context.Context, userID uuid.UUID, provider string) (models.ProviderToken, error) {
	if f.missing {
		return models.ProviderToken{}, store.ErrNotFound
	}
	return f.token, nil
}

func (f *fakeTokenStore) UpdateToken(ctx context.Context, tokenID uuid.UUID, accessToken, refreshToken string, expiry time.Time) (models.ProviderToken, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return models.ProviderToken{}, f.updateErr
	}
	f.updatedAccess = accessToken
	f.updatedRefresh = refreshToken
	f.updatedExpiry = expiry

	updated := f.token
	updated.AccessToken = accessToken
	if refreshToken != "" {
		updated.RefreshToken = refreshToken
	}
	updated.Expiry = expiry
	f.token = updated
	return updated, nil
}

type fakeRefresher struct {
	resp  models.TokenResponse
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return models.TokenResponse{}, f.err
	}
	return f.resp, nil
}

func TestIsValid(t *testing.T) {
	lc := NewLifecycle(&fakeTokenStore{})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"expired", now.Add(-1 * time.Hour), false},
		{"expires within buffer", now.Add(3 * time.Minute), false},
		{"expires exactly at buffer", now.Add(5 * time.Minute), false},
		{"expires just past buffer", now.Add(5*time.Minute + time.Second), true},
		{"expires in an hour", now.Add(1 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := models.ProviderToken{Expiry: tt.expiry}
			if got := lc.IsValid(tok, now); got != tt.want {
				t.Errorf("IsValid(expiry=%v) = %t, want %t", tt.expiry, got, tt.want)
			}
		})
	}
}

func TestEnsureValidNotConnected(t *testing.T) {
	st := &fakeTokenStore{missing: true}
	refresher := &fakeRefresher{}
	lc := NewLifecycle(st)

	_, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if refresher.calls != 0 {
		t.Errorf("expected no refresh call, got %d", refresher.calls)
	}
}

func TestEnsureValidStillValid(t *testing.T) {
	st := &fakeTokenStore{token: models.ProviderToken{
		ID:          uuid.New(),
		AccessToken: "current-access",
		Expiry:      time.Now().Add(1 * time.Hour),
	}}
	refresher := &fakeRefresher{}
	lc := NewLifecycle(st)

	access, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if access != "current-access" {
		t.Errorf("expected stored access token, got %q", access)
	}
	if refresher.calls != 0 {
		t.Errorf("valid token must not trigger a refresh, got %d calls", refresher.calls)
	}
	if st.updateCalls != 0 {
		t.Errorf("valid token must not be persisted again, got %d updates", st.updateCalls)
	}
}

func TestEnsureValidTriggersRefreshWithinBuffer(t *testing.T) {
	// Expiry three minutes out is inside the five-minute buffer.
	st := &fakeTokenStore{token: models.ProviderToken{
		ID:           uuid.New(),
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(3 * time.Minute),
	}}
	refresher := &fakeRefresher{resp: models.TokenResponse{
		AccessToken: "new-access",
		ExpiresIn:   3600,
	}}
	lc := NewLifecycle(st)

	access, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refresher.calls)
	}
	if access != "new-access" {
		t.Errorf("expected refreshed access token, got %q", access)
	}
	if st.updatedAccess != "new-access" {
		t.Errorf("refreshed access token not persisted, got %q", st.updatedAccess)
	}
	// Provider issued no new refresh token; the stored one stays.
	if st.token.RefreshToken != "refresh-1" {
		t.Errorf("refresh token should be preserved, got %q", st.token.RefreshToken)
	}
	if !st.updatedExpiry.After(time.Now().Add(30 * time.Minute)) {
		t.Errorf("expected new expiry about an hour out, got %v", st.updatedExpiry)
	}
}

func TestEnsureValidRotatesRefreshToken(t *testing.T) {
	st := &fakeTokenStore{token: models.ProviderToken{
		ID:           uuid.New(),
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-1 * time.Hour),
	}}
	refresher := &fakeRefresher{resp: models.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "refresh-2",
		ExpiresIn:    3600,
	}}
	lc := NewLifecycle(st)

	if _, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.token.RefreshToken != "refresh-2" {
		t.Errorf("expected rotated refresh token, got %q", st.token.RefreshToken)
	}
}

func TestEnsureValidRefreshUnavailable(t *testing.T) {
	st := &fakeTokenStore{token: models.ProviderToken{
		ID:          uuid.New(),
		AccessToken: "old-access",
		Expiry:      time.Now().Add(-1 * time.Hour),
	}}
	refresher := &fakeRefresher{}
	lc := NewLifecycle(st)

	_, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher)
	if !errors.Is(err, ErrRefreshUnavailable) {
		t.Fatalf("expected ErrRefreshUnavailable, got %v", err)
	}
	if refresher.calls != 0 {
		t.Errorf("no refresh token means no network call, got %d", refresher.calls)
	}
}

func TestEnsureValidRefreshFailedLeavesStateUntouched(t *testing.T) {
	st := &fakeTokenStore{token: models.ProviderToken{
		ID:           uuid.New(),
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-1 * time.Hour),
	}}
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	lc := NewLifecycle(st)

	_, err := lc.EnsureValid(context.Background(), uuid.New(), "google", refresher)
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if st.updateCalls != 0 {
		t.Errorf("failed refresh must not mutate stored state, got %d updates", st.updateCalls)
	}
	if st.token.AccessToken != "old-access" {
		t.Errorf("stored access token changed after failed refresh: %q", st.token.AccessToken)
	}
}

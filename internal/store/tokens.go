package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadcontact/outreach/internal/models"
)

// SaveToken upserts the credential for (user, provider). Called after an OAuth
// code exchange; a reconnect simply replaces the existing row in place.
func (s *Store) SaveToken(ctx context.Context, userID uuid.UUID, provider, accessToken, refreshToken string, expiry time.Time, scope []string) (models.ProviderToken, error) {
	query := `
		INSERT INTO provider_tokens (id, user_id, provider, access_token, refresh_token, expiry, scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE SET
		    access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expiry = EXCLUDED.expiry,
		    scope = EXCLUDED.scope,
		    updated_at = now()
		RETURNING id, user_id, provider, access_token, refresh_token, expiry, scope, created_at, updated_at
	`

	var tok models.ProviderToken
	err := s.pool.QueryRow(ctx, query, uuid.New(), userID, provider, accessToken, refreshToken, expiry, scope).Scan(
		&tok.ID, &tok.UserID, &tok.Provider, &tok.AccessToken, &tok.RefreshToken,
		&tok.Expiry, &tok.Scope, &tok.CreatedAt, &tok.UpdatedAt,
	)
	if err != nil {
		return models.ProviderToken{}, fmt.Errorf("failed to save token: %w", err)
	}
	return tok, nil
}

// Token returns the credential for (user, provider), or ErrNotFound.
func (s *Store) Token(ctx context.Context, userID uuid.UUID, provider string) (models.ProviderToken, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expiry, scope, created_at, updated_at
		FROM provider_tokens WHERE user_id = $1 AND provider = $2
	`

	var tok models.ProviderToken
	err := s.pool.QueryRow(ctx, query, userID, provider).Scan(
		&tok.ID, &tok.UserID, &tok.Provider, &tok.AccessToken, &tok.RefreshToken,
		&tok.Expiry, &tok.Scope, &tok.CreatedAt, &tok.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ProviderToken{}, ErrNotFound
	}
	if err != nil {
		return models.ProviderToken{}, fmt.Errorf("failed to get token: %w", err)
	}
	return tok, nil
}

// UpdateToken replaces the access token and expiry after a refresh. The
// refresh token is replaced only when the provider issued a new one. Two
// racing refreshes both write legitimately issued tokens; the later write
// wins and that is acceptable.
func (s *Store) UpdateToken(ctx context.Context, tokenID uuid.UUID, accessToken, refreshToken string, expiry time.Time) (models.ProviderToken, error) {
	query := `
		UPDATE provider_tokens SET
		    access_token = $2,
		    refresh_token = CASE WHEN $3 <> '' THEN $3 ELSE refresh_token END,
		    expiry = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, provider, access_token, refresh_token, expiry, scope, created_at, updated_at
	`

	var tok models.ProviderToken
	err := s.pool.QueryRow(ctx, query, tokenID, accessToken, refreshToken, expiry).Scan(
		&tok.ID, &tok.UserID, &tok.Provider, &tok.AccessToken, &tok.RefreshToken,
		&tok.Expiry, &tok.Scope, &tok.CreatedAt, &tok.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ProviderToken{}, ErrNotFound
	}
	if err != nil {
		return models.ProviderToken{}, fmt.Errorf("failed to update token: %w", err)
	}
	return tok, nil
}

// DeleteToken removes the credential. This is the explicit disconnect action;
// nothing else ever deletes a token row.
func (s *Store) DeleteToken(ctx context.Context, userID uuid.UUID, provider string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM provider_tokens WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

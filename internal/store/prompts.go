package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadcontact/outreach/internal/models"
)

const promptColumns = `id, user_id, name, text, is_active, created_at, updated_at`

func scanPrompt(row pgx.Row) (models.Prompt, error) {
	var p models.Prompt
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Text, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Prompt{}, ErrNotFound
	}
	if err != nil {
		return models.Prompt{}, fmt.Errorf("failed to scan prompt: %w", err)
	}
	return p, nil
}

// CreatePrompt stores a new active prompt.
func (s *Store) CreatePrompt(ctx context.Context, userID uuid.UUID, name, text string) (models.Prompt, error) {
	query := `
		INSERT INTO prompts (id, user_id, name, text)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + promptColumns

	return scanPrompt(s.pool.QueryRow(ctx, query, uuid.New(), userID, name, text))
}

// Prompt returns one prompt by id regardless of its active flag; callers that
// only want usable prompts check IsActive themselves.
func (s *Store) Prompt(ctx context.Context, id uuid.UUID) (models.Prompt, error) {
	return scanPrompt(s.pool.QueryRow(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id))
}

// PromptsByUser returns a user's active prompts, newest first.
func (s *Store) PromptsByUser(ctx context.Context, userID uuid.UUID) ([]models.Prompt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE user_id = $1 AND is_active ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// DeactivatePrompt soft-deletes a prompt. The row stays so campaigns
// referencing it keep resolving; only new use is prevented.
func (s *Store) DeactivatePrompt(ctx context.Context, id uuid.UUID) (models.Prompt, error) {
	query := `
		UPDATE prompts
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1
		RETURNING ` + promptColumns

	return scanPrompt(s.pool.QueryRow(ctx, query, id))
}

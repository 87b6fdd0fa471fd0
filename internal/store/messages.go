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

const messageColumns = `
	id, conversation_id, campaign_id, direction, from_email, to_email,
	subject, body, provider_message_id, is_auto_reply, sent_at, created_at
`

func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.CampaignID, &m.Direction, &m.FromEmail, &m.ToEmail,
		&m.Subject, &m.Body, &m.ProviderMessageID, &m.IsAutoReply, &m.SentAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	return m, nil
}

// MessageExists reports whether a provider message id has already been
// recorded. Pollers call this before processing an inbound event; the unique
// constraint on provider_message_id backs it up if two pollers race past the
// check.
func (s *Store) MessageExists(ctx context.Context, providerMessageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE provider_message_id = $1)`,
		providerMessageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return exists, nil
}

// AppendMessage inserts one message under a caller-supplied id, so a recorder
// can reference the row (as a conversation's originating message) before it
// exists. The ledger is append-only; nothing ever updates or deletes a row
// here.
func (s *Store) AppendMessage(ctx context.Context, id, conversationID, campaignID uuid.UUID, direction, from, to, subject, body, providerMessageID string, isAutoReply bool, sentAt time.Time) (models.Message, error) {
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages
		    (id, conversation_id, campaign_id, direction, from_email, to_email,
		     subject, body, provider_message_id, is_auto_reply, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + messageColumns

	return scanMessage(s.pool.QueryRow(ctx, query,
		id, conversationID, campaignID, direction, from, to,
		subject, body, providerMessageID, isAutoReply, sentAt))
}

// MessageHistory returns a conversation's messages oldest first, ordered by
// sent_at rather than insertion order, since concurrent recorders may append
// out of wall-clock order.
func (s *Store) MessageHistory(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE conversation_id = $1 ORDER BY sent_at`

	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
